package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	redisclient "github.com/openclaw/chat-gateway-go/internal/redis"
)

// Logical channels. chat_messages fans out persisted messages to every
// gateway instance; message_requests/message_responses decouple
// historical-page lookups from the instance that serves them.
const (
	StreamChatMessages     = "chat_messages"
	StreamMessageRequests  = "message_requests"
	StreamMessageResponses = "message_responses"
)

// GatewaysGroup is the shared consumer group for message_requests:
// exactly one instance serves each lookup.
const GatewaysGroup = "gateways"

const (
	readBlock = 5 * time.Second
	readCount = 64
)

// Record is the bus envelope. Ordering is guaranteed only per room id.
type Record struct {
	ID      string          `json:"-"`
	RoomID  string          `json:"roomId"`
	Type    string          `json:"type"`
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

// Handler processes one consumed record. Errors are logged and the
// record is skipped; delivery is at-least-once per consumer group.
type Handler func(ctx context.Context, rec Record) error

type Bus interface {
	Publish(ctx context.Context, stream string, rec Record) error
	Consume(ctx context.Context, stream, group, consumer string, h Handler) error
}

type redisBus struct {
	client *redisclient.Client
}

func New(client *redisclient.Client) Bus {
	return &redisBus{client: client}
}

func (b *redisBus) Publish(ctx context.Context, stream string, rec Record) error {
	err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"roomId":  rec.RoomID,
			"type":    rec.Type,
			"origin":  rec.Origin,
			"payload": string(rec.Payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", stream, err)
	}
	return nil
}

// Consume blocks until ctx is cancelled, dispatching records for the
// given consumer group. The group is created on first use.
func (b *redisBus) Consume(ctx context.Context, stream, group, consumer string, h Handler) error {
	if err := b.ensureGroup(ctx, stream, group); err != nil {
		return err
	}

	log.Info().
		Str("stream", stream).
		Str("group", group).
		Str("consumer", consumer).
		Msg("bus consumer started")

	for {
		streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{stream, ">"},
			Count:    readCount,
			Block:    readBlock,
		}).Result()

		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			log.Error().Err(err).Str("stream", stream).Msg("bus read failed, retrying")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				rec := recordFromValues(msg.ID, msg.Values)
				if err := h(ctx, rec); err != nil {
					log.Error().Err(err).
						Str("stream", stream).
						Str("recordId", msg.ID).
						Msg("bus handler failed, skipping record")
				}
				if err := b.client.XAck(ctx, stream, group, msg.ID).Err(); err != nil {
					log.Warn().Err(err).Str("recordId", msg.ID).Msg("bus ack failed")
				}
			}
		}
	}
}

func (b *redisBus) ensureGroup(ctx context.Context, stream, group string) error {
	err := b.client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s on %s: %w", group, stream, err)
	}
	return nil
}

func recordFromValues(id string, values map[string]any) Record {
	rec := Record{ID: id}
	if v, ok := values["roomId"].(string); ok {
		rec.RoomID = v
	}
	if v, ok := values["type"].(string); ok {
		rec.Type = v
	}
	if v, ok := values["origin"].(string); ok {
		rec.Origin = v
	}
	if v, ok := values["payload"].(string); ok {
		rec.Payload = json.RawMessage(v)
	}
	return rec
}
