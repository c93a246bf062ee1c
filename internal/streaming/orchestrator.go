package streaming

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/chat-gateway-go/internal/ai"
	"github.com/openclaw/chat-gateway-go/internal/model"
	"github.com/openclaw/chat-gateway-go/internal/repository"
)

// Event names emitted over the bus for one generation. For a given
// message id the sequence is exactly start, zero or more chunks, then
// one of complete/error.
const (
	EventAIMessageStart    = "aiMessageStart"
	EventAIMessageChunk    = "aiMessageChunk"
	EventAIMessageComplete = "aiMessageComplete"
	EventAIMessageError    = "aiMessageError"
)

type StartEvent struct {
	MessageID string `json:"messageId"`
	AIType    string `json:"aiType"`
	Timestamp int64  `json:"timestamp"`
}

type ChunkEvent struct {
	MessageID        string `json:"messageId"`
	Delta            string `json:"delta"`
	FullContentSoFar string `json:"fullContentSoFar"`
	IsCodeBlock      bool   `json:"isCodeBlock"`
	IsComplete       bool   `json:"isComplete"`
}

type CompleteEvent struct {
	MessageID  string          `json:"messageId"`
	AIType     string          `json:"aiType"`
	Message    json.RawMessage `json:"message"`
	IsComplete bool            `json:"isComplete"`
}

type ErrorEvent struct {
	MessageID string `json:"messageId"`
	Error     string `json:"error"`
	AIType    string `json:"aiType"`
}

// PublishFunc sends one generation event to the room via the bus so
// every gateway instance observes it.
type PublishFunc func(ctx context.Context, roomID, eventType string, payload any) error

// HistoryAppender is the cache write-back hook for the persisted
// ai message.
type HistoryAppender interface {
	Append(ctx context.Context, roomID string, msg *model.ChatMessage)
}

// Orchestrator drives one generation through the streaming-session
// state machine: create the shared session record, accumulate chunks,
// and take exactly one terminal transition that removes the record.
type Orchestrator struct {
	store    *Store
	registry *ai.Registry
	messages repository.MessageRepository
	history  HistoryAppender
	publish  PublishFunc
}

func NewOrchestrator(
	store *Store,
	registry *ai.Registry,
	messages repository.MessageRepository,
	history HistoryAppender,
	publish PublishFunc,
) *Orchestrator {
	return &Orchestrator{
		store:    store,
		registry: registry,
		messages: messages,
		history:  history,
		publish:  publish,
	}
}

// Generate starts an asynchronous generation for one mention and
// returns the message id that keys its streaming session.
func (o *Orchestrator) Generate(ctx context.Context, roomID, userID, aiType, query string) string {
	messageID := uuid.NewString()
	go o.run(ctx, messageID, roomID, userID, aiType, query)
	return messageID
}

func (o *Orchestrator) run(ctx context.Context, messageID, roomID, userID, aiType, query string) {
	startedAt := time.Now()

	sess := &model.StreamingSession{
		MessageID:    messageID,
		RoomID:       roomID,
		UserID:       userID,
		AIType:       aiType,
		LastUpdateAt: startedAt,
	}
	if err := o.store.Put(ctx, sess); err != nil {
		log.Error().Err(err).Str("messageId", messageID).Msg("failed to create streaming session")
		o.fail(ctx, sess, err)
		return
	}

	o.emit(ctx, roomID, EventAIMessageStart, StartEvent{
		MessageID: messageID,
		AIType:    aiType,
		Timestamp: startedAt.UnixMilli(),
	})

	provider, err := o.registry.Get(aiType)
	if err != nil {
		o.fail(ctx, sess, err)
		return
	}

	deltas, errs := provider.Stream(ctx, query)

	var content strings.Builder
	chunks := 0
	inCodeBlock := false

	for delta := range deltas {
		content.WriteString(delta)
		chunks++
		if strings.Count(delta, "```")%2 == 1 {
			inCodeBlock = !inCodeBlock
		}

		sess.AccumulatedContent = content.String()
		sess.LastUpdateAt = time.Now()
		if err := o.store.Put(ctx, sess); err != nil {
			log.Warn().Err(err).Str("messageId", messageID).Msg("failed to persist streaming session")
		}

		o.emit(ctx, roomID, EventAIMessageChunk, ChunkEvent{
			MessageID:        messageID,
			Delta:            delta,
			FullContentSoFar: sess.AccumulatedContent,
			IsCodeBlock:      inCodeBlock,
		})
	}

	select {
	case err, ok := <-errs:
		if ok && err != nil {
			o.fail(ctx, sess, err)
			return
		}
	default:
	}

	o.complete(ctx, sess, content.String(), chunks, time.Since(startedAt))
}

// complete persists the finished message as a durable ai-typed chat
// message, fans it out, and removes the streaming session.
func (o *Orchestrator) complete(ctx context.Context, sess *model.StreamingSession, content string, chunks int, elapsed time.Duration) {
	meta, _ := json.Marshal(map[string]any{
		"aiType":    sess.AIType,
		"elapsedMs": elapsed.Milliseconds(),
		"chunks":    chunks,
	})
	rawMeta := json.RawMessage(meta)
	senderName := sess.AIType

	msg, err := o.messages.Create(ctx, model.CreateMessageParams{
		RoomID:     sess.RoomID,
		SenderName: &senderName,
		Type:       model.MessageTypeAI,
		Content:    content,
		Metadata:   &rawMeta,
	})
	if err != nil {
		o.fail(ctx, sess, err)
		return
	}

	o.history.Append(ctx, sess.RoomID, msg)

	o.emit(ctx, sess.RoomID, EventAIMessageComplete, CompleteEvent{
		MessageID:  sess.MessageID,
		AIType:     sess.AIType,
		Message:    msg.ToEventData(),
		IsComplete: true,
	})

	o.remove(ctx, sess)

	log.Info().
		Str("messageId", sess.MessageID).
		Str("roomId", sess.RoomID).
		Str("aiType", sess.AIType).
		Int("chunks", chunks).
		Dur("elapsed", elapsed).
		Msg("ai generation completed")
}

// fail removes the streaming session and reports the error; nothing is
// persisted.
func (o *Orchestrator) fail(ctx context.Context, sess *model.StreamingSession, cause error) {
	o.remove(ctx, sess)

	o.emit(ctx, sess.RoomID, EventAIMessageError, ErrorEvent{
		MessageID: sess.MessageID,
		Error:     cause.Error(),
		AIType:    sess.AIType,
	})

	log.Error().Err(cause).
		Str("messageId", sess.MessageID).
		Str("roomId", sess.RoomID).
		Msg("ai generation failed")
}

func (o *Orchestrator) remove(ctx context.Context, sess *model.StreamingSession) {
	if err := o.store.Delete(ctx, sess.MessageID); err != nil {
		log.Warn().Err(err).Str("messageId", sess.MessageID).Msg("failed to delete streaming session")
	}
}

func (o *Orchestrator) emit(ctx context.Context, roomID, eventType string, payload any) {
	if err := o.publish(ctx, roomID, eventType, payload); err != nil {
		log.Error().Err(err).
			Str("roomId", roomID).
			Str("event", eventType).
			Msg("failed to publish generation event")
	}
}
