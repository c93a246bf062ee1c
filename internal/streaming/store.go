package streaming

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/chat-gateway-go/internal/model"
	redisclient "github.com/openclaw/chat-gateway-go/internal/redis"
)

// HashKV is the slice of redis used by the streaming session store.
type HashKV interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// Store holds in-flight AI generation state in the shared
// streaming_sessions hash, keyed by message id, visible to every
// gateway instance.
type Store struct {
	kv HashKV
}

func NewStore(kv HashKV) *Store {
	return &Store{kv: kv}
}

func (s *Store) Put(ctx context.Context, sess *model.StreamingSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode streaming session: %w", err)
	}
	if err := s.kv.HSet(ctx, redisclient.StreamingSessionsKey, sess.MessageID, data).Err(); err != nil {
		return fmt.Errorf("store streaming session: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, messageID string) (*model.StreamingSession, error) {
	raw, err := s.kv.HGet(ctx, redisclient.StreamingSessionsKey, messageID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get streaming session: %w", err)
	}

	var sess model.StreamingSession
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("decode streaming session: %w", err)
	}
	return &sess, nil
}

func (s *Store) Delete(ctx context.Context, messageID string) error {
	return s.kv.HDel(ctx, redisclient.StreamingSessionsKey, messageID).Err()
}

// ListByRoom returns the in-flight generations scoped to one room, for
// clients joining or reconnecting mid-generation.
func (s *Store) ListByRoom(ctx context.Context, roomID string) ([]model.StreamingSession, error) {
	all, err := s.list(ctx)
	if err != nil {
		return nil, err
	}

	var sessions []model.StreamingSession
	for _, sess := range all {
		if sess.RoomID == roomID {
			sessions = append(sessions, sess)
		}
	}
	return sessions, nil
}

// DeleteByUser removes orphaned sessions belonging to a disconnecting
// user and returns how many were removed.
func (s *Store) DeleteByUser(ctx context.Context, userID string) (int, error) {
	all, err := s.list(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, sess := range all {
		if sess.UserID != userID {
			continue
		}
		if err := s.Delete(ctx, sess.MessageID); err != nil {
			log.Warn().Err(err).Str("messageId", sess.MessageID).Msg("failed to delete streaming session")
			continue
		}
		removed++
	}
	return removed, nil
}

// DeleteStale removes sessions not updated since the cutoff. Run by the
// cleanup job to reap generations whose owning process died.
func (s *Store) DeleteStale(ctx context.Context, olderThan time.Duration) (int, error) {
	all, err := s.list(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, sess := range all {
		if sess.LastUpdateAt.After(cutoff) {
			continue
		}
		if err := s.Delete(ctx, sess.MessageID); err != nil {
			log.Warn().Err(err).Str("messageId", sess.MessageID).Msg("failed to delete stale streaming session")
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *Store) list(ctx context.Context) ([]model.StreamingSession, error) {
	raw, err := s.kv.HGetAll(ctx, redisclient.StreamingSessionsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list streaming sessions: %w", err)
	}

	sessions := make([]model.StreamingSession, 0, len(raw))
	for field, val := range raw {
		var sess model.StreamingSession
		if err := json.Unmarshal([]byte(val), &sess); err != nil {
			log.Warn().Err(err).Str("messageId", field).Msg("corrupt streaming session entry, skipping")
			continue
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}
