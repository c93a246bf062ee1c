package session

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

// KV is the slice of redis used by the arbiter. Session records use
// atomic single-key read-modify-write; no distributed lock is taken.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// ValidationResult reports whether a presented (user, session) pair
// matches the authoritative record.
type ValidationResult struct {
	IsValid bool
	Message string
}

// Arbiter owns the single authoritative active session record per user.
type Arbiter struct {
	kv   KV
	idle time.Duration
}

func NewArbiter(kv KV, idle time.Duration) *Arbiter {
	return &Arbiter{kv: kv, idle: idle}
}

// Register installs sessionID as the authoritative session for userID,
// superseding any previous record.
func (a *Arbiter) Register(ctx context.Context, userID, sessionID string) error {
	rec := model.SessionRecord{
		UserID:         userID,
		SessionID:      sessionID,
		LastActivityAt: time.Now(),
	}
	if err := a.set(ctx, &rec); err != nil {
		return err
	}

	log.Info().
		Str("userId", userID).
		Str("sessionId", sessionID).
		Msg("session registered")
	return nil
}

// Validate checks the presented pair against the stored record. Invalid
// when no record exists, the session id mismatches, or the record is
// expired by inactivity.
func (a *Arbiter) Validate(ctx context.Context, userID, sessionID string) (ValidationResult, error) {
	rec, err := a.Get(ctx, userID)
	if err != nil {
		return ValidationResult{}, err
	}

	switch {
	case rec == nil:
		return ValidationResult{Message: "no active session"}, nil
	case rec.SessionID != sessionID:
		return ValidationResult{Message: "session superseded by a newer login"}, nil
	case time.Since(rec.LastActivityAt) > a.idle:
		return ValidationResult{Message: "session expired by inactivity"}, nil
	}

	return ValidationResult{IsValid: true}, nil
}

// Touch refreshes the freshness timestamp after a meaningfully
// authenticated action.
func (a *Arbiter) Touch(ctx context.Context, userID string) error {
	rec, err := a.Get(ctx, userID)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	rec.LastActivityAt = time.Now()
	return a.set(ctx, rec)
}

// Clear removes the record only if sessionID is still the owner, so a
// disconnecting old connection cannot clobber a superseding login.
func (a *Arbiter) Clear(ctx context.Context, userID, sessionID string) error {
	rec, err := a.Get(ctx, userID)
	if err != nil {
		return err
	}
	if rec == nil || rec.SessionID != sessionID {
		return nil
	}

	return a.kv.Del(ctx, redisclient.SessionKey(userID)).Err()
}

func (a *Arbiter) Get(ctx context.Context, userID string) (*model.SessionRecord, error) {
	raw, err := a.kv.Get(ctx, redisclient.SessionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session record: %w", err)
	}

	var rec model.SessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode session record: %w", err)
	}
	return &rec, nil
}

func (a *Arbiter) set(ctx context.Context, rec *model.SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}
	if err := a.kv.Set(ctx, redisclient.SessionKey(rec.UserID), data, a.idle).Err(); err != nil {
		return fmt.Errorf("store session record: %w", err)
	}
	return nil
}
