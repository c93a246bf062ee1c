package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/chat-gateway-go/internal/model"
	redisclient "github.com/openclaw/chat-gateway-go/internal/redis"
)

// Entry is one cached history window. Messages are ascending by
// timestamp and the slice never exceeds the configured window size.
type Entry struct {
	Messages        []model.ChatMessage `json:"messages"`
	HasMore         bool                `json:"hasMore"`
	OldestTimestamp int64               `json:"oldestTimestamp"`
}

// KV is the slice of redis used by the history cache.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// History is a cache-aside store for per-room message windows. Every
// operation is best-effort: failures are logged and swallowed so the
// cache can never fail the message-send path.
type History struct {
	kv     KV
	window int
	ttl    time.Duration
}

func NewHistory(kv KV, window int, ttl time.Duration) *History {
	return &History{kv: kv, window: window, ttl: ttl}
}

// Window returns the configured latest-window size.
func (h *History) Window() int {
	return h.window
}

// Latest returns the cached latest window for a room. The second return
// is false on miss, expiry, or any cache failure.
func (h *History) Latest(ctx context.Context, roomID string) (*Entry, bool) {
	return h.get(ctx, redisclient.LatestKey(roomID))
}

func (h *History) StoreLatest(ctx context.Context, roomID string, entry *Entry) {
	h.set(ctx, redisclient.LatestKey(roomID), entry)
}

// Page returns a cached paged lookup result for a before-cursor.
func (h *History) Page(ctx context.Context, roomID string, before int64) (*Entry, bool) {
	return h.get(ctx, redisclient.PageKey(roomID, cursorString(before)))
}

func (h *History) StorePage(ctx context.Context, roomID string, before int64, entry *Entry) {
	h.set(ctx, redisclient.PageKey(roomID, cursorString(before)), entry)
}

// Append writes a newly persisted message through to the latest window:
// read the current entry (absent means empty), append, trim from the
// front past the window size, recompute hasMore and oldestTimestamp,
// rewrite with a fresh TTL.
func (h *History) Append(ctx context.Context, roomID string, msg *model.ChatMessage) {
	entry, ok := h.get(ctx, redisclient.LatestKey(roomID))
	if !ok || entry == nil {
		entry = &Entry{}
	}

	entry.Messages = append(entry.Messages, *msg)
	if len(entry.Messages) > h.window {
		entry.Messages = entry.Messages[len(entry.Messages)-h.window:]
		entry.HasMore = true
	}
	entry.OldestTimestamp = entry.Messages[0].Timestamp()

	h.set(ctx, redisclient.LatestKey(roomID), entry)
}

// Invalidate drops the latest window for a room.
func (h *History) Invalidate(ctx context.Context, roomID string) {
	if err := h.kv.Del(ctx, redisclient.LatestKey(roomID)).Err(); err != nil {
		log.Warn().Err(err).Str("roomId", roomID).Msg("cache invalidate failed")
	}
}

func (h *History) get(ctx context.Context, key string) (*Entry, bool) {
	raw, err := h.kv.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache entry corrupt, treating as miss")
		return nil, false
	}
	return &entry, true
}

func (h *History) set(ctx context.Context, key string, entry *Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache entry marshal failed")
		return
	}
	if err := h.kv.Set(ctx, key, data, h.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func cursorString(before int64) string {
	if before == 0 {
		return ""
	}
	return strconv.FormatInt(before, 10)
}

// LatestEntryFromRows builds the latest-window entry from a newest-first
// query of exactly window rows. hasMore is true iff the room filled the
// whole window.
func LatestEntryFromRows(rows []model.ChatMessage, window int) *Entry {
	messages := make([]model.ChatMessage, len(rows))
	for i, m := range rows {
		messages[len(rows)-1-i] = m
	}

	entry := &Entry{Messages: messages, HasMore: len(rows) == window}
	if len(messages) > 0 {
		entry.OldestTimestamp = messages[0].Timestamp()
	}
	return entry
}

// EntryFromRows builds a cache entry from a newest-first query that
// probed for limit+1 rows: the result is reversed to ascending order,
// trimmed to limit, and hasMore is set iff the probe row was present.
func EntryFromRows(rows []model.ChatMessage, limit int) *Entry {
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	messages := make([]model.ChatMessage, len(rows))
	for i, m := range rows {
		messages[len(rows)-1-i] = m
	}

	entry := &Entry{Messages: messages, HasMore: hasMore}
	if len(messages) > 0 {
		entry.OldestTimestamp = messages[0].Timestamp()
	}
	return entry
}
