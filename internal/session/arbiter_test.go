package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/chat-gateway-go/internal/model"
	redisclient "github.com/openclaw/chat-gateway-go/internal/redis"
)

type fakeKV struct {
	data map[string]string
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKV) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(f.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestArbiterRegisterAndValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("registered session validates", func(t *testing.T) {
		a := NewArbiter(newFakeKV(), 30*time.Minute)
		require.NoError(t, a.Register(ctx, "user-1", "sess-1"))

		result, err := a.Validate(ctx, "user-1", "sess-1")
		require.NoError(t, err)
		assert.True(t, result.IsValid)
	})

	t.Run("unknown user is invalid", func(t *testing.T) {
		a := NewArbiter(newFakeKV(), 30*time.Minute)

		result, err := a.Validate(ctx, "user-1", "sess-1")
		require.NoError(t, err)
		assert.False(t, result.IsValid)
		assert.Equal(t, "no active session", result.Message)
	})

	t.Run("newer registration supersedes the old session", func(t *testing.T) {
		a := NewArbiter(newFakeKV(), 30*time.Minute)
		require.NoError(t, a.Register(ctx, "user-1", "sess-1"))
		require.NoError(t, a.Register(ctx, "user-1", "sess-2"))

		old, err := a.Validate(ctx, "user-1", "sess-1")
		require.NoError(t, err)
		assert.False(t, old.IsValid)
		assert.Equal(t, "session superseded by a newer login", old.Message)

		current, err := a.Validate(ctx, "user-1", "sess-2")
		require.NoError(t, err)
		assert.True(t, current.IsValid)
	})

	t.Run("idle session is invalid", func(t *testing.T) {
		kv := newFakeKV()
		a := NewArbiter(kv, 30*time.Minute)

		rec := model.SessionRecord{
			UserID:         "user-1",
			SessionID:      "sess-1",
			LastActivityAt: time.Now().Add(-time.Hour),
		}
		data, _ := json.Marshal(rec)
		kv.data[redisclient.SessionKey("user-1")] = string(data)

		result, err := a.Validate(ctx, "user-1", "sess-1")
		require.NoError(t, err)
		assert.False(t, result.IsValid)
		assert.Equal(t, "session expired by inactivity", result.Message)
	})
}

func TestArbiterTouch(t *testing.T) {
	ctx := context.Background()

	t.Run("refreshes the activity timestamp", func(t *testing.T) {
		kv := newFakeKV()
		a := NewArbiter(kv, 30*time.Minute)

		rec := model.SessionRecord{
			UserID:         "user-1",
			SessionID:      "sess-1",
			LastActivityAt: time.Now().Add(-29 * time.Minute),
		}
		data, _ := json.Marshal(rec)
		kv.data[redisclient.SessionKey("user-1")] = string(data)

		require.NoError(t, a.Touch(ctx, "user-1"))

		got, err := a.Get(ctx, "user-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.WithinDuration(t, time.Now(), got.LastActivityAt, time.Second)
	})

	t.Run("no-op without a record", func(t *testing.T) {
		a := NewArbiter(newFakeKV(), 30*time.Minute)
		assert.NoError(t, a.Touch(ctx, "user-1"))
	})
}

func TestArbiterClear(t *testing.T) {
	ctx := context.Background()

	t.Run("owner clears its record", func(t *testing.T) {
		a := NewArbiter(newFakeKV(), 30*time.Minute)
		require.NoError(t, a.Register(ctx, "user-1", "sess-1"))

		require.NoError(t, a.Clear(ctx, "user-1", "sess-1"))

		rec, err := a.Get(ctx, "user-1")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("superseded session cannot clobber the new record", func(t *testing.T) {
		a := NewArbiter(newFakeKV(), 30*time.Minute)
		require.NoError(t, a.Register(ctx, "user-1", "sess-1"))
		require.NoError(t, a.Register(ctx, "user-1", "sess-2"))

		require.NoError(t, a.Clear(ctx, "user-1", "sess-1"))

		rec, err := a.Get(ctx, "user-1")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "sess-2", rec.SessionID)
	})
}
