package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/chat-gateway-go/internal/model"
	"github.com/openclaw/chat-gateway-go/internal/streaming"
)

type fakeHashKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeHashKV() *fakeHashKV {
	return &fakeHashKV{data: make(map[string]string)}
}

func (f *fakeHashKV) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i+1 < len(values); i += 2 {
		f.data[values[i].(string)] = string(values[i+1].([]byte))
	}
	return redis.NewIntResult(1, nil)
}

func (f *fakeHashKV) HGet(ctx context.Context, key, field string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[field]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeHashKV) HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, field := range fields {
		delete(f.data, field)
	}
	return redis.NewIntResult(int64(len(fields)), nil)
}

func (f *fakeHashKV) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := make(map[string]string, len(f.data))
	for k, v := range f.data {
		snapshot[k] = v
	}
	return redis.NewMapStringStringResult(snapshot, nil)
}

func TestCleanupJob(t *testing.T) {
	ctx := context.Background()

	store := streaming.NewStore(newFakeHashKV())
	require.NoError(t, store.Put(ctx, &model.StreamingSession{
		MessageID:    "msg-stale",
		RoomID:       "room-1",
		UserID:       "user-1",
		LastUpdateAt: time.Now().Add(-24 * time.Hour),
	}))
	require.NoError(t, store.Put(ctx, &model.StreamingSession{
		MessageID:    "msg-live",
		RoomID:       "room-1",
		UserID:       "user-2",
		LastUpdateAt: time.Now(),
	}))

	job := NewCleanupJob(store, time.Hour)
	job.Start()
	defer job.Stop()

	assert.Eventually(t, func() bool {
		sess, err := store.Get(ctx, "msg-stale")
		return err == nil && sess == nil
	}, 2*time.Second, 10*time.Millisecond, "stale session must be reaped on startup")

	kept, err := store.Get(ctx, "msg-live")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}
