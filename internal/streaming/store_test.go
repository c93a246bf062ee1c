package streaming

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/chat-gateway-go/internal/model"
)

func putSession(t *testing.T, s *Store, messageID, roomID, userID string, updatedAt time.Time) {
	t.Helper()
	require.NoError(t, s.Put(context.Background(), &model.StreamingSession{
		MessageID:    messageID,
		RoomID:       roomID,
		UserID:       userID,
		AIType:       "wayneai",
		LastUpdateAt: updatedAt,
	}))
}

func TestStorePutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newFakeHashKV())

	sess, err := s.Get(ctx, "msg-1")
	require.NoError(t, err)
	assert.Nil(t, sess)

	putSession(t, s, "msg-1", "room-1", "user-1", time.Now())

	sess, err = s.Get(ctx, "msg-1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "room-1", sess.RoomID)

	require.NoError(t, s.Delete(ctx, "msg-1"))

	sess, err = s.Get(ctx, "msg-1")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestStoreListByRoom(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newFakeHashKV())

	putSession(t, s, "msg-1", "room-1", "user-1", time.Now())
	putSession(t, s, "msg-2", "room-1", "user-2", time.Now())
	putSession(t, s, "msg-3", "room-2", "user-1", time.Now())

	sessions, err := s.ListByRoom(ctx, "room-1")
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	sessions, err = s.ListByRoom(ctx, "room-3")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestStoreDeleteByUser(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newFakeHashKV())

	putSession(t, s, "msg-1", "room-1", "user-1", time.Now())
	putSession(t, s, "msg-2", "room-2", "user-1", time.Now())
	putSession(t, s, "msg-3", "room-1", "user-2", time.Now())

	removed, err := s.DeleteByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	kept, err := s.Get(ctx, "msg-3")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestStoreDeleteStale(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newFakeHashKV())

	putSession(t, s, "msg-old", "room-1", "user-1", time.Now().Add(-time.Hour))
	putSession(t, s, "msg-new", "room-1", "user-2", time.Now())

	removed, err := s.DeleteStale(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	gone, err := s.Get(ctx, "msg-old")
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := s.Get(ctx, "msg-new")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestStoreSkipsCorruptEntries(t *testing.T) {
	ctx := context.Background()
	kv := newFakeHashKV()
	s := NewStore(kv)

	putSession(t, s, "msg-1", "room-1", "user-1", time.Now())
	kv.mu.Lock()
	kv.data["msg-bad"] = "{not json"
	kv.mu.Unlock()

	sessions, err := s.ListByRoom(ctx, "room-1")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}
