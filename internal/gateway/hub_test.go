package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubAddRemove(t *testing.T) {
	hub := NewHub()
	c := newClient("user-1", "Alice", "sess-1")

	hub.Add(c)
	assert.Equal(t, 1, hub.TotalClients())
	assert.Same(t, c, hub.Get(c.ID))
	require.Len(t, hub.ClientsForUser("user-1"), 1)

	hub.Remove(c)
	assert.Equal(t, 0, hub.TotalClients())
	assert.Nil(t, hub.Get(c.ID))
	assert.Empty(t, hub.ClientsForUser("user-1"))

	select {
	case <-c.Done:
	default:
		t.Fatal("Done must be closed after Remove")
	}
}

func TestHubSetRoom(t *testing.T) {
	hub := NewHub()
	c := newClient("user-1", "Alice", "sess-1")
	hub.Add(c)

	hub.SetRoom(c, "room-1")
	assert.Equal(t, "room-1", c.Room())

	hub.SetRoom(c, "room-2")
	assert.Equal(t, "room-2", c.Room())

	hub.BroadcastRoom("room-1", NewEvent("message", nil), nil)
	assert.Empty(t, c.Events, "client must not receive events for its previous room")

	hub.BroadcastRoom("room-2", NewEvent("message", nil), nil)
	assert.Len(t, c.Events, 1)

	hub.SetRoom(c, "")
	assert.Equal(t, "", c.Room())
}

func TestHubBroadcastRoom(t *testing.T) {
	hub := NewHub()
	a := newClient("user-1", "Alice", "sess-1")
	b := newClient("user-2", "Bob", "sess-2")
	outsider := newClient("user-3", "Carol", "sess-3")
	for _, c := range []*Client{a, b, outsider} {
		hub.Add(c)
	}
	hub.SetRoom(a, "room-1")
	hub.SetRoom(b, "room-1")
	hub.SetRoom(outsider, "room-2")

	hub.BroadcastRoom("room-1", NewEvent("message", map[string]string{"id": "m1"}), nil)

	assert.Len(t, a.Events, 1)
	assert.Len(t, b.Events, 1)
	assert.Empty(t, outsider.Events)
}

func TestHubBroadcastExcludes(t *testing.T) {
	hub := NewHub()
	a := newClient("user-1", "Alice", "sess-1")
	b := newClient("user-2", "Bob", "sess-2")
	hub.Add(a)
	hub.Add(b)
	hub.SetRoom(a, "room-1")
	hub.SetRoom(b, "room-1")

	hub.BroadcastRoom("room-1", NewEvent("message", nil), a)

	assert.Empty(t, a.Events)
	assert.Len(t, b.Events, 1)
}

func TestHubSendUser(t *testing.T) {
	hub := NewHub()
	first := newClient("user-1", "Alice", "sess-1")
	second := newClient("user-1", "Alice", "sess-2")
	other := newClient("user-2", "Bob", "sess-3")
	for _, c := range []*Client{first, second, other} {
		hub.Add(c)
	}

	hub.SendUser("user-1", NewEvent("session_ended", nil))

	assert.Len(t, first.Events, 1)
	assert.Len(t, second.Events, 1)
	assert.Empty(t, other.Events)
}

func TestHubSendDropsWhenFull(t *testing.T) {
	hub := NewHub()
	c := newClient("user-1", "Alice", "sess-1")
	hub.Add(c)

	for i := 0; i < clientBufferSize+10; i++ {
		hub.Send(c, NewEvent("message", nil))
	}

	assert.Len(t, c.Events, clientBufferSize)
}
