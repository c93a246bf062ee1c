package gateway

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const clientBufferSize = 100

// Client is one locally attached connection. A client is a member of at
// most one room at a time.
type Client struct {
	ID        string
	UserID    string
	UserName  string
	SessionID string

	Events chan Event
	Done   chan struct{}

	mu         sync.Mutex
	roomID     string
	evictTimer *time.Timer
	closed     bool
}

func newClient(userID, userName, sessionID string) *Client {
	return &Client{
		ID:        uuid.NewString(),
		UserID:    userID,
		UserName:  userName,
		SessionID: sessionID,
		Events:    make(chan Event, clientBufferSize),
		Done:      make(chan struct{}),
	}
}

// Room returns the client's current room, or "" when not joined.
func (c *Client) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *Client) setRoom(roomID string) {
	c.mu.Lock()
	c.roomID = roomID
	c.mu.Unlock()
}

// scheduleEviction arms the duplicate-login grace timer. A previously
// armed timer is replaced.
func (c *Client) scheduleEviction(grace time.Duration, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.evictTimer != nil {
		c.evictTimer.Stop()
	}
	c.evictTimer = time.AfterFunc(grace, fn)
}

// cancelEviction stops a pending grace timer so a stale handle never
// fires after the connection is gone.
func (c *Client) cancelEviction() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.evictTimer != nil {
		c.evictTimer.Stop()
		c.evictTimer = nil
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Done)
}

// Hub is the process-local registry of attached connections, indexed by
// user and by room. Cross-instance state lives in the shared stores;
// the hub only tracks transport attachments, which are inherently
// local.
type Hub struct {
	mu     sync.RWMutex
	byID   map[string]*Client
	byUser map[string]map[*Client]bool
	byRoom map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		byID:   make(map[string]*Client),
		byUser: make(map[string]map[*Client]bool),
		byRoom: make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Add(client *Client) {
	h.mu.Lock()
	h.byID[client.ID] = client
	if h.byUser[client.UserID] == nil {
		h.byUser[client.UserID] = make(map[*Client]bool)
	}
	h.byUser[client.UserID][client] = true
	count := len(h.byUser[client.UserID])
	h.mu.Unlock()

	log.Info().
		Str("userId", client.UserID).
		Str("clientId", client.ID).
		Int("clientCount", count).
		Msg("client attached")
}

func (h *Hub) Remove(client *Client) {
	h.mu.Lock()
	delete(h.byID, client.ID)
	if clients, ok := h.byUser[client.UserID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.byUser, client.UserID)
		}
	}
	h.removeFromRoomLocked(client)
	h.mu.Unlock()

	client.cancelEviction()
	client.close()

	log.Info().
		Str("userId", client.UserID).
		Str("clientId", client.ID).
		Msg("client detached")
}

// SetRoom moves the client between room indexes; roomID "" leaves only.
func (h *Hub) SetRoom(client *Client, roomID string) {
	h.mu.Lock()
	h.removeFromRoomLocked(client)
	if roomID != "" {
		if h.byRoom[roomID] == nil {
			h.byRoom[roomID] = make(map[*Client]bool)
		}
		h.byRoom[roomID][client] = true
	}
	h.mu.Unlock()

	client.setRoom(roomID)
}

func (h *Hub) removeFromRoomLocked(client *Client) {
	if room := client.Room(); room != "" {
		if clients, ok := h.byRoom[room]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.byRoom, room)
			}
		}
	}
}

// Get returns the locally attached client with the given id, or nil.
func (h *Hub) Get(clientID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.byID[clientID]
}

// ClientsForUser snapshots the user's locally attached connections.
func (h *Hub) ClientsForUser(userID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*Client, 0, len(h.byUser[userID]))
	for c := range h.byUser[userID] {
		clients = append(clients, c)
	}
	return clients
}

// BroadcastRoom sends the event to every locally attached member of the
// room. exclude skips one client (the mutation's own trigger path).
func (h *Hub) BroadcastRoom(roomID string, event Event, exclude *Client) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.byRoom[roomID]))
	for c := range h.byRoom[roomID] {
		if c != exclude {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.Send(c, event)
	}
}

// SendUser delivers the event to all local connections of one user.
func (h *Hub) SendUser(userID string, event Event) {
	for _, c := range h.ClientsForUser(userID) {
		h.Send(c, event)
	}
}

// Send never blocks: events are dropped when the client buffer is full.
func (h *Hub) Send(client *Client, event Event) {
	select {
	case client.Events <- event:
	default:
		log.Warn().
			Str("userId", client.UserID).
			Str("event", event.Type).
			Msg("client event buffer full, dropping event")
	}
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.byUser {
		total += len(clients)
	}
	return total
}
