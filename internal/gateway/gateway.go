package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/openclaw/chat-gateway-go/internal/ai"
	"github.com/openclaw/chat-gateway-go/internal/auth"
	"github.com/openclaw/chat-gateway-go/internal/bus"
	"github.com/openclaw/chat-gateway-go/internal/cache"
	"github.com/openclaw/chat-gateway-go/internal/config"
	apperrors "github.com/openclaw/chat-gateway-go/internal/errors"
	"github.com/openclaw/chat-gateway-go/internal/model"
	"github.com/openclaw/chat-gateway-go/internal/repository"
	"github.com/openclaw/chat-gateway-go/internal/session"
	"github.com/openclaw/chat-gateway-go/internal/streaming"
)

const autoReplyContent = "Automated reply: thanks for keeping the conversation going!"

// Gateway translates connection-level actions into calls against the
// event bus, the shared stores, and the durable repositories, and
// re-emits bus records to locally attached connections. Multiple
// gateway processes behave as one logical service: everything that must
// be visible across instances goes through the bus or the shared
// stores.
type Gateway struct {
	hub          *Hub
	bus          bus.Bus
	history      *cache.History
	arbiter      *session.Arbiter
	streams      *streaming.Store
	orchestrator *streaming.Orchestrator
	messages     repository.MessageRepository
	rooms        repository.RoomRepository
	files        repository.FileRepository
	verifier     *auth.Verifier

	instanceID         string
	aiNames            []string
	grace              time.Duration
	loadTimeout        time.Duration
	autoReplyThreshold int

	runCtx context.Context

	counterMu sync.Mutex
	counters  map[string]int
}

func New(
	cfg *config.Config,
	hub *Hub,
	b bus.Bus,
	history *cache.History,
	arbiter *session.Arbiter,
	streams *streaming.Store,
	registry *ai.Registry,
	messages repository.MessageRepository,
	rooms repository.RoomRepository,
	files repository.FileRepository,
	verifier *auth.Verifier,
) *Gateway {
	g := &Gateway{
		hub:                hub,
		bus:                b,
		history:            history,
		arbiter:            arbiter,
		streams:            streams,
		messages:           messages,
		rooms:              rooms,
		files:              files,
		verifier:           verifier,
		instanceID:         cfg.InstanceID,
		aiNames:            cfg.AINames,
		grace:              cfg.LoginGrace(),
		loadTimeout:        cfg.LoadTimeout(),
		autoReplyThreshold: cfg.AutoReplyThreshold,
		runCtx:             context.Background(),
		counters:           make(map[string]int),
	}
	g.orchestrator = streaming.NewOrchestrator(streams, registry, messages, history, g.publishRoomEvent)
	return g
}

// Run drives the bus consumer loops until ctx is cancelled. The
// chat_messages and message_responses groups are per instance so every
// gateway sees every record; message_requests uses the shared group so
// exactly one instance serves each lookup.
func (g *Gateway) Run(ctx context.Context) error {
	g.runCtx = ctx

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return g.bus.Consume(ctx, bus.StreamChatMessages, "gateway:"+g.instanceID, g.instanceID, g.handleChatRecord)
	})
	eg.Go(func() error {
		return g.bus.Consume(ctx, bus.StreamMessageRequests, bus.GatewaysGroup, g.instanceID, g.handleRequestRecord)
	})
	eg.Go(func() error {
		return g.bus.Consume(ctx, bus.StreamMessageResponses, "responses:"+g.instanceID, g.instanceID, g.handleResponseRecord)
	})
	return eg.Wait()
}

// Client resolves a locally attached connection by id.
func (g *Gateway) Client(clientID string) *Client {
	return g.hub.Get(clientID)
}

// Notify sends a connection-local event that does not need bus fanout.
func (g *Gateway) Notify(c *Client, eventType string, payload any) {
	g.hub.Send(c, NewEvent(eventType, payload))
}

// Authenticate validates the presented token and session pair and
// attaches a new client. If another session was active for the user,
// the duplicate-login protocol starts asynchronously; acceptance of the
// new connection does not wait for it.
func (g *Gateway) Authenticate(ctx context.Context, token, sessionID, device string) (*Client, error) {
	identity, err := g.verifier.VerifyToken(token)
	if err != nil {
		return nil, apperrors.InvalidToken("Invalid or expired token").WithCause(err)
	}
	if sessionID == "" {
		return nil, apperrors.MissingRequired("sessionId")
	}

	prev, err := g.arbiter.Get(ctx, identity.UserID)
	if err != nil {
		return nil, apperrors.Upstream("session store", err)
	}

	if err := g.arbiter.Register(ctx, identity.UserID, sessionID); err != nil {
		return nil, apperrors.Upstream("session store", err)
	}

	client := newClient(identity.UserID, identity.Name, sessionID)
	g.hub.Add(client)

	if prev != nil && prev.SessionID != sessionID {
		notice := duplicateLoginPayload{
			UserID:       identity.UserID,
			NewSessionID: sessionID,
			Device:       device,
			Timestamp:    time.Now().UnixMilli(),
		}
		if err := g.publishUserEvent(ctx, EventDuplicateLogin, notice); err != nil {
			log.Error().Err(err).Str("userId", identity.UserID).Msg("failed to publish duplicate login notice")
		}
	}

	return client, nil
}

// JoinRoomResult is the joinRoomSuccess payload.
type JoinRoomResult struct {
	RoomID          string                   `json:"roomId"`
	Participants    []model.Participant      `json:"participants"`
	Messages        []model.ChatMessage      `json:"messages"`
	HasMore         bool                     `json:"hasMore"`
	OldestTimestamp int64                    `json:"oldestTimestamp"`
	ActiveStreams   []model.StreamingSession `json:"activeStreams"`
}

// JoinRoom moves the client into roomID. Re-joining the current room is
// idempotent: the success payload is rebuilt but no membership changes
// and no system message is emitted.
func (g *Gateway) JoinRoom(ctx context.Context, c *Client, roomID string) (*JoinRoomResult, error) {
	if roomID == "" {
		return nil, apperrors.MissingRequired("roomId")
	}
	if err := g.checkSession(ctx, c); err != nil {
		return nil, err
	}

	room, err := g.rooms.FindByID(ctx, roomID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if room == nil {
		return nil, apperrors.NotFound("Room")
	}

	if current := c.Room(); current != roomID {
		if current != "" {
			g.departRoom(ctx, c, current)
		}

		if err := g.rooms.AddParticipant(ctx, roomID, c.UserID, c.UserName); err != nil {
			return nil, apperrors.Forbidden("Could not join room").WithCause(err)
		}
		g.hub.SetRoom(c, roomID)

		// Warm the cached window before the join announcement is
		// appended to it, so a cold cache does not start from just the
		// announcement.
		if _, err := g.latestWindow(ctx, roomID); err != nil {
			return nil, err
		}
		g.systemMessage(ctx, roomID, c.UserName+" joined the room")
	}

	participants, err := g.rooms.Participants(ctx, roomID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	entry, err := g.latestWindow(ctx, roomID)
	if err != nil {
		return nil, err
	}

	activeStreams, err := g.streams.ListByRoom(ctx, roomID)
	if err != nil {
		log.Warn().Err(err).Str("roomId", roomID).Msg("failed to list active streams")
	}

	return &JoinRoomResult{
		RoomID:          roomID,
		Participants:    participants,
		Messages:        entry.Messages,
		HasMore:         entry.HasMore,
		OldestTimestamp: entry.OldestTimestamp,
		ActiveStreams:   activeStreams,
	}, nil
}

// LeaveRoom is a no-op when the client is not currently in roomID.
func (g *Gateway) LeaveRoom(ctx context.Context, c *Client, roomID string) error {
	if c.Room() != roomID {
		return nil
	}
	if err := g.checkSession(ctx, c); err != nil {
		return err
	}

	g.departRoom(ctx, c, roomID)
	g.hub.SetRoom(c, "")
	return nil
}

type SendMessageParams struct {
	RoomID  string            `json:"room"`
	Type    model.MessageType `json:"type"`
	Content string            `json:"content"`
	FileID  string            `json:"fileData,omitempty"`
}

// SendMessage validates, persists, and fans out one message, then scans
// it for AI mentions.
func (g *Gateway) SendMessage(ctx context.Context, c *Client, params SendMessageParams) (*model.ChatMessage, error) {
	if c.Room() != params.RoomID {
		return nil, apperrors.Forbidden("Not a member of this room")
	}
	if err := g.checkSession(ctx, c); err != nil {
		return nil, err
	}

	var fileID *string
	switch params.Type {
	case model.MessageTypeText:
		if strings.TrimSpace(params.Content) == "" {
			return nil, apperrors.ValidationError("Message content must not be empty")
		}
	case model.MessageTypeFile:
		if params.FileID == "" {
			return nil, apperrors.MissingRequired("fileData")
		}
		ref, err := g.files.FindByIDAndOwner(ctx, params.FileID, c.UserID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		if ref == nil {
			return nil, apperrors.NotFound("File")
		}
		fileID = &ref.ID
	default:
		return nil, apperrors.InvalidInput("type", "must be text or file")
	}

	userID := c.UserID
	userName := c.UserName
	msg, err := g.persistAndFanout(ctx, model.CreateMessageParams{
		RoomID:     params.RoomID,
		SenderID:   &userID,
		SenderName: &userName,
		Type:       params.Type,
		Content:    params.Content,
		FileID:     fileID,
	})
	if err != nil {
		return nil, err
	}

	if params.Type == model.MessageTypeText {
		mentioned, query := ai.ExtractMentions(params.Content, g.aiNames)
		for _, name := range mentioned {
			g.orchestrator.Generate(g.runCtx, params.RoomID, c.UserID, name, query)
		}
	}

	g.bumpCounter(ctx, params.RoomID)

	return msg, nil
}

type FetchParams struct {
	RoomID string `json:"roomId"`
	Before int64  `json:"before,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// FetchPrevious serves a history page. A before-cursor always bypasses
// the cache and hits the durable store; the latest window is
// cache-aside. The query runs under a cancellable timeout so an
// abandoned query is aborted rather than merely ignored.
func (g *Gateway) FetchPrevious(ctx context.Context, c *Client, params FetchParams) (*cache.Entry, error) {
	if c.Room() != params.RoomID {
		return nil, apperrors.Forbidden("Not a member of this room")
	}
	if err := g.checkSession(ctx, c); err != nil {
		return nil, err
	}

	g.hub.Send(c, NewEvent(EventMessageLoadStart, map[string]string{"roomId": params.RoomID}))

	limit := params.Limit
	if limit <= 0 || limit > g.history.Window() {
		limit = g.history.Window()
	}

	qctx, cancel := context.WithTimeout(ctx, g.loadTimeout)
	defer cancel()

	if params.Before > 0 {
		rows, err := g.messages.FindByRoomBefore(qctx, params.RoomID, time.UnixMilli(params.Before), limit+1)
		if err != nil {
			return nil, loadError(err)
		}
		return cache.EntryFromRows(rows, limit), nil
	}

	if entry, ok := g.history.Latest(ctx, params.RoomID); ok {
		return entry, nil
	}

	rows, err := g.messages.FindLatestByRoom(qctx, params.RoomID, g.history.Window())
	if err != nil {
		return nil, loadError(err)
	}
	entry := cache.LatestEntryFromRows(rows, g.history.Window())
	g.history.StoreLatest(ctx, params.RoomID, entry)
	return entry, nil
}

// RequestPrevious is the decoupled variant of FetchPrevious: the lookup
// is published to the request stream, served by whichever instance
// picks it up, and the result is routed back over the response stream
// to wherever the user is attached.
func (g *Gateway) RequestPrevious(ctx context.Context, c *Client, params FetchParams) error {
	if c.Room() != params.RoomID {
		return apperrors.Forbidden("Not a member of this room")
	}
	if err := g.checkSession(ctx, c); err != nil {
		return err
	}

	g.hub.Send(c, NewEvent(EventMessageLoadStart, map[string]string{"roomId": params.RoomID}))

	payload, _ := json.Marshal(previousMessagesRequest{
		RoomID: params.RoomID,
		UserID: c.UserID,
		Before: params.Before,
		Limit:  params.Limit,
	})
	err := g.bus.Publish(ctx, bus.StreamMessageRequests, bus.Record{
		RoomID:  params.RoomID,
		Type:    "fetchPreviousMessages",
		Origin:  g.instanceID,
		Payload: payload,
	})
	if err != nil {
		return apperrors.Upstream("event bus", err)
	}
	return nil
}

// MarkRead idempotently appends the caller to each message's readers
// set and broadcasts a read receipt to the room.
func (g *Gateway) MarkRead(ctx context.Context, c *Client, roomID string, messageIDs []string) error {
	if c.Room() != roomID {
		return apperrors.Forbidden("Not a member of this room")
	}
	if err := g.checkSession(ctx, c); err != nil {
		return err
	}
	if len(messageIDs) == 0 {
		return apperrors.MissingRequired("messageIds")
	}

	if err := g.messages.AddReaders(ctx, messageIDs, c.UserID); err != nil {
		return apperrors.Database(err)
	}

	return g.publishRoomEvent(ctx, roomID, EventMessagesRead, messagesReadPayload{
		RoomID:     roomID,
		UserID:     c.UserID,
		MessageIDs: messageIDs,
	})
}

// React applies one reaction mutation and broadcasts the updated map.
func (g *Gateway) React(ctx context.Context, c *Client, messageID, reaction string, op model.ReactionOp) error {
	if err := g.checkSession(ctx, c); err != nil {
		return err
	}
	if reaction == "" {
		return apperrors.MissingRequired("reaction")
	}
	if op != model.ReactionOpAdd && op != model.ReactionOpRemove {
		return apperrors.InvalidInput("type", "must be add or remove")
	}

	msg, err := g.messages.FindByID(ctx, messageID)
	if err != nil {
		return apperrors.Database(err)
	}
	if msg == nil {
		return apperrors.NotFound("Message")
	}

	reactions, err := g.messages.React(ctx, messageID, c.UserID, reaction, op)
	if err != nil {
		return apperrors.Database(err)
	}

	return g.publishRoomEvent(ctx, msg.RoomID, EventMessageReactionUpdate, reactionUpdatePayload{
		MessageID: messageID,
		Reactions: reactions,
	})
}

// ForceLogin lets a client explicitly reclaim its session: the token
// must still identify the connection's own user.
func (g *Gateway) ForceLogin(ctx context.Context, c *Client, token string) error {
	identity, err := g.verifier.VerifyToken(token)
	if err != nil {
		return apperrors.InvalidToken("Invalid or expired token").WithCause(err)
	}
	if identity.UserID != c.UserID {
		return apperrors.Forbidden("Token does not match connection user")
	}

	g.hub.Send(c, NewEvent(EventSessionEnded, sessionEndedPayload{Reason: string(model.DisconnectReasonForceLogout)}))
	g.Disconnect(ctx, c, model.DisconnectReasonForceLogout)
	return nil
}

// Disconnect detaches the client and cleans up its ephemeral state.
// Duplicate-login evictions and explicit leaves do not emit an implicit
// room leave: the takeover or the leave itself already produced the
// system message.
func (g *Gateway) Disconnect(ctx context.Context, c *Client, reason model.DisconnectReason) {
	room := c.Room()
	g.hub.Remove(c)

	if removed, err := g.streams.DeleteByUser(ctx, c.UserID); err != nil {
		log.Warn().Err(err).Str("userId", c.UserID).Msg("failed to clean up streaming sessions")
	} else if removed > 0 {
		log.Info().Str("userId", c.UserID).Int("removed", removed).Msg("cleaned up streaming sessions")
	}

	implicitLeave := reason != model.DisconnectReasonLeave && reason != model.DisconnectReasonDuplicateLogin
	if implicitLeave && room != "" {
		g.departRoom(ctx, c, room)
	}

	log.Info().
		Str("userId", c.UserID).
		Str("clientId", c.ID).
		Str("reason", string(reason)).
		Msg("client disconnected")
}

// departRoom removes membership and announces the departure. Failures
// are logged: departure must never block the path it is attached to.
func (g *Gateway) departRoom(ctx context.Context, c *Client, roomID string) {
	if err := g.rooms.RemoveParticipant(ctx, roomID, c.UserID); err != nil {
		log.Error().Err(err).Str("roomId", roomID).Str("userId", c.UserID).Msg("failed to remove participant")
	}
	g.systemMessage(ctx, roomID, c.UserName+" left the room")
	g.clearCounterIfIdle(roomID)
}

func (g *Gateway) latestWindow(ctx context.Context, roomID string) (*cache.Entry, error) {
	if entry, ok := g.history.Latest(ctx, roomID); ok {
		return entry, nil
	}

	qctx, cancel := context.WithTimeout(ctx, g.loadTimeout)
	defer cancel()

	rows, err := g.messages.FindLatestByRoom(qctx, roomID, g.history.Window())
	if err != nil {
		return nil, loadError(err)
	}
	entry := cache.LatestEntryFromRows(rows, g.history.Window())
	g.history.StoreLatest(ctx, roomID, entry)
	return entry, nil
}

// persistAndFanout writes the message durably, publishes it to the bus
// for cross-instance fanout, and writes it through to the cache window.
func (g *Gateway) persistAndFanout(ctx context.Context, params model.CreateMessageParams) (*model.ChatMessage, error) {
	msg, err := g.messages.Create(ctx, params)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	if err := g.bus.Publish(ctx, bus.StreamChatMessages, bus.Record{
		RoomID:  msg.RoomID,
		Type:    EventMessage,
		Origin:  g.instanceID,
		Payload: msg.ToEventData(),
	}); err != nil {
		log.Error().Err(err).Str("messageId", msg.ID).Msg("failed to publish message to bus")
	}

	g.history.Append(ctx, msg.RoomID, msg)

	return msg, nil
}

func (g *Gateway) systemMessage(ctx context.Context, roomID, content string) {
	if _, err := g.persistAndFanout(ctx, model.CreateMessageParams{
		RoomID:  roomID,
		Type:    model.MessageTypeSystem,
		Content: content,
	}); err != nil {
		log.Error().Err(err).Str("roomId", roomID).Msg("failed to emit system message")
	}
}

// checkSession validates freshness against the arbiter and refreshes
// the activity timestamp.
func (g *Gateway) checkSession(ctx context.Context, c *Client) error {
	result, err := g.arbiter.Validate(ctx, c.UserID, c.SessionID)
	if err != nil {
		return apperrors.Upstream("session store", err)
	}
	if !result.IsValid {
		return apperrors.SessionExpired(result.Message)
	}

	if err := g.arbiter.Touch(ctx, c.UserID); err != nil {
		log.Warn().Err(err).Str("userId", c.UserID).Msg("failed to refresh session activity")
	}
	return nil
}

func (g *Gateway) publishRoomEvent(ctx context.Context, roomID, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := g.bus.Publish(ctx, bus.StreamChatMessages, bus.Record{
		RoomID:  roomID,
		Type:    eventType,
		Origin:  g.instanceID,
		Payload: data,
	}); err != nil {
		return apperrors.Upstream("event bus", err)
	}
	return nil
}

// publishUserEvent publishes a user-targeted control record; every
// instance inspects it for locally attached connections of the user.
func (g *Gateway) publishUserEvent(ctx context.Context, eventType string, payload any) error {
	return g.publishRoomEvent(ctx, "", eventType, payload)
}

// handleChatRecord re-emits one fanout record to locally attached
// connections.
func (g *Gateway) handleChatRecord(ctx context.Context, rec bus.Record) error {
	if rec.Type == EventDuplicateLogin {
		return g.handleDuplicateLogin(rec)
	}
	if rec.RoomID == "" {
		return nil
	}
	g.hub.BroadcastRoom(rec.RoomID, Event{Type: rec.Type, Data: rec.Payload}, nil)
	return nil
}

// handleDuplicateLogin warns every local connection holding a
// superseded session and arms its grace-period eviction timer. The old
// connection escapes eviction only by disconnecting first.
func (g *Gateway) handleDuplicateLogin(rec bus.Record) error {
	var notice duplicateLoginPayload
	if err := json.Unmarshal(rec.Payload, &notice); err != nil {
		return err
	}

	for _, c := range g.hub.ClientsForUser(notice.UserID) {
		if c.SessionID == notice.NewSessionID {
			continue
		}
		g.hub.Send(c, Event{Type: EventDuplicateLogin, Data: rec.Payload})

		evicted := c
		evicted.scheduleEviction(g.grace, func() {
			g.hub.Send(evicted, NewEvent(EventSessionEnded, sessionEndedPayload{
				Reason: string(model.DisconnectReasonDuplicateLogin),
			}))
			g.Disconnect(context.Background(), evicted, model.DisconnectReasonDuplicateLogin)
		})

		log.Info().
			Str("userId", notice.UserID).
			Str("clientId", c.ID).
			Dur("grace", g.grace).
			Msg("duplicate login detected, eviction scheduled")
	}
	return nil
}

// handleRequestRecord serves one decoupled history lookup and routes
// the result back over the response stream.
func (g *Gateway) handleRequestRecord(ctx context.Context, rec bus.Record) error {
	var req previousMessagesRequest
	if err := json.Unmarshal(rec.Payload, &req); err != nil {
		return err
	}

	limit := req.Limit
	if limit <= 0 || limit > g.history.Window() {
		limit = g.history.Window()
	}

	entry, ok := g.history.Page(ctx, req.RoomID, req.Before)
	if !ok {
		qctx, cancel := context.WithTimeout(ctx, g.loadTimeout)
		defer cancel()

		var err error
		entry, err = g.queryPage(qctx, req.RoomID, req.Before, limit)
		if err != nil {
			return g.routeToUser(ctx, req.RoomID, req.UserID, EventError, map[string]string{
				"type":    "LOAD_ERROR",
				"message": "Failed to load previous messages",
			})
		}
		g.history.StorePage(ctx, req.RoomID, req.Before, entry)
	}

	return g.routeToUser(ctx, req.RoomID, req.UserID, EventPreviousMessagesLoaded, entry)
}

func (g *Gateway) queryPage(ctx context.Context, roomID string, before int64, limit int) (*cache.Entry, error) {
	if before > 0 {
		rows, err := g.messages.FindByRoomBefore(ctx, roomID, time.UnixMilli(before), limit+1)
		if err != nil {
			return nil, err
		}
		return cache.EntryFromRows(rows, limit), nil
	}

	rows, err := g.messages.FindLatestByRoom(ctx, roomID, g.history.Window())
	if err != nil {
		return nil, err
	}
	return cache.LatestEntryFromRows(rows, g.history.Window()), nil
}

type routedEvent struct {
	UserID string          `json:"userId"`
	Data   json.RawMessage `json:"data"`
}

func (g *Gateway) routeToUser(ctx context.Context, roomID, userID, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	routed, _ := json.Marshal(routedEvent{UserID: userID, Data: data})
	return g.bus.Publish(ctx, bus.StreamMessageResponses, bus.Record{
		RoomID:  roomID,
		Type:    eventType,
		Origin:  g.instanceID,
		Payload: routed,
	})
}

// handleResponseRecord delivers a routed lookup result to the target
// user if attached here; other instances' consumers do the same.
func (g *Gateway) handleResponseRecord(ctx context.Context, rec bus.Record) error {
	var routed routedEvent
	if err := json.Unmarshal(rec.Payload, &routed); err != nil {
		return err
	}
	g.hub.SendUser(routed.UserID, Event{Type: rec.Type, Data: routed.Data})
	return nil
}

// bumpCounter drives the optional scripted auto-reply. The counter is
// process-local state, a documented limitation of this demo feature.
func (g *Gateway) bumpCounter(ctx context.Context, roomID string) {
	if g.autoReplyThreshold <= 0 {
		return
	}

	g.counterMu.Lock()
	g.counters[roomID]++
	triggered := g.counters[roomID]%g.autoReplyThreshold == 0
	g.counterMu.Unlock()

	if triggered {
		g.systemMessage(ctx, roomID, autoReplyContent)
	}
}

func (g *Gateway) clearCounterIfIdle(roomID string) {
	g.counterMu.Lock()
	defer g.counterMu.Unlock()
	delete(g.counters, roomID)
}

func loadError(err error) *apperrors.AppError {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.LoadTimeout()
	}
	return apperrors.Database(err)
}
