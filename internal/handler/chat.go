package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/openclaw/chat-gateway-go/internal/errors"
	"github.com/openclaw/chat-gateway-go/internal/gateway"
	"github.com/openclaw/chat-gateway-go/internal/middleware"
	"github.com/openclaw/chat-gateway-go/internal/model"
)

// ChatHandler exposes the connection actions over plain POST routes.
// Each request names the event-stream attachment it acts for; results
// that matter to other participants arrive over the event stream, the
// HTTP response only acknowledges the action.
type ChatHandler struct {
	gateway *gateway.Gateway
}

func NewChatHandler(gw *gateway.Gateway) *ChatHandler {
	return &ChatHandler{gateway: gw}
}

// client resolves the acting attachment and checks it belongs to the
// authenticated caller.
func (h *ChatHandler) client(r *http.Request, clientID string) (*gateway.Client, error) {
	if clientID == "" {
		return nil, apperrors.MissingRequired("clientId")
	}

	c := h.gateway.Client(clientID)
	if c == nil {
		return nil, apperrors.NotFound("Connection")
	}

	identity := middleware.GetIdentity(r.Context())
	if identity == nil || identity.UserID != c.UserID {
		return nil, apperrors.Forbidden("Connection belongs to another user")
	}
	return c, nil
}

type joinRoomRequest struct {
	ClientID string `json:"clientId"`
	RoomID   string `json:"roomId"`
}

func (h *ChatHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	c, err := h.client(r, req.ClientID)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.gateway.JoinRoom(r.Context(), c, req.RoomID)
	if err != nil {
		h.gateway.Notify(c, gateway.EventJoinRoomError, map[string]string{
			"roomId":  req.RoomID,
			"message": errorMessage(err),
		})
		writeError(w, err)
		return
	}

	h.gateway.Notify(c, gateway.EventJoinRoomSuccess, result)
	writeJSON(w, http.StatusOK, result)
}

func (h *ChatHandler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	c, err := h.client(r, req.ClientID)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.gateway.LeaveRoom(r.Context(), c, req.RoomID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type sendMessageRequest struct {
	ClientID string `json:"clientId"`
	gateway.SendMessageParams
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	c, err := h.client(r, req.ClientID)
	if err != nil {
		writeError(w, err)
		return
	}

	msg, err := h.gateway.SendMessage(r.Context(), c, req.SendMessageParams)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

type fetchPreviousRequest struct {
	ClientID string `json:"clientId"`
	gateway.FetchParams
}

// RequestPrevious queues a history lookup; the page arrives over the
// event stream as previousMessagesLoaded.
func (h *ChatHandler) RequestPrevious(w http.ResponseWriter, r *http.Request) {
	var req fetchPreviousRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	c, err := h.client(r, req.ClientID)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.gateway.RequestPrevious(r.Context(), c, req.FetchParams); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
}

// History serves a page synchronously for clients that prefer a plain
// request/response exchange.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	clientID := r.URL.Query().Get("clientId")

	c, err := h.client(r, clientID)
	if err != nil {
		writeError(w, err)
		return
	}

	params := gateway.FetchParams{RoomID: roomID}
	if before := r.URL.Query().Get("before"); before != "" {
		params.Before, _ = strconv.ParseInt(before, 10, 64)
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		params.Limit, _ = strconv.Atoi(limit)
	}

	entry, err := h.gateway.FetchPrevious(r.Context(), c, params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type markReadRequest struct {
	ClientID   string   `json:"clientId"`
	RoomID     string   `json:"roomId"`
	MessageIDs []string `json:"messageIds"`
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	c, err := h.client(r, req.ClientID)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.gateway.MarkRead(r.Context(), c, req.RoomID, req.MessageIDs); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type reactRequest struct {
	ClientID  string `json:"clientId"`
	MessageID string `json:"messageId"`
	Reaction  string `json:"reaction"`
	Type      string `json:"type"`
}

func (h *ChatHandler) React(w http.ResponseWriter, r *http.Request) {
	var req reactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	c, err := h.client(r, req.ClientID)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.gateway.React(r.Context(), c, req.MessageID, req.Reaction, model.ReactionOp(req.Type)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type forceLoginRequest struct {
	ClientID string `json:"clientId"`
	Token    string `json:"token"`
}

func (h *ChatHandler) ForceLogin(w http.ResponseWriter, r *http.Request) {
	var req forceLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	c, err := h.client(r, req.ClientID)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.gateway.ForceLogin(r.Context(), c, req.Token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func errorMessage(err error) string {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Message
	}
	return "Internal error"
}
