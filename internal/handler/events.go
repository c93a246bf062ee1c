package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/openclaw/chat-gateway-go/internal/errors"
	"github.com/openclaw/chat-gateway-go/internal/gateway"
	"github.com/openclaw/chat-gateway-go/internal/httputil"
	"github.com/openclaw/chat-gateway-go/internal/model"
)

const heartbeatInterval = 30 * time.Second

// EventsHandler serves the long-lived event stream. The connection
// authenticates itself so that session registration and the
// duplicate-login protocol run exactly once per attachment.
type EventsHandler struct {
	gateway *gateway.Gateway
}

func NewEventsHandler(gw *gateway.Gateway) *EventsHandler {
	return &EventsHandler{gateway: gw}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)
	sessionID := r.URL.Query().Get("sessionId")
	device := r.URL.Query().Get("device")

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, apperrors.Internal("Streaming not supported"))
		return
	}

	client, err := h.gateway.Authenticate(r.Context(), token, sessionID, device)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()
	defer h.gateway.Disconnect(ctx, client, model.DisconnectReasonClient)

	log.Info().
		Str("clientId", client.ID).
		Str("userId", client.UserID).
		Msg("event stream established")

	h.sendEvent(w, flusher, gateway.NewEvent("connected", map[string]string{
		"clientId":  client.ID,
		"userId":    client.UserID,
		"sessionId": client.SessionID,
	}))

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().
				Str("clientId", client.ID).
				Msg("event stream closed by client")
			return

		case <-client.Done:
			log.Info().
				Str("clientId", client.ID).
				Msg("event stream closed by gateway")
			return

		case event := <-client.Events:
			if err := h.sendEvent(w, flusher, event); err != nil {
				log.Error().Err(err).Str("clientId", client.ID).Msg("failed to send event")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				log.Debug().
					Str("clientId", client.ID).
					Msg("heartbeat failed, closing connection")
				return
			}
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, event gateway.Event) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", event.Data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}
