package gateway

import "encoding/json"

// Event is one outbound connection-level event.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Outbound event names.
const (
	EventMessage                = "message"
	EventJoinRoomSuccess        = "joinRoomSuccess"
	EventJoinRoomError          = "joinRoomError"
	EventMessageLoadStart       = "messageLoadStart"
	EventPreviousMessagesLoaded = "previousMessagesLoaded"
	EventMessagesRead           = "messagesRead"
	EventMessageReactionUpdate  = "messageReactionUpdate"
	EventDuplicateLogin         = "duplicate_login"
	EventSessionEnded           = "session_ended"
	EventError                  = "error"
)

// NewEvent marshals payload into an Event. Marshal failures cannot
// happen for the payload types used here.
func NewEvent(eventType string, payload any) Event {
	data, _ := json.Marshal(payload)
	return Event{Type: eventType, Data: data}
}

type messagesReadPayload struct {
	RoomID     string   `json:"roomId"`
	UserID     string   `json:"userId"`
	MessageIDs []string `json:"messageIds"`
}

type reactionUpdatePayload struct {
	MessageID string              `json:"messageId"`
	Reactions map[string][]string `json:"reactions"`
}

type sessionEndedPayload struct {
	Reason string `json:"reason"`
}

type duplicateLoginPayload struct {
	UserID       string `json:"userId"`
	NewSessionID string `json:"newSessionId"`
	Device       string `json:"device"`
	Timestamp    int64  `json:"timestamp"`
}

type previousMessagesRequest struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
	Before int64  `json:"before"`
	Limit  int    `json:"limit"`
}
