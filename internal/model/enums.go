package model

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeFile   MessageType = "file"
	MessageTypeSystem MessageType = "system"
	MessageTypeAI     MessageType = "ai"
)

type ReactionOp string

const (
	ReactionOpAdd    ReactionOp = "add"
	ReactionOpRemove ReactionOp = "remove"
)

// DisconnectReason classifies why a connection went away. Duplicate-login
// evictions must not emit an implicit room leave: the takeover already
// produced the system message.
type DisconnectReason string

const (
	DisconnectReasonClient         DisconnectReason = "client_disconnect"
	DisconnectReasonLeave          DisconnectReason = "client_leave"
	DisconnectReasonDuplicateLogin DisconnectReason = "duplicate_login"
	DisconnectReasonForceLogout    DisconnectReason = "force_logout"
)
