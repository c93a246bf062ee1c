package model

import "time"

// SessionRecord is the single authoritative active session per user,
// held in the shared key-value store. A new login with a different
// session id supersedes the old record.
type SessionRecord struct {
	UserID         string    `json:"userId"`
	SessionID      string    `json:"sessionId"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// StreamingSession is the externally visible accumulator for an
// in-flight AI generation, readable from any gateway instance.
type StreamingSession struct {
	MessageID          string    `json:"messageId"`
	RoomID             string    `json:"roomId"`
	UserID             string    `json:"userId"`
	AIType             string    `json:"aiType"`
	AccumulatedContent string    `json:"accumulatedContent"`
	LastUpdateAt       time.Time `json:"lastUpdateAt"`
}
