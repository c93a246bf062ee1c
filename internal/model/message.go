package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReactionMap maps a reaction key to the set of user ids that added it.
// Stored as JSONB.
type ReactionMap map[string][]string

func (m ReactionMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *ReactionMap) Scan(src any) error {
	if src == nil {
		*m = ReactionMap{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("reactions: unexpected type %T", src)
	}
	return json.Unmarshal(b, m)
}

// Has reports whether userID already reacted with key.
func (m ReactionMap) Has(key, userID string) bool {
	for _, id := range m[key] {
		if id == userID {
			return true
		}
	}
	return false
}

// Apply mutates the map for one add/remove operation and reports whether
// anything changed.
func (m ReactionMap) Apply(key, userID string, op ReactionOp) bool {
	switch op {
	case ReactionOpAdd:
		if m.Has(key, userID) {
			return false
		}
		m[key] = append(m[key], userID)
		return true
	case ReactionOpRemove:
		users := m[key]
		for i, id := range users {
			if id == userID {
				users = append(users[:i], users[i+1:]...)
				if len(users) == 0 {
					delete(m, key)
				} else {
					m[key] = users
				}
				return true
			}
		}
	}
	return false
}

// StringList is a JSONB-backed string slice (message readers).
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = StringList{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("string list: unexpected type %T", src)
	}
	return json.Unmarshal(b, l)
}

func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

// ChatMessage is immutable after persistence except reactions and readers.
type ChatMessage struct {
	ID         string           `db:"id" json:"id"`
	RoomID     string           `db:"room_id" json:"roomId"`
	SenderID   *string          `db:"sender_id" json:"senderId,omitempty"`
	SenderName *string          `db:"sender_name" json:"senderName,omitempty"`
	Type       MessageType      `db:"type" json:"type"`
	Content    string           `db:"content" json:"content"`
	FileID     *string          `db:"file_id" json:"fileId,omitempty"`
	Reactions  ReactionMap      `db:"reactions" json:"reactions"`
	Readers    StringList       `db:"readers" json:"readers"`
	Metadata   *json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt  time.Time        `db:"created_at" json:"createdAt"`
}

// Timestamp is the wire-format message timestamp (unix milliseconds),
// also used as the pagination cursor.
func (m *ChatMessage) Timestamp() int64 {
	return m.CreatedAt.UnixMilli()
}

// ToEventData returns the JSON payload broadcast to room members.
func (m *ChatMessage) ToEventData() json.RawMessage {
	data, _ := json.Marshal(map[string]any{
		"id":         m.ID,
		"roomId":     m.RoomID,
		"senderId":   m.SenderID,
		"senderName": m.SenderName,
		"type":       m.Type,
		"content":    m.Content,
		"fileId":     m.FileID,
		"reactions":  m.Reactions,
		"readers":    m.Readers,
		"metadata":   m.Metadata,
		"timestamp":  m.Timestamp(),
	})
	return data
}

type CreateMessageParams struct {
	RoomID     string
	SenderID   *string
	SenderName *string
	Type       MessageType
	Content    string
	FileID     *string
	Metadata   *json.RawMessage
}
