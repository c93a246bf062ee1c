package bus

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordFromValues(t *testing.T) {
	t.Run("decodes a full record", func(t *testing.T) {
		rec := recordFromValues("1700000000000-0", map[string]any{
			"roomId":  "room-1",
			"type":    "message",
			"origin":  "inst-1",
			"payload": `{"id":"m1"}`,
		})

		assert.Equal(t, "1700000000000-0", rec.ID)
		assert.Equal(t, "room-1", rec.RoomID)
		assert.Equal(t, "message", rec.Type)
		assert.Equal(t, "inst-1", rec.Origin)
		assert.Equal(t, json.RawMessage(`{"id":"m1"}`), rec.Payload)
	})

	t.Run("tolerates missing and mistyped fields", func(t *testing.T) {
		rec := recordFromValues("1-0", map[string]any{
			"type":    "duplicate_login",
			"payload": 42,
		})

		assert.Equal(t, "duplicate_login", rec.Type)
		assert.Empty(t, rec.RoomID)
		assert.Empty(t, rec.Origin)
		assert.Nil(t, rec.Payload)
	})
}
