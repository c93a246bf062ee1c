package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/openclaw/chat-gateway-go/internal/database"
	"github.com/openclaw/chat-gateway-go/internal/model"
)

type MessageRepository interface {
	Create(ctx context.Context, params model.CreateMessageParams) (*model.ChatMessage, error)
	FindByID(ctx context.Context, id string) (*model.ChatMessage, error)
	FindLatestByRoom(ctx context.Context, roomID string, limit int) ([]model.ChatMessage, error)
	FindByRoomBefore(ctx context.Context, roomID string, before time.Time, limit int) ([]model.ChatMessage, error)
	AddReaders(ctx context.Context, ids []string, userID string) error
	React(ctx context.Context, messageID, userID, key string, op model.ReactionOp) (model.ReactionMap, error)
}

type messageRepo struct {
	db *database.DB
}

func NewMessageRepository(db *database.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) Create(ctx context.Context, params model.CreateMessageParams) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	err := r.db.GetContext(ctx, &msg, `
		INSERT INTO messages
			(room_id, sender_id, sender_name, type, content, file_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, params.RoomID, params.SenderID, params.SenderName, params.Type,
		params.Content, params.FileID, params.Metadata)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepo) FindByID(ctx context.Context, id string) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	err := r.db.GetContext(ctx, &msg, `SELECT * FROM messages WHERE id = $1`, id)
	return HandleNotFound(&msg, err)
}

func (r *messageRepo) FindLatestByRoom(ctx context.Context, roomID string, limit int) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM messages
		WHERE room_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, roomID, limit)
	return msgs, err
}

func (r *messageRepo) FindByRoomBefore(ctx context.Context, roomID string, before time.Time, limit int) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM messages
		WHERE room_id = $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, roomID, before, limit)
	return msgs, err
}

// AddReaders appends userID to each message's readers set. The jsonb
// containment guard makes repeated calls no-ops.
func (r *messageRepo) AddReaders(ctx context.Context, ids []string, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE messages SET
			readers = coalesce(readers, '[]'::jsonb) || to_jsonb($2::text)
		WHERE id = ANY($1)
		AND NOT coalesce(readers, '[]'::jsonb) @> to_jsonb($2::text)
	`, pq.Array(ids), userID)
	return err
}

// React applies one add/remove reaction mutation under a row lock and
// returns the updated reaction map.
func (r *messageRepo) React(ctx context.Context, messageID, userID, key string, op model.ReactionOp) (model.ReactionMap, error) {
	var reactions model.ReactionMap
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &reactions, `
			SELECT coalesce(reactions, '{}'::jsonb) FROM messages
			WHERE id = $1 FOR UPDATE
		`, messageID); err != nil {
			return err
		}

		if reactions == nil {
			reactions = model.ReactionMap{}
		}
		if !reactions.Apply(key, userID, op) {
			return nil
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE messages SET reactions = $2 WHERE id = $1
		`, messageID, reactions)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reactions, nil
}
