package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/openclaw/chat-gateway-go/internal/database"
	"github.com/openclaw/chat-gateway-go/internal/model"
)

type RoomRepository interface {
	FindByID(ctx context.Context, id string) (*model.Room, error)
	Participants(ctx context.Context, roomID string) ([]model.Participant, error)
	AddParticipant(ctx context.Context, roomID, userID, userName string) error
	RemoveParticipant(ctx context.Context, roomID, userID string) error
	RoomsForUser(ctx context.Context, userID string) ([]string, error)
}

type roomRepo struct {
	db *database.DB
}

func NewRoomRepository(db *database.DB) RoomRepository {
	return &roomRepo{db: db}
}

func (r *roomRepo) FindByID(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	err := r.db.GetContext(ctx, &room, `SELECT * FROM rooms WHERE id = $1`, id)
	return HandleNotFound(&room, err)
}

func (r *roomRepo) Participants(ctx context.Context, roomID string) ([]model.Participant, error) {
	var participants []model.Participant
	err := r.db.SelectContext(ctx, &participants, `
		SELECT * FROM room_participants
		WHERE room_id = $1
		ORDER BY joined_at ASC
	`, roomID)
	return participants, err
}

// AddParticipant makes the user a member of roomID and of no other room.
// The delete-then-insert runs in one transaction so the at-most-one-room
// invariant holds under concurrent joins.
func (r *roomRepo) AddParticipant(ctx context.Context, roomID, userID, userName string) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM room_participants WHERE user_id = $1
		`, userID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO room_participants (room_id, user_id, user_name)
			VALUES ($1, $2, $3)
		`, roomID, userID, userName)
		return err
	})
}

func (r *roomRepo) RemoveParticipant(ctx context.Context, roomID, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM room_participants WHERE room_id = $1 AND user_id = $2
	`, roomID, userID)
	return err
}

func (r *roomRepo) RoomsForUser(ctx context.Context, userID string) ([]string, error) {
	var rooms []string
	err := r.db.SelectContext(ctx, &rooms, `
		SELECT room_id FROM room_participants WHERE user_id = $1
	`, userID)
	return rooms, err
}
