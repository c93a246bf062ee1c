package model

import "time"

type Room struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type Participant struct {
	RoomID   string    `db:"room_id" json:"roomId"`
	UserID   string    `db:"user_id" json:"userId"`
	UserName string    `db:"user_name" json:"userName"`
	JoinedAt time.Time `db:"joined_at" json:"joinedAt"`
}
