package model

import "time"

// FileRef points at a pre-uploaded object; the upload pipeline itself is
// an external collaborator.
type FileRef struct {
	ID         string    `db:"id" json:"id"`
	OwnerID    string    `db:"owner_id" json:"ownerId"`
	Name       string    `db:"name" json:"name"`
	Size       int64     `db:"size" json:"size"`
	StorageKey string    `db:"storage_key" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
