package repository

import (
	"context"

	"github.com/openclaw/chat-gateway-go/internal/database"
	"github.com/openclaw/chat-gateway-go/internal/model"
)

type FileRepository interface {
	FindByIDAndOwner(ctx context.Context, id, ownerID string) (*model.FileRef, error)
}

type fileRepo struct {
	db *database.DB
}

func NewFileRepository(db *database.DB) FileRepository {
	return &fileRepo{db: db}
}

func (r *fileRepo) FindByIDAndOwner(ctx context.Context, id, ownerID string) (*model.FileRef, error) {
	var ref model.FileRef
	err := r.db.GetContext(ctx, &ref, `
		SELECT * FROM files WHERE id = $1 AND owner_id = $2
	`, id, ownerID)
	return HandleNotFound(&ref, err)
}
