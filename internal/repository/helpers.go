package repository

import (
	"database/sql"
	"errors"
)

// HandleNotFound converts sql.ErrNoRows into a nil result without error.
// Find* operations use it where a missing row is not an error condition
// (the caller maps nil to a NOT_FOUND at the action boundary).
//
//	var msg model.ChatMessage
//	err := r.db.GetContext(ctx, &msg, query, args...)
//	return HandleNotFound(&msg, err)
func HandleNotFound[T any](result *T, err error) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
