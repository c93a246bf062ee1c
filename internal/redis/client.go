package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// LatestKey holds the bounded recent-message window for a room.
func LatestKey(roomID string) string {
	return fmt.Sprintf("chat:%s:latest", roomID)
}

// PageKey holds a paged lookup result for a room. cursor is the
// millisecond "before" timestamp, or "noBefore" for the first page.
func PageKey(roomID, cursor string) string {
	if cursor == "" {
		cursor = "noBefore"
	}
	return fmt.Sprintf("chat:%s:before:%s", roomID, cursor)
}

// SessionKey holds the authoritative active session record for a user.
func SessionKey(userID string) string {
	return fmt.Sprintf("session:%s", userID)
}

// StreamingSessionsKey is the hash of in-flight AI generations keyed by
// message id, shared by all gateway instances.
const StreamingSessionsKey = "streaming_sessions"
