package api

import "context"

// UserInfo is the authenticated user's profile
type UserInfo struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	CreatedAt   int64  `json:"created_at"`
	ConfirmedAt int64  `json:"confirmed_at"`
	IsConfirmed bool   `json:"is_confirmed"`
	Username    string `json:"username"`
	AvatarURL   string `json:"avatar_url"`
}

// QueueInfo names the per-session delivery queue the broker subscription
// must target. Valid for one broker connection lifetime.
type QueueInfo struct {
	QueueName string `json:"queue_name"`
}

// Me returns the authenticated user's profile
func (c *Client) Me(ctx context.Context) (*UserInfo, error) {
	var out UserInfo
	if _, err := c.getJSON(ctx, "/v1/users/me", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateQueue provisions a fresh live-delivery queue for this session.
// A new queue must be requested before every broker connection attempt.
func (c *Client) CreateQueue(ctx context.Context) (*QueueInfo, error) {
	var out QueueInfo
	if _, err := c.postJSON(ctx, "/v1/users/queues", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
