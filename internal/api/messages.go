package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// MessageQuery selects one page of conversation history
type MessageQuery struct {
	Sort   string // sort field, e.g. "id"
	Order  string // "asc" or "desc"
	Page   int    // 1-indexed
	Paging int    // page size
}

func (q MessageQuery) encode() string {
	values := url.Values{}
	if q.Sort != "" {
		values.Set("sort", q.Sort)
	}
	if q.Order != "" {
		values.Set("order", q.Order)
	}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.Paging > 0 {
		values.Set("paging", strconv.Itoa(q.Paging))
	}
	if encoded := values.Encode(); encoded != "" {
		return "?" + encoded
	}
	return ""
}

// MessageInfo is one persisted message as returned by the history endpoint.
// The service assigns numeric ids to stored messages while live pushes carry
// string ids, so ID is kept as a json.Number and normalized via String().
type MessageInfo struct {
	ID             json.Number `json:"id"`
	CreatedAt      int64       `json:"created_at"`
	Content        string      `json:"content"`
	SenderType     string      `json:"sender_type"`
	ConversationID string      `json:"conversation_id"`
}

type createMessageRequest struct {
	Content string `json:"content"`
}

// ListMessages fetches one page of conversation history
func (c *Client) ListMessages(ctx context.Context, conversationID string, query MessageQuery) ([]MessageInfo, *Meta, error) {
	var out []MessageInfo
	path := fmt.Sprintf("/v1/conversations/%s/messages%s", conversationID, query.encode())
	meta, err := c.getJSON(ctx, path, &out)
	if err != nil {
		return nil, nil, err
	}
	return out, meta, nil
}

// CreateMessage submits a new user message. The canonical echo arrives via
// the live subscription, not the response body.
func (c *Client) CreateMessage(ctx context.Context, conversationID, content string) error {
	path := fmt.Sprintf("/v1/conversations/%s/messages", conversationID)
	_, err := c.postJSON(ctx, path, createMessageRequest{Content: content}, nil)
	return err
}
