// Package chat defines the conversation message model shared by the live
// stream, the history fetcher and the UI.
package chat

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/foliotalk/foliotalk/internal/api"
)

// SenderKind classifies who produced a message
type SenderKind string

const (
	SenderUser  SenderKind = "user"
	SenderAgent SenderKind = "agent"
	// SenderUnknown marks recovered messages whose payload could not be
	// attributed: malformed live events and unrecognized sender types.
	SenderUnknown SenderKind = "unknown"
)

// UnknownConversation tags recovered messages that did not carry a
// conversation id.
const UnknownConversation = "unknown"

// Message is one unit of conversation content. Messages are immutable once
// created; the client only accumulates them into display order.
type Message struct {
	ID             string
	ConversationID string
	Sender         SenderKind
	Content        string
	CreatedAt      time.Time
}

// livePayload is the JSON body a broker push carries. Every field is
// optional in practice, hence the tolerant decode below.
type livePayload struct {
	ID             flexID `json:"id"`
	Content        string `json:"content"`
	Text           string `json:"text"`
	CreatedAt      int64  `json:"created_at"`
	Timestamp      string `json:"timestamp"`
	SenderType     string `json:"sender_type"`
	ConversationID string `json:"conversation_id"`
}

// flexID accepts either a JSON string or a JSON number: history rows carry
// numeric ids while live pushes carry strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexID(n.String())
		return nil
	}
	// Unusable id shapes fall back to a synthesized id later
	return nil
}

// ParseSender maps the wire sender_type onto a SenderKind
func ParseSender(senderType string) SenderKind {
	switch strings.ToLower(senderType) {
	case "user":
		return SenderUser
	case "bot", "agent", "assistant":
		return SenderAgent
	default:
		return SenderUnknown
	}
}

// FromHistory converts a persisted message from the REST history endpoint
func FromHistory(info api.MessageInfo) Message {
	return Message{
		ID:             info.ID.String(),
		ConversationID: info.ConversationID,
		Sender:         ParseSender(info.SenderType),
		Content:        info.Content,
		CreatedAt:      time.UnixMilli(info.CreatedAt),
	}
}

// ParseLive decodes a raw broker payload into a Message. Missing fields fall
// back rather than fail: a synthesized id, an unknown sender, the current
// time. A body that is not JSON at all is preserved verbatim as an
// unattributed message so no event is silently dropped.
func ParseLive(body []byte) Message {
	var payload livePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Message{
			ID:             "error-" + uuid.New().String(),
			ConversationID: UnknownConversation,
			Sender:         SenderUnknown,
			Content:        string(body),
			CreatedAt:      time.Now(),
		}
	}

	content := payload.Content
	if content == "" {
		content = payload.Text
	}
	if content == "" {
		content = "Unknown content"
	}

	createdAt := time.Now()
	if payload.CreatedAt > 0 {
		createdAt = time.UnixMilli(payload.CreatedAt)
	} else if payload.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, payload.Timestamp); err == nil {
			createdAt = parsed
		}
	}

	id := string(payload.ID)
	if id == "" {
		id = "ws-" + uuid.New().String()
	}

	sender := SenderAgent
	if payload.SenderType != "" {
		sender = ParseSender(payload.SenderType)
	}

	conversationID := payload.ConversationID
	if conversationID == "" {
		conversationID = UnknownConversation
	}

	return Message{
		ID:             id,
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		CreatedAt:      createdAt,
	}
}

// FormatTime renders a message timestamp for display
func FormatTime(t time.Time) string {
	return t.Format("Jan 2, 2006, 03:04:05 PM")
}
