package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/foliotalk/foliotalk/internal/api"
)

func TestParseLive(t *testing.T) {
	t.Run("complete payload", func(t *testing.T) {
		body := []byte(`{"id":"m1","content":"hi","sender_type":"BOT","conversation_id":"c1","created_at":1700000000000}`)
		msg := ParseLive(body)

		if msg.ID != "m1" {
			t.Errorf("id: %s", msg.ID)
		}
		if msg.Sender != SenderAgent {
			t.Errorf("sender: %s", msg.Sender)
		}
		if msg.ConversationID != "c1" {
			t.Errorf("conversation: %s", msg.ConversationID)
		}
		if !msg.CreatedAt.Equal(time.UnixMilli(1700000000000)) {
			t.Errorf("created at: %v", msg.CreatedAt)
		}
	})

	t.Run("numeric id", func(t *testing.T) {
		msg := ParseLive([]byte(`{"id":42,"content":"hi","conversation_id":"c1"}`))
		if msg.ID != "42" {
			t.Errorf("numeric id not normalized: %s", msg.ID)
		}
	})

	t.Run("timestamp fallback", func(t *testing.T) {
		msg := ParseLive([]byte(`{"id":"m2","content":"hi","timestamp":"2023-11-14T22:13:20Z"}`))
		want := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
		if !msg.CreatedAt.Equal(want) {
			t.Errorf("timestamp not parsed: %v", msg.CreatedAt)
		}
	})

	t.Run("text field as content", func(t *testing.T) {
		msg := ParseLive([]byte(`{"id":"m3","text":"alt body"}`))
		if msg.Content != "alt body" {
			t.Errorf("content: %s", msg.Content)
		}
	})

	t.Run("missing fields synthesized", func(t *testing.T) {
		msg := ParseLive([]byte(`{}`))
		if !strings.HasPrefix(msg.ID, "ws-") {
			t.Errorf("expected synthesized id, got %s", msg.ID)
		}
		if msg.Content != "Unknown content" {
			t.Errorf("content: %s", msg.Content)
		}
		if msg.ConversationID != UnknownConversation {
			t.Errorf("conversation: %s", msg.ConversationID)
		}
	})

	t.Run("non-json body preserved", func(t *testing.T) {
		msg := ParseLive([]byte("plain text, not json"))
		if msg.Content != "plain text, not json" {
			t.Errorf("raw body not preserved: %s", msg.Content)
		}
		if msg.Sender != SenderUnknown {
			t.Errorf("expected unknown sender, got %s", msg.Sender)
		}
		if !strings.HasPrefix(msg.ID, "error-") {
			t.Errorf("expected error id, got %s", msg.ID)
		}
	})
}

func TestParseSender(t *testing.T) {
	cases := map[string]SenderKind{
		"USER":      SenderUser,
		"user":      SenderUser,
		"BOT":       SenderAgent,
		"assistant": SenderAgent,
		"weird":     SenderUnknown,
		"":          SenderUnknown,
	}
	for in, want := range cases {
		if got := ParseSender(in); got != want {
			t.Errorf("ParseSender(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestFromHistory(t *testing.T) {
	msg := FromHistory(api.MessageInfo{
		ID:             "17",
		CreatedAt:      1700000000000,
		Content:        "stored",
		SenderType:     "USER",
		ConversationID: "c9",
	})
	if msg.ID != "17" || msg.Sender != SenderUser || msg.ConversationID != "c9" {
		t.Errorf("unexpected message: %+v", msg)
	}
}
