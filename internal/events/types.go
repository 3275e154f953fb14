package events

import (
	"time"
)

// EventType identifies the type of event
type EventType string

// Core event types
const (
	// Stream events
	StreamMessageReceived EventType = "stream.message.received"
	StreamConnected       EventType = "stream.connected"
	StreamDisconnected    EventType = "stream.disconnected"
	StreamReconnecting    EventType = "stream.reconnecting"
	StreamError           EventType = "stream.error"

	// Reader events
	ReaderPageRendered EventType = "reader.page.rendered"
	ReaderPageChanged  EventType = "reader.page.changed"

	// Notification events
	NotificationInfo    EventType = "notification.info"
	NotificationWarning EventType = "notification.warning"
	NotificationError   EventType = "notification.error"
)

// Event represents a generic event in the system
type Event[T any] struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	Payload        T         `json:"payload"`
	Timestamp      time.Time `json:"timestamp"`
	ConversationID string    `json:"conversation_id,omitempty"`
}

// EventFilter decides whether a subscriber receives an event
type EventFilter func(Event[any]) bool

// FilterByType creates a filter that only accepts specific event types
func FilterByType(types ...EventType) EventFilter {
	typeSet := make(map[EventType]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}
	return func(event Event[any]) bool {
		return typeSet[event.Type]
	}
}

// FilterByConversation creates a filter scoped to one conversation
func FilterByConversation(conversationID string) EventFilter {
	return func(event Event[any]) bool {
		return event.ConversationID == conversationID
	}
}

// PublishOption configures event publishing
type PublishOption func(*PublishOptions)

// PublishOptions holds optional event fields
type PublishOptions struct {
	ConversationID string
}

// WithConversationID tags the event with a conversation id
func WithConversationID(id string) PublishOption {
	return func(o *PublishOptions) { o.ConversationID = id }
}
