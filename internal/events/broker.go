package events

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultBufferSize = 64

// Broker implements a generic publish-subscribe broker with type safety
type Broker[T any] struct {
	subs       map[chan Event[T]]SubscriberInfo
	mu         sync.RWMutex
	done       chan struct{}
	closeOnce  sync.Once
	bufferSize int
}

// SubscriberInfo contains metadata about a subscriber
type SubscriberInfo struct {
	ID      string
	Filters []EventFilter
	Created time.Time
}

// NewBroker creates a new broker with default settings
func NewBroker[T any]() *Broker[T] {
	return NewBrokerWithBuffer[T](defaultBufferSize)
}

// NewBrokerWithBuffer creates a new broker with a custom channel buffer size
func NewBrokerWithBuffer[T any](channelBufferSize int) *Broker[T] {
	return &Broker[T]{
		subs:       make(map[chan Event[T]]SubscriberInfo),
		done:       make(chan struct{}),
		bufferSize: channelBufferSize,
	}
}

// Publish publishes an event to all subscribers
func (b *Broker[T]) Publish(eventType EventType, payload T, opts ...PublishOption) {
	select {
	case <-b.done:
		return // Broker is shut down
	default:
	}

	options := &PublishOptions{}
	for _, opt := range opts {
		opt(options)
	}

	event := Event[T]{
		ID:             uuid.New().String(),
		Type:           eventType,
		Payload:        payload,
		Timestamp:      time.Now(),
		ConversationID: options.ConversationID,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch, info := range b.subs {
		if b.shouldSendToSubscriber(event, info.Filters) {
			select {
			case ch <- event:
			default:
				// Channel is full, drop rather than block the publisher
				log.Printf("Warning: event channel full for subscriber %s, dropping event %s", info.ID, event.ID)
			}
		}
	}
}

// Subscribe creates a new subscription with optional filters. The channel is
// closed when ctx is cancelled or the broker shuts down.
func (b *Broker[T]) Subscribe(ctx context.Context, filters ...EventFilter) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event[T], b.bufferSize)
	b.subs[ch] = SubscriberInfo{
		ID:      uuid.New().String(),
		Filters: filters,
		Created: time.Now(),
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
		}
		b.unsubscribe(ch)
	}()

	return ch
}

func (b *Broker[T]) unsubscribe(ch chan Event[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subs[ch]; exists {
		delete(b.subs, ch)
		close(ch)
	}
}

func (b *Broker[T]) shouldSendToSubscriber(event Event[T], filters []EventFilter) bool {
	if len(filters) == 0 {
		return true // No filters means accept all events
	}

	anyEvent := Event[any]{
		ID:             event.ID,
		Type:           event.Type,
		Payload:        event.Payload,
		Timestamp:      event.Timestamp,
		ConversationID: event.ConversationID,
	}

	for _, filter := range filters {
		if !filter(anyEvent) {
			return false
		}
	}
	return true
}

// SubscriberCount returns the number of active subscribers
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Shutdown stops the broker and closes all subscriber channels
func (b *Broker[T]) Shutdown() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
}
