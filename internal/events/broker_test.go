package events

import (
	"context"
	"testing"
	"time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := broker.Subscribe(ctx)
	broker.Publish(StreamMessageReceived, "hello", WithConversationID("c1"))

	select {
	case event := <-ch:
		if event.Type != StreamMessageReceived {
			t.Errorf("unexpected type: %s", event.Type)
		}
		if event.Payload != "hello" {
			t.Errorf("unexpected payload: %s", event.Payload)
		}
		if event.ConversationID != "c1" {
			t.Errorf("unexpected conversation id: %s", event.ConversationID)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBrokerTypeFilter(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := broker.Subscribe(ctx, FilterByType(StreamConnected))
	broker.Publish(StreamMessageReceived, 1)
	broker.Publish(StreamConnected, 2)

	select {
	case event := <-ch:
		if event.Payload != 2 {
			t.Errorf("filter let the wrong event through: %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("filtered event not delivered")
	}
}

func TestBrokerUnsubscribeOnCancel(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	ch := broker.Subscribe(ctx)
	cancel()

	// Channel must close once the context is done
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}

func TestBrokerShutdownClosesSubscribers(t *testing.T) {
	broker := NewBroker[string]()
	ch := broker.Subscribe(context.Background())

	broker.Shutdown()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after shutdown")
	}

	// Publishing after shutdown must be a no-op, not a panic
	broker.Publish(StreamMessageReceived, "late")
}
