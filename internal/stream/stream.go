// Package stream merges a conversation's paginated REST history with its
// live STOMP subscription into a single deduplicated, chronologically
// coherent message view.
package stream

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3"

	"github.com/foliotalk/foliotalk/internal/api"
	"github.com/foliotalk/foliotalk/internal/chat"
	"github.com/foliotalk/foliotalk/internal/events"
)

// State is the broker connection state
type State string

const (
	StateIdle         State = "idle"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// Update is the payload delivered to stream subscribers
type Update struct {
	Message *chat.Message
	Err     *Error
	State   State
}

// Options configures a Stream
type Options struct {
	Login          string
	Passcode       string
	Heartbeat      time.Duration
	ReconnectDelay time.Duration
	SortField      string
	SortOrder      string
	PageSize       int
}

func (o *Options) withDefaults() {
	if o.Login == "" {
		o.Login = "guest"
	}
	if o.Passcode == "" {
		o.Passcode = "guest"
	}
	if o.Heartbeat <= 0 {
		o.Heartbeat = 4 * time.Second
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = 5 * time.Second
	}
}

// Stream owns the message buffers and the broker connection for one mounted
// conversation view. It is never shared across conversation views; callers
// tear it down with Close before creating another.
type Stream struct {
	client  *api.Client
	dialer  Dialer
	history *historyLoader
	opts    Options
	broker  *events.Broker[Update]

	mu             sync.Mutex
	conversationID string
	generation     int
	historyBuf     []chat.Message
	liveBuf        []chat.Message
	moreHistory    bool
	nextPage       int
	queueName      string
	state          State
	conn           *stomp.Conn
	cancel         context.CancelFunc
	closed         bool
}

// New creates a stream backed by the given API client and broker dialer
func New(client *api.Client, dialer Dialer, opts Options) *Stream {
	opts.withDefaults()
	return &Stream{
		client:  client,
		dialer:  dialer,
		history: newHistoryLoader(client, opts.SortField, opts.SortOrder, opts.PageSize),
		opts:    opts,
		broker:  events.NewBroker[Update](),
		state:   StateIdle,
	}
}

// Subscribe delivers message and connection-state updates until ctx ends
func (s *Stream) Subscribe(ctx context.Context, filters ...events.EventFilter) <-chan events.Event[Update] {
	return s.broker.Subscribe(ctx, filters...)
}

// Open switches the active conversation. All accumulated state is reset;
// in-flight history responses and live events for the previous conversation
// are disregarded from this point on.
func (s *Stream) Open(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.conversationID = conversationID
	s.historyBuf = nil
	s.liveBuf = nil
	s.moreHistory = true
	s.nextPage = 1
}

// LoadHistory fetches the next page of persisted messages and merges it into
// the history buffer. It reports whether more pages remain. A response that
// arrives after the conversation switched is discarded.
func (s *Stream) LoadHistory(ctx context.Context) (int, bool, error) {
	s.mu.Lock()
	if s.conversationID == "" {
		s.mu.Unlock()
		return 0, false, errors.New("no conversation open")
	}
	if !s.moreHistory {
		more := s.moreHistory
		s.mu.Unlock()
		return 0, more, nil
	}
	gen := s.generation
	conversationID := s.conversationID
	page := s.nextPage
	s.mu.Unlock()

	messages, hasMore, err := s.history.loadPage(ctx, conversationID, page)
	if err != nil {
		return 0, true, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		// Conversation switched while the fetch was in flight
		return 0, s.moreHistory, nil
	}
	s.historyBuf = append(s.historyBuf, messages...)
	s.moreHistory = hasMore
	s.nextPage = page + 1
	return len(messages), hasMore, nil
}

// Send submits a new user message. No optimistic entry is appended; the
// canonical echo arrives via the live subscription or a later history page.
func (s *Stream) Send(ctx context.Context, content string) error {
	s.mu.Lock()
	conversationID := s.conversationID
	s.mu.Unlock()
	if conversationID == "" {
		return errors.New("no conversation open")
	}
	return s.client.CreateMessage(ctx, conversationID, content)
}

// Messages returns the display stream: history then live, deduplicated by
// id with first occurrence winning its position.
func (s *Stream) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return MergeDeduplicate(s.historyBuf, s.liveBuf)
}

// State returns the current broker connection state
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// QueueName returns the most recently provisioned delivery queue
func (s *Stream) QueueName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queueName
}

// Connect establishes the live subscription in two strictly sequential
// stages: provision a fresh delivery queue over REST, then open the broker
// connection and subscribe to the queue's destination. A provisioning
// failure surfaces as a queue error and no broker connection is attempted.
func (s *Stream) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("stream closed")
	}
	if s.cancel != nil {
		s.mu.Unlock()
		return errors.New("already connected")
	}
	s.mu.Unlock()

	conn, err := s.provisionAndConnect(ctx)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		conn.conn.Disconnect()
		return errors.New("stream closed")
	}
	s.cancel = cancel
	s.conn = conn.conn
	s.setStateLocked(StateConnected)
	s.mu.Unlock()

	s.publishState(events.StreamConnected, StateConnected)
	go s.run(runCtx, conn)
	return nil
}

// brokerSession bundles one live broker connection with its subscription
type brokerSession struct {
	conn *stomp.Conn
	sub  *stomp.Subscription
}

func (s *Stream) provisionAndConnect(ctx context.Context) (*brokerSession, error) {
	// Stage 1: queue provisioning. Must succeed before any dial.
	queue, err := s.client.CreateQueue(ctx)
	if err != nil {
		streamErr := &Error{Kind: ErrorQueue, Message: "failed to create queue", err: err}
		s.publishError(streamErr)
		return nil, streamErr
	}

	s.mu.Lock()
	s.queueName = queue.QueueName
	s.mu.Unlock()

	// Stage 2: broker connection and subscription
	raw, err := s.dialer.Dial(ctx)
	if err != nil {
		streamErr := &Error{Kind: ErrorConnection, Message: "broker connection failed", err: err}
		s.publishError(streamErr)
		return nil, streamErr
	}

	conn, err := stomp.Connect(raw,
		stomp.ConnOpt.Login(s.opts.Login, s.opts.Passcode),
		stomp.ConnOpt.HeartBeat(s.opts.Heartbeat, s.opts.Heartbeat),
	)
	if err != nil {
		raw.Close()
		streamErr := &Error{Kind: ErrorStomp, Message: "broker handshake failed", err: err}
		s.publishError(streamErr)
		return nil, streamErr
	}

	sub, err := conn.Subscribe("/queue/"+queue.QueueName, stomp.AckAuto,
		stomp.SubscribeOpt.Id("sub-"+queue.QueueName),
		stomp.SubscribeOpt.Header("auto-delete", "true"),
		stomp.SubscribeOpt.Header("x-queue-name", queue.QueueName),
		stomp.SubscribeOpt.Header("durable", "true"),
		stomp.SubscribeOpt.Header("exclusive", "false"),
	)
	if err != nil {
		conn.Disconnect()
		streamErr := &Error{Kind: ErrorStomp, Message: "subscribe failed", err: err}
		s.publishError(streamErr)
		return nil, streamErr
	}

	return &brokerSession{conn: conn, sub: sub}, nil
}

// run consumes the subscription until the stream closes, reconnecting with
// a fixed delay on transport loss. Each reconnect provisions a fresh queue:
// queue validity is tied to one broker connection lifetime.
func (s *Stream) run(ctx context.Context, session *brokerSession) {
	for {
		s.consume(ctx, session.sub)

		session.conn.Disconnect()

		select {
		case <-ctx.Done():
			return
		default:
		}

		s.setState(StateReconnecting)
		s.publishState(events.StreamReconnecting, StateReconnecting)

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.opts.ReconnectDelay):
		}

		next, err := s.provisionAndConnect(ctx)
		if err != nil {
			// Error already published and classified; retry after the
			// fixed delay
			continue
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			next.conn.Disconnect()
			return
		}
		s.conn = next.conn
		s.setStateLocked(StateConnected)
		s.mu.Unlock()
		s.publishState(events.StreamConnected, StateConnected)
		session = next
	}
}

// consume drains one subscription until the connection drops or ctx ends
func (s *Stream) consume(ctx context.Context, sub *stomp.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			if msg.Err != nil {
				s.publishError(&Error{Kind: ErrorStomp, Message: "broker error frame", err: msg.Err})
				return
			}
			s.handleLive(msg.Body)
		}
	}
}

// handleLive parses one live payload and appends it to the live buffer in
// arrival order. Messages for a different conversation are discarded
// silently; malformed payloads become visible placeholder messages.
func (s *Stream) handleLive(body []byte) {
	msg := chat.ParseLive(body)
	if msg.Sender == chat.SenderUnknown && msg.ConversationID == chat.UnknownConversation {
		s.publishError(&Error{Kind: ErrorMessage, Message: "malformed live payload"})
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if msg.ConversationID != s.conversationID && msg.ConversationID != chat.UnknownConversation {
		s.mu.Unlock()
		return
	}
	s.liveBuf = append(s.liveBuf, msg)
	conversationID := s.conversationID
	s.mu.Unlock()

	s.broker.Publish(events.StreamMessageReceived, Update{Message: &msg}, events.WithConversationID(conversationID))
}

// Close deactivates the live subscription. No handler runs after it
// returns; the stream cannot be reused.
func (s *Stream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	conn := s.conn
	s.conn = nil
	s.setStateLocked(StateClosed)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		if err := conn.Disconnect(); err != nil {
			log.Printf("stream: disconnect: %v", err)
		}
	}
	s.broker.Shutdown()
}

func (s *Stream) setState(state State) {
	s.mu.Lock()
	s.setStateLocked(state)
	s.mu.Unlock()
}

func (s *Stream) setStateLocked(state State) {
	if !s.closed || state == StateClosed {
		s.state = state
	}
}

func (s *Stream) publishError(err *Error) {
	log.Printf("stream: %v", err)
	s.broker.Publish(events.StreamError, Update{Err: err})
}

func (s *Stream) publishState(eventType events.EventType, state State) {
	s.broker.Publish(eventType, Update{State: state})
}
