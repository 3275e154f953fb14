package stream

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// Dialer opens the raw transport the STOMP session runs over. Production
// uses WebSocket; tests dial a local TCP broker.
type Dialer interface {
	Dial(ctx context.Context) (io.ReadWriteCloser, error)
}

// WebSocketDialer dials a STOMP-over-WebSocket broker endpoint
type WebSocketDialer struct {
	URL string
}

// Dial opens the WebSocket connection and adapts it to a byte stream
func (d *WebSocketDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, d.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return &wsStream{conn: conn}, nil
}

// wsStream adapts a message-oriented WebSocket connection to the
// io.ReadWriteCloser the STOMP client expects. STOMP frames may span or
// share WebSocket messages; concatenating message payloads preserves the
// frame stream either way.
type wsStream struct {
	conn    *websocket.Conn
	current io.Reader
}

func (w *wsStream) Read(p []byte) (int, error) {
	for {
		if w.current == nil {
			_, reader, err := w.conn.NextReader()
			if err != nil {
				return 0, err
			}
			w.current = reader
		}
		n, err := w.current.Read(p)
		if err == io.EOF {
			// Message exhausted, move on to the next one
			w.current = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (w *wsStream) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsStream) Close() error {
	return w.conn.Close()
}

// TCPDialer dials a plain TCP STOMP broker. Used by tests against the
// in-process broker.
type TCPDialer struct {
	Addr string
}

// Dial opens the TCP connection
func (d *TCPDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	var nd net.Dialer
	conn, err := nd.DialContext(ctx, "tcp", d.Addr)
	if err != nil {
		return nil, fmt.Errorf("tcp dial failed: %w", err)
	}
	return conn, nil
}
