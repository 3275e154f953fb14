package stream

import "fmt"

// ErrorKind classifies live-delivery failures
type ErrorKind string

const (
	// ErrorQueue is a queue-provisioning failure; no broker connection is
	// attempted after one.
	ErrorQueue ErrorKind = "queue"
	// ErrorConnection is a transport-level failure (dial, socket loss)
	ErrorConnection ErrorKind = "connection"
	// ErrorStomp is a protocol-level broker error (ERROR frame)
	ErrorStomp ErrorKind = "stomp"
	// ErrorMessage is a malformed live payload; recovered locally, never
	// fatal.
	ErrorMessage ErrorKind = "message"
)

// Error is a classified live-delivery failure
type Error struct {
	Kind    ErrorKind
	Message string
	err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("stream: %s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.err }
