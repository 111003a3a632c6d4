package realtime

import (
	"context"
	"encoding/json"
)

// Transport event names used for topic membership.
const (
	JoinEvent  = "join"
	LeaveEvent = "leave"
)

// Message is one frame received from the realtime server.
type Message struct {
	ID      string          `json:"id,omitempty"`
	Event   string          `json:"event"`
	Topic   string          `json:"topic,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Conn is an established realtime connection.
//
// Receive blocks until a frame arrives. It returns an error wrapping
// ErrServerClosed when the server ended the session on purpose and
// ErrMalformedMessage for a frame it could not decode. Close must unblock a
// pending Receive.
type Conn interface {
	Emit(ctx context.Context, event, topic string, payload any) error
	Receive(ctx context.Context) (Message, error)
	Close() error
}

// Dialer opens connections to the realtime server.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context) (Conn, error) {
	return f(ctx)
}

// Handler receives messages for one topic.
type Handler func(ctx context.Context, msg Message)
