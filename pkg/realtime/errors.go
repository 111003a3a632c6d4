package realtime

import "errors"

var (
	// ErrConnection wraps transport failures. The manager reports them through
	// its status, never to Join or Leave callers.
	ErrConnection = errors.New("realtime: connection error")

	// ErrServerClosed marks a connection the server ended on purpose.
	ErrServerClosed = errors.New("realtime: closed by server")

	// ErrReplay is logged when a topic could not be re-joined after reconnecting.
	// The topic stays tracked and is replayed on the next connection.
	ErrReplay = errors.New("realtime: subscription replay failed")

	// ErrMalformedMessage is returned by Conn.Receive for a frame that could not
	// be decoded. The connection stays usable.
	ErrMalformedMessage = errors.New("realtime: malformed message")

	ErrClosed       = errors.New("realtime: manager closed")
	ErrNotConnected = errors.New("realtime: not connected")
)
