package pulse

import "errors"

var (
	ErrClosed            = errors.New("pulse: client closed")
	ErrDuplicateResource = errors.New("pulse: resource already registered")
	ErrUnknownResource   = errors.New("pulse: unknown resource")
	ErrRealtimeDisabled  = errors.New("pulse: realtime is not configured")
	ErrInvalidKey        = errors.New("pulse: invalid resource key")
)
