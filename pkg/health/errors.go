package health

import "errors"

var (
	// ErrCheckFailed is returned by Run when a required check fails.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrDegraded marks a failure of an optional check. See Optional.
	ErrDegraded = errors.New("health: degraded")
)
