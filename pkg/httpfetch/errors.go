package httpfetch

import (
	"errors"
	"fmt"
)

var (
	ErrRequest = errors.New("httpfetch: request failed")
	ErrDecode  = errors.New("httpfetch: decode response")
	ErrBaseURL = errors.New("httpfetch: invalid base url")
)

// StatusError is returned for a non-2xx response.
type StatusError struct {
	URL        string
	Body       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpfetch: %s returned %d", e.URL, e.StatusCode)
}
