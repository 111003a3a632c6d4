package coalesce

import (
	"errors"
	"fmt"
)

var (
	// ErrTransientFetch marks a failed fetch. The fallback value has been cached
	// for the failure TTL; the next Get after it elapses fetches again.
	// Revalidate failures leave a fresh entry untouched instead.
	ErrTransientFetch = errors.New("coalesce: transient fetch failure")

	// ErrFetchPanic is the cause recorded when a fetch function panics.
	ErrFetchPanic = errors.New("coalesce: fetch panicked")
)

// FetchError is returned to every waiter of a failed fetch.
type FetchError struct {
	Err error
	Key string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("coalesce: fetch %q: %v", e.Key, e.Err)
}

// Unwrap exposes both ErrTransientFetch and the underlying cause to errors.Is.
func (e *FetchError) Unwrap() []error {
	return []error{ErrTransientFetch, e.Err}
}
