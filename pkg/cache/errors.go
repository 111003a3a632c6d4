package cache

import "errors"

// Sentinel errors for cache operations.
var (
	// ErrNotFound is returned when a key does not exist in the cache or has expired.
	ErrNotFound = errors.New("cache: entry not found")

	// ErrClosed is returned when an operation is attempted on a closed cache.
	ErrClosed = errors.New("cache: closed")

	// ErrMarshal is returned when value serialization fails.
	ErrMarshal = errors.New("cache: failed to marshal value")

	// ErrUnmarshal is returned when value deserialization fails.
	ErrUnmarshal = errors.New("cache: failed to unmarshal value")

	// ErrStorageWrite is reported when the durable tier rejects a write
	// (quota exceeded, storage disabled, network failure). The memory tier
	// keeps the value; the error never reaches Put callers.
	ErrStorageWrite = errors.New("cache: durable storage write failed")

	// ErrCorruptEntry is reported when a persisted entry cannot be decoded.
	// The entry is removed and the read is treated as a miss.
	ErrCorruptEntry = errors.New("cache: corrupt durable entry")

	// ErrQuotaExceeded is returned by MemoryStore when a write would exceed its quota.
	ErrQuotaExceeded = errors.New("cache: storage quota exceeded")
)
