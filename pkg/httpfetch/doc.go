// Package httpfetch adapts a JSON REST API to [coalesce.FetchFunc].
//
// Each call is bounded by a timeout and can be throttled with a token bucket
// from golang.org/x/time/rate, so a cold cache cannot flood the origin.
// Non-2xx responses become [*StatusError]; transport failures wrap [ErrRequest]
// and undecodable bodies wrap [ErrDecode].
package httpfetch
