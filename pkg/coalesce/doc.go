// Package coalesce collapses concurrent requests for the same resource into a
// single fetch and writes the result into a [cache.Tiered] resource cache.
//
// A [Coalescer] is the only writer of its cache. Get serves a fresh cached value
// when there is one; otherwise it joins the fetch already running for the key or
// registers a new one. Registration happens under a mutex before the fetch starts,
// so callers racing on one key always share one call and receive the same value.
//
//	scores := cache.NewTiered[Score](store, nil, cache.WithName("scores"))
//	c := coalesce.New(scores, fetchScore,
//	    coalesce.Volatile(func(s Score) bool { return s.Live }, 10*time.Second, 10*time.Minute),
//	    coalesce.WithTimeout(5*time.Second),
//	)
//
//	res, err := c.Get(ctx, "score?match=42")
//
// # Volatility
//
// The TTL of every write comes from the [Policy] passed to [New] and is evaluated
// against the value just fetched. A live match can be cached for seconds and the
// same key for minutes once the match is over.
//
// # Failures
//
// A failed fetch is not retried. The value returned alongside the error (usually
// the zero value) is cached for the failure TTL so readers see a stable "no data"
// state, and every waiter receives a [*FetchError] that matches [ErrTransientFetch].
// [Coalescer.Refresh] invalidates the key and fetches again.
//
// # Cancellation
//
// Cancelling the context of a caller stops that caller from waiting. The fetch
// itself runs on a detached context bounded by [WithTimeout] and always completes,
// so later callers benefit from its result.
package coalesce
