// Package feeds holds the resources served by the pulse binary: sidebar ads
// with a fixed TTL and match scores whose TTL depends on whether the match is
// live. Board overlays realtime score deltas on the cached snapshots without
// refetching or writing to the cache.
package feeds
