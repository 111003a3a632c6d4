// Package cache provides the resource cache: a generic in-memory tier in front of an
// optional durable string store.
//
// # Interface
//
// [Memory] and [Tiered] share the generic [Cache] interface:
//
//   - Get(ctx, key) (V, error): retrieve a fresh value
//   - Set(ctx, key, value, ttl) error: store a value with TTL
//   - Delete(ctx, key) error: remove a key
//   - Has(ctx, key) (bool, error): check existence
//   - Clear(ctx) error: remove all entries
//   - Close() error: release resources
//
// TTL semantics for Set:
//   - Positive duration: item expires after this duration
//   - Zero: use the cache's configured default TTL
//   - Negative: item never expires
//
// An entry is served while now < expiresAt; afterwards a read reports [ErrNotFound].
//
// # Tiers
//
// [Tiered] reads memory first and the durable [Store] second. A durable hit is promoted
// into memory with its original deadline, and concurrent durable reads of one key are
// collapsed into a single store call:
//
//	store := cache.NewRedisStore(client, "pulse")
//	ads := cache.NewTiered[[]Ad](store, nil,
//	    cache.WithName("ads"),
//	    cache.WithMemoryOptions(cache.WithMaxEntries(1000)),
//	)
//	defer ads.Close()
//
//	_ = ads.Put(ctx, "ads?position=sidebar", list, time.Minute)
//	v, err := ads.Get(ctx, "ads?position=sidebar")
//
// Writes go to both tiers. If the durable write fails (quota exceeded, Redis down) the
// failure is logged and counted, and the in-memory value stays usable. A persisted entry
// that cannot be decoded is deleted and the read is reported as a miss.
//
// [Tiered.Peek] is a synchronous memory-only read that reports whether a fetch is in flight
// (see [Tiered.MarkLoading]); it is what UI-facing code polls while waiting.
//
// # Stores
//
//   - [MemoryStore]: process-local map with an optional byte quota
//   - [RedisStore]: [github.com/redis/go-redis/v9] backed, honours entry TTLs
//
// # Memory Tier
//
// [NewMemory] uses a hash map for O(1) lookups and a doubly-linked list for O(1)
// LRU eviction, with TTL expiry through a background janitor:
//
//	c := cache.NewMemory[string](
//	    cache.WithDefaultTTL(5 * time.Minute),
//	    cache.WithCleanupInterval(30 * time.Second),
//	    cache.WithMaxEntries(10000),
//	)
//	defer c.Close()
//
// # Error Handling
//
//   - [ErrNotFound]: key does not exist or has expired
//   - [ErrClosed]: operation on a closed cache
//   - [ErrMarshal], [ErrUnmarshal]: value (de)serialization failed
//   - [ErrStorageWrite]: durable tier rejected a write or removal
//   - [ErrCorruptEntry]: persisted entry could not be decoded
//   - [ErrQuotaExceeded]: [MemoryStore] quota reached
package cache
