// Package pulse is the client-side resource layer of the content platform:
// coalesced, volatility-aware caching of REST resources plus one resilient
// realtime connection with topic subscriptions.
//
// A [Client] is the single owned service object of a process. It holds the
// durable store, the metrics registerer and the realtime manager, and every
// resource cache is created through it:
//
//	client, err := pulse.New(
//	    pulse.WithLogger(log),
//	    pulse.WithStore(cache.NewRedisStore(rdb, "pulse")),
//	    pulse.WithRealtime(&realtime.WebSocketDialer{URL: wsURL}),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	if err := client.Start(ctx); err != nil {
//	    return err
//	}
//
// # Resources
//
// [NewResource] binds a fetch function and a TTL policy to a name. Instances
// of a resource are addressed by [Params]; [Key] turns them into the cache key
// name?k1=v1&k2=v2 with sorted parameters.
//
//	scores, err := pulse.NewResource(client, "score", fetchScore,
//	    coalesce.Volatile(func(s Score) bool { return s.Live }, 10*time.Second, 10*time.Minute),
//	)
//
//	res, err := scores.Fetch(ctx, pulse.Params{"match": "42"})    // shared by concurrent callers
//	snap := scores.Peek(pulse.Params{"match": "42"})              // never fetches
//	_, err = scores.InvalidateAndRefetch(ctx, pulse.Params{"match": "42"})
//
// Fetch failures cache a fallback value for a short time and are returned as
// [coalesce.FetchError]; they are never retried automatically.
//
// # Realtime
//
// [Client.Realtime] returns the [realtime.Manager]. Realtime messages are
// patches for live state and never write to the resource caches.
package pulse
