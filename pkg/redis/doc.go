// Package redis opens the go-redis client (github.com/redis/go-redis/v9)
// behind the durable cache tier.
//
// Open validates the URL, applies pool and timeout options and pings with
// linear backoff until the server answers or the attempts run out.
// Healthcheck feeds the readiness probe and Shutdown closes the client from
// a pulse shutdown hook.
//
//	rdb, err := redis.Open(ctx, os.Getenv("REDIS_URL"), redis.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	client, err := pulse.New(
//	    pulse.WithStore(cache.NewRedisStore(rdb, "pulse")),
//	    pulse.WithShutdownHook(redis.Shutdown(rdb)),
//	)
//
// Errors wrap ErrEmptyConnectionURL, ErrFailedToParseURL,
// ErrConnectionFailed or ErrHealthcheckFailed.
package redis
