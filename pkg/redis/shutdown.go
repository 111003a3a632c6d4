package redis

import (
	"context"
	"io"
)

// Shutdown adapts client.Close to a shutdown hook.
//
//	client, err := pulse.New(pulse.WithShutdownHook(redis.Shutdown(rdb)))
func Shutdown(client io.Closer) func(ctx context.Context) error {
	return func(context.Context) error {
		return client.Close()
	}
}
