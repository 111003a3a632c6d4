package realtime

import (
	"context"
	"fmt"
)

// Healthcheck returns a check that fails unless m is connected.
func Healthcheck(m *Manager) func(context.Context) error {
	return func(context.Context) error {
		if s := m.Status(); s != StatusConnected {
			return fmt.Errorf("%w: status %s", ErrNotConnected, s)
		}
		return nil
	}
}
