package coalesce_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pulse/pkg/coalesce"
)

func TestFixed(t *testing.T) {
	t.Parallel()

	p := coalesce.Fixed[string](time.Minute)
	require.Equal(t, time.Minute, p("anything"))
}

func TestVolatile(t *testing.T) {
	t.Parallel()

	p := coalesce.Volatile(func(s score) bool { return s.Live }, 5*time.Second, 10*time.Minute)

	require.Equal(t, 5*time.Second, p(score{Live: true}))
	require.Equal(t, 10*time.Minute, p(score{Live: false}))
}
