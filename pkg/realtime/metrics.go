package realtime

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the connection collectors. A nil *Metrics records nothing.
type Metrics struct {
	status     prometheus.Gauge
	attempts   prometheus.Counter
	delivered  *prometheus.CounterVec
	replayErrs prometheus.Counter
}

// NewMetrics creates the realtime collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		status: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pulse",
			Subsystem: "realtime",
			Name:      "status",
			Help:      "Connection status (0 disconnected, 1 connecting, 2 connected, 3 degraded)",
		}),
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pulse",
			Subsystem: "realtime",
			Name:      "connect_attempts_total",
			Help:      "Transport handshakes started",
		}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulse",
			Subsystem: "realtime",
			Name:      "delivered_total",
			Help:      "Messages delivered to topic handlers by event name",
		}, []string{"event"}),
		replayErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pulse",
			Subsystem: "realtime",
			Name:      "replay_errors_total",
			Help:      "Topics that failed to re-join after a reconnect",
		}),
	}

	if reg == nil {
		return m, nil
	}

	var err error
	if m.status, err = register(reg, m.status); err != nil {
		return nil, err
	}
	if m.attempts, err = register(reg, m.attempts); err != nil {
		return nil, err
	}
	if m.delivered, err = register(reg, m.delivered); err != nil {
		return nil, err
	}
	if m.replayErrs, err = register(reg, m.replayErrs); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) setStatus(s Status) {
	if m == nil {
		return
	}
	m.status.Set(float64(s))
}

func (m *Metrics) recordAttempt() {
	if m == nil {
		return
	}
	m.attempts.Inc()
}

func (m *Metrics) recordDelivered(event string) {
	if m == nil {
		return
	}
	m.delivered.WithLabelValues(event).Inc()
}

func (m *Metrics) recordReplayError() {
	if m == nil {
		return
	}
	m.replayErrs.Inc()
}
