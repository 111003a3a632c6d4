package coalesce

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus collectors shared by every Coalescer of a process.
// A nil *Metrics records nothing.
type Metrics struct {
	fetches   *prometheus.CounterVec
	coalesced *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewMetrics creates the coalescer collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulse",
			Subsystem: "coalesce",
			Name:      "fetches_total",
			Help:      "Underlying fetch calls by result (ok, error)",
		}, []string{"resource", "result"}),
		coalesced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulse",
			Subsystem: "coalesce",
			Name:      "coalesced_total",
			Help:      "Callers that joined an in-flight fetch instead of starting one",
		}, []string{"resource"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pulse",
			Subsystem: "coalesce",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of underlying fetch calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource"}),
	}

	if reg == nil {
		return m, nil
	}

	var err error
	if m.fetches, err = register(reg, m.fetches); err != nil {
		return nil, err
	}
	if m.coalesced, err = register(reg, m.coalesced); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
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

func (m *Metrics) recordFetch(resource string, took time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.fetches.WithLabelValues(resource, result).Inc()
	m.duration.WithLabelValues(resource).Observe(took.Seconds())
}

func (m *Metrics) recordCoalesced(resource string) {
	if m == nil {
		return
	}
	m.coalesced.WithLabelValues(resource).Inc()
}
