package cache

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Lookup results recorded by Metrics.
const (
	resultHit        = "hit"
	resultDurableHit = "durable_hit"
	resultMiss       = "miss"
)

// Metrics holds Prometheus collectors shared by every Tiered cache of a process.
// Each cache reports under its own "cache" label. A nil *Metrics records nothing.
type Metrics struct {
	lookups       *prometheus.CounterVec
	writes        *prometheus.CounterVec
	storageErrors *prometheus.CounterVec
	corrupt       *prometheus.CounterVec
	invalidations *prometheus.CounterVec
}

// NewMetrics creates the cache collectors and registers them with reg.
// Registering twice on the same registerer reuses the existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulse",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by result (hit, durable_hit, miss)",
		}, []string{"cache", "result"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulse",
			Subsystem: "cache",
			Name:      "writes_total",
			Help:      "Values written to the memory tier",
		}, []string{"cache"}),
		storageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulse",
			Subsystem: "cache",
			Name:      "storage_errors_total",
			Help:      "Durable tier failures by operation; the cache degrades to memory-only",
		}, []string{"cache", "op"}),
		corrupt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulse",
			Subsystem: "cache",
			Name:      "corrupt_entries_total",
			Help:      "Unparsable durable entries removed on read",
		}, []string{"cache"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulse",
			Subsystem: "cache",
			Name:      "invalidations_total",
			Help:      "Explicit invalidations",
		}, []string{"cache"}),
	}

	if reg == nil {
		return m, nil
	}

	var err error
	if m.lookups, err = register(reg, m.lookups); err != nil {
		return nil, err
	}
	if m.writes, err = register(reg, m.writes); err != nil {
		return nil, err
	}
	if m.storageErrors, err = register(reg, m.storageErrors); err != nil {
		return nil, err
	}
	if m.corrupt, err = register(reg, m.corrupt); err != nil {
		return nil, err
	}
	if m.invalidations, err = register(reg, m.invalidations); err != nil {
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

func (m *Metrics) recordLookup(cache, result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) recordWrite(cache string) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(cache).Inc()
}

func (m *Metrics) recordStorageError(cache, op string) {
	if m == nil {
		return
	}
	m.storageErrors.WithLabelValues(cache, op).Inc()
}

func (m *Metrics) recordCorrupt(cache string) {
	if m == nil {
		return
	}
	m.corrupt.WithLabelValues(cache).Inc()
}

func (m *Metrics) recordInvalidation(cache string) {
	if m == nil {
		return
	}
	m.invalidations.WithLabelValues(cache).Inc()
}
