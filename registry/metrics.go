package registry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Cache names used as the "cache" label.
const (
	CacheClass = "class"
	CacheField = "field"
)

// Lookup results used as the "result" label.
const (
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultFailure = "failure"
)

// Metrics counts registry lookups. A nil *Metrics records nothing.
type Metrics struct {
	lookups *prometheus.CounterVec
}

// NewMetrics creates registry metrics and registers them with reg.
// A nil reg leaves the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "heapbind",
			Subsystem: "registry",
			Name:      "lookups_total",
			Help:      "Class and field lookups by cache and result.",
		}, []string{"cache", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.lookups)
	}
	return m
}

func (m *Metrics) observe(cache, result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(cache, result).Inc()
}

// Collector exposes the underlying counter for tests and custom registries.
func (m *Metrics) Collector() prometheus.Collector {
	return m.lookups
}
