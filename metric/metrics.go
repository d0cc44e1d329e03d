// Package metric provides Prometheus instrumentation for store operations.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics tracks volume, failures, and latency of triple-store calls.
type StoreMetrics struct {
	operations *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewStoreMetrics creates the collectors and registers them with reg.
// A nil registerer leaves the collectors unregistered, which keeps tests
// and embedded uses free of global registry collisions.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "semgraph_store_operations_total",
			Help: "Total store protocol calls by operation.",
		}, []string{"operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "semgraph_store_failures_total",
			Help: "Failed store protocol calls by operation.",
		}, []string{"operation"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "semgraph_store_duration_seconds",
			Help:    "Store protocol call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.failures, m.duration)
	}
	return m
}

// Observe records one completed call. Safe on a nil receiver so callers can
// leave metrics unwired.
func (m *StoreMetrics) Observe(operation string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation).Inc()
	if err != nil {
		m.failures.WithLabelValues(operation).Inc()
	}
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
