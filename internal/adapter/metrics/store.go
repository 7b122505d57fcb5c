package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics holds Prometheus metrics for poll store backends.
type StoreMetrics struct {
	Operations     *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
	CircuitState   *prometheus.GaugeVec
	CircuitChanges *prometheus.CounterVec
}

// NewStoreMetrics creates and registers store metrics on the given registry.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of store operations, by backend, operation and status.",
		}, []string{"backend", "op", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of store operations in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"backend", "op"}),
		CircuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"backend"}),
		CircuitChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "circuit_breaker_state_changes_total",
			Help:      "Total number of circuit breaker state changes, by backend and new state.",
		}, []string{"backend", "state"}),
	}

	reg.MustRegister(m.Operations, m.Duration, m.CircuitState, m.CircuitChanges)
	return m
}

// Observe records one store operation. A nil receiver is a no-op.
func (m *StoreMetrics) Observe(backend, op string, started time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.Operations.WithLabelValues(backend, op, status).Inc()
	m.Duration.WithLabelValues(backend, op).Observe(time.Since(started).Seconds())
}
