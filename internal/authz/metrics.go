package authz

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains authorization metrics.
type Metrics struct {
	registerer prometheus.Registerer

	// decisionTotal counts authorization decisions.
	decisionTotal *prometheus.CounterVec

	// decisionDuration measures authorization decision duration.
	decisionDuration prometheus.Histogram
}

// NewMetrics creates new authorization metrics.
// Metrics are registered with prometheus.DefaultRegisterer so they are
// automatically exposed on the default /metrics endpoint.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates a new Metrics instance with a custom
// registerer. This is useful for registering metrics with the gateway's own
// registry so they appear on the gateway's /metrics endpoint.
func NewMetricsWithRegisterer(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "smsgw"
	}

	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		registerer: registerer,
	}

	m.decisionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "decision_total",
			Help:      "Total number of authorization decisions",
		},
		[]string{"decision", "reason"},
	)

	m.decisionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "decision_duration_seconds",
			Help:      "Authorization decision duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	// Register all metrics with the provided registerer, ignoring duplicates.
	collectors := []prometheus.Collector{
		m.decisionTotal,
		m.decisionDuration,
	}
	for _, c := range collectors {
		_ = registerer.Register(c)
	}

	return m
}

// RecordDecision records an authorization decision.
func (m *Metrics) RecordDecision(decision, reason string, duration time.Duration) {
	if m == nil || m.decisionTotal == nil {
		return
	}
	m.decisionTotal.WithLabelValues(decision, reason).Inc()
	m.decisionDuration.Observe(duration.Seconds())
}
