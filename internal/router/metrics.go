package router

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains route table metrics.
type Metrics struct {
	registerer prometheus.Registerer

	// lookupsTotal counts route lookups by result.
	lookupsTotal *prometheus.CounterVec

	// tableSize tracks the number of registered route mappings.
	tableSize prometheus.Gauge

	// registrations counts route registrations, replacements included.
	registrations prometheus.Counter
}

// NewMetrics creates new route table metrics.
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

	m.lookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "lookups_total",
			Help:      "Total number of route lookups",
		},
		[]string{"result"},
	)

	m.tableSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "table_size",
			Help:      "Current number of registered route mappings",
		},
	)

	m.registrations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "registrations_total",
			Help:      "Total number of route registrations",
		},
	)

	// Register all metrics with the provided registerer, ignoring duplicates.
	collectors := []prometheus.Collector{
		m.lookupsTotal,
		m.tableSize,
		m.registrations,
	}
	for _, c := range collectors {
		_ = registerer.Register(c)
	}

	return m
}

// RecordLookup records a route lookup outcome.
func (m *Metrics) RecordLookup(result string) {
	if m == nil || m.lookupsTotal == nil {
		return
	}
	m.lookupsTotal.WithLabelValues(result).Inc()
}

// RecordRegistration records a route registration and the resulting
// table size.
func (m *Metrics) RecordRegistration(size int) {
	if m == nil || m.registrations == nil {
		return
	}
	m.registrations.Inc()
	m.tableSize.Set(float64(size))
}
