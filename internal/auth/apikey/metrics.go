package apikey

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains API key validation metrics.
type Metrics struct {
	registerer prometheus.Registerer

	// validationTotal counts API key validation attempts.
	validationTotal *prometheus.CounterVec

	// validationDuration measures API key validation duration.
	validationDuration prometheus.Histogram

	// storeKeys tracks the number of keys held by the store.
	storeKeys prometheus.Gauge
}

// NewMetrics creates new API key metrics.
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

	m.validationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "apikey",
			Name:      "validation_total",
			Help:      "Total number of API key validation attempts",
		},
		[]string{"result", "reason"},
	)

	m.validationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "apikey",
			Name:      "validation_duration_seconds",
			Help:      "API key validation duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	m.storeKeys = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "apikey",
			Name:      "store_keys",
			Help:      "Number of API keys held by the key store",
		},
	)

	// Register all metrics with the provided registerer, ignoring duplicates.
	collectors := []prometheus.Collector{
		m.validationTotal,
		m.validationDuration,
		m.storeKeys,
	}
	for _, c := range collectors {
		_ = registerer.Register(c)
	}

	return m
}

// RecordValidation records an API key validation attempt.
func (m *Metrics) RecordValidation(result, reason string, duration time.Duration) {
	if m == nil || m.validationTotal == nil {
		return
	}
	m.validationTotal.WithLabelValues(result, reason).Inc()
	m.validationDuration.Observe(duration.Seconds())
}

// SetStoreKeys sets the number of keys held by the store.
func (m *Metrics) SetStoreKeys(count int) {
	if m == nil || m.storeKeys == nil {
		return
	}
	m.storeKeys.Set(float64(count))
}
