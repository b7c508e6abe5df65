package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements the MetricsRecorder interface using Prometheus.
//
// All metrics use a custom registry for better testability and isolation.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// requestsTotal tracks total rate limit requests by status.
	// Labels:
	//   - status: "allowed" or "denied"
	requestsTotal *prometheus.CounterVec

	// activeKeys tracks the current number of keys in the rate limiter.
	activeKeys prometheus.Gauge

	// cleanupRemovedTotal tracks the total number of entries removed by
	// periodic cleanup.
	cleanupRemovedTotal prometheus.Counter
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance with a custom registry.
//
// Using a custom registry (instead of the global prometheus.DefaultRegisterer) provides:
// - Better testability (isolated metrics per test)
// - No metric conflicts when running multiple instances
//
// The registry can be passed to promhttp.HandlerFor() to expose metrics.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	m := &PrometheusMetrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratelimit_requests_total",
				Help: "Total number of rate limit checks by status.",
			},
			[]string{"status"},
		),
		activeKeys: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ratelimit_active_keys",
				Help: "Current number of keys tracked by the rate limiter.",
			},
		),
		cleanupRemovedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ratelimit_cleanup_removed_total",
				Help: "Total number of expired entries removed by cleanup.",
			},
		),
	}

	registry.MustRegister(m.requestsTotal, m.activeKeys, m.cleanupRemovedTotal)
	return m
}

// Registry returns the custom registry holding the limiter metrics.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordDecision counts the check outcome.
func (m *PrometheusMetrics) RecordDecision(decision *RateLimitDecision) {
	status := "allowed"
	if decision.IsDenied() {
		status = "denied"
	}
	m.requestsTotal.WithLabelValues(status).Inc()
}

// RecordCleanup counts removed entries and updates the key gauge.
func (m *PrometheusMetrics) RecordCleanup(removed, remaining int) {
	m.cleanupRemovedTotal.Add(float64(removed))
	m.activeKeys.Set(float64(remaining))
}
