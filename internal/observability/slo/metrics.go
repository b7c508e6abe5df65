package slo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SLO targets for the admin API. The API is an internal operations
// surface, so the targets are more relaxed than a user-facing service
// would need.
const (
	// AvailabilitySLO is the target uptime percentage (99.5% allows roughly
	// 3.6 hours of downtime per month).
	AvailabilitySLO = 99.5

	// LatencyP95SLO is the p95 latency target in seconds. List endpoints
	// return full RFP summaries, so responses are not tiny.
	LatencyP95SLO = 0.300

	// LatencyP99SLO is the p99 latency target in seconds.
	LatencyP99SLO = 0.800

	// ErrorRateSLO is the maximum acceptable 5xx ratio.
	ErrorRateSLO = 0.005
)

// Gauges published by the Tracker on every flush. Ratios are 0-1,
// latencies are seconds.
var (
	SLOAvailability = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slo_availability_ratio",
		Help: "Current availability ratio (0-1), target: 0.995",
	})

	SLOLatencyP95 = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slo_latency_p95_seconds",
		Help: "Current p95 latency in seconds, target: 0.300",
	})

	SLOLatencyP99 = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slo_latency_p99_seconds",
		Help: "Current p99 latency in seconds, target: 0.800",
	})

	SLOErrorRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slo_error_rate_ratio",
		Help: "Current error rate ratio (0-1), target: 0.005",
	})
)

// UpdateAvailability publishes (total - 5xx) / total for the current window.
func UpdateAvailability(ratio float64) {
	SLOAvailability.Set(ratio)
}

// UpdateLatencyP95 publishes the window's p95 latency in seconds.
func UpdateLatencyP95(seconds float64) {
	SLOLatencyP95.Set(seconds)
}

// UpdateLatencyP99 publishes the window's p99 latency in seconds.
func UpdateLatencyP99(seconds float64) {
	SLOLatencyP99.Set(seconds)
}

// UpdateErrorRate publishes 5xx / total for the current window.
func UpdateErrorRate(ratio float64) {
	SLOErrorRate.Set(ratio)
}
