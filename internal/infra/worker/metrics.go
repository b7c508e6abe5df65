package worker

import (
	"rfp-radar/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics provides Prometheus metrics for the worker component.
// It embeds the standard ConfigMetrics for configuration monitoring and adds
// worker-specific metrics for schedule claiming and run execution tracking.
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp: Unix timestamp of last configuration load
//   - worker_config_validation_errors_total: Total validation errors by field
//   - worker_config_fallbacks_total: Total fallback operations by field
//   - worker_config_fallback_active: 1 if any fallback active, 0 otherwise
//
// Worker-specific metrics:
//   - worker_ticks_total: Total schedule claim attempts by result (claimed/idle/error)
//   - worker_runs_total: Total discovery runs by status (started/success/failure)
//   - worker_run_duration_seconds: Duration histogram of discovery run execution
//   - worker_run_sites_processed_total: Total sites covered across runs
//   - worker_run_new_rfps_total: Total newly stored opportunities across runs
//   - worker_run_last_success_timestamp: Unix timestamp of last successful run
//
// Example usage:
//
//	metrics := NewWorkerMetrics()
//	metrics.MustRegister()
//
//	// Record a claim attempt
//	metrics.RecordTick("claimed")
//
//	// Record run execution
//	start := time.Now()
//	defer func() {
//	    metrics.RecordRunDuration(time.Since(start).Seconds())
//	    metrics.RecordRun("success")
//	    metrics.RecordLastSuccess()
//	}()
type WorkerMetrics struct {
	// Embedded configuration metrics
	*config.ConfigMetrics

	// TicksTotal counts schedule claim attempts.
	// Type: Counter
	// Labels: result (claimed, idle, error)
	// Usage: Increment on every tick with the claim outcome
	TicksTotal *prometheus.CounterVec

	// RunsTotal counts discovery runs.
	// Type: Counter
	// Labels: status (started, success, failure)
	// Usage: Increment when a run starts and again with its outcome
	RunsTotal *prometheus.CounterVec

	// RunDurationSeconds measures the duration of discovery run execution.
	// Type: Histogram
	// Labels: none
	// Buckets: 1s, 5s, 30s, 1m, 5m, 15m, 30m (LLM-paced runs sit at the high end)
	// Usage: Observe duration at the end of each run
	RunDurationSeconds prometheus.Histogram

	// RunSitesProcessedTotal counts the sites covered per run.
	// Type: Counter
	// Labels: none
	// Usage: Add the site count after each successful run
	RunSitesProcessedTotal prometheus.Counter

	// RunNewRfpsTotal counts newly stored opportunities.
	// Type: Counter
	// Labels: none
	// Usage: Add the new count after each successful run
	RunNewRfpsTotal prometheus.Counter

	// RunLastSuccessTimestamp records the Unix timestamp of the last successful run.
	// Type: Gauge
	// Labels: none
	// Usage: Set to current time when a run completes successfully
	RunLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates a new WorkerMetrics instance with all metrics initialized.
// Metrics are created but not registered with Prometheus. Call MustRegister() to register.
//
// Returns:
//   - *WorkerMetrics: Initialized metrics ready for registration
//
// Example:
//
//	metrics := NewWorkerMetrics()
//	metrics.MustRegister()  // Register with Prometheus
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		TicksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_ticks_total",
			Help: "Total number of schedule claim attempts by result (claimed/idle/error)",
		}, []string{"result"}),

		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Total number of discovery runs by status (started/success/failure)",
		}, []string{"status"}),

		RunDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_run_duration_seconds",
			Help:    "Duration of discovery run execution in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800}, // 1s, 5s, 30s, 1m, 5m, 15m, 30m
		}),

		RunSitesProcessedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_run_sites_processed_total",
			Help: "Total number of sites covered across all discovery runs",
		}),

		RunNewRfpsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_run_new_rfps_total",
			Help: "Total number of newly stored opportunities across all discovery runs",
		}),

		RunLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_run_last_success_timestamp",
			Help: "Unix timestamp of the last successful discovery run",
		}),
	}
}

// MustRegister is a no-op method for API compatibility.
// Metrics are automatically registered via promauto when created in NewWorkerMetrics.
//
// This method exists to maintain consistency with the expected metrics initialization pattern:
//
//	metrics := NewWorkerMetrics()
//	metrics.MustRegister()
//
// Even though registration happens automatically, this explicit call makes the
// initialization intent clear and maintains compatibility with future changes.
func (m *WorkerMetrics) MustRegister() {
	// No-op: metrics are auto-registered via promauto
}

// RecordTick increments the tick counter for the given claim result.
// Result should be "claimed", "idle" or "error".
//
// Parameters:
//   - result: Claim attempt outcome ("claimed", "idle", "error")
//
// Example:
//
//	claimed, _, err := scheduleService.Claim(ctx)
//	switch {
//	case err != nil:
//	    metrics.RecordTick("error")
//	case !claimed:
//	    metrics.RecordTick("idle")
//	default:
//	    metrics.RecordTick("claimed")
//	}
func (m *WorkerMetrics) RecordTick(result string) {
	m.TicksTotal.WithLabelValues(result).Inc()
}

// RecordRun increments the run counter for the given status.
// Status should be "started", "success" or "failure".
//
// Parameters:
//   - status: Run execution status ("started", "success", "failure")
//
// Example:
//
//	metrics.RecordRun("started")
//	if err := runDiscovery(); err != nil {
//	    metrics.RecordRun("failure")
//	} else {
//	    metrics.RecordRun("success")
//	}
func (m *WorkerMetrics) RecordRun(status string) {
	m.RunsTotal.WithLabelValues(status).Inc()
}

// RecordRunDuration observes the duration of a discovery run.
// Duration should be in seconds.
//
// Parameters:
//   - seconds: Run execution duration in seconds
//
// Example:
//
//	start := time.Now()
//	// ... execute run ...
//	metrics.RecordRunDuration(time.Since(start).Seconds())
func (m *WorkerMetrics) RecordRunDuration(seconds float64) {
	m.RunDurationSeconds.Observe(seconds)
}

// RecordSitesProcessed adds the number of sites covered to the total counter.
//
// Parameters:
//   - count: Number of sites covered in this run
func (m *WorkerMetrics) RecordSitesProcessed(count int) {
	m.RunSitesProcessedTotal.Add(float64(count))
}

// RecordNewRfps adds the number of newly stored opportunities to the total counter.
//
// Parameters:
//   - count: Number of opportunities stored in this run
//
// Example:
//
//	stats, err := scrapeService.Run(ctx, opts)
//	if err == nil {
//	    metrics.RecordSitesProcessed(stats.Sites)
//	    metrics.RecordNewRfps(stats.NewCount)
//	}
func (m *WorkerMetrics) RecordNewRfps(count int) {
	m.RunNewRfpsTotal.Add(float64(count))
}

// RecordLastSuccess records the current time as the last successful run completion.
//
// Example:
//
//	if err := runDiscovery(); err == nil {
//	    metrics.RecordLastSuccess()
//	}
func (m *WorkerMetrics) RecordLastSuccess() {
	m.RunLastSuccessTimestamp.SetToCurrentTime()
}
