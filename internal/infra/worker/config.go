package worker

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"rfp-radar/internal/pkg/config"
)

// WorkerConfig holds the configuration for the worker component.
// This configuration controls the claim-polling tick, run timeout,
// notification settings and the operational HTTP listener.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// When a run actually fires is not configured here: the schedule lives in
// the database and is claimed under lock, so any number of workers can run
// this configuration unchanged. The tick only controls how often this
// worker checks whether the schedule is due.
//
// All fields have sensible defaults and validation rules to ensure
// the worker can operate safely even with invalid or missing configuration.
//
// Example usage:
//
//	// Use defaults
//	config := DefaultConfig()
//
//	// Load from environment with fallback
//	config, err := LoadConfigFromEnv(logger, metrics)
//	if err != nil {
//	    // This should never happen with fail-open strategy
//	    log.Fatal("Unexpected configuration error: %v", err)
//	}
//
//	// Validate before use (optional, LoadConfigFromEnv already validates)
//	if err := config.Validate(); err != nil {
//	    log.Fatal("Invalid configuration: %v", err)
//	}
type WorkerConfig struct {
	// TickSchedule is the cron expression for the schedule claim poll.
	// Format: standard 5-field cron or a descriptor like "@every 1m"
	// Validation: Must parse with the robfig/cron parser
	// Default: "@every 1m"
	TickSchedule string

	// RunTimeout is the maximum duration for a single discovery run.
	// After this timeout, the run's context is cancelled and the pipeline
	// stops at the next item boundary.
	// Range: 1 minute - 4 hours
	// Default: 30 minutes
	RunTimeout time.Duration

	// NotifyMaxConcurrent is the maximum number of concurrent digest deliveries.
	// This controls how many delivery channels can be called simultaneously.
	// Range: 1-50
	// Default: 10
	NotifyMaxConcurrent int

	// MetricsAddr is the listen address for the operational HTTP server
	// serving /healthz, /readyz and /metrics.
	// Format: "host:port" or ":port"
	// Validation: Port must be 1024-65535 (avoid privileged ports)
	// Default: ":9091"
	MetricsAddr string
}

// DefaultConfig returns a WorkerConfig with sensible default values.
// These defaults are optimized for:
//   - Responsiveness: the schedule is checked every minute
//   - Safety: 30-minute timeout prevents stuck runs
//   - Performance: 10 concurrent deliveries balances throughput and resources
//   - Standard ports: 9091 for the operational endpoints (common Prometheus exporter port)
//
// Returns:
//   - WorkerConfig with production-ready default values
//
// Example:
//
//	config := DefaultConfig()
//	config.RunTimeout = 2 * time.Hour  // Customize for very slow portals
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		TickSchedule:        "@every 1m",      // Check the schedule every minute
		RunTimeout:          30 * time.Minute, // 30 minutes
		NotifyMaxConcurrent: 10,               // 10 concurrent deliveries
		MetricsAddr:         ":9091",          // Standard Prometheus exporter port
	}
}

// Validate checks if the configuration values are valid.
// This method validates each field using the reusable validators from internal/pkg/config.
// If multiple fields are invalid, all errors are collected and returned together.
//
// Validation rules:
//   - TickSchedule: Must be a valid cron expression or descriptor (validated by robfig/cron parser)
//   - RunTimeout: Must be positive (> 0)
//   - NotifyMaxConcurrent: Must be between 1 and 50 (inclusive)
//   - MetricsAddr: Must be a host:port with port 1024-65535
//
// Returns:
//   - error: nil if configuration is valid, aggregated error if any validation fails
//
// Example:
//
//	config := DefaultConfig()
//	if err := config.Validate(); err != nil {
//	    log.Fatal("Invalid configuration: %v", err)
//	}
func (c *WorkerConfig) Validate() error {
	var errors []error

	// Validate TickSchedule
	if err := config.ValidateCronSchedule(c.TickSchedule); err != nil {
		errors = append(errors, fmt.Errorf("tick schedule: %w", err))
	}

	// Validate RunTimeout (must be positive)
	if err := config.ValidatePositiveDuration(c.RunTimeout); err != nil {
		errors = append(errors, fmt.Errorf("run timeout: %w", err))
	}

	// Validate NotifyMaxConcurrent (range: 1-50)
	if err := config.ValidateIntRange(c.NotifyMaxConcurrent, 1, 50); err != nil {
		errors = append(errors, fmt.Errorf("notify max concurrent: %w", err))
	}

	// Validate MetricsAddr
	if err := validateListenAddr(c.MetricsAddr); err != nil {
		errors = append(errors, fmt.Errorf("metrics addr: %w", err))
	}

	// Return aggregated errors
	if len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	return nil
}

// LoadConfigFromEnv loads worker configuration from environment variables
// with validation and automatic fallback to default values on failure.
//
// This function implements the fail-open strategy:
//  1. Start with DefaultConfig() as base
//  2. Load each field from environment variables
//  3. Validate each loaded value
//  4. If validation fails: use default value, log warning, increment metrics
//  5. Never return error - always return a valid configuration
//
// Environment variables:
//   - WORKER_TICK_SCHEDULE: Cron expression or descriptor (default: "@every 1m")
//   - RUN_TIMEOUT: Duration string, e.g., "30m" (default: 30 minutes, range 1m-4h)
//   - NOTIFY_MAX_CONCURRENT: Integer 1-50 (default: 10)
//   - WORKER_METRICS_ADDR: Listen address, e.g., ":9091" (default: ":9091")
//
// Metrics updated:
//   - ValidationErrorsTotal: Incremented for each validation failure
//   - FallbacksTotal: Incremented for each fallback applied
//   - FallbackActive: Set to 1 if any fallback is active, 0 otherwise
//   - LoadTimestamp: Set to current time after successful load
//
// Parameters:
//   - logger: Structured logger for warnings
//   - metrics: Metrics instance for tracking fallbacks
//
// Returns:
//   - *WorkerConfig: Valid configuration (never nil)
//   - error: Always nil (fail-open strategy)
//
// Example:
//
//	logger := slog.Default()
//	metrics := NewWorkerMetrics()
//	config, _ := LoadConfigFromEnv(logger, metrics)
//	// config is always valid and ready to use
//
// Warning log format:
//
//	logger.Warn("Configuration fallback applied",
//	    slog.String("field", "TickSchedule"),
//	    slog.String("warning", "validation error message"))
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	// Start with default config
	cfg := DefaultConfig()
	fallbackApplied := false

	// Load TickSchedule
	result := config.LoadEnvWithFallback("WORKER_TICK_SCHEDULE", cfg.TickSchedule, config.ValidateCronSchedule)
	cfg.TickSchedule = result.Value.(string)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("tick_schedule")
		metrics.RecordFallback("tick_schedule", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "TickSchedule"),
				slog.String("warning", warning))
		}
	}

	// Load RunTimeout (with 1m-4h range limit)
	result = config.LoadEnvDuration("RUN_TIMEOUT", cfg.RunTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Minute, 4*time.Hour)
	})
	cfg.RunTimeout = result.Value.(time.Duration)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("run_timeout")
		metrics.RecordFallback("run_timeout", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "RunTimeout"),
				slog.String("warning", warning))
		}
	}

	// Load NotifyMaxConcurrent
	result = config.LoadEnvInt("NOTIFY_MAX_CONCURRENT", cfg.NotifyMaxConcurrent, func(v int) error {
		return config.ValidateIntRange(v, 1, 50)
	})
	cfg.NotifyMaxConcurrent = result.Value.(int)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("notify_max_concurrent")
		metrics.RecordFallback("notify_max_concurrent", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "NotifyMaxConcurrent"),
				slog.String("warning", warning))
		}
	}

	// Load MetricsAddr
	result = config.LoadEnvWithFallback("WORKER_METRICS_ADDR", cfg.MetricsAddr, validateListenAddr)
	cfg.MetricsAddr = result.Value.(string)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("metrics_addr")
		metrics.RecordFallback("metrics_addr", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "MetricsAddr"),
				slog.String("warning", warning))
		}
	}

	// Update metrics
	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	// Always return valid config (fail-open strategy)
	return &cfg, nil
}

// validateListenAddr validates a TCP listen address of the form "host:port"
// or ":port". The port must be numeric and outside the privileged range.
//
// Parameters:
//   - addr: Listen address to validate
//
// Returns:
//   - error: nil if valid, descriptive error otherwise
func validateListenAddr(addr string) error {
	if addr == "" {
		return fmt.Errorf("invalid listen address: cannot be empty")
	}

	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address '%s': %w", addr, err)
	}

	p, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid listen address '%s': port must be numeric", addr)
	}

	if err := config.ValidateIntRange(p, 1024, 65535); err != nil {
		return fmt.Errorf("invalid listen address '%s': %w", addr, err)
	}

	return nil
}
