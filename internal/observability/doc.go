// Package observability provides production-grade observability infrastructure
// including structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// This package centralizes observability concerns to enable:
//   - Request tracing across service boundaries
//   - Structured logging with context propagation
//   - Prometheus metrics for monitoring
//   - SLO tracking for the admin API
//
// Subpackages:
//   - logging: Structured logging utilities with slog, plus the per-run
//     log buffer that feeds the debug digest email
//   - metrics: Prometheus metrics registry and recorders
//   - tracing: OpenTelemetry tracing integration
//   - slo: SLO targets and the sliding-window tracker behind them
//
// Example usage:
//
//	import (
//	    "rfp-radar/internal/observability/logging"
//	    "rfp-radar/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("application started")
//
//	    metrics.RecordItemsDiscovered("Example Agency", 10)
//	}
package observability
