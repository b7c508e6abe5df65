// Package tracing provides OpenTelemetry tracing integration.
//
// The HTTP middleware extracts W3C trace context from incoming requests,
// opens a server span per request, and echoes the trace ID back in the
// X-Trace-Id response header. Exporter wiring (Jaeger, OTLP) is left to
// the deployment; without a configured provider the spans are no-ops.
//
// Example usage:
//
//	import "rfp-radar/internal/observability/tracing"
//
//	func crawlSite(ctx context.Context, site *entity.Website) {
//	    ctx, span := tracing.GetTracer().Start(ctx, "crawl-site")
//	    defer span.End()
//	    // ... crawl the listing ...
//	}
package tracing
