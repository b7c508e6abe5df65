package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// 全パッケージ共通のトレーサー。パイプラインの各段はここからスパンを切る。
var tracer = otel.Tracer("rfp-radar")

// GetTracer returns the process-wide tracer.
//
//	ctx, span := tracing.GetTracer().Start(ctx, "analyze-listing")
//	defer span.End()
func GetTracer() trace.Tracer {
	return tracer
}
