package tracing

import (
	"net/http"

	"rfp-radar/internal/handler/http/pathutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// statusRecorder captures the status code for the span attributes.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Middleware wraps an HTTP handler in an OpenTelemetry server span.
//
// Incoming W3C Trace Context headers are honored, so a span started by an
// external caller continues through the admin API into the pipeline. The
// trace ID goes back to the client in X-Trace-Id; method, path and status
// land on the span, and a 5xx marks it as an error.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		carrier := propagation.HeaderCarrier(r.Header)
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), carrier)

		// パスは正規化して /rfps/<hash> を一つのオペレーション名に束ねる
		operation := r.Method + " " + pathutil.NormalizePath(r.URL.Path)
		ctx, span := tracer.Start(ctx, operation, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		w.Header().Set("X-Trace-Id", span.SpanContext().TraceID().String())

		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r.WithContext(ctx))

		attrs := []attribute.KeyValue{
			attribute.Int("http.status_code", sr.status),
			attribute.String("http.method", r.Method),
			attribute.String("http.path", r.URL.Path),
		}
		if sr.status >= 500 {
			attrs = append(attrs, attribute.Bool("error", true))
		}
		span.SetAttributes(attrs...)
	})
}
