// Package requestid tags every HTTP request with an ID so a scan trigger,
// its pipeline logs, and the eventual response can be correlated.
package requestid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	// RequestIDKey is the context key under which the ID is stored.
	RequestIDKey contextKey = "request_id"
	// RequestIDHeader carries the ID on requests and responses.
	RequestIDHeader = "X-Request-ID"
)

// FromContext returns the request ID in ctx, or "" when absent.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithRequestID returns a context carrying the given request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// Middleware propagates an incoming X-Request-ID or mints a UUID v4 when the
// header is missing. The ID goes into both the response header and the
// request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		// クライアント側でも追跡できるようレスポンスにも付与
		w.Header().Set(RequestIDHeader, requestID)

		ctx := WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
