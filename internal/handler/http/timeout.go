package http

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Timeout returns middleware that bounds a request to the given duration and
// answers 504 Gateway Timeout once it is exceeded. It is applied to routes
// that block on model calls (semantic search, Q&A), where a stuck upstream
// would otherwise hold the connection open indefinitely. The request context
// is canceled on timeout so the handler's downstream calls unwind.
//
// Exactly one side writes the response: the handler goroutine and the timeout
// branch share a mutex, and whichever writes first wins.
func Timeout(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()
			r = r.WithContext(ctx)

			tw := &timeoutResponseWriter{ResponseWriter: w}

			done := make(chan struct{})
			go func() {
				next.ServeHTTP(tw, r)
				close(done)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				tw.writeTimeout()
			}
		})
	}
}

// timeoutResponseWriter suppresses handler writes once the 504 has been sent.
type timeoutResponseWriter struct {
	http.ResponseWriter
	mu       sync.Mutex
	timedOut bool
	written  bool
}

// writeTimeout sends the 504 body unless the handler already responded.
func (w *timeoutResponseWriter) writeTimeout() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.timedOut = true
	if w.written {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.ResponseWriter.WriteHeader(http.StatusGatewayTimeout)
	_, _ = w.ResponseWriter.Write([]byte(`{"error":"request timeout"}`))
}

func (w *timeoutResponseWriter) WriteHeader(statusCode int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.timedOut && !w.written {
		w.written = true
		w.ResponseWriter.WriteHeader(statusCode)
	}
}

func (w *timeoutResponseWriter) Write(data []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if !w.written {
		w.written = true
		w.ResponseWriter.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}
