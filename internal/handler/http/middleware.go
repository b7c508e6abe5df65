package http

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"

	"rfp-radar/internal/handler/http/requestid"
	"rfp-radar/internal/handler/http/respond"
	"rfp-radar/internal/handler/http/responsewriter"

	"go.opentelemetry.io/otel/trace"
)

// Logging returns access-log middleware. Each completed request is logged
// with its request ID and OpenTelemetry trace ID, so a scan triggered over
// the API can be followed from the access log into the pipeline spans.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// ステータスとサイズを拾うためにラップする
			wrapped := responsewriter.Wrap(w)

			next.ServeHTTP(wrapped, r)

			reqID := requestid.FromContext(r.Context())

			span := trace.SpanFromContext(r.Context())
			traceID := span.SpanContext().TraceID().String()

			duration := time.Since(start)

			logger.Info("request completed",
				slog.String("request_id", reqID),
				slog.String("trace_id", traceID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("query", r.URL.RawQuery),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.Header.Get("User-Agent")),
				slog.Int("status", wrapped.StatusCode()),
				slog.Int("bytes", wrapped.BytesWritten()),
				slog.Duration("duration", duration),
				slog.String("duration_ms", fmt.Sprintf("%.2f", duration.Seconds()*1000)),
			)
		})
	}
}

// Recover returns middleware that turns a handler panic into a 500 and a
// structured error log instead of killing the process.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					reqID := requestid.FromContext(r.Context())

					stack := string(debug.Stack())

					respond.SafeError(
						w,
						http.StatusInternalServerError,
						fmt.Errorf("internal error"),
					)

					logger.Error("panic recovered",
						slog.String("request_id", reqID),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.Any("panic", rec),
						slog.String("stack", stack),
					)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// LimitRequestBody caps request body size via http.MaxBytesReader.
func LimitRequestBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// requestRecord holds the request timestamps for one client IP.
type requestRecord struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// RateLimiter is sliding-window, per-IP rate limiting. It backstops the
// expensive endpoints: a scan trigger or a semantic search costs LLM calls,
// so uncapped clients get expensive fast.
type RateLimiter struct {
	records   sync.Map // map[string]*requestRecord
	limit     int      // 時間窓あたりの最大リクエスト数
	window    time.Duration
	cleanMu   sync.Mutex
	lastClean time.Time
}

// NewRateLimiter builds a limiter allowing limit requests per window,
// e.g. limit=5, window=time.Minute for 5 req/min.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:     limit,
		window:    window,
		lastClean: time.Now(),
	}
}

// Limit enforces the per-IP limit, answering 429 when it is exceeded.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)

		// 古いレコードを定期的に掃除してメモリリークを防ぐ
		rl.periodicCleanup()

		if !rl.allow(ip) {
			respond.SafeError(w, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allow records the request timestamp and reports whether it fits in the
// window.
func (rl *RateLimiter) allow(ip string) bool {
	now := time.Now()

	val, _ := rl.records.LoadOrStore(ip, &requestRecord{
		timestamps: make([]time.Time, 0, rl.limit),
	})
	record := val.(*requestRecord)

	record.mu.Lock()
	defer record.mu.Unlock()

	// タイムスタンプは追記順で昇順なので、窓内に残る最初の位置から
	// 詰め直すだけでよい
	cutoff := now.Add(-rl.window)
	keep := 0
	for keep < len(record.timestamps) && !record.timestamps[keep].After(cutoff) {
		keep++
	}
	record.timestamps = append(record.timestamps[:0], record.timestamps[keep:]...)

	if len(record.timestamps) >= rl.limit {
		return false
	}

	record.timestamps = append(record.timestamps, now)
	return true
}

// periodicCleanup drops stale per-IP records at most once every 10 minutes.
func (rl *RateLimiter) periodicCleanup() {
	rl.cleanMu.Lock()
	defer rl.cleanMu.Unlock()

	if time.Since(rl.lastClean) < 10*time.Minute {
		return
	}

	rl.lastClean = time.Now()
	cutoff := time.Now().Add(-rl.window * 2) // 窓の2倍より古いものは不要

	rl.records.Range(func(key, value interface{}) bool {
		record := value.(*requestRecord)
		record.mu.Lock()
		// 全タイムスタンプが古ければレコードごと削除
		stale := !slices.ContainsFunc(record.timestamps, func(ts time.Time) bool {
			return ts.After(cutoff)
		})
		record.mu.Unlock()

		if stale {
			rl.records.Delete(key)
		}
		return true
	})
}

// extractIP resolves the client IP, preferring X-Forwarded-For, then
// X-Real-IP, then RemoteAddr.
func extractIP(r *http.Request) string {
	// リバースプロキシ経由を想定して X-Forwarded-For を優先
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// 先頭がクライアントの IP
		if ip := parseFirstIP(xff); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseFirstIP parses the first address of a comma-separated list.
func parseFirstIP(s string) string {
	first, _, _ := strings.Cut(s, ",")
	if ip := net.ParseIP(first); ip != nil {
		return ip.String()
	}
	return ""
}
