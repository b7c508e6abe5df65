package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"rfp-radar/pkg/ratelimit"
)

// IPRateLimiter is the HTTP adapter for IP-based rate limiting.
//
// It is a thin layer over pkg/ratelimit: it extracts the client IP with the
// configured IPExtractor, asks the limiter for a decision, sets the
// X-RateLimit-* response headers, and returns 429 Too Many Requests with a
// Retry-After header when the limit is exceeded.
//
// Failures in the limiter itself fail open: the request is allowed and the
// error is logged, so a rate limiter bug can never take the API down.
type IPRateLimiter struct {
	enabled     bool
	ipExtractor IPExtractor
	limiter     ratelimit.Limiter
}

// NewIPRateLimiter creates the middleware. When enabled is false the
// middleware passes every request through untouched.
func NewIPRateLimiter(enabled bool, ipExtractor IPExtractor, limiter ratelimit.Limiter) *IPRateLimiter {
	return &IPRateLimiter{
		enabled:     enabled,
		ipExtractor: ipExtractor,
		limiter:     limiter,
	}
}

// Middleware returns the http.Handler wrapper enforcing the limit.
func (rl *IPRateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.enabled || rl.limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip, err := rl.ipExtractor.ExtractIP(r)
			if err != nil {
				// Cannot identify the client, fail open.
				slog.Error("ip rate limiter: failed to extract IP, allowing request",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("path", r.URL.Path))
				next.ServeHTTP(w, r)
				return
			}

			decision, err := rl.limiter.IsAllowed(r.Context(), ip)
			if err != nil {
				slog.Error("ip rate limiter: check failed, allowing request",
					slog.String("error", err.Error()),
					slog.String("ip", ip),
					slog.String("path", r.URL.Path))
				next.ServeHTTP(w, r)
				return
			}

			rl.setRateLimitHeaders(w, decision)

			if decision.IsDenied() {
				rl.writeRateLimitError(w, r, decision)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *IPRateLimiter) setRateLimitHeaders(w http.ResponseWriter, decision *ratelimit.RateLimitDecision) {
	if decision == nil {
		return
	}

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAtUnix(), 10))
}

func (rl *IPRateLimiter) writeRateLimitError(w http.ResponseWriter, r *http.Request, decision *ratelimit.RateLimitDecision) {
	retryAfter := decision.RetryAfterSeconds()
	w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	response := map[string]interface{}{
		"error":       "rate_limit_exceeded",
		"message":     "Too many requests from this IP address",
		"retry_after": retryAfter,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("ip rate limiter: failed to encode JSON response",
			slog.String("error", err.Error()))
	}

	slog.Warn("rate limit exceeded",
		slog.String("key", decision.Key),
		slog.Int("limit", decision.Limit),
		slog.Int64("retry_after", retryAfter),
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method))
}
