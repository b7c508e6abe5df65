package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// RateLimiter is a sliding-window per-IP limiter. The token endpoint and the
// semantic search endpoints each get their own instance with different
// limits, since one guards brute force and the other guards embedding spend.
type RateLimiter struct {
	limit  int           // max requests per IP within the window
	window time.Duration // sliding window length

	ipExtractor IPExtractor

	mu       sync.RWMutex
	requests map[string][]time.Time // timestamps per client IP
}

// NewRateLimiter creates a RateLimiter allowing limit requests per window
// for each client IP. The extractor decides what counts as the client IP:
// RemoteAddrExtractor trusts the socket peer, TrustedProxyExtractor honors
// forwarding headers from configured proxies.
func NewRateLimiter(limit int, window time.Duration, ipExtractor IPExtractor) *RateLimiter {
	return &RateLimiter{
		limit:       limit,
		window:      window,
		ipExtractor: ipExtractor,
		requests:    make(map[string][]time.Time),
	}
}

// Middleware enforces the limit, answering 429 Too Many Requests once an IP
// exceeds it. If the configured extractor fails, RemoteAddr is used as the
// fallback identity rather than letting the request bypass limiting.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, err := rl.ipExtractor.ExtractIP(r)
		if err != nil {
			slog.Warn("rate limiter: IP extraction failed, using RemoteAddr fallback",
				slog.String("error", err.Error()),
				slog.String("remote_addr", r.RemoteAddr),
			)
			ip, err = extractIPFromAddr(r.RemoteAddr)
			if err != nil {
				slog.Error("rate limiter: RemoteAddr extraction failed",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
		}

		if !rl.allow(ip) {
			slog.Warn("rate limit exceeded",
				slog.String("ip", ip),
				slog.String("path", r.URL.Path),
				slog.Int("limit", rl.limit),
				slog.Duration("window", rl.window),
			)
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allow drops timestamps older than the window, then admits the request only
// if the remaining count is below the limit.
func (rl *RateLimiter) allow(ip string) bool {
	now := time.Now()
	cutoff := now.Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	timestamps := rl.requests[ip]

	var valid []time.Time
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[ip] = valid
		return false
	}

	valid = append(valid, now)
	rl.requests[ip] = valid
	return true
}

// CleanupExpired drops idle IPs and their stale timestamps. The server runs
// this on a ticker so the map does not grow without bound under churny
// traffic.
func (rl *RateLimiter) CleanupExpired() {
	cutoff := time.Now().Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, timestamps := range rl.requests {
		var valid []time.Time
		for _, ts := range timestamps {
			if ts.After(cutoff) {
				valid = append(valid, ts)
			}
		}

		if len(valid) == 0 {
			delete(rl.requests, ip)
		} else {
			rl.requests[ip] = valid
		}
	}

	slog.Debug("rate limiter: cleanup completed",
		slog.Int("active_ips", len(rl.requests)),
	)
}
