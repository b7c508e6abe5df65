package ratelimit

import (
	"context"
	"time"
)

// Clock provides time operations for testability.
//
// Production code uses SystemClock; tests inject a fixed or stepping clock
// to exercise window boundaries deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time.
type SystemClock struct{}

// Now returns the current system time.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	// IsAllowed checks the request against the limit and records it when
	// allowed. The returned decision always carries limit metadata so the
	// caller can populate X-RateLimit-* response headers.
	IsAllowed(ctx context.Context, key string) (*RateLimitDecision, error)
}

// MetricsRecorder receives rate limiter events for monitoring.
type MetricsRecorder interface {
	// RecordDecision is called after every rate limit check.
	RecordDecision(decision *RateLimitDecision)

	// RecordCleanup is called after a cleanup pass with the number of
	// entries removed and the number of keys still tracked.
	RecordCleanup(removed, remaining int)
}
