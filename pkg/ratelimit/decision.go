package ratelimit

import (
	"fmt"
	"time"
)

// RateLimitDecision is the outcome of a single rate limit check, with the
// metadata needed to fill in the X-RateLimit-* response headers.
type RateLimitDecision struct {
	// Key identifies the limited client, the client IP in practice.
	Key string

	// Allowed reports whether the request may proceed.
	Allowed bool

	// Limit is the maximum request count for the window.
	Limit int

	// Remaining is how many requests are left in the current window.
	Remaining int

	// ResetAt is when the current window ends.
	ResetAt time.Time

	// RetryAfter is how long a denied client should wait before retrying.
	RetryAfter time.Duration
}

func (d *RateLimitDecision) String() string {
	if d.Allowed {
		return fmt.Sprintf(
			"RateLimitDecision{Allowed: true, Key: %s, Remaining: %d/%d, ResetAt: %s}",
			d.Key, d.Remaining, d.Limit, d.ResetAt.Format(time.RFC3339),
		)
	}
	return fmt.Sprintf(
		"RateLimitDecision{Allowed: false, Key: %s, Limit: %d, RetryAfter: %s, ResetAt: %s}",
		d.Key, d.Limit, d.RetryAfter.String(), d.ResetAt.Format(time.RFC3339),
	)
}

// IsDenied reports whether the request was rejected.
func (d *RateLimitDecision) IsDenied() bool {
	return !d.Allowed
}

// ResetAtUnix returns the window reset time as a Unix timestamp, in the
// shape the X-RateLimit-Reset header expects.
func (d *RateLimitDecision) ResetAtUnix() int64 {
	return d.ResetAt.Unix()
}

// RetryAfterSeconds returns the retry delay in whole seconds for the
// Retry-After header, never negative.
func (d *RateLimitDecision) RetryAfterSeconds() int64 {
	seconds := int64(d.RetryAfter.Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}

func untilReset(resetAt time.Time) time.Duration {
	retryAfter := time.Until(resetAt)
	if retryAfter < 0 {
		return 0
	}
	return retryAfter
}

// NewAllowedDecision builds the decision for a permitted request.
func NewAllowedDecision(key string, limit, remaining int, resetAt time.Time) *RateLimitDecision {
	return &RateLimitDecision{
		Key:        key,
		Allowed:    true,
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    resetAt,
		RetryAfter: untilReset(resetAt),
	}
}

// NewDeniedDecision builds the decision for a rejected request.
func NewDeniedDecision(key string, limit int, resetAt time.Time) *RateLimitDecision {
	return &RateLimitDecision{
		Key:        key,
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: untilReset(resetAt),
	}
}
