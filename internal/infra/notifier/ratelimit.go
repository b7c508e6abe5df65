package notifier

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter throttles outbound notification calls with a token bucket so a
// scan that finds dozens of opportunities does not flood the Slack and email
// providers.
type RateLimiter struct {
	rate    rate.Limit
	burst   int
	limiter *rate.Limiter
}

// NewRateLimiter builds a limiter sustaining requestsPerSecond with the given
// burst capacity. Up to burst sends go through immediately, then tokens refill
// at the sustained rate.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	r := rate.Limit(requestsPerSecond)
	return &RateLimiter{
		rate:    r,
		burst:   burst,
		limiter: rate.NewLimiter(r, burst),
	}
}

// Allow blocks until a token is available or ctx is done. Call it before each
// provider request.
func (r *RateLimiter) Allow(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
