package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SlidingWindowLimiter implements IP-based rate limiting with a sliding
// window over recorded request timestamps.
//
// Unlike a fixed window, the sliding window never admits a burst of
// 2×limit around a window boundary: the count is always taken over the
// trailing window ending at the current request.
//
// Clock skew protection: if the clock goes backwards (NTP adjustment,
// manual change), the limiter keeps using the last seen timestamp per key
// so a time jump cannot reset the window.
type SlidingWindowLimiter struct {
	store   *InMemoryRateLimitStore
	clock   Clock
	limit   int
	window  time.Duration
	metrics MetricsRecorder

	mu             sync.Mutex
	lastTimestamps map[string]time.Time

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewSlidingWindowLimiter creates a limiter from the given configuration.
//
// A nil metrics recorder disables metric recording. The cleanup goroutine is
// not started automatically; call StartCleanup.
func NewSlidingWindowLimiter(config *RateLimitConfig, clock Clock, metrics MetricsRecorder) *SlidingWindowLimiter {
	if config == nil {
		config = DefaultConfig()
	}
	if clock == nil {
		clock = &SystemClock{}
	}
	if metrics == nil {
		metrics = NewNoOpMetrics()
	}

	return &SlidingWindowLimiter{
		store:          NewInMemoryRateLimitStore(config.MaxActiveKeys),
		clock:          clock,
		limit:          config.DefaultIPLimit,
		window:         config.DefaultIPWindow,
		metrics:        metrics,
		lastTimestamps: make(map[string]time.Time),
		stopCleanup:    make(chan struct{}),
	}
}

// IsAllowed checks whether the request identified by key is within the
// limit, recording it when allowed.
func (l *SlidingWindowLimiter) IsAllowed(ctx context.Context, key string) (*RateLimitDecision, error) {
	now := l.validTimestamp(key)
	cutoff := now.Add(-l.window)
	resetAt := now.Add(l.window)

	allowed, count := l.store.CheckAndAdd(key, now, cutoff, l.limit)

	var decision *RateLimitDecision
	if allowed {
		decision = NewAllowedDecision(key, l.limit, l.limit-count, resetAt)
	} else {
		decision = NewDeniedDecision(key, l.limit, resetAt)
		decision.RetryAfter = resetAt.Sub(now)
	}

	l.metrics.RecordDecision(decision)
	return decision, nil
}

// validTimestamp returns the current time, clamped so it never goes
// backwards for a given key.
func (l *SlidingWindowLimiter) validTimestamp(key string) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if lastSeen, exists := l.lastTimestamps[key]; exists && now.Before(lastSeen) {
		slog.Warn("clock skew detected, using last valid timestamp",
			slog.String("key", key),
			slog.Time("now", now),
			slog.Time("last_seen", lastSeen),
			slog.Duration("skew", lastSeen.Sub(now)),
		)
		return lastSeen
	}

	l.lastTimestamps[key] = now
	return now
}

// StartCleanup launches a background goroutine that periodically removes
// expired entries. Call StopCleanup during shutdown.
func (l *SlidingWindowLimiter) StartCleanup(interval, maxAge time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if maxAge <= 0 {
		maxAge = 1 * time.Hour
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				now := l.clock.Now()
				removed, remaining := l.store.Cleanup(now, maxAge)
				l.cleanupTimestamps(now, maxAge)
				l.metrics.RecordCleanup(removed, remaining)
				if removed > 0 {
					slog.Debug("rate limiter cleanup",
						slog.Int("removed", removed),
						slog.Int("remaining", remaining))
				}
			case <-l.stopCleanup:
				return
			}
		}
	}()
}

// StopCleanup stops the background cleanup goroutine. Safe to call more
// than once.
func (l *SlidingWindowLimiter) StopCleanup() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}

// cleanupTimestamps removes clock skew tracking for stale keys.
func (l *SlidingWindowLimiter) cleanupTimestamps(now time.Time, maxAge time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-maxAge)
	for key, ts := range l.lastTimestamps {
		if ts.Before(cutoff) {
			delete(l.lastTimestamps, key)
		}
	}
}

// TrackedKeys returns the number of keys currently tracked in the store.
//
// This is useful for monitoring memory usage.
func (l *SlidingWindowLimiter) TrackedKeys() int {
	return l.store.Len()
}
