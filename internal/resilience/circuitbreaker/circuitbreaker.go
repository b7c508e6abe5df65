// Package circuitbreaker wraps github.com/sony/gobreaker for the outbound
// calls the pipeline makes: LLM providers, agency listing pages and RSS
// feeds. A tripped breaker lets a scan run skip a broken upstream instead
// of burning its timeout budget on every item.
package circuitbreaker

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// Config describes one breaker. Thresholds differ per upstream class, so
// the presets below are the usual entry points.
type Config struct {
	// Name identifies the breaker in logs and state-change warnings.
	Name string

	// MaxRequests caps probe requests while half-open.
	MaxRequests uint32

	// Interval is how often the closed-state counters reset.
	Interval time.Duration

	// Timeout is how long an open breaker waits before probing again.
	Timeout time.Duration

	// FailureThreshold is the failure ratio that trips the breaker
	// (0.6 = trip at 60% failures).
	FailureThreshold float64

	// MinRequests is the sample size required before the ratio is
	// evaluated at all.
	MinRequests uint32
}

// DefaultConfig returns the baseline settings shared by the presets.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// LLMAPIConfig returns configuration for LLM provider calls.
// One scrape run issues dozens of calls against the same endpoint.
func LLMAPIConfig(name string) Config {
	return DefaultConfig(name)
}

// PageFetchConfig returns configuration for crawling procurement pages.
// Forgiving thresholds: individual agency sites fail often and independently.
func PageFetchConfig() Config {
	return Config{
		Name:             "page-fetch",
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          10 * time.Minute,
		FailureThreshold: 0.8,
		MinRequests:      10,
	}
}

// FeedFetchConfig returns configuration for RSS listing fetches.
func FeedFetchConfig() Config {
	return Config{
		Name:             "feed-fetch",
		MaxRequests:      5,
		Interval:         60 * time.Second,
		Timeout:          120 * time.Second,
		FailureThreshold: 0.7,
		MinRequests:      10,
	}
}

// CircuitBreaker is a thin wrapper over gobreaker that fixes our trip
// policy and logs state transitions.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New builds a breaker from cfg.
func New(cfg Config) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// サンプル数が閾値未満のうちは失敗率を見ない
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}

	return &CircuitBreaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		name:    cfg.Name,
	}
}

// Execute runs fn through the breaker. While open it returns
// gobreaker.ErrOpenState without invoking fn.
func (cb *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	return cb.breaker.Execute(fn)
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.breaker.State()
}

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// IsOpen reports whether the breaker is currently open.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.breaker.State() == gobreaker.StateOpen
}
