// Package ratelimit provides framework-agnostic rate limiting functionality.
package ratelimit

import (
	"fmt"
	"time"
)

// RateLimitConfig configures IP-based rate limiting. The admin surface runs
// under a single credential, so there are no user tiers; every limit is
// keyed on the client IP.
type RateLimitConfig struct {
	// DefaultIPLimit is the allowed request count per window.
	DefaultIPLimit int
	// DefaultIPWindow is the window length for the IP limit.
	DefaultIPWindow time.Duration

	// MaxActiveKeys caps how many IPs are tracked in memory at once.
	MaxActiveKeys int

	// CleanupInterval is how often expired entries are swept.
	CleanupInterval time.Duration

	// CleanupMaxAge removes entries not touched for this long.
	CleanupMaxAge time.Duration

	// Enabled turns rate limiting on or off entirely.
	Enabled bool
}

// Validate rejects negative values. Zero values are permitted here and
// filled in by ApplyDefaults.
func (c *RateLimitConfig) Validate() error {
	if c.DefaultIPLimit < 0 {
		return fmt.Errorf("DefaultIPLimit must be non-negative, got %d", c.DefaultIPLimit)
	}
	if c.DefaultIPWindow < 0 {
		return fmt.Errorf("DefaultIPWindow must be non-negative, got %s", c.DefaultIPWindow)
	}
	if c.MaxActiveKeys < 0 {
		return fmt.Errorf("MaxActiveKeys must be non-negative, got %d", c.MaxActiveKeys)
	}
	if c.CleanupInterval < 0 {
		return fmt.Errorf("CleanupInterval must be non-negative, got %s", c.CleanupInterval)
	}
	if c.CleanupMaxAge < 0 {
		return fmt.Errorf("CleanupMaxAge must be non-negative, got %s", c.CleanupMaxAge)
	}
	return nil
}

// ApplyDefaults fills in zero values so the limiter can run on an incomplete
// configuration.
func (c *RateLimitConfig) ApplyDefaults() {
	if c.DefaultIPLimit == 0 {
		c.DefaultIPLimit = 100 // 毎分100リクエスト
	}
	if c.DefaultIPWindow == 0 {
		c.DefaultIPWindow = 1 * time.Minute
	}
	if c.MaxActiveKeys == 0 {
		c.MaxActiveKeys = 10000
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = 5 * time.Minute
	}
	if c.CleanupMaxAge == 0 {
		c.CleanupMaxAge = 1 * time.Hour
	}
	if !c.Enabled {
		c.Enabled = true
	}
}

// DefaultConfig returns a RateLimitConfig with every default applied.
func DefaultConfig() *RateLimitConfig {
	config := &RateLimitConfig{}
	config.ApplyDefaults()
	return config
}
