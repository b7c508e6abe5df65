package config

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"rfp-radar/pkg/ratelimit"
)

// envNonNegativeInt reads an int from the environment, falling back to the
// default with a warning when the value is negative.
func envNonNegativeInt(key string, def int) int {
	value := GetEnvInt(key, def)
	if value < 0 {
		slog.Warn("invalid "+key+", using default",
			slog.Int("value", value),
			slog.Int("default", def))
		return def
	}
	return value
}

// envPositiveDuration reads a duration from the environment, falling back to
// the default with a warning when the value is zero or negative.
func envPositiveDuration(key string, def time.Duration) time.Duration {
	value := GetEnvDuration(key, def)
	if err := ValidatePositiveDuration(value); err != nil {
		slog.Warn("invalid "+key+", using default",
			slog.String("value", value.String()),
			slog.String("default", def.String()),
			slog.String("error", err.Error()))
		return def
	}
	return value
}

// LoadRateLimitConfig reads the admin API rate limiting configuration from
// the environment. Invalid values are logged and replaced with safe defaults
// rather than failing startup.
//
// Environment variables:
//   - RATELIMIT_ENABLED: enable/disable rate limiting (default: true)
//   - RATELIMIT_IP_LIMIT: requests per IP per window (default: 100)
//   - RATELIMIT_IP_WINDOW: window size (default: 1m)
//   - RATELIMIT_MAX_KEYS: maximum tracked keys in memory (default: 10000)
//   - RATELIMIT_CLEANUP_INTERVAL: stale key sweep interval (default: 5m)
func LoadRateLimitConfig() (*ratelimit.RateLimitConfig, error) {
	config := &ratelimit.RateLimitConfig{
		Enabled:         GetEnvBool("RATELIMIT_ENABLED", true),
		DefaultIPLimit:  envNonNegativeInt("RATELIMIT_IP_LIMIT", 100),
		DefaultIPWindow: envPositiveDuration("RATELIMIT_IP_WINDOW", 1*time.Minute),
		MaxActiveKeys:   envNonNegativeInt("RATELIMIT_MAX_KEYS", 10000),
		CleanupInterval: envPositiveDuration("RATELIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		// 環境変数では公開しない。1時間で釣り合いが取れている
		CleanupMaxAge: 1 * time.Hour,
	}

	if err := config.Validate(); err != nil {
		slog.Warn("rate limit configuration validation failed, applying defaults",
			slog.String("error", err.Error()))
		config.ApplyDefaults()
	}

	return config, nil
}

// CSPConfig holds the Content Security Policy header settings for the admin
// frontend responses.
type CSPConfig struct {
	// Enabled controls whether CSP headers are applied.
	Enabled bool

	// ReportOnly switches to Content-Security-Policy-Report-Only, which
	// logs violations without enforcing.
	ReportOnly bool

	// TrustedScriptSources lists additional trusted script sources, such
	// as CDN URLs.
	TrustedScriptSources []string

	// TrustedStyleSources lists additional trusted style sources.
	TrustedStyleSources []string
}

// LoadCSPConfig reads CSP settings from CSP_ENABLED (default true) and
// CSP_REPORT_ONLY (default false).
func LoadCSPConfig() (*CSPConfig, error) {
	return &CSPConfig{
		Enabled:    GetEnvBool("CSP_ENABLED", true),
		ReportOnly: GetEnvBool("CSP_REPORT_ONLY", false),
	}, nil
}

// ValidateTrustedProxies checks that every entry is valid CIDR notation,
// e.g. "10.0.0.0/8".
func ValidateTrustedProxies(cidrs []string) error {
	for _, cidr := range cidrs {
		if cidr == "" {
			return fmt.Errorf("CIDR cannot be empty")
		}
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return fmt.Errorf("invalid CIDR %q: %w", cidr, err)
		}
	}
	return nil
}
