package fetcher

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// FetchConfig holds the configuration for outbound page fetching.
// This configuration controls security, performance, and politeness of the
// crawler's HTTP client.
//
// Security settings:
//   - DenyPrivateIPs: Prevents SSRF attacks by blocking private IP addresses
//   - MaxBodySize / MaxPDFBodySize: Prevent memory exhaustion from oversized responses
//   - MaxRedirects: Prevents infinite redirect loops
//   - Timeout: Prevents resource starvation from slow servers
//
// Politeness settings:
//   - PolitenessDelay: Minimum spacing between requests to the same host
type FetchConfig struct {
	// Timeout is the overall deadline for a single HTTP request.
	// Default: 30s
	Timeout time.Duration

	// ConnectTimeout bounds TCP connection establishment.
	// Default: 10s
	ConnectTimeout time.Duration

	// ReadTimeout bounds the wait for response headers after the request
	// is written. Slow agency servers get this long to start answering.
	// Default: 20s
	ReadTimeout time.Duration

	// MaxBodySize is the maximum HTML response body size in bytes.
	// Responses exceeding this limit are rejected while reading, not
	// based on the Content-Length header.
	// Default: 10485760 (10MB)
	MaxBodySize int64

	// MaxPDFBodySize is the maximum PDF response body size in bytes.
	// RFP attachments run much larger than HTML pages.
	// Default: 52428800 (50MB)
	MaxPDFBodySize int64

	// MaxRedirects is the maximum number of HTTP redirects to follow.
	// Each redirect target is validated for security (SSRF check).
	// Default: 10
	MaxRedirects int

	// DenyPrivateIPs controls whether to block access to private IP addresses.
	// Should always be true in production; tests disable it to reach
	// httptest servers on loopback.
	// Default: true
	DenyPrivateIPs bool

	// PolitenessDelay is the minimum spacing between requests to one host.
	// Agency sites are small; hammering them gets the crawler blocked.
	// Default: 1s
	PolitenessDelay time.Duration

	// UserAgent is sent on every outbound site request. Defaults to a
	// desktop Chrome profile because several portals serve degraded or
	// empty markup to obvious bots.
	UserAgent string
}

// DefaultUserAgent is the desktop browser profile used for site requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// DefaultFetchConfig returns the default configuration for page fetching.
//
// Returns:
//   - FetchConfig with production-ready default values
//
// Example:
//
//	config := DefaultFetchConfig()
//	config.PolitenessDelay = 2 * time.Second // Customize as needed
//	client := NewClient(config)
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		Timeout:         30 * time.Second,
		ConnectTimeout:  10 * time.Second,
		ReadTimeout:     20 * time.Second,
		MaxBodySize:     10 * 1024 * 1024, // 10MB
		MaxPDFBodySize:  50 * 1024 * 1024, // 50MB
		MaxRedirects:    10,
		DenyPrivateIPs:  true,
		PolitenessDelay: time.Second,
		UserAgent:       DefaultUserAgent,
	}
}

// Validate checks if the configuration values are valid and safe.
//
// Validation rules:
//   - Timeout, ConnectTimeout, ReadTimeout: > 0
//   - MaxBodySize: 1KB-100MB
//   - MaxPDFBodySize: >= MaxBodySize, <= 200MB
//   - MaxRedirects: 0-20
//   - PolitenessDelay: >= 0 (0 disables pacing, used by tests)
//
// Returns:
//   - error: nil if configuration is valid, descriptive error otherwise
func (c *FetchConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}

	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive, got %v", c.ConnectTimeout)
	}

	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive, got %v", c.ReadTimeout)
	}

	minBodySize := int64(1024)              // 1KB
	maxBodySize := int64(100 * 1024 * 1024) // 100MB
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBodySize, maxBodySize, c.MaxBodySize)
	}

	maxPDFSize := int64(200 * 1024 * 1024) // 200MB
	if c.MaxPDFBodySize < c.MaxBodySize || c.MaxPDFBodySize > maxPDFSize {
		return fmt.Errorf("max PDF body size must be between %d and %d bytes, got %d", c.MaxBodySize, maxPDFSize, c.MaxPDFBodySize)
	}

	if c.MaxRedirects < 0 || c.MaxRedirects > 20 {
		return fmt.Errorf("max redirects must be between 0 and 20, got %d", c.MaxRedirects)
	}

	if c.PolitenessDelay < 0 {
		return fmt.Errorf("politeness delay must be non-negative, got %v", c.PolitenessDelay)
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user agent must not be empty")
	}

	return nil
}

// LoadFetchConfigFromEnv loads configuration from environment variables.
// If a variable is not set, the default value is used; invalid values are
// rejected. After loading, the configuration is validated.
//
// Environment variables:
//   - FETCH_TIMEOUT: duration string, e.g., "30s" (default: 30s)
//   - FETCH_CONNECT_TIMEOUT: duration string (default: 10s)
//   - FETCH_READ_TIMEOUT: duration string (default: 20s)
//   - FETCH_MAX_BODY_SIZE: integer in bytes (default: 10485760)
//   - FETCH_MAX_PDF_BODY_SIZE: integer in bytes (default: 52428800)
//   - FETCH_MAX_REDIRECTS: integer (default: 10)
//   - FETCH_DENY_PRIVATE_IPS: "true" or "false" (default: true)
//   - FETCH_POLITENESS_DELAY: duration string (default: 1s)
//   - FETCH_USER_AGENT: string (default: desktop Chrome profile)
//
// Returns:
//   - FetchConfig: Loaded configuration
//   - error: Validation error if configuration is invalid
func LoadFetchConfigFromEnv() (FetchConfig, error) {
	cfg := DefaultFetchConfig()

	if val := os.Getenv("FETCH_TIMEOUT"); val != "" {
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_TIMEOUT: %v (expected format: '30s', '1m')", err)
		}
		cfg.Timeout = parsed
	}

	if val := os.Getenv("FETCH_CONNECT_TIMEOUT"); val != "" {
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_CONNECT_TIMEOUT: %v", err)
		}
		cfg.ConnectTimeout = parsed
	}

	if val := os.Getenv("FETCH_READ_TIMEOUT"); val != "" {
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_READ_TIMEOUT: %v", err)
		}
		cfg.ReadTimeout = parsed
	}

	if val := os.Getenv("FETCH_MAX_BODY_SIZE"); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_MAX_BODY_SIZE: %v", err)
		}
		cfg.MaxBodySize = parsed
	}

	if val := os.Getenv("FETCH_MAX_PDF_BODY_SIZE"); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_MAX_PDF_BODY_SIZE: %v", err)
		}
		cfg.MaxPDFBodySize = parsed
	}

	if val := os.Getenv("FETCH_MAX_REDIRECTS"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_MAX_REDIRECTS: %v", err)
		}
		cfg.MaxRedirects = parsed
	}

	if val := os.Getenv("FETCH_DENY_PRIVATE_IPS"); val != "" {
		cfg.DenyPrivateIPs = val == "true"
	}

	if val := os.Getenv("FETCH_POLITENESS_DELAY"); val != "" {
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_POLITENESS_DELAY: %v", err)
		}
		cfg.PolitenessDelay = parsed
	}

	if val := os.Getenv("FETCH_USER_AGENT"); val != "" {
		cfg.UserAgent = val
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
