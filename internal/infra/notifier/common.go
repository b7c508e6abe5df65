package notifier

import (
	"errors"
	"fmt"
	"time"
)

// contextKey keeps request-scoped values from colliding with other packages.
type contextKey string

const requestIDKey contextKey = "request_id"

// Failure classification shared by the webhook and SMTP notifiers. Retry
// loops branch on these types: rate limits sleep for the advertised
// duration, server errors back off exponentially, client errors fail
// immediately.

// RateLimitError represents a 429 from a delivery service.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// ClientError represents a 4xx response other than 429.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return e.Message
}

// ServerError represents a 5xx response.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

func is429Error(err error) (*RateLimitError, bool) {
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return rateLimitErr, true
	}
	return nil, false
}

// isRetryableError reports whether a retry could help. Server errors and
// network failures are retryable; 4xx responses are not, and 429 is handled
// separately through is429Error.
func isRetryableError(err error) bool {
	var (
		serverErr    *ServerError
		clientErr    *ClientError
		rateLimitErr *RateLimitError
	)
	switch {
	case errors.As(err, &serverErr):
		return true
	case errors.As(err, &clientErr), errors.As(err, &rateLimitErr):
		return false
	default:
		return true
	}
}

// truncateSummary cuts text down to maxLength bytes, appending suffix when
// anything was removed. Byte-based on purpose: webhook payload limits count
// bytes, not runes.
func truncateSummary(text string, maxLength int, suffix string) string {
	if len(text) <= maxLength {
		return text
	}
	truncateAt := maxLength - len(suffix)
	if truncateAt < 0 {
		truncateAt = 0
	}
	return text[:truncateAt] + suffix
}
