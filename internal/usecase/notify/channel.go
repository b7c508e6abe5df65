// Package notify provides use cases for dispatching run digests across
// multiple channels. It implements business logic for delivering the digest
// of a finished discovery run to the configured channels (email, Slack,
// Discord) with features like circuit breakers, audience routing, and
// observability.
package notify

import (
	"context"

	"rfp-radar/internal/infra/notifier"
)

// Audience selects which digest variant a channel receives. Main channels
// get the clean digest; debug channels get the digest with the run log
// attached.
type Audience string

const (
	// AudienceMain receives the regular digest.
	AudienceMain Audience = "main"
	// AudienceDebug receives the digest with the buffered run log appended.
	AudienceDebug Audience = "debug"
)

// Channel represents a digest delivery channel (email, Slack, Discord).
// Each channel implementation handles its own rate limiting, retries, and
// error handling.
//
// Retry Policy Contract:
//   - Transient failures (5xx, network errors): Retry with exponential backoff (max 2 attempts)
//   - Rate limits (429): Sleep for retry_after duration, then retry
//   - Client errors (4xx except 429): No retry
//   - Context timeout: No retry
//
// Thread Safety:
//   - All methods must be safe for concurrent use by multiple goroutines
//
// Context Handling:
//   - Implementations must respect context cancellation and timeout
//   - request_id should be extracted from context for logging
type Channel interface {
	// Name returns the human-readable name of the channel (e.g., "slack",
	// "email-debug"). This is used for logging, metrics, and health check
	// endpoints.
	//
	// Returns:
	//   - string: Channel identifier (lowercase, alphanumeric)
	Name() string

	// IsEnabled returns true if this channel is enabled via configuration.
	// Disabled channels will be skipped during digest dispatching.
	//
	// Returns:
	//   - bool: true if channel is enabled and should receive digests
	IsEnabled() bool

	// Audience reports which digest variant this channel receives. The
	// dispatcher routes the clean digest to main channels and the
	// log-carrying digest to debug channels.
	Audience() Audience

	// Send delivers the run digest to this channel.
	//
	// Implementations must:
	//   - Respect context cancellation/timeout
	//   - Apply rate limiting
	//   - Retry transient failures according to retry policy
	//   - Log all attempts with request_id from context
	//   - Sanitize sensitive data (webhook URLs, credentials) in error messages
	//
	// Parameters:
	//   - ctx: Context with timeout and request_id
	//   - digest: The run digest to deliver (must not be nil)
	//
	// Returns:
	//   - error: Non-nil if delivery failed after all retries
	//     - ErrChannelDisabled: If Send() called on disabled channel
	//     - ErrInvalidDigest: If digest is nil
	//     - Network/API errors: Wrapped with context
	Send(ctx context.Context, digest *notifier.Digest) error
}
