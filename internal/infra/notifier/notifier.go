// Package notifier provides abstraction for delivering run digests.
// It defines the Notifier interface which allows different delivery
// mechanisms (Slack, Discord, email, etc.) to be used interchangeably through
// dependency injection.
//
// The package includes webhook implementations for Slack and Discord, an SMTP
// mailer for the digest email, and a no-op notifier for when notifications
// are disabled.
package notifier

import "context"

// Notifier is an interface for delivering a run digest to one destination.
// Implementations should handle rate limiting, retries, and error logging internally.
type Notifier interface {
	// NotifyDigest delivers the digest of a completed scrape run.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - digest: The run digest to deliver (must not be nil)
	//
	// Returns:
	//   - error: Non-nil if the delivery failed after all retry attempts
	//
	// Implementations should:
	//   - Generate a unique request ID for tracing
	//   - Apply rate limiting to prevent API abuse
	//   - Retry transient failures with exponential backoff
	//   - Log all attempts with the request ID for debugging
	//   - Respect context cancellation
	NotifyDigest(ctx context.Context, digest *Digest) error
}
