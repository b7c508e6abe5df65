package notify

import (
	"context"

	"rfp-radar/internal/infra/notifier"
)

// DiscordChannel implements the Channel interface for Discord digests.
// It wraps the DiscordNotifier from the infrastructure layer to provide
// the Channel abstraction for the dispatch use case.
//
// This adapter pattern allows Discord delivery to integrate seamlessly with
// the multi-channel dispatch system while reusing the existing, battle-tested
// Discord webhook implementation.
type DiscordChannel struct {
	notifier notifier.Notifier
	enabled  bool
}

// NewDiscordChannel creates a new Discord channel with the specified configuration.
//
// If Discord delivery is disabled (config.Enabled = false), a NoOpNotifier
// is used instead to avoid null checks and ensure the Channel interface contract
// is always satisfied.
//
// Parameters:
//   - config: Discord configuration (webhook URL, timeout, enabled state)
//
// Returns:
//   - *DiscordChannel: Configured Discord channel instance
func NewDiscordChannel(config notifier.DiscordConfig) *DiscordChannel {
	var n notifier.Notifier
	if config.Enabled {
		n = notifier.NewDiscordNotifier(config)
	} else {
		n = notifier.NewNoOpNotifier()
	}

	return &DiscordChannel{
		notifier: n,
		enabled:  config.Enabled,
	}
}

// Name returns the channel identifier "discord".
// This is used for logging, metrics labels, and health check endpoints.
func (c *DiscordChannel) Name() string {
	return "discord"
}

// IsEnabled returns whether Discord delivery is enabled via configuration.
// Disabled channels are skipped during digest dispatching.
func (c *DiscordChannel) IsEnabled() bool {
	return c.enabled
}

// Audience returns AudienceMain. Discord digests are reader-facing and never
// carry the run log.
func (c *DiscordChannel) Audience() Audience {
	return AudienceMain
}

// Send posts the run digest to Discord.
//
// This method performs input validation and delegates to the underlying
// DiscordNotifier for the actual webhook request. The notifier handles:
//   - Rate limiting (0.5 req/s with burst of 3)
//   - Retry logic (max 2 attempts with exponential backoff)
//   - Context timeout and cancellation
//   - Request ID generation and logging
//
// Parameters:
//   - ctx: Context with timeout and optional request_id
//   - digest: The run digest to deliver (must not be nil)
//
// Returns:
//   - nil: Digest delivered successfully
//   - ErrChannelDisabled: If called on disabled channel
//   - ErrInvalidDigest: If digest is nil
//   - Other errors: Network errors, rate limit errors, Discord API errors
func (c *DiscordChannel) Send(ctx context.Context, digest *notifier.Digest) error {
	// Validate that channel is enabled
	if !c.enabled {
		return ErrChannelDisabled
	}

	// Validate digest
	if digest == nil {
		return ErrInvalidDigest
	}

	// Delegate to underlying notifier
	return c.notifier.NotifyDigest(ctx, digest)
}
