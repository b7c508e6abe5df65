package notify

import (
	"context"
	"fmt"
	"log/slog"

	"rfp-radar/internal/infra/notifier"
	"rfp-radar/internal/repository"
)

// DigestMailer delivers a digest email to an explicit recipient list.
// *notifier.SMTPMailer is the production implementation; tests substitute
// a mock. Recipients are resolved per send because the email_settings row
// can change between runs.
type DigestMailer interface {
	Send(ctx context.Context, recipients []string, digest *notifier.Digest) error
}

// EmailChannel implements the Channel interface for digest mail.
// Unlike the webhook channels, recipients are not part of the static
// configuration: they are loaded from the email_settings repository on
// every send, so admin API updates take effect without a restart.
//
// Two instances are registered in production, one per audience:
//   - "email" (AudienceMain) sends to the main recipient list
//   - "email-debug" (AudienceDebug) sends to the debug recipient list
//
// Separate instances keep distinct circuit breaker state and metrics
// labels for the two lists.
type EmailChannel struct {
	mailer   DigestMailer
	settings repository.EmailSettingsRepository
	audience Audience
	enabled  bool
}

// NewEmailChannel creates a new email channel for the given audience.
//
// The channel is enabled only when the SMTP configuration carries both a
// host and a sender address. An empty recipient list does not disable the
// channel; it is checked per send.
//
// Parameters:
//   - config: SMTP configuration (host, port, credentials, sender)
//   - settings: Repository holding the recipient lists
//   - audience: Which recipient list this instance serves
//
// Returns:
//   - *EmailChannel: Configured email channel instance
func NewEmailChannel(config notifier.SMTPConfig, settings repository.EmailSettingsRepository, audience Audience) *EmailChannel {
	return &EmailChannel{
		mailer:   notifier.NewSMTPMailer(config),
		settings: settings,
		audience: audience,
		enabled:  config.Host != "" && config.From != "",
	}
}

// Name returns "email" for the main audience and "email-debug" for the
// debug audience. This is used for logging, metrics labels, and health
// check endpoints.
func (c *EmailChannel) Name() string {
	if c.audience == AudienceDebug {
		return "email-debug"
	}
	return "email"
}

// IsEnabled returns whether SMTP delivery is configured.
// Disabled channels are skipped during digest dispatching.
func (c *EmailChannel) IsEnabled() bool {
	return c.enabled
}

// Audience returns the recipient list this instance serves.
func (c *EmailChannel) Audience() Audience {
	return c.audience
}

// Send mails the run digest to the audience's current recipient list.
//
// The recipient list is loaded from the settings repository on every call.
// An empty list is not an error: the send is skipped and logged, matching
// the behavior of a freshly provisioned deployment with no recipients yet.
//
// Parameters:
//   - ctx: Context with timeout and optional request_id
//   - digest: The run digest to deliver (must not be nil)
//
// Returns:
//   - nil: Digest mailed successfully, or no recipients configured
//   - ErrChannelDisabled: If called on disabled channel
//   - ErrInvalidDigest: If digest is nil
//   - Other errors: Settings lookup errors, SMTP errors
func (c *EmailChannel) Send(ctx context.Context, digest *notifier.Digest) error {
	// Validate that channel is enabled
	if !c.enabled {
		return ErrChannelDisabled
	}

	// Validate digest
	if digest == nil {
		return ErrInvalidDigest
	}

	settings, err := c.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("load email settings: %w", err)
	}

	recipients := settings.MainRecipients
	if c.audience == AudienceDebug {
		recipients = settings.DebugRecipients
	}
	if len(recipients) == 0 {
		slog.Info("No recipients configured, skipping digest mail",
			slog.String("channel", c.Name()))
		return nil
	}

	return c.mailer.Send(ctx, recipients, digest)
}
