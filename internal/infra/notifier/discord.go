package notifier

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DiscordConfig contains configuration for Discord webhook notifications.
type DiscordConfig struct {
	// Enabled indicates whether Discord notifications are enabled
	Enabled bool

	// WebhookURL is the Discord webhook URL (includes authentication token)
	WebhookURL string

	// Timeout is the HTTP request timeout for Discord API calls
	Timeout time.Duration
}

// DiscordNotifier delivers run digests to Discord via webhook.
type DiscordNotifier struct {
	config      DiscordConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewDiscordNotifier creates a DiscordNotifier. The rate limiter matches
// the Discord webhook limit of 30 requests per minute (0.5 req/s), with a
// burst of 3.
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		rateLimiter: NewRateLimiter(0.5, 3),
	}
}

// DiscordWebhookPayload represents the JSON payload sent to Discord webhook.
type DiscordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []DiscordEmbed `json:"embeds"`
}

// DiscordEmbed represents a Discord embed message.
type DiscordEmbed struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	URL         string             `json:"url,omitempty"`
	Color       int                `json:"color"`
	Footer      DiscordEmbedFooter `json:"footer"`
	Timestamp   string             `json:"timestamp,omitempty"`
}

// DiscordEmbedFooter represents the footer of a Discord embed.
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

// DiscordErrorResponse represents the error response from Discord API.
type DiscordErrorResponse struct {
	Message    string  `json:"message"`
	Code       int     `json:"code"`
	RetryAfter float64 `json:"retry_after"` // In seconds
}

const (
	// Discord limits
	maxTitleLength       = 256
	maxDescriptionLength = 4096
	truncationSuffix     = "..."

	// Discord allows 10 embeds per message; one is reserved for the stats embed
	maxDiscordDigestItems = 9

	// Discord blue color (#5865F2)
	discordBlueColor = 5793266
)

// buildEmbedPayload creates a Discord webhook payload from a run digest.
//
// The payload includes:
//   - A stats embed with the run counters and timing
//   - One embed per stored opportunity (title, summary, link, site footer),
//     capped at maxDiscordDigestItems with an omission note
func (d *DiscordNotifier) buildEmbedPayload(digest *Digest) DiscordWebhookPayload {
	statsDescription := fmt.Sprintf("%d proposed, %d new, %d excluded, %d failed\n%d sites, took %s",
		digest.ItemsProposed, digest.NewCount, digest.Excluded, digest.Failed,
		digest.Sites, digest.Duration.Round(time.Second))

	items := digest.Items
	if len(items) > maxDiscordDigestItems {
		statsDescription += fmt.Sprintf("\n%d more not shown", len(items)-maxDiscordDigestItems)
		items = items[:maxDiscordDigestItems]
	}

	embeds := make([]DiscordEmbed, 0, len(items)+1)
	embeds = append(embeds, DiscordEmbed{
		Title:       digest.Subject(),
		Description: statsDescription,
		Color:       discordBlueColor,
		Footer: DiscordEmbedFooter{
			Text: "rfp-radar",
		},
		Timestamp: digest.GeneratedAt.UTC().Format(time.RFC3339),
	})

	for _, item := range items {
		title := item.Title
		if len(title) > maxTitleLength {
			title = title[:maxTitleLength]
		}
		embeds = append(embeds, DiscordEmbed{
			Title:       title,
			Description: truncateSummary(item.Summary, maxDescriptionLength, truncationSuffix),
			URL:         item.URL,
			Color:       discordBlueColor,
			Footer: DiscordEmbedFooter{
				Text: item.Site,
			},
		})
	}

	return DiscordWebhookPayload{Embeds: embeds}
}

// sendWebhookRequest sends one Discord webhook request carrying the digest.
func (d *DiscordNotifier) sendWebhookRequest(ctx context.Context, digest *Digest) error {
	return postWebhook(ctx, d.httpClient, d.config.WebhookURL, "Discord", d.buildEmbedPayload(digest))
}

func (d *DiscordNotifier) sendWebhookRequestWithRetry(ctx context.Context, digest *Digest) error {
	return sendWithRetry(ctx, "Discord", digest, d.sendWebhookRequest)
}

// NotifyDigest delivers the run digest to Discord. Implements Notifier.
func (d *DiscordNotifier) NotifyDigest(ctx context.Context, digest *Digest) error {
	return notifyDigest(ctx, "Discord", d.rateLimiter, digest, d.sendWebhookRequestWithRetry)
}
