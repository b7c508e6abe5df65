package notifier

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// SlackConfig contains configuration for Slack webhook notifications.
type SlackConfig struct {
	// Enabled indicates whether Slack notifications are enabled
	Enabled bool

	// WebhookURL is the Slack Incoming Webhook URL (includes authentication token)
	WebhookURL string

	// Timeout is the HTTP request timeout for Slack API calls
	Timeout time.Duration
}

// SlackNotifier delivers run digests to Slack via Incoming Webhook.
type SlackNotifier struct {
	config      SlackConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewSlackNotifier creates a SlackNotifier. The rate limiter matches the
// Slack Incoming Webhook limit of one message per second.
func NewSlackNotifier(config SlackConfig) *SlackNotifier {
	return &SlackNotifier{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		rateLimiter: NewRateLimiter(1.0, 1),
	}
}

// SlackWebhookPayload represents the JSON payload sent to Slack webhook using Block Kit.
type SlackWebhookPayload struct {
	Text   string       `json:"text"`   // Fallback text (required)
	Blocks []SlackBlock `json:"blocks"` // Rich formatting blocks
}

// SlackBlock represents a Slack Block Kit block.
type SlackBlock struct {
	Type     string            `json:"type"`               // "section", "context", "divider"
	Text     *SlackTextObject  `json:"text,omitempty"`     // Text content (for section)
	Elements []SlackTextObject `json:"elements,omitempty"` // Elements (for context)
}

// SlackTextObject represents a text object in Slack Block Kit.
type SlackTextObject struct {
	Type string `json:"type"` // "mrkdwn" or "plain_text"
	Text string `json:"text"` // Actual text content
}

const (
	// Slack Block Kit limits
	maxSectionTextLength = 3000
	maxFallbackLength    = 150

	// Slack caps a message at 50 blocks; stats + context leave room for items
	maxSlackDigestItems = 20

	// Truncation suffix
	slackTruncationSuffix = "..."
)

// buildBlockKitPayload creates a Slack webhook payload from a run digest.
//
// The payload includes:
//   - Text: Fallback text for notifications (digest subject)
//   - Section Block: Run counters
//   - Section Blocks: One per stored opportunity (title linked + summary)
//   - Context Block: Site count + run timing
//
// Summaries are truncated to fit Block Kit limits, and at most
// maxSlackDigestItems opportunities are rendered.
func (s *SlackNotifier) buildBlockKitPayload(digest *Digest) SlackWebhookPayload {
	fallbackText := digest.Subject()
	if len(fallbackText) > maxFallbackLength {
		fallbackText = fallbackText[:maxFallbackLength-len(slackTruncationSuffix)] + slackTruncationSuffix
	}

	statsText := fmt.Sprintf("*%s*\n%d proposed, %d new, %d excluded, %d failed",
		digest.Subject(), digest.ItemsProposed, digest.NewCount, digest.Excluded, digest.Failed)

	blocks := []SlackBlock{{
		Type: "section",
		Text: &SlackTextObject{Type: "mrkdwn", Text: statsText},
	}}

	items := digest.Items
	omitted := 0
	if len(items) > maxSlackDigestItems {
		omitted = len(items) - maxSlackDigestItems
		items = items[:maxSlackDigestItems]
	}
	for _, item := range items {
		sectionText := fmt.Sprintf("*<%s|%s>*\n%s", item.URL, item.Title, item.Summary)
		sectionText = truncateSummary(sectionText, maxSectionTextLength, slackTruncationSuffix)
		blocks = append(blocks, SlackBlock{
			Type: "section",
			Text: &SlackTextObject{Type: "mrkdwn", Text: sectionText},
		})
	}
	if omitted > 0 {
		blocks = append(blocks, SlackBlock{
			Type: "section",
			Text: &SlackTextObject{Type: "mrkdwn", Text: fmt.Sprintf("_%d more not shown_", omitted)},
		})
	}

	contextText := fmt.Sprintf("%d sites • started %s • took %s",
		digest.Sites,
		digest.GeneratedAt.UTC().Format(time.RFC3339),
		digest.Duration.Round(time.Second))
	blocks = append(blocks, SlackBlock{
		Type: "context",
		Elements: []SlackTextObject{
			{Type: "mrkdwn", Text: contextText},
		},
	})

	return SlackWebhookPayload{
		Text:   fallbackText,
		Blocks: blocks,
	}
}

// sendWebhookRequest sends one Slack webhook request carrying the digest.
// Slack answers a successful post with plain-text "ok".
func (s *SlackNotifier) sendWebhookRequest(ctx context.Context, digest *Digest) error {
	return postWebhook(ctx, s.httpClient, s.config.WebhookURL, "Slack", s.buildBlockKitPayload(digest))
}

func (s *SlackNotifier) sendWebhookRequestWithRetry(ctx context.Context, digest *Digest) error {
	return sendWithRetry(ctx, "Slack", digest, s.sendWebhookRequest)
}

// NotifyDigest delivers the run digest to Slack. Implements Notifier.
func (s *SlackNotifier) NotifyDigest(ctx context.Context, digest *Digest) error {
	return notifyDigest(ctx, "Slack", s.rateLimiter, digest, s.sendWebhookRequestWithRetry)
}
