package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Shared delivery plumbing for the Slack and Discord notifiers. Both
// services take JSON over a single webhook POST and fit the same failure
// taxonomy, so only payload construction differs between them.

const (
	webhookMaxAttempts = 2
	webhookBaseDelay   = 5 * time.Second
)

// postWebhook marshals payload, POSTs it to webhookURL and classifies the
// response: 2xx is success, 429 becomes RateLimitError with the advertised
// wait, other 4xx become ClientError and 5xx become ServerError.
func postWebhook(ctx context.Context, client *http.Client, webhookURL, service string, payload any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			Message:    service + " rate limit exceeded",
			RetryAfter: extractRetryAfter(resp, body),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API client error: %s", service, string(body)),
		}
	case resp.StatusCode >= 500:
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API server error: %s", service, string(body)),
		}
	}
	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
}

// extractRetryAfter pulls the retry hint out of a 429 response, preferring
// the JSON retry_after field over the Retry-After header. Falls back to 5s.
func extractRetryAfter(resp *http.Response, body []byte) time.Duration {
	var discordErr DiscordErrorResponse
	if err := json.Unmarshal(body, &discordErr); err == nil && discordErr.RetryAfter > 0 {
		return time.Duration(discordErr.RetryAfter * float64(time.Second))
	}

	if retryAfterHeader := resp.Header.Get("Retry-After"); retryAfterHeader != "" {
		if seconds, err := strconv.Atoi(retryAfterHeader); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	return 5 * time.Second
}

// sendWithRetry drives the retry loop around send. Rate limits sleep for
// the advertised duration, retryable failures back off linearly (5s, 10s),
// client errors fail immediately. Two attempts total.
func sendWithRetry(ctx context.Context, service string, digest *Digest, send func(context.Context, *Digest) error) error {
	requestID, _ := ctx.Value(requestIDKey).(string)

	var lastErr error
	for attempt := 1; attempt <= webhookMaxAttempts; attempt++ {
		err := send(ctx, digest)
		if err == nil {
			slog.Info(service+" digest delivered",
				slog.String("request_id", requestID),
				slog.Int("new_count", digest.NewCount),
				slog.Int("attempt", attempt))
			return nil
		}
		lastErr = err

		if rateLimitErr, ok := is429Error(err); ok {
			slog.Warn(service+" rate limit hit, backing off",
				slog.String("request_id", requestID),
				slog.Duration("retry_after", rateLimitErr.RetryAfter),
				slog.Int("attempt", attempt))

			select {
			case <-time.After(rateLimitErr.RetryAfter):
				continue
			case <-ctx.Done():
				return fmt.Errorf("context canceled during rate limit backoff: %w", ctx.Err())
			}
		}

		if !isRetryableError(err) {
			slog.Error(service+" digest failed with non-retryable error",
				slog.String("request_id", requestID),
				slog.Any("error", err),
				slog.Int("attempt", attempt))
			return err
		}

		if attempt < webhookMaxAttempts {
			delay := webhookBaseDelay * time.Duration(attempt)
			slog.Warn(service+" API request failed, retrying",
				slog.String("request_id", requestID),
				slog.Any("error", err),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))

			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return fmt.Errorf("context canceled during retry backoff: %w", ctx.Err())
			}
		}
	}

	slog.Error(service+" digest failed after all retries",
		slog.String("request_id", requestID),
		slog.Any("error", lastErr),
		slog.Int("max_attempts", webhookMaxAttempts))

	return fmt.Errorf("%s notification failed after %d attempts: %w",
		strings.ToLower(service), webhookMaxAttempts, lastErr)
}

// notifyDigest is the NotifyDigest skeleton shared by the webhook
// notifiers: stamp a request ID, take a rate limiter token, deliver.
func notifyDigest(ctx context.Context, service string, limiter *RateLimiter, digest *Digest, sendWithRetry func(context.Context, *Digest) error) error {
	requestID := uuid.New().String()
	ctx = context.WithValue(ctx, requestIDKey, requestID)

	slog.Info("Starting "+service+" digest delivery",
		slog.String("request_id", requestID),
		slog.Int("new_count", digest.NewCount),
		slog.Int("sites", digest.Sites))

	if err := limiter.Allow(ctx); err != nil {
		slog.Error("Rate limiter error",
			slog.String("request_id", requestID),
			slog.Any("error", err))
		return fmt.Errorf("rate limiter error: %w", err)
	}

	return sendWithRetry(ctx, digest)
}
