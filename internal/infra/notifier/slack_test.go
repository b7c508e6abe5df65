package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// newWebhookSlackNotifier points a SlackNotifier at a test server.
func newWebhookSlackNotifier(url string, timeout time.Duration) *SlackNotifier {
	return NewSlackNotifier(SlackConfig{
		Enabled:    true,
		WebhookURL: url,
		Timeout:    timeout,
	})
}

// countingServer returns a server running handler and a counter of the
// requests it received.
func countingServer(t *testing.T, handler func(count int32, w http.ResponseWriter, r *http.Request)) (*httptest.Server, *int32) {
	t.Helper()
	var requestCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := atomic.AddInt32(&requestCount, 1)
		handler(count, w, r)
	}))
	t.Cleanup(server.Close)
	return server, &requestCount
}

func TestSlackNotifier_buildBlockKitPayload(t *testing.T) {
	notifier := newWebhookSlackNotifier("https://hooks.slack.com/services/test", 10*time.Second)

	t.Run("full digest", func(t *testing.T) {
		digest := sampleDigest()
		payload := notifier.buildBlockKitPayload(digest)

		// 統計セクション + アイテムごとのセクション + コンテキスト
		if len(payload.Blocks) != 4 {
			t.Fatalf("expected 4 blocks, got %d", len(payload.Blocks))
		}
		if payload.Text != digest.Subject() {
			t.Errorf("expected fallback text %q, got %q", digest.Subject(), payload.Text)
		}

		statsBlock := payload.Blocks[0]
		if statsBlock.Type != "section" {
			t.Errorf("expected block type=%q, got %q", "section", statsBlock.Type)
		}
		if statsBlock.Text == nil {
			t.Fatal("expected stats block to have text")
		}
		if statsBlock.Text.Type != "mrkdwn" {
			t.Errorf("expected text type=%q, got %q", "mrkdwn", statsBlock.Text.Type)
		}
		if !strings.Contains(statsBlock.Text.Text, "12 proposed, 2 new, 5 excluded, 1 failed") {
			t.Errorf("expected stats block to contain run counters, got %q", statsBlock.Text.Text)
		}

		itemBlock := payload.Blocks[1]
		expectedTitleLink := fmt.Sprintf("*<%s|%s>*", digest.Items[0].URL, digest.Items[0].Title)
		if !strings.Contains(itemBlock.Text.Text, expectedTitleLink) {
			t.Errorf("expected item block to contain %q", expectedTitleLink)
		}
		if !strings.Contains(itemBlock.Text.Text, "Statewide telehealth build-out.") {
			t.Errorf("expected item block to contain summary, got %q", itemBlock.Text.Text)
		}

		contextBlock := payload.Blocks[3]
		if contextBlock.Type != "context" {
			t.Errorf("expected block type=%q, got %q", "context", contextBlock.Type)
		}
		if len(contextBlock.Elements) != 1 {
			t.Fatalf("expected 1 context element, got %d", len(contextBlock.Elements))
		}
		expectedContext := "4 sites • started 2026-08-25T09:00:00Z • took 1m23s"
		if contextBlock.Elements[0].Text != expectedContext {
			t.Errorf("expected context=%q, got %q", expectedContext, contextBlock.Elements[0].Text)
		}
	})

	t.Run("truncates long item text", func(t *testing.T) {
		digest := sampleDigest()
		digest.Items = digest.Items[:1]
		digest.Items[0].Summary = strings.Repeat("a", 5000)

		payload := notifier.buildBlockKitPayload(digest)

		sectionText := payload.Blocks[1].Text.Text
		if len(sectionText) != maxSectionTextLength {
			t.Errorf("expected section text length=%d, got %d", maxSectionTextLength, len(sectionText))
		}
		if !strings.HasSuffix(sectionText, slackTruncationSuffix) {
			t.Errorf("expected section text to end with %q", slackTruncationSuffix)
		}
	})

	t.Run("caps rendered items and notes the omission", func(t *testing.T) {
		digest := sampleDigest()
		digest.Items = nil
		for i := 0; i < 25; i++ {
			digest.Items = append(digest.Items, DigestItem{
				Title: fmt.Sprintf("Opportunity %d", i),
				URL:   fmt.Sprintf("https://example.gov/rfps/%d", i),
				Site:  "Example Portal",
			})
		}

		payload := notifier.buildBlockKitPayload(digest)

		// 統計 + 20件 + 省略注記 + コンテキスト
		if len(payload.Blocks) != maxSlackDigestItems+3 {
			t.Fatalf("expected %d blocks, got %d", maxSlackDigestItems+3, len(payload.Blocks))
		}
		omissionBlock := payload.Blocks[maxSlackDigestItems+1]
		if !strings.Contains(omissionBlock.Text.Text, "5 more not shown") {
			t.Errorf("expected omission note, got %q", omissionBlock.Text.Text)
		}
	})

	t.Run("stats and context only when nothing is new", func(t *testing.T) {
		digest := sampleDigest()
		digest.NewCount = 0
		digest.Items = nil

		payload := notifier.buildBlockKitPayload(digest)

		if len(payload.Blocks) != 2 {
			t.Fatalf("expected 2 blocks, got %d", len(payload.Blocks))
		}
		if payload.Blocks[0].Type != "section" || payload.Blocks[1].Type != "context" {
			t.Errorf("expected [section, context], got [%s, %s]", payload.Blocks[0].Type, payload.Blocks[1].Type)
		}
	})
}

func TestTruncateSummary(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		maxLength int
		want      string
	}{
		{"short text untouched", "Short summary", 100, "Short summary"},
		{"exact length untouched", strings.Repeat("a", 50), 50, strings.Repeat("a", 50)},
		{"long text truncated", strings.Repeat("a", 100), 50, strings.Repeat("a", 47) + "..."},
		{"maxLength equals suffix", "abcdef", 3, "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateSummary(tt.text, tt.maxLength, "..."); got != tt.want {
				t.Errorf("truncateSummary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSlackNotifier_sendWebhookRequest(t *testing.T) {
	t.Run("200 OK", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("expected Content-Type=application/json, got %q", r.Header.Get("Content-Type"))
			}

			body, _ := io.ReadAll(r.Body)
			var payload SlackWebhookPayload
			if err := json.Unmarshal(body, &payload); err != nil {
				t.Errorf("failed to parse request body: %v", err)
			}
			if payload.Text == "" {
				t.Error("expected fallback text to be non-empty")
			}
			if len(payload.Blocks) == 0 {
				t.Error("expected blocks to be non-empty")
			}

			// Slack はプレーンテキストで "ok" を返す
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		}))
		defer server.Close()

		notifier := newWebhookSlackNotifier(server.URL, 10*time.Second)

		if err := notifier.sendWebhookRequest(context.Background(), sampleDigest()); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("429 with Retry-After header", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"ok": false, "error": "rate_limited"}`))
		}))
		defer server.Close()

		notifier := newWebhookSlackNotifier(server.URL, 10*time.Second)

		err := notifier.sendWebhookRequest(context.Background(), sampleDigest())
		if err == nil {
			t.Fatal("expected rate limit error, got nil")
		}
		rateLimitErr, ok := err.(*RateLimitError)
		if !ok {
			t.Fatalf("expected RateLimitError, got %T", err)
		}
		if rateLimitErr.RetryAfter != 2*time.Second {
			t.Errorf("expected retry_after=2s, got %v", rateLimitErr.RetryAfter)
		}
	})

	t.Run("4xx becomes non-retryable ClientError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok": false, "error": "invalid_payload"}`))
		}))
		defer server.Close()

		notifier := newWebhookSlackNotifier(server.URL, 10*time.Second)

		err := notifier.sendWebhookRequest(context.Background(), sampleDigest())
		if err == nil {
			t.Fatal("expected client error, got nil")
		}
		clientErr, ok := err.(*ClientError)
		if !ok {
			t.Fatalf("expected ClientError, got %T", err)
		}
		if clientErr.StatusCode != http.StatusBadRequest {
			t.Errorf("expected status code=%d, got %d", http.StatusBadRequest, clientErr.StatusCode)
		}
		if isRetryableError(err) {
			t.Error("expected client error to be non-retryable")
		}
	})

	t.Run("5xx becomes retryable ServerError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"ok": false, "error": "slack_internal_error"}`))
		}))
		defer server.Close()

		notifier := newWebhookSlackNotifier(server.URL, 10*time.Second)

		err := notifier.sendWebhookRequest(context.Background(), sampleDigest())
		if err == nil {
			t.Fatal("expected server error, got nil")
		}
		serverErr, ok := err.(*ServerError)
		if !ok {
			t.Fatalf("expected ServerError, got %T", err)
		}
		if serverErr.StatusCode != http.StatusInternalServerError {
			t.Errorf("expected status code=%d, got %d", http.StatusInternalServerError, serverErr.StatusCode)
		}
		if !isRetryableError(err) {
			t.Error("expected server error to be retryable")
		}
	})

	t.Run("network timeout is retryable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		notifier := newWebhookSlackNotifier(server.URL, 50*time.Millisecond)

		err := notifier.sendWebhookRequest(context.Background(), sampleDigest())
		if err == nil {
			t.Fatal("expected timeout error, got nil")
		}
		if !isRetryableError(err) {
			t.Error("expected network timeout to be retryable")
		}
	})
}

func TestSlackNotifier_sendWebhookRequestWithRetry(t *testing.T) {
	t.Run("first attempt succeeds", func(t *testing.T) {
		server, requestCount := countingServer(t, func(count int32, w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})

		notifier := newWebhookSlackNotifier(server.URL, 10*time.Second)
		ctx := context.WithValue(context.Background(), requestIDKey, "test-request-1")

		if err := notifier.sendWebhookRequestWithRetry(ctx, sampleDigest()); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if atomic.LoadInt32(requestCount) != 1 {
			t.Errorf("expected 1 request, got %d", *requestCount)
		}
	})

	t.Run("respects retry_after from 429 body", func(t *testing.T) {
		server, requestCount := countingServer(t, func(count int32, w http.ResponseWriter, r *http.Request) {
			if count == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"retry_after": 0.05}`))
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})

		notifier := newWebhookSlackNotifier(server.URL, 10*time.Second)
		ctx := context.WithValue(context.Background(), requestIDKey, "test-request-2")

		if err := notifier.sendWebhookRequestWithRetry(ctx, sampleDigest()); err != nil {
			t.Errorf("expected no error after retry, got %v", err)
		}
		if atomic.LoadInt32(requestCount) != 2 {
			t.Errorf("expected 2 requests, got %d", *requestCount)
		}
	})

	t.Run("fails after max attempts", func(t *testing.T) {
		server, requestCount := countingServer(t, func(count int32, w http.ResponseWriter, r *http.Request) {
			// 常にレート制限。retry_after を短くしてテストを速く保つ
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"retry_after": 0.05}`))
		})

		notifier := newWebhookSlackNotifier(server.URL, 10*time.Second)
		ctx := context.WithValue(context.Background(), requestIDKey, "test-request-3")

		err := notifier.sendWebhookRequestWithRetry(ctx, sampleDigest())
		if err == nil {
			t.Fatal("expected error after max retries, got nil")
		}
		if atomic.LoadInt32(requestCount) != 2 {
			t.Errorf("expected 2 requests (max attempts), got %d", *requestCount)
		}
		if !strings.Contains(err.Error(), "failed after 2 attempts") {
			t.Errorf("expected error message to mention 2 attempts, got %v", err)
		}
	})

	t.Run("does not retry 4xx", func(t *testing.T) {
		server, requestCount := countingServer(t, func(count int32, w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})

		notifier := newWebhookSlackNotifier(server.URL, 10*time.Second)
		ctx := context.WithValue(context.Background(), requestIDKey, "test-request-4")

		err := notifier.sendWebhookRequestWithRetry(ctx, sampleDigest())
		if err == nil {
			t.Fatal("expected error for 400, got nil")
		}
		if atomic.LoadInt32(requestCount) != 1 {
			t.Errorf("expected 1 request (no retry for 4xx), got %d", *requestCount)
		}
		clientErr, ok := err.(*ClientError)
		if !ok {
			t.Fatalf("expected ClientError, got %T", err)
		}
		if clientErr.StatusCode != http.StatusBadRequest {
			t.Errorf("expected status code=400, got %d", clientErr.StatusCode)
		}
	})

	t.Run("context deadline during backoff", func(t *testing.T) {
		server, requestCount := countingServer(t, func(count int32, w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		notifier := newWebhookSlackNotifier(server.URL, 10*time.Second)
		ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
		defer cancel()
		ctx = context.WithValue(ctx, requestIDKey, "test-request-5")

		err := notifier.sendWebhookRequestWithRetry(ctx, sampleDigest())
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "context canceled during retry backoff") {
			t.Errorf("expected context cancellation error, got %v", err)
		}
		// バックオフ完了前に期限が切れるため2回目は送られない
		if atomic.LoadInt32(requestCount) != 1 {
			t.Errorf("expected 1 request, got %d", *requestCount)
		}
	})
}

func TestSlackNotifier_NotifyDigest(t *testing.T) {
	t.Run("end to end success", func(t *testing.T) {
		server, requestCount := countingServer(t, func(count int32, w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})

		notifier := newWebhookSlackNotifier(server.URL, 10*time.Second)

		if err := notifier.NotifyDigest(context.Background(), sampleDigest()); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if atomic.LoadInt32(requestCount) != 1 {
			t.Errorf("expected 1 webhook request, got %d", *requestCount)
		}
	})

	t.Run("returns error without panicking on failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 4xx はリトライしないので素早く失敗する
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		notifier := newWebhookSlackNotifier(server.URL, 10*time.Second)

		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("expected no panic, but got panic: %v", r)
				}
			}()
			err = notifier.NotifyDigest(context.Background(), sampleDigest())
		}()

		if err == nil {
			t.Error("expected error, got nil")
		}
	})
}

func TestNewSlackNotifier(t *testing.T) {
	config := SlackConfig{
		Enabled:    true,
		WebhookURL: "https://hooks.slack.com/services/test",
		Timeout:    15 * time.Second,
	}

	notifier := NewSlackNotifier(config)

	if notifier == nil {
		t.Fatal("expected non-nil notifier")
	}
	if notifier.httpClient == nil {
		t.Error("expected http client to be initialized")
	}
	if notifier.httpClient.Timeout != config.Timeout {
		t.Errorf("expected timeout=%v, got %v", config.Timeout, notifier.httpClient.Timeout)
	}
	if notifier.rateLimiter == nil {
		t.Error("expected rate limiter to be initialized")
	}
	if notifier.config.WebhookURL != config.WebhookURL {
		t.Errorf("expected webhook URL=%q, got %q", config.WebhookURL, notifier.config.WebhookURL)
	}
}
