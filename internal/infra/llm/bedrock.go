package llm

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"rfp-radar/internal/resilience/retry"
)

// bedrockAnthropicVersion is the wire version the Bedrock runtime expects
// for Anthropic models.
const bedrockAnthropicVersion = "bedrock-2023-05-31"

// maxErrorBodyBytes bounds how much of an error response is kept for the
// error message.
const maxErrorBodyBytes = 500

// Bedrock invokes Anthropic models through the Amazon Bedrock runtime's
// InvokeModel HTTP API, authenticating with a bearer token.
type Bedrock struct {
	client   *http.Client
	endpoint string
	token    string
}

// NewBedrock creates a Bedrock provider from cfg. The HTTP client enforces
// TLS 1.2+ and separates the dial timeout from the full-request timeout.
func NewBedrock(cfg Config) *Bedrock {
	return &Bedrock{
		client:   newAPIClient(cfg),
		endpoint: cfg.BedrockEndpoint,
		token:    cfg.BedrockToken,
	}
}

// newAPIClient builds the HTTP client shared by the Bedrock completion and
// embedding providers.
func newAPIClient(cfg Config) *http.Client {
	return &http.Client{
		Timeout: cfg.ReadTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: cfg.ConnectTimeout,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: cfg.ConnectTimeout,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	Messages         []bedrockMessage `json:"messages"`
	System           string           `json:"system,omitempty"`
	Temperature      *float64         `json:"temperature,omitempty"`
}

type bedrockResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// Complete sends one InvokeModel request and returns the first content
// block's text. Throttling and server errors come back as *retry.HTTPError
// so the gateway's retry policy can recognize them.
func (b *Bedrock) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	payload := bedrockRequest{
		AnthropicVersion: bedrockAnthropicVersion,
		MaxTokens:        req.MaxTokens,
		Messages:         []bedrockMessage{{Role: "user", Content: req.Prompt}},
		System:           req.System,
		Temperature:      req.Temperature,
	}
	body, err := b.invoke(ctx, b.endpoint, payload)
	if err != nil {
		return "", fmt.Errorf("bedrock api error: %w", err)
	}

	var decoded bedrockResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("bedrock non-JSON response (first %d bytes): %s",
			maxErrorBodyBytes, snippet(body))
	}
	if len(decoded.Content) == 0 || decoded.Content[0].Text == "" {
		return "", fmt.Errorf("bedrock returned empty response")
	}
	return decoded.Content[0].Text, nil
}

// Name implements Provider.
func (b *Bedrock) Name() string { return ProviderBedrock }

// invoke POSTs a JSON payload to a Bedrock runtime endpoint and returns the
// raw response body.
func (b *Bedrock) invoke(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+b.token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// 429 と 5xx はリトライ対象、それ以外の 4xx は即時失敗になる
		msg := fmt.Sprintf("%s: %s", resp.Status, snippet(readLimited(resp.Body)))
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: msg}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

func readLimited(r io.Reader) []byte {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	return body
}

func snippet(body []byte) string {
	if len(body) > maxErrorBodyBytes {
		body = body[:maxErrorBodyBytes]
	}
	return string(body)
}
