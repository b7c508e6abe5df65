package llm

import (
	"context"
	"fmt"
)

// CompletionRequest is a single prompt sent to the model.
type CompletionRequest struct {
	// System is the system prompt. Empty omits it.
	System string
	// Prompt is the user message.
	Prompt string
	// MaxTokens caps the response length.
	MaxTokens int
	// Temperature controls sampling. Nil omits the parameter so the
	// provider default applies; the summary call relies on that.
	Temperature *float64
}

// Provider sends one completion request and returns the model's raw text.
// Implementations perform a single attempt; retries, circuit breaking, and
// response parsing belong to the Gateway.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Name identifies the backend in logs and error messages.
	Name() string
}

// NewProvider builds the provider selected by cfg.Provider.
func NewProvider(cfg Config) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("NewProvider: %w", err)
	}
	switch cfg.Provider {
	case ProviderBedrock:
		return NewBedrock(cfg), nil
	case ProviderAnthropic:
		return NewAnthropic(cfg), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg), nil
	case ProviderNoop:
		return NewNoop(), nil
	}
	// Validate rejects anything else.
	return nil, fmt.Errorf("NewProvider: unknown provider %q", cfg.Provider)
}
