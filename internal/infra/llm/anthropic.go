package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic calls the Anthropic API directly, for deployments that hold a
// first-party key instead of Bedrock access.
type Anthropic struct {
	client anthropic.Client
	model  string
}

// NewAnthropic creates an Anthropic provider from cfg.
func NewAnthropic(cfg Config) *Anthropic {
	return &Anthropic{
		client: anthropic.NewClient(
			option.WithAPIKey(cfg.AnthropicAPIKey),
			option.WithRequestTimeout(cfg.ReadTimeout),
		),
		model: cfg.AnthropicModel,
	}
}

// Complete implements Provider.
func (a *Anthropic) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(req.Prompt),
			),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}
	if len(message.Content) == 0 {
		return "", fmt.Errorf("anthropic api returned empty response")
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", fmt.Errorf("anthropic api returned unexpected response type")
	}
	return textBlock.Text, nil
}

// Name implements Provider.
func (a *Anthropic) Name() string { return ProviderAnthropic }
