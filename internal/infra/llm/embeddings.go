package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// EmbeddingProvider produces a fixed-width vector for a text. The width
// must match the pgvector column the vectors are stored in.
type EmbeddingProvider interface {
	Embed(ctx context.Context, content string) ([]float32, error)
	Dimensions() int
}

// NewEmbeddingProvider builds the embedding backend selected by
// cfg.EmbedProvider. It returns (nil, nil) when embeddings are disabled;
// callers treat a nil provider as the semantic-search feature being off.
func NewEmbeddingProvider(cfg Config) (EmbeddingProvider, error) {
	switch cfg.EmbedProvider {
	case ProviderBedrock:
		if cfg.BedrockToken == "" {
			return nil, fmt.Errorf("NewEmbeddingProvider: AWS_BEARER_TOKEN_BEDROCK is required when EMBED_PROVIDER=bedrock")
		}
		return NewBedrockEmbedder(cfg), nil
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("NewEmbeddingProvider: OPENAI_API_KEY is required when EMBED_PROVIDER=openai")
		}
		return NewOpenAIEmbedder(cfg), nil
	case "none", "":
		return nil, nil
	}
	return nil, fmt.Errorf("NewEmbeddingProvider: unknown EMBED_PROVIDER %q (expected bedrock, openai, or none)", cfg.EmbedProvider)
}

// BedrockEmbedder calls a Titan embedding model through the same Bedrock
// runtime API the completion provider uses.
type BedrockEmbedder struct {
	api        *Bedrock
	endpoint   string
	dimensions int
}

// NewBedrockEmbedder creates a Titan embedder from cfg.
func NewBedrockEmbedder(cfg Config) *BedrockEmbedder {
	endpoint := cfg.BedrockEmbedEndpoint
	if endpoint == "" {
		endpoint = BedrockInvokeEndpoint(cfg.BedrockEmbedModelID, cfg.BedrockRegion)
	}
	return &BedrockEmbedder{
		api:        NewBedrock(cfg),
		endpoint:   endpoint,
		dimensions: cfg.EmbedDimensions,
	}
}

type titanEmbedRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type titanEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed implements EmbeddingProvider.
func (e *BedrockEmbedder) Embed(ctx context.Context, content string) ([]float32, error) {
	start := time.Now()
	body, err := e.api.invoke(ctx, e.endpoint, titanEmbedRequest{
		InputText:  content,
		Dimensions: e.dimensions,
	})
	llmRequestDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())
	if err != nil {
		llmRequestsTotal.WithLabelValues("embed", "error").Inc()
		return nil, fmt.Errorf("BedrockEmbedder.Embed: %w", err)
	}

	var decoded titanEmbedResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		llmRequestsTotal.WithLabelValues("embed", "error").Inc()
		return nil, fmt.Errorf("BedrockEmbedder.Embed: decode response: %w", err)
	}
	if len(decoded.Embedding) == 0 {
		llmRequestsTotal.WithLabelValues("embed", "error").Inc()
		return nil, fmt.Errorf("BedrockEmbedder.Embed: empty embedding")
	}
	llmRequestsTotal.WithLabelValues("embed", "success").Inc()
	return decoded.Embedding, nil
}

// Dimensions implements EmbeddingProvider.
func (e *BedrockEmbedder) Dimensions() int { return e.dimensions }

// OpenAIEmbedder calls the OpenAI embeddings API. The text-embedding-3
// models accept a dimensions parameter, which keeps the vector width
// compatible with the Titan default.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewOpenAIEmbedder creates an OpenAI embedder from cfg.
func NewOpenAIEmbedder(cfg Config) *OpenAIEmbedder {
	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAIBaseURL
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      openai.EmbeddingModel(cfg.OpenAIEmbedModel),
		dimensions: cfg.EmbedDimensions,
	}
}

// Embed implements EmbeddingProvider.
func (e *OpenAIEmbedder) Embed(ctx context.Context, content string) ([]float32, error) {
	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{content},
		Model:      e.model,
		Dimensions: e.dimensions,
	})
	llmRequestDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())
	if err != nil {
		llmRequestsTotal.WithLabelValues("embed", "error").Inc()
		return nil, fmt.Errorf("OpenAIEmbedder.Embed: %w", err)
	}
	if len(resp.Data) == 0 {
		llmRequestsTotal.WithLabelValues("embed", "error").Inc()
		return nil, fmt.Errorf("OpenAIEmbedder.Embed: empty embedding response")
	}
	llmRequestsTotal.WithLabelValues("embed", "success").Inc()
	return resp.Data[0].Embedding, nil
}

// Dimensions implements EmbeddingProvider.
func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }
