package llm

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"rfp-radar/pkg/config"
)

// Provider identifiers accepted by LLM_PROVIDER.
const (
	ProviderBedrock   = "bedrock"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderNoop      = "noop"
)

// DefaultBedrockModelID matches the model the pipeline was tuned against.
const DefaultBedrockModelID = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

// DefaultEmbedModelID is the Bedrock embedding model for semantic search.
const DefaultEmbedModelID = "amazon.titan-embed-text-v2:0"

// Config holds provider selection and per-provider connection settings.
// All fields are loaded from environment variables by LoadConfig.
type Config struct {
	// Provider selects the backend: bedrock, anthropic, openai, or noop.
	Provider string

	// BedrockRegion and BedrockModelID build the invoke endpoint unless
	// BedrockEndpoint overrides it with a full URL.
	BedrockRegion   string
	BedrockModelID  string
	BedrockEndpoint string
	// BedrockToken is the bearer token for the Bedrock runtime API.
	BedrockToken string
	// BedrockEmbedModelID is the embedding model used for semantic search.
	BedrockEmbedModelID string
	// BedrockEmbedEndpoint overrides the embedding invoke URL.
	BedrockEmbedEndpoint string

	AnthropicAPIKey string
	AnthropicModel  string

	OpenAIAPIKey string
	OpenAIModel  string
	// OpenAIBaseURL points the client at an OpenAI-compatible endpoint
	// (Azure, a local proxy). Empty uses the public API.
	OpenAIBaseURL    string
	OpenAIEmbedModel string

	// EmbedProvider selects the embedding backend: bedrock, openai, or
	// none. Empty follows Provider when it supports embeddings.
	EmbedProvider string
	// EmbedDimensions is the vector width requested from the embedding
	// model and must match the database column.
	EmbedDimensions int

	// ConnectTimeout bounds dialing; ReadTimeout bounds one full request.
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// LoadConfig reads provider settings from environment variables.
//
// Environment variables:
//   - LLM_PROVIDER: bedrock (default), anthropic, openai, or noop
//   - BEDROCK_REGION: AWS region (default: us-east-1)
//   - BEDROCK_MODEL_ID: Bedrock model identifier
//   - BEDROCK_ENDPOINT: full invoke URL, overrides region+model
//   - AWS_BEARER_TOKEN_BEDROCK: bearer token for the Bedrock runtime
//   - BEDROCK_EMBED_MODEL_ID: Bedrock embedding model identifier
//   - BEDROCK_EMBED_ENDPOINT: full embedding invoke URL, overrides region+model
//   - ANTHROPIC_API_KEY, ANTHROPIC_MODEL: direct Anthropic API settings
//   - OPENAI_API_KEY, OPENAI_MODEL, OPENAI_BASE_URL: OpenAI settings
//   - EMBED_PROVIDER: bedrock, openai, or none
//   - EMBED_DIMENSIONS: embedding vector width (default: 1024)
//   - LLM_CONNECT_TIMEOUT, LLM_READ_TIMEOUT: per-request timeouts
func LoadConfig() Config {
	cfg := Config{
		Provider:            strings.ToLower(config.GetEnvString("LLM_PROVIDER", ProviderBedrock)),
		BedrockRegion:       config.GetEnvString("BEDROCK_REGION", "us-east-1"),
		BedrockModelID:      config.GetEnvString("BEDROCK_MODEL_ID", DefaultBedrockModelID),
		BedrockToken:        os.Getenv("AWS_BEARER_TOKEN_BEDROCK"),
		BedrockEmbedModelID: config.GetEnvString("BEDROCK_EMBED_MODEL_ID", DefaultEmbedModelID),
		AnthropicAPIKey:     os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:      config.GetEnvString("ANTHROPIC_MODEL", string(anthropic.ModelClaudeSonnet4_5_20250929)),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:         config.GetEnvString("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:       os.Getenv("OPENAI_BASE_URL"),
		OpenAIEmbedModel:    config.GetEnvString("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		EmbedProvider:       strings.ToLower(config.GetEnvString("EMBED_PROVIDER", "")),
		EmbedDimensions:     config.GetEnvInt("EMBED_DIMENSIONS", 1024),
		ConnectTimeout:      config.GetEnvDuration("LLM_CONNECT_TIMEOUT", 10*time.Second),
		ReadTimeout:         config.GetEnvDuration("LLM_READ_TIMEOUT", 60*time.Second),
	}
	cfg.BedrockEndpoint = config.GetEnvString("BEDROCK_ENDPOINT",
		BedrockInvokeEndpoint(cfg.BedrockModelID, cfg.BedrockRegion))
	cfg.BedrockEmbedEndpoint = config.GetEnvString("BEDROCK_EMBED_ENDPOINT",
		BedrockInvokeEndpoint(cfg.BedrockEmbedModelID, cfg.BedrockRegion))
	if cfg.EmbedProvider == "" {
		switch cfg.Provider {
		case ProviderBedrock, ProviderOpenAI:
			cfg.EmbedProvider = cfg.Provider
		default:
			cfg.EmbedProvider = "none"
		}
	}
	return cfg
}

// EmbedModelLabel returns the identifier of the active embedding model. It is
// stored in the model column next to each vector so rows written by an older
// model can be found and re-embedded.
func (c Config) EmbedModelLabel() string {
	switch c.EmbedProvider {
	case ProviderBedrock:
		return c.BedrockEmbedModelID
	case ProviderOpenAI:
		return c.OpenAIEmbedModel
	}
	return ""
}

// Validate checks that the selected provider has the credentials it needs.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderBedrock:
		if c.BedrockToken == "" {
			return fmt.Errorf("AWS_BEARER_TOKEN_BEDROCK is required when LLM_PROVIDER=bedrock")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER=anthropic")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
	case ProviderNoop:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q (expected bedrock, anthropic, openai, or noop)", c.Provider)
	}
	return nil
}

// BedrockInvokeEndpoint constructs the runtime invoke URL for a model in a region.
func BedrockInvokeEndpoint(modelID, region string) string {
	return fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com/model/%s/invoke", region, modelID)
}
