package ai

import (
	"context"
	"time"
)

// Embedder produces a fixed-width vector for a text. The storage hook and the
// search path must share one implementation so query vectors land in the same
// space as the stored rows. llm.NewEmbeddingProvider builds the production
// backends (Bedrock Titan or OpenAI).
type Embedder interface {
	// Embed generates the vector for the given content.
	Embed(ctx context.Context, content string) ([]float32, error)

	// Dimensions returns the vector width the backend is configured for.
	Dimensions() int
}

// Answerer turns a question plus retrieved passages into a grounded answer.
// *llm.Gateway is the production implementation; it shares the retry and
// circuit breaker policy of the pipeline's model calls.
type Answerer interface {
	Answer(ctx context.Context, question string, passages []Passage) (string, error)
}

// Passage is one retrieved opportunity handed to the answer prompt as context.
type Passage struct {
	Title   string
	URL     string
	Summary string
}

// SearchHit is one semantic search result joined back to its stored row.
type SearchHit struct {
	Hash        string
	Title       string
	URL         string
	Site        string
	Summary     string
	Similarity  float64
	ProcessedAt time.Time
}

// Answer is the Q&A result together with the rows that grounded it.
type Answer struct {
	Text    string
	Sources []SearchHit
}
