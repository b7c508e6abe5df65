// Package fixtures provides reusable test data generators for the semantic
// search tests and benchmarks.
package fixtures

import (
	"math"
	"time"

	"rfp-radar/internal/domain/entity"
)

// EmbeddingOption is a functional option for customizing test embeddings.
type EmbeddingOption func(*entity.RfpEmbedding)

// NewTestEmbedding creates a valid RfpEmbedding with sensible defaults.
//
// Example:
//
//	embedding := NewTestEmbedding()
//	embedding := NewTestEmbedding(WithRfpHash(hash), WithDimension(1536))
func NewTestEmbedding(opts ...EmbeddingOption) *entity.RfpEmbedding {
	e := &entity.RfpEmbedding{
		RfpHash:   "0c8e1ad6b2f94c7d0c8e1ad6b2f94c7d0c8e1ad6b2f94c7d0c8e1ad6b2f94c7d",
		Model:     "text-embedding-3-small",
		Dimension: 1536,
		Embedding: GenerateTestVector(1536, 0.1),
		CreatedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// WithRfpHash sets the opportunity hash of the embedding.
func WithRfpHash(hash string) EmbeddingOption {
	return func(e *entity.RfpEmbedding) {
		e.RfpHash = hash
	}
}

// WithModel sets the Model of the embedding.
func WithModel(model string) EmbeddingOption {
	return func(e *entity.RfpEmbedding) {
		e.Model = model
	}
}

// WithDimension sets the Dimension and generates a matching embedding vector.
func WithDimension(dim int) EmbeddingOption {
	return func(e *entity.RfpEmbedding) {
		e.Dimension = dim
		e.Embedding = GenerateTestVector(dim, 0.1)
	}
}

// WithEmbedding sets the Embedding vector and updates Dimension to match.
func WithEmbedding(embedding []float32) EmbeddingOption {
	return func(e *entity.RfpEmbedding) {
		e.Embedding = embedding
		e.Dimension = len(embedding)
	}
}

// GenerateTestVector creates a deterministic vector of the specified dimension.
// The seed value produces predictable but distinct vectors per call site.
//
// Example:
//
//	vec := GenerateTestVector(1536, 0.1) // [0.1, 0.101, 0.102, ...]
//	vec := GenerateTestVector(1536, 0.5) // [0.5, 0.501, 0.502, ...]
func GenerateTestVector(dimension int, seed float32) []float32 {
	vec := make([]float32, dimension)
	for i := 0; i < dimension; i++ {
		vec[i] = seed + float32(i)*0.001
	}
	return vec
}

// ZeroVector creates a vector of zeros with the specified dimension.
func ZeroVector(dimension int) []float32 {
	return make([]float32, dimension)
}

// UnitVector creates a vector with 1.0 at the specified index and 0.0
// elsewhere. Useful for pinning down specific similarity calculations.
func UnitVector(dimension int, index int) []float32 {
	vec := make([]float32, dimension)
	if index >= 0 && index < dimension {
		vec[index] = 1.0
	}
	return vec
}

// NormalizedVector creates a unit-length vector from the seed, suitable for
// cosine similarity tests.
func NormalizedVector(dimension int, seed float32) []float32 {
	vec := GenerateTestVector(dimension, seed)

	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	m := float32(math.Sqrt(magnitude))

	if m > 0 {
		for i := range vec {
			vec[i] /= m
		}
	}

	return vec
}
