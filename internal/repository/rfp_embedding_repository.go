package repository

import (
	"context"

	"rfp-radar/internal/domain/entity"
)

// SimilarRfp is one semantic search hit: the RFP hash plus a cosine
// similarity score in [0, 1].
type SimilarRfp struct {
	RfpHash    string
	Similarity float64
}

// RfpEmbeddingRepository manages the pgvector side-channel. Rows cascade away
// with their RFP, so deletion is only needed for explicit re-embeds.
type RfpEmbeddingRepository interface {
	// Upsert stores or replaces the embedding for an RFP hash.
	Upsert(ctx context.Context, embedding *entity.RfpEmbedding) error
	// SearchSimilar returns up to limit hashes ordered by cosine similarity
	// to the query vector, highest first.
	SearchSimilar(ctx context.Context, query []float32, limit int) ([]SimilarRfp, error)
	// DeleteByHash removes the embedding for one RFP; returns rows deleted.
	DeleteByHash(ctx context.Context, hash string) (int64, error)
}
