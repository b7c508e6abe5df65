package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rfp-radar/internal/domain/entity"
	"rfp-radar/internal/repository"

	"github.com/pgvector/pgvector-go"
)

// DefaultSearchTimeout is the default timeout for similarity search queries.
const DefaultSearchTimeout = 5 * time.Second

// RfpEmbeddingRepo implements the RfpEmbeddingRepository interface for
// PostgreSQL with the pgvector extension.
type RfpEmbeddingRepo struct {
	db *sql.DB
}

// NewRfpEmbeddingRepo creates a new PostgreSQL-based RfpEmbeddingRepository.
func NewRfpEmbeddingRepo(db *sql.DB) repository.RfpEmbeddingRepository {
	return &RfpEmbeddingRepo{db: db}
}

// Upsert stores or replaces the embedding for an RFP hash.
func (repo *RfpEmbeddingRepo) Upsert(ctx context.Context, embedding *entity.RfpEmbedding) error {
	if embedding == nil {
		return fmt.Errorf("Upsert: embedding is nil")
	}
	if err := embedding.Validate(); err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	vector := pgvector.NewVector(embedding.Embedding)

	const query = `
INSERT INTO rfp_embeddings (rfp_hash, embedding, model, dimension, created_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (rfp_hash)
DO UPDATE SET
	embedding = EXCLUDED.embedding,
	model     = EXCLUDED.model,
	dimension = EXCLUDED.dimension,
	created_at = NOW()
RETURNING created_at`

	err := repo.db.QueryRowContext(ctx, query,
		embedding.RfpHash,
		vector,
		embedding.Model,
		len(embedding.Embedding),
	).Scan(&embedding.CreatedAt)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

// SearchSimilar finds RFPs with embeddings similar to the query vector.
// Uses the cosine distance operator (<=>) for comparison.
func (repo *RfpEmbeddingRepo) SearchSimilar(ctx context.Context, query []float32, limit int) ([]repository.SimilarRfp, error) {
	searchCtx, cancel := context.WithTimeout(ctx, DefaultSearchTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	vector := pgvector.NewVector(query)

	const searchQuery = `
SELECT rfp_hash, 1 - (embedding <=> $1) AS similarity
FROM rfp_embeddings
ORDER BY embedding <=> $1
LIMIT $2`

	rows, err := repo.db.QueryContext(searchCtx, searchQuery, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("SearchSimilar: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]repository.SimilarRfp, 0, limit)
	for rows.Next() {
		var result repository.SimilarRfp
		if err := rows.Scan(&result.RfpHash, &result.Similarity); err != nil {
			return nil, fmt.Errorf("SearchSimilar: Scan: %w", err)
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SearchSimilar: %w", err)
	}
	return results, nil
}

// DeleteByHash removes the embedding for one RFP hash.
func (repo *RfpEmbeddingRepo) DeleteByHash(ctx context.Context, hash string) (int64, error) {
	const query = `DELETE FROM rfp_embeddings WHERE rfp_hash = $1`

	result, err := repo.db.ExecContext(ctx, query, hash)
	if err != nil {
		return 0, fmt.Errorf("DeleteByHash: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteByHash: RowsAffected: %w", err)
	}
	return count, nil
}
