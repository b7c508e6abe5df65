package repository

import (
	"context"

	"rfp-radar/internal/domain/entity"
)

// KnownItem is a compact (title, url) pair fed back to the listing prompt so
// the model can skip rows the pipeline has already decided on.
type KnownItem struct {
	Title string
	URL   string
}

type RfpRepository interface {
	List(ctx context.Context) ([]*entity.ProcessedRfp, error)
	// ListPaginated retrieves processed RFPs ordered by processed_at DESC
	// using LIMIT/OFFSET. PDF bytes are not loaded by list queries.
	ListPaginated(ctx context.Context, offset, limit int) ([]*entity.ProcessedRfp, error)
	// Count returns the total number of processed rows, used for pagination
	// metadata.
	Count(ctx context.Context) (int64, error)
	// Get retrieves one row by hash, without PDF bytes.
	// Returns (nil, nil) if the row does not exist.
	Get(ctx context.Context, hash string) (*entity.ProcessedRfp, error)
	// GetPDF returns the stored PDF bytes for a row, or (nil, nil) when the
	// row exists without a PDF artifact.
	GetPDF(ctx context.Context, hash string) ([]byte, error)
	Create(ctx context.Context, rfp *entity.ProcessedRfp) error
	Delete(ctx context.Context, hash string) error
	DeleteAll(ctx context.Context) (int64, error)
	ExistsByHash(ctx context.Context, hash string) (bool, error)
	ExistsByURL(ctx context.Context, url string) (bool, error)
	// RecentForSite returns up to limit recent (title, url) pairs for a site,
	// newest first, for the listing prompt's known-rows context.
	RecentForSite(ctx context.Context, site string, limit int) ([]KnownItem, error)
}
