package repository

import (
	"context"

	"rfp-radar/internal/domain/entity"
)

type ExclusionRepository interface {
	// Create inserts an exclusion. A duplicate hash is not an error: the
	// first definitive decision wins and later identical decisions are
	// silently ignored.
	Create(ctx context.Context, excl *entity.RfpExclusion) error
	List(ctx context.Context) ([]*entity.RfpExclusion, error)
	ExistsByHash(ctx context.Context, hash string) (bool, error)
	DeleteAll(ctx context.Context) (int64, error)
	// RecentForSite returns up to limit recent (title, url) pairs excluded
	// for the given reasons on a site. Used to build the listing prompt's
	// known-rows context alongside processed rows.
	RecentForSite(ctx context.Context, site string, reasons []string, limit int) ([]KnownItem, error)
}
