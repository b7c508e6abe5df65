package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"rfp-radar/internal/domain/entity"
	"rfp-radar/internal/repository"

	"github.com/lib/pq"
)

type ExclusionRepo struct {
	db *sql.DB
}

func NewExclusionRepo(db *sql.DB) repository.ExclusionRepository {
	return &ExclusionRepo{db: db}
}

// Create inserts an exclusion row. The first definitive decision for a hash
// wins; concurrent or repeated identical decisions are ignored.
func (repo *ExclusionRepo) Create(ctx context.Context, excl *entity.RfpExclusion) error {
	if err := excl.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	const query = `
INSERT INTO rfp_exclusions
	   (hash, reason, title, site, listing_url, detail_url, decided_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (hash) DO NOTHING`
	_, err := repo.db.ExecContext(ctx, query,
		excl.Hash, excl.Reason, excl.Title, excl.Site,
		excl.ListingURL, excl.DetailURL, excl.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *ExclusionRepo) List(ctx context.Context) ([]*entity.RfpExclusion, error) {
	const query = `
SELECT hash, reason, title, site, listing_url, detail_url, decided_at
FROM rfp_exclusions
ORDER BY decided_at DESC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	// パフォーマンス最適化: メモリ再割り当てを削減するため事前割り当て
	exclusions := make([]*entity.RfpExclusion, 0, 100)
	for rows.Next() {
		var excl entity.RfpExclusion
		if err := rows.Scan(&excl.Hash, &excl.Reason, &excl.Title,
			&excl.Site, &excl.ListingURL, &excl.DetailURL, &excl.DecidedAt); err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		exclusions = append(exclusions, &excl)
	}
	return exclusions, rows.Err()
}

func (repo *ExclusionRepo) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM rfp_exclusions WHERE hash = $1)`
	var existsFlag bool
	err := repo.db.QueryRowContext(ctx, query, hash).Scan(&existsFlag)
	if err != nil {
		return false, fmt.Errorf("ExistsByHash: %w", err)
	}
	return existsFlag, nil
}

// DeleteAll removes every exclusion row and returns the number deleted.
// Used by the maintenance CLI.
func (repo *ExclusionRepo) DeleteAll(ctx context.Context) (int64, error) {
	const query = `DELETE FROM rfp_exclusions`
	res, err := repo.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("DeleteAll: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteAll: RowsAffected: %w", err)
	}
	return count, nil
}

// RecentForSite returns up to limit recent excluded (title, url) pairs for
// the site, restricted to the given reasons. The url is the detail URL when
// navigation reached one, otherwise the listing URL.
func (repo *ExclusionRepo) RecentForSite(ctx context.Context, site string, reasons []string, limit int) ([]repository.KnownItem, error) {
	if len(reasons) == 0 {
		return []repository.KnownItem{}, nil
	}

	const query = `
SELECT title, COALESCE(detail_url, listing_url)
FROM rfp_exclusions
WHERE site = $1
  AND reason = ANY($2)
ORDER BY decided_at DESC
LIMIT $3`
	rows, err := repo.db.QueryContext(ctx, query, site, pq.Array(reasons), limit)
	if err != nil {
		return nil, fmt.Errorf("RecentForSite: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]repository.KnownItem, 0, limit)
	for rows.Next() {
		var item repository.KnownItem
		if err := rows.Scan(&item.Title, &item.URL); err != nil {
			return nil, fmt.Errorf("RecentForSite: Scan: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
