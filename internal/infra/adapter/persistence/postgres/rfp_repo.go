package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"rfp-radar/internal/domain/entity"
	"rfp-radar/internal/repository"
)

type RfpRepo struct {
	db *sql.DB
}

func NewRfpRepo(db *sql.DB) repository.RfpRepository {
	return &RfpRepo{db: db}
}

// List and known-rows queries never select detail_content or pdf_content:
// megabytes of extracted text and PDF bytes stay out of list paths.
func (repo *RfpRepo) List(ctx context.Context) ([]*entity.ProcessedRfp, error) {
	const query = `
SELECT hash, title, url, site, processed_at, ai_summary
FROM processed_rfps
ORDER BY processed_at DESC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	// パフォーマンス最適化: メモリ再割り当てを削減するため事前割り当て
	rfps := make([]*entity.ProcessedRfp, 0, 100)
	for rows.Next() {
		var rfp entity.ProcessedRfp
		if err := rows.Scan(&rfp.Hash, &rfp.Title, &rfp.URL,
			&rfp.Site, &rfp.ProcessedAt, &rfp.AISummary); err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		rfps = append(rfps, &rfp)
	}
	return rfps, rows.Err()
}

// ListPaginated retrieves processed RFPs ordered by processed_at DESC.
// Uses LIMIT and OFFSET for efficient pagination.
func (repo *RfpRepo) ListPaginated(ctx context.Context, offset, limit int) ([]*entity.ProcessedRfp, error) {
	const query = `
SELECT hash, title, url, site, processed_at, ai_summary
FROM processed_rfps
ORDER BY processed_at DESC
LIMIT $1 OFFSET $2`

	rows, err := repo.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ListPaginated: %w", err)
	}
	defer func() { _ = rows.Close() }()

	rfps := make([]*entity.ProcessedRfp, 0, limit)
	for rows.Next() {
		var rfp entity.ProcessedRfp
		if err := rows.Scan(&rfp.Hash, &rfp.Title, &rfp.URL,
			&rfp.Site, &rfp.ProcessedAt, &rfp.AISummary); err != nil {
			return nil, fmt.Errorf("ListPaginated: Scan: %w", err)
		}
		rfps = append(rfps, &rfp)
	}
	return rfps, rows.Err()
}

// Count returns the total number of processed rows.
func (repo *RfpRepo) Count(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM processed_rfps`
	var count int64
	err := repo.db.QueryRowContext(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return count, nil
}

func (repo *RfpRepo) Get(ctx context.Context, hash string) (*entity.ProcessedRfp, error) {
	const query = `
SELECT hash, title, url, site, processed_at, detail_content, ai_summary
FROM processed_rfps
WHERE hash = $1
LIMIT 1`
	var rfp entity.ProcessedRfp
	err := repo.db.QueryRowContext(ctx, query, hash).
		Scan(&rfp.Hash, &rfp.Title, &rfp.URL, &rfp.Site,
			&rfp.ProcessedAt, &rfp.DetailContent, &rfp.AISummary)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &rfp, nil
}

// GetPDF returns the stored PDF bytes for a row. A row without a PDF yields
// (nil, nil), same as a missing row; callers distinguish via Get if needed.
func (repo *RfpRepo) GetPDF(ctx context.Context, hash string) ([]byte, error) {
	const query = `SELECT pdf_content FROM processed_rfps WHERE hash = $1 LIMIT 1`
	var pdf []byte
	err := repo.db.QueryRowContext(ctx, query, hash).Scan(&pdf)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetPDF: %w", err)
	}
	return pdf, nil
}

func (repo *RfpRepo) Create(ctx context.Context, rfp *entity.ProcessedRfp) error {
	if err := rfp.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	// 重複挿入レース対策: exists チェック後の同時 INSERT は無視する
	const query = `
INSERT INTO processed_rfps
	   (hash, title, url, site, processed_at, detail_content, ai_summary, pdf_content)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT DO NOTHING`
	_, err := repo.db.ExecContext(ctx, query,
		rfp.Hash, rfp.Title, rfp.URL, rfp.Site,
		rfp.ProcessedAt, rfp.DetailContent, rfp.AISummary, rfp.PDFContent,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *RfpRepo) Delete(ctx context.Context, hash string) error {
	const query = `DELETE FROM processed_rfps WHERE hash = $1`
	res, err := repo.db.ExecContext(ctx, query, hash)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: %w", entity.ErrNotFound)
	}
	return nil
}

// DeleteAll removes every processed row and returns the number deleted.
// Used by the maintenance CLI.
func (repo *RfpRepo) DeleteAll(ctx context.Context) (int64, error) {
	const query = `DELETE FROM processed_rfps`
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

func (repo *RfpRepo) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM processed_rfps WHERE hash = $1)`
	var existsFlag bool
	err := repo.db.QueryRowContext(ctx, query, hash).Scan(&existsFlag)
	if err != nil {
		return false, fmt.Errorf("ExistsByHash: %w", err)
	}
	return existsFlag, nil
}

func (repo *RfpRepo) ExistsByURL(ctx context.Context, url string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM processed_rfps WHERE url = $1)`
	var existsFlag bool
	err := repo.db.QueryRowContext(ctx, query, url).Scan(&existsFlag)
	if err != nil {
		return false, fmt.Errorf("ExistsByURL: %w", err)
	}
	return existsFlag, nil
}

// RecentForSite returns up to limit recent (title, url) pairs for the site,
// newest first. Feeds the listing prompt's known-rows context.
func (repo *RfpRepo) RecentForSite(ctx context.Context, site string, limit int) ([]repository.KnownItem, error) {
	const query = `
SELECT title, url
FROM processed_rfps
WHERE site = $1
ORDER BY processed_at DESC
LIMIT $2`
	rows, err := repo.db.QueryContext(ctx, query, site, limit)
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
