package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rfp-radar/internal/domain/entity"
	"rfp-radar/internal/repository"
)

type ScheduleRepo struct {
	db *sql.DB
}

func NewScheduleRepo(db *sql.DB) repository.ScheduleRepository {
	return &ScheduleRepo{db: db}
}

func (repo *ScheduleRepo) Get(ctx context.Context) (*entity.ScrapeConfig, error) {
	const query = `
SELECT enabled, interval_hours, next_run_at, last_run_at
FROM scrape_config
WHERE id = 1
LIMIT 1`
	var cfg entity.ScrapeConfig
	err := repo.db.QueryRowContext(ctx, query).
		Scan(&cfg.Enabled, &cfg.IntervalHours, &cfg.NextRunAt, &cfg.LastRunAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &cfg, nil
}

func (repo *ScheduleRepo) Upsert(ctx context.Context, cfg *entity.ScrapeConfig) error {
	const query = `
INSERT INTO scrape_config (id, enabled, interval_hours, next_run_at, last_run_at)
VALUES (1, $1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
	enabled        = EXCLUDED.enabled,
	interval_hours = EXCLUDED.interval_hours,
	next_run_at    = EXCLUDED.next_run_at,
	last_run_at    = EXCLUDED.last_run_at`
	_, err := repo.db.ExecContext(ctx, query,
		cfg.Enabled, cfg.IntervalHours, cfg.NextRunAt, cfg.LastRunAt)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (repo *ScheduleRepo) Delete(ctx context.Context) error {
	const query = `DELETE FROM scrape_config WHERE id = 1`
	if _, err := repo.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

// Claim performs the single-writer run claim. The row lock serializes
// concurrent ticks: whichever transaction locks the row first sees the due
// next_run_at, advances it past now, and claims the run; every later
// transaction sees the advanced timestamp and backs off.
func (repo *ScheduleRepo) Claim(ctx context.Context, now time.Time) (bool, *entity.ScrapeConfig, error) {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return false, nil, fmt.Errorf("Claim: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const selectQuery = `
SELECT enabled, interval_hours, next_run_at, last_run_at
FROM scrape_config
WHERE id = 1
FOR UPDATE`
	var cfg entity.ScrapeConfig
	err = tx.QueryRowContext(ctx, selectQuery).
		Scan(&cfg.Enabled, &cfg.IntervalHours, &cfg.NextRunAt, &cfg.LastRunAt)
	if err == sql.ErrNoRows {
		// No schedule configured: nothing to claim, nothing to report.
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("Claim: select: %w", err)
	}

	if !cfg.Due(now) {
		return false, &cfg, nil
	}

	next := cfg.AdvanceFrom(now)
	const updateQuery = `
UPDATE scrape_config SET
	next_run_at = $1,
	last_run_at = $2
WHERE id = 1`
	if _, err := tx.ExecContext(ctx, updateQuery, next, now); err != nil {
		return false, nil, fmt.Errorf("Claim: update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, nil, fmt.Errorf("Claim: commit: %w", err)
	}

	cfg.NextRunAt = &next
	cfg.LastRunAt = &now
	return true, &cfg, nil
}
