package repository

import (
	"context"
	"time"

	"rfp-radar/internal/domain/entity"
)

type ScheduleRepository interface {
	// Get returns the singleton scheduler row, or (nil, nil) when no schedule
	// has been configured yet.
	Get(ctx context.Context) (*entity.ScrapeConfig, error)
	// Upsert writes the singleton row.
	Upsert(ctx context.Context, cfg *entity.ScrapeConfig) error
	Delete(ctx context.Context) error
	// Claim atomically decides whether a run is due at now. It opens a
	// transaction, locks the singleton row with SELECT ... FOR UPDATE, and if
	// the schedule is enabled and due it advances next_run_at past now, sets
	// last_run_at = now, and commits. Exactly one concurrent caller observes
	// claimed = true for a given next_run_at.
	Claim(ctx context.Context, now time.Time) (claimed bool, cfg *entity.ScrapeConfig, err error)
}
