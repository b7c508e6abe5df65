package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"rfp-radar/internal/domain/entity"
	"rfp-radar/internal/repository"
)

// PutInput represents the input parameters for replacing the schedule.
// NextRunHour and NextRunMinute are wall-clock values interpreted in the
// scheduling timezone, not UTC.
type PutInput struct {
	Enabled       bool
	IntervalHours float64
	NextRunHour   int
	NextRunMinute int
}

// Service provides scheduler management use cases.
// It handles run-time anchoring and delegates persistence to the repository.
type Service struct {
	Repo repository.ScheduleRepository

	// Loc is the timezone used to interpret admin-supplied run times.
	// nil falls back to Location().
	Loc *time.Location

	// Now supplies the current time. nil means time.Now; tests pin it.
	Now func() time.Time
}

// Location resolves the scheduling timezone from SCHEDULE_TIMEZONE, then TZ,
// falling back to UTC when neither is set or the name does not load.
func Location() *time.Location {
	name := strings.TrimSpace(os.Getenv("SCHEDULE_TIMEZONE"))
	if name == "" {
		name = strings.TrimSpace(os.Getenv("TZ"))
	}
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("invalid scheduling timezone, using UTC",
			slog.String("timezone", name),
			slog.String("error", err.Error()))
		return time.UTC
	}
	return loc
}

// Get retrieves the current schedule.
// Returns ErrScheduleNotFound if no schedule has been configured.
func (s *Service) Get(ctx context.Context) (*entity.ScrapeConfig, error) {
	cfg, err := s.Repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	if cfg == nil {
		return nil, ErrScheduleNotFound
	}
	return cfg, nil
}

// Put replaces the schedule and returns the stored configuration.
// The next run is anchored at (NextRunHour, NextRunMinute) in the scheduling
// timezone; if that instant has already passed today it rolls forward one
// day. The anchored instant is stored as UTC. last_run_at of an existing
// schedule is preserved.
// Returns a ValidationError if any input field is out of range.
func (s *Service) Put(ctx context.Context, in PutInput) (*entity.ScrapeConfig, error) {
	if in.IntervalHours <= 0 {
		return nil, &entity.ValidationError{Field: "intervalHours", Message: "must be positive"}
	}
	if in.NextRunHour < 0 || in.NextRunHour > 23 {
		return nil, &entity.ValidationError{Field: "nextRunHour", Message: "must be between 0 and 23"}
	}
	if in.NextRunMinute < 0 || in.NextRunMinute > 59 {
		return nil, &entity.ValidationError{Field: "nextRunMinute", Message: "must be between 0 and 59"}
	}

	now := s.now()
	loc := s.location()
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(),
		in.NextRunHour, in.NextRunMinute, 0, 0, loc)
	// 指定時刻を今日すでに過ぎていたら翌日に送る
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	nextUTC := next.UTC()

	cfg := &entity.ScrapeConfig{
		Enabled:       in.Enabled,
		IntervalHours: in.IntervalHours,
		NextRunAt:     &nextUTC,
	}

	// Upsert は行全体を書くので、既存の last_run_at を引き継ぐ
	prev, err := s.Repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	if prev != nil {
		cfg.LastRunAt = prev.LastRunAt
	}

	if err := s.Repo.Upsert(ctx, cfg); err != nil {
		return nil, fmt.Errorf("put schedule: %w", err)
	}

	slog.Info("schedule updated",
		slog.Bool("enabled", cfg.Enabled),
		slog.Float64("interval_hours", cfg.IntervalHours),
		slog.Time("next_run_at", nextUTC),
		slog.String("timezone", loc.String()))
	return cfg, nil
}

// Delete removes the schedule. Deleting an unconfigured schedule is not an
// error.
func (s *Service) Delete(ctx context.Context) error {
	if err := s.Repo.Delete(ctx); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}

// Claim attempts to claim a due run at the current instant. It returns
// claimed = true for exactly one caller per due next_run_at; the returned
// config reflects the already-advanced row.
func (s *Service) Claim(ctx context.Context) (bool, *entity.ScrapeConfig, error) {
	claimed, cfg, err := s.Repo.Claim(ctx, s.now().UTC())
	if err != nil {
		return false, nil, fmt.Errorf("claim run: %w", err)
	}
	return claimed, cfg, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) location() *time.Location {
	if s.Loc != nil {
		return s.Loc
	}
	return Location()
}
