package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"rfp-radar/internal/observability/logging"
	"rfp-radar/internal/usecase/discovery"
	"rfp-radar/internal/usecase/notify"
)

// Pipeline drives one discovery run. *discovery.Pipeline satisfies it.
type Pipeline interface {
	Run(ctx context.Context) (*discovery.RunStats, error)
	RunOne(ctx context.Context, siteID int64) (*discovery.RunStats, error)
}

// Options select the scope of a run and which audiences receive the digest.
type Options struct {
	// SiteID limits the run to one website row; zero covers every enabled site.
	SiteID int64
	// SendMain delivers the digest to main-audience channels.
	SendMain bool
	// SendDebug delivers the digest, run log included, to debug channels.
	SendDebug bool
}

// Service executes one discovery run end to end: capture the run log, drive
// the pipeline, dispatch the digest. The worker tick, POST /scrape and the
// scrape CLI all go through here so every entry point reports the same way.
type Service struct {
	pipeline Pipeline
	notify   notify.Service

	// runMu serializes runs in this process. The run log capture tees the
	// process-wide logger, so overlapping runs would interleave buffers.
	runMu sync.Mutex
}

// NewService builds the run orchestrator.
//
// Parameters:
//   - pipeline: Discovery pipeline to drive
//   - notifyService: Digest dispatch service; nil disables dispatching
//     (list-only CLI invocations)
//
// Returns:
//   - *Service: Configured orchestrator
func NewService(pipeline Pipeline, notifyService notify.Service) *Service {
	return &Service{
		pipeline: pipeline,
		notify:   notifyService,
	}
}

// Run executes one discovery run and dispatches the digest per opts.
//
// The run log is captured by teeing the default logger into a bounded buffer
// for the duration of the run; debug-audience digests carry the captured
// lines. Runs are serialized: a second caller blocks until the first
// finishes.
//
// Parameters:
//   - ctx: Context bounding the whole run (cancellation stops the pipeline
//     at the next item boundary)
//   - opts: Run scope and digest audiences
//
// Returns:
//   - *discovery.RunStats: Stats of the finished run
//   - error: Non-nil when the run could not start (site lookup or listing
//     load failed); per-site and per-item failures are counted in the stats
//     instead
func (s *Service) Run(ctx context.Context, opts Options) (*discovery.RunStats, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	// ランログ取得のため実行中だけ既定ロガーを差し替える
	buf := logging.NewRunBuffer(0)
	prev := slog.Default()
	slog.SetDefault(slog.New(logging.NewBufferHandler(prev.Handler(), buf, slog.LevelInfo)))
	defer slog.SetDefault(prev)

	var (
		stats *discovery.RunStats
		err   error
	)
	if opts.SiteID > 0 {
		stats, err = s.pipeline.RunOne(ctx, opts.SiteID)
	} else {
		stats, err = s.pipeline.Run(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("Service.Run: %w", err)
	}

	s.dispatch(ctx, stats, buf.Lines(), opts)
	return stats, nil
}

// dispatch hands the digest to the notify service for the selected
// audiences. Dispatch failures are logged, never returned: the run itself
// succeeded and its stats still reach the caller.
func (s *Service) dispatch(ctx context.Context, stats *discovery.RunStats, runLog []string, opts Options) {
	audiences := make([]notify.Audience, 0, 2)
	if opts.SendMain {
		audiences = append(audiences, notify.AudienceMain)
	}
	if opts.SendDebug {
		audiences = append(audiences, notify.AudienceDebug)
	}
	if len(audiences) == 0 || s.notify == nil {
		return
	}

	digest := notify.NewRunDigest(stats, runLog)
	if err := s.notify.NotifyRun(ctx, digest, audiences...); err != nil {
		slog.Warn("Digest dispatch failed", slog.Any("error", err))
	}
}
