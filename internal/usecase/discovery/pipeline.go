package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"rfp-radar/internal/domain/entity"
	"rfp-radar/internal/observability/metrics"
	"rfp-radar/internal/repository"
)

// StoredHook runs after a new row is persisted, for work that rides along
// with discovery but must not fail it (embedding generation). Implementations
// return immediately and log their own failures.
type StoredHook interface {
	RfpStored(ctx context.Context, rfp *entity.ProcessedRfp)
}

// NewRfp is the digest-facing record of one newly stored opportunity.
type NewRfp struct {
	Hash    string
	Title   string
	URL     string
	Site    string
	Summary string
}

// RunStats summarizes one discovery run for the email digest, the scrape
// endpoint's response, and the run log.
type RunStats struct {
	StartedAt time.Time
	Duration  time.Duration
	// Sites is the number of sites the run covered.
	Sites int
	// SitesFailed counts sites whose listing analysis failed outright.
	SitesFailed int
	// ItemsProposed counts items proposed across all sites before validation.
	ItemsProposed int
	// NewCount counts newly stored opportunities.
	NewCount int
	// Excluded counts definitive rejections persisted this run.
	Excluded int
	// Failed counts items lost to transient failures; they retry next run.
	Failed int
	// NewRfps lists the stored opportunities in processing order.
	NewRfps []NewRfp
}

// Pipeline drives one discovery run across the enabled sites: analyze the
// listing, navigate each candidate, validate and persist. Sites fail
// independently; one broken site never stops the rest of the run.
type Pipeline struct {
	websites    repository.WebsiteRepository
	analyzer    *Analyzer
	navigator   *Navigator
	validator   *Validator
	hook        StoredHook
	concurrency int
}

// NewPipeline builds a Pipeline. hook may be nil. concurrency bounds how
// many sites run at once; values below one mean sequential.
func NewPipeline(
	websites repository.WebsiteRepository,
	analyzer *Analyzer,
	navigator *Navigator,
	validator *Validator,
	hook StoredHook,
	concurrency int,
) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{
		websites:    websites,
		analyzer:    analyzer,
		navigator:   navigator,
		validator:   validator,
		hook:        hook,
		concurrency: concurrency,
	}
}

// Run executes one discovery run over every enabled site, in id order.
func (p *Pipeline) Run(ctx context.Context) (*RunStats, error) {
	sites, err := p.websites.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("Pipeline.Run: %w", err)
	}
	return p.run(ctx, sites), nil
}

// RunOne executes a discovery run for a single site, looked up by id. The
// site runs even when disabled: a targeted run is an explicit operator
// request.
func (p *Pipeline) RunOne(ctx context.Context, siteID int64) (*RunStats, error) {
	site, err := p.websites.Get(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("Pipeline.RunOne: %w", err)
	}
	if site == nil {
		return nil, fmt.Errorf("Pipeline.RunOne: website %d not found", siteID)
	}
	if !site.Enabled {
		slog.Warn("running disabled site on request",
			slog.Int64("id", site.ID),
			slog.String("site", site.Name))
	}
	return p.run(ctx, []*entity.WebsiteSettings{site}), nil
}

func (p *Pipeline) run(ctx context.Context, sites []*entity.WebsiteSettings) *RunStats {
	stats := &RunStats{StartedAt: time.Now().UTC(), Sites: len(sites)}
	cache := NewSummaryCache()
	var mu sync.Mutex

	// サイト間の独立性を保つため WithContext は使わない。
	// 1 サイトの失敗で他サイトを巻き添えにしない
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for _, site := range sites {
		g.Go(func() error {
			p.runSite(ctx, site, cache, stats, &mu)
			return nil
		})
	}
	_ = g.Wait()

	stats.Duration = time.Since(stats.StartedAt)
	slog.Info("discovery run finished",
		slog.Int("sites", stats.Sites),
		slog.Int("sites_failed", stats.SitesFailed),
		slog.Int("items_proposed", stats.ItemsProposed),
		slog.Int("new", stats.NewCount),
		slog.Int("excluded", stats.Excluded),
		slog.Int("failed", stats.Failed),
		slog.Duration("duration", stats.Duration))
	return stats
}

func (p *Pipeline) runSite(ctx context.Context, site *entity.WebsiteSettings, cache *SummaryCache, stats *RunStats, mu *sync.Mutex) {
	started := time.Now()
	slog.Info("crawling site",
		slog.Int64("id", site.ID),
		slog.String("site", site.Name),
		slog.String("url", site.URL))

	analysis, err := p.analyzer.Candidates(ctx, site)
	if err != nil {
		slog.Error("site analysis failed",
			slog.String("site", site.Name),
			slog.Any("error", err))
		metrics.RecordSiteCrawlError(site.ID, "analysis")
		mu.Lock()
		stats.SitesFailed++
		mu.Unlock()
		return
	}
	mu.Lock()
	stats.ItemsProposed += analysis.Proposed
	mu.Unlock()

	for _, cand := range analysis.Candidates {
		if ctx.Err() != nil {
			slog.Warn("site crawl cancelled",
				slog.String("site", site.Name),
				slog.Any("error", ctx.Err()))
			return
		}
		outcome := p.processItem(ctx, site, cand, analysis.KnownTitles, cache, stats, mu)
		metrics.RecordItemOutcome(outcome)
	}

	metrics.RecordSiteCrawl(site.ID, time.Since(started), analysis.Proposed, site.Name)
}

// processItem takes one candidate through navigation and validation and
// returns the outcome label for metrics. Items are independent: any failure
// is logged, counted, and skipped.
func (p *Pipeline) processItem(ctx context.Context, site *entity.WebsiteSettings, cand Candidate, knownTitles []string, cache *SummaryCache, stats *RunStats, mu *sync.Mutex) string {
	final, err := p.navigator.Resolve(ctx, cand.DetailURL, cand.AnchorText, knownTitles)
	if err != nil {
		if errors.Is(err, ErrNavExpired) {
			if _, exErr := p.validator.ExcludeAtListing(ctx, cand, site, entity.ExclusionExpired); exErr != nil {
				slog.Error("exclusion write failed",
					slog.String("site", site.Name),
					slog.String("title", cand.Title),
					slog.Any("error", exErr))
				mu.Lock()
				stats.Failed++
				mu.Unlock()
				return "failed"
			}
			mu.Lock()
			stats.Excluded++
			mu.Unlock()
			return entity.ExclusionExpired
		}
		slog.Warn("navigation failed",
			slog.String("site", site.Name),
			slog.String("title", cand.Title),
			slog.String("url", cand.DetailURL),
			slog.Any("error", err))
		mu.Lock()
		stats.Failed++
		mu.Unlock()
		return "failed"
	}

	verdict, err := p.validator.Validate(ctx, cand, final, site, cache)
	if err != nil {
		slog.Warn("validation failed",
			slog.String("site", site.Name),
			slog.String("title", cand.Title),
			slog.String("url", final.URL),
			slog.Any("error", err))
		mu.Lock()
		stats.Failed++
		mu.Unlock()
		return "failed"
	}

	switch {
	case verdict.Stored != nil:
		mu.Lock()
		stats.NewCount++
		stats.NewRfps = append(stats.NewRfps, NewRfp{
			Hash:    verdict.Stored.Hash,
			Title:   verdict.Stored.Title,
			URL:     verdict.Stored.URL,
			Site:    site.Name,
			Summary: verdict.Stored.AISummary,
		})
		mu.Unlock()
		if p.hook != nil {
			p.hook.RfpStored(ctx, verdict.Stored)
		}
		return "saved"
	case verdict.Excluded != nil:
		mu.Lock()
		stats.Excluded++
		mu.Unlock()
		return verdict.Excluded.Reason
	default:
		return "known"
	}
}
