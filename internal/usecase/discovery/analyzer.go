package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"rfp-radar/internal/domain/entity"
	"rfp-radar/internal/repository"
)

// knownRowsLimit bounds how many processed and how many excluded rows are
// loaded per site for prompt context. The prompt builders cap the rendered
// lists again, so this only controls the database reads.
const knownRowsLimit = 100

// Candidate is a listing item that survived analysis: the model proposed it
// and every structural check passed. DetailURL is where navigation starts.
type Candidate struct {
	// Title is the model's title for the item, trimmed. The exclusion
	// pre-check and any listing-stage exclusion key on this exact string.
	Title string
	// URL is the URL the model claims for the item. It is advisory and only
	// used for the cheap already-processed check; DetailURL is what gets
	// fetched.
	URL string
	// DetailURL is the href of the chosen listing link for HTML sites, or
	// the feed entry link for RSS sites.
	DetailURL string
	// AnchorText seeds the final title when navigation ends on a PDF or the
	// navigation model returns no title of its own.
	AnchorText string
	// ContentSnippet is nearby listing-page text the model captured.
	ContentSnippet string
}

// ListingAnalysis is the outcome of analyzing one site.
type ListingAnalysis struct {
	// Proposed counts items the model (or feed) proposed before validation.
	Proposed int
	// Candidates are the items worth navigating, in proposal order.
	Candidates []Candidate
	// KnownTitles are recent processed titles for this site, handed to the
	// navigation prompt as context.
	KnownTitles []string
}

// Analyzer turns one site's listing page or feed into validated candidates.
// It owns every pre-navigation decision: structural validation of the model
// output, the self-link guard, and the duplicate and exclusion pre-checks
// that keep already-decided items from being fetched again.
type Analyzer struct {
	loader     PageLoader
	feed       FeedSource
	model      Model
	rfps       repository.RfpRepository
	exclusions repository.ExclusionRepository
}

func NewAnalyzer(
	loader PageLoader,
	feed FeedSource,
	model Model,
	rfps repository.RfpRepository,
	exclusions repository.ExclusionRepository,
) *Analyzer {
	return &Analyzer{
		loader:     loader,
		feed:       feed,
		model:      model,
		rfps:       rfps,
		exclusions: exclusions,
	}
}

// Candidates analyzes one enabled site and returns its validated candidates.
// HTML sites go through the listing model; RSS sites map feed entries
// directly. Database errors abort the site because without the known rows
// the run would re-propose and re-navigate everything.
func (a *Analyzer) Candidates(ctx context.Context, site *entity.WebsiteSettings) (*ListingAnalysis, error) {
	switch site.Kind {
	case entity.WebsiteKindRSS:
		return a.fromFeed(ctx, site)
	default:
		return a.fromListing(ctx, site)
	}
}

func (a *Analyzer) fromListing(ctx context.Context, site *entity.WebsiteSettings) (*ListingAnalysis, error) {
	page, err := a.loader.Listing(ctx, site.URL)
	if err != nil {
		return nil, fmt.Errorf("Analyzer.Candidates: fetch listing %s: %w", site.URL, err)
	}

	known, titles, err := a.knownRows(ctx, site)
	if err != nil {
		return nil, fmt.Errorf("Analyzer.Candidates: %w", err)
	}

	items, err := a.model.PickItems(ctx, page, known, site.URL)
	if err != nil {
		return nil, fmt.Errorf("Analyzer.Candidates: %w", err)
	}

	analysis := &ListingAnalysis{Proposed: len(items), KnownTitles: titles}
	for i, item := range items {
		cand, ok, err := a.vetItem(ctx, site, page, i, item)
		if err != nil {
			return nil, fmt.Errorf("Analyzer.Candidates: %w", err)
		}
		if ok {
			analysis.Candidates = append(analysis.Candidates, cand)
		}
	}

	slog.Info("listing analyzed",
		slog.String("site", site.Name),
		slog.Int("links", len(page.Links)),
		slog.Int("proposed", analysis.Proposed),
		slog.Int("candidates", len(analysis.Candidates)))
	return analysis, nil
}

// vetItem applies the structural checks to one proposed item. A false result
// means the item is skipped for this run; an error means the database is
// unreachable and the whole site should fail.
func (a *Analyzer) vetItem(ctx context.Context, site *entity.WebsiteSettings, page *PageView, i int, item ListingItem) (Candidate, bool, error) {
	title := strings.TrimSpace(item.Title)
	claimed := strings.TrimSpace(item.URL)
	if title == "" || claimed == "" {
		slog.Warn("listing item missing title or url",
			slog.String("site", site.Name),
			slog.Int("item", i))
		return Candidate{}, false, nil
	}

	if item.DetailLinkIndex == nil || *item.DetailLinkIndex < 0 || *item.DetailLinkIndex >= len(page.Links) {
		slog.Warn("listing item has no usable link index",
			slog.String("site", site.Name),
			slog.String("title", title))
		return Candidate{}, false, nil
	}
	link := page.Links[*item.DetailLinkIndex]
	href := strings.TrimSpace(link.Href)
	if href == "" {
		slog.Warn("listing item points at an empty href",
			slog.String("site", site.Name),
			slog.String("title", title))
		return Candidate{}, false, nil
	}

	// 一覧ページ自身を詳細リンクとして選んだ回答は弾く
	if canonicalURL(href) == canonicalURL(site.URL) {
		slog.Warn("listing item links back to the listing itself",
			slog.String("site", site.Name),
			slog.String("title", title),
			slog.String("href", href))
		return Candidate{}, false, nil
	}

	skip, err := a.alreadyDecided(ctx, site, title, claimed)
	if err != nil {
		return Candidate{}, false, err
	}
	if skip {
		return Candidate{}, false, nil
	}

	return Candidate{
		Title:          title,
		URL:            claimed,
		DetailURL:      href,
		AnchorText:     strings.TrimSpace(link.Text),
		ContentSnippet: strings.TrimSpace(item.ContentSnippet),
	}, true, nil
}

func (a *Analyzer) fromFeed(ctx context.Context, site *entity.WebsiteSettings) (*ListingAnalysis, error) {
	items, err := a.feed.Items(ctx, site.URL)
	if err != nil {
		return nil, fmt.Errorf("Analyzer.Candidates: fetch feed %s: %w", site.URL, err)
	}

	_, titles, err := a.knownRows(ctx, site)
	if err != nil {
		return nil, fmt.Errorf("Analyzer.Candidates: %w", err)
	}

	analysis := &ListingAnalysis{Proposed: len(items), KnownTitles: titles}
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.URL)
		if title == "" || link == "" {
			continue
		}
		if canonicalURL(link) == canonicalURL(site.URL) {
			continue
		}
		skip, err := a.alreadyDecided(ctx, site, title, link)
		if err != nil {
			return nil, fmt.Errorf("Analyzer.Candidates: %w", err)
		}
		if skip {
			continue
		}
		analysis.Candidates = append(analysis.Candidates, Candidate{
			Title:          title,
			URL:            link,
			DetailURL:      link,
			AnchorText:     title,
			ContentSnippet: strings.TrimSpace(item.ContentSnippet),
		})
	}

	slog.Info("feed analyzed",
		slog.String("site", site.Name),
		slog.Int("entries", analysis.Proposed),
		slog.Int("candidates", len(analysis.Candidates)))
	return analysis, nil
}

// alreadyDecided reports whether a proposed (title, url) pair was already
// stored or definitively excluded on an earlier run.
func (a *Analyzer) alreadyDecided(ctx context.Context, site *entity.WebsiteSettings, title, claimed string) (bool, error) {
	// 除外判定は一覧段階の鍵 (title + listing URL) で照合する
	excluded, err := a.exclusions.ExistsByHash(ctx, entity.ExclusionKey(title, site.URL))
	if err != nil {
		return false, fmt.Errorf("exclusion pre-check: %w", err)
	}
	if excluded {
		slog.Info("skipping excluded item",
			slog.String("site", site.Name),
			slog.String("title", title))
		return true, nil
	}

	seen, err := a.rfps.ExistsByURL(ctx, claimed)
	if err != nil {
		return false, fmt.Errorf("processed pre-check: %w", err)
	}
	if seen {
		slog.Info("skipping already-processed item",
			slog.String("site", site.Name),
			slog.String("title", title),
			slog.String("url", claimed))
		return true, nil
	}
	return false, nil
}

// knownRows loads the recent processed and excluded (title, url) pairs for
// one site and maps them into the prompt's shape. Exclusions only contribute
// definitive rejections; unknown-status rows are retried on later runs via
// the normal flow and must not teach the model to skip them.
func (a *Analyzer) knownRows(ctx context.Context, site *entity.WebsiteSettings) ([]KnownItem, []string, error) {
	processed, err := a.rfps.RecentForSite(ctx, site.Name, knownRowsLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("load processed rows: %w", err)
	}
	rejected, err := a.exclusions.RecentForSite(ctx, site.Name,
		[]string{entity.ExclusionOutOfScope, entity.ExclusionExpired}, knownRowsLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("load exclusions: %w", err)
	}

	known := make([]KnownItem, 0, len(processed)+len(rejected))
	titles := make([]string, 0, len(processed))
	for _, row := range processed {
		known = append(known, KnownItem{Title: row.Title, URL: row.URL})
		titles = append(titles, row.Title)
	}
	for _, row := range rejected {
		known = append(known, KnownItem{Title: row.Title, URL: row.URL})
	}
	return known, titles, nil
}

// canonicalURL reduces a URL to scheme://host plus the lowercased path with
// any trailing slash removed. Query and fragment are dropped, so
// "https://x/rfps?page=2" and "https://x/rfps/#list" compare equal. Used
// only for the self-link guard, never for hashing.
func canonicalURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return u.Scheme + "://" + u.Host + strings.ToLower(strings.TrimRight(u.Path, "/"))
}
