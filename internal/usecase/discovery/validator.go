package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"rfp-radar/internal/domain/entity"
	"rfp-radar/internal/repository"
	"rfp-radar/internal/utils/text"
)

// DefaultMaxDetailChars is the stored detail-text cap when
// MAX_DETAIL_TEXT_CHARS is unset.
const DefaultMaxDetailChars = 400000

// SummaryCache deduplicates summarization calls within one run. Keys are
// entity.ContentKey hashes of the exact text sent to the model, so two
// listing anchors resolving to the same document cost one call. The cache
// is safe for concurrent sites and must not outlive the run.
type SummaryCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func NewSummaryCache() *SummaryCache {
	return &SummaryCache{entries: make(map[string]string)}
}

func (c *SummaryCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *SummaryCache) put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// Verdict is the validator's decision for one navigated candidate. Exactly
// one of the fields is set.
type Verdict struct {
	// Stored is the newly persisted row.
	Stored *entity.ProcessedRfp
	// Excluded is the persisted rejection.
	Excluded *entity.RfpExclusion
	// Duplicate means another listing anchor already stored this final URL.
	Duplicate bool
}

// Validator judges a navigated candidate and persists the outcome: a
// processed row for active in-scope opportunities, an exclusion row for
// definitive rejections. Transient failures surface as errors and persist
// nothing, so the item is retried on the next run.
type Validator struct {
	model          Model
	rfps           repository.RfpRepository
	exclusions     repository.ExclusionRepository
	enforceDates   bool
	maxDetailChars int
}

// NewValidator builds a Validator. enforceDates turns on the local deadline
// override: a well-formed deadline_iso on or before today's date forces an
// expired verdict regardless of the model's status.
func NewValidator(
	model Model,
	rfps repository.RfpRepository,
	exclusions repository.ExclusionRepository,
	enforceDates bool,
	maxDetailChars int,
) *Validator {
	if maxDetailChars <= 0 {
		maxDetailChars = DefaultMaxDetailChars
	}
	return &Validator{
		model:          model,
		rfps:           rfps,
		exclusions:     exclusions,
		enforceDates:   enforceDates,
		maxDetailChars: maxDetailChars,
	}
}

// Validate runs the final-page checks in order: deadline, scope, duplicate,
// then summary and insert. The deadline and scope rejections write exclusion
// rows keyed on the final URL; a duplicate writes nothing.
func (v *Validator) Validate(ctx context.Context, cand Candidate, final *FinalPage, site *entity.WebsiteSettings, cache *SummaryCache) (*Verdict, error) {
	if cache == nil {
		cache = NewSummaryCache()
	}

	check, err := v.model.ClassifyFinal(ctx, final.Text, final.URL)
	if err != nil {
		return nil, fmt.Errorf("Validator.Validate: %w", err)
	}
	status := check.Status
	enforced := false
	// LLM の active 判定より機械的な日付比較を優先する
	if v.enforceDates && isISODate(check.DeadlineISO) && check.DeadlineISO <= Today() {
		if status != FinalExpired {
			enforced = true
		}
		status = FinalExpired
	}

	switch status {
	case FinalExpired, FinalUnknown:
		excl, err := v.exclude(ctx, &entity.RfpExclusion{
			Hash:       entity.ExclusionKey(cand.Title, final.URL),
			Reason:     string(status),
			Title:      cand.Title,
			Site:       site.Name,
			ListingURL: site.URL,
			DetailURL:  &final.URL,
		})
		if err != nil {
			return nil, fmt.Errorf("Validator.Validate: %w", err)
		}
		slog.Info("opportunity rejected at final page",
			slog.String("site", site.Name),
			slog.String("title", cand.Title),
			slog.String("url", final.URL),
			slog.String("status", string(status)),
			slog.String("deadline", check.DeadlineISO),
			slog.Bool("deadline_enforced", enforced))
		return &Verdict{Excluded: excl}, nil
	}

	scope, err := v.model.ClassifyScope(ctx, cand.Title, final.URL, final.Text)
	if err != nil {
		return nil, fmt.Errorf("Validator.Validate: %w", err)
	}
	if !scope.InScope {
		excl, err := v.exclude(ctx, &entity.RfpExclusion{
			Hash:       entity.ExclusionKey(cand.Title, final.URL),
			Reason:     entity.ExclusionOutOfScope,
			Title:      cand.Title,
			Site:       site.Name,
			ListingURL: site.URL,
			DetailURL:  &final.URL,
		})
		if err != nil {
			return nil, fmt.Errorf("Validator.Validate: %w", err)
		}
		slog.Info("opportunity out of scope",
			slog.String("site", site.Name),
			slog.String("title", cand.Title),
			slog.String("url", final.URL),
			slog.String("reason", scope.Reason))
		return &Verdict{Excluded: excl}, nil
	}

	hash := entity.RfpHash(final.URL)
	exists, err := v.rfps.ExistsByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("Validator.Validate: %w", err)
	}
	if exists {
		slog.Info("final url already processed",
			slog.String("site", site.Name),
			slog.String("title", cand.Title),
			slog.String("url", final.URL))
		return &Verdict{Duplicate: true}, nil
	}

	detail := text.TruncateRunes(text.StripControl(final.Text), v.maxDetailChars)
	summary := v.summarize(ctx, detail, cache)

	row := &entity.ProcessedRfp{
		Hash:          hash,
		Title:         chooseTitle(cand.Title, final.Title, summary),
		URL:           final.URL,
		Site:          site.Name,
		ProcessedAt:   time.Now().UTC(),
		DetailContent: detail,
		AISummary:     summary,
		PDFContent:    final.PDF,
	}
	if err := row.Validate(); err != nil {
		return nil, fmt.Errorf("Validator.Validate: %w", err)
	}
	if err := v.rfps.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("Validator.Validate: create: %w", err)
	}
	slog.Info("stored new opportunity",
		slog.String("site", site.Name),
		slog.String("title", row.Title),
		slog.String("url", row.URL),
		slog.Bool("pdf", row.HasPDF()))
	return &Verdict{Stored: row}, nil
}

// ExcludeAtListing persists a definitive rejection decided before a final
// page was reached, keyed on the listing URL so the analyzer's pre-check
// suppresses the item on later runs.
func (v *Validator) ExcludeAtListing(ctx context.Context, cand Candidate, site *entity.WebsiteSettings, reason string) (*entity.RfpExclusion, error) {
	detailURL := cand.DetailURL
	excl, err := v.exclude(ctx, &entity.RfpExclusion{
		Hash:       entity.ExclusionKey(cand.Title, site.URL),
		Reason:     reason,
		Title:      cand.Title,
		Site:       site.Name,
		ListingURL: site.URL,
		DetailURL:  &detailURL,
	})
	if err != nil {
		return nil, fmt.Errorf("Validator.ExcludeAtListing: %w", err)
	}
	slog.Info("opportunity rejected during navigation",
		slog.String("site", site.Name),
		slog.String("title", cand.Title),
		slog.String("reason", reason))
	return excl, nil
}

func (v *Validator) exclude(ctx context.Context, excl *entity.RfpExclusion) (*entity.RfpExclusion, error) {
	excl.DecidedAt = time.Now().UTC()
	if err := excl.Validate(); err != nil {
		return nil, err
	}
	if err := v.exclusions.Create(ctx, excl); err != nil {
		return nil, fmt.Errorf("create exclusion: %w", err)
	}
	return excl, nil
}

// summarize returns the cached or freshly generated summary for the detail
// text. Summarization failures degrade to an empty summary rather than
// failing the item: the row is still worth storing and the digest renders
// without it.
func (v *Validator) summarize(ctx context.Context, detail string, cache *SummaryCache) string {
	if strings.TrimSpace(detail) == "" {
		return ""
	}
	key := entity.ContentKey(detail)
	if cached, ok := cache.get(key); ok {
		return cached
	}
	summary, err := v.model.Summarize(ctx, detail)
	if err != nil {
		slog.Warn("summarization failed, storing without summary",
			slog.Any("error", err))
		return ""
	}
	summary = text.StripControl(summary)
	cache.put(key, summary)
	return summary
}

// isISODate reports whether s is a well-formed YYYY-MM-DD date. Deadline
// strings compare lexicographically once both sides have this shape.
func isISODate(s string) bool {
	if len(s) != 10 {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
