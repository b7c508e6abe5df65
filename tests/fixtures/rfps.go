package fixtures

import (
	"time"

	"rfp-radar/internal/domain/entity"
)

// RfpOption is a functional option for customizing test opportunities.
type RfpOption func(*entity.ProcessedRfp)

// NewTestRfp creates a valid ProcessedRfp with sensible defaults. The hash is
// derived from the URL the same way the pipeline derives it, so fixtures stay
// consistent with rows written through the discovery path.
func NewTestRfp(opts ...RfpOption) *entity.ProcessedRfp {
	r := &entity.ProcessedRfp{
		Title:       "道路維持補修工事（市道1号線）一般競争入札",
		URL:         "https://example.city.jp/nyusatsu/2026/r8-doro-001.html",
		Site:        "example-city",
		ProcessedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		AISummary:   "市道1号線の舗装補修。参加申請締切は3月16日。",
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.Hash == "" {
		r.Hash = entity.RfpHash(r.URL)
	}

	return r
}

// WithTitle sets the opportunity title.
func WithTitle(title string) RfpOption {
	return func(r *entity.ProcessedRfp) {
		r.Title = title
	}
}

// WithURL sets the detail URL; the hash follows unless set explicitly.
func WithURL(url string) RfpOption {
	return func(r *entity.ProcessedRfp) {
		r.URL = url
	}
}

// WithHash pins the hash instead of deriving it from the URL.
func WithHash(hash string) RfpOption {
	return func(r *entity.ProcessedRfp) {
		r.Hash = hash
	}
}

// WithSite sets the site label.
func WithSite(site string) RfpOption {
	return func(r *entity.ProcessedRfp) {
		r.Site = site
	}
}

// WithPDF attaches a PDF artifact.
func WithPDF(content []byte) RfpOption {
	return func(r *entity.ProcessedRfp) {
		r.PDFContent = content
	}
}

// WithProcessedAt sets the processing timestamp.
func WithProcessedAt(t time.Time) RfpOption {
	return func(r *entity.ProcessedRfp) {
		r.ProcessedAt = t
	}
}
