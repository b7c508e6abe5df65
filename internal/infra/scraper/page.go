// Package scraper turns listing and navigation pages into model-ready page
// views: visible text plus an ordered link list, augmented with Kendo grid
// rows and iframe content. It also extracts detail content from final pages
// and PDFs, and maps RSS feeds into listing candidates.
package scraper

import (
	"bytes"
	"context"
	"fmt"

	"rfp-radar/internal/infra/fetcher"
	"rfp-radar/internal/usecase/discovery"

	"github.com/PuerkitoBio/goquery"
)

// PageLoader fetches pages and reduces them to PageViews. One loader shares
// the run's HTTP session, so cookies set by a listing page carry over to its
// grid endpoints and detail pages.
type PageLoader struct {
	client *fetcher.Client
	config Config
}

// NewPageLoader creates a PageLoader on the given client.
func NewPageLoader(client *fetcher.Client, cfg Config) *PageLoader {
	return &PageLoader{client: client, config: cfg}
}

// Listing fetches a listing page and builds the fully augmented view:
// visible text, anchors, synthesized grid rows, and iframe links, capped at
// the listing budgets.
func (l *PageLoader) Listing(ctx context.Context, rawURL string) (*discovery.PageView, error) {
	page, doc, err := l.fetchDocument(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("PageLoader.Listing: %w", err)
	}
	view := &discovery.PageView{
		FinalURL: page.FinalURL,
		Text:     VisibleText(doc, l.config.ListingMaxText),
		Links:    CollectLinks(doc, page.FinalURL, l.config.ListingMaxLinks),
	}
	l.augmentGrids(ctx, doc, view)
	l.augmentIframes(ctx, doc, view)
	// 追加分を含めて URL 去重し、予算内に収める
	view.Links = dedupeLinks(view.Links, l.config.ListingMaxLinks)
	return view, nil
}

// Page fetches one page during navigation, with the navigation budgets and
// no augmentation.
func (l *PageLoader) Page(ctx context.Context, rawURL string) (*discovery.PageView, error) {
	page, doc, err := l.fetchDocument(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("PageLoader.Page: %w", err)
	}
	return &discovery.PageView{
		FinalURL: page.FinalURL,
		Text:     VisibleText(doc, l.config.NavMaxText),
		Links:    CollectLinks(doc, page.FinalURL, l.config.NavMaxLinks),
	}, nil
}

func (l *PageLoader) fetchDocument(ctx context.Context, rawURL string) (*fetcher.Page, *goquery.Document, error) {
	page, err := l.client.Get(ctx, rawURL, "")
	if err != nil {
		return nil, nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, nil, fmt.Errorf("parse HTML: %w", err)
	}
	return page, doc, nil
}

// dedupeLinks keeps the first occurrence of each href and at most max
// entries. Grid rows prepended by augmentation win over page anchors.
func dedupeLinks(links []discovery.Link, max int) []discovery.Link {
	out := make([]discovery.Link, 0, len(links))
	seen := make(map[string]struct{}, len(links))
	for _, link := range links {
		if link.Href == "" {
			continue
		}
		if _, dup := seen[link.Href]; dup {
			continue
		}
		seen[link.Href] = struct{}{}
		out = append(out, link)
		if len(out) >= max {
			break
		}
	}
	return out
}
