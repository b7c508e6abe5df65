package discovery

import "context"

// PageLoader fetches a URL and reduces it to a PageView. Listing applies the
// listing-page budgets and augmentations (Kendo grid synthesis, iframe
// merging); Page applies the tighter navigation budgets and follows nothing.
type PageLoader interface {
	Listing(ctx context.Context, rawURL string) (*PageView, error)
	Page(ctx context.Context, rawURL string) (*PageView, error)
}

// ContentExtractor pulls final detail content from a URL, preferring PDF
// text (direct, linked, or embedded) and falling back to page text. The
// referer is the page the URL was discovered on.
type ContentExtractor interface {
	Extract(ctx context.Context, rawURL, referer string) (*Document, error)
}

// FeedSource reads an RSS or Atom feed and maps its entries to candidate
// items, bypassing the listing-analysis model entirely.
type FeedSource interface {
	Items(ctx context.Context, feedURL string) ([]ListingItem, error)
}

// Model is the language-model surface the pipeline consumes. Every method
// sends one prompt and parses one structured answer; transport, retries, and
// JSON repair live behind this interface.
type Model interface {
	// PickItems extracts candidate opportunities from a listing page.
	// known rows are shown to the model so it skips them.
	PickItems(ctx context.Context, page *PageView, known []KnownItem, listingURL string) ([]ListingItem, error)

	// Navigate decides whether the current page is the final detail page,
	// names the link to follow next, or gives up.
	Navigate(ctx context.Context, page *PageView, knownTitles []string, hop, maxHops int) (*NavDecision, error)

	// ClassifyFinal reads final page or PDF text and judges whether the
	// opportunity is still open.
	ClassifyFinal(ctx context.Context, text, pageURL string) (*FinalCheck, error)

	// ClassifyScope judges whether the opportunity belongs to the
	// configured domain at all.
	ClassifyScope(ctx context.Context, title, url, text string) (*ScopeCheck, error)

	// Summarize produces the structured six-section summary stored with
	// each opportunity.
	Summarize(ctx context.Context, text string) (string, error)
}
