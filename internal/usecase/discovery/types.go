package discovery

// Link describes one anchor (or synthesized grid row) on a crawled page.
// The JSON tags are part of the model contract: links are serialized into
// prompts with these exact keys, and the model answers with indexes into
// the serialized list.
type Link struct {
	// Text is the visible anchor text, truncated to 200 characters.
	Text string `json:"text"`
	// Href is the absolute resolved URL.
	Href string `json:"href"`
	// Heading is the nearest preceding h1-h6 text, truncated to 300 characters.
	Heading string `json:"heading"`
	// Context is the text of the nearest enclosing list item, row, or
	// section, truncated to 500 characters. Grid rows carry their
	// expiration date here.
	Context string `json:"context"`

	IsLearnMore      bool `json:"is_learn_more"`
	IsApply          bool `json:"is_apply"`
	IsPDF            bool `json:"is_pdf"`
	IsGenericListing bool `json:"is_generic_listing"`
	// Depth counts path separators inside the trimmed URL path, so
	// /rfps/2026/item has depth 2 and /rfps has depth 0.
	Depth int `json:"depth"`
}

// PageView is a fetched page reduced to what the model needs: visible text
// and an ordered, indexable link list.
type PageView struct {
	// FinalURL is the URL after redirects.
	FinalURL string
	// Text is the visible page text, already truncated by the caller's limit.
	Text string
	// Links preserves discovery order. Prompt indexes refer to this slice.
	Links []Link
}

// Document is extracted detail content: plain text plus the raw PDF bytes
// when the content came from a PDF.
type Document struct {
	// FinalURL is the URL the content was actually read from. For linked or
	// embedded PDFs this differs from the requested URL.
	FinalURL string
	Text     string
	// PDF holds the original PDF bytes, nil for HTML content.
	PDF []byte
}

// ListingItem is one candidate opportunity the model picked off a listing
// page. Field names mirror the listing prompt's output schema.
type ListingItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	// DetailLinkIndex references the serialized link list. It is nil when
	// the model omitted the field. The analyzer rejects items whose index
	// is missing or out of range, or whose referenced link canonicalizes
	// to the listing URL itself.
	DetailLinkIndex *int   `json:"detail_link_index"`
	DetailSourceURL string `json:"detail_source_url,omitempty"`
	ContentSnippet  string `json:"content_snippet,omitempty"`
}

// KnownItem is a previously processed or excluded opportunity shown to the
// model so it skips items already in the database.
type KnownItem struct {
	Title string
	URL   string
}

// NavStatus is the navigation model's verdict for one hop.
type NavStatus string

const (
	// NavFinal means the current or declared URL is the opportunity's detail page.
	NavFinal NavStatus = "final"
	// NavContinue means one more hop through next_link_index is needed.
	NavContinue NavStatus = "continue"
	// NavGiveUp means the trail is a dead end.
	NavGiveUp NavStatus = "give_up"
	// NavExpired means the page itself shows the opportunity is closed.
	NavExpired NavStatus = "expired"
)

// NavTarget is the final page the navigation model declared.
type NavTarget struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// NavDecision is the navigation prompt's parsed output.
type NavDecision struct {
	Status NavStatus `json:"status"`
	Reason string    `json:"reason,omitempty"`
	// Final is set when Status is NavFinal.
	Final *NavTarget `json:"final,omitempty"`
	// NextLinkIndex is set when Status is NavContinue and must reference
	// the current page's link list.
	NextLinkIndex *int `json:"next_link_index,omitempty"`
}

// FinalStatus is the deadline classifier's verdict on a final page.
type FinalStatus string

const (
	FinalActive  FinalStatus = "active"
	FinalExpired FinalStatus = "expired"
	FinalUnknown FinalStatus = "unknown"
)

// FinalCheck is the final-page prompt's parsed output. DeadlineISO is empty
// when the model answered null.
type FinalCheck struct {
	Status      FinalStatus `json:"status"`
	Reason      string      `json:"reason,omitempty"`
	MatchedText string      `json:"matched_text,omitempty"`
	DeadlineISO string      `json:"deadline_iso,omitempty"`
}

// ScopeCheck is the scope classifier's parsed output.
type ScopeCheck struct {
	InScope bool   `json:"in_scope"`
	Reason  string `json:"reason,omitempty"`
}
