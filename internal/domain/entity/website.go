package entity

import (
	"fmt"
	"time"
)

// Website source kinds. HTML listings go through the LLM listing analysis;
// RSS listings yield candidates directly from the feed entries.
const (
	WebsiteKindHTML = "html"
	WebsiteKindRSS  = "rss"
)

// WebsiteSettings is one configured listing source. Enabled rows define the
// crawl set; sites are processed in id order.
type WebsiteSettings struct {
	ID        int64
	Name      string
	URL       string
	Enabled   bool
	Kind      string
	CreatedAt time.Time
}

// Validate validates the website row fields, including the listing URL.
func (w *WebsiteSettings) Validate() error {
	if w.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	// Kindが空の場合はhtmlとみなす（後方互換性）
	if w.Kind == "" {
		w.Kind = WebsiteKindHTML
	}
	switch w.Kind {
	case WebsiteKindHTML, WebsiteKindRSS:
	default:
		return fmt.Errorf("invalid kind: %q (must be %s or %s)", w.Kind, WebsiteKindHTML, WebsiteKindRSS)
	}
	if err := ValidateURL(w.URL); err != nil {
		return err
	}
	return nil
}
