package scraper

import (
	"fmt"
	"os"
	"strconv"
)

// Config controls how much of a page is handed to the model. Listing pages
// carry the full augmentation budget; navigation pages get a smaller link
// list because the model only has to pick the next hop.
type Config struct {
	// ListingMaxText is the visible-text budget for a listing page in runes.
	ListingMaxText int

	// ListingMaxLinks is the maximum number of links collected from a
	// listing page, including synthesized grid rows and iframe links.
	ListingMaxLinks int

	// NavMaxText is the visible-text budget for a page fetched during
	// navigation.
	NavMaxText int

	// NavMaxLinks is the link budget for a navigation page.
	NavMaxLinks int

	// MaxGridEndpoints caps how many Kendo grid read endpoints are called
	// per listing page.
	MaxGridEndpoints int

	// MaxIframes caps how many iframes are followed per listing page.
	MaxIframes int

	// IframeMaxLinks is the link budget per followed iframe.
	IframeMaxLinks int
}

// DefaultConfig returns the page budgets used in production.
func DefaultConfig() Config {
	return Config{
		ListingMaxText:   16000,
		ListingMaxLinks:  400,
		NavMaxText:       16000,
		NavMaxLinks:      120,
		MaxGridEndpoints: 3,
		MaxIframes:       2,
		IframeMaxLinks:   80,
	}
}

// Validate checks that all budgets are positive.
func (c *Config) Validate() error {
	if c.ListingMaxText <= 0 {
		return fmt.Errorf("ListingMaxText must be positive, got %d", c.ListingMaxText)
	}
	if c.ListingMaxLinks <= 0 {
		return fmt.Errorf("ListingMaxLinks must be positive, got %d", c.ListingMaxLinks)
	}
	if c.NavMaxText <= 0 {
		return fmt.Errorf("NavMaxText must be positive, got %d", c.NavMaxText)
	}
	if c.NavMaxLinks <= 0 {
		return fmt.Errorf("NavMaxLinks must be positive, got %d", c.NavMaxLinks)
	}
	if c.MaxGridEndpoints < 0 {
		return fmt.Errorf("MaxGridEndpoints must not be negative, got %d", c.MaxGridEndpoints)
	}
	if c.MaxIframes < 0 {
		return fmt.Errorf("MaxIframes must not be negative, got %d", c.MaxIframes)
	}
	if c.IframeMaxLinks <= 0 {
		return fmt.Errorf("IframeMaxLinks must be positive, got %d", c.IframeMaxLinks)
	}
	return nil
}

// LoadConfigFromEnv builds a Config from environment variables, falling back
// to defaults. Only the navigation text budget is tunable in production:
//
//	NAV_PAGE_MAX_TEXT - visible-text budget for navigation pages (default 16000)
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("NAV_PAGE_MAX_TEXT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid NAV_PAGE_MAX_TEXT: %w", err)
		}
		cfg.NavMaxText = n
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid scraper config: %w", err)
	}
	return cfg, nil
}

// ExtractorConfig controls detail-content extraction limits.
type ExtractorConfig struct {
	// MaxTextChars caps extracted HTML text in runes.
	MaxTextChars int

	// MaxPDFTextChars caps extracted PDF text in runes. Zero means
	// "same as MaxTextChars".
	MaxPDFTextChars int

	// UseReadability extracts the main article region of HTML detail pages
	// with the Mozilla readability algorithm before falling back to full
	// visible text. Procurement pages that keep the key dates in sidebar
	// tables can lose them under readability, so this is off by default.
	UseReadability bool
}

// DefaultExtractorConfig returns the production extraction limits.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		MaxTextChars:    400000,
		MaxPDFTextChars: 0,
	}
}

// Validate checks the extraction limits.
func (c *ExtractorConfig) Validate() error {
	if c.MaxTextChars <= 0 {
		return fmt.Errorf("MaxTextChars must be positive, got %d", c.MaxTextChars)
	}
	if c.MaxPDFTextChars < 0 {
		return fmt.Errorf("MaxPDFTextChars must not be negative, got %d", c.MaxPDFTextChars)
	}
	return nil
}

// pdfLimit resolves the effective PDF text cap.
func (c *ExtractorConfig) pdfLimit() int {
	if c.MaxPDFTextChars > 0 {
		return c.MaxPDFTextChars
	}
	return c.MaxTextChars
}

// LoadExtractorConfigFromEnv builds an ExtractorConfig from environment
// variables, falling back to defaults:
//
//	MAX_DETAIL_TEXT_CHARS - HTML text cap in runes (default 400000)
//	MAX_PDF_TEXT_CHARS    - PDF text cap in runes (default = MAX_DETAIL_TEXT_CHARS)
//	DETAIL_READABILITY    - run readability over HTML detail pages (default false)
func LoadExtractorConfigFromEnv() (ExtractorConfig, error) {
	cfg := DefaultExtractorConfig()

	if v := os.Getenv("DETAIL_READABILITY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return ExtractorConfig{}, fmt.Errorf("invalid DETAIL_READABILITY: %w", err)
		}
		cfg.UseReadability = b
	}

	if v := os.Getenv("MAX_DETAIL_TEXT_CHARS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return ExtractorConfig{}, fmt.Errorf("invalid MAX_DETAIL_TEXT_CHARS: %w", err)
		}
		cfg.MaxTextChars = n
	}
	if v := os.Getenv("MAX_PDF_TEXT_CHARS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return ExtractorConfig{}, fmt.Errorf("invalid MAX_PDF_TEXT_CHARS: %w", err)
		}
		cfg.MaxPDFTextChars = n
	}

	if err := cfg.Validate(); err != nil {
		return ExtractorConfig{}, fmt.Errorf("invalid extractor config: %w", err)
	}
	return cfg, nil
}
