package scraper_test

import (
	"strings"
	"testing"

	"rfp-radar/internal/infra/scraper"
)

func TestDefaultConfig(t *testing.T) {
	cfg := scraper.DefaultConfig()

	if cfg.ListingMaxText != 16000 {
		t.Errorf("ListingMaxText = %d, want 16000", cfg.ListingMaxText)
	}
	if cfg.ListingMaxLinks != 400 {
		t.Errorf("ListingMaxLinks = %d, want 400", cfg.ListingMaxLinks)
	}
	if cfg.NavMaxText != 16000 {
		t.Errorf("NavMaxText = %d, want 16000", cfg.NavMaxText)
	}
	if cfg.NavMaxLinks != 120 {
		t.Errorf("NavMaxLinks = %d, want 120", cfg.NavMaxLinks)
	}
	if cfg.MaxGridEndpoints != 3 {
		t.Errorf("MaxGridEndpoints = %d, want 3", cfg.MaxGridEndpoints)
	}
	if cfg.MaxIframes != 2 {
		t.Errorf("MaxIframes = %d, want 2", cfg.MaxIframes)
	}
	if cfg.IframeMaxLinks != 80 {
		t.Errorf("IframeMaxLinks = %d, want 80", cfg.IframeMaxLinks)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		cfg, err := scraper.LoadConfigFromEnv()
		if err != nil {
			t.Fatalf("LoadConfigFromEnv() error = %v", err)
		}
		if cfg != scraper.DefaultConfig() {
			t.Errorf("config = %+v, want defaults", cfg)
		}
	})

	t.Run("nav text override", func(t *testing.T) {
		t.Setenv("NAV_PAGE_MAX_TEXT", "9000")
		cfg, err := scraper.LoadConfigFromEnv()
		if err != nil {
			t.Fatalf("LoadConfigFromEnv() error = %v", err)
		}
		if cfg.NavMaxText != 9000 {
			t.Errorf("NavMaxText = %d, want 9000", cfg.NavMaxText)
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("NAV_PAGE_MAX_TEXT", "lots")
		if _, err := scraper.LoadConfigFromEnv(); err == nil {
			t.Error("expected error for non-numeric NAV_PAGE_MAX_TEXT")
		}
	})

	t.Run("rejected by validation", func(t *testing.T) {
		t.Setenv("NAV_PAGE_MAX_TEXT", "-1")
		if _, err := scraper.LoadConfigFromEnv(); err == nil {
			t.Error("expected error for negative NAV_PAGE_MAX_TEXT")
		}
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*scraper.Config)
		wantErr string
	}{
		{
			name:    "zero listing text",
			mutate:  func(c *scraper.Config) { c.ListingMaxText = 0 },
			wantErr: "ListingMaxText",
		},
		{
			name:    "zero listing links",
			mutate:  func(c *scraper.Config) { c.ListingMaxLinks = 0 },
			wantErr: "ListingMaxLinks",
		},
		{
			name:    "zero nav text",
			mutate:  func(c *scraper.Config) { c.NavMaxText = 0 },
			wantErr: "NavMaxText",
		},
		{
			name:    "zero nav links",
			mutate:  func(c *scraper.Config) { c.NavMaxLinks = 0 },
			wantErr: "NavMaxLinks",
		},
		{
			name:    "negative grid endpoints",
			mutate:  func(c *scraper.Config) { c.MaxGridEndpoints = -1 },
			wantErr: "MaxGridEndpoints",
		},
		{
			name:    "negative iframes",
			mutate:  func(c *scraper.Config) { c.MaxIframes = -1 },
			wantErr: "MaxIframes",
		},
		{
			name:    "zero iframe links",
			mutate:  func(c *scraper.Config) { c.IframeMaxLinks = 0 },
			wantErr: "IframeMaxLinks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := scraper.DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}

	// グリッドとフレームの追跡はゼロで無効化できる
	cfg := scraper.DefaultConfig()
	cfg.MaxGridEndpoints = 0
	cfg.MaxIframes = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("zero augmentation budgets should validate: %v", err)
	}
}

func TestLoadExtractorConfigFromEnv(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		cfg, err := scraper.LoadExtractorConfigFromEnv()
		if err != nil {
			t.Fatalf("LoadExtractorConfigFromEnv() error = %v", err)
		}
		if cfg.MaxTextChars != 400000 {
			t.Errorf("MaxTextChars = %d, want 400000", cfg.MaxTextChars)
		}
		if cfg.MaxPDFTextChars != 0 {
			t.Errorf("MaxPDFTextChars = %d, want 0 (follow MaxTextChars)", cfg.MaxPDFTextChars)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("MAX_DETAIL_TEXT_CHARS", "200000")
		t.Setenv("MAX_PDF_TEXT_CHARS", "50000")
		cfg, err := scraper.LoadExtractorConfigFromEnv()
		if err != nil {
			t.Fatalf("LoadExtractorConfigFromEnv() error = %v", err)
		}
		if cfg.MaxTextChars != 200000 {
			t.Errorf("MaxTextChars = %d, want 200000", cfg.MaxTextChars)
		}
		if cfg.MaxPDFTextChars != 50000 {
			t.Errorf("MaxPDFTextChars = %d, want 50000", cfg.MaxPDFTextChars)
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("MAX_DETAIL_TEXT_CHARS", "huge")
		if _, err := scraper.LoadExtractorConfigFromEnv(); err == nil {
			t.Error("expected error for non-numeric MAX_DETAIL_TEXT_CHARS")
		}
	})
}
