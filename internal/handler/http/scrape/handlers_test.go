package scrape_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rfp-radar/internal/handler/http/scrape"
	"rfp-radar/internal/usecase/discovery"
	scrapeUC "rfp-radar/internal/usecase/scrape"
)

/* ───────── モック実装 ───────── */

type stubPipeline struct {
	stats      *discovery.RunStats
	err        error
	ranSiteID  int64
	ranFullRun bool
}

func (s *stubPipeline) Run(_ context.Context) (*discovery.RunStats, error) {
	s.ranFullRun = true
	return s.stats, s.err
}

func (s *stubPipeline) RunOne(_ context.Context, siteID int64) (*discovery.RunStats, error) {
	s.ranSiteID = siteID
	return s.stats, s.err
}

func sampleStats() *discovery.RunStats {
	return &discovery.RunStats{
		StartedAt:     time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
		Duration:      3 * time.Second,
		Sites:         2,
		ItemsProposed: 5,
		NewCount:      1,
		Excluded:      2,
		NewRfps: []discovery.NewRfp{
			{
				Hash:    strings.Repeat("ab12cd34", 8),
				Title:   "次期基幹システム更改に係る情報提供依頼",
				URL:     "https://example.go.jp/procurement/rfp/123",
				Site:    "調達ポータル",
				Summary: "基幹システム更改のRFI。",
			},
		},
	}
}

/* ───────── テストケース ───────── */

func TestRunHandler_Success(t *testing.T) {
	stub := &stubPipeline{stats: sampleStats()}
	h := scrape.RunHandler{Svc: scrapeUC.NewService(stub, nil)}

	req := httptest.NewRequest(http.MethodPost, "/scrape", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !stub.ranFullRun {
		t.Error("expected a full run without site_id")
	}

	var out scrape.RunResponseDTO
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out.NewCount != 1 {
		t.Errorf("new_count = %d, want 1", out.NewCount)
	}
	if len(out.NewRfps) != 1 {
		t.Fatalf("new_rfps length = %d, want 1", len(out.NewRfps))
	}
	if out.NewRfps[0].Site != "調達ポータル" {
		t.Errorf("site = %q", out.NewRfps[0].Site)
	}
	if out.DurationMS != 3000 {
		t.Errorf("duration_ms = %d, want 3000", out.DurationMS)
	}
}

func TestRunHandler_SingleSite(t *testing.T) {
	stub := &stubPipeline{stats: sampleStats()}
	h := scrape.RunHandler{Svc: scrapeUC.NewService(stub, nil)}

	req := httptest.NewRequest(http.MethodPost, "/scrape?site_id=7", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.ranSiteID != 7 {
		t.Errorf("ran site_id = %d, want 7", stub.ranSiteID)
	}
}

func TestRunHandler_InvalidSiteID(t *testing.T) {
	h := scrape.RunHandler{Svc: scrapeUC.NewService(&stubPipeline{}, nil)}

	req := httptest.NewRequest(http.MethodPost, "/scrape?site_id=abc", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRunHandler_PipelineFailure(t *testing.T) {
	stub := &stubPipeline{err: errors.New("listing load failed")}
	h := scrape.RunHandler{Svc: scrapeUC.NewService(stub, nil)}

	req := httptest.NewRequest(http.MethodPost, "/scrape", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
