package website_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rfp-radar/internal/domain/entity"
	"rfp-radar/internal/handler/http/website"
	webUC "rfp-radar/internal/usecase/website"
)

/* ───────── モック実装 ───────── */

type stubWebsiteRepo struct {
	sites   []*entity.WebsiteSettings
	listErr error
	created *entity.WebsiteSettings
	updated *entity.WebsiteSettings
	deleted []int64
}

func (s *stubWebsiteRepo) List(_ context.Context) ([]*entity.WebsiteSettings, error) {
	return s.sites, s.listErr
}

func (s *stubWebsiteRepo) Get(_ context.Context, id int64) (*entity.WebsiteSettings, error) {
	for _, site := range s.sites {
		if site.ID == id {
			return site, nil
		}
	}
	return nil, nil
}

func (s *stubWebsiteRepo) Create(_ context.Context, site *entity.WebsiteSettings) error {
	site.ID = 99
	s.created = site
	return nil
}

func (s *stubWebsiteRepo) Update(_ context.Context, site *entity.WebsiteSettings) error {
	s.updated = site
	return nil
}

func (s *stubWebsiteRepo) Delete(_ context.Context, id int64) error {
	s.deleted = append(s.deleted, id)
	return nil
}

// 未使用だが、インターフェース満たすために実装
func (s *stubWebsiteRepo) ListEnabled(_ context.Context) ([]*entity.WebsiteSettings, error) {
	return nil, nil
}

func sampleSites() []*entity.WebsiteSettings {
	return []*entity.WebsiteSettings{
		{
			ID:        1,
			Name:      "調達ポータル",
			URL:       "https://example.go.jp/procurement/",
			Kind:      "html",
			Enabled:   true,
			CreatedAt: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		},
	}
}

/* ───────── テストケース ───────── */

func TestListHandler_Success(t *testing.T) {
	stub := &stubWebsiteRepo{sites: sampleSites()}
	h := website.ListHandler{Svc: &webUC.Service{Repo: stub}}

	req := httptest.NewRequest(http.MethodGet, "/website-settings", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var out []website.DTO
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 site, got %d", len(out))
	}
	if out[0].Name != "調達ポータル" {
		t.Errorf("name = %q", out[0].Name)
	}
}

func TestListHandler_RepositoryError(t *testing.T) {
	stub := &stubWebsiteRepo{listErr: errors.New("db down")}
	h := website.ListHandler{Svc: &webUC.Service{Repo: stub}}

	req := httptest.NewRequest(http.MethodGet, "/website-settings", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestGetHandler_NotFound(t *testing.T) {
	h := website.GetHandler{Svc: &webUC.Service{Repo: &stubWebsiteRepo{}}}

	req := httptest.NewRequest(http.MethodGet, "/website-settings/42", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCreateHandler_Success(t *testing.T) {
	stub := &stubWebsiteRepo{}
	h := website.CreateHandler{Svc: &webUC.Service{Repo: stub}}

	body := `{"name":"入札情報サービス","url":"https://bids.example.jp/list","kind":"html"}`
	req := httptest.NewRequest(http.MethodPost, "/website-settings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.created == nil {
		t.Fatal("expected Create to reach the repository")
	}
	if !stub.created.Enabled {
		t.Error("new sites should default to enabled")
	}

	var out website.DTO
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out.ID != 99 {
		t.Errorf("id = %d, want 99", out.ID)
	}
}

func TestCreateHandler_MissingFields(t *testing.T) {
	h := website.CreateHandler{Svc: &webUC.Service{Repo: &stubWebsiteRepo{}}}

	req := httptest.NewRequest(http.MethodPost, "/website-settings", strings.NewReader(`{"name":"x"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateHandler_InvalidURL(t *testing.T) {
	h := website.CreateHandler{Svc: &webUC.Service{Repo: &stubWebsiteRepo{}}}

	body := `{"name":"bad","url":"ftp://example.com/feed"}`
	req := httptest.NewRequest(http.MethodPost, "/website-settings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateHandler_TogglesEnabled(t *testing.T) {
	stub := &stubWebsiteRepo{sites: sampleSites()}
	h := website.UpdateHandler{Svc: &webUC.Service{Repo: stub}}

	req := httptest.NewRequest(http.MethodPut, "/website-settings/1", strings.NewReader(`{"enabled":false}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.updated == nil {
		t.Fatal("expected Update to reach the repository")
	}
	if stub.updated.Enabled {
		t.Error("expected enabled=false after update")
	}
	if stub.updated.Name != "調達ポータル" {
		t.Errorf("name should be unchanged, got %q", stub.updated.Name)
	}
}

func TestUpdateHandler_NotFound(t *testing.T) {
	h := website.UpdateHandler{Svc: &webUC.Service{Repo: &stubWebsiteRepo{}}}

	req := httptest.NewRequest(http.MethodPut, "/website-settings/42", strings.NewReader(`{"name":"x"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeleteHandler_Success(t *testing.T) {
	stub := &stubWebsiteRepo{sites: sampleSites()}
	h := website.DeleteHandler{Svc: &webUC.Service{Repo: stub}}

	req := httptest.NewRequest(http.MethodDelete, "/website-settings/1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(stub.deleted) != 1 || stub.deleted[0] != 1 {
		t.Errorf("deleted = %v, want [1]", stub.deleted)
	}
}

func TestDeleteHandler_InvalidID(t *testing.T) {
	h := website.DeleteHandler{Svc: &webUC.Service{Repo: &stubWebsiteRepo{}}}

	req := httptest.NewRequest(http.MethodDelete, "/website-settings/abc", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
