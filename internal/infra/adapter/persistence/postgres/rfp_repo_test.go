package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	"rfp-radar/internal/domain/entity"
	pg "rfp-radar/internal/infra/adapter/persistence/postgres"
)

/* ─────────────────────────── ヘルパ ─────────────────────────── */

func rfpListRow(r *entity.ProcessedRfp) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"hash", "title", "url", "site", "processed_at", "ai_summary",
	}).AddRow(
		r.Hash, r.Title, r.URL, r.Site, r.ProcessedAt, r.AISummary,
	)
}

func sampleRfp(now time.Time) *entity.ProcessedRfp {
	url := "https://example.gov/rfps/health-it.pdf"
	return &entity.ProcessedRfp{
		Hash:        entity.RfpHash(url),
		Title:       "Health IT Modernization RFP",
		URL:         url,
		Site:        "Example Agency",
		ProcessedAt: now,
		AISummary:   "Summary: ...",
	}
}

/* ─────────────────────────── 1. Get ─────────────────────────── */

func TestRfpRepo_Get(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	want := sampleRfp(now)
	want.DetailContent = "detail text"

	mock.ExpectQuery(regexp.QuoteMeta("SELECT hash")).
		WithArgs(want.Hash).
		WillReturnRows(sqlmock.NewRows([]string{
			"hash", "title", "url", "site", "processed_at", "detail_content", "ai_summary",
		}).AddRow(want.Hash, want.Title, want.URL, want.Site, want.ProcessedAt, want.DetailContent, want.AISummary))

	repo := pg.NewRfpRepo(db)
	got, err := repo.Get(context.Background(), want.Hash)
	if err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRfpRepo_Get_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT hash")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{
			"hash", "title", "url", "site", "processed_at", "detail_content", "ai_summary",
		}))

	repo := pg.NewRfpRepo(db)
	got, err := repo.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing row, got %+v", got)
	}
}

/* ─────────────────────────── 2. List ─────────────────────────── */

func TestRfpRepo_List(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Now()
	mock.ExpectQuery("FROM processed_rfps").
		WillReturnRows(rfpListRow(sampleRfp(now)))

	repo := pg.NewRfpRepo(db)
	got, err := repo.List(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("List err=%v len=%d", err, len(got))
	}
}

func TestRfpRepo_ListPaginated(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $1 OFFSET $2")).
		WithArgs(10, 20).
		WillReturnRows(rfpListRow(sampleRfp(now)))

	repo := pg.NewRfpRepo(db)
	got, err := repo.ListPaginated(context.Background(), 20, 10)
	if err != nil || len(got) != 1 {
		t.Fatalf("ListPaginated err=%v len=%d", err, len(got))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRfpRepo_Count(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM processed_rfps")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	repo := pg.NewRfpRepo(db)
	got, err := repo.Count(context.Background())
	if err != nil || got != 42 {
		t.Fatalf("Count err=%v got=%d", err, got)
	}
}

/* ─────────────────────────── 3. Create ─────────────────────────── */

func TestRfpRepo_Create(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	rfp := sampleRfp(now)
	rfp.DetailContent = "text"
	rfp.PDFContent = []byte("%PDF-1.7")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO processed_rfps")).
		WithArgs(rfp.Hash, rfp.Title, rfp.URL, rfp.Site,
			rfp.ProcessedAt, rfp.DetailContent, rfp.AISummary, rfp.PDFContent).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := pg.NewRfpRepo(db)
	if err := repo.Create(context.Background(), rfp); err != nil {
		t.Fatalf("Create err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRfpRepo_Create_ConflictIgnored(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Now()
	rfp := sampleRfp(now)

	// ON CONFLICT DO NOTHING: zero rows affected is still success.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO processed_rfps")).
		WithArgs(rfp.Hash, rfp.Title, rfp.URL, rfp.Site,
			rfp.ProcessedAt, rfp.DetailContent, rfp.AISummary, rfp.PDFContent).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := pg.NewRfpRepo(db)
	if err := repo.Create(context.Background(), rfp); err != nil {
		t.Fatalf("Create err=%v", err)
	}
}

func TestRfpRepo_Create_Invalid(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	repo := pg.NewRfpRepo(db)
	err := repo.Create(context.Background(), &entity.ProcessedRfp{URL: "https://x"})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

/* ─────────────────────────── 4. Delete ─────────────────────────── */

func TestRfpRepo_Delete(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM processed_rfps WHERE hash = $1")).
		WithArgs("abc").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := pg.NewRfpRepo(db)
	if err := repo.Delete(context.Background(), "abc"); err != nil {
		t.Fatalf("Delete err=%v", err)
	}
}

func TestRfpRepo_Delete_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM processed_rfps WHERE hash = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := pg.NewRfpRepo(db)
	err := repo.Delete(context.Background(), "missing")
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRfpRepo_DeleteAll(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM processed_rfps")).
		WillReturnResult(sqlmock.NewResult(0, 7))

	repo := pg.NewRfpRepo(db)
	n, err := repo.DeleteAll(context.Background())
	if err != nil || n != 7 {
		t.Fatalf("DeleteAll err=%v n=%d", err, n)
	}
}

/* ─────────────────────────── 5. Exists ─────────────────────────── */

func TestRfpRepo_ExistsByHash(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	repo := pg.NewRfpRepo(db)
	ok, err := repo.ExistsByHash(context.Background(), "abc")
	if err != nil || !ok {
		t.Fatalf("ExistsByHash err=%v ok=%v", err, ok)
	}
}

func TestRfpRepo_ExistsByURL(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("https://example.gov/rfp").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	repo := pg.NewRfpRepo(db)
	ok, err := repo.ExistsByURL(context.Background(), "https://example.gov/rfp")
	if err != nil || ok {
		t.Fatalf("ExistsByURL err=%v ok=%v", err, ok)
	}
}

/* ─────────────────────────── 6. PDF ─────────────────────────── */

func TestRfpRepo_GetPDF(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	pdf := []byte("%PDF-1.7 content")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT pdf_content")).
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{"pdf_content"}).AddRow(pdf))

	repo := pg.NewRfpRepo(db)
	got, err := repo.GetPDF(context.Background(), "abc")
	if err != nil {
		t.Fatalf("GetPDF err=%v", err)
	}
	if string(got) != string(pdf) {
		t.Fatalf("pdf mismatch")
	}
}

/* ─────────────────────────── 7. RecentForSite ─────────────────────────── */

func TestRfpRepo_RecentForSite(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT title, url")).
		WithArgs("Example Agency", 100).
		WillReturnRows(sqlmock.NewRows([]string{"title", "url"}).
			AddRow("RFP A", "https://example.gov/a").
			AddRow("RFP B", "https://example.gov/b"))

	repo := pg.NewRfpRepo(db)
	items, err := repo.RecentForSite(context.Background(), "Example Agency", 100)
	if err != nil || len(items) != 2 {
		t.Fatalf("RecentForSite err=%v len=%d", err, len(items))
	}
	if items[0].Title != "RFP A" || items[1].URL != "https://example.gov/b" {
		t.Fatalf("unexpected items: %+v", items)
	}
}
