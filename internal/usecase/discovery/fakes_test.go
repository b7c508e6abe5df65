package discovery_test

import (
	"context"
	"fmt"
	"sync"

	"rfp-radar/internal/domain/entity"
	"rfp-radar/internal/repository"
	"rfp-radar/internal/usecase/discovery"
)

// fakeModel implements discovery.Model with programmable funcs. A nil func
// fails the call, so a test that never expects a given method catches stray
// calls as errors instead of silently passing.
type fakeModel struct {
	pickItems     func(ctx context.Context, page *discovery.PageView, known []discovery.KnownItem, listingURL string) ([]discovery.ListingItem, error)
	navigate      func(ctx context.Context, page *discovery.PageView, knownTitles []string, hop, maxHops int) (*discovery.NavDecision, error)
	classifyFinal func(ctx context.Context, text, pageURL string) (*discovery.FinalCheck, error)
	classifyScope func(ctx context.Context, title, url, text string) (*discovery.ScopeCheck, error)
	summarize     func(ctx context.Context, text string) (string, error)

	mu             sync.Mutex
	summarizeCalls int
}

func (m *fakeModel) PickItems(ctx context.Context, page *discovery.PageView, known []discovery.KnownItem, listingURL string) ([]discovery.ListingItem, error) {
	if m.pickItems == nil {
		return nil, fmt.Errorf("unexpected PickItems call for %s", listingURL)
	}
	return m.pickItems(ctx, page, known, listingURL)
}

func (m *fakeModel) Navigate(ctx context.Context, page *discovery.PageView, knownTitles []string, hop, maxHops int) (*discovery.NavDecision, error) {
	if m.navigate == nil {
		return nil, fmt.Errorf("unexpected Navigate call for %s", page.FinalURL)
	}
	return m.navigate(ctx, page, knownTitles, hop, maxHops)
}

func (m *fakeModel) ClassifyFinal(ctx context.Context, text, pageURL string) (*discovery.FinalCheck, error) {
	if m.classifyFinal == nil {
		return nil, fmt.Errorf("unexpected ClassifyFinal call for %s", pageURL)
	}
	return m.classifyFinal(ctx, text, pageURL)
}

func (m *fakeModel) ClassifyScope(ctx context.Context, title, url, text string) (*discovery.ScopeCheck, error) {
	if m.classifyScope == nil {
		return nil, fmt.Errorf("unexpected ClassifyScope call for %s", url)
	}
	return m.classifyScope(ctx, title, url, text)
}

func (m *fakeModel) Summarize(ctx context.Context, text string) (string, error) {
	m.mu.Lock()
	m.summarizeCalls++
	m.mu.Unlock()
	if m.summarize == nil {
		return "", fmt.Errorf("unexpected Summarize call")
	}
	return m.summarize(ctx, text)
}

// fakeLoader serves PageViews from URL-keyed maps and records the order of
// navigation fetches.
type fakeLoader struct {
	listings map[string]*discovery.PageView
	pages    map[string]*discovery.PageView

	mu      sync.Mutex
	fetched []string
}

func (l *fakeLoader) Listing(ctx context.Context, rawURL string) (*discovery.PageView, error) {
	pv, ok := l.listings[rawURL]
	if !ok {
		return nil, fmt.Errorf("no listing fixture for %s", rawURL)
	}
	return pv, nil
}

func (l *fakeLoader) Page(ctx context.Context, rawURL string) (*discovery.PageView, error) {
	l.mu.Lock()
	l.fetched = append(l.fetched, rawURL)
	l.mu.Unlock()
	pv, ok := l.pages[rawURL]
	if !ok {
		return nil, fmt.Errorf("no page fixture for %s", rawURL)
	}
	return pv, nil
}

type extractCall struct {
	url     string
	referer string
}

// fakeExtractor serves Documents from a URL-keyed map.
type fakeExtractor struct {
	docs  map[string]*discovery.Document
	calls []extractCall
}

func (e *fakeExtractor) Extract(ctx context.Context, rawURL, referer string) (*discovery.Document, error) {
	e.calls = append(e.calls, extractCall{url: rawURL, referer: referer})
	doc, ok := e.docs[rawURL]
	if !ok {
		return nil, fmt.Errorf("no document fixture for %s", rawURL)
	}
	return doc, nil
}

// fakeFeed serves fixed feed items.
type fakeFeed struct {
	items []discovery.ListingItem
	err   error
}

func (f *fakeFeed) Items(ctx context.Context, feedURL string) ([]discovery.ListingItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

// memRfpRepo is an in-memory RfpRepository covering the methods the
// discovery services use. The list and admin methods are never called.
type memRfpRepo struct {
	mu        sync.Mutex
	rows      map[string]*entity.ProcessedRfp
	byURL     map[string]bool
	recent    []repository.KnownItem
	createErr error
	existsErr error
}

func newMemRfpRepo() *memRfpRepo {
	return &memRfpRepo{
		rows:  make(map[string]*entity.ProcessedRfp),
		byURL: make(map[string]bool),
	}
}

func (r *memRfpRepo) Create(ctx context.Context, rfp *entity.ProcessedRfp) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[rfp.Hash] = rfp
	r.byURL[rfp.URL] = true
	return nil
}

func (r *memRfpRepo) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	if r.existsErr != nil {
		return false, r.existsErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rows[hash]
	return ok, nil
}

func (r *memRfpRepo) ExistsByURL(ctx context.Context, url string) (bool, error) {
	if r.existsErr != nil {
		return false, r.existsErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byURL[url], nil
}

func (r *memRfpRepo) RecentForSite(ctx context.Context, site string, limit int) ([]repository.KnownItem, error) {
	return r.recent, nil
}

func (r *memRfpRepo) get(hash string) *entity.ProcessedRfp {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[hash]
}

func (r *memRfpRepo) List(ctx context.Context) ([]*entity.ProcessedRfp, error) {
	panic("not used")
}

func (r *memRfpRepo) ListPaginated(ctx context.Context, offset, limit int) ([]*entity.ProcessedRfp, error) {
	panic("not used")
}

func (r *memRfpRepo) Count(ctx context.Context) (int64, error) { panic("not used") }

func (r *memRfpRepo) Get(ctx context.Context, hash string) (*entity.ProcessedRfp, error) {
	panic("not used")
}

func (r *memRfpRepo) GetPDF(ctx context.Context, hash string) ([]byte, error) { panic("not used") }

func (r *memRfpRepo) Delete(ctx context.Context, hash string) error { panic("not used") }

func (r *memRfpRepo) DeleteAll(ctx context.Context) (int64, error) { panic("not used") }

// memExclusionRepo is an in-memory ExclusionRepository. Create mirrors the
// real contract: duplicate hashes are silently ignored.
type memExclusionRepo struct {
	mu          sync.Mutex
	rows        map[string]*entity.RfpExclusion
	recent      []repository.KnownItem
	lastReasons []string
	createErr   error
	existsErr   error
}

func newMemExclusionRepo() *memExclusionRepo {
	return &memExclusionRepo{rows: make(map[string]*entity.RfpExclusion)}
}

func (r *memExclusionRepo) Create(ctx context.Context, excl *entity.RfpExclusion) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[excl.Hash]; ok {
		return nil
	}
	r.rows[excl.Hash] = excl
	return nil
}

func (r *memExclusionRepo) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	if r.existsErr != nil {
		return false, r.existsErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rows[hash]
	return ok, nil
}

func (r *memExclusionRepo) RecentForSite(ctx context.Context, site string, reasons []string, limit int) ([]repository.KnownItem, error) {
	r.mu.Lock()
	r.lastReasons = reasons
	r.mu.Unlock()
	return r.recent, nil
}

func (r *memExclusionRepo) get(hash string) *entity.RfpExclusion {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[hash]
}

func (r *memExclusionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *memExclusionRepo) List(ctx context.Context) ([]*entity.RfpExclusion, error) {
	panic("not used")
}

func (r *memExclusionRepo) DeleteAll(ctx context.Context) (int64, error) { panic("not used") }

// memWebsiteRepo serves a fixed site list.
type memWebsiteRepo struct {
	sites   []*entity.WebsiteSettings
	listErr error
}

func (r *memWebsiteRepo) Get(ctx context.Context, id int64) (*entity.WebsiteSettings, error) {
	for _, s := range r.sites {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (r *memWebsiteRepo) List(ctx context.Context) ([]*entity.WebsiteSettings, error) {
	panic("not used")
}

func (r *memWebsiteRepo) ListEnabled(ctx context.Context) ([]*entity.WebsiteSettings, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var enabled []*entity.WebsiteSettings
	for _, s := range r.sites {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	return enabled, nil
}

func (r *memWebsiteRepo) Create(ctx context.Context, site *entity.WebsiteSettings) error {
	panic("not used")
}

func (r *memWebsiteRepo) Update(ctx context.Context, site *entity.WebsiteSettings) error {
	panic("not used")
}

func (r *memWebsiteRepo) Delete(ctx context.Context, id int64) error { panic("not used") }

// fakeHook records stored rows handed to the post-store hook.
type fakeHook struct {
	mu     sync.Mutex
	stored []*entity.ProcessedRfp
}

func (h *fakeHook) RfpStored(ctx context.Context, rfp *entity.ProcessedRfp) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stored = append(h.stored, rfp)
}

func (h *fakeHook) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.stored)
}

func newSite(id int64, name, rawURL, kind string) *entity.WebsiteSettings {
	return &entity.WebsiteSettings{
		ID:      id,
		Name:    name,
		URL:     rawURL,
		Enabled: true,
		Kind:    kind,
	}
}

func intp(i int) *int { return &i }
