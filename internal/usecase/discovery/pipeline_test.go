package discovery_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfp-radar/internal/domain/entity"
	"rfp-radar/internal/repository"
	"rfp-radar/internal/usecase/discovery"
)

// pipelineWorld wires a Pipeline around in-memory fakes. Tests mutate the
// fields before calling run.
type pipelineWorld struct {
	websites   *memWebsiteRepo
	loader     *fakeLoader
	feed       *fakeFeed
	extractor  *fakeExtractor
	model      *fakeModel
	rfps       *memRfpRepo
	exclusions *memExclusionRepo
	hook       *fakeHook
}

func newPipelineWorld() *pipelineWorld {
	return &pipelineWorld{
		websites:   &memWebsiteRepo{},
		loader:     &fakeLoader{listings: map[string]*discovery.PageView{}, pages: map[string]*discovery.PageView{}},
		feed:       &fakeFeed{},
		extractor:  &fakeExtractor{},
		model:      &fakeModel{},
		rfps:       newMemRfpRepo(),
		exclusions: newMemExclusionRepo(),
		hook:       &fakeHook{},
	}
}

func (w *pipelineWorld) pipeline(concurrency int) *discovery.Pipeline {
	analyzer := discovery.NewAnalyzer(w.loader, w.feed, w.model, w.rfps, w.exclusions)
	navigator := discovery.NewNavigator(w.loader, w.extractor, w.model, 5)
	validator := discovery.NewValidator(w.model, w.rfps, w.exclusions, true, 0)
	return discovery.NewPipeline(w.websites, analyzer, navigator, validator, w.hook, concurrency)
}

func TestPipelineRun_EndToEnd(t *testing.T) {
	w := newPipelineWorld()
	siteA := newSite(1, "Site A", "https://a/rfps", entity.WebsiteKindHTML)
	siteB := newSite(2, "Site B", "https://b/feed", entity.WebsiteKindRSS)
	siteC := newSite(3, "Site C", "https://c/rfps", entity.WebsiteKindHTML)
	siteC.Enabled = false
	w.websites.sites = []*entity.WebsiteSettings{siteA, siteB, siteC}

	w.loader.listings[siteA.URL] = &discovery.PageView{
		FinalURL: siteA.URL,
		Links: []discovery.Link{
			{Text: "Alpha Detail", Href: "https://a/rfps/alpha"},
			{Text: "Beta Detail", Href: "https://a/rfps/beta"},
		},
	}
	w.loader.pages["https://a/rfps/alpha"] = &discovery.PageView{FinalURL: "https://a/rfps/alpha", Text: "alpha detail"}
	w.loader.pages["https://a/rfps/beta"] = &discovery.PageView{FinalURL: "https://a/rfps/beta", Text: "submission window has closed"}

	// サイト B のフィード項目は処理済みなのでアナライザ段階で落ちる
	w.feed.items = []discovery.ListingItem{{Title: "Seen Grant", URL: "https://b/grants/seen"}}
	w.rfps.byURL["https://b/grants/seen"] = true
	w.rfps.recent = []repository.KnownItem{{Title: "Old Alpha", URL: "https://a/old"}}

	w.model.pickItems = func(_ context.Context, _ *discovery.PageView, _ []discovery.KnownItem, _ string) ([]discovery.ListingItem, error) {
		return []discovery.ListingItem{
			{Title: "Alpha Senior Care RFP", URL: "https://a/rfps/alpha", DetailLinkIndex: intp(0)},
			{Title: "Beta Nursing RFP", URL: "https://a/rfps/beta", DetailLinkIndex: intp(1)},
		}, nil
	}
	var navTitles []string
	w.model.navigate = func(_ context.Context, page *discovery.PageView, titles []string, _, _ int) (*discovery.NavDecision, error) {
		navTitles = titles
		if page.FinalURL == "https://a/rfps/beta" {
			return &discovery.NavDecision{Status: discovery.NavExpired, Reason: "window closed"}, nil
		}
		return &discovery.NavDecision{
			Status: discovery.NavFinal,
			Final:  &discovery.NavTarget{Title: "Alpha Senior Care Procurement 2026"},
		}, nil
	}
	w.model.classifyFinal = func(_ context.Context, _, _ string) (*discovery.FinalCheck, error) {
		return &discovery.FinalCheck{Status: discovery.FinalActive, DeadlineISO: "2999-12-31"}, nil
	}
	w.model.classifyScope = func(_ context.Context, _, _, _ string) (*discovery.ScopeCheck, error) {
		return &discovery.ScopeCheck{InScope: true}, nil
	}
	w.model.summarize = func(_ context.Context, _ string) (string, error) {
		return "Summary - Alpha senior care services", nil
	}

	stats, err := w.pipeline(1).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Sites)
	assert.Zero(t, stats.SitesFailed)
	assert.Equal(t, 3, stats.ItemsProposed)
	assert.Equal(t, 1, stats.NewCount)
	assert.Equal(t, 1, stats.Excluded)
	assert.Zero(t, stats.Failed)
	require.Len(t, stats.NewRfps, 1)
	assert.Equal(t, discovery.NewRfp{
		Hash:    entity.RfpHash("https://a/rfps/alpha"),
		Title:   "Alpha Senior Care Procurement 2026",
		URL:     "https://a/rfps/alpha",
		Site:    "Site A",
		Summary: "Summary - Alpha senior care services",
	}, stats.NewRfps[0])

	// ナビゲーション中の expired は一覧段階の鍵で除外される
	excl := w.exclusions.get(entity.ExclusionKey("Beta Nursing RFP", siteA.URL))
	require.NotNil(t, excl)
	assert.Equal(t, entity.ExclusionExpired, excl.Reason)
	require.NotNil(t, excl.DetailURL)
	assert.Equal(t, "https://a/rfps/beta", *excl.DetailURL)

	require.NotNil(t, w.rfps.get(entity.RfpHash("https://a/rfps/alpha")))
	assert.Equal(t, 1, w.hook.count())
	assert.Contains(t, navTitles, "Old Alpha")
	assert.False(t, stats.StartedAt.IsZero())
}

func TestPipelineRun_SiteFailureIsolated(t *testing.T) {
	w := newPipelineWorld()
	siteA := newSite(1, "Broken Site", "https://a/rfps", entity.WebsiteKindHTML)
	siteB := newSite(2, "Feed Site", "https://b/feed", entity.WebsiteKindRSS)
	w.websites.sites = []*entity.WebsiteSettings{siteA, siteB}

	// サイト A の一覧 fixture を用意しないので解析が失敗する
	w.feed.items = []discovery.ListingItem{{Title: "Gamma Grant", URL: "https://b/grants/gamma"}}
	w.loader.pages["https://b/grants/gamma"] = &discovery.PageView{FinalURL: "https://b/grants/gamma", Text: "gamma detail"}

	w.model.navigate = func(_ context.Context, _ *discovery.PageView, _ []string, _, _ int) (*discovery.NavDecision, error) {
		return &discovery.NavDecision{
			Status: discovery.NavFinal,
			Final:  &discovery.NavTarget{Title: "Gamma County Grant Program"},
		}, nil
	}
	w.model.classifyFinal = func(_ context.Context, _, _ string) (*discovery.FinalCheck, error) {
		return &discovery.FinalCheck{Status: discovery.FinalActive}, nil
	}
	w.model.classifyScope = func(_ context.Context, _, _, _ string) (*discovery.ScopeCheck, error) {
		return &discovery.ScopeCheck{InScope: true}, nil
	}
	w.model.summarize = func(_ context.Context, _ string) (string, error) {
		return "Summary - Gamma grant", nil
	}

	stats, err := w.pipeline(1).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Sites)
	assert.Equal(t, 1, stats.SitesFailed)
	assert.Equal(t, 1, stats.NewCount)
	require.Len(t, stats.NewRfps, 1)
	assert.Equal(t, "Gamma County Grant Program", stats.NewRfps[0].Title)
}

func TestPipelineRun_ItemFailureContinues(t *testing.T) {
	w := newPipelineWorld()
	site := newSite(1, "Site A", "https://a/rfps", entity.WebsiteKindHTML)
	w.websites.sites = []*entity.WebsiteSettings{site}

	w.loader.listings[site.URL] = &discovery.PageView{
		FinalURL: site.URL,
		Links: []discovery.Link{
			{Text: "Dead End", Href: "https://a/rfps/dead"},
			{Text: "Good", Href: "https://a/rfps/good"},
		},
	}
	w.loader.pages["https://a/rfps/dead"] = &discovery.PageView{FinalURL: "https://a/rfps/dead"}
	w.loader.pages["https://a/rfps/good"] = &discovery.PageView{FinalURL: "https://a/rfps/good", Text: "good detail"}

	w.model.pickItems = func(_ context.Context, _ *discovery.PageView, _ []discovery.KnownItem, _ string) ([]discovery.ListingItem, error) {
		return []discovery.ListingItem{
			{Title: "Dead End Procurement", URL: "https://a/rfps/dead", DetailLinkIndex: intp(0)},
			{Title: "Good Procurement", URL: "https://a/rfps/good", DetailLinkIndex: intp(1)},
		}, nil
	}
	w.model.navigate = func(_ context.Context, page *discovery.PageView, _ []string, _, _ int) (*discovery.NavDecision, error) {
		if page.FinalURL == "https://a/rfps/dead" {
			return &discovery.NavDecision{Status: discovery.NavGiveUp, Reason: "login wall"}, nil
		}
		return &discovery.NavDecision{
			Status: discovery.NavFinal,
			Final:  &discovery.NavTarget{Title: "Good Procurement Services 2026"},
		}, nil
	}
	w.model.classifyFinal = func(_ context.Context, _, _ string) (*discovery.FinalCheck, error) {
		return &discovery.FinalCheck{Status: discovery.FinalActive}, nil
	}
	w.model.classifyScope = func(_ context.Context, _, _, _ string) (*discovery.ScopeCheck, error) {
		return &discovery.ScopeCheck{InScope: true}, nil
	}
	w.model.summarize = func(_ context.Context, _ string) (string, error) {
		return "Summary - Good services", nil
	}

	stats, err := w.pipeline(1).Run(context.Background())
	require.NoError(t, err)

	// give_up は一時的な失敗扱い。除外行は書かず次回また試す
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.NewCount)
	assert.Zero(t, stats.Excluded)
	assert.Zero(t, w.exclusions.count())
}

func TestPipelineRunOne_RunsDisabledSiteOnRequest(t *testing.T) {
	w := newPipelineWorld()
	site := newSite(7, "Paused Site", "https://p/feed", entity.WebsiteKindRSS)
	site.Enabled = false
	w.websites.sites = []*entity.WebsiteSettings{site}
	w.feed.items = nil

	stats, err := w.pipeline(1).RunOne(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sites)
	assert.Zero(t, stats.SitesFailed)
}

func TestPipelineRunOne_UnknownSite(t *testing.T) {
	w := newPipelineWorld()
	_, err := w.pipeline(1).RunOne(context.Background(), 99)
	require.Error(t, err)
	assert.ErrorContains(t, err, "not found")
}

func TestPipelineRun_ListEnabledErrorFailsRun(t *testing.T) {
	w := newPipelineWorld()
	w.websites.listErr = errors.New("connection reset")

	_, err := w.pipeline(1).Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "Pipeline.Run")
}

func TestPipelineRun_ExclusionWriteFailureCountsAsFailed(t *testing.T) {
	w := newPipelineWorld()
	site := newSite(1, "Site A", "https://a/rfps", entity.WebsiteKindHTML)
	w.websites.sites = []*entity.WebsiteSettings{site}

	w.loader.listings[site.URL] = &discovery.PageView{
		FinalURL: site.URL,
		Links:    []discovery.Link{{Text: "Beta", Href: "https://a/rfps/beta"}},
	}
	w.loader.pages["https://a/rfps/beta"] = &discovery.PageView{FinalURL: "https://a/rfps/beta"}

	w.model.pickItems = func(_ context.Context, _ *discovery.PageView, _ []discovery.KnownItem, _ string) ([]discovery.ListingItem, error) {
		return []discovery.ListingItem{
			{Title: "Beta Nursing RFP", URL: "https://a/rfps/beta", DetailLinkIndex: intp(0)},
		}, nil
	}
	w.model.navigate = func(_ context.Context, _ *discovery.PageView, _ []string, _, _ int) (*discovery.NavDecision, error) {
		return &discovery.NavDecision{Status: discovery.NavExpired, Reason: "closed"}, nil
	}
	w.exclusions.createErr = errors.New("disk full")

	stats, err := w.pipeline(1).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Zero(t, stats.Excluded)
}
