package ai

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfp-radar/internal/domain/entity"
	"rfp-radar/internal/repository"
)

// mockEmbedder implements Embedder for testing.
type mockEmbedder struct {
	vector          []float32
	err             error
	dims            int
	panicOnEmbed    bool
	delay           time.Duration
	mu              sync.Mutex
	calls           int
	capturedContent string
	capturedReqID   string
}

func (m *mockEmbedder) Embed(ctx context.Context, content string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.capturedContent = content
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		m.capturedReqID = id
	}
	m.mu.Unlock()

	if m.panicOnEmbed {
		panic("mock embedder panic")
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.vector, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockEmbedder) lastContent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capturedContent
}

func (m *mockEmbedder) lastRequestID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capturedReqID
}

// mockAnswerer implements Answerer for testing.
type mockAnswerer struct {
	text             string
	err              error
	calls            int
	capturedQuestion string
	capturedPassages []Passage
}

func (m *mockAnswerer) Answer(_ context.Context, question string, passages []Passage) (string, error) {
	m.calls++
	m.capturedQuestion = question
	m.capturedPassages = passages
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

// stubEmbeddingRepo is a minimal in-memory RfpEmbeddingRepository.
type stubEmbeddingRepo struct {
	matches       []repository.SimilarRfp
	searchErr     error
	upsertErr     error
	mu            sync.Mutex
	upserted      []*entity.RfpEmbedding
	upsertCalls   int
	capturedQuery []float32
	capturedLimit int
}

func (s *stubEmbeddingRepo) Upsert(_ context.Context, e *entity.RfpEmbedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls++
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserted = append(s.upserted, e)
	return nil
}

func (s *stubEmbeddingRepo) SearchSimilar(_ context.Context, query []float32, limit int) ([]repository.SimilarRfp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capturedQuery = query
	s.capturedLimit = limit
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.matches, nil
}

func (s *stubEmbeddingRepo) DeleteByHash(_ context.Context, _ string) (int64, error) {
	return 0, nil
}

func (s *stubEmbeddingRepo) upsertedRows() []*entity.RfpEmbedding {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.RfpEmbedding, len(s.upserted))
	copy(out, s.upserted)
	return out
}

// stubRfpStore is a minimal in-memory RfpRepository; only Get matters here.
type stubRfpStore struct {
	rows map[string]*entity.ProcessedRfp
	err  error
}

func newStubRfpStore(rows ...*entity.ProcessedRfp) *stubRfpStore {
	s := &stubRfpStore{rows: map[string]*entity.ProcessedRfp{}}
	for _, r := range rows {
		s.rows[r.Hash] = r
	}
	return s
}

func (s *stubRfpStore) List(_ context.Context) ([]*entity.ProcessedRfp, error) { return nil, s.err }
func (s *stubRfpStore) ListPaginated(_ context.Context, _, _ int) ([]*entity.ProcessedRfp, error) {
	return nil, s.err
}
func (s *stubRfpStore) Count(_ context.Context) (int64, error) { return 0, s.err }
func (s *stubRfpStore) Get(_ context.Context, hash string) (*entity.ProcessedRfp, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rows[hash], nil
}
func (s *stubRfpStore) GetPDF(_ context.Context, _ string) ([]byte, error)      { return nil, s.err }
func (s *stubRfpStore) Create(_ context.Context, _ *entity.ProcessedRfp) error  { return s.err }
func (s *stubRfpStore) Delete(_ context.Context, _ string) error                { return s.err }
func (s *stubRfpStore) DeleteAll(_ context.Context) (int64, error)              { return 0, s.err }
func (s *stubRfpStore) ExistsByHash(_ context.Context, _ string) (bool, error)  { return false, s.err }
func (s *stubRfpStore) ExistsByURL(_ context.Context, _ string) (bool, error)   { return false, s.err }
func (s *stubRfpStore) RecentForSite(_ context.Context, _ string, _ int) ([]repository.KnownItem, error) {
	return nil, s.err
}

// sampleRows returns two stored opportunities the search fixtures point at.
func sampleRows() (*entity.ProcessedRfp, *entity.ProcessedRfp) {
	a := &entity.ProcessedRfp{
		Hash:        "a1b2c3",
		Title:       "Immunization Registry Modernization",
		URL:         "https://procure.example.gov/rfp/2041",
		Site:        "State Procurement Portal",
		AISummary:   "Summary - Replace the legacy immunization registry with a cloud platform.",
		ProcessedAt: time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	}
	b := &entity.ProcessedRfp{
		Hash:        "d4e5f6",
		Title:       "HIE Interoperability Assessment",
		URL:         "https://county.example.gov/bids/77",
		Site:        "County Portal",
		AISummary:   "Summary - Assess FHIR readiness across the county HIE.",
		ProcessedAt: time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC),
	}
	return a, b
}

func TestNewService(t *testing.T) {
	embedder := &mockEmbedder{vector: []float32{0.1}, dims: 1}
	service := NewService(embedder, &mockAnswerer{}, &stubEmbeddingRepo{}, newStubRfpStore())

	assert.NotNil(t, service)
	assert.True(t, service.Enabled())
}

func TestService_Enabled(t *testing.T) {
	tests := []struct {
		name     string
		embedder Embedder
		want     bool
	}{
		{"with embedder", &mockEmbedder{}, true},
		{"nil embedder", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewService(tt.embedder, &mockAnswerer{}, &stubEmbeddingRepo{}, newStubRfpStore())
			assert.Equal(t, tt.want, service.Enabled())
		})
	}
}

func TestService_Search_Success(t *testing.T) {
	rowA, rowB := sampleRows()
	embedder := &mockEmbedder{vector: []float32{0.1, 0.2, 0.3}, dims: 3}
	embRepo := &stubEmbeddingRepo{
		matches: []repository.SimilarRfp{
			{RfpHash: rowA.Hash, Similarity: 0.95},
			{RfpHash: rowB.Hash, Similarity: 0.90},
		},
	}

	service := NewService(embedder, &mockAnswerer{}, embRepo, newStubRfpStore(rowA, rowB))

	hits, err := service.Search(context.Background(), "immunization registry", 5)

	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, rowA.Hash, hits[0].Hash)
	assert.Equal(t, rowA.Title, hits[0].Title)
	assert.Equal(t, rowA.URL, hits[0].URL)
	assert.Equal(t, rowA.Site, hits[0].Site)
	assert.Equal(t, rowA.AISummary, hits[0].Summary)
	assert.Equal(t, 0.95, hits[0].Similarity)
	assert.Equal(t, rowA.ProcessedAt, hits[0].ProcessedAt)

	assert.Equal(t, rowB.Hash, hits[1].Hash)
	assert.Equal(t, 0.90, hits[1].Similarity)

	// The query itself is what gets embedded
	assert.Equal(t, "immunization registry", embedder.lastContent())
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, embRepo.capturedQuery)
	assert.Equal(t, 5, embRepo.capturedLimit)
}

func TestService_Search_Disabled(t *testing.T) {
	service := NewService(nil, &mockAnswerer{}, &stubEmbeddingRepo{}, newStubRfpStore())

	hits, err := service.Search(context.Background(), "anything", 10)

	assert.ErrorIs(t, err, ErrSemanticDisabled)
	assert.Nil(t, hits)
}

func TestService_Search_EmptyQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"empty string", ""},
		{"whitespace only", "   \t\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := &mockEmbedder{vector: []float32{0.1}}
			service := NewService(embedder, &mockAnswerer{}, &stubEmbeddingRepo{}, newStubRfpStore())

			hits, err := service.Search(context.Background(), tt.query, 10)

			assert.ErrorIs(t, err, ErrInvalidQuery)
			assert.Nil(t, hits)
			assert.Equal(t, 0, embedder.callCount())
		})
	}
}

func TestService_Search_DefaultLimit(t *testing.T) {
	embedder := &mockEmbedder{vector: []float32{0.1}}
	embRepo := &stubEmbeddingRepo{}
	service := NewService(embedder, &mockAnswerer{}, embRepo, newStubRfpStore())

	_, err := service.Search(context.Background(), "telehealth", 0)

	require.NoError(t, err)
	assert.Equal(t, defaultSearchLimit, embRepo.capturedLimit)
}

func TestService_Search_LimitCap(t *testing.T) {
	embedder := &mockEmbedder{vector: []float32{0.1}}
	embRepo := &stubEmbeddingRepo{}
	service := NewService(embedder, &mockAnswerer{}, embRepo, newStubRfpStore())

	_, err := service.Search(context.Background(), "telehealth", 500)

	require.NoError(t, err)
	assert.Equal(t, maxSearchLimit, embRepo.capturedLimit)
}

func TestService_Search_EmbedError(t *testing.T) {
	embedder := &mockEmbedder{err: errors.New("model unavailable")}
	service := NewService(embedder, &mockAnswerer{}, &stubEmbeddingRepo{}, newStubRfpStore())

	hits, err := service.Search(context.Background(), "telehealth", 10)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "semantic search failed")
	assert.Contains(t, err.Error(), "embed query")
	assert.Nil(t, hits)
}

func TestService_Search_RepoError(t *testing.T) {
	embedder := &mockEmbedder{vector: []float32{0.1}}
	embRepo := &stubEmbeddingRepo{searchErr: errors.New("connection refused")}
	service := NewService(embedder, &mockAnswerer{}, embRepo, newStubRfpStore())

	hits, err := service.Search(context.Background(), "telehealth", 10)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "search embeddings")
	assert.Nil(t, hits)
}

func TestService_Search_SkipsStaleRows(t *testing.T) {
	rowA, _ := sampleRows()
	embedder := &mockEmbedder{vector: []float32{0.1}}
	embRepo := &stubEmbeddingRepo{
		matches: []repository.SimilarRfp{
			{RfpHash: rowA.Hash, Similarity: 0.95},
			{RfpHash: "vanished", Similarity: 0.80},
		},
	}
	service := NewService(embedder, &mockAnswerer{}, embRepo, newStubRfpStore(rowA))

	hits, err := service.Search(context.Background(), "registry", 10)

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, rowA.Hash, hits[0].Hash)
}

func TestService_Search_RowLookupError(t *testing.T) {
	embedder := &mockEmbedder{vector: []float32{0.1}}
	embRepo := &stubEmbeddingRepo{
		matches: []repository.SimilarRfp{{RfpHash: "a1b2c3", Similarity: 0.95}},
	}
	store := newStubRfpStore()
	store.err = errors.New("db down")
	service := NewService(embedder, &mockAnswerer{}, embRepo, store)

	hits, err := service.Search(context.Background(), "registry", 10)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "load rfp")
	assert.Nil(t, hits)
}

func TestService_Ask_Success(t *testing.T) {
	rowA, rowB := sampleRows()
	embedder := &mockEmbedder{vector: []float32{0.4, 0.5}}
	answerer := &mockAnswerer{text: "The registry RFP covers cloud migration."}
	embRepo := &stubEmbeddingRepo{
		matches: []repository.SimilarRfp{
			{RfpHash: rowA.Hash, Similarity: 0.92},
			{RfpHash: rowB.Hash, Similarity: 0.88},
		},
	}
	service := NewService(embedder, answerer, embRepo, newStubRfpStore(rowA, rowB))

	answer, err := service.Ask(context.Background(), "What does the registry RFP cover?", 5)

	require.NoError(t, err)
	require.NotNil(t, answer)
	assert.Equal(t, "The registry RFP covers cloud migration.", answer.Text)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, rowA.Hash, answer.Sources[0].Hash)

	// The answerer saw the question and one passage per hit
	assert.Equal(t, "What does the registry RFP cover?", answerer.capturedQuestion)
	require.Len(t, answerer.capturedPassages, 2)
	assert.Equal(t, rowA.Title, answerer.capturedPassages[0].Title)
	assert.Equal(t, rowA.URL, answerer.capturedPassages[0].URL)
	assert.Equal(t, rowA.AISummary, answerer.capturedPassages[0].Summary)
}

func TestService_Ask_Disabled(t *testing.T) {
	tests := []struct {
		name     string
		embedder Embedder
		answerer Answerer
	}{
		{"no embedder", nil, &mockAnswerer{}},
		{"no answerer", &mockEmbedder{vector: []float32{0.1}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewService(tt.embedder, tt.answerer, &stubEmbeddingRepo{}, newStubRfpStore())

			answer, err := service.Ask(context.Background(), "anything", 5)

			assert.ErrorIs(t, err, ErrSemanticDisabled)
			assert.Nil(t, answer)
		})
	}
}

func TestService_Ask_EmptyQuestion(t *testing.T) {
	embedder := &mockEmbedder{vector: []float32{0.1}}
	service := NewService(embedder, &mockAnswerer{}, &stubEmbeddingRepo{}, newStubRfpStore())

	answer, err := service.Ask(context.Background(), "  ", 5)

	assert.ErrorIs(t, err, ErrInvalidQuestion)
	assert.Nil(t, answer)
}

func TestService_Ask_DefaultContext(t *testing.T) {
	embedder := &mockEmbedder{vector: []float32{0.1}}
	embRepo := &stubEmbeddingRepo{}
	service := NewService(embedder, &mockAnswerer{text: "ok"}, embRepo, newStubRfpStore())

	_, err := service.Ask(context.Background(), "question", 0)

	require.NoError(t, err)
	assert.Equal(t, defaultAskContext, embRepo.capturedLimit)
}

func TestService_Ask_ContextCap(t *testing.T) {
	embedder := &mockEmbedder{vector: []float32{0.1}}
	embRepo := &stubEmbeddingRepo{}
	service := NewService(embedder, &mockAnswerer{text: "ok"}, embRepo, newStubRfpStore())

	_, err := service.Ask(context.Background(), "question", 100)

	require.NoError(t, err)
	assert.Equal(t, maxAskContext, embRepo.capturedLimit)
}

func TestService_Ask_NoMatches_StillAnswers(t *testing.T) {
	// The model states that nothing stored matches; the service never
	// fabricates that text itself.
	embedder := &mockEmbedder{vector: []float32{0.1}}
	answerer := &mockAnswerer{text: "I don't know."}
	service := NewService(embedder, answerer, &stubEmbeddingRepo{}, newStubRfpStore())

	answer, err := service.Ask(context.Background(), "Is there a dental RFP?", 5)

	require.NoError(t, err)
	assert.Equal(t, "I don't know.", answer.Text)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, 1, answerer.calls)
	assert.Empty(t, answerer.capturedPassages)
}

func TestService_Ask_AnswererError(t *testing.T) {
	rowA, _ := sampleRows()
	embedder := &mockEmbedder{vector: []float32{0.1}}
	answerer := &mockAnswerer{err: errors.New("model overloaded")}
	embRepo := &stubEmbeddingRepo{
		matches: []repository.SimilarRfp{{RfpHash: rowA.Hash, Similarity: 0.9}},
	}
	service := NewService(embedder, answerer, embRepo, newStubRfpStore(rowA))

	answer, err := service.Ask(context.Background(), "question", 5)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "answer generation failed")
	assert.Nil(t, answer)
}

func TestService_Ask_RetrievalError(t *testing.T) {
	embedder := &mockEmbedder{err: errors.New("model unavailable")}
	service := NewService(embedder, &mockAnswerer{}, &stubEmbeddingRepo{}, newStubRfpStore())

	answer, err := service.Ask(context.Background(), "question", 5)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "context retrieval failed")
	assert.Nil(t, answer)
}

func TestService_ContextWithRequestID(t *testing.T) {
	embedder := &mockEmbedder{vector: []float32{0.1}}
	service := NewService(embedder, &mockAnswerer{}, &stubEmbeddingRepo{}, newStubRfpStore())

	ctx := context.WithValue(context.Background(), requestIDKey, "test-request-123")

	hits, err := service.Search(ctx, "telehealth", 10)

	require.NoError(t, err)
	assert.NotNil(t, hits)
}
