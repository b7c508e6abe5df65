package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"rfp-radar/internal/repository"
)

var (
	// ErrSemanticDisabled is returned when no embedding backend is configured.
	ErrSemanticDisabled = errors.New("semantic search is disabled")
	// ErrInvalidQuery is returned when the search query is empty or invalid.
	ErrInvalidQuery = errors.New("search query cannot be empty")
	// ErrInvalidQuestion is returned when the question is empty or invalid.
	ErrInvalidQuestion = errors.New("question cannot be empty")
)

const (
	// defaultSearchLimit is the top-k used when the caller passes no limit.
	defaultSearchLimit = 10
	// maxSearchLimit caps the top-k a caller may request.
	maxSearchLimit = 50
	// defaultAskContext is how many retrieved rows ground an answer.
	defaultAskContext = 5
	// maxAskContext caps the retrieval size for one answer.
	maxAskContext = 20
)

// Service provides semantic search and Q&A over stored opportunities.
// Searches embed the query, rank stored vectors by cosine similarity, and
// join the hits back to their canonical rows. Ask feeds the same retrieval
// into a grounded answer prompt.
type Service struct {
	embedder   Embedder
	answerer   Answerer
	embeddings repository.RfpEmbeddingRepository
	rfps       repository.RfpRepository
}

// NewService creates a semantic search service.
//
// Parameters:
//   - embedder: Embedding backend; nil disables the feature
//   - answerer: Grounded answer generator; nil disables Ask only
//   - embeddings: Vector side-channel repository
//   - rfps: Canonical rows the hits are joined against
//
// Returns:
//   - *Service: Configured service ready to use
func NewService(embedder Embedder, answerer Answerer, embeddings repository.RfpEmbeddingRepository, rfps repository.RfpRepository) *Service {
	return &Service{
		embedder:   embedder,
		answerer:   answerer,
		embeddings: embeddings,
		rfps:       rfps,
	}
}

// Enabled reports whether an embedding backend is configured. Handlers use
// it to answer feature probes without attempting a call.
func (s *Service) Enabled() bool {
	return s.embedder != nil
}

// Search performs semantic search over stored opportunity summaries.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - query: Search query string
//   - limit: Maximum number of results (defaults to 10, capped at 50)
//
// Returns:
//   - []SearchHit: Hits ordered by cosine similarity, highest first
//   - error: ErrSemanticDisabled if no backend, ErrInvalidQuery if query is
//     empty, or embedding/repository errors
func (s *Service) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	requestID := s.getOrCreateRequestID(ctx)

	if s.embedder == nil {
		slog.Warn("Semantic search requested but no embedding backend is configured",
			slog.String("request_id", requestID))
		return nil, ErrSemanticDisabled
	}

	query = strings.TrimSpace(query)
	if query == "" {
		slog.Warn("Empty search query provided",
			slog.String("request_id", requestID))
		return nil, ErrInvalidQuery
	}

	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	slog.Info("Performing semantic search",
		slog.String("request_id", requestID),
		slog.String("query", query),
		slog.Int("limit", limit))

	hits, err := s.retrieve(ctx, requestID, query, limit)
	if err != nil {
		slog.Error("Search failed",
			slog.String("request_id", requestID),
			slog.String("query", query),
			slog.Any("error", err))
		return nil, fmt.Errorf("semantic search failed: %w", err)
	}

	slog.Info("Search completed",
		slog.String("request_id", requestID),
		slog.Int("results", len(hits)))

	return hits, nil
}

// Ask answers a question grounded on retrieved opportunity summaries.
// Retrieval uses the same vector search as Search; the answer call always
// runs, even with zero passages, so the model can state that nothing stored
// matches rather than the service inventing that text.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - question: Question to answer
//   - maxContext: Rows to retrieve as context (defaults to 5, capped at 20)
//
// Returns:
//   - *Answer: Generated answer with the rows that grounded it
//   - error: ErrSemanticDisabled if no backend, ErrInvalidQuestion if the
//     question is empty, or embedding/model errors
func (s *Service) Ask(ctx context.Context, question string, maxContext int) (*Answer, error) {
	requestID := s.getOrCreateRequestID(ctx)

	if s.embedder == nil || s.answerer == nil {
		slog.Warn("Q&A requested but semantic search is not fully configured",
			slog.String("request_id", requestID),
			slog.Bool("embedder", s.embedder != nil),
			slog.Bool("answerer", s.answerer != nil))
		return nil, ErrSemanticDisabled
	}

	question = strings.TrimSpace(question)
	if question == "" {
		slog.Warn("Empty question provided",
			slog.String("request_id", requestID))
		return nil, ErrInvalidQuestion
	}

	if maxContext <= 0 {
		maxContext = defaultAskContext
	}
	if maxContext > maxAskContext {
		maxContext = maxAskContext
	}

	slog.Info("Answering question over stored opportunities",
		slog.String("request_id", requestID),
		slog.String("question", question),
		slog.Int("max_context", maxContext))

	hits, err := s.retrieve(ctx, requestID, question, maxContext)
	if err != nil {
		slog.Error("Context retrieval failed",
			slog.String("request_id", requestID),
			slog.String("question", question),
			slog.Any("error", err))
		return nil, fmt.Errorf("context retrieval failed: %w", err)
	}

	passages := make([]Passage, 0, len(hits))
	for _, h := range hits {
		passages = append(passages, Passage{
			Title:   h.Title,
			URL:     h.URL,
			Summary: h.Summary,
		})
	}

	text, err := s.answerer.Answer(ctx, question, passages)
	if err != nil {
		slog.Error("Answer generation failed",
			slog.String("request_id", requestID),
			slog.String("question", question),
			slog.Any("error", err))
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	slog.Info("Question answered",
		slog.String("request_id", requestID),
		slog.Int("sources", len(hits)))

	return &Answer{Text: text, Sources: hits}, nil
}

// retrieve embeds the text, ranks stored vectors, and joins each hit back to
// its canonical row. Hashes whose row has vanished are skipped; embeddings
// cascade with their RFP so the window is transient.
func (s *Service) retrieve(ctx context.Context, requestID, content string, limit int) ([]SearchHit, error) {
	vector, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.embeddings.SearchSimilar(ctx, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("search embeddings: %w", err)
	}

	hits := make([]SearchHit, 0, len(matches))
	for _, m := range matches {
		rfp, err := s.rfps.Get(ctx, m.RfpHash)
		if err != nil {
			return nil, fmt.Errorf("load rfp %s: %w", m.RfpHash, err)
		}
		if rfp == nil {
			slog.Debug("Skipping stale embedding row",
				slog.String("request_id", requestID),
				slog.String("hash", m.RfpHash))
			continue
		}
		hits = append(hits, SearchHit{
			Hash:        rfp.Hash,
			Title:       rfp.Title,
			URL:         rfp.URL,
			Site:        rfp.Site,
			Summary:     rfp.AISummary,
			Similarity:  m.Similarity,
			ProcessedAt: rfp.ProcessedAt,
		})
	}
	return hits, nil
}

// getOrCreateRequestID extracts the request ID from context or creates one.
func (s *Service) getOrCreateRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		return requestID
	}
	return uuid.New().String()
}
