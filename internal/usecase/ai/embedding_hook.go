package ai

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"rfp-radar/internal/domain/entity"
	"rfp-radar/internal/repository"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// embeddingTimeout is the maximum time one embed-and-store pass may take.
	// This prevents the embedding goroutine from running indefinitely.
	embeddingTimeout = 30 * time.Second

	// requestIDKey is the context key for request ID.
	requestIDKey contextKey = "request_id"
)

// Prometheus metrics for the embedding hook
var (
	// embeddingPendingTotal tracks pending embedding operations.
	embeddingPendingTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ai_embedding_pending_total",
			Help: "Number of pending embedding operations",
		},
	)

	// embeddingProcessedTotal tracks processed embeddings.
	embeddingProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_embedding_processed_total",
			Help: "Total embeddings processed",
		},
		[]string{"status"},
	)
)

// EmbeddingHook vectorizes stored opportunities asynchronously. The pipeline
// calls it after each successful insert; the hook spawns a goroutine so the
// run is never blocked, and a lost embedding only degrades search, the RFP
// row stays canonical.
type EmbeddingHook struct {
	embedder   Embedder
	embeddings repository.RfpEmbeddingRepository
	model      string
	wg         sync.WaitGroup
}

// NewEmbeddingHook creates an embedding hook.
//
// Parameters:
//   - embedder: Embedding backend; nil disables the hook entirely
//   - embeddings: Vector side-channel repository
//   - model: Identifier stored next to each vector (Config.EmbedModelLabel)
//
// Returns:
//   - *EmbeddingHook: Configured hook ready to register on the pipeline
func NewEmbeddingHook(embedder Embedder, embeddings repository.RfpEmbeddingRepository, model string) *EmbeddingHook {
	return &EmbeddingHook{
		embedder:   embedder,
		embeddings: embeddings,
		model:      model,
	}
}

// RfpStored vectorizes one stored opportunity in the background.
// This method is non-blocking and returns immediately.
//
// Behavior:
//   - Spawns a goroutine for embedding generation and storage
//   - Uses a detached context with a 30s timeout
//   - Gracefully handles failures (logs warnings, no error propagation)
//   - Does nothing when no embedding backend is configured
//
// Parameters:
//   - ctx: Context from caller (used for request ID only, not propagated)
//   - rfp: Stored row to embed (must not be nil)
func (h *EmbeddingHook) RfpStored(ctx context.Context, rfp *entity.ProcessedRfp) {
	// Check backend before spawning goroutine
	if h.embedder == nil {
		return
	}

	// Validate input before spawning goroutine
	if rfp == nil {
		slog.Warn("Cannot embed nil RFP")
		return
	}

	// Extract request ID from parent context for tracing
	requestID, ok := ctx.Value(requestIDKey).(string)
	if !ok || requestID == "" {
		requestID = "unknown"
	}

	h.wg.Add(1)
	go h.embed(requestID, rfp)
}

// Wait blocks until every in-flight embedding has finished. One-shot runs
// call it before exiting so vectors are not lost to process teardown.
func (h *EmbeddingHook) Wait() {
	h.wg.Wait()
}

// embed performs the actual embed-and-store pass in a goroutine.
// This method runs asynchronously and handles all errors gracefully.
func (h *EmbeddingHook) embed(requestID string, rfp *entity.ProcessedRfp) {
	defer h.wg.Done()

	// Track pending operation - must be decremented on all exit paths including panic
	embeddingPendingTotal.Inc()
	completed := false
	defer func() {
		// Ensure gauge is decremented even on panic
		if !completed {
			embeddingPendingTotal.Dec()
			embeddingProcessedTotal.WithLabelValues("panic").Inc()
		}
		if r := recover(); r != nil {
			slog.Error("Panic in embedding hook",
				slog.String("request_id", requestID),
				slog.String("hash", rfp.Hash),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	// Detached context with timeout. The caller's context belongs to a
	// pipeline run or HTTP request that finishes before the embedding does.
	ctx, cancel := context.WithTimeout(context.Background(), embeddingTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, requestIDKey, requestID)

	slog.Info("Generating RFP embedding",
		slog.String("request_id", requestID),
		slog.String("hash", rfp.Hash),
		slog.String("title", rfp.Title))

	// タイトルと要約を結合してベクトル化する
	content := rfp.Title + "\n" + rfp.AISummary

	startTime := time.Now()
	vector, err := h.embedder.Embed(ctx, content)
	if err != nil {
		completed = true
		recordEmbeddingComplete(false)

		// Embedding failed; the RFP row is already stored, so log and move on
		slog.Warn("RFP embedding failed (non-blocking)",
			slog.String("request_id", requestID),
			slog.String("hash", rfp.Hash),
			slog.Duration("duration", time.Since(startTime)),
			slog.Any("error", err))
		return
	}

	row := &entity.RfpEmbedding{
		RfpHash:   rfp.Hash,
		Embedding: vector,
		Model:     h.model,
		Dimension: len(vector),
	}
	if err := h.embeddings.Upsert(ctx, row); err != nil {
		completed = true
		recordEmbeddingComplete(false)

		slog.Warn("RFP embedding store failed (non-blocking)",
			slog.String("request_id", requestID),
			slog.String("hash", rfp.Hash),
			slog.Duration("duration", time.Since(startTime)),
			slog.Any("error", err))
		return
	}

	completed = true
	recordEmbeddingComplete(true)

	slog.Info("RFP embedding stored",
		slog.String("request_id", requestID),
		slog.String("hash", rfp.Hash),
		slog.Int("dimension", len(vector)),
		slog.Duration("duration", time.Since(startTime)))
}

// recordEmbeddingComplete decrements the pending count and records the result.
func recordEmbeddingComplete(success bool) {
	embeddingPendingTotal.Dec()
	status := "success"
	if !success {
		status = "failure"
	}
	embeddingProcessedTotal.WithLabelValues(status).Inc()
}
