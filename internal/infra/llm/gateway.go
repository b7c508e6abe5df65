// Package llm sends the pipeline's prompts to a hosted language model and
// turns the loosely structured JSON that comes back into typed decisions.
// Providers (Bedrock, Anthropic, OpenAI) handle transport; the Gateway adds
// retry, circuit breaking, metrics, and response repair on top of whichever
// provider is configured.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"

	"rfp-radar/internal/resilience/circuitbreaker"
	"rfp-radar/internal/resilience/retry"
	"rfp-radar/internal/usecase/ai"
	"rfp-radar/internal/usecase/discovery"
	"rfp-radar/internal/utils/text"
	"rfp-radar/pkg/config"
)

// Prometheus metrics for the LLM client
var (
	// llmRequestsTotal tracks the total number of LLM requests.
	llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_client_requests_total",
			Help: "Total number of LLM client requests",
		},
		[]string{"method", "status"},
	)

	// llmRequestDuration tracks LLM request latency including retries.
	// Buckets span quick classifications through long listing extractions.
	llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_client_request_duration_seconds",
			Help:    "LLM client request duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"method"},
	)

	// llmCircuitBreakerState tracks circuit breaker state.
	// 0 = closed, 1 = open, 2 = half-open
	llmCircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "llm_client_circuit_breaker_state",
			Help: "LLM circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)
)

// Per-operation response budgets. Listing extraction returns one object per
// candidate and needs the most room; classifications return a verdict.
const (
	listingMaxTokens  = 8000
	navMaxTokens      = 1200
	finalMaxTokens    = 800
	scopeMaxTokens    = 400
	summaryMaxTokens  = 1000
	answerMaxTokens   = 1500
	gatewayCallBudget = 5 * time.Minute
)

// deterministicTemperature pins sampling for extraction and classification
// calls. The summary call omits temperature and uses the provider default.
var deterministicTemperature = 0.0

// Gateway implements the pipeline's model operations on top of a Provider.
// One circuit breaker guards all operations: they share the same upstream
// quota, so a failing backend should stop every call path at once.
type Gateway struct {
	provider      Provider
	breaker       *circuitbreaker.CircuitBreaker
	retryConfig   retry.Config
	maxFinalChars int
}

// NewGateway creates a Gateway around provider with the standard retry and
// circuit breaker policies.
func NewGateway(provider Provider) *Gateway {
	slog.Info("Initialized LLM gateway",
		slog.String("provider", provider.Name()))

	return &Gateway{
		provider:      provider,
		breaker:       circuitbreaker.New(circuitbreaker.LLMAPIConfig("llm-api")),
		retryConfig:   retry.LLMAPIConfig(),
		maxFinalChars: config.GetEnvInt("MAX_DETAIL_TEXT_CHARS", 400000),
	}
}

// PickItems extracts candidate opportunities from a listing page snapshot.
func (g *Gateway) PickItems(ctx context.Context, page *discovery.PageView, known []discovery.KnownItem, listingURL string) ([]discovery.ListingItem, error) {
	out, err := g.complete(ctx, "pick_items", CompletionRequest{
		System:      ListingSystemPrompt,
		Prompt:      BuildListingPrompt(page, known, listingURL),
		MaxTokens:   listingMaxTokens,
		Temperature: &deterministicTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("Gateway.PickItems: %w", err)
	}
	items, err := ExtractItems(out)
	if err != nil {
		return nil, fmt.Errorf("Gateway.PickItems: %w", err)
	}
	slog.Info("listing analysis completed",
		slog.String("listing_url", listingURL),
		slog.Int("candidates", len(items)))
	return items, nil
}

// Navigate asks the model for one hop decision on the current page.
func (g *Gateway) Navigate(ctx context.Context, page *discovery.PageView, knownTitles []string, hop, maxHops int) (*discovery.NavDecision, error) {
	out, err := g.complete(ctx, "navigate", CompletionRequest{
		System:      NavSystemPrompt,
		Prompt:      BuildNavPrompt(page, knownTitles, hop, maxHops),
		MaxTokens:   navMaxTokens,
		Temperature: &deterministicTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("Gateway.Navigate: %w", err)
	}
	var decision discovery.NavDecision
	if err := ExtractObject(out, &decision); err != nil {
		return nil, fmt.Errorf("Gateway.Navigate: %w", err)
	}
	decision.Status = discovery.NavStatus(strings.ToLower(strings.TrimSpace(string(decision.Status))))
	slog.Info("navigation decision",
		slog.Int("hop", hop),
		slog.String("status", string(decision.Status)),
		slog.String("reason", text.TruncateRunes(decision.Reason, 180)),
		slog.String("url", page.FinalURL))
	return &decision, nil
}

// ClassifyFinal judges whether final page or PDF content describes an
// opportunity that is still open. The returned DeadlineISO is normalized to
// its first ten characters when longer.
func (g *Gateway) ClassifyFinal(ctx context.Context, content, pageURL string) (*discovery.FinalCheck, error) {
	out, err := g.complete(ctx, "classify_final", CompletionRequest{
		System:      FinalSystemPrompt,
		Prompt:      BuildFinalPrompt(content, pageURL, g.maxFinalChars),
		MaxTokens:   finalMaxTokens,
		Temperature: &deterministicTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("Gateway.ClassifyFinal: %w", err)
	}
	var check discovery.FinalCheck
	if err := ExtractObject(out, &check); err != nil {
		return nil, fmt.Errorf("Gateway.ClassifyFinal: %w", err)
	}
	check.Status = discovery.FinalStatus(strings.ToLower(strings.TrimSpace(string(check.Status))))
	check.DeadlineISO = strings.TrimSpace(check.DeadlineISO)
	if len(check.DeadlineISO) > 10 {
		check.DeadlineISO = check.DeadlineISO[:10]
	}
	slog.Info("final page classified",
		slog.String("status", string(check.Status)),
		slog.String("deadline_iso", check.DeadlineISO),
		slog.String("reason", text.TruncateRunes(check.Reason, 180)),
		slog.String("url", pageURL))
	return &check, nil
}

// ClassifyScope judges whether the opportunity belongs to the monitored
// domain at all, independent of deadlines.
func (g *Gateway) ClassifyScope(ctx context.Context, title, url, content string) (*discovery.ScopeCheck, error) {
	out, err := g.complete(ctx, "classify_scope", CompletionRequest{
		System:      ScopeSystemPrompt,
		Prompt:      BuildScopePrompt(title, url, content),
		MaxTokens:   scopeMaxTokens,
		Temperature: &deterministicTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("Gateway.ClassifyScope: %w", err)
	}
	var check discovery.ScopeCheck
	if err := ExtractObject(out, &check); err != nil {
		return nil, fmt.Errorf("Gateway.ClassifyScope: %w", err)
	}
	slog.Info("scope classified",
		slog.Bool("in_scope", check.InScope),
		slog.String("reason", text.TruncateRunes(check.Reason, 180)),
		slog.String("url", url))
	return &check, nil
}

// Summarize produces the stored six-section summary for final content.
func (g *Gateway) Summarize(ctx context.Context, content string) (string, error) {
	out, err := g.complete(ctx, "summarize", CompletionRequest{
		Prompt:    BuildSummaryPrompt(content),
		MaxTokens: summaryMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("Gateway.Summarize: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Answer responds to a question using retrieved opportunity summaries as
// context. The prompt instructs the model to say it does not know rather
// than invent an answer, so zero passages are a valid input.
func (g *Gateway) Answer(ctx context.Context, question string, passages []ai.Passage) (string, error) {
	out, err := g.complete(ctx, "answer", CompletionRequest{
		System:    AnswerSystemPrompt,
		Prompt:    BuildAnswerPrompt(question, passages),
		MaxTokens: answerMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("Gateway.Answer: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// complete runs one request through retry and circuit breaker, recording
// metrics per logical method.
func (g *Gateway) complete(ctx context.Context, method string, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, gatewayCallBudget)
	defer cancel()

	requestID := uuid.New().String()
	slog.Debug("Starting LLM call",
		slog.String("request_id", requestID),
		slog.String("method", method),
		slog.String("provider", g.provider.Name()),
		slog.Int("prompt_chars", len(req.Prompt)))

	start := time.Now()
	var out string

	retryErr := retry.WithBackoff(ctx, g.retryConfig, func() error {
		result, err := g.breaker.Execute(func() (interface{}, error) {
			return g.provider.Complete(ctx, req)
		})
		llmCircuitBreakerState.WithLabelValues(g.breaker.Name()).Set(breakerStateValue(g.breaker.State()))

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("llm circuit breaker open, request rejected",
					slog.String("request_id", requestID),
					slog.String("method", method),
					slog.String("state", g.breaker.State().String()))
				llmRequestsTotal.WithLabelValues(method, "circuit_breaker_open").Inc()
				return fmt.Errorf("llm api unavailable: circuit breaker open")
			}
			return err
		}
		out = result.(string)
		return nil
	})

	duration := time.Since(start)
	llmRequestDuration.WithLabelValues(method).Observe(duration.Seconds())

	if retryErr != nil {
		llmRequestsTotal.WithLabelValues(method, "error").Inc()
		slog.Error("LLM call failed",
			slog.String("request_id", requestID),
			slog.String("method", method),
			slog.Duration("duration", duration),
			slog.String("error", retryErr.Error()))
		return "", fmt.Errorf("llm %s failed after retries: %w", method, retryErr)
	}

	llmRequestsTotal.WithLabelValues(method, "success").Inc()
	slog.Debug("LLM call completed",
		slog.String("request_id", requestID),
		slog.String("method", method),
		slog.Duration("duration", duration),
		slog.Int("output_chars", len(out)))
	return out, nil
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
