// Package main provides a CLI command for semantic opportunity search.
// Usage: rfp-ai-search "query" [--limit N] [--output json]
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	pgRepo "rfp-radar/internal/infra/adapter/persistence/postgres"
	"rfp-radar/internal/infra/db"
	"rfp-radar/internal/infra/llm"
	aiUC "rfp-radar/internal/usecase/ai"
)

// SearchOutput represents the JSON output format for search results.
type SearchOutput struct {
	Query       string      `json:"query"`
	ResultCount int         `json:"result_count"`
	Hits        []HitOutput `json:"hits"`
}

// HitOutput represents a single opportunity in the search results.
type HitOutput struct {
	Hash        string  `json:"hash"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Site        string  `json:"site"`
	Similarity  float64 `json:"similarity"`
	Summary     string  `json:"summary,omitempty"`
	ProcessedAt string  `json:"processed_at"`
}

func main() {
	var (
		limit        int
		outputFormat string
	)

	flag.IntVar(&limit, "limit", 10, "Maximum number of results to return")
	flag.StringVar(&outputFormat, "output", "text", "Output format: text or json")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Error: Search query is required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage: rfp-ai-search \"query\" [--limit N] [--output json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Examples:")
		fmt.Fprintln(os.Stderr, "  rfp-ai-search \"道路 舗装 工事\"")
		fmt.Fprintln(os.Stderr, "  rfp-ai-search \"システム開発 一般競争入札\" --limit 20")
		fmt.Fprintln(os.Stderr, "  rfp-ai-search \"clean energy grants\" --output json")
		os.Exit(1)
	}
	query := args[0]

	logger := initLogger()

	database := db.Open()
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	aiService := buildService(logger, database)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	hits, err := aiService.Search(ctx, query, limit)
	if err != nil {
		if errors.Is(err, aiUC.ErrSemanticDisabled) {
			fmt.Fprintln(os.Stderr, "Error: Semantic search is disabled (no embedding backend configured)")
		} else {
			fmt.Fprintf(os.Stderr, "Error: Search failed: %v\n", err)
		}
		os.Exit(1)
	}

	if outputFormat == "json" {
		outputJSON(query, hits)
	} else {
		outputText(query, hits)
	}
}

// buildService wires the semantic search service from the environment.
// Search needs only the embedding backend, not the chat model.
func buildService(logger *slog.Logger, database *sql.DB) *aiUC.Service {
	llmConfig := llm.LoadConfig()

	embedder, err := llm.NewEmbeddingProvider(llmConfig)
	if err != nil {
		logger.Error("failed to create embedding provider", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: Failed to create embedding provider: %v\n", err)
		os.Exit(1)
	}

	return aiUC.NewService(embedder, nil,
		pgRepo.NewRfpEmbeddingRepo(database), pgRepo.NewRfpRepo(database))
}

// outputText prints search results in human-readable format.
func outputText(query string, hits []aiUC.SearchHit) {
	fmt.Printf("Query: %s\n", query)
	fmt.Printf("Results: %d\n\n", len(hits))

	for i, hit := range hits {
		fmt.Printf("%d. %s (Similarity: %.2f%%)\n", i+1, hit.Title, hit.Similarity*100)
		fmt.Printf("   Site: %s\n", hit.Site)
		fmt.Printf("   URL: %s\n", hit.URL)
		if hit.Summary != "" {
			fmt.Printf("   Summary: %s\n", hit.Summary)
		}
		fmt.Println()
	}
}

// outputJSON prints search results in JSON format.
func outputJSON(query string, hits []aiUC.SearchHit) {
	out := SearchOutput{
		Query:       query,
		ResultCount: len(hits),
		Hits:        make([]HitOutput, len(hits)),
	}
	for i, hit := range hits {
		out.Hits[i] = HitOutput{
			Hash:        hit.Hash,
			Title:       hit.Title,
			URL:         hit.URL,
			Site:        hit.Site,
			Similarity:  hit.Similarity,
			Summary:     hit.Summary,
			ProcessedAt: hit.ProcessedAt.Format(time.RFC3339),
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to encode JSON: %v\n", err)
		os.Exit(1)
	}
}

// initLogger initializes and returns a structured logger.
func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}
