// Package main provides a CLI command for RAG-based Q&A over discovered
// opportunities.
// Usage: rfp-ai-ask "question" [--context N] [--output json]
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

// AskOutput represents the JSON output format for Q&A results.
type AskOutput struct {
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	Sources  []SourceOutput `json:"sources"`
}

// SourceOutput represents an opportunity that grounded the answer.
type SourceOutput struct {
	Hash       string  `json:"hash"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Site       string  `json:"site"`
	Similarity float64 `json:"similarity"`
}

func main() {
	var (
		maxContext   int
		outputFormat string
	)

	flag.IntVar(&maxContext, "context", 5, "Maximum number of opportunities to use as context")
	flag.StringVar(&outputFormat, "output", "text", "Output format: text or json")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Error: Question is required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage: rfp-ai-ask \"question\" [--context N] [--output json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Examples:")
		fmt.Fprintln(os.Stderr, "  rfp-ai-ask \"直近の道路工事案件の締切はいつ？\"")
		fmt.Fprintln(os.Stderr, "  rfp-ai-ask \"Which open solicitations mention cloud migration?\" --context 10")
		fmt.Fprintln(os.Stderr, "  rfp-ai-ask \"入札保証金が不要な案件は？\" --output json")
		os.Exit(1)
	}
	question := args[0]

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

	answer, err := aiService.Ask(ctx, question, maxContext)
	if err != nil {
		if errors.Is(err, aiUC.ErrSemanticDisabled) {
			fmt.Fprintln(os.Stderr, "Error: Q&A is disabled (embedding backend and LLM provider are both required)")
		} else {
			fmt.Fprintf(os.Stderr, "Error: Ask failed: %v\n", err)
		}
		os.Exit(1)
	}

	if outputFormat == "json" {
		outputJSON(question, answer)
	} else {
		outputText(question, answer)
	}
}

// buildService wires the Q&A service from the environment. Q&A needs both
// the embedding backend for retrieval and the chat model for the answer.
func buildService(logger *slog.Logger, database *sql.DB) *aiUC.Service {
	llmConfig := llm.LoadConfig()

	embedder, err := llm.NewEmbeddingProvider(llmConfig)
	if err != nil {
		logger.Error("failed to create embedding provider", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: Failed to create embedding provider: %v\n", err)
		os.Exit(1)
	}

	provider, err := llm.NewProvider(llmConfig)
	if err != nil {
		logger.Error("failed to create LLM provider", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: Failed to create LLM provider: %v\n", err)
		os.Exit(1)
	}

	return aiUC.NewService(embedder, llm.NewGateway(provider),
		pgRepo.NewRfpEmbeddingRepo(database), pgRepo.NewRfpRepo(database))
}

// outputText prints Q&A results in human-readable format.
func outputText(question string, answer *aiUC.Answer) {
	fmt.Printf("Question: %s\n\n", question)
	fmt.Printf("Answer:\n%s\n\n", answer.Text)

	if len(answer.Sources) > 0 {
		fmt.Printf("Sources:\n")
		for i, source := range answer.Sources {
			fmt.Printf("%d. %s (Similarity: %.2f%%)\n", i+1, source.Title, source.Similarity*100)
			fmt.Printf("   URL: %s\n", source.URL)
		}
	}
}

// outputJSON prints Q&A results in JSON format.
func outputJSON(question string, answer *aiUC.Answer) {
	sources := make([]SourceOutput, len(answer.Sources))
	for i, source := range answer.Sources {
		sources[i] = SourceOutput{
			Hash:       source.Hash,
			Title:      source.Title,
			URL:        source.URL,
			Site:       source.Site,
			Similarity: source.Similarity,
		}
	}

	out := AskOutput{
		Question: question,
		Answer:   answer.Text,
		Sources:  sources,
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
