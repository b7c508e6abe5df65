// Package main provides the operator CLI for the discovery pipeline.
// With no maintenance flag it executes one full run against every enabled
// site; --email and --debug-email control digest delivery for that run.
package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	pgRepo "rfp-radar/internal/infra/adapter/persistence/postgres"
	"rfp-radar/internal/infra/db"
	"rfp-radar/internal/infra/fetcher"
	"rfp-radar/internal/infra/llm"
	"rfp-radar/internal/infra/notifier"
	"rfp-radar/internal/infra/scraper"
	aiUC "rfp-radar/internal/usecase/ai"
	"rfp-radar/internal/usecase/discovery"
	"rfp-radar/internal/usecase/notify"
	scrapeUC "rfp-radar/internal/usecase/scrape"
	"rfp-radar/pkg/config"
)

func main() {
	var (
		sendMain        bool
		sendDebug       bool
		listRfps        bool
		clearRfps       bool
		listExclusions  bool
		clearExclusions bool
		clearSchedule   bool
		siteID          int64
	)

	flag.BoolVar(&sendMain, "email", false, "Send the run digest to the main recipient list")
	flag.BoolVar(&sendDebug, "debug-email", false, "Send the run digest, run log included, to the debug recipient list")
	flag.BoolVar(&listRfps, "list", false, "List stored opportunities and exit")
	flag.BoolVar(&clearRfps, "clear", false, "Delete all stored opportunities and exit")
	flag.BoolVar(&listExclusions, "list-exclusions", false, "List recorded exclusions and exit")
	flag.BoolVar(&clearExclusions, "clear-exclusions", false, "Delete all recorded exclusions and exit")
	flag.BoolVar(&clearSchedule, "clear-schedule", false, "Delete the scheduler configuration and exit")
	flag.Int64Var(&siteID, "site", 0, "Limit the run to one website settings row (0 = all enabled sites)")
	flag.Parse()

	logger := initLogger()

	database := db.Open()
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx := context.Background()

	// Maintenance flags short-circuit; no pipeline wiring needed.
	switch {
	case listRfps:
		exit(runListRfps(ctx, database))
	case clearRfps:
		exit(runClearRfps(ctx, database))
	case listExclusions:
		exit(runListExclusions(ctx, database))
	case clearExclusions:
		exit(runClearExclusions(ctx, database))
	case clearSchedule:
		exit(runClearSchedule(ctx, database))
	}

	notifyService := setupNotifyService(logger, database)
	runner, aiCleanup := setupScrapeService(logger, database, notifyService)

	stats, err := runner.Run(ctx, scrapeUC.Options{
		SiteID:    siteID,
		SendMain:  sendMain,
		SendDebug: sendDebug,
	})

	// Digest deliveries and embedding writes are asynchronous; drain them
	// before the process exits.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if shutdownErr := notifyService.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("notification shutdown failed", slog.Any("error", shutdownErr))
	}
	aiCleanup()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Run failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Run finished in %s\n", stats.Duration.Round(time.Second))
	fmt.Printf("  Sites:     %d (%d failed)\n", stats.Sites, stats.SitesFailed)
	fmt.Printf("  Proposed:  %d\n", stats.ItemsProposed)
	fmt.Printf("  New:       %d\n", stats.NewCount)
	fmt.Printf("  Excluded:  %d\n", stats.Excluded)
	fmt.Printf("  Failed:    %d\n", stats.Failed)
	for _, r := range stats.NewRfps {
		fmt.Printf("  + %s (%s)\n", r.Title, r.URL)
	}
}

func exit(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}

func runListRfps(ctx context.Context, database *sql.DB) error {
	rfps, err := pgRepo.NewRfpRepo(database).List(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Stored opportunities: %d\n", len(rfps))
	for _, r := range rfps {
		pdf := ""
		if len(r.PDFContent) > 0 {
			pdf = " [pdf]"
		}
		fmt.Printf("  %s  %s  %s%s\n    %s\n",
			r.ProcessedAt.Format("2006-01-02"), r.Site, r.Title, pdf, r.URL)
	}
	return nil
}

func runClearRfps(ctx context.Context, database *sql.DB) error {
	deleted, err := pgRepo.NewRfpRepo(database).DeleteAll(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d opportunities\n", deleted)
	return nil
}

func runListExclusions(ctx context.Context, database *sql.DB) error {
	exclusions, err := pgRepo.NewExclusionRepo(database).List(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Recorded exclusions: %d\n", len(exclusions))
	for _, e := range exclusions {
		fmt.Printf("  %s  %-22s %s (%s)\n",
			e.DecidedAt.Format("2006-01-02"), e.Reason, e.Title, e.Site)
	}
	return nil
}

func runClearExclusions(ctx context.Context, database *sql.DB) error {
	deleted, err := pgRepo.NewExclusionRepo(database).DeleteAll(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d exclusions\n", deleted)
	return nil
}

func runClearSchedule(ctx context.Context, database *sql.DB) error {
	if err := pgRepo.NewScheduleRepo(database).Delete(ctx); err != nil {
		return err
	}
	fmt.Println("Schedule cleared")
	return nil
}

// initLogger initializes and returns a structured logger. Log output goes to
// stderr so the command's own reporting stays clean on stdout.
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

// setupNotifyService assembles the delivery channels for run digests.
func setupNotifyService(logger *slog.Logger, database *sql.DB) notify.Service {
	var channels []notify.Channel

	smtpConfig := loadSMTPConfig(logger)
	if smtpConfig.Host != "" && smtpConfig.From != "" {
		settingsRepo := pgRepo.NewEmailSettingsRepo(database)
		channels = append(channels,
			notify.NewEmailChannel(smtpConfig, settingsRepo, notify.AudienceMain),
			notify.NewEmailChannel(smtpConfig, settingsRepo, notify.AudienceDebug),
		)
	}

	discordConfig := loadDiscordConfig(logger)
	if discordConfig.Enabled {
		channels = append(channels, notify.NewDiscordChannel(discordConfig))
	}

	slackConfig := loadSlackConfig(logger)
	if slackConfig.Enabled {
		channels = append(channels, notify.NewSlackChannel(slackConfig))
	}

	return notify.NewService(channels, config.GetEnvInt("NOTIFY_MAX_CONCURRENT", 10))
}

// setupScrapeService wires the discovery pipeline behind the run orchestrator.
func setupScrapeService(logger *slog.Logger, database *sql.DB, notifyService notify.Service) (*scrapeUC.Service, func()) {
	websiteRepo := pgRepo.NewWebsiteRepo(database)
	rfpRepo := pgRepo.NewRfpRepo(database)
	exclusionRepo := pgRepo.NewExclusionRepo(database)

	fetchConfig, err := fetcher.LoadFetchConfigFromEnv()
	if err != nil {
		logger.Error("failed to load fetch configuration", slog.Any("error", err))
		os.Exit(1)
	}
	client := fetcher.NewClient(fetchConfig)

	scraperConfig, err := scraper.LoadConfigFromEnv()
	if err != nil {
		logger.Error("failed to load scraper configuration", slog.Any("error", err))
		os.Exit(1)
	}
	loader := scraper.NewPageLoader(client, scraperConfig)

	extractorConfig, err := scraper.LoadExtractorConfigFromEnv()
	if err != nil {
		logger.Error("failed to load extractor configuration", slog.Any("error", err))
		os.Exit(1)
	}
	extractor := scraper.NewExtractor(client, extractorConfig)

	feed := scraper.NewFeedSource(createHTTPClient())

	llmConfig := llm.LoadConfig()
	provider, err := llm.NewProvider(llmConfig)
	if err != nil {
		logger.Error("failed to create LLM provider", slog.Any("error", err))
		os.Exit(1)
	}
	model := llm.NewGateway(provider)

	var hook discovery.StoredHook
	aiCleanup := func() {}
	if embedder, embErr := llm.NewEmbeddingProvider(llmConfig); embErr == nil && embedder != nil {
		h := aiUC.NewEmbeddingHook(embedder, pgRepo.NewRfpEmbeddingRepo(database), llmConfig.EmbedModelLabel())
		hook = h
		aiCleanup = h.Wait
	}

	analyzer := discovery.NewAnalyzer(loader, feed, model, rfpRepo, exclusionRepo)
	navigator := discovery.NewNavigator(loader, extractor, model,
		config.GetEnvInt("MAX_RFP_HOPS", discovery.DefaultMaxHops))
	validator := discovery.NewValidator(model, rfpRepo, exclusionRepo,
		config.GetEnvBool("FINAL_DATE_ENFORCE", true),
		config.GetEnvInt("MAX_DETAIL_TEXT_CHARS", discovery.DefaultMaxDetailChars))

	pipeline := discovery.NewPipeline(websiteRepo, analyzer, navigator, validator, hook,
		config.GetEnvInt("PIPELINE_CONCURRENCY", 1))

	return scrapeUC.NewService(pipeline, notifyService), aiCleanup
}

// createHTTPClient creates the pooled TLS 1.2+ client used for feed fetching.
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// loadSMTPConfig loads SMTP configuration from environment variables.
func loadSMTPConfig(logger *slog.Logger) notifier.SMTPConfig {
	cfg := notifier.SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     config.GetEnvInt("SMTP_PORT", 587),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
		Timeout:  30 * time.Second,
	}
	if cfg.Host != "" && cfg.From == "" {
		logger.Warn("SMTP_FROM is empty, disabling digest mail")
	}
	return cfg
}

// loadDiscordConfig loads and validates the Discord webhook configuration.
func loadDiscordConfig(logger *slog.Logger) notifier.DiscordConfig {
	if os.Getenv("DISCORD_ENABLED") != "true" {
		return notifier.DiscordConfig{Enabled: false}
	}
	webhookURL := os.Getenv("DISCORD_WEBHOOK_URL")
	u, err := url.Parse(webhookURL)
	if webhookURL == "" || err != nil || u.Scheme != "https" || u.Host != "discord.com" || !strings.HasPrefix(u.Path, "/api/webhooks/") {
		logger.Warn("Invalid Discord webhook URL, disabling notifications")
		return notifier.DiscordConfig{Enabled: false}
	}
	return notifier.DiscordConfig{Enabled: true, WebhookURL: webhookURL, Timeout: 30 * time.Second}
}

// loadSlackConfig loads and validates the Slack webhook configuration.
func loadSlackConfig(logger *slog.Logger) notifier.SlackConfig {
	if os.Getenv("SLACK_ENABLED") != "true" {
		return notifier.SlackConfig{Enabled: false}
	}
	webhookURL := os.Getenv("SLACK_WEBHOOK_URL")
	u, err := url.Parse(webhookURL)
	if webhookURL == "" || err != nil || u.Scheme != "https" || u.Host != "hooks.slack.com" || !strings.HasPrefix(u.Path, "/services/") {
		logger.Warn("Invalid Slack webhook URL, disabling notifications")
		return notifier.SlackConfig{Enabled: false}
	}
	return notifier.SlackConfig{Enabled: true, WebhookURL: webhookURL, Timeout: 30 * time.Second}
}
