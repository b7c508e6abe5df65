package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"

	hhttp "rfp-radar/internal/handler/http/respond"
	pgRepo "rfp-radar/internal/infra/adapter/persistence/postgres"
	"rfp-radar/internal/infra/db"
	"rfp-radar/internal/infra/fetcher"
	"rfp-radar/internal/infra/llm"
	"rfp-radar/internal/infra/notifier"
	"rfp-radar/internal/infra/scraper"
	workerPkg "rfp-radar/internal/infra/worker"
	aiUC "rfp-radar/internal/usecase/ai"
	"rfp-radar/internal/usecase/discovery"
	"rfp-radar/internal/usecase/notify"
	scheduleUC "rfp-radar/internal/usecase/schedule"
	scrapeUC "rfp-radar/internal/usecase/scrape"
	"rfp-radar/pkg/config"
)

func waitForMigrations(logger *slog.Logger, db *sql.DB) {
	const probe = "SELECT 1 FROM processed_rfps LIMIT 1"
	for i := 0; i < 10; i++ {
		if _, err := db.Exec(probe); err == nil {
			return
		}
		logger.Info("waiting for migrations, retrying in 3s", slog.Int("attempt", i+1))
		time.Sleep(3 * time.Second)
	}
	logger.Error("migrations did not complete in time")
	os.Exit(1)
}

func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	// SIGINT/SIGTERM stop the tick loop; an in-flight run completes first
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("tick_schedule", workerConfig.TickSchedule),
		slog.Duration("run_timeout", workerConfig.RunTimeout),
		slog.Int("notify_max_concurrent", workerConfig.NotifyMaxConcurrent),
		slog.String("metrics_addr", workerConfig.MetricsAddr))

	// Initialize email channels. Recipients live in the email_settings row,
	// so one SMTP configuration serves both the main and debug lists.
	smtpConfig := loadSMTPConfig(logger)
	var channels []notify.Channel
	if smtpConfig.Host != "" && smtpConfig.From != "" {
		settingsRepo := pgRepo.NewEmailSettingsRepo(database)
		channels = append(channels,
			notify.NewEmailChannel(smtpConfig, settingsRepo, notify.AudienceMain),
			notify.NewEmailChannel(smtpConfig, settingsRepo, notify.AudienceDebug),
		)
		logger.Info("Email channels initialized", slog.String("host", smtpConfig.Host))
	} else {
		logger.Info("Email channels disabled")
	}

	// Initialize Discord notification channel
	discordConfig := loadDiscordConfig(logger)
	if discordConfig.Enabled {
		channels = append(channels, notify.NewDiscordChannel(discordConfig))
		logger.Info("Discord channel initialized", slog.String("status", "enabled"))
	} else {
		logger.Info("Discord channel disabled")
	}

	// Initialize Slack notification channel
	slackConfig := loadSlackConfig(logger)
	if slackConfig.Enabled {
		channels = append(channels, notify.NewSlackChannel(slackConfig))
		logger.Info("Slack channel initialized", slog.String("status", "enabled"))
	} else {
		logger.Info("Slack channel disabled")
	}

	notifyService := notify.NewService(channels, workerConfig.NotifyMaxConcurrent)
	logger.Info("Notification service initialized",
		slog.Int("channels", len(channels)),
		slog.Int("max_concurrent", workerConfig.NotifyMaxConcurrent))

	// Start the ops endpoint: liveness, readiness, metrics, channel health
	metricsServer := workerPkg.NewMetricsServer(workerConfig.MetricsAddr, logger, notifyService)
	go func() {
		if err := metricsServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()

	runner, aiCleanup := setupScrapeService(logger, database, notifyService)
	defer aiCleanup()

	scheduler := &scheduleUC.Service{Repo: pgRepo.NewScheduleRepo(database)}

	startCronWorker(ctx, logger, scheduler, runner, workerConfig, workerMetrics, metricsServer, notifyService)
}

// initLogger initializes and returns a structured logger based on environment configuration.
func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the database connection and waits for migrations to complete.
// Migrations are owned by the API process; the worker only probes for the schema.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	waitForMigrations(logger, database)
	return database
}

// setupScrapeService wires the discovery pipeline behind the run orchestrator.
// Returns the service and a cleanup function that drains in-flight embedding
// work during shutdown.
func setupScrapeService(logger *slog.Logger, database *sql.DB, notifyService notify.Service) (*scrapeUC.Service, func()) {
	websiteRepo := pgRepo.NewWebsiteRepo(database)
	rfpRepo := pgRepo.NewRfpRepo(database)
	exclusionRepo := pgRepo.NewExclusionRepo(database)

	// Outbound fetching with SSRF protection and per-host politeness
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
	model := createModel(logger, llmConfig)
	hook, aiCleanup := setupEmbeddingHook(logger, database, llmConfig)

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

// setupEmbeddingHook creates the pgvector embedding hook. A nil hook means
// the semantic-search side-channel is off; discovery runs unchanged without
// it. The cleanup function waits for in-flight embedding goroutines.
func setupEmbeddingHook(logger *slog.Logger, database *sql.DB, llmConfig llm.Config) (discovery.StoredHook, func()) {
	embedder, err := llm.NewEmbeddingProvider(llmConfig)
	if err != nil {
		logger.Warn("Failed to create embedding provider, semantic search disabled", slog.Any("error", err))
		return nil, func() {}
	}
	if embedder == nil {
		logger.Info("Embeddings disabled via configuration")
		return nil, func() {}
	}

	logger.Info("Embedding hook initialized",
		slog.String("provider", llmConfig.EmbedProvider),
		slog.String("model", llmConfig.EmbedModelLabel()),
		slog.Int("dimensions", embedder.Dimensions()))

	hook := aiUC.NewEmbeddingHook(embedder, pgRepo.NewRfpEmbeddingRepo(database), llmConfig.EmbedModelLabel())
	return hook, hook.Wait
}

// createModel creates the LLM gateway for the provider selected by LLM_PROVIDER.
// Missing credentials are fatal: every pipeline stage needs the model.
func createModel(logger *slog.Logger, llmConfig llm.Config) discovery.Model {
	provider, err := llm.NewProvider(llmConfig)
	if err != nil {
		logger.Error("failed to create LLM provider", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Using LLM provider", slog.String("provider", provider.Name()))
	return llm.NewGateway(provider)
}

// createHTTPClient creates an HTTP client with timeouts and connection pooling.
// TLS 1.2+ is enforced for security. Used for feed fetching; listing and
// detail pages go through the fetcher.Client with its SSRF checks instead.
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12, // Enforce TLS 1.2+
			},
		},
	}
}

// loadSMTPConfig loads SMTP configuration from environment variables.
//
// Environment variables:
//   - SMTP_HOST: SMTP server hostname (empty disables digest mail)
//   - SMTP_PORT: SMTP server port (default: 587)
//   - SMTP_USERNAME: AUTH PLAIN user (optional)
//   - SMTP_PASSWORD: AUTH PLAIN password (optional)
//   - SMTP_FROM: Envelope sender and From header address
//
// Returns:
//   - notifier.SMTPConfig: Configuration for the digest mailer
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

// loadDiscordConfig loads Discord configuration from environment variables.
//
// Environment variables:
//   - DISCORD_ENABLED: Boolean flag to enable Discord notifications (default: false)
//   - DISCORD_WEBHOOK_URL: Discord webhook URL (required if enabled)
//
// Returns:
//   - notifier.DiscordConfig: Configuration with validation applied
func loadDiscordConfig(logger *slog.Logger) notifier.DiscordConfig {
	enabled := os.Getenv("DISCORD_ENABLED") == "true"
	webhookURL := os.Getenv("DISCORD_WEBHOOK_URL")

	if !enabled {
		return notifier.DiscordConfig{Enabled: false}
	}

	// Validate webhook URL format
	if webhookURL == "" {
		logger.Warn("Discord webhook URL is empty, disabling notifications")
		return notifier.DiscordConfig{Enabled: false}
	}

	u, err := url.Parse(webhookURL)
	if err != nil {
		logger.Warn("Invalid Discord webhook URL format, disabling notifications", slog.Any("error", err))
		return notifier.DiscordConfig{Enabled: false}
	}

	if u.Scheme != "https" {
		logger.Warn("Discord webhook URL must use HTTPS, disabling notifications")
		return notifier.DiscordConfig{Enabled: false}
	}

	if u.Host != "discord.com" {
		logger.Warn("Invalid Discord webhook host, disabling notifications", slog.String("host", u.Host))
		return notifier.DiscordConfig{Enabled: false}
	}

	if !strings.HasPrefix(u.Path, "/api/webhooks/") {
		logger.Warn("Invalid Discord webhook path, disabling notifications", slog.String("path", u.Path))
		return notifier.DiscordConfig{Enabled: false}
	}

	return notifier.DiscordConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    30 * time.Second,
	}
}

// loadSlackConfig loads Slack configuration from environment variables.
//
// Environment variables:
//   - SLACK_ENABLED: Boolean flag to enable Slack notifications (default: false)
//   - SLACK_WEBHOOK_URL: Slack webhook URL (required if enabled)
//
// Returns:
//   - notifier.SlackConfig: Configuration with validation applied
func loadSlackConfig(logger *slog.Logger) notifier.SlackConfig {
	enabled := os.Getenv("SLACK_ENABLED") == "true"
	webhookURL := os.Getenv("SLACK_WEBHOOK_URL")

	if !enabled {
		return notifier.SlackConfig{Enabled: false}
	}

	// Validate webhook URL format
	if webhookURL == "" {
		logger.Warn("Slack webhook URL is empty, disabling notifications")
		return notifier.SlackConfig{Enabled: false}
	}

	u, err := url.Parse(webhookURL)
	if err != nil {
		logger.Warn("Invalid Slack webhook URL format, disabling notifications", slog.Any("error", err))
		return notifier.SlackConfig{Enabled: false}
	}

	if u.Scheme != "https" {
		logger.Warn("Slack webhook URL must use HTTPS, disabling notifications")
		return notifier.SlackConfig{Enabled: false}
	}

	if u.Host != "hooks.slack.com" {
		logger.Warn("Invalid Slack webhook host, disabling notifications", slog.String("host", u.Host))
		return notifier.SlackConfig{Enabled: false}
	}

	if !strings.HasPrefix(u.Path, "/services/") {
		logger.Warn("Invalid Slack webhook path, disabling notifications", slog.String("path", u.Path))
		return notifier.SlackConfig{Enabled: false}
	}

	return notifier.SlackConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    30 * time.Second,
	}
}

// startCronWorker starts the tick scheduler and blocks until shutdown.
// Each tick tries to claim a due run from the shared schedule row, so any
// number of worker replicas can run; exactly one wins each due instant.
func startCronWorker(ctx context.Context, logger *slog.Logger, scheduler *scheduleUC.Service, runner *scrapeUC.Service, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics, metricsServer *workerPkg.MetricsServer, notifyService notify.Service) {
	loc := scheduleUC.Location()
	c := cron.New(cron.WithLocation(loc))

	_, err := c.AddFunc(cfg.TickSchedule, func() {
		runTick(logger, scheduler, runner, cfg, metrics)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	// Mark as ready after cron is set up
	metricsServer.SetReady(true)
	logger.Info("worker marked as ready")

	logger.Info("worker started",
		slog.String("tick_schedule", cfg.TickSchedule),
		slog.String("timezone", loc.String()),
		slog.Duration("run_timeout", cfg.RunTimeout))

	<-ctx.Done()

	// 新しいティックを止め、実行中のランは完走を待つ
	logger.Info("shutdown signal received")
	metricsServer.SetReady(false)
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(cfg.RunTimeout + time.Minute):
		logger.Warn("in-flight run did not finish before shutdown deadline")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := notifyService.Shutdown(shutdownCtx); err != nil {
		logger.Error("notification service shutdown failed", slog.Any("error", err))
	}
	logger.Info("worker stopped")
}

// runTick claims a due run and executes it. The claim is a single atomic
// row update, so concurrent workers observing the same due next_run_at
// produce exactly one run; the losers record an idle tick.
func runTick(logger *slog.Logger, scheduler *scheduleUC.Service, runner *scrapeUC.Service, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics) {
	claimCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	claimed, _, err := scheduler.Claim(claimCtx)
	cancel()
	if err != nil {
		// 機密情報をマスクしてログ出力
		logger.Error("schedule claim failed", slog.Any("error", hhttp.SanitizeError(err)))
		metrics.RecordTick("error")
		return
	}
	if !claimed {
		metrics.RecordTick("idle")
		return
	}
	metrics.RecordTick("claimed")

	runScrapeJob(logger, runner, cfg, metrics)
}

// runScrapeJob executes a single discovery run with timeout and error handling.
func runScrapeJob(logger *slog.Logger, runner *scrapeUC.Service, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics) {
	startTime := time.Now()
	metrics.RecordRun("started")
	logger.Info("scheduled run started")

	// ラン全体のタイムアウト（設定から取得）。シグナルでは中断しない
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
	defer cancel()

	stats, err := runner.Run(ctx, scrapeUC.Options{SendMain: true, SendDebug: true})
	if err != nil {
		// 機密情報をマスクしてログ出力
		logger.Error("scheduled run failed", slog.Any("error", hhttp.SanitizeError(err)))
		metrics.RecordRun("failure")
		metrics.RecordRunDuration(time.Since(startTime).Seconds())
		return
	}

	// Record metrics
	metrics.RecordRun("success")
	metrics.RecordRunDuration(time.Since(startTime).Seconds())
	metrics.RecordSitesProcessed(stats.Sites)
	metrics.RecordNewRfps(stats.NewCount)
	metrics.RecordLastSuccess()

	logger.Info("scheduled run completed",
		slog.Int("sites", stats.Sites),
		slog.Int("sites_failed", stats.SitesFailed),
		slog.Int("items_proposed", stats.ItemsProposed),
		slog.Int("new", stats.NewCount),
		slog.Int("excluded", stats.Excluded),
		slog.Int("failed", stats.Failed),
		slog.Duration("duration", stats.Duration),
	)
}
