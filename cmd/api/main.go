package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"rfp-radar/internal/common/pagination"
	appconfig "rfp-radar/internal/config"
	pgRepo "rfp-radar/internal/infra/adapter/persistence/postgres"
	"rfp-radar/internal/infra/db"
	"rfp-radar/internal/infra/fetcher"
	"rfp-radar/internal/infra/llm"
	"rfp-radar/internal/infra/notifier"
	"rfp-radar/internal/infra/scraper"
	"rfp-radar/internal/observability/tracing"
	"rfp-radar/internal/resilience/circuitbreaker"
	"rfp-radar/pkg/config"
	"rfp-radar/pkg/ratelimit"
	"rfp-radar/pkg/security/csp"

	aiUC "rfp-radar/internal/usecase/ai"
	"rfp-radar/internal/usecase/discovery"
	"rfp-radar/internal/usecase/notify"
	rfpUC "rfp-radar/internal/usecase/rfp"
	schedUC "rfp-radar/internal/usecase/schedule"
	scrapeUC "rfp-radar/internal/usecase/scrape"
	setUC "rfp-radar/internal/usecase/settings"
	webUC "rfp-radar/internal/usecase/website"

	hhttp "rfp-radar/internal/handler/http"
	hauth "rfp-radar/internal/handler/http/auth"
	"rfp-radar/internal/handler/http/middleware"
	"rfp-radar/internal/handler/http/requestid"
	hrfp "rfp-radar/internal/handler/http/rfp"
	hschedule "rfp-radar/internal/handler/http/schedule"
	hscrape "rfp-radar/internal/handler/http/scrape"
	hsettings "rfp-radar/internal/handler/http/settings"
	hwebsite "rfp-radar/internal/handler/http/website"
	authservice "rfp-radar/internal/service/auth"

	_ "rfp-radar/docs" // swagger docs
)

// @title           RFP Radar API
// @version         1.0
// @description     自治体・官公庁サイトの入札公告（RFP）自動探索システムの管理 REST API
// @description     検出済み案件の閲覧、巡回対象サイト・スケジュール・通知先の管理、手動スキャンの起動を提供します。

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT トークンによる認証。ヘッダーに "Bearer {token}" 形式で指定してください。

func main() {
	logger := initLogger()
	validateAdminCredentials(logger)
	validateJWTSecret(logger)
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	version := getVersion()
	serverComponents := setupServer(logger, database, version)

	runServer(logger, serverComponents, version)
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

// validateAdminCredentials validates the admin credentials at startup.
// This prevents the server from starting with empty or weak admin credentials.
func validateAdminCredentials(logger *slog.Logger) {
	if err := hauth.ValidateAdminCredentials(); err != nil {
		logger.Error("admin credentials validation failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// validateJWTSecret validates the JWT_SECRET environment variable for security requirements.
func validateJWTSecret(logger *slog.Logger) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Error("JWT_SECRET must be set")
		os.Exit(1)
	}
	// セキュリティ: 最小32文字（256ビット）を強制
	if len(secret) < 32 {
		logger.Error("JWT_SECRET must be at least 32 characters (256 bits)")
		os.Exit(1)
	}
	// セキュリティ: よくある弱い秘密鍵を拒否
	weakSecrets := []string{"secret", "password", "test", "admin", "default"}
	for _, weak := range weakSecrets {
		if secret == weak || secret == weak+"123" {
			logger.Error("JWT_SECRET must not be a common weak value", slog.String("weak_value", weak))
			os.Exit(1)
		}
	}
}

// initDatabase opens the database connection and runs migrations.
// The API process owns the schema; the worker waits for it.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}

// ServerComponents holds components needed for server operation and cleanup.
type ServerComponents struct {
	Handler         http.Handler
	IPLimiter       *ratelimit.SlidingWindowLimiter // nil when rate limiting is disabled
	AuthLimiter     *middleware.RateLimiter
	SearchLimiter   *middleware.RateLimiter
	CleanupInterval time.Duration
	NotifyService   notify.Service
	AICleanup       func()
}

// setupServer configures and returns the HTTP handler with all routes and middleware.
func setupServer(logger *slog.Logger, database *sql.DB, version string) *ServerComponents {
	rfpSvc := &rfpUC.Service{Repo: pgRepo.NewRfpRepo(database)}
	webSvc := &webUC.Service{Repo: pgRepo.NewWebsiteRepo(database)}
	schedSvc := &schedUC.Service{Repo: pgRepo.NewScheduleRepo(database)}
	settingsSvc := &setUC.Service{Repo: pgRepo.NewEmailSettingsRepo(database)}

	// Load rate limiting configuration
	rateLimitConfig, err := config.LoadRateLimitConfig()
	if err != nil {
		logger.Error("failed to load rate limit configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Load trusted proxy configuration for IP extraction
	proxyConfig, err := middleware.LoadTrustedProxyConfig()
	if err != nil {
		logger.Error("failed to load trusted proxy configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Create appropriate IPExtractor based on configuration
	var ipExtractor middleware.IPExtractor
	if proxyConfig.Enabled {
		ipExtractor = middleware.NewTrustedProxyExtractor(*proxyConfig)
		logger.Info("rate limiting: trusted proxy mode enabled",
			slog.Int("trusted_proxies_count", len(proxyConfig.AllowedCIDRs)))
	} else {
		ipExtractor = &middleware.RemoteAddrExtractor{}
		logger.Info("rate limiting: using RemoteAddr (secure mode, proxy headers ignored)")
	}

	// Initialize the sliding-window IP limiter (if enabled). Admin traffic is
	// single-operator, so per-IP limiting is all the API needs.
	var ipRateLimiter *middleware.IPRateLimiter
	var ipLimiter *ratelimit.SlidingWindowLimiter

	if rateLimitConfig.Enabled {
		ipLimiter = ratelimit.NewSlidingWindowLimiter(rateLimitConfig, nil, ratelimit.NewPrometheusMetrics())
		ipLimiter.StartCleanup(rateLimitConfig.CleanupInterval, rateLimitConfig.CleanupMaxAge)
		ipRateLimiter = middleware.NewIPRateLimiter(true, ipExtractor, ipLimiter)

		logger.Info("rate limiting initialized",
			slog.Bool("enabled", true),
			slog.Int("ip_limit", rateLimitConfig.DefaultIPLimit),
			slog.Duration("ip_window", rateLimitConfig.DefaultIPWindow),
			slog.Int("max_keys", rateLimitConfig.MaxActiveKeys),
		)
	} else {
		logger.Warn("rate limiting is DISABLED - not recommended for production")
	}

	// Notification channels are shared between the scheduled worker and the
	// manual POST /scrape endpoint, so the API wires its own set.
	notifyService := setupNotifyService(logger, database)

	scrapeSvc, aiSvc, aiCleanup := setupScrapeService(logger, database, notifyService)

	// Load CSP configuration once; the health handler reports its state.
	cspConfig, err := config.LoadCSPConfig()
	if err != nil {
		logger.Error("failed to load CSP configuration", slog.Any("error", err))
		os.Exit(1)
	}

	services := routeServices{
		Rfp:      rfpSvc,
		Website:  webSvc,
		Schedule: schedSvc,
		Settings: settingsSvc,
		Scrape:   scrapeSvc,
		AI:       aiSvc,
	}

	rootMux, authLimiter, searchLimiter := setupRoutes(database, version, services, ipExtractor, ipLimiter, rateLimitConfig.Enabled, cspConfig, logger)
	handler := applyMiddleware(logger, rootMux, ipRateLimiter, cspConfig)

	return &ServerComponents{
		Handler:         handler,
		IPLimiter:       ipLimiter,
		AuthLimiter:     authLimiter,
		SearchLimiter:   searchLimiter,
		CleanupInterval: rateLimitConfig.CleanupInterval,
		NotifyService:   notifyService,
		AICleanup:       aiCleanup,
	}
}

// routeServices bundles the usecase services handed to route registration.
type routeServices struct {
	Rfp      *rfpUC.Service
	Website  *webUC.Service
	Schedule *schedUC.Service
	Settings *setUC.Service
	Scrape   *scrapeUC.Service
	AI       *aiUC.Service
}

// setupRoutes registers all HTTP routes (public and protected).
func setupRoutes(
	database *sql.DB,
	version string,
	services routeServices,
	ipExtractor middleware.IPExtractor,
	ipLimiter *ratelimit.SlidingWindowLimiter,
	rateLimiterEnabled bool,
	cspConfig *config.CSPConfig,
	logger *slog.Logger,
) (*http.ServeMux, *middleware.RateLimiter, *middleware.RateLimiter) {
	// レート制限: 認証エンドポイントは1分間に5リクエストまで
	authRateLimiter := middleware.NewRateLimiter(5, 1*time.Minute, ipExtractor)

	// レート制限: セマンティック検索・QAは1分間に100リクエストまで
	searchRateLimiter := middleware.NewRateLimiter(100, 1*time.Minute, ipExtractor)

	// Single-admin auth: one credential pair from the environment.
	// SECURITY_CONFIG_PATH can point at a YAML file overriding the password
	// policy, public endpoint list and token lifetime.
	minPasswordLength := 12
	weakPasswords := []string{"password", "123456", "admin", "test", "secret"}
	publicEndpoints := []string{"/auth/token", "/health", "/health/ai", "/ready", "/live", "/metrics", "/swagger/"}
	tokenTTL := time.Hour
	if path := os.Getenv("SECURITY_CONFIG_PATH"); path != "" {
		secCfg, err := appconfig.LoadSecurityConfig(path)
		if err != nil {
			logger.Error("failed to load security configuration",
				slog.String("path", path),
				slog.Any("error", err))
			os.Exit(1)
		}
		minPasswordLength = secCfg.GetMinPasswordLength()
		if wp := secCfg.GetWeakPasswords(); len(wp) > 0 {
			weakPasswords = wp
		}
		if pe := secCfg.GetPublicEndpoints(); len(pe) > 0 {
			publicEndpoints = pe
		}
		tokenTTL = time.Duration(secCfg.GetJWTExpiryHours()) * time.Hour
		logger.Info("security configuration loaded",
			slog.String("path", path),
			slog.Int("min_password_length", minPasswordLength),
			slog.Int("token_ttl_hours", secCfg.GetJWTExpiryHours()))
	}
	authProvider := hauth.NewBasicAuthProvider(minPasswordLength, weakPasswords)
	authService := authservice.NewAuthService(authProvider, publicEndpoints)

	publicMux := http.NewServeMux()
	publicMux.Handle("/auth/token", authRateLimiter.Middleware(hauth.TokenHandler(authService, tokenTTL)))

	// ヘルスチェックエンドポイント（認証不要）
	healthHandler := &hhttp.HealthHandler{
		DB:                 database,
		Version:            version,
		RateLimiterEnabled: rateLimiterEnabled,
		CSPEnabled:         cspConfig.Enabled,
		CSPReportOnly:      cspConfig.ReportOnly,
	}
	if ipLimiter != nil {
		healthHandler.IPRateLimiter = ipLimiter
	}
	publicMux.Handle("/health", healthHandler)
	publicMux.Handle("/health/ai", http.HandlerFunc(hhttp.NewAIHealthHandler(services.AI).Health))
	// Readiness pings go through a circuit breaker so a dead database
	// fails probes fast instead of stacking up ping timeouts.
	publicMux.Handle("/ready", &hhttp.ReadyHandler{DB: circuitbreaker.NewDBCircuitBreaker(database)})
	publicMux.Handle("/live", &hhttp.LiveHandler{})
	publicMux.Handle("/metrics", hhttp.MetricsHandler())

	// Swagger UI（認証不要）
	publicMux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Load pagination configuration
	paginationCfg := pagination.LoadFromEnv()

	// Each Register wraps its handlers in the auth middleware.
	privateMux := http.NewServeMux()
	hrfp.Register(privateMux, services.Rfp, services.AI, paginationCfg, logger, searchRateLimiter)
	hwebsite.Register(privateMux, services.Website)
	hschedule.Register(privateMux, services.Schedule)
	hsettings.Register(privateMux, services.Settings)
	hscrape.Register(privateMux, services.Scrape)

	rootMux := http.NewServeMux()
	rootMux.Handle("/auth/token", publicMux)
	rootMux.Handle("/health", publicMux)
	rootMux.Handle("/health/ai", publicMux)
	rootMux.Handle("/ready", publicMux)
	rootMux.Handle("/live", publicMux)
	rootMux.Handle("/metrics", publicMux)
	rootMux.Handle("/swagger/", publicMux)
	rootMux.Handle("/", privateMux)

	return rootMux, authRateLimiter, searchRateLimiter
}

// applyMiddleware wraps the handler with middleware chain.
// Middleware order: CORS → Request ID → IP Rate Limit → Recovery → Logging → Body Limit → CSP → Metrics
func applyMiddleware(logger *slog.Logger, handler http.Handler, ipRateLimiter *middleware.IPRateLimiter, cspConfig *config.CSPConfig) http.Handler {
	// Load CORS configuration from environment variables
	corsConfig, err := middleware.LoadCORSConfig()
	if err != nil {
		logger.Error("failed to load CORS configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Inject SlogAdapter for logging
	corsConfig.Logger = &middleware.SlogAdapter{Logger: logger}

	logger.Info("CORS enabled",
		slog.Int("allowed_origins_count", len(corsConfig.Validator.GetAllowedOrigins())),
		slog.Any("allowed_origins", corsConfig.Validator.GetAllowedOrigins()),
		slog.Any("allowed_methods", corsConfig.AllowedMethods),
		slog.Any("allowed_headers", corsConfig.AllowedHeaders),
		slog.Int("max_age", corsConfig.MaxAge))

	// Create CSP middleware
	var cspMiddleware func(http.Handler) http.Handler
	if cspConfig.Enabled {
		cspMW := middleware.NewCSPMiddleware(middleware.CSPMiddlewareConfig{
			Enabled:       true,
			DefaultPolicy: csp.StrictPolicy(),
			PathPolicies: map[string]*csp.CSPBuilder{
				"/swagger/": csp.SwaggerUIPolicy(),
			},
			ReportOnly: cspConfig.ReportOnly,
		})
		cspMiddleware = cspMW.Middleware()
		logger.Info("CSP enabled",
			slog.Bool("report_only", cspConfig.ReportOnly))
	} else {
		// No-op middleware if CSP is disabled
		cspMiddleware = func(next http.Handler) http.Handler {
			return next
		}
		logger.Warn("CSP is disabled")
	}

	// Build middleware chain, applied in reverse order (innermost to outermost):
	// CORS handles preflight early, request IDs tag everything after it, and
	// rate limiting rejects before the expensive layers run.
	middlewareChain := handler

	middlewareChain = hhttp.MetricsMiddleware(middlewareChain)
	middlewareChain = cspMiddleware(middlewareChain)
	middlewareChain = hhttp.LimitRequestBody(1 << 20)(middlewareChain) // 1MB limit
	middlewareChain = hhttp.Logging(logger)(middlewareChain)
	middlewareChain = tracing.Middleware(middlewareChain)
	middlewareChain = hhttp.Recover(logger)(middlewareChain)

	// Apply IP rate limiting if enabled
	if ipRateLimiter != nil {
		middlewareChain = ipRateLimiter.Middleware()(middlewareChain)
	}

	middlewareChain = requestid.Middleware(middlewareChain)
	middlewareChain = middleware.CORS(*corsConfig)(middlewareChain)

	return middlewareChain
}

// setupNotifyService assembles the delivery channels for run digests.
// Recipients live in the email_settings row, so one SMTP configuration
// serves both the main and debug lists.
func setupNotifyService(logger *slog.Logger, database *sql.DB) notify.Service {
	var channels []notify.Channel

	smtpConfig := loadSMTPConfig(logger)
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

	discordConfig := loadDiscordConfig(logger)
	if discordConfig.Enabled {
		channels = append(channels, notify.NewDiscordChannel(discordConfig))
	}

	slackConfig := loadSlackConfig(logger)
	if slackConfig.Enabled {
		channels = append(channels, notify.NewSlackChannel(slackConfig))
	}

	maxConcurrent := config.GetEnvInt("NOTIFY_MAX_CONCURRENT", 10)
	logger.Info("Notification service initialized",
		slog.Int("channels", len(channels)),
		slog.Int("max_concurrent", maxConcurrent))
	return notify.NewService(channels, maxConcurrent)
}

// setupScrapeService wires the discovery pipeline behind the run orchestrator,
// plus the semantic search service that shares the same model configuration.
// The cleanup function drains in-flight embedding work during shutdown.
func setupScrapeService(logger *slog.Logger, database *sql.DB, notifyService notify.Service) (*scrapeUC.Service, *aiUC.Service, func()) {
	websiteRepo := pgRepo.NewWebsiteRepo(database)
	rfpRepo := pgRepo.NewRfpRepo(database)
	exclusionRepo := pgRepo.NewExclusionRepo(database)
	embeddingRepo := pgRepo.NewRfpEmbeddingRepo(database)

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
	embedder := createEmbedder(logger, llmConfig)

	// The embedding hook mirrors new items into pgvector off the hot path.
	var hook discovery.StoredHook
	aiCleanup := func() {}
	if embedder != nil {
		h := aiUC.NewEmbeddingHook(embedder, embeddingRepo, llmConfig.EmbedModelLabel())
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

	aiSvc := aiUC.NewService(embedder, model, embeddingRepo, rfpRepo)

	return scrapeUC.NewService(pipeline, notifyService), aiSvc, aiCleanup
}

// createModel creates the LLM gateway for the provider selected by LLM_PROVIDER.
// Missing credentials are fatal: manual scans and QA both need the model.
func createModel(logger *slog.Logger, llmConfig llm.Config) *llm.Gateway {
	provider, err := llm.NewProvider(llmConfig)
	if err != nil {
		logger.Error("failed to create LLM provider", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Using LLM provider", slog.String("provider", provider.Name()))
	return llm.NewGateway(provider)
}

// createEmbedder creates the embedding provider. A nil embedder means the
// semantic-search endpoints report disabled; everything else runs unchanged.
func createEmbedder(logger *slog.Logger, llmConfig llm.Config) llm.EmbeddingProvider {
	embedder, err := llm.NewEmbeddingProvider(llmConfig)
	if err != nil {
		logger.Warn("Failed to create embedding provider, semantic search disabled", slog.Any("error", err))
		return nil
	}
	if embedder == nil {
		logger.Info("Embeddings disabled via configuration")
		return nil
	}
	logger.Info("Embedding provider initialized",
		slog.String("provider", llmConfig.EmbedProvider),
		slog.String("model", llmConfig.EmbedModelLabel()),
		slog.Int("dimensions", embedder.Dimensions()))
	return embedder
}

// createHTTPClient creates an HTTP client with timeouts and connection pooling.
// TLS 1.2+ is enforced. Used for feed fetching; listing and detail pages go
// through the fetcher.Client with its SSRF checks instead.
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
// An empty SMTP_HOST or SMTP_FROM disables digest mail.
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
// Any validation failure disables the channel rather than aborting startup.
func loadDiscordConfig(logger *slog.Logger) notifier.DiscordConfig {
	if os.Getenv("DISCORD_ENABLED") != "true" {
		return notifier.DiscordConfig{Enabled: false}
	}

	webhookURL := os.Getenv("DISCORD_WEBHOOK_URL")
	if webhookURL == "" {
		logger.Warn("Discord webhook URL is empty, disabling notifications")
		return notifier.DiscordConfig{Enabled: false}
	}

	u, err := url.Parse(webhookURL)
	if err != nil || u.Scheme != "https" || u.Host != "discord.com" || !strings.HasPrefix(u.Path, "/api/webhooks/") {
		logger.Warn("Invalid Discord webhook URL, disabling notifications")
		return notifier.DiscordConfig{Enabled: false}
	}

	return notifier.DiscordConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    30 * time.Second,
	}
}

// loadSlackConfig loads and validates the Slack webhook configuration.
func loadSlackConfig(logger *slog.Logger) notifier.SlackConfig {
	if os.Getenv("SLACK_ENABLED") != "true" {
		return notifier.SlackConfig{Enabled: false}
	}

	webhookURL := os.Getenv("SLACK_WEBHOOK_URL")
	if webhookURL == "" {
		logger.Warn("Slack webhook URL is empty, disabling notifications")
		return notifier.SlackConfig{Enabled: false}
	}

	u, err := url.Parse(webhookURL)
	if err != nil || u.Scheme != "https" || u.Host != "hooks.slack.com" || !strings.HasPrefix(u.Path, "/services/") {
		logger.Warn("Invalid Slack webhook URL, disabling notifications")
		return notifier.SlackConfig{Enabled: false}
	}

	return notifier.SlackConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    30 * time.Second,
	}
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(logger *slog.Logger, components *ServerComponents, version string) {
	// Context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The auth and search limiters are self-contained; sweep their expired
	// windows on the same cadence as the global limiter.
	interval := components.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				components.AuthLimiter.CleanupExpired()
				components.SearchLimiter.CleanupExpired()
			}
		}
	}()

	// Publish sliding-window SLI gauges (availability, error rate, latency
	// percentiles) from the request metrics.
	go hhttp.StartSLOFlush(ctx)

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           components.Handler,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", ":8080"),
			slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	// Stop background cleanup goroutines
	cancel()
	if components.IPLimiter != nil {
		components.IPLimiter.StopCleanup()
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}

	// Let in-flight digest deliveries and embedding writes finish.
	if err := components.NotifyService.Shutdown(shutdownCtx); err != nil {
		logger.Error("notification shutdown failed", slog.Any("error", err))
	}
	components.AICleanup()

	logger.Info("server stopped")
}
