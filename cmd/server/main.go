package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"logistics-news/internal/config"
	"logistics-news/internal/dedup"
	"logistics-news/internal/infra/adapter"
	pgRepo "logistics-news/internal/infra/adapter/persistence/postgres"
	"logistics-news/internal/infra/db"
	"logistics-news/internal/infra/fetcher"
	"logistics-news/internal/infra/llm"
	"logistics-news/internal/infra/push"
	"logistics-news/internal/infra/search"
	"logistics-news/internal/infra/webhook"
	"logistics-news/internal/infra/worker"
	"logistics-news/internal/observability/logging"
	"logistics-news/internal/repository"
	"logistics-news/internal/usecase/analytics"
	"logistics-news/internal/usecase/collect"
	"logistics-news/internal/usecase/discover"
	"logistics-news/internal/usecase/dispatch"
	"logistics-news/internal/usecase/enrich"

	hhttp "logistics-news/internal/handler/http"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	ctx := context.Background()

	database := initDatabase(ctx, logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	app := setup(ctx, logger, database)
	run(logger, app)
}

// initDatabase opens the connection pool and runs migrations.
func initDatabase(ctx context.Context, logger *slog.Logger) *sql.DB {
	database, err := db.Open(ctx)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// application holds the wired components that need lifecycle management.
type application struct {
	handler   http.Handler
	scheduler *worker.Scheduler
	pipeline  *enrich.Pipeline
	sender    *webhook.Sender
	hub       *push.Hub
}

// setup wires the full component graph: repositories, the fetch stack,
// the enrichment pipeline, fan-out, discovery, and the HTTP router.
func setup(ctx context.Context, logger *slog.Logger, database *sql.DB) *application {
	articleRepo := pgRepo.NewArticleRepo(database)
	sourceRepo := pgRepo.NewSourceRepo(database)
	fetchLogRepo := pgRepo.NewFetchLogRepo(database)
	subscriptionRepo := pgRepo.NewSubscriptionRepo(database)
	candidateRepo := pgRepo.NewCandidateRepo(database)
	apiKeyRepo := pgRepo.NewAPIKeyRepo(database)
	webhookLogRepo := pgRepo.NewWebhookLogRepo(database)
	analyticsRepo := pgRepo.NewAnalyticsRepo(database)

	if path := os.Getenv("SOURCES_CONFIG"); path != "" {
		roster, err := config.LoadSources(path)
		if err != nil {
			logger.Error("failed to load sources config", slog.Any("error", err))
			os.Exit(1)
		}
		if err := roster.Seed(ctx, sourceRepo); err != nil {
			logger.Error("failed to seed sources", slog.Any("error", err))
			os.Exit(1)
		}
	}

	fetchCfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Error("invalid fetcher configuration", slog.Any("error", err))
		os.Exit(1)
	}
	extractor := fetcher.NewExtractor(fetchCfg)
	factory := adapter.NewFactory(fetchCfg, extractor)

	deduper := dedup.New(articleRepo, dedup.Config{
		SimHashThreshold: config.GetEnvInt("DEDUP_SIMHASH_THRESHOLD", 0),
		JaccardThreshold: config.GetEnvFloat("DEDUP_MINHASH_THRESHOLD", 0),
	})
	if err := deduper.Warmup(ctx); err != nil {
		// Cold indexes miss near-duplicates of articles stored before this
		// start; URL-level dedup still holds.
		logger.Warn("dedup warmup failed", slog.Any("error", err))
	}

	enricher, embedder := buildLLM(logger)

	hub := push.NewHub(config.GetEnvInt("PUSH_MAX_CONNECTIONS", push.DefaultMaxConnections))
	sender := webhook.NewSender(webhookLogRepo, config.GetEnvInt("WEBHOOK_WORKERS", webhook.DefaultWorkers))
	dispatcher := dispatch.New(subscriptionRepo, hub, sender)
	pipeline := enrich.New(articleRepo, enricher, embedder, dispatcher, config.GetEnvInt("ENRICH_WORKERS", enrich.DefaultWorkers))

	collector := collect.New(sourceRepo, articleRepo, fetchLogRepo, factory, extractor, deduper, pipeline.Enqueue)

	engine := buildDiscovery(logger, fetchCfg, extractor, factory, candidateRepo, sourceRepo)

	schedCfg := worker.LoadConfigFromEnv()
	if err := schedCfg.Validate(); err != nil {
		logger.Error("invalid scheduler configuration", slog.Any("error", err))
		os.Exit(1)
	}
	scheduler := worker.NewScheduler(schedCfg, sourceRepo, articleRepo, collector,
		pipeline.Enqueue, engine.Scan, engine.ValidateBatch)

	handler := hhttp.NewRouter(hhttp.Deps{
		Articles:      articleRepo,
		Sources:       sourceRepo,
		FetchLogs:     fetchLogRepo,
		Subscriptions: subscriptionRepo,
		Candidates:    candidateRepo,
		APIKeys:       apiKeyRepo,
		Embedder:      embedder,
		Enqueue:       pipeline.Enqueue,
		Hub:           hub,
		Scheduler:     scheduler,
		Discovery:     engine,
		Analytics:     analytics.New(analyticsRepo, articleRepo),
		RateLimitRPM:  config.GetEnvInt("RATE_LIMIT_RPM", 0),
	})

	return &application{
		handler:   handler,
		scheduler: scheduler,
		pipeline:  pipeline,
		sender:    sender,
		hub:       hub,
	}
}

// buildLLM selects the enrichment provider. The Anthropic provider has
// no embedding endpoint, so it is always paired with an OpenAI
// compatible embedder.
func buildLLM(logger *slog.Logger) (llm.Enricher, llm.Embedder) {
	openaiKey := os.Getenv("OPENAI_API_KEY")
	if openaiKey == "" {
		logger.Error("OPENAI_API_KEY must be set")
		os.Exit(1)
	}
	openaiClient := llm.NewOpenAIClient(openaiKey, llm.LoadOpenAIConfig())

	switch provider := os.Getenv("LLM_PROVIDER"); provider {
	case "", "openai":
		logger.Info("llm provider configured", slog.String("provider", "openai"))
		return openaiClient, openaiClient
	case "anthropic":
		anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
		if anthropicKey == "" {
			logger.Error("ANTHROPIC_API_KEY must be set for the anthropic provider")
			os.Exit(1)
		}
		logger.Info("llm provider configured", slog.String("provider", "anthropic"))
		return llm.NewAnthropicClient(anthropicKey, llm.LoadAnthropicConfig()), openaiClient
	default:
		logger.Error("unknown LLM_PROVIDER", slog.String("provider", provider))
		os.Exit(1)
		return nil, nil
	}
}

// buildDiscovery assembles the discovery engine with its search
// backends and optional file-based query set.
func buildDiscovery(
	logger *slog.Logger,
	fetchCfg fetcher.Config,
	extractor *fetcher.Extractor,
	factory *adapter.Factory,
	candidates repository.CandidateRepository,
	sources repository.SourceRepository,
) *discover.Engine {
	searchClient := &http.Client{Timeout: fetchCfg.Timeout}
	engines := []search.Engine{search.NewDuckDuckGo(searchClient, fetchCfg.UserAgent)}
	if cse := search.NewGoogleCSEFromEnv(searchClient); cse != nil {
		engines = append(engines, cse)
		logger.Info("google custom search enabled")
	}

	var discCfg discover.Config
	if path := os.Getenv("DISCOVERY_CONFIG"); path != "" {
		file, err := config.LoadDiscovery(path)
		if err != nil {
			logger.Error("failed to load discovery config", slog.Any("error", err))
			os.Exit(1)
		}
		discCfg = discover.Config{
			Queries:   file.Discovery.Queries,
			Seeds:     file.Discovery.Seeds,
			Blocklist: file.Discovery.Blocklist,
		}
	}

	validator := discover.NewValidator(extractor, factory)
	return discover.New(candidates, sources, engines, extractor, validator, discCfg)
}

// run starts the background workers and the HTTP server, then blocks
// until a termination signal arrives and drains everything in order.
func run(logger *slog.Logger, app *application) {
	runCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Worker pools outlive the signal context: they drain their queues
	// during shutdown and only then get cancelled.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	app.pipeline.Start(workerCtx)
	app.sender.Start(workerCtx)
	if err := app.scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", slog.Any("error", err))
		os.Exit(1)
	}

	addr := config.GetEnvString("LISTEN_ADDR", ":8080")
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	<-runCtx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}

	// Drain order: stop scheduling new work, finish in-flight
	// enrichment, flush webhook deliveries, then drop live connections.
	app.scheduler.Stop()
	app.pipeline.Stop()
	app.sender.Stop(15 * time.Second)
	workerCancel()
	app.hub.Close()

	logger.Info("server stopped")
}
