package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DukeRupert/datadeck/internal"
	"github.com/DukeRupert/datadeck/internal/csrf"
	"github.com/DukeRupert/datadeck/internal/handler"
	"github.com/DukeRupert/datadeck/internal/jobs"
	"github.com/DukeRupert/datadeck/internal/metrics"
	"github.com/DukeRupert/datadeck/internal/middleware"
	"github.com/DukeRupert/datadeck/internal/repository"
	"github.com/DukeRupert/datadeck/internal/service"
	"github.com/DukeRupert/datadeck/internal/storage"
	"github.com/DukeRupert/datadeck/internal/worker"
	"github.com/DukeRupert/datadeck/internal/workflow"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logOut, logCloser, err := internal.LogWriter(cfg)
	if err != nil {
		return fmt.Errorf("log file initialization failed: %w", err)
	}
	defer logCloser.Close()
	logger := internal.NewLogger(logOut, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	repo := repository.New(db)

	// Initialize storage
	store, err := storage.New(cfg.StorageProvider,
		storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		},
		storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
			Endpoint:        cfg.R2Endpoint,
		},
		logger,
	)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	logger.Info("Storage ready", "provider", cfg.StorageProvider)

	// Initialize services
	datasetService := service.NewDatasetService(repo, logger)
	documentService := service.NewDocumentService(db, repo, store, service.DocumentServiceConfig{
		MaxUploadBytes: cfg.UploadMaxBytes,
		CountCacheSize: cfg.CountCacheSize,
		CountCacheTTL:  cfg.CountCacheTTL,
	}, logger)
	pipelineService := service.NewPipelineService(db, repo, logger)

	// Pipeline editor state, autosaved after a quiet period
	drafts := workflow.NewStore(pipelineService, cfg.DraftAutosaveDelay, logger)

	// ==========================================================================
	// Background worker
	// ==========================================================================

	var (
		bgWorker  *worker.Worker
		scheduler *worker.Scheduler
	)
	if cfg.WorkerEnabled {
		workerCfg := worker.DefaultConfig()
		workerCfg.Concurrency = cfg.WorkerConcurrency
		workerCfg.PollInterval = cfg.WorkerPollInterval
		workerCfg.JobTimeout = cfg.WorkerJobTimeout

		bgWorker, err = worker.New(db, repo, workerCfg, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		bgWorker.Register(jobs.NewIndexDocumentHandler(repo, store, logger))
		bgWorker.Start(ctx)

		scheduleCfg := worker.DefaultScheduleConfig()
		scheduleCfg.RecoverSpec = cfg.JobRecoverSchedule
		scheduleCfg.PurgeSpec = cfg.JobPurgeSchedule
		scheduleCfg.Retention = cfg.JobRetention
		scheduleCfg.StaleJobThreshold = workerCfg.StaleJobThreshold

		scheduler, err = worker.NewScheduler(repo, scheduleCfg, logger)
		if err != nil {
			return fmt.Errorf("job scheduler initialization failed: %w", err)
		}
		scheduler.Start()
	}

	// ==========================================================================
	// Middleware
	// ==========================================================================

	isSecure := cfg.Env != "development"
	csrfMw := csrf.NewMiddleware(isSecure, logger)

	uploadLimiter := middleware.NewRateLimiter(cfg.UploadRateLimit, cfg.UploadRateWindow)
	defer uploadLimiter.Stop()
	uploadLimitMw := middleware.NewRateLimitMiddleware(uploadLimiter, middleware.ClientIPAndPathKey, logger)

	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure, storage.Origin(cfg.R2PublicURL))
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)

	// Initialize handlers
	paging := handler.PagingConfig{
		EdgePages:    cfg.PaginationEdgePages,
		SiblingPages: cfg.PaginationSiblingPages,
		JumpDebounce: cfg.PageJumpDebounce,
	}
	datasetHandler := handler.NewDatasetHandler(datasetService, paging, logger)
	documentHandler := handler.NewDocumentHandler(datasetService, documentService, paging, cfg.UploadMaxBytes, logger)
	apiHandler := handler.NewAPIHandler(documentService, paging, logger)
	pipelineHandler := handler.NewPipelineHandler(pipelineService, drafts, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Static files
	staticFS := http.FileServer(http.Dir("web/static"))
	mux.Handle("GET /static/", http.StripPrefix("/static/", staticFS))

	// Locally stored documents
	if local, ok := store.(*storage.LocalStorage); ok {
		mux.Handle("GET /files/", http.StripPrefix("/files/", local.Handler()))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Metrics (basic auth when credentials are configured)
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		// Only handle exact root path
		if r.URL.Path != "/" {
			handler.NotFoundResponse(w, r, logger)
			return
		}
		http.Redirect(w, r, "/datasets", http.StatusFound)
	})

	datasetHandler.RegisterRoutes(mux, csrfMw.Protect)
	documentHandler.RegisterRoutes(mux, csrfMw.Protect, uploadLimitMw.Limit)
	apiHandler.RegisterRoutes(mux)
	pipelineHandler.RegisterRoutes(mux, csrfMw.Protect)

	// Outermost first: security headers, request logging, metrics
	var h http.Handler = mux
	h = metrics.Middleware(h)
	h = loggingMw.Handler(h)
	h = securityMw.Handler(h)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	// Persist unsaved editor drafts before the database goes away
	if err := drafts.FlushAll(shutdownCtx); err != nil {
		logger.Error("Draft flush failed", "error", err)
	}

	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if bgWorker != nil {
		bgWorker.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
