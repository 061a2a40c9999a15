package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/linkdive/linkdive/internal/api"
	"github.com/linkdive/linkdive/internal/api/handler"
	"github.com/linkdive/linkdive/internal/config"
	"github.com/linkdive/linkdive/internal/flags"
	"github.com/linkdive/linkdive/internal/logger"
	"github.com/linkdive/linkdive/internal/metrics"
	"github.com/linkdive/linkdive/internal/provider"
	"github.com/linkdive/linkdive/internal/ratelimit"
	"github.com/linkdive/linkdive/internal/repository"
	"github.com/linkdive/linkdive/internal/scheduler"
	"github.com/linkdive/linkdive/internal/service"
)

func main() {
	// Initialize logger
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize repositories
	campaignRepo := repository.NewCampaignRepository(db)
	coverageRepo := repository.NewCoverageRepository(db)
	serpRepo := repository.NewSerpRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	rateLimitRepo := repository.NewRateLimitRepository(db)

	// Runtime flags and metrics are built once here and injected everywhere
	runtime := flags.NewRuntime(cfg.Providers.MockMode)
	registry := metrics.NewRegistry()

	// Provider adapters with persisted rate limit buckets
	ahrefsLimiter := ratelimit.NewLimiter("ahrefs", cfg.Providers.Ahrefs.RatePerMinute, cfg.Providers.Ahrefs.RatePerMinute, rateLimitRepo, appLogger)
	dataForSEOLimiter := ratelimit.NewLimiter("dataforseo", cfg.Providers.DataForSEO.RatePerMinute, cfg.Providers.DataForSEO.RatePerMinute, rateLimitRepo, appLogger)

	ahrefs := provider.NewAhrefsProvider(&cfg.Providers.Ahrefs, ahrefsLimiter, runtime, registry, appLogger)
	dataForSEO := provider.NewDataForSEOProvider(&cfg.Providers.DataForSEO, dataForSEOLimiter, runtime, registry, appLogger)

	// Initialize services
	contentService := service.NewContentService(&cfg.Content, appLogger)
	analysisService := service.NewAnalysisService(
		campaignRepo,
		coverageRepo,
		serpRepo,
		[]provider.BacklinkProvider{ahrefs, dataForSEO},
		dataForSEO,
		contentService,
		&cfg.Analysis,
		&cfg.Content,
		appLogger,
	)

	// Background task machinery
	taskRegistry := scheduler.NewTaskRegistry(taskRepo, appLogger)
	window, err := scheduler.NewWindow(&cfg.Scheduler.Window)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to build monitoring window")
	}
	sched := scheduler.New(&cfg.Scheduler, window, taskRegistry, analysisService, campaignRepo, registry, appLogger)
	sched.Start()

	// Setup router
	router := api.SetupRouter(&cfg.Server, appLogger, api.Handlers{
		Health:   handler.NewHealthHandler(registry, runtime),
		Campaign: handler.NewCampaignHandler(campaignRepo, coverageRepo, serpRepo, sched),
		Task:     handler.NewTaskHandler(taskRegistry),
		Admin:    handler.NewAdminHandler(runtime),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")

	// Graceful shutdown with timeout: stop accepting requests, then wait
	// for in-flight background tasks.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Scheduler did not drain in time")
	}

	appLogger.Info("Server exited")
}
