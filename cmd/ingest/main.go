package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/linkdive/linkdive/internal/config"
	"github.com/linkdive/linkdive/internal/flags"
	"github.com/linkdive/linkdive/internal/logger"
	"github.com/linkdive/linkdive/internal/metrics"
	"github.com/linkdive/linkdive/internal/provider"
	"github.com/linkdive/linkdive/internal/ratelimit"
	"github.com/linkdive/linkdive/internal/repository"
	"github.com/linkdive/linkdive/internal/service"
)

// One-shot ingestion runner: executes a single campaign analysis from the
// command line, outside the API scheduler. Useful for backfills and
// debugging classification against live providers.
func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "linkdive-ingest",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	campaignID := flag.Uint("campaign", 0, "Campaign ID to analyze")
	depth := flag.String("depth", "standard", "Analysis depth: quick, standard or deep")
	keywords := flag.Bool("keywords", false, "Also fetch keyword rankings")
	mock := flag.Bool("mock", false, "Force mock mode regardless of configuration")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *campaignID == 0 {
		appLogger.Fatal("A campaign ID is required: -campaign <id>")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	appLogger.WithFields(logger.Fields{
		logger.FieldCampaignID: *campaignID,
		"depth":                *depth,
		"keywords":             *keywords,
	}).Info("Starting ingestion run")

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	campaignRepo := repository.NewCampaignRepository(db)
	coverageRepo := repository.NewCoverageRepository(db)
	serpRepo := repository.NewSerpRepository(db)
	rateLimitRepo := repository.NewRateLimitRepository(db)

	runtime := flags.NewRuntime(cfg.Providers.MockMode || *mock)
	registry := metrics.NewRegistry()

	ahrefsLimiter := ratelimit.NewLimiter("ahrefs", cfg.Providers.Ahrefs.RatePerMinute, cfg.Providers.Ahrefs.RatePerMinute, rateLimitRepo, appLogger)
	dataForSEOLimiter := ratelimit.NewLimiter("dataforseo", cfg.Providers.DataForSEO.RatePerMinute, cfg.Providers.DataForSEO.RatePerMinute, rateLimitRepo, appLogger)

	ahrefs := provider.NewAhrefsProvider(&cfg.Providers.Ahrefs, ahrefsLimiter, runtime, registry, appLogger)
	dataForSEO := provider.NewDataForSEOProvider(&cfg.Providers.DataForSEO, dataForSEOLimiter, runtime, registry, appLogger)

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

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	// Run the analysis
	result, err := analysisService.RunAnalysis(ctx, *campaignID, service.AnalysisDepth(*depth))
	if err != nil {
		appLogger.WithError(err).Fatal("Analysis failed")
	}
	appLogger.WithFields(logger.Fields{
		"candidates": result.CandidatesFetched,
		"new":        result.NewRecords,
		"verified":   result.VerifiedCount,
		"potential":  result.PotentialCount,
		"excluded":   result.ExcludedCount,
		"steps":      result.CompletedSteps,
	}).Info("Analysis completed")

	if *keywords {
		kwResult, err := analysisService.RunKeywordCheck(ctx, *campaignID)
		if err != nil {
			appLogger.WithError(err).Fatal("Keyword check failed")
		}
		appLogger.WithField("rankings", kwResult.RankingsStored).Info("Keyword check completed")
	}
}
