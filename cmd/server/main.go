package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/verbatone/billing/internal/config"
	"github.com/verbatone/billing/internal/infrastructure/cache"
	"github.com/verbatone/billing/internal/infrastructure/database"
	httpServer "github.com/verbatone/billing/internal/infrastructure/http"
	"github.com/verbatone/billing/internal/infrastructure/provider"
	"github.com/verbatone/billing/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, logger); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, logger); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories and providers
	repos := database.NewRepositories(db, logger)
	providers := provider.BuildProviders(cfg, logger)

	statsCache, err := cache.NewStatsCache(&cfg.Redis, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer statsCache.Close()

	reconciler := usecase.NewReconcilerService(providers, repos.Subscription, repos.PaymentHistory, repos.User, cfg.Sync.BatchSize, logger)
	stats := usecase.NewStatsService(repos.Subscription, repos.Stats, statsCache, logger)

	// Scheduled jobs
	scheduler := usecase.NewScheduler(reconciler, stats, logger)
	if err := scheduler.Register(cfg.Sync.ReconcileSchedule, cfg.Sync.StatsSchedule); err != nil {
		logger.Fatal("Failed to register scheduled jobs", zap.Error(err))
	}
	scheduler.Start()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpSrv := httpServer.NewServer(cfg, logger, repos, providers, reconciler, stats)

	go func() {
		if err := httpSrv.Start(); err != nil {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	scheduler.Stop()

	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	logger.Info("Server shut down successfully")
}
