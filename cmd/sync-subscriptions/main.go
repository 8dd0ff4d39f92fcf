package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/verbatone/billing/internal/config"
	"github.com/verbatone/billing/internal/domain/entity"
	"github.com/verbatone/billing/internal/domain/model"
	"github.com/verbatone/billing/internal/infrastructure/database"
	"github.com/verbatone/billing/internal/infrastructure/provider"
	"github.com/verbatone/billing/internal/usecase"
)

// sync-subscriptions runs one full reconciliation pass from the command line:
// reconcile, discover, legacy sweep, relink. Useful for cron-less deployments
// and for one-off runs after incidents.
func main() {
	var (
		providersFlag = flag.String("providers", "", "comma-separated provider subset (stripe,paypal,paypal_legacy); empty means all")
		skipDiscover  = flag.Bool("skip-discover", false, "skip the discovery pass")
		skipLegacy    = flag.Bool("skip-legacy", false, "skip the legacy sweep pass")
		timeout       = flag.Duration("timeout", 30*time.Minute, "overall run timeout")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db, logger)

	repos := database.NewRepositories(db, logger)
	providers := provider.BuildProviders(cfg, logger)
	reconciler := usecase.NewReconcilerService(providers, repos.Subscription, repos.PaymentHistory, repos.User, cfg.Sync.BatchSize, logger)

	var only []model.Provider
	if *providersFlag != "" {
		for _, p := range strings.Split(*providersFlag, ",") {
			only = append(only, model.Provider(strings.TrimSpace(p)))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	report, err := reconciler.Reconcile(ctx, only)
	if err != nil {
		logger.Fatal("Reconciliation failed", zap.Error(err))
	}

	if !*skipDiscover {
		discovered, err := reconciler.Discover(ctx, only)
		if err != nil {
			logger.Error("Discovery failed", zap.Error(err))
		} else {
			report.Merge(discovered)
		}
	}

	if !*skipLegacy {
		if swept, err := reconciler.SweepLegacy(ctx); err != nil {
			logger.Error("Legacy sweep failed", zap.Error(err))
		} else {
			report.Merge(swept)
		}
	}

	for _, p := range []model.Provider{model.ProviderStripe, model.ProviderPayPal, model.ProviderPayPalLegacy} {
		if relinked, err := reconciler.RelinkUnlinked(ctx, p); err != nil {
			logger.Error("Relink failed", zap.String("provider", string(p)), zap.Error(err))
		} else {
			report.Merge(relinked)
		}
	}

	logSyncReport(logger, report)
}

func logSyncReport(logger *zap.Logger, report *entity.SyncReport) {
	logger.Info("Sync run finished",
		zap.Int("checked", report.Checked),
		zap.Int("updated", report.Updated),
		zap.Int("canceled", report.Canceled),
		zap.Int("discovered", report.Discovered),
		zap.Int("relinked", report.Relinked),
		zap.Int("failed", report.Failed))
	for _, f := range report.Failures {
		logger.Warn("Subscription not reconciled",
			zap.String("provider", f.Provider),
			zap.String("provider_subscription_id", f.ProviderSubscriptionID),
			zap.String("reason", f.Reason))
	}
}
