package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/verbatone/billing/internal/config"
	"github.com/verbatone/billing/internal/infrastructure/database"
	"github.com/verbatone/billing/internal/usecase"
)

// backfill-stats writes daily stat snapshots for a date range. Snapshots are
// upserted by date, so rerunning over the same range is safe.
func main() {
	var (
		fromFlag = flag.String("from", "", "start date (YYYY-MM-DD), inclusive")
		toFlag   = flag.String("to", "", "end date (YYYY-MM-DD), inclusive; defaults to today")
	)
	flag.Parse()

	if *fromFlag == "" {
		log.Fatal("-from is required")
	}

	from, err := time.Parse("2006-01-02", *fromFlag)
	if err != nil {
		log.Fatalf("Invalid -from date: %v", err)
	}
	to := time.Now().UTC().Truncate(24 * time.Hour)
	if *toFlag != "" {
		to, err = time.Parse("2006-01-02", *toFlag)
		if err != nil {
			log.Fatalf("Invalid -to date: %v", err)
		}
	}
	if to.Before(from) {
		log.Fatal("-to must not be before -from")
	}

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
	stats := usecase.NewStatsService(repos.Subscription, repos.Stats, nil, logger)

	ctx := context.Background()
	days := 0
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if err := stats.SnapshotDay(ctx, day); err != nil {
			logger.Fatal("Failed to snapshot day",
				zap.String("date", day.Format("2006-01-02")),
				zap.Error(err))
		}
		days++
	}

	logger.Info("Backfill complete",
		zap.String("from", from.Format("2006-01-02")),
		zap.String("to", to.Format("2006-01-02")),
		zap.Int("days", days))
}
