package repository

import (
	"context"
	"time"

	"github.com/verbatone/billing/internal/domain/model"
)

// StatsRepository serves the aggregation queries behind the admin dashboards.
type StatsRepository interface {
	// CountActiveAt counts subscriptions that granted access at the instant,
	// including canceled ones still inside their paid period.
	CountActiveAt(ctx context.Context, at time.Time) (int, error)

	// CountNewBetween counts subscriptions created in [start, end).
	CountNewBetween(ctx context.Context, start, end time.Time) (int, error)

	// CountCanceledBetween counts subscriptions canceled in [start, end).
	CountCanceledBetween(ctx context.Context, start, end time.Time) (int, error)

	// UpsertDailyStat writes a snapshot row keyed by date.
	UpsertDailyStat(ctx context.Context, stat *model.DailyStat) error

	// ListDailyStats returns snapshot rows in [from, to], oldest first.
	ListDailyStats(ctx context.Context, from, to time.Time) ([]model.DailyStat, error)
}
