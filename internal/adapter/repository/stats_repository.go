package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/verbatone/billing/internal/domain/model"
	"github.com/verbatone/billing/internal/domain/repository"
)

type statsRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *gorm.DB, logger *zap.Logger) repository.StatsRepository {
	return &statsRepository{
		db:     db,
		logger: logger,
	}
}

// CountActiveAt counts subscriptions that granted access at the instant:
// created before it, and either not canceled yet or canceled with a paid
// period reaching past it.
func (r *statsRepository) CountActiveAt(ctx context.Context, at time.Time) (int, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("created_at <= ?", at).
		Where("(canceled_at IS NULL AND status IN ?) OR (canceled_at > ?) OR (status = ? AND current_period_end > ?)",
			[]model.SubscriptionStatus{model.SubscriptionStatusActive, model.SubscriptionStatusPastDue},
			at,
			model.SubscriptionStatusCanceled, at).
		Count(&count).Error

	if err != nil {
		return 0, fmt.Errorf("failed to count active subscriptions: %w", err)
	}

	return int(count), nil
}

// CountNewBetween counts subscriptions created in [start, end)
func (r *statsRepository) CountNewBetween(ctx context.Context, start, end time.Time) (int, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&count).Error

	if err != nil {
		return 0, fmt.Errorf("failed to count new subscriptions: %w", err)
	}

	return int(count), nil
}

// CountCanceledBetween counts subscriptions canceled in [start, end)
func (r *statsRepository) CountCanceledBetween(ctx context.Context, start, end time.Time) (int, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("canceled_at >= ? AND canceled_at < ?", start, end).
		Count(&count).Error

	if err != nil {
		return 0, fmt.Errorf("failed to count canceled subscriptions: %w", err)
	}

	return int(count), nil
}

// UpsertDailyStat writes a snapshot row keyed by date
func (r *statsRepository) UpsertDailyStat(ctx context.Context, stat *model.DailyStat) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"mrr",
				"active_count",
				"new_count",
				"canceled_count",
				"legacy_active_count",
				"updated_at",
			}),
		}).
		Create(stat).Error

	if err != nil {
		r.logger.Error("Failed to upsert daily stat",
			zap.Time("date", stat.Date),
			zap.Error(err))
		return fmt.Errorf("failed to upsert daily stat: %w", err)
	}

	return nil
}

// ListDailyStats returns snapshot rows in [from, to], oldest first
func (r *statsRepository) ListDailyStats(ctx context.Context, from, to time.Time) ([]model.DailyStat, error) {
	var stats []model.DailyStat

	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", from, to).
		Order("date").
		Find(&stats).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list daily stats: %w", err)
	}

	return stats, nil
}
