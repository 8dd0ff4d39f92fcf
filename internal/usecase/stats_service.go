package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/verbatone/billing/internal/domain/entity"
	"github.com/verbatone/billing/internal/domain/model"
	"github.com/verbatone/billing/internal/domain/repository"
)

// StatsCache caches computed business stats. Implemented on Redis; a nil
// cache disables caching.
type StatsCache interface {
	GetBusinessStats(ctx context.Context) (*entity.BusinessStats, error)
	SetBusinessStats(ctx context.Context, stats *entity.BusinessStats) error
}

// StatsService recomputes MRR, churn, and LTV from the subscriptions and
// payment_history tables for the admin dashboards.
type StatsService struct {
	subRepo   repository.SubscriptionRepository
	statsRepo repository.StatsRepository
	cache     StatsCache
	logger    *zap.Logger
}

// NewStatsService creates a new stats service instance
func NewStatsService(
	subRepo repository.SubscriptionRepository,
	statsRepo repository.StatsRepository,
	cache StatsCache,
	logger *zap.Logger,
) *StatsService {
	return &StatsService{
		subRepo:   subRepo,
		statsRepo: statsRepo,
		cache:     cache,
		logger:    logger,
	}
}

// BusinessStats returns the current MRR/churn/LTV summary, from cache when
// fresh.
func (s *StatsService) BusinessStats(ctx context.Context) (*entity.BusinessStats, error) {
	if s.cache != nil {
		cached, err := s.cache.GetBusinessStats(ctx)
		if err != nil {
			s.logger.Warn("Stats cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	stats, err := s.computeBusinessStats(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetBusinessStats(ctx, stats); err != nil {
			s.logger.Warn("Stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

func (s *StatsService) computeBusinessStats(ctx context.Context, now time.Time) (*entity.BusinessStats, error) {
	active, err := s.subRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active subscriptions: %w", err)
	}

	mrr := decimal.Zero
	activeCount := 0
	legacyActive := 0
	for i := range active {
		sub := &active[i]
		if sub.IsLifetime {
			continue
		}
		activeCount++
		if sub.IsLegacy {
			legacyActive++
		}
		amountCents := sub.AmountCents
		interval := sub.Interval
		if amountCents == 0 && sub.IsLegacy {
			if cents, iv, ok := LegacyPlanPrice(sub.PlanKey); ok {
				amountCents = cents
				interval = iv
			}
		}
		mrr = mrr.Add(MonthlyAmount(amountCents, interval))
	}

	churn, err := s.monthlyChurn(ctx, now)
	if err != nil {
		return nil, err
	}

	// CountActiveAt includes canceled rows still inside their paid period;
	// ListActive does not. The difference is the grace population.
	graceCount := 0
	withGrace, err := s.statsRepo.CountActiveAt(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count active: %w", err)
	}
	if withGrace > len(active) {
		graceCount = withGrace - len(active)
	}

	arpu := decimal.Zero
	if activeCount > 0 {
		arpu = mrr.Div(decimal.NewFromInt(int64(activeCount))).Round(2)
	}

	// LTV = ARPU / monthly churn. Zero churn reports zero, not infinity.
	ltv := decimal.Zero
	if churn.IsPositive() {
		ltv = arpu.Div(churn).Round(2)
	}

	return &entity.BusinessStats{
		MRR:               mrr.Round(2),
		ARPU:              arpu,
		LTV:               ltv,
		ChurnRate:         churn,
		ActiveCount:       activeCount,
		GraceCount:        graceCount,
		LegacyActiveCount: legacyActive,
		ComputedAt:        now,
	}, nil
}

// monthlyChurn computes canceled-this-month over active-at-month-start.
func (s *StatsService) monthlyChurn(ctx context.Context, now time.Time) (decimal.Decimal, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	activeAtStart, err := s.statsRepo.CountActiveAt(ctx, monthStart)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to count active at month start: %w", err)
	}
	canceled, err := s.statsRepo.CountCanceledBetween(ctx, monthStart, now)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to count canceled: %w", err)
	}

	if activeAtStart == 0 {
		return decimal.Zero, nil
	}
	churn := decimal.NewFromInt(int64(canceled)).
		Div(decimal.NewFromInt(int64(activeAtStart))).
		Round(4)
	return churn, nil
}

// SnapshotDay recomputes the daily stats row for one date. Upserting on the
// date column makes the backfill and the nightly job safe to rerun.
func (s *StatsService) SnapshotDay(ctx context.Context, day time.Time) error {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	next := day.AddDate(0, 0, 1)

	activeCount, err := s.statsRepo.CountActiveAt(ctx, next)
	if err != nil {
		return fmt.Errorf("failed to count active: %w", err)
	}
	newCount, err := s.statsRepo.CountNewBetween(ctx, day, next)
	if err != nil {
		return fmt.Errorf("failed to count new: %w", err)
	}
	canceledCount, err := s.statsRepo.CountCanceledBetween(ctx, day, next)
	if err != nil {
		return fmt.Errorf("failed to count canceled: %w", err)
	}

	stats, err := s.computeBusinessStats(ctx, next)
	if err != nil {
		return err
	}

	stat := &model.DailyStat{
		Date:              day,
		MRR:               stats.MRR,
		ActiveCount:       activeCount,
		NewCount:          newCount,
		CanceledCount:     canceledCount,
		LegacyActiveCount: stats.LegacyActiveCount,
	}
	if err := s.statsRepo.UpsertDailyStat(ctx, stat); err != nil {
		return fmt.Errorf("failed to upsert daily stat: %w", err)
	}

	s.logger.Info("Daily stats snapshot written",
		zap.Time("date", day),
		zap.String("mrr", stats.MRR.String()),
		zap.Int("active", activeCount))
	return nil
}

// Historical returns daily snapshot points for the last n days.
func (s *StatsService) Historical(ctx context.Context, days int) ([]entity.HistoricalPoint, error) {
	if days <= 0 {
		days = 30
	}
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -days)

	rows, err := s.statsRepo.ListDailyStats(ctx, from, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily stats: %w", err)
	}

	points := make([]entity.HistoricalPoint, len(rows))
	for i, row := range rows {
		points[i] = entity.HistoricalPoint{
			Date:          row.Date,
			MRR:           row.MRR,
			ActiveCount:   row.ActiveCount,
			NewCount:      row.NewCount,
			CanceledCount: row.CanceledCount,
		}
	}
	return points, nil
}
