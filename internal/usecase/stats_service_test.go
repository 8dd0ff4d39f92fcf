package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/verbatone/billing/internal/domain/entity"
	"github.com/verbatone/billing/internal/domain/model"
	"github.com/verbatone/billing/internal/usecase"
)

// MockStatsRepository is a mock implementation of StatsRepository
type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) CountActiveAt(ctx context.Context, at time.Time) (int, error) {
	args := m.Called(ctx, at)
	return args.Int(0), args.Error(1)
}

func (m *MockStatsRepository) CountNewBetween(ctx context.Context, start, end time.Time) (int, error) {
	args := m.Called(ctx, start, end)
	return args.Int(0), args.Error(1)
}

func (m *MockStatsRepository) CountCanceledBetween(ctx context.Context, start, end time.Time) (int, error) {
	args := m.Called(ctx, start, end)
	return args.Int(0), args.Error(1)
}

func (m *MockStatsRepository) UpsertDailyStat(ctx context.Context, stat *model.DailyStat) error {
	args := m.Called(ctx, stat)
	return args.Error(0)
}

func (m *MockStatsRepository) ListDailyStats(ctx context.Context, from, to time.Time) ([]model.DailyStat, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]model.DailyStat), args.Error(1)
}

// fakeStatsCache is an in-memory StatsCache for tests.
type fakeStatsCache struct {
	stats *entity.BusinessStats
	sets  int
}

func (c *fakeStatsCache) GetBusinessStats(ctx context.Context) (*entity.BusinessStats, error) {
	return c.stats, nil
}

func (c *fakeStatsCache) SetBusinessStats(ctx context.Context, stats *entity.BusinessStats) error {
	c.stats = stats
	c.sets++
	return nil
}

func TestStatsService_BusinessStats(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	t.Run("computes MRR ARPU LTV and churn", func(t *testing.T) {
		subRepo := new(MockSubscriptionRepository)
		statsRepo := new(MockStatsRepository)
		cache := &fakeStatsCache{}
		service := usecase.NewStatsService(subRepo, statsRepo, cache, logger)

		now := time.Now()
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

		active := []model.Subscription{
			{AmountCents: 1900, Interval: "month", Status: model.SubscriptionStatusActive},
			{AmountCents: 19000, Interval: "year", Status: model.SubscriptionStatusActive},
			// Lifetime purchases never contribute to MRR.
			{AmountCents: 9900, Interval: "lifetime", IsLifetime: true, Status: model.SubscriptionStatusActive},
			// Migrated row with no amount falls back to the legacy price table.
			{AmountCents: 0, PlanKey: "grandfathered_legacy", IsLegacy: true, Status: model.SubscriptionStatusActive},
		}

		subRepo.On("ListActive", ctx).Return(active, nil)
		statsRepo.On("CountActiveAt", ctx, mock.MatchedBy(func(at time.Time) bool {
			return at.Equal(monthStart)
		})).Return(100, nil)
		statsRepo.On("CountCanceledBetween", ctx, mock.Anything, mock.Anything).Return(4, nil)
		statsRepo.On("CountActiveAt", ctx, mock.MatchedBy(func(at time.Time) bool {
			return !at.Equal(monthStart)
		})).Return(6, nil)

		stats, err := service.BusinessStats(ctx)

		assert.NoError(t, err)
		// 19.00 + 19000/100/12 + 5.00
		assert.Equal(t, "39.83", stats.MRR.StringFixed(2))
		assert.Equal(t, 3, stats.ActiveCount)
		assert.Equal(t, 1, stats.LegacyActiveCount)
		// 6 with grace minus 4 listed active.
		assert.Equal(t, 2, stats.GraceCount)
		assert.Equal(t, "0.0400", stats.ChurnRate.StringFixed(4))
		assert.Equal(t, "13.28", stats.ARPU.StringFixed(2))
		assert.Equal(t, "332.00", stats.LTV.StringFixed(2))
		assert.Equal(t, 1, cache.sets)
	})

	t.Run("zero churn reports zero LTV", func(t *testing.T) {
		subRepo := new(MockSubscriptionRepository)
		statsRepo := new(MockStatsRepository)
		service := usecase.NewStatsService(subRepo, statsRepo, nil, logger)

		subRepo.On("ListActive", ctx).Return([]model.Subscription{
			{AmountCents: 900, Interval: "month", Status: model.SubscriptionStatusActive},
		}, nil)
		statsRepo.On("CountActiveAt", ctx, mock.Anything).Return(1, nil)
		statsRepo.On("CountCanceledBetween", ctx, mock.Anything, mock.Anything).Return(0, nil)

		stats, err := service.BusinessStats(ctx)

		assert.NoError(t, err)
		assert.True(t, stats.ChurnRate.IsZero())
		assert.True(t, stats.LTV.IsZero())
	})

	t.Run("no subscribers yields zero everything", func(t *testing.T) {
		subRepo := new(MockSubscriptionRepository)
		statsRepo := new(MockStatsRepository)
		service := usecase.NewStatsService(subRepo, statsRepo, nil, logger)

		subRepo.On("ListActive", ctx).Return([]model.Subscription{}, nil)
		statsRepo.On("CountActiveAt", ctx, mock.Anything).Return(0, nil)
		statsRepo.On("CountCanceledBetween", ctx, mock.Anything, mock.Anything).Return(0, nil)

		stats, err := service.BusinessStats(ctx)

		assert.NoError(t, err)
		assert.True(t, stats.MRR.IsZero())
		assert.True(t, stats.ARPU.IsZero())
		assert.Equal(t, 0, stats.ActiveCount)
	})

	t.Run("serves cached stats without recomputing", func(t *testing.T) {
		subRepo := new(MockSubscriptionRepository)
		statsRepo := new(MockStatsRepository)
		cached := &entity.BusinessStats{MRR: decimal.NewFromInt(42), ComputedAt: time.Now()}
		cache := &fakeStatsCache{stats: cached}
		service := usecase.NewStatsService(subRepo, statsRepo, cache, logger)

		stats, err := service.BusinessStats(ctx)

		assert.NoError(t, err)
		assert.Equal(t, cached, stats)
		subRepo.AssertNotCalled(t, "ListActive", mock.Anything)
	})
}

func TestStatsService_SnapshotDay(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	subRepo := new(MockSubscriptionRepository)
	statsRepo := new(MockStatsRepository)
	service := usecase.NewStatsService(subRepo, statsRepo, nil, logger)

	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	next := day.AddDate(0, 0, 1)
	monthStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	statsRepo.On("CountActiveAt", ctx, next).Return(50, nil)
	statsRepo.On("CountNewBetween", ctx, day, next).Return(3, nil)
	statsRepo.On("CountCanceledBetween", ctx, day, next).Return(1, nil)
	subRepo.On("ListActive", ctx).Return([]model.Subscription{
		{AmountCents: 1900, Interval: "month", Status: model.SubscriptionStatusActive},
	}, nil)
	statsRepo.On("CountActiveAt", ctx, monthStart).Return(48, nil)
	statsRepo.On("CountCanceledBetween", ctx, monthStart, next).Return(2, nil)
	statsRepo.On("UpsertDailyStat", ctx, mock.MatchedBy(func(stat *model.DailyStat) bool {
		return stat.Date.Equal(day) &&
			stat.ActiveCount == 50 &&
			stat.NewCount == 3 &&
			stat.CanceledCount == 1 &&
			stat.MRR.StringFixed(2) == "19.00"
	})).Return(nil)

	err := service.SnapshotDay(ctx, day.Add(9*time.Hour)) // mid-day input truncates to the date

	assert.NoError(t, err)
	statsRepo.AssertExpectations(t)
}

func TestStatsService_Historical(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	subRepo := new(MockSubscriptionRepository)
	statsRepo := new(MockStatsRepository)
	service := usecase.NewStatsService(subRepo, statsRepo, nil, logger)

	rows := []model.DailyStat{
		{Date: time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), MRR: decimal.NewFromInt(100), ActiveCount: 10},
		{Date: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), MRR: decimal.NewFromInt(105), ActiveCount: 11, NewCount: 1},
	}
	statsRepo.On("ListDailyStats", ctx, mock.Anything, mock.Anything).Return(rows, nil)

	points, err := service.Historical(ctx, 7)

	assert.NoError(t, err)
	assert.Len(t, points, 2)
	assert.Equal(t, 10, points[0].ActiveCount)
	assert.Equal(t, "105", points[1].MRR.String())
	assert.Equal(t, 1, points[1].NewCount)
}
