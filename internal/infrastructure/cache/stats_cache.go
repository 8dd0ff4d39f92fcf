package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/verbatone/billing/internal/config"
	"github.com/verbatone/billing/internal/domain/entity"
)

const (
	businessStatsKey = "billing:stats:business"
	businessStatsTTL = 5 * time.Minute
)

// StatsCache caches computed admin stats in Redis so dashboard refreshes do
// not recompute MRR on every request.
type StatsCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewStatsCache creates a Redis-backed stats cache. Returns an error when
// Redis is unreachable; callers may run without a cache.
func NewStatsCache(cfg *config.RedisConfig, logger *zap.Logger) (*StatsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &StatsCache{client: client, logger: logger}, nil
}

// GetBusinessStats returns the cached stats, or (nil, nil) on a miss.
func (c *StatsCache) GetBusinessStats(ctx context.Context) (*entity.BusinessStats, error) {
	data, err := c.client.Get(ctx, businessStatsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read stats cache: %w", err)
	}

	var stats entity.BusinessStats
	if err := json.Unmarshal(data, &stats); err != nil {
		// A stale or mangled entry is a miss, not a failure.
		c.logger.Warn("Dropping unreadable stats cache entry", zap.Error(err))
		return nil, nil
	}
	return &stats, nil
}

// SetBusinessStats caches the stats with a short TTL.
func (c *StatsCache) SetBusinessStats(ctx context.Context, stats *entity.BusinessStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	if err := c.client.Set(ctx, businessStatsKey, data, businessStatsTTL).Err(); err != nil {
		return fmt.Errorf("failed to write stats cache: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *StatsCache) Close() error {
	return c.client.Close()
}
