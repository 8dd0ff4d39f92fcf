package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/verbatone/billing/internal/domain/model"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	// Create custom types BEFORE auto-migrate
	if err := createCustomTypes(db); err != nil {
		logger.Error("Failed to create custom types", zap.Error(err))
		return err
	}

	// Auto-migrate all models
	err := db.AutoMigrate(
		&model.User{},
		&model.Subscription{},
		&model.PaymentHistory{},
		&model.StripeWebhookEvent{},
		&model.DailyStat{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	// Create custom indexes and constraints
	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates indexes that GORM doesn't handle automatically
func createCustomIndexes(db *gorm.DB) error {
	// One access-granting subscription per user at a time
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS unique_active_subscription_per_user ON subscriptions (user_id) WHERE status IN ('active', 'past_due') AND user_id IS NOT NULL`).Error; err != nil {
		return err
	}

	// Webhook replay scans
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_webhook_events_unprocessed ON stripe_webhook_events (created_at) WHERE status IN ('pending', 'failed')`).Error; err != nil {
		return err
	}

	// Fix-pass scans for unlinked subscriptions
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_subscriptions_unlinked ON subscriptions (provider) WHERE user_id IS NULL`).Error; err != nil {
		return err
	}

	return nil
}

// createCustomTypes creates custom PostgreSQL types
func createCustomTypes(db *gorm.DB) error {
	var exists bool

	db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'subscription_status')`).Scan(&exists)
	if !exists {
		if err := db.Exec(`CREATE TYPE subscription_status AS ENUM ('active', 'canceled', 'past_due', 'paused', 'incomplete')`).Error; err != nil {
			return err
		}
	}

	db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'billing_provider')`).Scan(&exists)
	if !exists {
		if err := db.Exec(`CREATE TYPE billing_provider AS ENUM ('stripe', 'paypal', 'paypal_legacy')`).Error; err != nil {
			return err
		}
	}

	db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'webhook_status')`).Scan(&exists)
	if !exists {
		if err := db.Exec(`CREATE TYPE webhook_status AS ENUM ('pending', 'completed', 'failed')`).Error; err != nil {
			return err
		}
	}

	return nil
}
