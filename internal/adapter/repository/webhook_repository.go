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

type webhookRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWebhookRepository creates a new webhook repository
func NewWebhookRepository(db *gorm.DB, logger *zap.Logger) repository.WebhookRepository {
	return &webhookRepository{
		db:     db,
		logger: logger,
	}
}

// Save inserts the event. Returns (false, nil) on a duplicate event ID.
func (r *webhookRepository) Save(ctx context.Context, event *model.StripeWebhookEvent) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(event)

	if result.Error != nil {
		r.logger.Error("Failed to save webhook event",
			zap.String("event_id", event.EventID),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to save webhook event: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// MarkCompleted records successful processing
func (r *webhookRepository) MarkCompleted(ctx context.Context, eventID string) error {
	now := time.Now()
	err := r.db.WithContext(ctx).
		Model(&model.StripeWebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":       model.WebhookStatusCompleted,
			"processed_at": &now,
		}).Error

	if err != nil {
		return fmt.Errorf("failed to mark webhook event completed: %w", err)
	}
	return nil
}

// MarkFailed records a processing failure with its reason
func (r *webhookRepository) MarkFailed(ctx context.Context, eventID string, reason string) error {
	now := time.Now()
	err := r.db.WithContext(ctx).
		Model(&model.StripeWebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":       model.WebhookStatusFailed,
			"error":        &reason,
			"processed_at": &now,
		}).Error

	if err != nil {
		return fmt.Errorf("failed to mark webhook event failed: %w", err)
	}
	return nil
}
