package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/verbatone/billing/internal/domain/model"
	"github.com/verbatone/billing/internal/domain/repository"
)

type subscriptionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB, logger *zap.Logger) repository.SubscriptionRepository {
	return &subscriptionRepository{
		db:     db,
		logger: logger,
	}
}

// GetByProviderSubscriptionID retrieves a subscription by its provider ID
func (r *subscriptionRepository) GetByProviderSubscriptionID(ctx context.Context, p model.Provider, providerSubID string) (*model.Subscription, error) {
	var sub model.Subscription

	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_subscription_id = ?", p, providerSubID).
		First(&sub).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get subscription by provider ID",
			zap.String("provider", string(p)),
			zap.String("provider_subscription_id", providerSubID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

// GetCurrentForUser returns the user's most relevant subscription: active or
// past_due first, then a canceled one still inside its paid period.
func (r *subscriptionRepository) GetCurrentForUser(ctx context.Context, userID uuid.UUID, now time.Time) (*model.Subscription, error) {
	var sub model.Subscription

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID,
			[]model.SubscriptionStatus{model.SubscriptionStatusActive, model.SubscriptionStatusPastDue}).
		Order("current_period_end DESC").
		First(&sub).Error

	if err == nil {
		return &sub, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get current subscription: %w", err)
	}

	// Grace period: canceled but the paid period has not run out.
	err = r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND current_period_end > ?",
			userID, model.SubscriptionStatusCanceled, now).
		Order("current_period_end DESC").
		First(&sub).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get grace subscription: %w", err)
	}

	return &sub, nil
}

// ListByProvider pages through subscriptions billed by one provider
func (r *subscriptionRepository) ListByProvider(ctx context.Context, p model.Provider, offset, limit int) ([]model.Subscription, error) {
	var subs []model.Subscription

	err := r.db.WithContext(ctx).
		Where("provider = ?", p).
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&subs).Error

	if err != nil {
		r.logger.Error("Failed to list subscriptions by provider",
			zap.String("provider", string(p)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return subs, nil
}

// ListActive returns every subscription in active or past_due status
func (r *subscriptionRepository) ListActive(ctx context.Context) ([]model.Subscription, error) {
	var subs []model.Subscription

	err := r.db.WithContext(ctx).
		Where("status IN ?",
			[]model.SubscriptionStatus{model.SubscriptionStatusActive, model.SubscriptionStatusPastDue}).
		Find(&subs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list active subscriptions: %w", err)
	}

	return subs, nil
}

// ListUnlinked returns subscriptions with no owning user
func (r *subscriptionRepository) ListUnlinked(ctx context.Context, p model.Provider) ([]model.Subscription, error) {
	var subs []model.Subscription

	err := r.db.WithContext(ctx).
		Where("provider = ? AND user_id IS NULL", p).
		Order("id").
		Find(&subs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list unlinked subscriptions: %w", err)
	}

	return subs, nil
}

// Upsert inserts the subscription or updates the drifted fields when the
// provider subscription ID is already known.
func (r *subscriptionRepository) Upsert(ctx context.Context, sub *model.Subscription) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "provider_subscription_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status",
				"current_period_start",
				"current_period_end",
				"cancel_at_period_end",
				"canceled_at",
				"amount_cents",
				"currency",
				"interval",
				"plan_key",
				"provider_customer_id",
				"updated_at",
			}),
		}).
		Create(sub).Error

	if err != nil {
		r.logger.Error("Failed to upsert subscription",
			zap.String("provider", string(sub.Provider)),
			zap.String("provider_subscription_id", sub.ProviderSubscriptionID),
			zap.Error(err))
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return nil
}

// Update persists changes to an existing subscription row
func (r *subscriptionRepository) Update(ctx context.Context, sub *model.Subscription) error {
	sub.UpdatedAt = time.Now()

	err := r.db.WithContext(ctx).Save(sub).Error
	if err != nil {
		r.logger.Error("Failed to update subscription",
			zap.String("provider_subscription_id", sub.ProviderSubscriptionID),
			zap.Error(err))
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	return nil
}

// MarkCanceled flips a subscription to canceled without touching its period
// fields, so the grace period stays observable.
func (r *subscriptionRepository) MarkCanceled(ctx context.Context, id int64, canceledAt time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      model.SubscriptionStatusCanceled,
			"canceled_at": &canceledAt,
			"updated_at":  time.Now(),
		}).Error

	if err != nil {
		r.logger.Error("Failed to mark subscription canceled",
			zap.Int64("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to mark subscription canceled: %w", err)
	}

	return nil
}

// AttachUser links an unlinked subscription to a user
func (r *subscriptionRepository) AttachUser(ctx context.Context, id int64, userID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ? AND user_id IS NULL", id).
		Updates(map[string]interface{}{
			"user_id":    userID,
			"updated_at": time.Now(),
		}).Error

	if err != nil {
		return fmt.Errorf("failed to attach user to subscription: %w", err)
	}

	return nil
}
