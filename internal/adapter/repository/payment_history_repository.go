package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/verbatone/billing/internal/domain/model"
	"github.com/verbatone/billing/internal/domain/repository"
)

type paymentHistoryRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentHistoryRepository creates a new payment history repository
func NewPaymentHistoryRepository(db *gorm.DB, logger *zap.Logger) repository.PaymentHistoryRepository {
	return &paymentHistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Record inserts the payment. A conflict on provider_payment_id means the
// payment is already known and the insert becomes a no-op.
func (r *paymentHistoryRepository) Record(ctx context.Context, payment *model.PaymentHistory) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_payment_id"}},
			DoNothing: true,
		}).
		Create(payment).Error

	if err != nil {
		r.logger.Error("Failed to record payment",
			zap.String("provider_payment_id", payment.ProviderPaymentID),
			zap.Error(err))
		return fmt.Errorf("failed to record payment: %w", err)
	}

	return nil
}

// ListForSubscription returns payments for one local subscription, newest first
func (r *paymentHistoryRepository) ListForSubscription(ctx context.Context, subscriptionID int64) ([]model.PaymentHistory, error) {
	var payments []model.PaymentHistory

	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at DESC").
		Find(&payments).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	return payments, nil
}
