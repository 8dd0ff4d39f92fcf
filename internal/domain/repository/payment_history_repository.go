package repository

import (
	"context"

	"github.com/verbatone/billing/internal/domain/model"
)

// PaymentHistoryRepository persists observed provider payments.
type PaymentHistoryRepository interface {
	// Record inserts the payment. A conflict on provider_payment_id means
	// the payment was already recorded; that is not an error.
	Record(ctx context.Context, payment *model.PaymentHistory) error

	// ListForSubscription returns payments for one local subscription,
	// newest first.
	ListForSubscription(ctx context.Context, subscriptionID int64) ([]model.PaymentHistory, error)
}
