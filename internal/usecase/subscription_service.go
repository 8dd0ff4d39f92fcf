package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/verbatone/billing/internal/domain/errors"
	"github.com/verbatone/billing/internal/domain/model"
	"github.com/verbatone/billing/internal/domain/provider"
	"github.com/verbatone/billing/internal/domain/repository"
)

// SubscriptionService serves the user-facing subscription endpoints.
type SubscriptionService struct {
	providers map[model.Provider]provider.BillingProvider
	subRepo   repository.SubscriptionRepository
	payRepo   repository.PaymentHistoryRepository
	logger    *zap.Logger
}

// NewSubscriptionService creates a new subscription service instance
func NewSubscriptionService(
	providers map[model.Provider]provider.BillingProvider,
	subRepo repository.SubscriptionRepository,
	payRepo repository.PaymentHistoryRepository,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		providers: providers,
		subRepo:   subRepo,
		payRepo:   payRepo,
		logger:    logger,
	}
}

// GetCurrentForUser returns the user's current subscription: an active or
// past_due one, or a canceled one whose grace period has not run out.
func (s *SubscriptionService) GetCurrentForUser(ctx context.Context, userID uuid.UUID) (*model.Subscription, error) {
	sub, err := s.subRepo.GetCurrentForUser(ctx, userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to get current subscription: %w", err)
	}
	if sub == nil {
		return nil, domainErrors.ErrNoActiveSubscription
	}
	return sub, nil
}

// Cancel cancels the subscription at its provider and records the
// cancel-at-period-end locally. Access persists until the paid period ends.
func (s *SubscriptionService) Cancel(ctx context.Context, userID uuid.UUID, subscriptionID int64, reason string) (*model.Subscription, error) {
	sub, err := s.subRepo.GetCurrentForUser(ctx, userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to get current subscription: %w", err)
	}
	if sub == nil {
		return nil, domainErrors.ErrNoActiveSubscription
	}
	if sub.ID != subscriptionID {
		return nil, domainErrors.ErrSubscriptionNotOwned
	}

	client, ok := s.providers[sub.Provider]
	if !ok {
		return nil, domainErrors.ErrUnknownProvider
	}

	if err := client.CancelSubscription(ctx, sub.ProviderSubscriptionID, reason); err != nil {
		return nil, fmt.Errorf("failed to cancel at provider: %w", err)
	}

	now := time.Now()
	sub.CancelAtPeriodEnd = true
	sub.CanceledAt = &now
	if err := s.subRepo.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to record cancellation: %w", err)
	}

	s.logger.Info("Subscription canceled",
		zap.String("user_id", userID.String()),
		zap.String("provider", string(sub.Provider)),
		zap.String("provider_subscription_id", sub.ProviderSubscriptionID),
		zap.Time("access_until", sub.CurrentPeriodEnd))

	return sub, nil
}

// ListPayments returns the payment history for the user's current subscription,
// most recent first.
func (s *SubscriptionService) ListPayments(ctx context.Context, userID uuid.UUID) ([]model.PaymentHistory, error) {
	sub, err := s.subRepo.GetCurrentForUser(ctx, userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to get current subscription: %w", err)
	}
	if sub == nil {
		return nil, domainErrors.ErrNoActiveSubscription
	}

	payments, err := s.payRepo.ListForSubscription(ctx, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}
