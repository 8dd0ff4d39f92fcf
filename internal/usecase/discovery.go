package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/verbatone/billing/internal/domain/entity"
	"github.com/verbatone/billing/internal/domain/model"
	"github.com/verbatone/billing/internal/domain/provider"
)

// Discover lists every active subscription at each provider and inserts the
// ones the local store does not know. This self-heals against missed
// webhooks. The unique provider subscription ID constraint makes concurrent
// or repeated discovery runs safe.
func (s *ReconcilerService) Discover(ctx context.Context, only []model.Provider) (*entity.SyncReport, error) {
	report := &entity.SyncReport{StartedAt: time.Now()}

	for _, p := range s.selectProviders(only) {
		client := s.providers[p]

		remotes, err := client.ListActiveSubscriptions(ctx)
		if err != nil {
			return report, fmt.Errorf("failed to list active subscriptions at %s: %w", p, err)
		}

		for _, remote := range remotes {
			report.Checked++
			if err := s.discoverOne(ctx, p, remote, report); err != nil {
				report.Failed++
				report.Failures = append(report.Failures, entity.SyncFailure{
					ProviderSubscriptionID: remote.ID,
					Provider:               string(p),
					Reason:                 err.Error(),
				})
				s.logger.Error("Failed to discover subscription",
					zap.String("provider", string(p)),
					zap.String("provider_subscription_id", remote.ID),
					zap.Error(err))
			}
		}
	}

	report.FinishedAt = time.Now()
	s.logger.Info("Discovery run finished",
		zap.Int("checked", report.Checked),
		zap.Int("discovered", report.Discovered),
		zap.Int("failed", report.Failed))

	return report, nil
}

func (s *ReconcilerService) discoverOne(ctx context.Context, p model.Provider, remote *provider.Subscription, report *entity.SyncReport) error {
	existing, err := s.subRepo.GetByProviderSubscriptionID(ctx, p, remote.ID)
	if err != nil {
		return fmt.Errorf("failed to look up subscription: %w", err)
	}
	if existing != nil {
		return nil
	}

	mapped, ok := MapProviderStatus(p, remote.Status)
	if !ok {
		mapped = model.SubscriptionStatusIncomplete
	}

	sub := &model.Subscription{
		Provider:               p,
		ProviderSubscriptionID: remote.ID,
		ProviderCustomerID:     remote.CustomerID,
		PlanKey:                remote.PlanKey,
		AmountCents:            remote.AmountCents,
		Currency:               remote.Currency,
		Interval:               remote.Interval,
		Status:                 mapped,
		CurrentPeriodStart:     remote.CurrentPeriodStart,
		CurrentPeriodEnd:       remote.CurrentPeriodEnd,
		CancelAtPeriodEnd:      remote.CancelAtPeriodEnd,
		SubscriberEmail:        remote.SubscriberEmail,
		ProviderData:           remote.Raw,
	}

	// Resolve the owning user by subscriber email when the provider gives
	// one. Unresolved rows are inserted unlinked and picked up by the fix
	// pass once the user exists.
	if remote.SubscriberEmail != "" {
		user, err := s.userRepo.GetByEmail(ctx, remote.SubscriberEmail)
		if err != nil {
			return fmt.Errorf("failed to resolve user by email: %w", err)
		}
		if user != nil {
			sub.UserID = &user.ID
		}
	}

	if err := s.subRepo.Upsert(ctx, sub); err != nil {
		return fmt.Errorf("failed to insert discovered subscription: %w", err)
	}

	s.logger.Info("Discovered subscription missing from local store",
		zap.String("provider", string(p)),
		zap.String("provider_subscription_id", remote.ID),
		zap.Bool("user_resolved", sub.UserID != nil))
	report.Discovered++

	return s.syncUserRole(ctx, sub)
}
