package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/verbatone/billing/internal/domain/entity"
	"github.com/verbatone/billing/internal/domain/model"
)

// SweepLegacy walks subscriptions billed through the legacy PayPal account
// and repairs the fields the migration could not fill: amounts priced from
// the legacy plan table and lifetime flags. Migrated data is ambiguous, so
// the sweep only ever fills gaps, never overwrites a known amount.
func (s *ReconcilerService) SweepLegacy(ctx context.Context) (*entity.SyncReport, error) {
	report := &entity.SyncReport{Provider: string(model.ProviderPayPalLegacy), StartedAt: time.Now()}

	offset := 0
	for {
		subs, err := s.subRepo.ListByProvider(ctx, model.ProviderPayPalLegacy, offset, s.batchSize)
		if err != nil {
			return report, fmt.Errorf("failed to list legacy subscriptions: %w", err)
		}
		if len(subs) == 0 {
			break
		}

		for i := range subs {
			sub := &subs[i]
			report.Checked++

			changed := false
			if sub.AmountCents == 0 && sub.PlanKey != "" {
				cents, interval, ok := LegacyPlanPrice(sub.PlanKey)
				if !ok {
					s.logger.Warn("Legacy plan key not in price table",
						zap.String("plan_key", sub.PlanKey),
						zap.String("provider_subscription_id", sub.ProviderSubscriptionID))
					continue
				}
				sub.AmountCents = cents
				sub.Interval = interval
				if interval == "lifetime" {
					sub.IsLifetime = true
				}
				changed = true
			}
			if !sub.IsLegacy {
				sub.IsLegacy = true
				changed = true
			}

			if !changed {
				continue
			}
			if err := s.subRepo.Update(ctx, sub); err != nil {
				report.Failed++
				report.Failures = append(report.Failures, entity.SyncFailure{
					ProviderSubscriptionID: sub.ProviderSubscriptionID,
					Provider:               string(sub.Provider),
					Reason:                 err.Error(),
				})
				continue
			}
			report.Updated++
		}

		offset += len(subs)
	}

	report.FinishedAt = time.Now()
	s.logger.Info("Legacy sweep finished",
		zap.Int("checked", report.Checked),
		zap.Int("updated", report.Updated),
		zap.Int("failed", report.Failed))

	return report, nil
}

// RelinkUnlinked attaches subscriptions that arrived without a user
// reference. PayPal approval flows create the subscription before our
// checkout callback runs, and Stripe webhook events carry an unexpanded
// customer, so webhook-inserted rows can miss the user. Rows whose
// subscriber email matches no user are reported and left for the next run.
func (s *ReconcilerService) RelinkUnlinked(ctx context.Context, p model.Provider) (*entity.SyncReport, error) {
	report := &entity.SyncReport{Provider: string(p), StartedAt: time.Now()}

	subs, err := s.subRepo.ListUnlinked(ctx, p)
	if err != nil {
		return report, fmt.Errorf("failed to list unlinked subscriptions: %w", err)
	}

	for i := range subs {
		sub := &subs[i]
		report.Checked++

		if sub.SubscriberEmail == "" {
			report.Failed++
			report.Failures = append(report.Failures, entity.SyncFailure{
				ProviderSubscriptionID: sub.ProviderSubscriptionID,
				Provider:               string(sub.Provider),
				Reason:                 "no subscriber email to resolve user",
			})
			continue
		}

		user, err := s.userRepo.GetByEmail(ctx, sub.SubscriberEmail)
		if err != nil {
			return report, fmt.Errorf("failed to resolve user by email: %w", err)
		}
		if user == nil {
			report.Failed++
			report.Failures = append(report.Failures, entity.SyncFailure{
				ProviderSubscriptionID: sub.ProviderSubscriptionID,
				Provider:               string(sub.Provider),
				Reason:                 fmt.Sprintf("no user for email %s", sub.SubscriberEmail),
			})
			continue
		}

		if err := s.subRepo.AttachUser(ctx, sub.ID, user.ID); err != nil {
			return report, fmt.Errorf("failed to attach user to subscription: %w", err)
		}
		sub.UserID = &user.ID
		report.Relinked++

		s.logger.Info("Relinked subscription to user",
			zap.String("provider_subscription_id", sub.ProviderSubscriptionID),
			zap.String("user_id", user.ID.String()))

		if err := s.syncUserRole(ctx, sub); err != nil {
			return report, err
		}
	}

	report.FinishedAt = time.Now()
	return report, nil
}
