package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/verbatone/billing/internal/domain/entity"
	"github.com/verbatone/billing/internal/domain/model"
	"github.com/verbatone/billing/internal/domain/provider"
	"github.com/verbatone/billing/internal/domain/repository"
)

const defaultBatchSize = 200

// ReconcilerService compares locally stored subscriptions against provider
// truth and corrects drift. Runs are idempotent: every write is either an
// upsert keyed on a provider ID or a no-op when nothing drifted.
type ReconcilerService struct {
	providers map[model.Provider]provider.BillingProvider
	subRepo   repository.SubscriptionRepository
	payRepo   repository.PaymentHistoryRepository
	userRepo  repository.UserRepository
	logger    *zap.Logger
	batchSize int
}

// NewReconcilerService creates a new reconciler service instance
func NewReconcilerService(
	providers map[model.Provider]provider.BillingProvider,
	subRepo repository.SubscriptionRepository,
	payRepo repository.PaymentHistoryRepository,
	userRepo repository.UserRepository,
	batchSize int,
	logger *zap.Logger,
) *ReconcilerService {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &ReconcilerService{
		providers: providers,
		subRepo:   subRepo,
		payRepo:   payRepo,
		userRepo:  userRepo,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Reconcile walks every locally stored subscription for the given providers
// and syncs it against the provider. A nil provider list means all configured
// providers. Per-subscription failures are collected in the report; only
// infrastructure failures abort the run.
func (s *ReconcilerService) Reconcile(ctx context.Context, only []model.Provider) (*entity.SyncReport, error) {
	report := &entity.SyncReport{StartedAt: time.Now()}

	for _, p := range s.selectProviders(only) {
		client := s.providers[p]
		offset := 0
		for {
			subs, err := s.subRepo.ListByProvider(ctx, p, offset, s.batchSize)
			if err != nil {
				return report, fmt.Errorf("failed to list subscriptions for %s: %w", p, err)
			}
			if len(subs) == 0 {
				break
			}

			for i := range subs {
				sub := &subs[i]
				report.Checked++
				if err := s.reconcileOne(ctx, client, sub, report); err != nil {
					report.Failed++
					report.Failures = append(report.Failures, entity.SyncFailure{
						ProviderSubscriptionID: sub.ProviderSubscriptionID,
						Provider:               string(p),
						Reason:                 err.Error(),
					})
					s.logger.Error("Failed to reconcile subscription",
						zap.String("provider", string(p)),
						zap.String("provider_subscription_id", sub.ProviderSubscriptionID),
						zap.Error(err))
				}
			}

			offset += len(subs)
		}
	}

	report.FinishedAt = time.Now()
	s.logger.Info("Reconciliation run finished",
		zap.Int("checked", report.Checked),
		zap.Int("updated", report.Updated),
		zap.Int("canceled", report.Canceled),
		zap.Int("failed", report.Failed))

	return report, nil
}

// reconcileOne syncs a single local subscription against provider truth.
func (s *ReconcilerService) reconcileOne(ctx context.Context, client provider.BillingProvider, sub *model.Subscription, report *entity.SyncReport) error {
	remote, err := s.fetchWithRetry(ctx, client, sub.ProviderSubscriptionID)
	if err != nil {
		if errors.Is(err, provider.ErrSubscriptionNotFound) {
			return s.handleMissingAtProvider(ctx, sub, report)
		}
		return fmt.Errorf("failed to fetch provider subscription: %w", err)
	}

	mapped, ok := MapProviderStatus(sub.Provider, remote.Status)
	if !ok {
		// Unknown vocabulary: keep the local status rather than guessing.
		s.logger.Warn("Unknown provider status, keeping local status",
			zap.String("provider", string(sub.Provider)),
			zap.String("provider_subscription_id", sub.ProviderSubscriptionID),
			zap.String("provider_status", remote.Status))
		mapped = sub.Status
	}

	drifted := false
	if sub.Status != mapped {
		s.logger.Info("Subscription status drifted",
			zap.String("provider_subscription_id", sub.ProviderSubscriptionID),
			zap.String("local_status", string(sub.Status)),
			zap.String("provider_status", remote.Status),
			zap.String("mapped_status", string(mapped)))
		sub.Status = mapped
		if mapped == model.SubscriptionStatusCanceled && sub.CanceledAt == nil {
			now := time.Now()
			sub.CanceledAt = &now
		}
		drifted = true
	}

	newPeriod := false
	if !remote.CurrentPeriodEnd.IsZero() && !remote.CurrentPeriodEnd.Equal(sub.CurrentPeriodEnd) {
		newPeriod = remote.CurrentPeriodEnd.After(sub.CurrentPeriodEnd)
		sub.CurrentPeriodStart = remote.CurrentPeriodStart
		sub.CurrentPeriodEnd = remote.CurrentPeriodEnd
		drifted = true
	}
	if sub.CancelAtPeriodEnd != remote.CancelAtPeriodEnd {
		sub.CancelAtPeriodEnd = remote.CancelAtPeriodEnd
		drifted = true
	}
	if remote.AmountCents > 0 && sub.AmountCents != remote.AmountCents {
		sub.AmountCents = remote.AmountCents
		sub.Currency = remote.Currency
		sub.Interval = remote.Interval
		drifted = true
	}
	// Webhook-created rows arrive with an unexpanded customer, so the email
	// and customer reference only become known once provider truth is
	// fetched here.
	if remote.SubscriberEmail != "" && sub.SubscriberEmail == "" {
		sub.SubscriberEmail = remote.SubscriberEmail
		drifted = true
	}
	if remote.CustomerID != "" && sub.ProviderCustomerID == "" {
		sub.ProviderCustomerID = remote.CustomerID
		drifted = true
	}

	now := time.Now()
	sub.LastSyncedAt = &now
	if err := s.subRepo.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if drifted {
		report.Updated++
	}

	// A newly paid period shows up as an advanced period end while the
	// subscription stays active. Record it so revenue history survives
	// missed invoice webhooks; the unique payment key absorbs replays.
	if newPeriod && mapped == model.SubscriptionStatusActive {
		payment := &model.PaymentHistory{
			UserID:            sub.UserID,
			SubscriptionID:    &sub.ID,
			Provider:          sub.Provider,
			ProviderPaymentID: fmt.Sprintf("%s:period:%d", sub.ProviderSubscriptionID, remote.CurrentPeriodStart.Unix()),
			AmountCents:       sub.AmountCents,
			Currency:          sub.Currency,
			Status:            model.PaymentStatusSucceeded,
			PeriodStart:       &remote.CurrentPeriodStart,
			PeriodEnd:         &remote.CurrentPeriodEnd,
			PaidAt:            &remote.CurrentPeriodStart,
		}
		if err := s.payRepo.Record(ctx, payment); err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}
	}

	if sub.UserID == nil {
		if err := s.attachByEmail(ctx, sub, report); err != nil {
			return err
		}
	}

	return s.syncUserRole(ctx, sub)
}

// attachByEmail links an unlinked subscription to the account matching its
// subscriber email. Rows with no resolvable user stay unlinked for later
// runs.
func (s *ReconcilerService) attachByEmail(ctx context.Context, sub *model.Subscription, report *entity.SyncReport) error {
	if sub.SubscriberEmail == "" {
		return nil
	}

	user, err := s.userRepo.GetByEmail(ctx, sub.SubscriberEmail)
	if err != nil {
		return fmt.Errorf("failed to resolve user by email: %w", err)
	}
	if user == nil {
		return nil
	}

	if err := s.subRepo.AttachUser(ctx, sub.ID, user.ID); err != nil {
		return fmt.Errorf("failed to attach user to subscription: %w", err)
	}
	sub.UserID = &user.ID
	report.Relinked++

	s.logger.Info("Attached subscription to user",
		zap.String("provider", string(sub.Provider)),
		zap.String("provider_subscription_id", sub.ProviderSubscriptionID),
		zap.String("user_id", user.ID.String()))
	return nil
}

// handleMissingAtProvider cancels a subscription the provider no longer
// knows. Period fields stay intact so the grace period keeps working.
func (s *ReconcilerService) handleMissingAtProvider(ctx context.Context, sub *model.Subscription, report *entity.SyncReport) error {
	if sub.Status == model.SubscriptionStatusCanceled {
		return nil
	}

	s.logger.Warn("Subscription missing at provider, marking canceled",
		zap.String("provider", string(sub.Provider)),
		zap.String("provider_subscription_id", sub.ProviderSubscriptionID))

	if err := s.subRepo.MarkCanceled(ctx, sub.ID, time.Now()); err != nil {
		return fmt.Errorf("failed to mark subscription canceled: %w", err)
	}
	sub.Status = model.SubscriptionStatusCanceled
	report.Canceled++

	return s.syncUserRole(ctx, sub)
}

// syncUserRole flips the owning user between premium and free based on
// whether any of their subscriptions still grants access. Admins are left
// alone.
func (s *ReconcilerService) syncUserRole(ctx context.Context, sub *model.Subscription) error {
	if sub.UserID == nil {
		return nil
	}

	user, err := s.userRepo.GetByID(ctx, *sub.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil || user.Role == model.UserRoleAdmin {
		return nil
	}

	now := time.Now()
	current, err := s.subRepo.GetCurrentForUser(ctx, *sub.UserID, now)
	if err != nil {
		return fmt.Errorf("failed to load current subscription: %w", err)
	}

	desired := model.UserRoleFree
	if current != nil && current.GrantsAccess(now) {
		desired = model.UserRolePremium
	}

	if user.Role == desired {
		return nil
	}

	s.logger.Info("Flipping user role",
		zap.String("user_id", user.ID.String()),
		zap.String("from", string(user.Role)),
		zap.String("to", string(desired)))

	if err := s.userRepo.SetRole(ctx, user.ID, desired); err != nil {
		return fmt.Errorf("failed to set user role: %w", err)
	}
	return nil
}

// fetchWithRetry retries transient provider failures with capped exponential
// backoff. Not-found is terminal, not transient.
func (s *ReconcilerService) fetchWithRetry(ctx context.Context, client provider.BillingProvider, subscriptionID string) (*provider.Subscription, error) {
	var remote *provider.Subscription

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		remote, err = client.GetSubscription(ctx, subscriptionID)
		if err != nil && !errors.Is(err, provider.ErrSubscriptionNotFound) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return remote, nil
}

func (s *ReconcilerService) selectProviders(only []model.Provider) []model.Provider {
	// Stable order keeps run logs comparable.
	order := []model.Provider{model.ProviderStripe, model.ProviderPayPal, model.ProviderPayPalLegacy}

	var selected []model.Provider
	for _, p := range order {
		if _, ok := s.providers[p]; !ok {
			continue
		}
		if len(only) == 0 {
			selected = append(selected, p)
			continue
		}
		for _, o := range only {
			if o == p {
				selected = append(selected, p)
				break
			}
		}
	}
	return selected
}
