package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"github.com/verbatone/billing/internal/domain/model"
	"github.com/verbatone/billing/internal/domain/repository"
)

// WebhookService applies verified Stripe events through the same upsert path
// the reconciler uses, so a webhook and a reconciliation run can never
// disagree about how provider state lands locally.
type WebhookService struct {
	webhookRepo repository.WebhookRepository
	subRepo     repository.SubscriptionRepository
	payRepo     repository.PaymentHistoryRepository
	userRepo    repository.UserRepository
	logger      *zap.Logger
}

// NewWebhookService creates a new webhook service instance
func NewWebhookService(
	webhookRepo repository.WebhookRepository,
	subRepo repository.SubscriptionRepository,
	payRepo repository.PaymentHistoryRepository,
	userRepo repository.UserRepository,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		webhookRepo: webhookRepo,
		subRepo:     subRepo,
		payRepo:     payRepo,
		userRepo:    userRepo,
		logger:      logger,
	}
}

// Process stores and applies one verified Stripe event. Duplicate deliveries
// are acknowledged without reprocessing.
func (s *WebhookService) Process(ctx context.Context, event *stripe.Event) error {
	var payload model.JSONB
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		payload = model.JSONB{}
	}

	inserted, err := s.webhookRepo.Save(ctx, &model.StripeWebhookEvent{
		EventID:   event.ID,
		EventType: string(event.Type),
		Status:    model.WebhookStatusPending,
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("failed to store webhook event: %w", err)
	}
	if !inserted {
		s.logger.Info("Duplicate webhook delivery ignored",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)))
		return nil
	}

	if err := s.apply(ctx, event); err != nil {
		if markErr := s.webhookRepo.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
			s.logger.Error("Failed to mark webhook event failed",
				zap.String("event_id", event.ID),
				zap.Error(markErr))
		}
		return err
	}

	return s.webhookRepo.MarkCompleted(ctx, event.ID)
}

func (s *WebhookService) apply(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		return s.applySubscriptionEvent(ctx, event)

	case stripe.EventTypeInvoicePaymentSucceeded,
		stripe.EventTypeInvoicePaymentFailed:
		return s.applyInvoiceEvent(ctx, event)

	default:
		s.logger.Debug("Unhandled event type",
			zap.String("type", string(event.Type)))
		return nil
	}
}

func (s *WebhookService) applySubscriptionEvent(ctx context.Context, event *stripe.Event) error {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return fmt.Errorf("failed to parse subscription event: %w", err)
	}

	mapped, ok := MapProviderStatus(model.ProviderStripe, string(stripeSub.Status))
	if !ok {
		mapped = model.SubscriptionStatusIncomplete
	}
	if event.Type == stripe.EventTypeCustomerSubscriptionDeleted {
		mapped = model.SubscriptionStatusCanceled
	}

	sub := &model.Subscription{
		Provider:               model.ProviderStripe,
		ProviderSubscriptionID: stripeSub.ID,
		Status:                 mapped,
		CurrentPeriodStart:     time.Unix(stripeSub.CurrentPeriodStart, 0),
		CurrentPeriodEnd:       time.Unix(stripeSub.CurrentPeriodEnd, 0),
		CancelAtPeriodEnd:      stripeSub.CancelAtPeriodEnd,
	}
	if stripeSub.Customer != nil {
		sub.ProviderCustomerID = stripeSub.Customer.ID
		// Usually just an ID; the email only appears when the customer
		// object is expanded. Reconciliation backfills it otherwise.
		sub.SubscriberEmail = stripeSub.Customer.Email
	}
	if mapped == model.SubscriptionStatusCanceled {
		now := time.Now()
		sub.CanceledAt = &now
	}
	if stripeSub.Items != nil && len(stripeSub.Items.Data) > 0 && stripeSub.Items.Data[0].Price != nil {
		price := stripeSub.Items.Data[0].Price
		sub.AmountCents = price.UnitAmount
		sub.Currency = string(price.Currency)
		sub.PlanKey = price.ID
		if price.Recurring != nil {
			sub.Interval = string(price.Recurring.Interval)
		}
	}

	if err := s.subRepo.Upsert(ctx, sub); err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	s.logger.Info("Subscription event applied",
		zap.String("event_type", string(event.Type)),
		zap.String("provider_subscription_id", stripeSub.ID),
		zap.String("status", string(mapped)))

	return s.flipRoleAfterUpsert(ctx, sub)
}

func (s *WebhookService) applyInvoiceEvent(ctx context.Context, event *stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to parse invoice event: %w", err)
	}

	payment := &model.PaymentHistory{
		Provider:          model.ProviderStripe,
		ProviderPaymentID: invoice.ID,
		Currency:          string(invoice.Currency),
	}

	if event.Type == stripe.EventTypeInvoicePaymentSucceeded {
		payment.Status = model.PaymentStatusSucceeded
		payment.AmountCents = invoice.AmountPaid
		now := time.Now()
		payment.PaidAt = &now
	} else {
		payment.Status = model.PaymentStatusFailed
		payment.AmountCents = invoice.AmountDue
	}

	if invoice.Subscription != nil {
		local, err := s.subRepo.GetByProviderSubscriptionID(ctx, model.ProviderStripe, invoice.Subscription.ID)
		if err != nil {
			return fmt.Errorf("failed to look up subscription: %w", err)
		}
		if local != nil {
			payment.SubscriptionID = &local.ID
			payment.UserID = local.UserID
		}
	}

	if invoice.Lines != nil && len(invoice.Lines.Data) > 0 && invoice.Lines.Data[0].Period != nil {
		period := invoice.Lines.Data[0].Period
		start := time.Unix(period.Start, 0)
		end := time.Unix(period.End, 0)
		payment.PeriodStart = &start
		payment.PeriodEnd = &end
	}

	if err := s.payRepo.Record(ctx, payment); err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}

	s.logger.Info("Invoice event applied",
		zap.String("event_type", string(event.Type)),
		zap.String("invoice_id", invoice.ID),
		zap.Int64("amount_cents", payment.AmountCents))
	return nil
}

// flipRoleAfterUpsert mirrors the reconciler's role side effect for webhook
// driven changes.
func (s *WebhookService) flipRoleAfterUpsert(ctx context.Context, sub *model.Subscription) error {
	stored, err := s.subRepo.GetByProviderSubscriptionID(ctx, sub.Provider, sub.ProviderSubscriptionID)
	if err != nil {
		return fmt.Errorf("failed to reload subscription: %w", err)
	}
	if stored == nil || stored.UserID == nil {
		return nil
	}

	user, err := s.userRepo.GetByID(ctx, *stored.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil || user.Role == model.UserRoleAdmin {
		return nil
	}

	now := time.Now()
	current, err := s.subRepo.GetCurrentForUser(ctx, *stored.UserID, now)
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
	if err := s.userRepo.SetRole(ctx, user.ID, desired); err != nil {
		return fmt.Errorf("failed to set user role: %w", err)
	}
	return nil
}
