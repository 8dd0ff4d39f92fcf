package usecase_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"github.com/verbatone/billing/internal/domain/model"
	"github.com/verbatone/billing/internal/usecase"
)

// MockWebhookRepository is a mock implementation of WebhookRepository
type MockWebhookRepository struct {
	mock.Mock
}

func (m *MockWebhookRepository) Save(ctx context.Context, event *model.StripeWebhookEvent) (bool, error) {
	args := m.Called(ctx, event)
	return args.Bool(0), args.Error(1)
}

func (m *MockWebhookRepository) MarkCompleted(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func (m *MockWebhookRepository) MarkFailed(ctx context.Context, eventID string, reason string) error {
	args := m.Called(ctx, eventID, reason)
	return args.Error(0)
}

func stripeEvent(id string, eventType stripe.EventType, payload interface{}) *stripe.Event {
	raw, _ := json.Marshal(payload)
	return &stripe.Event{
		ID:   id,
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestWebhookService_Process(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	newService := func(webhookRepo *MockWebhookRepository, subRepo *MockSubscriptionRepository, payRepo *MockPaymentHistoryRepository, userRepo *MockUserRepository) *usecase.WebhookService {
		return usecase.NewWebhookService(webhookRepo, subRepo, payRepo, userRepo, logger)
	}

	t.Run("duplicate delivery is acknowledged without applying", func(t *testing.T) {
		webhookRepo := new(MockWebhookRepository)
		subRepo := new(MockSubscriptionRepository)
		payRepo := new(MockPaymentHistoryRepository)
		userRepo := new(MockUserRepository)
		service := newService(webhookRepo, subRepo, payRepo, userRepo)

		event := stripeEvent("evt_dup", stripe.EventTypeCustomerSubscriptionUpdated, map[string]string{"id": "sub_1"})
		webhookRepo.On("Save", ctx, mock.MatchedBy(func(e *model.StripeWebhookEvent) bool {
			return e.EventID == "evt_dup"
		})).Return(false, nil)

		err := service.Process(ctx, event)

		assert.NoError(t, err)
		subRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		webhookRepo.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything)
	})

	t.Run("subscription deleted event cancels locally", func(t *testing.T) {
		webhookRepo := new(MockWebhookRepository)
		subRepo := new(MockSubscriptionRepository)
		payRepo := new(MockPaymentHistoryRepository)
		userRepo := new(MockUserRepository)
		service := newService(webhookRepo, subRepo, payRepo, userRepo)

		userID := uuid.New()
		periodEnd := time.Now().Add(120 * time.Hour)
		event := stripeEvent("evt_del", stripe.EventTypeCustomerSubscriptionDeleted, map[string]interface{}{
			"id":                 "sub_del",
			"status":             "canceled",
			"current_period_end": periodEnd.Unix(),
		})

		webhookRepo.On("Save", ctx, mock.Anything).Return(true, nil)
		subRepo.On("Upsert", ctx, mock.MatchedBy(func(sub *model.Subscription) bool {
			return sub.ProviderSubscriptionID == "sub_del" &&
				sub.Status == model.SubscriptionStatusCanceled &&
				sub.CanceledAt != nil
		})).Return(nil)
		stored := &model.Subscription{
			ID:                     1,
			UserID:                 &userID,
			Provider:               model.ProviderStripe,
			ProviderSubscriptionID: "sub_del",
			Status:                 model.SubscriptionStatusCanceled,
			CurrentPeriodEnd:       periodEnd,
		}
		subRepo.On("GetByProviderSubscriptionID", ctx, model.ProviderStripe, "sub_del").Return(stored, nil)
		userRepo.On("GetByID", ctx, userID).Return(&model.User{ID: userID, Role: model.UserRolePremium}, nil)
		// Still in grace, so the role stays premium.
		subRepo.On("GetCurrentForUser", ctx, userID, mock.AnythingOfType("time.Time")).Return(stored, nil)
		webhookRepo.On("MarkCompleted", ctx, "evt_del").Return(nil)

		err := service.Process(ctx, event)

		assert.NoError(t, err)
		userRepo.AssertNotCalled(t, "SetRole", mock.Anything, mock.Anything, mock.Anything)
		webhookRepo.AssertExpectations(t)
	})

	t.Run("invoice payment succeeded records a payment", func(t *testing.T) {
		webhookRepo := new(MockWebhookRepository)
		subRepo := new(MockSubscriptionRepository)
		payRepo := new(MockPaymentHistoryRepository)
		userRepo := new(MockUserRepository)
		service := newService(webhookRepo, subRepo, payRepo, userRepo)

		userID := uuid.New()
		event := stripeEvent("evt_inv", stripe.EventTypeInvoicePaymentSucceeded, map[string]interface{}{
			"id":           "in_123",
			"amount_paid":  1900,
			"currency":     "usd",
			"subscription": map[string]interface{}{"id": "sub_1"},
		})

		webhookRepo.On("Save", ctx, mock.Anything).Return(true, nil)
		subRepo.On("GetByProviderSubscriptionID", ctx, model.ProviderStripe, "sub_1").
			Return(&model.Subscription{ID: 9, UserID: &userID}, nil)
		payRepo.On("Record", ctx, mock.MatchedBy(func(p *model.PaymentHistory) bool {
			return p.ProviderPaymentID == "in_123" &&
				p.Status == model.PaymentStatusSucceeded &&
				p.AmountCents == 1900 &&
				p.SubscriptionID != nil && *p.SubscriptionID == 9
		})).Return(nil)
		webhookRepo.On("MarkCompleted", ctx, "evt_inv").Return(nil)

		err := service.Process(ctx, event)

		assert.NoError(t, err)
		payRepo.AssertExpectations(t)
	})

	t.Run("invoice payment failed records a failed payment", func(t *testing.T) {
		webhookRepo := new(MockWebhookRepository)
		subRepo := new(MockSubscriptionRepository)
		payRepo := new(MockPaymentHistoryRepository)
		userRepo := new(MockUserRepository)
		service := newService(webhookRepo, subRepo, payRepo, userRepo)

		event := stripeEvent("evt_fail", stripe.EventTypeInvoicePaymentFailed, map[string]interface{}{
			"id":         "in_999",
			"amount_due": 2900,
			"currency":   "usd",
		})

		webhookRepo.On("Save", ctx, mock.Anything).Return(true, nil)
		payRepo.On("Record", ctx, mock.MatchedBy(func(p *model.PaymentHistory) bool {
			return p.ProviderPaymentID == "in_999" &&
				p.Status == model.PaymentStatusFailed &&
				p.AmountCents == 2900 &&
				p.PaidAt == nil
		})).Return(nil)
		webhookRepo.On("MarkCompleted", ctx, "evt_fail").Return(nil)

		err := service.Process(ctx, event)

		assert.NoError(t, err)
		payRepo.AssertExpectations(t)
	})

	t.Run("apply failure is recorded on the event", func(t *testing.T) {
		webhookRepo := new(MockWebhookRepository)
		subRepo := new(MockSubscriptionRepository)
		payRepo := new(MockPaymentHistoryRepository)
		userRepo := new(MockUserRepository)
		service := newService(webhookRepo, subRepo, payRepo, userRepo)

		event := stripeEvent("evt_bad", stripe.EventTypeCustomerSubscriptionUpdated, map[string]interface{}{
			"id":     "sub_bad",
			"status": "active",
		})

		webhookRepo.On("Save", ctx, mock.Anything).Return(true, nil)
		subRepo.On("Upsert", ctx, mock.Anything).Return(assert.AnError)
		webhookRepo.On("MarkFailed", ctx, "evt_bad", mock.AnythingOfType("string")).Return(nil)

		err := service.Process(ctx, event)

		assert.Error(t, err)
		webhookRepo.AssertExpectations(t)
	})

	t.Run("unhandled event types complete without side effects", func(t *testing.T) {
		webhookRepo := new(MockWebhookRepository)
		subRepo := new(MockSubscriptionRepository)
		payRepo := new(MockPaymentHistoryRepository)
		userRepo := new(MockUserRepository)
		service := newService(webhookRepo, subRepo, payRepo, userRepo)

		event := stripeEvent("evt_other", "charge.refund.updated", map[string]string{"id": "re_1"})

		webhookRepo.On("Save", ctx, mock.Anything).Return(true, nil)
		webhookRepo.On("MarkCompleted", ctx, "evt_other").Return(nil)

		err := service.Process(ctx, event)

		assert.NoError(t, err)
		subRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		payRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})
}
