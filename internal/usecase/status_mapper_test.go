package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/verbatone/billing/internal/domain/model"
	"github.com/verbatone/billing/internal/usecase"
)

func TestMapProviderStatus_Stripe(t *testing.T) {
	cases := []struct {
		providerStatus string
		want           model.SubscriptionStatus
		known          bool
	}{
		{"active", model.SubscriptionStatusActive, true},
		{"trialing", model.SubscriptionStatusActive, true},
		{"past_due", model.SubscriptionStatusPastDue, true},
		{"unpaid", model.SubscriptionStatusPastDue, true},
		{"canceled", model.SubscriptionStatusCanceled, true},
		{"incomplete", model.SubscriptionStatusIncomplete, true},
		{"incomplete_expired", model.SubscriptionStatusCanceled, true},
		{"paused", model.SubscriptionStatusPaused, true},
		{"some_future_status", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.providerStatus, func(t *testing.T) {
			got, ok := usecase.MapProviderStatus(model.ProviderStripe, tc.providerStatus)
			assert.Equal(t, tc.known, ok)
			if tc.known {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestMapProviderStatus_PayPal(t *testing.T) {
	cases := []struct {
		providerStatus string
		want           model.SubscriptionStatus
		known          bool
	}{
		{"ACTIVE", model.SubscriptionStatusActive, true},
		{"SUSPENDED", model.SubscriptionStatusPaused, true},
		{"CANCELLED", model.SubscriptionStatusCanceled, true},
		{"EXPIRED", model.SubscriptionStatusCanceled, true},
		{"APPROVAL_PENDING", model.SubscriptionStatusIncomplete, true},
		{"APPROVED", model.SubscriptionStatusIncomplete, true},
		{"SOMETHING_NEW", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.providerStatus, func(t *testing.T) {
			got, ok := usecase.MapProviderStatus(model.ProviderPayPal, tc.providerStatus)
			assert.Equal(t, tc.known, ok)
			if tc.known {
				assert.Equal(t, tc.want, got)
			}
		})
	}

	t.Run("legacy account uses the same vocabulary", func(t *testing.T) {
		got, ok := usecase.MapProviderStatus(model.ProviderPayPalLegacy, "ACTIVE")
		assert.True(t, ok)
		assert.Equal(t, model.SubscriptionStatusActive, got)
	})
}
