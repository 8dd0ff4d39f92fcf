package usecase

import (
	"strings"

	"github.com/verbatone/billing/internal/domain/model"
)

// MapProviderStatus maps one provider's status vocabulary onto the internal
// enum. The second return value is false when the status is unknown, in which
// case callers keep the local status instead of guessing.
func MapProviderStatus(p model.Provider, providerStatus string) (model.SubscriptionStatus, bool) {
	switch p {
	case model.ProviderStripe:
		return mapStripeStatus(providerStatus)
	case model.ProviderPayPal, model.ProviderPayPalLegacy:
		return mapPayPalStatus(providerStatus)
	default:
		return "", false
	}
}

func mapStripeStatus(status string) (model.SubscriptionStatus, bool) {
	switch status {
	case "active", "trialing":
		return model.SubscriptionStatusActive, true
	case "past_due", "unpaid":
		return model.SubscriptionStatusPastDue, true
	case "canceled", "incomplete_expired":
		return model.SubscriptionStatusCanceled, true
	case "incomplete":
		return model.SubscriptionStatusIncomplete, true
	case "paused":
		return model.SubscriptionStatusPaused, true
	default:
		return "", false
	}
}

func mapPayPalStatus(status string) (model.SubscriptionStatus, bool) {
	switch strings.ToUpper(status) {
	case "ACTIVE":
		return model.SubscriptionStatusActive, true
	case "SUSPENDED":
		return model.SubscriptionStatusPaused, true
	case "CANCELLED", "EXPIRED":
		return model.SubscriptionStatusCanceled, true
	case "APPROVAL_PENDING", "APPROVED":
		return model.SubscriptionStatusIncomplete, true
	default:
		return "", false
	}
}
