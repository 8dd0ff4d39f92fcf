package provider

import (
	"context"
	"errors"
	"time"
)

// BillingProvider defines the read surface the reconciler needs from a
// payment provider (Stripe, PayPal, PayPal legacy).
type BillingProvider interface {
	// GetSubscription fetches the provider's current view of a subscription.
	// Returns ErrSubscriptionNotFound when the provider no longer knows it.
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)

	// ListActiveSubscriptions lists every subscription the provider
	// considers active, for the discovery pass.
	ListActiveSubscriptions(ctx context.Context) ([]*Subscription, error)

	// CancelSubscription cancels a subscription at the provider. Access is
	// expected to persist until the current period end.
	CancelSubscription(ctx context.Context, subscriptionID string, reason string) error

	// Name returns the provider name
	Name() string
}

// ErrSubscriptionNotFound distinguishes "the provider has no such
// subscription" from a transport or auth failure. The reconciler treats the
// former as a cancellation signal and the latter as a retryable error.
var ErrSubscriptionNotFound = errors.New("subscription not found at provider")

// Subscription is the provider-agnostic view of a remote subscription.
type Subscription struct {
	ID                 string                 `json:"id"`
	CustomerID         string                 `json:"customer_id"`
	SubscriberEmail    string                 `json:"subscriber_email,omitempty"`
	Status             string                 `json:"status"` // provider vocabulary, not yet mapped
	PlanKey            string                 `json:"plan_key,omitempty"`
	AmountCents        int64                  `json:"amount_cents"`
	Currency           string                 `json:"currency"`
	Interval           string                 `json:"interval"`
	CurrentPeriodStart time.Time              `json:"current_period_start"`
	CurrentPeriodEnd   time.Time              `json:"current_period_end"`
	CancelAtPeriodEnd  bool                   `json:"cancel_at_period_end"`
	CreatedAt          time.Time              `json:"created_at"`
	Raw                map[string]interface{} `json:"raw,omitempty"`
}

// ProviderError wraps provider API failures
type ProviderError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}
