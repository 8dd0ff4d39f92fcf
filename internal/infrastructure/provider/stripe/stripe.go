package stripe

import (
	"context"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/subscription"
	"go.uber.org/zap"

	"github.com/verbatone/billing/internal/domain/provider"
)

// StripeProvider implements the BillingProvider interface on the Stripe API.
type StripeProvider struct {
	logger *zap.Logger
}

// NewStripeProvider creates a new Stripe provider. The package-level Stripe
// key must already be set.
func NewStripeProvider(secretKey string, logger *zap.Logger) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{logger: logger}
}

// Name returns the provider name
func (s *StripeProvider) Name() string {
	return "stripe"
}

// GetSubscription fetches the provider's current view of a subscription.
func (s *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*provider.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	params.AddExpand("items.data.price")
	params.AddExpand("customer")

	sub, err := subscription.Get(subscriptionID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return nil, provider.ErrSubscriptionNotFound
		}
		return nil, &provider.ProviderError{
			Code:    "STRIPE_API_ERROR",
			Message: "failed to fetch subscription from Stripe",
			Details: err.Error(),
		}
	}

	return s.toProviderSubscription(sub), nil
}

// ListActiveSubscriptions lists every subscription Stripe considers active.
func (s *StripeProvider) ListActiveSubscriptions(ctx context.Context) ([]*provider.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Status: stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Context = ctx
	params.AddExpand("data.items.data.price")
	params.AddExpand("data.customer")

	var subs []*provider.Subscription
	iter := subscription.List(params)
	for iter.Next() {
		subs = append(subs, s.toProviderSubscription(iter.Subscription()))
	}
	if err := iter.Err(); err != nil {
		return nil, &provider.ProviderError{
			Code:    "STRIPE_API_ERROR",
			Message: "failed to list subscriptions from Stripe",
			Details: err.Error(),
		}
	}

	s.logger.Debug("Listed active Stripe subscriptions",
		zap.Int("count", len(subs)))
	return subs, nil
}

// CancelSubscription cancels at period end so access persists through the
// paid period.
func (s *StripeProvider) CancelSubscription(ctx context.Context, subscriptionID string, reason string) error {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx
	if reason != "" {
		params.CancellationDetails = &stripe.SubscriptionCancellationDetailsParams{
			Comment: stripe.String(reason),
		}
	}

	if _, err := subscription.Update(subscriptionID, params); err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return provider.ErrSubscriptionNotFound
		}
		return &provider.ProviderError{
			Code:    "STRIPE_API_ERROR",
			Message: "failed to cancel subscription at Stripe",
			Details: err.Error(),
		}
	}
	return nil
}

func (s *StripeProvider) toProviderSubscription(sub *stripe.Subscription) *provider.Subscription {
	out := &provider.Subscription{
		ID:                 sub.ID,
		Status:             string(sub.Status),
		CurrentPeriodStart: time.Unix(sub.CurrentPeriodStart, 0),
		CurrentPeriodEnd:   time.Unix(sub.CurrentPeriodEnd, 0),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CreatedAt:          time.Unix(sub.Created, 0),
	}

	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
		out.SubscriberEmail = sub.Customer.Email
	}

	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		price := sub.Items.Data[0].Price
		out.PlanKey = price.ID
		out.AmountCents = price.UnitAmount
		out.Currency = string(price.Currency)
		if price.Recurring != nil {
			out.Interval = string(price.Recurring.Interval)
		}
	}

	return out
}
