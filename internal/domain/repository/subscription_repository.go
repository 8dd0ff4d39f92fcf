package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/verbatone/billing/internal/domain/model"
)

// SubscriptionRepository persists locally known subscriptions. Lookups that
// find nothing return (nil, nil) rather than an error.
type SubscriptionRepository interface {
	// GetByProviderSubscriptionID looks a subscription up by its provider ID.
	GetByProviderSubscriptionID(ctx context.Context, provider model.Provider, providerSubID string) (*model.Subscription, error)

	// GetCurrentForUser returns the user's most relevant subscription:
	// active or past_due first, then a canceled one still in grace.
	GetCurrentForUser(ctx context.Context, userID uuid.UUID, now time.Time) (*model.Subscription, error)

	// ListByProvider pages through all subscriptions billed by a provider.
	ListByProvider(ctx context.Context, p model.Provider, offset, limit int) ([]model.Subscription, error)

	// ListActive returns every subscription in active or past_due status.
	ListActive(ctx context.Context) ([]model.Subscription, error)

	// ListUnlinked returns subscriptions with no owning user, for the
	// relink fix pass.
	ListUnlinked(ctx context.Context, p model.Provider) ([]model.Subscription, error)

	// Upsert inserts the subscription or, when the provider subscription ID
	// is already known, updates the drifted fields.
	Upsert(ctx context.Context, sub *model.Subscription) error

	// Update persists changes to an existing row.
	Update(ctx context.Context, sub *model.Subscription) error

	// MarkCanceled flips a subscription to canceled, keeping period fields
	// intact so the grace period stays observable.
	MarkCanceled(ctx context.Context, id int64, canceledAt time.Time) error

	// AttachUser links an unlinked subscription to a user.
	AttachUser(ctx context.Context, id int64, userID uuid.UUID) error
}
