package repository

import (
	"context"

	"github.com/verbatone/billing/internal/domain/model"
)

// WebhookRepository stores received Stripe events for replay and dedup.
type WebhookRepository interface {
	// Save inserts the event. Returns (false, nil) when the event ID was
	// already stored, which callers treat as a duplicate delivery.
	Save(ctx context.Context, event *model.StripeWebhookEvent) (bool, error)

	// MarkCompleted records successful processing.
	MarkCompleted(ctx context.Context, eventID string) error

	// MarkFailed records a processing failure with its reason.
	MarkFailed(ctx context.Context, eventID string, reason string) error
}
