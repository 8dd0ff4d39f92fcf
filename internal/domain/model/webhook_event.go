package model

import (
	"database/sql/driver"
	"time"
)

// WebhookStatus represents the processing state of a stored webhook event
type WebhookStatus string

const (
	WebhookStatusPending   WebhookStatus = "pending"
	WebhookStatusCompleted WebhookStatus = "completed"
	WebhookStatusFailed    WebhookStatus = "failed"
)

// Scan implements sql.Scanner interface
func (s *WebhookStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = WebhookStatus(v)
	case []byte:
		*s = WebhookStatus(v)
	default:
		*s = WebhookStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (s WebhookStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// StripeWebhookEvent stores every received Stripe event. The unique event ID
// deduplicates Stripe's at-least-once delivery.
type StripeWebhookEvent struct {
	ID          int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID     string        `gorm:"uniqueIndex;size:100;not null" json:"event_id"`
	EventType   string        `gorm:"size:100;not null;index" json:"event_type"`
	Status      WebhookStatus `gorm:"type:webhook_status;not null;default:'pending'" json:"status"`
	Payload     JSONB         `gorm:"type:jsonb" json:"payload,omitempty"`
	Error       *string       `json:"error,omitempty"`
	ProcessedAt *time.Time    `json:"processed_at,omitempty"`
	CreatedAt   time.Time     `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (StripeWebhookEvent) TableName() string {
	return "stripe_webhook_events"
}
