package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentHistory records one observed provider payment. Rows are inserted by
// webhook processing and by reconciliation runs; the unique provider_payment_id
// constraint makes both paths safe to replay.
type PaymentHistory struct {
	ID                int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	SubscriptionID    *int64     `gorm:"index" json:"subscription_id,omitempty"`
	Provider          Provider   `gorm:"type:billing_provider;not null" json:"provider"`
	ProviderPaymentID string     `gorm:"uniqueIndex;size:120;not null" json:"provider_payment_id"`
	AmountCents       int64      `gorm:"not null" json:"amount_cents"`
	Currency          string     `gorm:"size:3;default:'USD'" json:"currency"`
	Status            string     `gorm:"size:50;not null" json:"status"`
	PeriodStart       *time.Time `json:"period_start,omitempty"`
	PeriodEnd         *time.Time `json:"period_end,omitempty"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
	ProviderData      JSONB      `gorm:"type:jsonb" json:"provider_data,omitempty"`
	CreatedAt         time.Time  `gorm:"default:now()" json:"created_at"`

	// Relations
	Subscription *Subscription `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
}

const (
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// TableName specifies the table name for GORM
func (PaymentHistory) TableName() string {
	return "payment_history"
}
