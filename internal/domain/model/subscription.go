package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus is the internal status vocabulary every provider status
// is mapped into.
type SubscriptionStatus string

const (
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusPaused     SubscriptionStatus = "paused"
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
)

// Scan implements sql.Scanner interface
func (s *SubscriptionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = SubscriptionStatus(v)
	case []byte:
		*s = SubscriptionStatus(v)
	default:
		*s = SubscriptionStatusIncomplete
	}
	return nil
}

// Value implements driver.Valuer interface
func (s SubscriptionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Provider identifies which payment account a subscription is billed through.
type Provider string

const (
	ProviderStripe       Provider = "stripe"
	ProviderPayPal       Provider = "paypal"
	ProviderPayPalLegacy Provider = "paypal_legacy"
)

// Subscription represents a user's subscription as stored locally. Provider
// truth is reconciled into this row; the unique provider_subscription_id
// constraint is what keeps discovery and webhook inserts idempotent.
type Subscription struct {
	ID                     int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID                 *uuid.UUID         `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Provider               Provider           `gorm:"type:billing_provider;not null;index" json:"provider"`
	ProviderSubscriptionID string             `gorm:"uniqueIndex;size:100;not null" json:"provider_subscription_id"`
	ProviderCustomerID     string             `gorm:"size:100;index" json:"provider_customer_id"`
	PlanKey                string             `gorm:"size:100" json:"plan_key"`
	AmountCents            int64              `gorm:"not null;default:0" json:"amount_cents"`
	Currency               string             `gorm:"size:3;default:'USD'" json:"currency"`
	Interval               string             `gorm:"size:20;default:'month'" json:"interval"`
	Status                 SubscriptionStatus `gorm:"type:subscription_status;not null;default:'incomplete'" json:"status"`
	CurrentPeriodStart     time.Time          `json:"current_period_start"`
	CurrentPeriodEnd       time.Time          `json:"current_period_end"`
	CancelAtPeriodEnd      bool               `gorm:"default:false" json:"cancel_at_period_end"`
	CanceledAt             *time.Time         `json:"canceled_at,omitempty"`
	IsLegacy               bool               `gorm:"default:false;index" json:"is_legacy"`
	LegacyID               *int64             `gorm:"index" json:"legacy_id,omitempty"`
	IsLifetime             bool               `gorm:"default:false" json:"is_lifetime"`
	SubscriberEmail        string             `gorm:"size:255" json:"subscriber_email,omitempty"`
	ProviderData           JSONB              `gorm:"type:jsonb" json:"provider_data,omitempty"`
	LastSyncedAt           *time.Time         `json:"last_synced_at,omitempty"`
	CreatedAt              time.Time          `gorm:"default:now()" json:"created_at"`
	UpdatedAt              time.Time          `gorm:"default:now()" json:"updated_at"`
}

// InGracePeriod reports whether a canceled subscription still grants access
// because the paid period has not yet run out.
func (s *Subscription) InGracePeriod(now time.Time) bool {
	return s.Status == SubscriptionStatusCanceled && now.Before(s.CurrentPeriodEnd)
}

// GrantsAccess reports whether the subscription currently entitles the user
// to the paid tier.
func (s *Subscription) GrantsAccess(now time.Time) bool {
	switch s.Status {
	case SubscriptionStatusActive, SubscriptionStatusPastDue:
		return true
	case SubscriptionStatusCanceled:
		return s.InGracePeriod(now)
	default:
		return false
	}
}

// JSONB represents a JSONB database type
type JSONB map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONB) Scan(src interface{}) error {
	if src == nil {
		*j = nil
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		*j = make(JSONB)
		return nil
	}
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}
