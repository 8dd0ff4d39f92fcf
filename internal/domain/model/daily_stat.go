package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyStat is one snapshot row for the admin historical charts. Snapshots
// are recomputed idempotently; the date column is the upsert key.
type DailyStat struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Date              time.Time       `gorm:"type:date;uniqueIndex;not null" json:"date"`
	MRR               decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"mrr"`
	ActiveCount       int             `gorm:"not null" json:"active_count"`
	NewCount          int             `gorm:"not null" json:"new_count"`
	CanceledCount     int             `gorm:"not null" json:"canceled_count"`
	LegacyActiveCount int             `gorm:"not null" json:"legacy_active_count"`
	CreatedAt         time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (DailyStat) TableName() string {
	return "daily_stats"
}
