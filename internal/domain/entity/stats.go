package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BusinessStats is the admin dashboard summary.
type BusinessStats struct {
	MRR               decimal.Decimal `json:"mrr"`
	ARPU              decimal.Decimal `json:"arpu"`
	LTV               decimal.Decimal `json:"ltv"`
	ChurnRate         decimal.Decimal `json:"churn_rate"`
	ActiveCount       int             `json:"active_count"`
	GraceCount        int             `json:"grace_count"`
	LegacyActiveCount int             `json:"legacy_active_count"`
	ComputedAt        time.Time       `json:"computed_at"`
}

// HistoricalPoint is one day of the admin historical charts.
type HistoricalPoint struct {
	Date          time.Time       `json:"date"`
	MRR           decimal.Decimal `json:"mrr"`
	ActiveCount   int             `json:"active_count"`
	NewCount      int             `json:"new_count"`
	CanceledCount int             `json:"canceled_count"`
}
