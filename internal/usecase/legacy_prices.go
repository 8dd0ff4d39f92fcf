package usecase

import "github.com/shopspring/decimal"

// Legacy plan pricing. The old MySQL product stored plan names but not
// reliable amounts, so migrated subscriptions are priced from this table.
// Amounts are USD cents per billing interval.
var legacyPlanPrices = map[string]struct {
	Cents    int64
	Interval string
}{
	"starter_monthly":      {900, "month"},
	"starter_yearly":       {9000, "year"},
	"pro_monthly":          {1900, "month"},
	"pro_yearly":           {19000, "year"},
	"unlimited_monthly":    {2900, "month"},
	"unlimited_yearly":     {29000, "year"},
	"lifetime":             {0, "lifetime"},
	"grandfathered_legacy": {500, "month"},
}

// LegacyPlanPrice returns the price and interval for a legacy plan key.
func LegacyPlanPrice(planKey string) (cents int64, interval string, ok bool) {
	p, ok := legacyPlanPrices[planKey]
	if !ok {
		return 0, "", false
	}
	return p.Cents, p.Interval, true
}

var twelve = decimal.NewFromInt(12)
var hundred = decimal.NewFromInt(100)

// MonthlyAmount normalizes a subscription amount to dollars per month.
// Yearly plans are divided by 12; lifetime plans contribute nothing to MRR.
func MonthlyAmount(amountCents int64, interval string) decimal.Decimal {
	amount := decimal.NewFromInt(amountCents).Div(hundred)
	switch interval {
	case "year":
		return amount.Div(twelve).Round(2)
	case "lifetime":
		return decimal.Zero
	default:
		return amount
	}
}
