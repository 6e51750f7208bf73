package orders

import "github.com/shopspring/decimal"

// commissionFor computes round(amount × rate / 100) in minor units. Rate is a
// percent (10 means 10%). The rounding is half away from zero, matching how
// the ledger is rendered to users.
func commissionFor(amount int64, rate decimal.Decimal) int64 {
	if amount <= 0 || rate.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	return decimal.NewFromInt(amount).
		Mul(rate).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}
