/*
balance.go - Consumption against a fixed ceiling

PURPOSE:

	A CeilingBalance is the running total of days consumed against a
	statutory maximum. Unlike an accrual balance it never grows: the ceiling
	is fixed when the position is authorized and every occupation only
	consumes from it.

INVARIANTS:

	Remaining() is never negative.
	Remaining() + Consumed == Max whenever Consumed <= Max.

SEE ALSO:
  - tempcontract/ledger.go: builds a CeilingBalance per slot
*/
package generic

import "github.com/shopspring/decimal"

// CeilingBalance tracks consumption against a maximum.
type CeilingBalance struct {
	Max      int
	Consumed int
}

// Remaining returns max(0, Max - Consumed).
func (b CeilingBalance) Remaining() int {
	r := b.Max - b.Consumed
	if r < 0 {
		return 0
	}
	return r
}

// Exhausted is true when nothing remains.
func (b CeilingBalance) Exhausted() bool {
	return b.Remaining() == 0
}

// UsageRatio returns Consumed/Max rounded to four places, capped at 1.
func (b CeilingBalance) UsageRatio() decimal.Decimal {
	if b.Max <= 0 {
		return decimal.Zero
	}
	ratio := decimal.NewFromInt(int64(b.Consumed)).Div(decimal.NewFromInt(int64(b.Max)))
	if ratio.GreaterThan(decimal.NewFromInt(1)) {
		ratio = decimal.NewFromInt(1)
	}
	return ratio.Round(4)
}

// UsagePercent is UsageRatio scaled to 0..100 with two decimals.
func (b CeilingBalance) UsagePercent() decimal.Decimal {
	return b.UsageRatio().Mul(decimal.NewFromInt(100)).Round(2)
}
