// Package planning implements the deterministic financial simulation core:
// annual-to-monthly rate conversion, cash-flow event classification, the
// month-by-month wealth simulation engine, and the goal-alignment calculator.
//
// Everything in this package is a pure function over immutable inputs. All
// arithmetic runs on exact decimals; no value touches a binary float.
package planning

import (
	"github.com/shopspring/decimal"
)

// ratePrecision is the number of decimal places carried through the
// fractional-exponent power. It is fixed so the monthly multiplier is
// identical across invocations and cannot drift over decades of reuse.
const ratePrecision = 32

var (
	one     = decimal.NewFromInt(1)
	twelve  = decimal.NewFromInt(12)
	hundred = decimal.NewFromInt(100)

	// 1/12 does not terminate; carry it past the rate precision.
	oneTwelfth = one.DivRound(twelve, ratePrecision+8)
)

// MonthlyRate converts an annual percentage rate into the effective monthly
// rate m such that compounding m for 12 months reproduces the annual rate:
//
//	m = (1 + annual/100)^(1/12) - 1
//
// The domain restricts annualPct >= 0 (validated upstream), so the power base
// is always >= 1 and the conversion cannot fail. A zero rate returns an
// exactly-zero monthly rate.
func MonthlyRate(annualPct decimal.Decimal) decimal.Decimal {
	if annualPct.IsZero() {
		return decimal.Zero
	}
	base := one.Add(annualPct.Div(hundred))
	m, err := base.PowWithPrecision(oneTwelfth, ratePrecision)
	if err != nil {
		// Unreachable for non-negative rates: the base is strictly positive.
		return decimal.Zero
	}
	return m.Sub(one)
}
