package planning

import (
	"time"

	"github.com/shopspring/decimal"

	"advisory/internal/core"
)

// HorizonYear is the last calendar year the simulation records, inclusive.
const HorizonYear = 2060

// balanceScale bounds the decimal places of the running balance. Without it
// the scale would grow by the rate precision every simulated month for four
// decades. Twelve places is ten orders of magnitude below a cent.
const balanceScale = 12

// Simulate produces the year-by-year wealth trajectory from asOf through
// HorizonYear.
//
// The order of operations within a month is fixed and material to the result:
// annual events apply in January, then monthly events, then the interest
// multiplier. Unique events apply exactly once to the starting balance before
// any month advances. Negative balances compound with the same multiplier;
// there is no clamping to zero.
//
// The month pointer starts at the first day of asOf's calendar month: a
// mid-month invocation still applies that month's full events and interest.
func Simulate(asOf time.Time, initial decimal.Decimal, events []core.CashflowEvent, annualPct decimal.Decimal) []core.ProjectionPoint {
	buckets := Partition(events)

	balance := initial.Add(signedSum(buckets.Unique))
	monthlyNet := signedSum(buckets.Monthly)
	annualNet := signedSum(buckets.Annual)
	growth := one.Add(MonthlyRate(annualPct))
	// A unit multiplier cannot grow the scale; skipping it keeps the balance
	// exact at zero rate no matter how many decimals the input carries.
	applyGrowth := !growth.Equal(one)

	points := make([]core.ProjectionPoint, 0, max(HorizonYear-asOf.Year()+1, 0))
	cursor := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC)

	for cursor.Year() <= HorizonYear {
		if cursor.Month() == time.January {
			balance = balance.Add(annualNet)
		}
		balance = balance.Add(monthlyNet)
		if applyGrowth {
			balance = balance.Mul(growth).Round(balanceScale)
		}

		if cursor.Month() == time.December {
			points = append(points, core.ProjectionPoint{
				Year:           cursor.Year(),
				ProjectedValue: balance,
			})
		}
		cursor = cursor.AddDate(0, 1, 0)
	}
	return points
}

// signedSum reduces events to their net signed amount. Zero-valued events
// participate in the reduction without numerical effect.
func signedSum(events []core.CashflowEvent) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range events {
		sum = sum.Add(e.Signed())
	}
	return sum
}
