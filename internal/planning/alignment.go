package planning

import (
	"github.com/shopspring/decimal"

	"advisory/internal/core"
)

var (
	greenFloor       = decimal.NewFromInt(90)
	yellowLightFloor = decimal.NewFromInt(70)
	yellowDarkFloor  = decimal.NewFromInt(50)
)

// Align scores current wealth against the sum of all goal targets.
//
// An empty goal list is a precondition violation (core.ErrNoGoals). Goals
// that sum to zero are a defined edge case, not an error: there is no real
// target, so the client is fully on track (100%, green).
func Align(current decimal.Decimal, goals []core.Goal) (core.AlignmentResult, error) {
	if len(goals) == 0 {
		return core.AlignmentResult{}, core.ErrNoGoals
	}

	planned := decimal.Zero
	for _, g := range goals {
		planned = planned.Add(g.TargetAmount)
	}
	if planned.IsZero() {
		return core.AlignmentResult{Percentage: hundred, Category: core.Green}, nil
	}

	pct := current.Div(planned).Mul(hundred)
	return core.AlignmentResult{Percentage: pct, Category: Categorize(pct)}, nil
}

// Categorize maps an alignment percentage onto its traffic-light band.
// The boundaries are asymmetric at 90: exactly 90 is yellow-light, green
// requires strictly more.
func Categorize(pct decimal.Decimal) core.AlignmentCategory {
	switch {
	case pct.GreaterThan(greenFloor):
		return core.Green
	case pct.GreaterThanOrEqual(yellowLightFloor):
		return core.YellowLight
	case pct.GreaterThanOrEqual(yellowDarkFloor):
		return core.YellowDark
	default:
		return core.Red
	}
}
