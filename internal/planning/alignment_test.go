package planning

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisory/internal/core"
)

func goals(targets ...string) []core.Goal {
	gs := make([]core.Goal, len(targets))
	for i, t := range targets {
		gs[i] = core.Goal{Name: "goal", TargetAmount: dec(t)}
	}
	return gs
}

func TestAlign_NoGoalsIsDomainError(t *testing.T) {
	_, err := Align(dec("1000"), nil)
	assert.ErrorIs(t, err, core.ErrNoGoals)

	_, err = Align(dec("1000"), []core.Goal{})
	assert.ErrorIs(t, err, core.ErrNoGoals)
}

func TestAlign_ZeroSumGoalsIsFullySatisfied(t *testing.T) {
	// Goals exist but carry no real target: defined edge case, not an error.
	for _, wallet := range []string{"0", "123.45", "-500"} {
		res, err := Align(dec(wallet), goals("0"))
		require.NoError(t, err)
		assert.True(t, res.Percentage.Equal(dec("100")), "wallet %s: percentage = %s", wallet, res.Percentage)
		assert.Equal(t, core.Green, res.Category)
	}
}

func TestAlign_ConcreteScenario(t *testing.T) {
	// Wallet 1000 against goals 3000 + 3000 + 4000 = 10000 -> 10%, red.
	res, err := Align(dec("1000"), goals("3000", "3000", "4000"))
	require.NoError(t, err)
	assert.Equal(t, "10", res.Percentage.String())
	assert.Equal(t, core.Red, res.Category)
}

func TestAlign_BoundaryCategories(t *testing.T) {
	hundredTarget := goals("100")
	cases := []struct {
		wallet string
		want   core.AlignmentCategory
	}{
		{"90.01", core.Green},
		{"91", core.Green},
		{"90", core.YellowLight}, // exactly 90 is NOT green
		{"70", core.YellowLight},
		{"69.99", core.YellowDark},
		{"50", core.YellowDark},
		{"49.99", core.Red},
		{"0", core.Red},
	}
	for _, c := range cases {
		t.Run(c.wallet, func(t *testing.T) {
			res, err := Align(dec(c.wallet), hundredTarget)
			require.NoError(t, err)
			assert.Equal(t, c.want, res.Category,
				"wallet %s of 100: percentage %s", c.wallet, res.Percentage)
		})
	}
}

func TestAlign_PercentageIsExact(t *testing.T) {
	res, err := Align(dec("90.01"), goals("100"))
	require.NoError(t, err)
	assert.Equal(t, "90.01", res.Percentage.String(),
		"boundary percentages must not pick up binary-float noise")
}

func TestAlign_NegativeWalletIsRed(t *testing.T) {
	res, err := Align(dec("-1000"), goals("100"))
	require.NoError(t, err)
	assert.Equal(t, core.Red, res.Category)
	assert.True(t, res.Percentage.IsNegative())
}

func TestCategorize_ThresholdOrder(t *testing.T) {
	assert.Equal(t, core.Green, Categorize(decimal.NewFromInt(150)))
	assert.Equal(t, core.YellowLight, Categorize(decimal.NewFromInt(90)))
	assert.Equal(t, core.YellowDark, Categorize(decimal.NewFromInt(69)))
	assert.Equal(t, core.Red, Categorize(decimal.NewFromInt(-10)))
}
