package service

import (
	"fmt"
	"testing"

	"yieldengine/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPosition(id int64, capital, rate string) *models.Position {
	return &models.Position{
		ID:        id,
		WalletRef: fmt.Sprintf("wallet-%d", id),
		Capital:   decimal.RequireFromString(capital),
		Rate:      decimal.RequireFromString(rate),
		Status:    models.PositionStatusActive,
	}
}

func assertDecimal(t *testing.T, expected string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(expected)),
		"expected %s, got %s: %v", expected, got, msgAndArgs)
}

func TestBuildAllocationPlan_ProportionalWithoutBonus(t *testing.T) {
	positions := []*models.Position{
		testPosition(1, "600", "12"),
		testPosition(2, "400", "25"),
	}

	plan, err := BuildAllocationPlan(decimal.NewFromInt(1000), positions, false)
	require.NoError(t, err)

	require.Len(t, plan.Allocations, 2)
	assert.Equal(t, 2, plan.PositionCount)
	assert.False(t, plan.BonusEnabled)
	assertDecimal(t, "1000", plan.TotalCapital)

	first, second := plan.Allocations[0], plan.Allocations[1]
	assertDecimal(t, "600", first.TotalShare)
	assertDecimal(t, "400", second.TotalShare)
	assertDecimal(t, "60", first.PercentOfBatch)
	assertDecimal(t, "40", second.PercentOfBatch)

	// Without bonus weighting the rate tiers must not leak into the shares.
	assert.True(t, first.BonusShare.IsZero())
	assert.True(t, second.BonusShare.IsZero())
	assertDecimal(t, "50", plan.AveragePercent)
}

func TestBuildAllocationPlan_BonusShiftsTowardHigherRate(t *testing.T) {
	positions := []*models.Position{
		testPosition(1, "500", "35"),
		testPosition(2, "500", "5"),
	}

	plan, err := BuildAllocationPlan(decimal.NewFromInt(1000), positions, true)
	require.NoError(t, err)
	require.Len(t, plan.Allocations, 2)

	// Weights are 550 and 500, so the high-rate position takes 550/1050
	// of the pot and the other position funds the difference.
	first, second := plan.Allocations[0], plan.Allocations[1]
	assertDecimal(t, "500", first.BaseShare)
	assertDecimal(t, "500", second.BaseShare)
	assertDecimal(t, "23.809524", first.BonusShare)
	assertDecimal(t, "-23.809524", second.BonusShare)
	assertDecimal(t, "523.809524", first.TotalShare)
	assertDecimal(t, "476.190476", second.TotalShare)
	assertDecimal(t, "52.380952", first.PercentOfBatch)
	assertDecimal(t, "47.619048", second.PercentOfBatch)

	// The bonus reshapes the split but never mints new money.
	assertDecimal(t, "1000", first.TotalShare.Add(second.TotalShare))
	assertDecimal(t, "50", plan.AveragePercent)
}

func TestBuildAllocationPlan_Deterministic(t *testing.T) {
	positions := []*models.Position{
		testPosition(1, "333.33", "22"),
		testPosition(2, "666.67", "8"),
		testPosition(3, "100.01", "31"),
	}
	amount := decimal.RequireFromString("9876.54")

	first, err := BuildAllocationPlan(amount, positions, true)
	require.NoError(t, err)
	second, err := BuildAllocationPlan(amount, positions, true)
	require.NoError(t, err)

	require.Len(t, second.Allocations, len(first.Allocations))
	for i := range first.Allocations {
		assert.Equal(t, first.Allocations[i].TotalShare.String(), second.Allocations[i].TotalShare.String())
		assert.Equal(t, first.Allocations[i].PercentOfBatch.String(), second.Allocations[i].PercentOfBatch.String())
	}
}

func TestBuildAllocationPlan_RoundingDriftWithinTolerance(t *testing.T) {
	positions := []*models.Position{
		testPosition(1, "1", "0"),
		testPosition(2, "1", "0"),
		testPosition(3, "1", "0"),
	}
	amount := decimal.NewFromInt(100)

	plan, err := BuildAllocationPlan(amount, positions, false)
	require.NoError(t, err)

	// Each share rounds to 33.333333, so the sum undershoots by exactly
	// one micro-unit per position at most.
	sum := decimal.Zero
	for _, alloc := range plan.Allocations {
		assertDecimal(t, "33.333333", alloc.TotalShare)
		sum = sum.Add(alloc.TotalShare)
	}

	drift := amount.Sub(sum).Abs()
	tolerance := decimal.RequireFromString("0.000001").Mul(decimal.NewFromInt(int64(len(positions))))
	assert.True(t, drift.LessThanOrEqual(tolerance),
		"drift %s exceeds tolerance %s", drift, tolerance)
}

func TestBuildAllocationPlan_Validation(t *testing.T) {
	positions := []*models.Position{testPosition(1, "100", "10")}

	tests := []struct {
		name       string
		amount     decimal.Decimal
		positions  []*models.Position
		noEligible bool
	}{
		{"zero amount", decimal.Zero, positions, false},
		{"negative amount", decimal.NewFromInt(-100), positions, false},
		{"empty position set", decimal.NewFromInt(100), nil, true},
		{"positions without capital", decimal.NewFromInt(100), []*models.Position{
			testPosition(1, "0", "10"),
			testPosition(2, "0", "35"),
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := BuildAllocationPlan(tt.amount, tt.positions, true)
			require.Error(t, err)
			assert.Nil(t, plan)

			var valErr *ValidationError
			assert.ErrorAs(t, err, &valErr)
			if tt.noEligible {
				assert.ErrorIs(t, err, ErrNoEligiblePositions)
			}
		})
	}
}
