package service

import (
	"github.com/shopspring/decimal"
)

// Bonus multiplier tiers by annualized rate.
var (
	rateTier30 = decimal.NewFromInt(30)
	rateTier20 = decimal.NewFromInt(20)
	rateTier10 = decimal.NewFromInt(10)

	multiplier30 = decimal.RequireFromString("1.10")
	multiplier20 = decimal.RequireFromString("1.05")
	multiplier10 = decimal.RequireFromString("1.02")
)

// BonusMultiplier returns the rate-tier multiplier applied to a position's
// capital when bonus weighting is enabled.
func BonusMultiplier(rate decimal.Decimal) decimal.Decimal {
	switch {
	case rate.GreaterThanOrEqual(rateTier30):
		return multiplier30
	case rate.GreaterThanOrEqual(rateTier20):
		return multiplier20
	case rate.GreaterThanOrEqual(rateTier10):
		return multiplier10
	default:
		return decimal.NewFromInt(1)
	}
}

// Weight turns a position's capital and rate into its allocation weight.
// With bonus weighting disabled the weight is the capital itself. Pure;
// the only inputs it rejects are negative capital or rate.
func Weight(capital, rate decimal.Decimal, bonusEnabled bool) (decimal.Decimal, error) {
	if capital.IsNegative() {
		return decimal.Zero, NewValidationError("capital must not be negative")
	}
	if rate.IsNegative() {
		return decimal.Zero, NewValidationError("rate must not be negative")
	}
	if !bonusEnabled {
		return capital, nil
	}
	return capital.Mul(BonusMultiplier(rate)), nil
}
