package service

import (
	"yieldengine/models"

	"github.com/shopspring/decimal"
)

// shareScale is the number of decimal places every monetary output of the
// planner is rounded to. Each position's shares are rounded independently;
// the drift between their sum and the requested total is bounded by
// positionCount x 1e-6 and is an accepted tolerance, not reconciled.
const shareScale = 6

var oneHundred = decimal.NewFromInt(100)

// BuildAllocationPlan produces the deterministic distribution plan for
// totalAmount over the given position snapshot. It is side-effect-free:
// the preview surface returns the plan as-is and the executor persists it,
// so the two agree unless the position set changes between the calls.
func BuildAllocationPlan(totalAmount decimal.Decimal, positions []*models.Position, bonusEnabled bool) (*models.AllocationPreview, error) {
	if !totalAmount.IsPositive() {
		return nil, NewValidationError("total amount must be positive")
	}
	if len(positions) == 0 {
		return nil, &ValidationError{Reason: "no eligible positions", Err: ErrNoEligiblePositions}
	}

	totalCapital := decimal.Zero
	totalWeight := decimal.Zero
	weights := make([]decimal.Decimal, len(positions))

	for i, pos := range positions {
		w, err := Weight(pos.Capital, pos.Rate, bonusEnabled)
		if err != nil {
			return nil, err
		}
		weights[i] = w
		totalCapital = totalCapital.Add(pos.Capital)
		totalWeight = totalWeight.Add(w)
	}

	if !totalCapital.IsPositive() {
		return nil, &ValidationError{Reason: "eligible positions hold no capital", Err: ErrNoEligiblePositions}
	}

	allocations := make([]*models.Allocation, len(positions))
	percentSum := decimal.Zero

	for i, pos := range positions {
		base := totalAmount.Mul(pos.Capital).Div(totalCapital).Round(shareScale)

		bonus := decimal.Zero
		if bonusEnabled {
			weighted := totalAmount.Mul(weights[i]).Div(totalWeight).Round(shareScale)
			bonus = weighted.Sub(base)
		}

		total := base.Add(bonus)
		percent := total.Div(totalAmount).Mul(oneHundred).Round(shareScale)
		percentSum = percentSum.Add(percent)

		allocations[i] = &models.Allocation{
			PositionID:     pos.ID,
			WalletRef:      pos.WalletRef,
			Capital:        pos.Capital,
			Rate:           pos.Rate,
			Weight:         weights[i].Round(shareScale),
			BaseShare:      base,
			BonusShare:     bonus,
			TotalShare:     total,
			PercentOfBatch: percent,
		}
	}

	averagePercent := percentSum.Div(decimal.NewFromInt(int64(len(positions)))).Round(shareScale)

	return &models.AllocationPreview{
		TotalAmount:    totalAmount,
		PositionCount:  len(positions),
		TotalCapital:   totalCapital,
		AveragePercent: averagePercent,
		BonusEnabled:   bonusEnabled,
		Allocations:    allocations,
	}, nil
}
