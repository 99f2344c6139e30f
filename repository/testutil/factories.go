package testutil

import (
	"context"
	"testing"

	"yieldengine/database"
	"yieldengine/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// InsertTestPosition inserts a position row directly, bypassing the
// engine, the way the external capital-management subsystem would.
func InsertTestPosition(t *testing.T, db *database.DB, walletRef string, capital, rate decimal.Decimal, status models.PositionStatus) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(context.Background(), `
		INSERT INTO positions (wallet_ref, capital, rate, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, walletRef, capital, rate, status).Scan(&id)
	require.NoError(t, err)

	return id
}

// InsertActivePosition inserts an eligible position with the given capital
func InsertActivePosition(t *testing.T, db *database.DB, walletRef string, capital int64) int64 {
	return InsertTestPosition(t, db, walletRef,
		decimal.NewFromInt(capital), decimal.NewFromInt(0), models.PositionStatusActive)
}

// ClosePosition flips a position to closed, simulating the snapshot going
// stale between plan time and credit time.
func ClosePosition(t *testing.T, db *database.DB, id int64) {
	t.Helper()

	_, err := db.Exec(context.Background(),
		`UPDATE positions SET status = 'closed', updated_at = NOW() WHERE id = $1`, id)
	require.NoError(t, err)
}

// CreateTestBatch builds an unsaved processing batch header
func CreateTestBatch(code string, totalAmount decimal.Decimal, createdBy string) *models.DistributionBatch {
	return &models.DistributionBatch{
		Code:              code,
		TotalAmount:       totalAmount,
		DistributedAmount: decimal.Zero,
		Source:            "test",
		Status:            models.BatchStatusProcessing,
		CreatedBy:         createdBy,
	}
}

// CreateTestDetail builds an unsaved credited detail row with share fields
// derived from the amount
func CreateTestDetail(batchID, positionID int64, amount decimal.Decimal) *models.DistributionDetail {
	return &models.DistributionDetail{
		BatchID:        batchID,
		PositionID:     positionID,
		Capital:        amount.Mul(decimal.NewFromInt(10)),
		Rate:           decimal.Zero,
		Weight:         amount.Mul(decimal.NewFromInt(10)),
		BaseShare:      amount,
		BonusShare:     decimal.Zero,
		TotalShare:     amount,
		PercentOfBatch: decimal.NewFromInt(100),
		Status:         models.DetailStatusCredited,
	}
}
