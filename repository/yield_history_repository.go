package repository

import (
	"context"
	"fmt"
	"time"

	"yieldengine/database"
	"yieldengine/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// YieldHistoryRepository implements the YieldHistoryRepository interface
type YieldHistoryRepository struct {
	q queryable
}

// NewYieldHistoryRepository creates a new yield history repository
func NewYieldHistoryRepository(db *database.DB) *YieldHistoryRepository {
	return &YieldHistoryRepository{q: db.Pool}
}

// newYieldHistoryRepositoryWithTx creates a new yield history repository with a transaction
func newYieldHistoryRepositoryWithTx(tx queryable) *YieldHistoryRepository {
	return &YieldHistoryRepository{q: tx}
}

// Upsert creates the history row on first credit and updates it additively
// on every subsequent one, keeping total_yield_received monotonic.
func (r *YieldHistoryRepository) Upsert(ctx context.Context, positionID int64, amount decimal.Decimal, batchID int64, at time.Time) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive")
	}

	query := `
		INSERT INTO position_yield_history
		(position_id, total_yield_received, distribution_count, last_batch_id, last_amount, last_date)
		VALUES ($1, $2, 1, $3, $2, $4)
		ON CONFLICT (position_id) DO UPDATE SET
			total_yield_received = position_yield_history.total_yield_received + EXCLUDED.total_yield_received,
			distribution_count = position_yield_history.distribution_count + 1,
			last_batch_id = EXCLUDED.last_batch_id,
			last_amount = EXCLUDED.last_amount,
			last_date = EXCLUDED.last_date
	`

	if _, err := r.q.Exec(ctx, query, positionID, amount, batchID, at); err != nil {
		return fmt.Errorf("failed to upsert yield history for position %d: %w", positionID, err)
	}

	return nil
}

// GetByPosition retrieves the history row for a position
func (r *YieldHistoryRepository) GetByPosition(ctx context.Context, positionID int64) (*models.PositionYieldHistory, error) {
	query := `
		SELECT position_id, total_yield_received, distribution_count,
		       last_batch_id, last_amount, last_date
		FROM position_yield_history
		WHERE position_id = $1
	`

	var history models.PositionYieldHistory
	err := r.q.QueryRow(ctx, query, positionID).Scan(
		&history.PositionID,
		&history.TotalYieldReceived,
		&history.DistributionCount,
		&history.LastBatchID,
		&history.LastAmount,
		&history.LastDate,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get yield history for position %d: %w", positionID, err)
	}

	return &history, nil
}

// TopByYield returns the top-N positions by lifetime yield received
func (r *YieldHistoryRepository) TopByYield(ctx context.Context, n int) ([]*models.TopPosition, error) {
	query := `
		SELECT h.position_id, p.wallet_ref, h.total_yield_received, h.distribution_count
		FROM position_yield_history h
		JOIN positions p ON p.id = h.position_id
		ORDER BY h.total_yield_received DESC, h.position_id
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get top positions: %w", err)
	}
	defer rows.Close()

	var top []*models.TopPosition
	for rows.Next() {
		var entry models.TopPosition
		err := rows.Scan(
			&entry.PositionID,
			&entry.WalletRef,
			&entry.TotalYieldReceived,
			&entry.DistributionCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan top position: %w", err)
		}
		top = append(top, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate top positions: %w", err)
	}

	return top, nil
}
