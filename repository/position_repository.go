package repository

import (
	"context"
	"fmt"

	"yieldengine/database"
	"yieldengine/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const positionColumns = `id, wallet_ref, capital, rate, status, total_earned, created_at, updated_at`

// PositionRepository implements the PositionRepository interface. The
// positions table is owned by the capital-management subsystem; this
// repository reads it and increments total_earned on credit.
type PositionRepository struct {
	q queryable
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *database.DB) *PositionRepository {
	return &PositionRepository{q: db.Pool}
}

// newPositionRepositoryWithTx creates a new position repository with a transaction
func newPositionRepositoryWithTx(tx queryable) *PositionRepository {
	return &PositionRepository{q: tx}
}

func scanPosition(row pgx.Row) (*models.Position, error) {
	var pos models.Position
	err := row.Scan(
		&pos.ID,
		&pos.WalletRef,
		&pos.Capital,
		&pos.Rate,
		&pos.Status,
		&pos.TotalEarned,
		&pos.CreatedAt,
		&pos.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pos, nil
}

// GetByID retrieves a position by its ID
func (r *PositionRepository) GetByID(ctx context.Context, id int64) (*models.Position, error) {
	query := fmt.Sprintf(`SELECT %s FROM positions WHERE id = $1`, positionColumns)

	pos, err := scanPosition(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get position %d: %w", id, err)
	}
	return pos, nil
}

// GetEligible returns all positions with status=active and capital > 0,
// ordered by ID so the planner sees a deterministic snapshot
func (r *PositionRepository) GetEligible(ctx context.Context) ([]*models.Position, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM positions
		WHERE status = 'active' AND capital > 0
		ORDER BY id
	`, positionColumns)

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get eligible positions: %w", err)
	}
	defer rows.Close()

	var positions []*models.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, pos)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate positions: %w", err)
	}

	return positions, nil
}

// GetForUpdate retrieves a position under a row-level lock. Two concurrent
// batches crediting the same position serialize here instead of losing one
// another's update to the running total.
func (r *PositionRepository) GetForUpdate(ctx context.Context, id int64) (*models.Position, error) {
	query := fmt.Sprintf(`SELECT %s FROM positions WHERE id = $1 FOR UPDATE`, positionColumns)

	pos, err := scanPosition(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to lock position %d: %w", id, err)
	}
	return pos, nil
}

// AddEarnings increments a position's running earned total atomically and
// returns the new total
func (r *PositionRepository) AddEarnings(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE positions
		SET total_earned = total_earned + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING total_earned
	`

	var newTotal decimal.Decimal
	err := r.q.QueryRow(ctx, query, amount, id).Scan(&newTotal)
	if err == pgx.ErrNoRows {
		return decimal.Zero, fmt.Errorf("position %d not found", id)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to add earnings for position %d: %w", id, err)
	}

	return newTotal, nil
}
