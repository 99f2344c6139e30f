package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yieldengine/database"
	"yieldengine/models"
	"yieldengine/service"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const batchColumns = `id, code, total_amount, distributed_amount, source, notes, bonus_enabled,
	position_count, total_capital, average_percent, status, created_by, created_at, processed_at`

// uniqueViolation is the Postgres error code for a unique constraint hit
const uniqueViolation = "23505"

// BatchRepository implements the BatchRepository interface
type BatchRepository struct {
	q queryable
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *database.DB) *BatchRepository {
	return &BatchRepository{q: db.Pool}
}

// newBatchRepositoryWithTx creates a new batch repository with a transaction
func newBatchRepositoryWithTx(tx queryable) *BatchRepository {
	return &BatchRepository{q: tx}
}

func scanBatch(row pgx.Row) (*models.DistributionBatch, error) {
	var batch models.DistributionBatch
	err := row.Scan(
		&batch.ID,
		&batch.Code,
		&batch.TotalAmount,
		&batch.DistributedAmount,
		&batch.Source,
		&batch.Notes,
		&batch.BonusEnabled,
		&batch.PositionCount,
		&batch.TotalCapital,
		&batch.AveragePercent,
		&batch.Status,
		&batch.CreatedBy,
		&batch.CreatedAt,
		&batch.ProcessedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// Create inserts a new batch header. A unique-constraint hit on the code
// column is translated to service.ErrDuplicateBatchCode so the executor
// can retry with a fresh code.
func (r *BatchRepository) Create(ctx context.Context, batch *models.DistributionBatch) error {
	query := `
		INSERT INTO distribution_batches
		(code, total_amount, distributed_amount, source, notes, bonus_enabled,
		 position_count, total_capital, average_percent, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		batch.Code,
		batch.TotalAmount,
		batch.DistributedAmount,
		batch.Source,
		batch.Notes,
		batch.BonusEnabled,
		batch.PositionCount,
		batch.TotalCapital,
		batch.AveragePercent,
		batch.Status,
		batch.CreatedBy,
	).Scan(&batch.ID, &batch.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", service.ErrDuplicateBatchCode, batch.Code)
		}
		return fmt.Errorf("failed to create batch %s: %w", batch.Code, err)
	}

	return nil
}

// Finalize writes the terminal state of a batch exactly once. The guard on
// the current status keeps terminal batches immutable.
func (r *BatchRepository) Finalize(ctx context.Context, batchID int64, distributedAmount decimal.Decimal, positionCount int, status models.BatchStatus, processedAt time.Time) error {
	if !status.IsTerminal() {
		return fmt.Errorf("cannot finalize batch %d to non-terminal status %s", batchID, status)
	}

	query := `
		UPDATE distribution_batches
		SET distributed_amount = $1, position_count = $2, status = $3, processed_at = $4
		WHERE id = $5 AND status = 'processing'
	`

	result, err := r.q.Exec(ctx, query, distributedAmount, positionCount, status, processedAt, batchID)
	if err != nil {
		return fmt.Errorf("failed to finalize batch %d: %w", batchID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("batch %d not found or already finalized", batchID)
	}

	return nil
}

// GetByID retrieves a batch by its ID
func (r *BatchRepository) GetByID(ctx context.Context, id int64) (*models.DistributionBatch, error) {
	query := fmt.Sprintf(`SELECT %s FROM distribution_batches WHERE id = $1`, batchColumns)

	batch, err := scanBatch(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get batch %d: %w", id, err)
	}
	return batch, nil
}

// GetByCode retrieves a batch by its human-readable code
func (r *BatchRepository) GetByCode(ctx context.Context, code string) (*models.DistributionBatch, error) {
	query := fmt.Sprintf(`SELECT %s FROM distribution_batches WHERE code = $1`, batchColumns)

	batch, err := scanBatch(r.q.QueryRow(ctx, query, code))
	if err != nil {
		return nil, fmt.Errorf("failed to get batch %s: %w", code, err)
	}
	return batch, nil
}

// List returns batches ordered by creation time descending
func (r *BatchRepository) List(ctx context.Context, limit, offset int) ([]*models.DistributionBatch, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM distribution_batches
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, batchColumns)

	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var batches []*models.DistributionBatch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, batch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate batches: %w", err)
	}

	return batches, nil
}

// Count returns the total number of batches
func (r *BatchRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM distribution_batches`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count batches: %w", err)
	}
	return count, nil
}

// AggregateCompleted sums distributed amounts over terminal batches and
// returns the count and most recent processing time
func (r *BatchRepository) AggregateCompleted(ctx context.Context) (decimal.Decimal, int, *time.Time, error) {
	query := `
		SELECT COALESCE(SUM(distributed_amount), 0), COUNT(*), MAX(processed_at)
		FROM distribution_batches
		WHERE status IN ('completed', 'completed_with_errors')
	`

	var total decimal.Decimal
	var count int
	var last *time.Time

	err := r.q.QueryRow(ctx, query).Scan(&total, &count, &last)
	if err != nil {
		return decimal.Zero, 0, nil, fmt.Errorf("failed to aggregate batches: %w", err)
	}

	return total, count, last, nil
}
