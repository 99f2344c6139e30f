package repository

import (
	"context"
	"fmt"

	"yieldengine/database"
	"yieldengine/models"

	"github.com/jackc/pgx/v5"
)

// DetailRepository implements the DetailRepository interface. Detail rows
// are append-only: there is deliberately no update method.
type DetailRepository struct {
	q queryable
}

// NewDetailRepository creates a new detail repository
func NewDetailRepository(db *database.DB) *DetailRepository {
	return &DetailRepository{q: db.Pool}
}

// newDetailRepositoryWithTx creates a new detail repository with a transaction
func newDetailRepositoryWithTx(tx queryable) *DetailRepository {
	return &DetailRepository{q: tx}
}

// Create inserts a detail row
func (r *DetailRepository) Create(ctx context.Context, detail *models.DistributionDetail) error {
	query := `
		INSERT INTO distribution_details
		(batch_id, position_id, capital, rate, weight, base_share, bonus_share,
		 total_share, percent_of_batch, status, error_message, credited_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		detail.BatchID,
		detail.PositionID,
		detail.Capital,
		detail.Rate,
		detail.Weight,
		detail.BaseShare,
		detail.BonusShare,
		detail.TotalShare,
		detail.PercentOfBatch,
		detail.Status,
		detail.ErrorMessage,
		detail.CreditedAt,
	).Scan(&detail.ID, &detail.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create detail for batch %d position %d: %w",
			detail.BatchID, detail.PositionID, err)
	}

	return nil
}

func scanDetail(rows pgx.Rows, withWallet bool) (*models.DistributionDetail, error) {
	var detail models.DistributionDetail
	dest := []any{
		&detail.ID,
		&detail.BatchID,
		&detail.PositionID,
		&detail.Capital,
		&detail.Rate,
		&detail.Weight,
		&detail.BaseShare,
		&detail.BonusShare,
		&detail.TotalShare,
		&detail.PercentOfBatch,
		&detail.Status,
		&detail.ErrorMessage,
		&detail.CreditedAt,
		&detail.CreatedAt,
	}
	if withWallet {
		dest = append(dest, &detail.WalletRef)
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetByBatch returns all detail rows of a batch joined with position
// wallet references, ordered by position ID
func (r *DetailRepository) GetByBatch(ctx context.Context, batchID int64) ([]*models.DistributionDetail, error) {
	query := `
		SELECT d.id, d.batch_id, d.position_id, d.capital, d.rate, d.weight,
		       d.base_share, d.bonus_share, d.total_share, d.percent_of_batch,
		       d.status, d.error_message, d.credited_at, d.created_at,
		       p.wallet_ref
		FROM distribution_details d
		JOIN positions p ON p.id = d.position_id
		WHERE d.batch_id = $1
		ORDER BY d.position_id
	`

	rows, err := r.q.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get details for batch %d: %w", batchID, err)
	}
	defer rows.Close()

	var details []*models.DistributionDetail
	for rows.Next() {
		detail, err := scanDetail(rows, true)
		if err != nil {
			return nil, fmt.Errorf("failed to scan detail: %w", err)
		}
		details = append(details, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate details: %w", err)
	}

	return details, nil
}

// GetByPosition returns detail rows for a position, newest first
func (r *DetailRepository) GetByPosition(ctx context.Context, positionID int64, limit int) ([]*models.DistributionDetail, error) {
	query := `
		SELECT id, batch_id, position_id, capital, rate, weight,
		       base_share, bonus_share, total_share, percent_of_batch,
		       status, error_message, credited_at, created_at
		FROM distribution_details
		WHERE position_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, positionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get details for position %d: %w", positionID, err)
	}
	defer rows.Close()

	var details []*models.DistributionDetail
	for rows.Next() {
		detail, err := scanDetail(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan detail: %w", err)
		}
		details = append(details, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate details: %w", err)
	}

	return details, nil
}
