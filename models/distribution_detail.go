package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DetailStatus represents the outcome of a single position credit
type DetailStatus string

const (
	DetailStatusCredited DetailStatus = "credited"
	DetailStatusFailed   DetailStatus = "failed"
)

// DistributionDetail is one position's line in a distribution batch. The
// capital and rate columns are a snapshot taken at plan time, so the row
// remains auditable even after the position changes. Rows are append-only:
// once written they are never edited.
type DistributionDetail struct {
	ID             int64           `db:"id" json:"id"`
	BatchID        int64           `db:"batch_id" json:"batch_id"`
	PositionID     int64           `db:"position_id" json:"position_id"`
	Capital        decimal.Decimal `db:"capital" json:"capital"`
	Rate           decimal.Decimal `db:"rate" json:"rate"`
	Weight         decimal.Decimal `db:"weight" json:"weight"`
	BaseShare      decimal.Decimal `db:"base_share" json:"base_share"`
	BonusShare     decimal.Decimal `db:"bonus_share" json:"bonus_share"`
	TotalShare     decimal.Decimal `db:"total_share" json:"total_share"`
	PercentOfBatch decimal.Decimal `db:"percent_of_batch" json:"percent_of_batch"`
	Status         DetailStatus    `db:"status" json:"status"`
	ErrorMessage   string          `db:"error_message" json:"error_message,omitempty"`
	CreditedAt     *time.Time      `db:"credited_at" json:"credited_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`

	// WalletRef is joined from the positions table for batch-detail reads;
	// it is not a column of distribution_details.
	WalletRef string `db:"-" json:"wallet_ref,omitempty"`
}
