package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BatchStatus represents the state of a distribution batch
type BatchStatus string

const (
	BatchStatusProcessing          BatchStatus = "processing"
	BatchStatusCompleted           BatchStatus = "completed"
	BatchStatusCompletedWithErrors BatchStatus = "completed_with_errors"
)

// IsTerminal reports whether the batch has reached a final state. Terminal
// batches are immutable; corrective action is always a new batch.
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusCompletedWithErrors
}

// DistributionBatch is the header record for one execution of the yield
// distribution algorithm. DistributedAmount is written exactly once, at
// finalization, as the sum of the credited detail shares.
type DistributionBatch struct {
	ID                int64           `db:"id" json:"id"`
	Code              string          `db:"code" json:"code"` // unique, human-readable, sortable
	TotalAmount       decimal.Decimal `db:"total_amount" json:"total_amount"`
	DistributedAmount decimal.Decimal `db:"distributed_amount" json:"distributed_amount"`
	Source            string          `db:"source" json:"source"`
	Notes             string          `db:"notes" json:"notes"`
	BonusEnabled      bool            `db:"bonus_enabled" json:"bonus_enabled"`
	PositionCount     int             `db:"position_count" json:"position_count"`
	TotalCapital      decimal.Decimal `db:"total_capital" json:"total_capital"`
	AveragePercent    decimal.Decimal `db:"average_percent" json:"average_percent"`
	Status            BatchStatus     `db:"status" json:"status"`
	CreatedBy         string          `db:"created_by" json:"created_by"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt       *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}
