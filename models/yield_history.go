package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionYieldHistory is the per-position lifetime yield ledger. One row
// per position, created on first credit and updated additively on every
// subsequent one; TotalYieldReceived is monotonically non-decreasing.
type PositionYieldHistory struct {
	PositionID         int64           `db:"position_id" json:"position_id"`
	TotalYieldReceived decimal.Decimal `db:"total_yield_received" json:"total_yield_received"`
	DistributionCount  int             `db:"distribution_count" json:"distribution_count"`
	LastBatchID        int64           `db:"last_batch_id" json:"last_batch_id"`
	LastAmount         decimal.Decimal `db:"last_amount" json:"last_amount"`
	LastDate           time.Time       `db:"last_date" json:"last_date"`
}
