package models

import (
	"github.com/shopspring/decimal"
)

// Allocation is one position's planned share of a distribution. Produced
// by the planner before anything is persisted; the executor copies these
// values into DistributionDetail rows.
type Allocation struct {
	PositionID     int64           `json:"position_id"`
	WalletRef      string          `json:"wallet_ref"`
	Capital        decimal.Decimal `json:"capital"`
	Rate           decimal.Decimal `json:"rate"`
	Weight         decimal.Decimal `json:"weight"`
	BaseShare      decimal.Decimal `json:"base_share"`
	BonusShare     decimal.Decimal `json:"bonus_share"`
	TotalShare     decimal.Decimal `json:"total_share"`
	PercentOfBatch decimal.Decimal `json:"percent_of_batch"`
}

// AllocationPreview is the deterministic, side-effect-free distribution
// plan. The same value is returned to preview callers and consumed by the
// executor, so preview and execution agree unless the position set changes
// between the two calls.
type AllocationPreview struct {
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PositionCount  int             `json:"position_count"`
	TotalCapital   decimal.Decimal `json:"total_capital"`
	AveragePercent decimal.Decimal `json:"average_percent"`
	BonusEnabled   bool            `json:"bonus_enabled"`
	Allocations    []*Allocation   `json:"allocations"`
}

// DistributionResult is the summary returned by a batch execution. A batch
// that completed with per-position errors still reports Success=true with
// PositionsUpdated < PositionCount; callers discover the failed rows via
// the batch-detail query.
type DistributionResult struct {
	Success           bool            `json:"success"`
	BatchID           int64           `json:"batch_id"`
	BatchCode         string          `json:"batch_code"`
	Status            BatchStatus     `json:"status"`
	DistributedAmount decimal.Decimal `json:"distributed_amount"`
	PositionCount     int             `json:"position_count"`
	PositionsUpdated  int             `json:"positions_updated"`
}
