package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BatchPage is one page of the batch listing, newest first.
type BatchPage struct {
	Batches    []*DistributionBatch `json:"batches"`
	TotalCount int                  `json:"total_count"`
	Limit      int                  `json:"limit"`
	Offset     int                  `json:"offset"`
}

// BatchDetail joins a batch header with its detail rows.
type BatchDetail struct {
	Batch   *DistributionBatch    `json:"batch"`
	Details []*DistributionDetail `json:"details"`
}

// TopPosition is one entry in the lifetime top-N ranking.
type TopPosition struct {
	PositionID         int64           `json:"position_id"`
	WalletRef          string          `json:"wallet_ref"`
	TotalYieldReceived decimal.Decimal `json:"total_yield_received"`
	DistributionCount  int             `json:"distribution_count"`
}

// LifetimeStats aggregates every completed batch. Values only change when
// a new batch finalizes, which makes them safe to serve from a short-TTL
// cache.
type LifetimeStats struct {
	TotalDistributed decimal.Decimal `json:"total_distributed"`
	BatchCount       int             `json:"batch_count"`
	MeanPerBatch     decimal.Decimal `json:"mean_per_batch"`
	LastDistribution *time.Time      `json:"last_distribution,omitempty"`
	TopPositions     []*TopPosition  `json:"top_positions"`
}
