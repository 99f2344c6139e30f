package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionStatus represents the lifecycle state of a capital position
type PositionStatus string

const (
	PositionStatusActive  PositionStatus = "active"
	PositionStatusPending PositionStatus = "pending"
	PositionStatusClosed  PositionStatus = "closed"
)

// Position represents an open capital commitment eligible to receive yield.
// Positions are created and mutated by the capital-management subsystem;
// this engine only reads them and increments TotalEarned on credit.
type Position struct {
	ID          int64           `db:"id"`
	WalletRef   string          `db:"wallet_ref"`
	Capital     decimal.Decimal `db:"capital"`
	Rate        decimal.Decimal `db:"rate"` // annualized percentage
	Status      PositionStatus  `db:"status"`
	TotalEarned decimal.Decimal `db:"total_earned"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// Eligible reports whether the position can receive yield: it must be
// active and hold positive capital.
func (p *Position) Eligible() bool {
	return p.Status == PositionStatusActive && p.Capital.IsPositive()
}
