package service

import (
	"context"
	"time"

	"yieldengine/events"
	"yieldengine/models"

	"github.com/shopspring/decimal"
)

// PositionRepository defines data access for capital positions. It serves
// as both the position snapshot source (GetEligible) and the credit sink
// (AddEarnings) of the distribution executor.
type PositionRepository interface {
	// GetByID retrieves a position by its ID
	GetByID(ctx context.Context, id int64) (*models.Position, error)

	// GetEligible returns all positions with status=active and capital > 0,
	// ordered by ID for deterministic planning
	GetEligible(ctx context.Context) ([]*models.Position, error)

	// GetForUpdate retrieves a position under a row-level lock, blocking
	// concurrent credits to the same position until the enclosing
	// transaction or savepoint finishes
	GetForUpdate(ctx context.Context, id int64) (*models.Position, error)

	// AddEarnings increments a position's running earned total atomically
	// and returns the new total
	AddEarnings(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error)
}

// BatchRepository defines data access for distribution batch headers
type BatchRepository interface {
	// Create inserts a new batch header; fails on a duplicate code
	Create(ctx context.Context, batch *models.DistributionBatch) error

	// Finalize writes the terminal status, distributed amount, position
	// count and processing timestamp exactly once
	Finalize(ctx context.Context, batchID int64, distributedAmount decimal.Decimal, positionCount int, status models.BatchStatus, processedAt time.Time) error

	// GetByID retrieves a batch by its ID
	GetByID(ctx context.Context, id int64) (*models.DistributionBatch, error)

	// GetByCode retrieves a batch by its human-readable code
	GetByCode(ctx context.Context, code string) (*models.DistributionBatch, error)

	// List returns batches ordered by creation time descending
	List(ctx context.Context, limit, offset int) ([]*models.DistributionBatch, error)

	// Count returns the total number of batches
	Count(ctx context.Context) (int, error)

	// AggregateCompleted sums distributed amounts over terminal batches and
	// returns the count and most recent processing time
	AggregateCompleted(ctx context.Context) (total decimal.Decimal, count int, last *time.Time, err error)
}

// DetailRepository defines data access for per-position distribution lines
type DetailRepository interface {
	// Create inserts a detail row; rows are append-only and never updated
	Create(ctx context.Context, detail *models.DistributionDetail) error

	// GetByBatch returns all detail rows of a batch joined with position
	// wallet references, ordered by position ID
	GetByBatch(ctx context.Context, batchID int64) ([]*models.DistributionDetail, error)

	// GetByPosition returns detail rows for a position, newest first
	GetByPosition(ctx context.Context, positionID int64, limit int) ([]*models.DistributionDetail, error)
}

// YieldHistoryRepository defines data access for the per-position lifetime
// yield ledger
type YieldHistoryRepository interface {
	// Upsert creates the history row on first credit and updates it
	// additively on every subsequent one
	Upsert(ctx context.Context, positionID int64, amount decimal.Decimal, batchID int64, at time.Time) error

	// GetByPosition retrieves the history row for a position
	GetByPosition(ctx context.Context, positionID int64) (*models.PositionYieldHistory, error)

	// TopByYield returns the top-N positions by lifetime yield received
	TopByYield(ctx context.Context, n int) ([]*models.TopPosition, error)
}

// ExecuteOptions carries optional metadata for a distribution execution
type ExecuteOptions struct {
	BonusEnabled bool
	Source       string
	Notes        string
}

// DistributionService defines the distribution engine operations
type DistributionService interface {
	// Preview runs the allocation planner against the current eligible
	// position set without persisting anything
	Preview(ctx context.Context, totalAmount decimal.Decimal, bonusEnabled bool) (*models.AllocationPreview, error)

	// Execute distributes totalAmount across all eligible positions inside
	// a single atomic batch
	Execute(ctx context.Context, totalAmount decimal.Decimal, createdBy string, opts ExecuteOptions) (*models.DistributionResult, error)
}

// ReporterService defines the read-only audit and statistics operations
type ReporterService interface {
	// ListBatches returns a page of batches, newest first
	ListBatches(ctx context.Context, limit, offset int) (*models.BatchPage, error)

	// GetBatchDetail returns a batch header with all of its detail rows
	GetBatchDetail(ctx context.Context, batchID int64) (*models.BatchDetail, error)

	// GetLifetimeStats returns aggregates over every completed batch
	GetLifetimeStats(ctx context.Context, topN int) (*models.LifetimeStats, error)

	// GetPositionHistory returns a position's lifetime ledger with its
	// recent distribution lines
	GetPositionHistory(ctx context.Context, positionID int64, limit int) (*models.PositionYieldHistory, []*models.DistributionDetail, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// WithSavepoint runs fn inside a nested atomic sub-operation. If fn
	// returns an error, only the sub-operation's writes are rolled back
	// and the outer transaction stays usable.
	WithSavepoint(ctx context.Context, fn func() error) error

	// Repository getters
	PositionRepository() PositionRepository
	BatchRepository() BatchRepository
	DetailRepository() DetailRepository
	YieldHistoryRepository() YieldHistoryRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create creates a new UnitOfWork instance
	Create() UnitOfWork
}
