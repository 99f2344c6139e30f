package repository

import (
	"context"
	"fmt"

	"yieldengine/database"
	"yieldengine/events"
	"yieldengine/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	spCounter        int
	transactionalBus *events.TransactionalBus
	positionRepo     service.PositionRepository
	batchRepo        service.BatchRepository
	detailRepo       service.DetailRepository
	yieldHistoryRepo service.YieldHistoryRepository
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.positionRepo = newPositionRepositoryWithTx(tx)
	u.batchRepo = newBatchRepositoryWithTx(tx)
	u.detailRepo = newDetailRepositoryWithTx(tx)
	u.yieldHistoryRepo = newYieldHistoryRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

// WithSavepoint runs fn inside a Postgres savepoint on the open
// transaction. If fn fails, only the savepoint's writes are rolled back;
// the outer transaction stays usable so the caller can keep going.
func (u *unitOfWork) WithSavepoint(ctx context.Context, fn func() error) error {
	if u.tx == nil {
		return fmt.Errorf("no transaction for savepoint")
	}

	u.spCounter++
	name := fmt.Sprintf("sp_%d", u.spCounter)

	if _, err := u.tx.Exec(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}

	if err := fn(); err != nil {
		if _, rbErr := u.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			// The outer transaction is unusable now; surface both errors.
			return fmt.Errorf("failed to roll back savepoint: %v, original error: %w", rbErr, err)
		}
		return err
	}

	if _, err := u.tx.Exec(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}

	return nil
}

// PositionRepository returns the position repository for this unit of work
func (u *unitOfWork) PositionRepository() service.PositionRepository {
	if u.positionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.positionRepo
}

// BatchRepository returns the batch repository for this unit of work
func (u *unitOfWork) BatchRepository() service.BatchRepository {
	if u.batchRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.batchRepo
}

// DetailRepository returns the detail repository for this unit of work
func (u *unitOfWork) DetailRepository() service.DetailRepository {
	if u.detailRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.detailRepo
}

// YieldHistoryRepository returns the yield history repository for this unit of work
func (u *unitOfWork) YieldHistoryRepository() service.YieldHistoryRepository {
	if u.yieldHistoryRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.yieldHistoryRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
