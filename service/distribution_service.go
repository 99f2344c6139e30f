package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yieldengine/events"
	"yieldengine/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// distributionService implements the DistributionService interface
type distributionService struct {
	uowFactory UnitOfWorkFactory
}

// NewDistributionService creates a new distribution service
func NewDistributionService(uowFactory UnitOfWorkFactory) DistributionService {
	return &distributionService{
		uowFactory: uowFactory,
	}
}

// Preview runs the allocation planner against the current eligible position
// set. Nothing is persisted; the read runs on a committed snapshot.
func (s *distributionService) Preview(ctx context.Context, totalAmount decimal.Decimal, bonusEnabled bool) (*models.AllocationPreview, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	positions, err := uow.PositionRepository().GetEligible(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get eligible positions: %w", err)
	}

	return BuildAllocationPlan(totalAmount, positions, bonusEnabled)
}

// Execute distributes totalAmount across all eligible positions inside one
// atomic batch. A single position's failure never aborts the batch: its
// credit is rolled back to a savepoint and recorded as a failed detail row
// while the remaining positions are still processed.
func (s *distributionService) Execute(ctx context.Context, totalAmount decimal.Decimal, createdBy string, opts ExecuteOptions) (*models.DistributionResult, error) {
	if createdBy == "" {
		return nil, NewValidationError("createdBy must not be empty")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, &BatchPersistenceError{Op: "begin", Err: err}
	}
	defer uow.Rollback()

	// Snapshot eligible positions and plan the allocation. A validation
	// failure rolls back with no side effects persisted.
	positions, err := uow.PositionRepository().GetEligible(ctx)
	if err != nil {
		return nil, &BatchPersistenceError{Op: "snapshot positions", Err: err}
	}

	plan, err := BuildAllocationPlan(totalAmount, positions, opts.BonusEnabled)
	if err != nil {
		return nil, err
	}

	batch, err := s.createBatchHeader(ctx, uow, plan, createdBy, opts)
	if err != nil {
		return nil, err
	}

	creditedTotal := decimal.Zero
	creditedCount := 0

	for _, alloc := range plan.Allocations {
		newTotal, creditErr := s.creditPosition(ctx, uow, batch, alloc)
		if creditErr != nil {
			log.WithFields(log.Fields{
				"batchCode":  batch.Code,
				"positionID": alloc.PositionID,
				"error":      creditErr,
			}).Warn("Position credit failed, recording failed detail row")

			failed := newDetail(batch.ID, alloc, models.DetailStatusFailed, nil)
			failed.ErrorMessage = creditErr.Error()
			if err := uow.DetailRepository().Create(ctx, failed); err != nil {
				return nil, &BatchPersistenceError{Op: "record failed credit", Err: err}
			}
			continue
		}

		creditedTotal = creditedTotal.Add(alloc.TotalShare)
		creditedCount++

		uow.EventBus().Publish(events.PositionCreditedEvent{
			BatchID:    batch.ID,
			BatchCode:  batch.Code,
			PositionID: alloc.PositionID,
			Amount:     alloc.TotalShare,
			NewTotal:   newTotal,
			CreditedAt: time.Now().UTC(),
		})
	}

	status := models.BatchStatusCompleted
	if creditedCount < len(plan.Allocations) {
		status = models.BatchStatusCompletedWithErrors
	}

	processedAt := time.Now().UTC()
	if err := uow.BatchRepository().Finalize(ctx, batch.ID, creditedTotal, len(plan.Allocations), status, processedAt); err != nil {
		return nil, &BatchPersistenceError{Op: "finalize batch", Err: err}
	}

	uow.EventBus().Publish(events.BatchCompletedEvent{
		BatchID:           batch.ID,
		BatchCode:         batch.Code,
		Status:            status,
		TotalAmount:       totalAmount,
		DistributedAmount: creditedTotal,
		PositionCount:     len(plan.Allocations),
		PositionsUpdated:  creditedCount,
	})

	if err := uow.Commit(); err != nil {
		return nil, &BatchPersistenceError{Op: "commit", Err: err}
	}

	log.WithFields(log.Fields{
		"batchCode":         batch.Code,
		"status":            status,
		"distributedAmount": creditedTotal,
		"positionsUpdated":  creditedCount,
		"positionCount":     len(plan.Allocations),
	}).Info("Distribution batch completed")

	return &models.DistributionResult{
		Success:           true,
		BatchID:           batch.ID,
		BatchCode:         batch.Code,
		Status:            status,
		DistributedAmount: creditedTotal,
		PositionCount:     len(plan.Allocations),
		PositionsUpdated:  creditedCount,
	}, nil
}

// createBatchHeader inserts the Processing header, regenerating the batch
// code on the rare unique-constraint collision.
func (s *distributionService) createBatchHeader(ctx context.Context, uow UnitOfWork, plan *models.AllocationPreview, createdBy string, opts ExecuteOptions) (*models.DistributionBatch, error) {
	batch := &models.DistributionBatch{
		TotalAmount:       plan.TotalAmount,
		DistributedAmount: decimal.Zero,
		Source:            opts.Source,
		Notes:             opts.Notes,
		BonusEnabled:      opts.BonusEnabled,
		PositionCount:     plan.PositionCount,
		TotalCapital:      plan.TotalCapital,
		AveragePercent:    plan.AveragePercent,
		Status:            models.BatchStatusProcessing,
		CreatedBy:         createdBy,
	}

	for attempt := 0; ; attempt++ {
		batch.Code = generateBatchCode(time.Now())

		err := uow.BatchRepository().Create(ctx, batch)
		if err == nil {
			return batch, nil
		}
		if errors.Is(err, ErrDuplicateBatchCode) && attempt < maxCodeAttempts-1 {
			continue
		}
		return nil, &BatchPersistenceError{Op: "create batch header", Err: err}
	}
}

// creditPosition performs one position's credit inside a savepoint:
// re-validate eligibility under a row lock, write the credited detail row,
// bump the running earned total and upsert the lifetime ledger. On error
// only the savepoint is rolled back.
func (s *distributionService) creditPosition(ctx context.Context, uow UnitOfWork, batch *models.DistributionBatch, alloc *models.Allocation) (decimal.Decimal, error) {
	if !alloc.TotalShare.IsPositive() {
		// A tiny amount spread over many positions can round a share down
		// to zero. There is nothing to credit, so the row is recorded as
		// failed without touching the position.
		return decimal.Zero, &PositionCreditError{PositionID: alloc.PositionID, Err: ErrShareRoundsToZero}
	}

	var newTotal decimal.Decimal
	now := time.Now().UTC()

	err := uow.WithSavepoint(ctx, func() error {
		pos, err := uow.PositionRepository().GetForUpdate(ctx, alloc.PositionID)
		if err != nil {
			return err
		}
		if pos == nil || !pos.Eligible() {
			// The plan-time snapshot went stale; every credited row must
			// reflect a commitment valid at credit time.
			return ErrPositionNoLongerEligible
		}

		detail := newDetail(batch.ID, alloc, models.DetailStatusCredited, &now)
		if err := uow.DetailRepository().Create(ctx, detail); err != nil {
			return err
		}

		newTotal, err = uow.PositionRepository().AddEarnings(ctx, alloc.PositionID, alloc.TotalShare)
		if err != nil {
			return err
		}

		return uow.YieldHistoryRepository().Upsert(ctx, alloc.PositionID, alloc.TotalShare, batch.ID, now)
	})
	if err != nil {
		return decimal.Zero, &PositionCreditError{PositionID: alloc.PositionID, Err: err}
	}

	return newTotal, nil
}

// newDetail copies a planned allocation into a detail row
func newDetail(batchID int64, alloc *models.Allocation, status models.DetailStatus, creditedAt *time.Time) *models.DistributionDetail {
	return &models.DistributionDetail{
		BatchID:        batchID,
		PositionID:     alloc.PositionID,
		Capital:        alloc.Capital,
		Rate:           alloc.Rate,
		Weight:         alloc.Weight,
		BaseShare:      alloc.BaseShare,
		BonusShare:     alloc.BonusShare,
		TotalShare:     alloc.TotalShare,
		PercentOfBatch: alloc.PercentOfBatch,
		Status:         status,
		CreditedAt:     creditedAt,
	}
}
