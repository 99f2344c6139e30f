package service

import (
	"errors"
	"fmt"
)

// ErrNoEligiblePositions is returned when a distribution is requested but
// no position is eligible to receive yield.
var ErrNoEligiblePositions = errors.New("NoEligiblePositions")

// ErrPositionNoLongerEligible marks a credit that failed because the
// position closed or lost its capital between plan time and credit time.
var ErrPositionNoLongerEligible = errors.New("position no longer eligible")

// ErrDuplicateBatchCode is returned by the batch repository when a header
// insert hits the unique constraint on the code column. The executor
// retries with a freshly generated code.
var ErrDuplicateBatchCode = errors.New("duplicate batch code")

// ErrBatchNotFound is returned by batch lookups when no batch exists for
// the given identifier.
var ErrBatchNotFound = errors.New("batch not found")

// ErrShareRoundsToZero marks an allocation whose share rounded down to
// zero at the fixed 6-decimal scale. Nothing can be credited for it; the
// executor records the row as failed.
var ErrShareRoundsToZero = errors.New("allocated share rounds to zero")

// ValidationError reports invalid input to the planner or executor.
// Nothing is persisted when one is returned.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError creates a validation error with a human-readable reason
func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

// PositionCreditError reports a per-position credit failure. It is recorded
// on that position's detail row and never aborts the batch.
type PositionCreditError struct {
	PositionID int64
	Err        error
}

func (e *PositionCreditError) Error() string {
	return fmt.Sprintf("failed to credit position %d: %v", e.PositionID, e.Err)
}

func (e *PositionCreditError) Unwrap() error { return e.Err }

// BatchPersistenceError reports a failure opening or committing the outer
// unit of work. The whole operation rolls back and no batch row is visible
// to readers.
type BatchPersistenceError struct {
	Op  string
	Err error
}

func (e *BatchPersistenceError) Error() string {
	return fmt.Sprintf("batch persistence failed during %s: %v", e.Op, e.Err)
}

func (e *BatchPersistenceError) Unwrap() error { return e.Err }
