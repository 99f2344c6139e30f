package service

import (
	"context"
	"time"

	"yieldengine/events"
	"yieldengine/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockPositionRepository is a mock implementation of PositionRepository
type MockPositionRepository struct {
	mock.Mock
}

func (m *MockPositionRepository) GetByID(ctx context.Context, id int64) (*models.Position, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Position), args.Error(1)
}

func (m *MockPositionRepository) GetEligible(ctx context.Context) ([]*models.Position, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Position), args.Error(1)
}

func (m *MockPositionRepository) GetForUpdate(ctx context.Context, id int64) (*models.Position, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Position), args.Error(1)
}

func (m *MockPositionRepository) AddEarnings(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockBatchRepository is a mock implementation of BatchRepository
type MockBatchRepository struct {
	mock.Mock
}

func (m *MockBatchRepository) Create(ctx context.Context, batch *models.DistributionBatch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockBatchRepository) Finalize(ctx context.Context, batchID int64, distributedAmount decimal.Decimal, positionCount int, status models.BatchStatus, processedAt time.Time) error {
	args := m.Called(ctx, batchID, distributedAmount, positionCount, status, processedAt)
	return args.Error(0)
}

func (m *MockBatchRepository) GetByID(ctx context.Context, id int64) (*models.DistributionBatch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DistributionBatch), args.Error(1)
}

func (m *MockBatchRepository) GetByCode(ctx context.Context, code string) (*models.DistributionBatch, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DistributionBatch), args.Error(1)
}

func (m *MockBatchRepository) List(ctx context.Context, limit, offset int) ([]*models.DistributionBatch, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DistributionBatch), args.Error(1)
}

func (m *MockBatchRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockBatchRepository) AggregateCompleted(ctx context.Context) (decimal.Decimal, int, *time.Time, error) {
	args := m.Called(ctx)
	var last *time.Time
	if args.Get(2) != nil {
		last = args.Get(2).(*time.Time)
	}
	return args.Get(0).(decimal.Decimal), args.Int(1), last, args.Error(3)
}

// MockDetailRepository is a mock implementation of DetailRepository
type MockDetailRepository struct {
	mock.Mock
}

func (m *MockDetailRepository) Create(ctx context.Context, detail *models.DistributionDetail) error {
	args := m.Called(ctx, detail)
	return args.Error(0)
}

func (m *MockDetailRepository) GetByBatch(ctx context.Context, batchID int64) ([]*models.DistributionDetail, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DistributionDetail), args.Error(1)
}

func (m *MockDetailRepository) GetByPosition(ctx context.Context, positionID int64, limit int) ([]*models.DistributionDetail, error) {
	args := m.Called(ctx, positionID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DistributionDetail), args.Error(1)
}

// MockYieldHistoryRepository is a mock implementation of YieldHistoryRepository
type MockYieldHistoryRepository struct {
	mock.Mock
}

func (m *MockYieldHistoryRepository) Upsert(ctx context.Context, positionID int64, amount decimal.Decimal, batchID int64, at time.Time) error {
	args := m.Called(ctx, positionID, amount, batchID, at)
	return args.Error(0)
}

func (m *MockYieldHistoryRepository) GetByPosition(ctx context.Context, positionID int64) (*models.PositionYieldHistory, error) {
	args := m.Called(ctx, positionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PositionYieldHistory), args.Error(1)
}

func (m *MockYieldHistoryRepository) TopByYield(ctx context.Context, n int) ([]*models.TopPosition, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TopPosition), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// recordingPublisher collects published events for assertions without
// expectation bookkeeping
type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(event events.Event) {
	p.events = append(p.events, event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. WithSavepoint is
// transparent: it always runs the given function and returns its error,
// which lets repository mocks inject per-position failures the same way a
// rolled-back savepoint would surface them.
type MockUnitOfWork struct {
	mock.Mock
	positionRepo     PositionRepository
	batchRepo        BatchRepository
	detailRepo       DetailRepository
	yieldHistoryRepo YieldHistoryRepository
	eventBus         EventPublisher
}

// SetRepositories wires the repository mocks into the unit of work
func (m *MockUnitOfWork) SetRepositories(pos PositionRepository, batch BatchRepository, detail DetailRepository, history YieldHistoryRepository, bus EventPublisher) {
	m.positionRepo = pos
	m.batchRepo = batch
	m.detailRepo = detail
	m.yieldHistoryRepo = history
	if bus == nil {
		bus = &recordingPublisher{}
	}
	m.eventBus = bus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) WithSavepoint(ctx context.Context, fn func() error) error {
	return fn()
}

func (m *MockUnitOfWork) PositionRepository() PositionRepository         { return m.positionRepo }
func (m *MockUnitOfWork) BatchRepository() BatchRepository               { return m.batchRepo }
func (m *MockUnitOfWork) DetailRepository() DetailRepository             { return m.detailRepo }
func (m *MockUnitOfWork) YieldHistoryRepository() YieldHistoryRepository { return m.yieldHistoryRepo }
func (m *MockUnitOfWork) EventBus() EventPublisher                       { return m.eventBus }

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
