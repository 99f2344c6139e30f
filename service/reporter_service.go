package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"yieldengine/models"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const statsCacheKey = "yieldengine:lifetime_stats"

// reporterService implements the ReporterService interface. All of its
// operations are read-only and run on committed snapshots; lifetime stats
// are optionally served through a short-TTL redis cache since they only
// change when a batch completes.
type reporterService struct {
	uowFactory UnitOfWorkFactory
	cache      *redis.Client // nil disables caching
	cacheTTL   time.Duration
}

// NewReporterService creates a new reporter service. Pass a nil cache
// client to disable the stats cache.
func NewReporterService(uowFactory UnitOfWorkFactory, cache *redis.Client, cacheTTL time.Duration) ReporterService {
	return &reporterService{
		uowFactory: uowFactory,
		cache:      cache,
		cacheTTL:   cacheTTL,
	}
}

// ListBatches returns a page of batches, newest first
func (s *reporterService) ListBatches(ctx context.Context, limit, offset int) (*models.BatchPage, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	batches, err := uow.BatchRepository().List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}

	count, err := uow.BatchRepository().Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count batches: %w", err)
	}

	return &models.BatchPage{
		Batches:    batches,
		TotalCount: count,
		Limit:      limit,
		Offset:     offset,
	}, nil
}

// GetBatchDetail returns a batch header with all of its detail rows joined
// with position wallet references
func (s *reporterService) GetBatchDetail(ctx context.Context, batchID int64) (*models.BatchDetail, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	batch, err := uow.BatchRepository().GetByID(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	if batch == nil {
		return nil, fmt.Errorf("batch %d: %w", batchID, ErrBatchNotFound)
	}

	details, err := uow.DetailRepository().GetByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch details: %w", err)
	}

	return &models.BatchDetail{
		Batch:   batch,
		Details: details,
	}, nil
}

// GetLifetimeStats returns aggregates over every completed batch, served
// from the cache when one is configured and warm
func (s *reporterService) GetLifetimeStats(ctx context.Context, topN int) (*models.LifetimeStats, error) {
	if topN <= 0 {
		topN = 10
	}

	cacheKey := fmt.Sprintf("%s:%d", statsCacheKey, topN)
	if cached := s.cachedStats(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	total, count, last, err := uow.BatchRepository().AggregateCompleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate batches: %w", err)
	}

	top, err := uow.YieldHistoryRepository().TopByYield(ctx, topN)
	if err != nil {
		return nil, fmt.Errorf("failed to get top positions: %w", err)
	}

	mean := decimal.Zero
	if count > 0 {
		mean = total.Div(decimal.NewFromInt(int64(count))).Round(shareScale)
	}

	stats := &models.LifetimeStats{
		TotalDistributed: total,
		BatchCount:       count,
		MeanPerBatch:     mean,
		LastDistribution: last,
		TopPositions:     top,
	}

	s.storeStats(ctx, cacheKey, stats)

	return stats, nil
}

// GetPositionHistory returns a position's lifetime ledger with its recent
// distribution lines
func (s *reporterService) GetPositionHistory(ctx context.Context, positionID int64, limit int) (*models.PositionYieldHistory, []*models.DistributionDetail, error) {
	if limit <= 0 {
		limit = 20
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	history, err := uow.YieldHistoryRepository().GetByPosition(ctx, positionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get yield history: %w", err)
	}

	details, err := uow.DetailRepository().GetByPosition(ctx, positionID, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get position details: %w", err)
	}

	return history, details, nil
}

// cachedStats returns cached lifetime stats, or nil on any miss or cache
// error. Cache failures never fail the read; they fall through to Postgres.
func (s *reporterService) cachedStats(ctx context.Context, key string) *models.LifetimeStats {
	if s.cache == nil {
		return nil
	}

	payload, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.WithError(err).Warn("Lifetime stats cache read failed")
		}
		return nil
	}

	var stats models.LifetimeStats
	if err := json.Unmarshal(payload, &stats); err != nil {
		log.WithError(err).Warn("Lifetime stats cache payload corrupt")
		return nil
	}

	return &stats
}

func (s *reporterService) storeStats(ctx context.Context, key string, stats *models.LifetimeStats) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(stats)
	if err != nil {
		log.WithError(err).Warn("Failed to marshal lifetime stats for cache")
		return
	}

	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		log.WithError(err).Warn("Lifetime stats cache write failed")
	}
}
