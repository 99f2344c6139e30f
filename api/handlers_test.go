package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"yieldengine/models"
	"yieldengine/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockDistributionService struct {
	mock.Mock
}

func (m *mockDistributionService) Preview(ctx context.Context, totalAmount decimal.Decimal, bonusEnabled bool) (*models.AllocationPreview, error) {
	args := m.Called(ctx, totalAmount, bonusEnabled)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AllocationPreview), args.Error(1)
}

func (m *mockDistributionService) Execute(ctx context.Context, totalAmount decimal.Decimal, createdBy string, opts service.ExecuteOptions) (*models.DistributionResult, error) {
	args := m.Called(ctx, totalAmount, createdBy, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DistributionResult), args.Error(1)
}

type mockReporterService struct {
	mock.Mock
}

func (m *mockReporterService) ListBatches(ctx context.Context, limit, offset int) (*models.BatchPage, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BatchPage), args.Error(1)
}

func (m *mockReporterService) GetBatchDetail(ctx context.Context, batchID int64) (*models.BatchDetail, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BatchDetail), args.Error(1)
}

func (m *mockReporterService) GetLifetimeStats(ctx context.Context, topN int) (*models.LifetimeStats, error) {
	args := m.Called(ctx, topN)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LifetimeStats), args.Error(1)
}

func (m *mockReporterService) GetPositionHistory(ctx context.Context, positionID int64, limit int) (*models.PositionYieldHistory, []*models.DistributionDetail, error) {
	args := m.Called(ctx, positionID, limit)
	var history *models.PositionYieldHistory
	if args.Get(0) != nil {
		history = args.Get(0).(*models.PositionYieldHistory)
	}
	var details []*models.DistributionDetail
	if args.Get(1) != nil {
		details = args.Get(1).([]*models.DistributionDetail)
	}
	return history, details, args.Error(2)
}

func newTestRouter() (*gin.Engine, *mockDistributionService, *mockReporterService) {
	distributions := &mockDistributionService{}
	reporter := &mockReporterService{}
	router := NewRouter(NewHandler(distributions, reporter))
	return router, distributions, reporter
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestExecuteDistribution(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router, distributions, _ := newTestRouter()

		distributions.On("Execute", mock.Anything,
			mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(1000)) }),
			"ops",
			service.ExecuteOptions{BonusEnabled: true, Source: "august"},
		).Return(&models.DistributionResult{
			Success:           true,
			BatchID:           1,
			BatchCode:         "YLD-202608-ABCDEF",
			Status:            models.BatchStatusCompleted,
			DistributedAmount: decimal.NewFromInt(1000),
			PositionCount:     2,
			PositionsUpdated:  2,
		}, nil)

		w := doJSON(t, router, http.MethodPost, "/api/v1/distributions", gin.H{
			"amount":        "1000",
			"bonus_enabled": true,
			"created_by":    "ops",
			"source":        "august",
		})

		require.Equal(t, http.StatusCreated, w.Code)

		var result models.DistributionResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.True(t, result.Success)
		assert.Equal(t, "YLD-202608-ABCDEF", result.BatchCode)
		assert.Equal(t, 2, result.PositionsUpdated)
	})

	t.Run("no eligible positions", func(t *testing.T) {
		router, distributions, _ := newTestRouter()

		distributions.On("Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &service.ValidationError{Reason: "no eligible positions", Err: service.ErrNoEligiblePositions})

		w := doJSON(t, router, http.MethodPost, "/api/v1/distributions", gin.H{
			"amount":     "1000",
			"created_by": "ops",
		})

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, "NoEligiblePositions", resp["error"])
	})

	t.Run("validation error", func(t *testing.T) {
		router, distributions, _ := newTestRouter()

		distributions.On("Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, service.NewValidationError("total amount must be positive"))

		w := doJSON(t, router, http.MethodPost, "/api/v1/distributions", gin.H{
			"amount":     "-5",
			"created_by": "ops",
		})

		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("persistence failure", func(t *testing.T) {
		router, distributions, _ := newTestRouter()

		distributions.On("Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &service.BatchPersistenceError{Op: "commit", Err: assert.AnError})

		w := doJSON(t, router, http.MethodPost, "/api/v1/distributions", gin.H{
			"amount":     "1000",
			"created_by": "ops",
		})

		require.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		router, distributions, _ := newTestRouter()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/distributions",
			bytes.NewReader([]byte("{not json")))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		distributions.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPreviewDistribution(t *testing.T) {
	router, distributions, _ := newTestRouter()

	distributions.On("Preview", mock.Anything,
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(1000)) }),
		false,
	).Return(&models.AllocationPreview{
		TotalAmount:   decimal.NewFromInt(1000),
		PositionCount: 2,
		Allocations: []*models.Allocation{
			{PositionID: 1, TotalShare: decimal.NewFromInt(600)},
			{PositionID: 2, TotalShare: decimal.NewFromInt(400)},
		},
	}, nil)

	w := doJSON(t, router, http.MethodPost, "/api/v1/distributions/preview", gin.H{
		"amount": "1000",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var preview models.AllocationPreview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &preview))
	require.Len(t, preview.Allocations, 2)
	assert.True(t, preview.Allocations[0].TotalShare.Equal(decimal.NewFromInt(600)))
}

func TestListBatches(t *testing.T) {
	router, _, reporter := newTestRouter()

	reporter.On("ListBatches", mock.Anything, 5, 10).Return(&models.BatchPage{
		Batches:    []*models.DistributionBatch{{ID: 3, Code: "YLD-202608-AAAAAA"}},
		TotalCount: 31,
		Limit:      5,
		Offset:     10,
	}, nil)

	w := doJSON(t, router, http.MethodGet, "/api/v1/distributions?limit=5&offset=10", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var page models.BatchPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 31, page.TotalCount)
	require.Len(t, page.Batches, 1)
}

func TestGetBatchDetail(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		router, _, reporter := newTestRouter()

		reporter.On("GetBatchDetail", mock.Anything, int64(7)).Return(&models.BatchDetail{
			Batch: &models.DistributionBatch{ID: 7, Code: "YLD-202608-BBBBBB"},
			Details: []*models.DistributionDetail{
				{ID: 1, BatchID: 7, PositionID: 1, Status: models.DetailStatusCredited},
			},
		}, nil)

		w := doJSON(t, router, http.MethodGet, "/api/v1/distributions/7", nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		router, _, reporter := newTestRouter()

		reporter.On("GetBatchDetail", mock.Anything, int64(99)).
			Return(nil, fmt.Errorf("batch 99: %w", service.ErrBatchNotFound))

		w := doJSON(t, router, http.MethodGet, "/api/v1/distributions/99", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		router, _, _ := newTestRouter()

		w := doJSON(t, router, http.MethodGet, "/api/v1/distributions/abc", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetLifetimeStats(t *testing.T) {
	router, _, reporter := newTestRouter()

	reporter.On("GetLifetimeStats", mock.Anything, 3).Return(&models.LifetimeStats{
		TotalDistributed: decimal.NewFromInt(5000),
		BatchCount:       5,
		MeanPerBatch:     decimal.NewFromInt(1000),
	}, nil)

	w := doJSON(t, router, http.MethodGet, "/api/v1/stats?top=3", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var stats models.LifetimeStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 5, stats.BatchCount)
	assert.True(t, stats.TotalDistributed.Equal(decimal.NewFromInt(5000)))
}

func TestGetPositionHistory(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		router, _, reporter := newTestRouter()

		reporter.On("GetPositionHistory", mock.Anything, int64(1), 20).Return(
			&models.PositionYieldHistory{PositionID: 1, DistributionCount: 2},
			[]*models.DistributionDetail{{ID: 5, PositionID: 1}},
			nil,
		)

		w := doJSON(t, router, http.MethodGet, "/api/v1/positions/1/history", nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("no history", func(t *testing.T) {
		router, _, reporter := newTestRouter()

		reporter.On("GetPositionHistory", mock.Anything, int64(2), 20).
			Return(nil, nil, nil)

		w := doJSON(t, router, http.MethodGet, "/api/v1/positions/2/history", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	router, _, reporter := newTestRouter()
	reporter.On("GetLifetimeStats", mock.Anything, 10).Return(&models.LifetimeStats{}, nil)

	t.Run("generates an id", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/stats", nil)
		assert.NotEmpty(t, w.Header().Get(requestIDHeader))
	})

	t.Run("honors the caller's id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		req.Header.Set(requestIDHeader, "caller-id-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "caller-id-123", w.Header().Get(requestIDHeader))
	})
}
