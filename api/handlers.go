package api

import (
	"errors"
	"net/http"
	"strconv"

	"yieldengine/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Handler exposes the distribution engine over HTTP. It is a thin layer:
// all semantics live in the services, the handlers only bind, delegate
// and translate errors.
type Handler struct {
	distributions service.DistributionService
	reporter      service.ReporterService
}

// NewHandler creates the HTTP handler set
func NewHandler(distributions service.DistributionService, reporter service.ReporterService) *Handler {
	return &Handler{
		distributions: distributions,
		reporter:      reporter,
	}
}

// NewRouter builds the gin engine with all routes and middleware wired
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		v1.POST("/distributions/preview", h.PreviewDistribution)
		v1.POST("/distributions", h.ExecuteDistribution)
		v1.GET("/distributions", h.ListBatches)
		v1.GET("/distributions/:id", h.GetBatchDetail)
		v1.GET("/stats", h.GetLifetimeStats)
		v1.GET("/positions/:id/history", h.GetPositionHistory)
	}

	return r
}

type previewRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	BonusEnabled bool            `json:"bonus_enabled"`
}

type executeRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	BonusEnabled bool            `json:"bonus_enabled"`
	CreatedBy    string          `json:"created_by"`
	Source       string          `json:"source"`
	Notes        string          `json:"notes"`
}

// PreviewDistribution returns the allocation plan without persisting it
func (h *Handler) PreviewDistribution(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	preview, err := h.distributions.Preview(c.Request.Context(), req.Amount, req.BonusEnabled)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, preview)
}

// ExecuteDistribution runs a distribution batch
func (h *Handler) ExecuteDistribution(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	result, err := h.distributions.Execute(c.Request.Context(), req.Amount, req.CreatedBy, service.ExecuteOptions{
		BonusEnabled: req.BonusEnabled,
		Source:       req.Source,
		Notes:        req.Notes,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// ListBatches returns a page of batches, newest first
func (h *Handler) ListBatches(c *gin.Context) {
	limit := intQuery(c, "limit", 20)
	offset := intQuery(c, "offset", 0)

	page, err := h.reporter.ListBatches(c.Request.Context(), limit, offset)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetBatchDetail returns a batch header with all of its detail rows
func (h *Handler) GetBatchDetail(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid batch id"})
		return
	}

	detail, err := h.reporter.GetBatchDetail(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrBatchNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "batch not found"})
			return
		}
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// GetLifetimeStats returns aggregates over every completed batch
func (h *Handler) GetLifetimeStats(c *gin.Context) {
	topN := intQuery(c, "top", 10)

	stats, err := h.reporter.GetLifetimeStats(c.Request.Context(), topN)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetPositionHistory returns a position's lifetime ledger with its recent
// distribution lines
func (h *Handler) GetPositionHistory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid position id"})
		return
	}

	limit := intQuery(c, "limit", 20)

	history, details, err := h.reporter.GetPositionHistory(c.Request.Context(), id, limit)
	if err != nil {
		renderError(c, err)
		return
	}
	if history == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "no yield history for position"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": history,
		"details": details,
	})
}

// renderError maps service errors onto HTTP responses. Validation problems
// are the caller's fault; everything else is reported as internal with the
// detail kept in the logs.
func renderError(c *gin.Context, err error) {
	var valErr *service.ValidationError

	switch {
	case errors.Is(err, service.ErrNoEligiblePositions):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "error": "NoEligiblePositions"})
	case errors.As(err, &valErr):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": valErr.Reason})
	default:
		log.WithFields(log.Fields{
			"requestID": c.GetString("request_id"),
			"error":     err,
		}).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"})
	}
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
