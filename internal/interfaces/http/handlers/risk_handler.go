package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/riskgraph/internal/application"
	"github.com/turtacn/riskgraph/internal/infrastructure/monitoring"
	"github.com/turtacn/riskgraph/pkg/errors"
	"github.com/turtacn/riskgraph/pkg/logger"
)

// RiskHandler serves the risk score endpoints.
type RiskHandler struct {
	riskService application.RiskAppService
	metrics     *monitoring.Metrics
	logger      logger.Logger
}

// NewRiskHandler creates the risk handler.
func NewRiskHandler(riskService application.RiskAppService, metrics *monitoring.Metrics, log logger.Logger) *RiskHandler {
	return &RiskHandler{
		riskService: riskService,
		metrics:     metrics,
		logger:      log,
	}
}

// CalculateScore computes and persists a fresh score for one entity.
// POST /api/v1/risk/scores/:entity_id/calculate
func (h *RiskHandler) CalculateScore(c *gin.Context) {
	entityID := c.Param("entity_id")
	tenant := tenantID(c)

	start := time.Now()
	score, err := h.riskService.CalculateScore(c.Request.Context(), tenant, entityID)
	if err != nil {
		h.metrics.RecordScoreCalculation(tenant, "error", time.Since(start))
		writeError(c, h.logger, err)
		return
	}
	h.metrics.RecordScoreCalculation(tenant, "ok", time.Since(start))

	h.logger.Info(c.Request.Context(), "score calculated",
		logger.String("entity_id", entityID),
		logger.Float64("score", score.Score),
		logger.String("level", string(score.Level)),
	)
	c.JSON(http.StatusOK, score)
}

// GetScore returns the current persisted score of one entity.
// GET /api/v1/risk/scores/:entity_id
func (h *RiskHandler) GetScore(c *gin.Context) {
	entityID := c.Param("entity_id")
	if entityID == "" {
		writeError(c, h.logger, errors.New(errors.CodeInvalidRequest, "entity_id is required"))
		return
	}

	score, err := h.riskService.GetCurrentScore(c.Request.Context(), tenantID(c), entityID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

// ListScores returns the current score of every scored entity of the tenant.
// GET /api/v1/risk/scores
func (h *RiskHandler) ListScores(c *gin.Context) {
	scores, err := h.riskService.ListCurrentScores(c.Request.Context(), tenantID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"scores": scores,
		"count":  len(scores),
	})
}

// RecalculateAll registers an asynchronous run recomputing every active
// entity and returns it immediately.
// POST /api/v1/risk/recalculate
func (h *RiskHandler) RecalculateAll(c *gin.Context) {
	run, err := h.riskService.SubmitRecalculateAll(c.Request.Context(), tenantID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.metrics.RecordSimulationStarted(run.TenantID, run.Type)
	c.JSON(http.StatusAccepted, run)
}
