package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/riskgraph/internal/application"
	"github.com/turtacn/riskgraph/internal/domain/models"
	"github.com/turtacn/riskgraph/internal/infrastructure/monitoring"
	"github.com/turtacn/riskgraph/pkg/constants"
	"github.com/turtacn/riskgraph/pkg/errors"
	"github.com/turtacn/riskgraph/pkg/logger"
)

// SimulationHandler serves the simulation endpoints.
type SimulationHandler struct {
	simService application.SimulationAppService
	metrics    *monitoring.Metrics
	logger     logger.Logger
}

// NewSimulationHandler creates the simulation handler.
func NewSimulationHandler(simService application.SimulationAppService, metrics *monitoring.Metrics, log logger.Logger) *SimulationHandler {
	return &SimulationHandler{
		simService: simService,
		metrics:    metrics,
		logger:     log,
	}
}

type cascadeRequest struct {
	TriggerEntityID string `json:"trigger_entity_id" binding:"required"`
	TriggerEvent    string `json:"trigger_event"`
	MaxDepth        int    `json:"max_depth"`
}

type stressTestRequest struct {
	Scenarios []string `json:"scenarios"`
}

// RunCascade runs one cascade synchronously and returns the chain.
// POST /api/v1/simulations/cascade
func (h *SimulationHandler) RunCascade(c *gin.Context) {
	var req cascadeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, errors.New(errors.CodeInvalidRequest, "invalid cascade request: %s", err.Error()))
		return
	}

	tenant := tenantID(c)
	h.metrics.RecordSimulationStarted(tenant, constants.SimulationTypeCascade)

	chain, err := h.simService.RunCascade(c.Request.Context(), tenant, application.CascadeParams{
		TriggerEntityID: req.TriggerEntityID,
		TriggerEvent:    req.TriggerEvent,
		MaxDepth:        req.MaxDepth,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.metrics.RecordCascadeDepth(chain.MaxCascadeDepth)
	c.JSON(http.StatusOK, chain)
}

// RunWhatIf projects one hypothetical scenario synchronously.
// POST /api/v1/simulations/whatif
func (h *SimulationHandler) RunWhatIf(c *gin.Context) {
	var scenario models.WhatIfScenario
	if err := c.ShouldBindJSON(&scenario); err != nil {
		writeError(c, h.logger, errors.New(errors.CodeInvalidRequest, "invalid what-if scenario: %s", err.Error()))
		return
	}

	tenant := tenantID(c)
	h.metrics.RecordSimulationStarted(tenant, constants.SimulationTypeWhatIf)

	result, err := h.simService.RunWhatIf(c.Request.Context(), tenant, scenario)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SubmitMonteCarlo validates and registers an asynchronous Monte Carlo run.
// POST /api/v1/simulations/montecarlo
func (h *SimulationHandler) SubmitMonteCarlo(c *gin.Context) {
	var cfg models.MonteCarloConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		writeError(c, h.logger, errors.New(errors.CodeInvalidRequest, "invalid monte carlo config: %s", err.Error()))
		return
	}

	run, err := h.simService.SubmitMonteCarlo(c.Request.Context(), tenantID(c), cfg)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.metrics.RecordSimulationStarted(run.TenantID, run.Type)
	c.JSON(http.StatusAccepted, run)
}

// SubmitStressTest registers an asynchronous stress-test run. An empty
// scenario list runs the whole catalog.
// POST /api/v1/simulations/stress-test
func (h *SimulationHandler) SubmitStressTest(c *gin.Context) {
	var req stressTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, errors.New(errors.CodeInvalidRequest, "invalid stress test request: %s", err.Error()))
		return
	}

	run, err := h.simService.SubmitStressTest(c.Request.Context(), tenantID(c), req.Scenarios)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.metrics.RecordSimulationStarted(run.TenantID, run.Type)
	c.JSON(http.StatusAccepted, run)
}

// GetRun returns one simulation run scoped to the tenant.
// GET /api/v1/simulations/runs/:run_id
func (h *SimulationHandler) GetRun(c *gin.Context) {
	run, err := h.simService.GetRun(c.Request.Context(), tenantID(c), c.Param("run_id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// ListRuns returns the tenant's runs, newest first, optionally filtered by
// the type and status query parameters.
// GET /api/v1/simulations/runs
func (h *SimulationHandler) ListRuns(c *gin.Context) {
	filter := application.RunFilter{
		Type:   constants.SimulationType(c.Query("type")),
		Status: constants.SimulationStatus(c.Query("status")),
	}
	runs := h.simService.ListRuns(c.Request.Context(), tenantID(c), filter)
	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"count": len(runs),
	})
}

// CancelRun requests cooperative cancellation of a live run. Cancelling a
// terminal run is a no-op that returns the run unchanged.
// POST /api/v1/simulations/runs/:run_id/cancel
func (h *SimulationHandler) CancelRun(c *gin.Context) {
	run, err := h.simService.CancelRun(c.Request.Context(), tenantID(c), c.Param("run_id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, run)
}
