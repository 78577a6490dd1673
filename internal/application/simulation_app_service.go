package application

import (
	"context"

	"github.com/turtacn/riskgraph/internal/domain/models"
	"github.com/turtacn/riskgraph/internal/domain/repository"
	"github.com/turtacn/riskgraph/internal/domain/service"
	"github.com/turtacn/riskgraph/pkg/constants"
	"github.com/turtacn/riskgraph/pkg/errors"
	"github.com/turtacn/riskgraph/pkg/logger"
)

// CascadeParams are the caller-supplied inputs of one cascade run.
type CascadeParams struct {
	TriggerEntityID string `json:"trigger_entity_id"`
	TriggerEvent    string `json:"trigger_event"`
	MaxDepth        int    `json:"max_depth,omitempty"`
}

// SimulationAppService exposes the simulation modes. Fast operations
// (cascade, what-if) run synchronously on the request path; Monte Carlo and
// stress tests are registered and executed on background workers, with the
// registry as the hand-off point.
type SimulationAppService interface {
	// RunCascade runs one cascade synchronously.
	RunCascade(ctx context.Context, tenantID string, params CascadeParams) (*models.ScenarioChain, error)

	// RunWhatIf projects one scenario synchronously.
	RunWhatIf(ctx context.Context, tenantID string, scenario models.WhatIfScenario) (*models.WhatIfResult, error)

	// SubmitMonteCarlo validates the config, registers an async run and returns it.
	SubmitMonteCarlo(ctx context.Context, tenantID string, cfg models.MonteCarloConfig) (*models.SimulationRun, error)

	// SubmitStressTest registers an async stress-test run over the catalog.
	SubmitStressTest(ctx context.Context, tenantID string, scenarioNames []string) (*models.SimulationRun, error)

	// GetRun returns one run scoped to the tenant.
	GetRun(ctx context.Context, tenantID, runID string) (*models.SimulationRun, error)

	// ListRuns returns the tenant's runs, newest first.
	ListRuns(ctx context.Context, tenantID string, filter RunFilter) []*models.SimulationRun

	// CancelRun requests cooperative cancellation; terminal runs are a no-op.
	CancelRun(ctx context.Context, tenantID, runID string) (*models.SimulationRun, error)
}

type simulationAppServiceImpl struct {
	snapshots  *service.SnapshotProvider
	cascades   *service.CascadeSimulator
	monteCarlo *service.MonteCarloSimulator
	whatIf     *service.WhatIfEngine
	stress     *service.StressTestRunner
	tenantRepo repository.TenantConfigRepository
	events     service.EventPublisher
	registry   *SimulationRegistry
	logger     logger.Logger
}

// NewSimulationAppService creates the simulation application service.
func NewSimulationAppService(
	snapshots *service.SnapshotProvider,
	cascades *service.CascadeSimulator,
	monteCarlo *service.MonteCarloSimulator,
	whatIf *service.WhatIfEngine,
	stress *service.StressTestRunner,
	tenantRepo repository.TenantConfigRepository,
	events service.EventPublisher,
	registry *SimulationRegistry,
	log logger.Logger,
) SimulationAppService {
	return &simulationAppServiceImpl{
		snapshots:  snapshots,
		cascades:   cascades,
		monteCarlo: monteCarlo,
		whatIf:     whatIf,
		stress:     stress,
		tenantRepo: tenantRepo,
		events:     events,
		registry:   registry,
		logger:     log.WithComponent("SimulationAppService"),
	}
}

func (s *simulationAppServiceImpl) RunCascade(ctx context.Context, tenantID string, params CascadeParams) (*models.ScenarioChain, error) {
	cfg, err := s.tenantRepo.GetConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	maxDepth := params.MaxDepth
	if maxDepth <= 0 {
		maxDepth = cfg.Ceilings.MaxCascadeDepth
	}
	if maxDepth > cfg.Ceilings.MaxCascadeDepth {
		return nil, errors.ErrInvalidConfig("max_depth", "exceeds tenant ceiling").
			WithDetail("ceiling", cfg.Ceilings.MaxCascadeDepth)
	}

	snap, err := s.snapshots.Snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.cascades.RunCascade(ctx, snap, params.TriggerEntityID, params.TriggerEvent, service.CascadeConfig{MaxDepth: maxDepth})
}

func (s *simulationAppServiceImpl) RunWhatIf(ctx context.Context, tenantID string, scenario models.WhatIfScenario) (*models.WhatIfResult, error) {
	cfg, err := s.tenantRepo.GetConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshots.Snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.whatIf.Run(ctx, snap, scenario, cfg)
}

func (s *simulationAppServiceImpl) SubmitMonteCarlo(ctx context.Context, tenantID string, mcCfg models.MonteCarloConfig) (*models.SimulationRun, error) {
	// Fail fast on bad parameters: no run is registered for invalid input.
	if err := mcCfg.Validate(); err != nil {
		return nil, err
	}
	cfg, err := s.tenantRepo.GetConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if mcCfg.Iterations > cfg.Ceilings.MaxIterations {
		return nil, errors.ErrInvalidConfig("iterations", "exceeds tenant ceiling").
			WithDetail("ceiling", cfg.Ceilings.MaxIterations)
	}

	runCtx, cancel := context.WithTimeout(context.Background(), cfg.Ceilings.Timeout)
	run, err := s.registry.Submit(tenantID, constants.SimulationTypeMonteCarlo, mcCfg, cancel)
	if err != nil {
		cancel()
		return nil, err
	}
	s.publishLifecycle(ctx, run, constants.EventSimulationSubmitted, "")

	go s.executeAsync(runCtx, cancel, run, func(workerCtx context.Context) (interface{}, []string, error) {
		snap, err := s.snapshots.Snapshot(workerCtx, tenantID)
		if err != nil {
			return nil, nil, err
		}
		result, err := s.monteCarlo.Run(workerCtx, snap, mcCfg)
		return result, nil, err
	})

	return run, nil
}

func (s *simulationAppServiceImpl) SubmitStressTest(ctx context.Context, tenantID string, scenarioNames []string) (*models.SimulationRun, error) {
	cfg, err := s.tenantRepo.GetConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(context.Background(), cfg.Ceilings.Timeout)
	run, err := s.registry.Submit(tenantID, constants.SimulationTypeStressTest,
		map[string]interface{}{"scenarios": scenarioNames}, cancel)
	if err != nil {
		cancel()
		return nil, err
	}
	s.publishLifecycle(ctx, run, constants.EventSimulationSubmitted, "")

	go s.executeAsync(runCtx, cancel, run, func(workerCtx context.Context) (interface{}, []string, error) {
		snap, err := s.snapshots.Snapshot(workerCtx, tenantID)
		if err != nil {
			return nil, nil, err
		}
		result, err := s.stress.Run(workerCtx, snap, cfg, scenarioNames)
		if err != nil {
			return nil, nil, err
		}
		// Per-item what-if errors surface as run warnings.
		var warnings []string
		for _, sc := range result.Scenarios {
			if sc.WhatIf != nil {
				warnings = append(warnings, sc.WhatIf.Errors...)
			}
		}
		return result, warnings, nil
	})

	return run, nil
}

// executeAsync drives one background run through its lifecycle: running,
// then completed, completed_with_warnings, failed, or cancelled.
func (s *simulationAppServiceImpl) executeAsync(ctx context.Context, cancel context.CancelFunc, run *models.SimulationRun, work func(context.Context) (interface{}, []string, error)) {
	defer cancel()
	s.registry.MarkRunning(run.ID)

	result, warnings, err := work(ctx)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			s.registry.Fail(run.ID, "run exceeded its time ceiling")
			s.publishTerminal(run.ID, constants.EventSimulationFailed, "timeout")
			return
		}
		if ctx.Err() == context.Canceled {
			// Cancelled through the registry; state and events are already handled there.
			return
		}
		s.registry.Fail(run.ID, err.Error())
		s.publishTerminal(run.ID, constants.EventSimulationFailed, err.Error())
		return
	}

	if err := s.registry.Complete(run.ID, result, warnings); err != nil {
		s.logger.Error(context.Background(), "failed to record simulation result", err,
			logger.String("run_id", run.ID))
		return
	}
	if final, err := s.registry.Get(run.ID); err == nil &&
		final.Status != constants.SimulationStatusCancelled {
		s.publishTerminal(run.ID, constants.EventSimulationCompleted, "")
	}
}

func (s *simulationAppServiceImpl) GetRun(ctx context.Context, tenantID, runID string) (*models.SimulationRun, error) {
	run, err := s.registry.Get(runID)
	if err != nil {
		return nil, err
	}
	if run.TenantID != tenantID {
		return nil, errors.ErrSimulationNotFound(runID)
	}
	return run, nil
}

func (s *simulationAppServiceImpl) ListRuns(ctx context.Context, tenantID string, filter RunFilter) []*models.SimulationRun {
	filter.TenantID = tenantID
	return s.registry.List(filter)
}

func (s *simulationAppServiceImpl) CancelRun(ctx context.Context, tenantID, runID string) (*models.SimulationRun, error) {
	run, err := s.registry.Get(runID)
	if err != nil {
		return nil, err
	}
	if run.TenantID != tenantID {
		return nil, errors.ErrSimulationNotFound(runID)
	}

	wasTerminal := run.Status.IsTerminal()
	cancelled, err := s.registry.Cancel(runID)
	if err != nil {
		return nil, err
	}
	if !wasTerminal {
		s.publishLifecycle(ctx, cancelled, constants.EventSimulationCancelled, "")
	}
	return cancelled, nil
}

func (s *simulationAppServiceImpl) publishLifecycle(ctx context.Context, run *models.SimulationRun, eventType constants.EventType, message string) {
	if s.events == nil {
		return
	}
	event := models.NewEngineEvent(run.TenantID, eventType, run.ID, message)
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn(ctx, "lifecycle event not published",
			logger.String("run_id", run.ID), logger.Any("error", err.Error()))
	}
}

func (s *simulationAppServiceImpl) publishTerminal(runID string, eventType constants.EventType, message string) {
	run, err := s.registry.Get(runID)
	if err != nil {
		return
	}
	s.publishLifecycle(context.Background(), run, eventType, message)
}
