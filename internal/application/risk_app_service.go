package application

import (
	"context"
	"encoding/json"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/riskgraph/internal/domain/models"
	"github.com/turtacn/riskgraph/internal/domain/repository"
	"github.com/turtacn/riskgraph/internal/domain/service"
	"github.com/turtacn/riskgraph/pkg/constants"
	"github.com/turtacn/riskgraph/pkg/errors"
	"github.com/turtacn/riskgraph/pkg/logger"
)

// RiskAppService exposes risk score computation: synchronous single-entity
// calculation for request handlers, and asynchronous recalculate-all for
// background workers.
type RiskAppService interface {
	// CalculateScore computes, persists and returns a fresh score for one entity.
	CalculateScore(ctx context.Context, tenantID, entityID string) (*models.RiskScore, error)

	// GetCurrentScore returns the latest persisted score for one entity.
	GetCurrentScore(ctx context.Context, tenantID, entityID string) (*models.RiskScore, error)

	// ListCurrentScores returns the current score of every scored entity,
	// served from the cache when warm.
	ListCurrentScores(ctx context.Context, tenantID string) ([]*models.RiskScore, error)

	// SubmitRecalculateAll registers an async run recomputing every active
	// entity of the tenant and returns immediately.
	SubmitRecalculateAll(ctx context.Context, tenantID string) (*models.SimulationRun, error)
}

type riskAppServiceImpl struct {
	snapshots  *service.SnapshotProvider
	calculator *service.RiskCalculator
	scoreRepo  repository.RiskScoreRepository
	tenantRepo repository.TenantConfigRepository
	scoreCache service.ScoreCache
	events     service.EventPublisher
	registry   *SimulationRegistry
	logger     logger.Logger
}

// NewRiskAppService creates the risk application service.
func NewRiskAppService(
	snapshots *service.SnapshotProvider,
	calculator *service.RiskCalculator,
	scoreRepo repository.RiskScoreRepository,
	tenantRepo repository.TenantConfigRepository,
	scoreCache service.ScoreCache,
	events service.EventPublisher,
	registry *SimulationRegistry,
	log logger.Logger,
) RiskAppService {
	return &riskAppServiceImpl{
		snapshots:  snapshots,
		calculator: calculator,
		scoreRepo:  scoreRepo,
		tenantRepo: tenantRepo,
		scoreCache: scoreCache,
		events:     events,
		registry:   registry,
		logger:     log.WithComponent("RiskAppService"),
	}
}

func (s *riskAppServiceImpl) CalculateScore(ctx context.Context, tenantID, entityID string) (*models.RiskScore, error) {
	cfg, err := s.tenantRepo.GetConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshots.Snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	score, err := s.calculator.Compute(ctx, snap, entityID, cfg)
	if err != nil {
		return nil, err
	}
	if err := s.persistScore(ctx, score); err != nil {
		return nil, err
	}
	return score, nil
}

func (s *riskAppServiceImpl) GetCurrentScore(ctx context.Context, tenantID, entityID string) (*models.RiskScore, error) {
	score, err := s.scoreRepo.GetCurrent(ctx, tenantID, entityID)
	if err != nil {
		return nil, err
	}
	if score == nil {
		return nil, errors.New(errors.CodeNotFound, "no score calculated yet for entity %s", entityID).
			WithDetail("entity_id", entityID)
	}
	return score, nil
}

func (s *riskAppServiceImpl) ListCurrentScores(ctx context.Context, tenantID string) ([]*models.RiskScore, error) {
	if s.scoreCache != nil {
		if scores, err := s.scoreCache.GetScores(ctx, tenantID); err == nil && scores != nil {
			return scores, nil
		}
	}

	scores, err := s.scoreRepo.ListCurrentByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if s.scoreCache != nil && len(scores) > 0 {
		if err := s.scoreCache.SetScores(ctx, tenantID, scores); err != nil {
			s.logger.Warn(ctx, "score cache population failed",
				logger.String("tenant_id", tenantID), logger.Any("error", err.Error()))
		}
	}
	return scores, nil
}

func (s *riskAppServiceImpl) SubmitRecalculateAll(ctx context.Context, tenantID string) (*models.SimulationRun, error) {
	cfg, err := s.tenantRepo.GetConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	// The worker outlives the request; it gets its own context bounded by
	// the tenant's wall-clock ceiling.
	runCtx, cancel := context.WithTimeout(context.Background(), cfg.Ceilings.Timeout)

	run, err := s.registry.Submit(tenantID, constants.SimulationTypeRecalcAll, map[string]string{"tenant_id": tenantID}, cancel)
	if err != nil {
		cancel()
		return nil, err
	}
	s.publishLifecycle(ctx, run, constants.EventSimulationSubmitted, "")

	go s.recalculateAll(runCtx, cancel, run.ID, tenantID, cfg)

	return run, nil
}

// recalculateAll recomputes every active entity with bounded parallelism.
// Per-entity failures never abort the run; it finishes with warnings.
func (s *riskAppServiceImpl) recalculateAll(ctx context.Context, cancel context.CancelFunc, runID, tenantID string, cfg *models.TenantConfig) {
	defer cancel()
	s.registry.MarkRunning(runID)

	snap, err := s.snapshots.Snapshot(ctx, tenantID)
	if err != nil {
		s.failRun(ctx, runID, tenantID, "loading snapshot: "+err.Error())
		return
	}

	var (
		mu       sync.Mutex
		warnings []string
		result   models.RecalcAllResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(constants.RecalcAllConcurrency)

	for _, entityID := range snap.ActiveEntityIDs() {
		entityID := entityID
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			score, err := s.calculator.Compute(gctx, snap, entityID, cfg)
			if err == nil {
				err = s.persistScore(gctx, score)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.EntitiesFailed++
				warnings = append(warnings, "entity "+entityID+": "+err.Error())
				return nil // degraded results over total failure
			}
			result.EntitiesProcessed++
			if score.Escalated() {
				result.Escalations++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			s.failRun(ctx, runID, tenantID, "run exceeded its time ceiling")
			return
		}
		// Cancelled through the registry; its state is already terminal.
		s.logger.Info(context.Background(), "recalculate-all cancelled",
			logger.String("run_id", runID), logger.String("tenant_id", tenantID))
		return
	}

	if err := s.registry.Complete(runID, result, warnings); err != nil {
		s.logger.Error(context.Background(), "failed to record recalc result", err,
			logger.String("run_id", runID))
		return
	}
	if run, err := s.registry.Get(runID); err == nil && run.Status.IsTerminal() &&
		run.Status != constants.SimulationStatusCancelled {
		s.publishLifecycle(context.Background(), run, constants.EventSimulationCompleted, "")
	}
}

// persistScore writes the new current score, refreshes caches, and emits a
// level-change event when the score crossed a level boundary.
func (s *riskAppServiceImpl) persistScore(ctx context.Context, score *models.RiskScore) error {
	if err := s.scoreRepo.Upsert(ctx, score); err != nil {
		return err
	}
	if s.scoreCache != nil {
		if err := s.scoreCache.Invalidate(ctx, score.TenantID); err != nil {
			s.logger.Warn(ctx, "score cache invalidation failed",
				logger.String("tenant_id", score.TenantID), logger.Any("error", err.Error()))
		}
	}
	s.snapshots.Invalidate(score.TenantID)

	if score.LevelChanged() && s.events != nil {
		event := models.NewEngineEvent(score.TenantID, constants.EventRiskLevelChanged, score.EntityID,
			string(*score.PreviousLevel)+" -> "+string(score.Level))
		if payload, err := json.Marshal(score); err == nil {
			event.Payload = payload
		}
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Warn(ctx, "level change event not published",
				logger.String("entity_id", score.EntityID), logger.Any("error", err.Error()))
		}
	}
	return nil
}

func (s *riskAppServiceImpl) failRun(ctx context.Context, runID, tenantID, reason string) {
	s.registry.Fail(runID, reason)
	if run, err := s.registry.Get(runID); err == nil {
		s.publishLifecycle(ctx, run, constants.EventSimulationFailed, reason)
	}
}

func (s *riskAppServiceImpl) publishLifecycle(ctx context.Context, run *models.SimulationRun, eventType constants.EventType, message string) {
	if s.events == nil {
		return
	}
	event := models.NewEngineEvent(run.TenantID, eventType, run.ID, message)
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn(ctx, "lifecycle event not published",
			logger.String("run_id", run.ID), logger.Any("error", err.Error()))
	}
}
