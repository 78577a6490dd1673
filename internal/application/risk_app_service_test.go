package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/riskgraph/internal/domain/models"
	"github.com/turtacn/riskgraph/internal/domain/service"
	"github.com/turtacn/riskgraph/pkg/constants"
	"github.com/turtacn/riskgraph/pkg/errors"
	"github.com/turtacn/riskgraph/pkg/logger"
)

type riskFixture struct {
	svc       RiskAppService
	scoreRepo *mockScoreRepo
	cache     *mockScoreCache
	events    *recordingPublisher
	registry  *SimulationRegistry
}

// newRiskFixture wires the risk app service over a two-entity fixture graph.
// org-b carries a current critical score so recalculating it produces a level
// change.
func newRiskFixture(t *testing.T) *riskFixture {
	t.Helper()

	entities := []*models.Entity{
		{ID: "org-a", TenantID: "tenant-1", Type: "organization", Active: true},
		{ID: "org-b", TenantID: "tenant-1", Type: "organization", Active: true},
	}
	currentScores := []*models.RiskScore{
		{ID: "old-b", TenantID: "tenant-1", EntityID: "org-b", Score: 85, Level: constants.RiskLevelCritical},
	}

	scoreRepo := &mockScoreRepo{}
	scoreRepo.On("ListCurrentByTenant", mock.Anything, "tenant-1").Return(currentScores, nil)
	scoreRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	cache := &mockScoreCache{}
	cache.On("Invalidate", mock.Anything, "tenant-1").Return(nil)

	events := &recordingPublisher{}
	registry := NewSimulationRegistry(logger.NewNoop())

	snapshots := service.NewSnapshotProvider(
		&stubEntityRepo{entities: entities},
		&stubDependencyRepo{},
		&stubConstraintRepo{},
		scoreRepo,
		logger.NewNoop(),
	)

	svc := NewRiskAppService(
		snapshots,
		service.NewRiskCalculator(logger.NewNoop()),
		scoreRepo,
		&stubTenantRepo{},
		cache,
		events,
		registry,
		logger.NewNoop(),
	)
	return &riskFixture{svc: svc, scoreRepo: scoreRepo, cache: cache, events: events, registry: registry}
}

func TestCalculateScorePersistsAndInvalidates(t *testing.T) {
	f := newRiskFixture(t)

	score, err := f.svc.CalculateScore(context.Background(), "tenant-1", "org-a")
	require.NoError(t, err)

	assert.Equal(t, "org-a", score.EntityID)
	assert.Equal(t, constants.RiskLevelLow, score.Level)

	f.scoreRepo.AssertCalled(t, "Upsert", mock.Anything, mock.Anything)
	f.cache.AssertCalled(t, "Invalidate", mock.Anything, "tenant-1")
}

func TestCalculateScoreUnknownEntity(t *testing.T) {
	f := newRiskFixture(t)

	_, err := f.svc.CalculateScore(context.Background(), "tenant-1", "ghost")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Empty(t, f.scoreRepo.upserted())
}

func TestCalculateScoreEmitsLevelChangeEvent(t *testing.T) {
	f := newRiskFixture(t)

	// org-b was CRITICAL; with no constraints or edges it recomputes to LOW.
	score, err := f.svc.CalculateScore(context.Background(), "tenant-1", "org-b")
	require.NoError(t, err)
	require.True(t, score.LevelChanged())

	counts := f.events.byType()
	assert.Equal(t, 1, counts[string(constants.EventRiskLevelChanged)])
}

func TestCalculateScoreNoEventWithoutLevelChange(t *testing.T) {
	f := newRiskFixture(t)

	_, err := f.svc.CalculateScore(context.Background(), "tenant-1", "org-a")
	require.NoError(t, err)

	assert.Zero(t, f.events.byType()[string(constants.EventRiskLevelChanged)])
}

func TestGetCurrentScoreNotYetCalculated(t *testing.T) {
	f := newRiskFixture(t)
	f.scoreRepo.On("GetCurrent", mock.Anything, "tenant-1", "org-a").Return(nil, nil)

	_, err := f.svc.GetCurrentScore(context.Background(), "tenant-1", "org-a")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}

func TestGetCurrentScoreReturnsLatest(t *testing.T) {
	f := newRiskFixture(t)
	stored := &models.RiskScore{ID: "s1", TenantID: "tenant-1", EntityID: "org-b", Score: 85}
	f.scoreRepo.On("GetCurrent", mock.Anything, "tenant-1", "org-b").Return(stored, nil)

	got, err := f.svc.GetCurrentScore(context.Background(), "tenant-1", "org-b")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
}

func TestListCurrentScoresServedFromCache(t *testing.T) {
	f := newRiskFixture(t)
	cached := []*models.RiskScore{{ID: "c1", EntityID: "org-b", Score: 85}}
	f.cache.On("GetScores", mock.Anything, "tenant-1").Return(cached, nil)

	got, err := f.svc.ListCurrentScores(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, cached, got)
	f.scoreRepo.AssertNotCalled(t, "ListCurrentByTenant", mock.Anything, "tenant-1")
}

func TestListCurrentScoresPopulatesCacheOnMiss(t *testing.T) {
	f := newRiskFixture(t)
	f.cache.On("GetScores", mock.Anything, "tenant-1").Return(nil, nil)
	f.cache.On("SetScores", mock.Anything, "tenant-1", mock.Anything).Return(nil)

	got, err := f.svc.ListCurrentScores(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	f.cache.AssertCalled(t, "SetScores", mock.Anything, "tenant-1", mock.Anything)
}

func TestSubmitRecalculateAllCompletesEveryEntity(t *testing.T) {
	f := newRiskFixture(t)

	run, err := f.svc.SubmitRecalculateAll(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, constants.SimulationTypeRecalcAll, run.Type)
	assert.Equal(t, constants.SimulationStatusSubmitted, run.Status)

	require.Eventually(t, func() bool {
		got, err := f.registry.Get(run.ID)
		return err == nil && got.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)

	final, err := f.registry.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.SimulationStatusCompleted, final.Status)
	assert.Empty(t, final.Warnings)

	// both active entities were rescored and persisted
	assert.Len(t, f.scoreRepo.upserted(), 2)

	counts := f.events.byType()
	assert.Equal(t, 1, counts[string(constants.EventSimulationSubmitted)])
	assert.Equal(t, 1, counts[string(constants.EventSimulationCompleted)])
}
