package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/riskgraph/internal/domain/models"
	"github.com/turtacn/riskgraph/pkg/errors"
	"github.com/turtacn/riskgraph/pkg/logger"
)

func newStressRunner() *StressTestRunner {
	calc := NewRiskCalculator(logger.NewNoop())
	return NewStressTestRunner(
		NewWhatIfEngine(calc, logger.NewNoop()),
		NewCascadeSimulator(logger.NewNoop()),
		logger.NewNoop(),
	)
}

func TestStressTestRunsWholeCatalogByDefault(t *testing.T) {
	runner := newStressRunner()

	result, err := runner.Run(context.Background(), testSnapshot(), testTenantConfig(), nil)
	require.NoError(t, err)

	require.Len(t, result.Scenarios, 4)
	names := make(map[string]bool)
	for _, s := range result.Scenarios {
		names[s.ScenarioName] = true
		assert.GreaterOrEqual(t, s.ResilienceScore, 0.0, s.ScenarioName)
		assert.LessOrEqual(t, s.ResilienceScore, 100.0, s.ScenarioName)
		assert.Equal(t, 3, s.EntitiesEvaluated, s.ScenarioName)
	}
	assert.True(t, names["regulatory_crackdown"])
	assert.True(t, names["market_crisis"])
	assert.True(t, names["geopolitical_event"])
	assert.True(t, names["supply_chain_disruption"])
}

func TestStressTestSelectsNamedScenarios(t *testing.T) {
	runner := newStressRunner()

	result, err := runner.Run(context.Background(), testSnapshot(), testTenantConfig(), []string{"market_crisis"})
	require.NoError(t, err)

	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "market_crisis", result.Scenarios[0].ScenarioName)
}

func TestStressTestUnknownScenarioFailsFast(t *testing.T) {
	runner := newStressRunner()

	_, err := runner.Run(context.Background(), testSnapshot(), testTenantConfig(), []string{"alien_invasion"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidRequest))
}

func TestStressTestResilienceDropsUnderAmplification(t *testing.T) {
	runner := newStressRunner()

	result, err := runner.Run(context.Background(), testSnapshot(), testTenantConfig(), []string{"regulatory_crackdown"})
	require.NoError(t, err)

	s := result.Scenarios[0]
	// the crackdown amplifies direct and country components, so risk rises
	// and resilience lands strictly below the unstressed maximum
	assert.Positive(t, s.AverageRiskIncrease)
	assert.Less(t, s.ResilienceScore, 100.0)
	assert.InDelta(t, 100.0-s.AverageRiskIncrease, s.ResilienceScore, 1e-9)
}

func TestStressTestQuietGraphIsFullyResilient(t *testing.T) {
	// No constraints, no country table, no scores: amplifying zero stays zero.
	entities := []*models.Entity{
		{ID: "org-a", TenantID: "tenant-1", Type: "organization", Active: true},
		{ID: "org-b", TenantID: "tenant-1", Type: "organization", Active: true},
	}
	snap := NewGraphSnapshot("tenant-1", entities, nil, nil, nil)

	runner := newStressRunner()
	cfg := testTenantConfig()
	cfg.CountryRisk = nil

	result, err := runner.Run(context.Background(), snap, cfg, []string{"regulatory_crackdown", "market_crisis"})
	require.NoError(t, err)

	for _, s := range result.Scenarios {
		assert.Zero(t, s.AverageRiskIncrease, s.ScenarioName)
		assert.InDelta(t, 100.0, s.ResilienceScore, 1e-9, s.ScenarioName)
	}
}

func TestStressTestScenarioWithTriggerTypeSpawnsCascades(t *testing.T) {
	runner := newStressRunner()

	result, err := runner.Run(context.Background(), testSnapshot(), testTenantConfig(), []string{"geopolitical_event"})
	require.NoError(t, err)

	s := result.Scenarios[0]
	// two organizations in the fixture, each triggering its own cascade
	require.Len(t, s.Cascades, 2)
	for _, chain := range s.Cascades {
		assert.Equal(t, "geopolitical shock", chain.TriggerEvent)
	}
}

func TestScenarioNamesMatchCatalog(t *testing.T) {
	runner := newStressRunner()
	assert.Equal(t,
		[]string{"regulatory_crackdown", "market_crisis", "geopolitical_event", "supply_chain_disruption"},
		runner.ScenarioNames(),
	)
}
