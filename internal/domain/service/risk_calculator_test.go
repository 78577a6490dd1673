package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/riskgraph/internal/domain/models"
	"github.com/turtacn/riskgraph/pkg/constants"
	"github.com/turtacn/riskgraph/pkg/errors"
	"github.com/turtacn/riskgraph/pkg/logger"
)

func testTenantConfig() *models.TenantConfig {
	cfg := models.DefaultTenantConfig("tenant-1")
	cfg.CountryRisk = map[string]float64{"US": 20, "IR": 90}
	return cfg
}

// testSnapshot builds a small fixed graph:
//
//	org-a --(financial, crit 5)--> org-b   (org-b currently scored 80)
//	org-a --(operational, crit 4)--> asset-c
//
// with a low-severity constraint applying to all types and a high-severity
// constraint applying to organizations only.
func testSnapshot() *GraphSnapshot {
	entities := []*models.Entity{
		{ID: "org-a", TenantID: "tenant-1", Type: "organization", Name: "Acme", CountryCode: "US", Criticality: 4, Active: true},
		{ID: "org-b", TenantID: "tenant-1", Type: "organization", Name: "Bolt", CountryCode: "IR", Criticality: 3, Active: true},
		{ID: "asset-c", TenantID: "tenant-1", Type: "asset", Name: "Plant C", Criticality: 2, Active: true},
	}
	edges := []*models.Dependency{
		{ID: "edge-1", TenantID: "tenant-1", SourceEntityID: "org-a", TargetEntityID: "org-b", Layer: constants.LayerFinancial, Criticality: 5},
		{ID: "edge-2", TenantID: "tenant-1", SourceEntityID: "org-a", TargetEntityID: "asset-c", Layer: constants.LayerOperational, Criticality: 4},
	}
	cons := []*models.Constraint{
		{ID: "con-1", TenantID: "tenant-1", Name: "watchlist hit", Severity: constants.ConstraintSeverityLow, Active: true},
		{ID: "con-2", TenantID: "tenant-1", Name: "sanctions match", Severity: constants.ConstraintSeverityHigh, Active: true, ApplicableEntityTypes: []string{"organization"}},
	}
	scores := []*models.RiskScore{
		{ID: "score-b", TenantID: "tenant-1", EntityID: "org-b", Score: 80, Level: constants.RiskLevelCritical},
	}
	return NewGraphSnapshot("tenant-1", entities, edges, cons, scores)
}

func TestComputeCombinesWeightedComponents(t *testing.T) {
	calc := NewRiskCalculator(logger.NewNoop())
	snap := testSnapshot()
	cfg := testTenantConfig()

	score, err := calc.Compute(context.Background(), snap, "org-a", cfg)
	require.NoError(t, err)

	// direct: low (10) + high (50) constraints, both applicable to organizations
	assert.InDelta(t, 60.0, score.DirectMatch, 1e-9)
	// indirect: strongest neighbor (org-b at 80) dampened by 0.5
	assert.InDelta(t, 40.0, score.IndirectMatch, 1e-9)
	// country: US base risk from the tenant table
	assert.InDelta(t, 20.0, score.CountryRisk, 1e-9)
	// dependency: two outgoing edges with criticality >= 4, avg 4.5
	assert.InDelta(t, 18.0, score.DependencyRisk, 1e-9)

	// 0.4*60 + 0.2*40 + 0.2*20 + 0.2*18
	assert.InDelta(t, 39.6, score.Score, 1e-9)
	assert.Equal(t, constants.RiskLevelLow, score.Level)
	assert.Equal(t, "tenant-1", score.TenantID)
	assert.Equal(t, "org-a", score.EntityID)
	assert.False(t, score.CalculatedAt.IsZero())
}

func TestComputeEntityWithoutSignalsScoresLow(t *testing.T) {
	calc := NewRiskCalculator(logger.NewNoop())
	snap := testSnapshot()
	cfg := testTenantConfig()

	score, err := calc.Compute(context.Background(), snap, "asset-c", cfg)
	require.NoError(t, err)

	// Only the type-agnostic low constraint applies; no country, no outgoing
	// edges, and its sole neighbor is unscored.
	assert.InDelta(t, 10.0, score.DirectMatch, 1e-9)
	assert.Zero(t, score.IndirectMatch)
	assert.Zero(t, score.CountryRisk)
	assert.Zero(t, score.DependencyRisk)
	assert.InDelta(t, 4.0, score.Score, 1e-9)
	assert.Equal(t, constants.RiskLevelLow, score.Level)
}

func TestComputeUnknownEntity(t *testing.T) {
	calc := NewRiskCalculator(logger.NewNoop())

	_, err := calc.Compute(context.Background(), testSnapshot(), "nope", testTenantConfig())
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestComputeCarriesPreviousScore(t *testing.T) {
	calc := NewRiskCalculator(logger.NewNoop())
	snap := testSnapshot()

	score, err := calc.Compute(context.Background(), snap, "org-b", testTenantConfig())
	require.NoError(t, err)

	require.NotNil(t, score.PreviousScore)
	assert.InDelta(t, 80.0, *score.PreviousScore, 1e-9)
	require.NotNil(t, score.PreviousLevel)
	assert.Equal(t, constants.RiskLevelCritical, *score.PreviousLevel)
}

func TestComputeNoPreviousScoreForUnscoredEntity(t *testing.T) {
	calc := NewRiskCalculator(logger.NewNoop())

	score, err := calc.Compute(context.Background(), testSnapshot(), "org-a", testTenantConfig())
	require.NoError(t, err)
	assert.Nil(t, score.PreviousScore)
	assert.Nil(t, score.PreviousLevel)
}

func TestDirectMatchCapsAtHundred(t *testing.T) {
	var cons []*models.Constraint
	for i := 0; i < 3; i++ {
		cons = append(cons, &models.Constraint{
			ID:       fmt.Sprintf("crit-%d", i),
			Severity: constants.ConstraintSeverityCritical,
			Active:   true,
		})
	}
	entities := []*models.Entity{{ID: "e1", Type: "organization", Active: true}}
	snap := NewGraphSnapshot("tenant-1", entities, nil, cons, nil)

	calc := NewRiskCalculator(logger.NewNoop())
	score, err := calc.Compute(context.Background(), snap, "e1", testTenantConfig())
	require.NoError(t, err)

	// 3 x critical (75) would be 225 raw; the component caps at 100.
	assert.InDelta(t, 100.0, score.DirectMatch, 1e-9)
}

func TestBuildFactorsRespectsMateriality(t *testing.T) {
	factors := buildFactors(scoreComponents{direct: 60, indirect: 40, country: 5, dependency: 35})

	components := make(map[string]bool)
	for _, f := range factors {
		components[f.Component] = true
	}
	assert.True(t, components["direct_match"])
	assert.True(t, components["indirect_match"])
	assert.True(t, components["dependency_risk"])
	// country at 5 exceeds its zero threshold and is always explained
	assert.True(t, components["country_risk"])
}

func TestLevelThresholdBoundaries(t *testing.T) {
	thresholds := models.DefaultLevelThresholds()

	assert.Equal(t, constants.RiskLevelLow, thresholds.LevelOf(39.99))
	assert.Equal(t, constants.RiskLevelMedium, thresholds.LevelOf(40))
	assert.Equal(t, constants.RiskLevelHigh, thresholds.LevelOf(60))
	assert.Equal(t, constants.RiskLevelCritical, thresholds.LevelOf(80))
	assert.Equal(t, constants.RiskLevelCritical, thresholds.LevelOf(100))
}
