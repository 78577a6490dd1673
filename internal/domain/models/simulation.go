package models

import (
	"encoding/json"
	"time"

	"github.com/turtacn/riskgraph/pkg/constants"
	"github.com/turtacn/riskgraph/pkg/errors"
)

// SimulationRun tracks the lifecycle of one asynchronous simulation. Runs
// live only in the in-process registry; they are advisory, re-runnable, and
// intentionally not persisted across process restarts.
type SimulationRun struct {
	ID string `json:"id"`

	TenantID string `json:"tenant_id"`

	Type constants.SimulationType `json:"type"`

	Status constants.SimulationStatus `json:"status"`

	// Config is the JSON-serialized configuration the run was submitted with.
	Config json.RawMessage `json:"config,omitempty"`

	// Result is the JSON-serialized result payload once the run terminates.
	Result json.RawMessage `json:"result,omitempty"`

	// Warnings collects per-item partial failures for runs that finish as
	// completed_with_warnings.
	Warnings []string `json:"warnings,omitempty"`

	// FailureReason is set when the run terminates as failed.
	FailureReason string `json:"failure_reason,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// MonteCarloConfig controls a stochastic resampling of current risk scores.
type MonteCarloConfig struct {
	// EntityIDs restricts the run; empty means all active entities.
	EntityIDs []string `json:"entity_ids,omitempty"`

	// Iterations is the sample count, bounded to [100,10000].
	Iterations int `json:"iterations"`

	// ConfidenceLevel is the VaR tail level, bounded to [0.8,0.99].
	ConfidenceLevel float64 `json:"confidence_level"`

	// Volatility scales per-iteration perturbation, bounded to [0.01,0.5].
	Volatility float64 `json:"volatility"`

	// Seed makes the run reproducible; 0 selects a time-based seed.
	Seed int64 `json:"seed,omitempty"`
}

// Validate surfaces out-of-range parameters before any sampling begins.
func (c *MonteCarloConfig) Validate() error {
	if c.Iterations < constants.MonteCarloMinIterations || c.Iterations > constants.MonteCarloMaxIterations {
		return errInvalidMonteCarloParam("iterations")
	}
	if c.ConfidenceLevel < constants.MonteCarloMinConfidence || c.ConfidenceLevel > constants.MonteCarloMaxConfidence {
		return errInvalidMonteCarloParam("confidence_level")
	}
	if c.Volatility < constants.MonteCarloMinVolatility || c.Volatility > constants.MonteCarloMaxVolatility {
		return errInvalidMonteCarloParam("volatility")
	}
	return nil
}

func errInvalidMonteCarloParam(param string) error {
	return errors.ErrInvalidConfig(param, "is out of range")
}

// DistributionStats summarizes an empirical sample distribution.
type DistributionStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`

	// ValueAtRisk is the empirical quantile at the configured confidence level.
	ValueAtRisk float64 `json:"value_at_risk"`
}

// MonteCarloResult is the payload of a completed Monte Carlo run.
type MonteCarloResult struct {
	Iterations      int                          `json:"iterations"`
	ConfidenceLevel float64                      `json:"confidence_level"`
	Seed            int64                        `json:"seed"`
	PerEntity       map[string]DistributionStats `json:"per_entity"`
	Portfolio       DistributionStats            `json:"portfolio"`
}

// WhatIfScenario describes a hypothetical, non-persisted modification to the
// engine's inputs used to project an alternative risk state.
type WhatIfScenario struct {
	Name string `json:"name"`

	// ConstraintChanges adjust the direct-match component per entity.
	ConstraintChanges []ConstraintChange `json:"constraint_changes,omitempty"`

	// EntityChanges override entity attributes feeding the country and
	// dependency components.
	EntityChanges []EntityChange `json:"entity_changes,omitempty"`

	// GlobalModifiers apply multiplicative adjustments to components or the
	// weighted total across the affected population.
	GlobalModifiers GlobalModifiers `json:"global_modifiers"`
}

// ConstraintChange adds to or overrides the direct-match component of one entity.
type ConstraintChange struct {
	EntityID string `json:"entity_id"`

	// Delta is added to the direct-match component.
	Delta float64 `json:"delta,omitempty"`

	// Override replaces the direct-match component when non-nil.
	Override *float64 `json:"override,omitempty"`
}

// EntityChange overrides attributes of one entity for the projection.
type EntityChange struct {
	EntityID string `json:"entity_id"`

	CountryCode *string `json:"country_code,omitempty"`
	Criticality *int    `json:"criticality,omitempty"`
}

// GlobalModifiers are multiplicative adjustments applied across the whole
// projected population. A zero-value modifier set is the identity.
type GlobalModifiers struct {
	DirectMultiplier     float64 `json:"direct_multiplier,omitempty"`
	IndirectMultiplier   float64 `json:"indirect_multiplier,omitempty"`
	CountryMultiplier    float64 `json:"country_multiplier,omitempty"`
	DependencyMultiplier float64 `json:"dependency_multiplier,omitempty"`
	TotalMultiplier      float64 `json:"total_multiplier,omitempty"`
}

// IsIdentity reports whether the modifiers leave every component unchanged.
func (g GlobalModifiers) IsIdentity() bool {
	identity := func(v float64) bool { return v == 0 || v == 1 }
	return identity(g.DirectMultiplier) && identity(g.IndirectMultiplier) &&
		identity(g.CountryMultiplier) && identity(g.DependencyMultiplier) &&
		identity(g.TotalMultiplier)
}

// Multiplier normalizes a stored modifier: 0 means "not set" and acts as 1.
func Multiplier(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// WhatIfComparison is the three-way comparison for one affected entity.
type WhatIfComparison struct {
	EntityID string `json:"entity_id"`

	BaselineScore  float64 `json:"baseline_score"`
	ProjectedScore float64 `json:"projected_score"`
	Delta          float64 `json:"delta"`

	BaselineLevel  constants.RiskLevel `json:"baseline_level"`
	ProjectedLevel constants.RiskLevel `json:"projected_level"`
}

// WhatIfResult is the payload of a completed what-if projection.
type WhatIfResult struct {
	ScenarioName string `json:"scenario_name"`

	Comparisons []WhatIfComparison `json:"comparisons"`

	// Errors lists per-item failures (unknown ids) that did not abort the run.
	Errors []string `json:"errors,omitempty"`

	// AggregateSeverity buckets the mean projected score increase.
	AggregateSeverity constants.EffectSeverity `json:"aggregate_severity"`
}

// StressScenarioResult is the outcome of one named macro scenario.
type StressScenarioResult struct {
	ScenarioName string `json:"scenario_name"`

	// ResilienceScore is 100 minus the normalized average projected risk
	// increase, clamped to [0,100].
	ResilienceScore float64 `json:"resilience_score"`

	// AverageRiskIncrease is the mean positive projected score delta.
	AverageRiskIncrease float64 `json:"average_risk_increase"`

	// EntitiesEvaluated is the population size the scenario ran over.
	EntitiesEvaluated int `json:"entities_evaluated"`

	// Cascades holds chains triggered for scenario-matched entity classes.
	Cascades []ScenarioChain `json:"cascades,omitempty"`

	// WhatIf carries the underlying projection detail.
	WhatIf *WhatIfResult `json:"what_if,omitempty"`
}

// StressTestResult is the payload of a completed stress-test run.
type StressTestResult struct {
	Scenarios []StressScenarioResult `json:"scenarios"`
}

// RecalcAllResult is the payload of a completed recalculate-all run.
type RecalcAllResult struct {
	EntitiesProcessed int `json:"entities_processed"`
	EntitiesFailed    int `json:"entities_failed"`
	Escalations       int `json:"escalations"`
}
