// Package constants defines system-wide constants for the RiskGraph engine.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Dependency Layer Constants
// ================================================================================

// DependencyLayer classifies a dependency edge into one of five risk layers.
type DependencyLayer string

const (
	// LayerLegal covers contractual, regulatory and ownership relationships
	LayerLegal DependencyLayer = "legal"

	// LayerFinancial covers funding, payment and investment relationships
	LayerFinancial DependencyLayer = "financial"

	// LayerOperational covers supply, service and infrastructure relationships
	LayerOperational DependencyLayer = "operational"

	// LayerHuman covers key-person and staffing relationships
	LayerHuman DependencyLayer = "human"

	// LayerAcademic covers research and collaboration relationships
	LayerAcademic DependencyLayer = "academic"
)

// LayerWeights holds the fixed risk-weight multiplier per dependency layer.
var LayerWeights = map[DependencyLayer]float64{
	LayerLegal:       1.5,
	LayerFinancial:   1.4,
	LayerHuman:       1.2,
	LayerOperational: 1.0,
	LayerAcademic:    0.8,
}

// LayerWeight returns the risk multiplier for a layer, defaulting to 1.0 for
// unrecognized values so malformed edges degrade instead of failing.
func LayerWeight(layer DependencyLayer) float64 {
	if w, ok := LayerWeights[layer]; ok {
		return w
	}
	return 1.0
}

// PropagationLagDays holds the per-layer cascade propagation lag in days.
// Legal and financial effects surface slowly, operational ones quickly.
var PropagationLagDays = map[DependencyLayer]int{
	LayerLegal:       30,
	LayerFinancial:   14,
	LayerHuman:       10,
	LayerOperational: 3,
	LayerAcademic:    21,
}

// PropagationLag returns the propagation lag for a layer in days.
func PropagationLag(layer DependencyLayer) int {
	if d, ok := PropagationLagDays[layer]; ok {
		return d
	}
	return 7
}

// ================================================================================
// Risk Level Constants
// ================================================================================

// RiskLevel is the discrete classification of a 0-100 composite risk score.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// RiskLevelOrdinal returns the ordinal position of a level for escalation
// comparison. Unknown levels sort below LOW.
func RiskLevelOrdinal(level RiskLevel) int {
	switch level {
	case RiskLevelLow:
		return 1
	case RiskLevelMedium:
		return 2
	case RiskLevelHigh:
		return 3
	case RiskLevelCritical:
		return 4
	default:
		return 0
	}
}

// Default level thresholds (ascending): score < 40 LOW, < 60 MEDIUM,
// < 80 HIGH, otherwise CRITICAL. Tenants may override.
const (
	DefaultThresholdMedium   = 40.0
	DefaultThresholdHigh     = 60.0
	DefaultThresholdCritical = 80.0
)

// ================================================================================
// Effect Severity Constants
// ================================================================================

// EffectSeverity is the ordered severity classification of a cascade effect.
type EffectSeverity string

const (
	SeverityNegligible   EffectSeverity = "negligible"
	SeverityMinor        EffectSeverity = "minor"
	SeverityModerate     EffectSeverity = "moderate"
	SeveritySignificant  EffectSeverity = "significant"
	SeveritySevere       EffectSeverity = "severe"
	SeverityCatastrophic EffectSeverity = "catastrophic"
)

// SeverityOrdinal returns the ordinal position of a severity for comparison.
func SeverityOrdinal(s EffectSeverity) int {
	switch s {
	case SeverityNegligible:
		return 1
	case SeverityMinor:
		return 2
	case SeverityModerate:
		return 3
	case SeveritySignificant:
		return 4
	case SeveritySevere:
		return 5
	case SeverityCatastrophic:
		return 6
	default:
		return 0
	}
}

// DefaultSeverityBreakpoints are the ascending raw-impact breakpoints mapping
// criticality x layer-weight to a severity bucket. An impact below the first
// breakpoint is negligible; at or above the last it is catastrophic. Raw
// impact from un-modified edges tops out at 7.5 (criticality 5 x legal 1.5);
// the upper buckets become reachable when what-if modifiers scale impact up.
var DefaultSeverityBreakpoints = []float64{2.0, 4.0, 7.5, 9.0, 10.5}

// ================================================================================
// Constraint Severity Constants
// ================================================================================

// ConstraintSeverity is the severity rating of an active compliance constraint.
type ConstraintSeverity string

const (
	ConstraintSeverityLow      ConstraintSeverity = "low"
	ConstraintSeverityMedium   ConstraintSeverity = "medium"
	ConstraintSeverityHigh     ConstraintSeverity = "high"
	ConstraintSeverityCritical ConstraintSeverity = "critical"
)

// ConstraintSeverityWeights maps constraint severity to its direct-match
// score contribution.
var ConstraintSeverityWeights = map[ConstraintSeverity]float64{
	ConstraintSeverityLow:      10,
	ConstraintSeverityMedium:   25,
	ConstraintSeverityHigh:     50,
	ConstraintSeverityCritical: 75,
}

// ================================================================================
// Simulation Constants
// ================================================================================

// SimulationType identifies the kind of a simulation run.
type SimulationType string

const (
	SimulationTypeCascade    SimulationType = "cascade"
	SimulationTypeMonteCarlo SimulationType = "monte_carlo"
	SimulationTypeWhatIf     SimulationType = "what_if"
	SimulationTypeStressTest SimulationType = "stress_test"
	SimulationTypeRecalcAll  SimulationType = "recalculate_all"
)

// SimulationStatus is the lifecycle status of a simulation run.
type SimulationStatus string

const (
	SimulationStatusSubmitted             SimulationStatus = "submitted"
	SimulationStatusRunning               SimulationStatus = "running"
	SimulationStatusCompleted             SimulationStatus = "completed"
	SimulationStatusCompletedWithWarnings SimulationStatus = "completed_with_warnings"
	SimulationStatusCancelled             SimulationStatus = "cancelled"
	SimulationStatusFailed                SimulationStatus = "failed"
)

// IsTerminal reports whether a status is a terminal lifecycle state.
func (s SimulationStatus) IsTerminal() bool {
	switch s {
	case SimulationStatusCompleted, SimulationStatusCompletedWithWarnings,
		SimulationStatusCancelled, SimulationStatusFailed:
		return true
	}
	return false
}

// ================================================================================
// Engine Defaults and Ceilings
// ================================================================================

const (
	// IndirectDampeningFactor scales the strongest one-hop neighbor score
	// into the indirect-match component.
	IndirectDampeningFactor = 0.5

	// HighCriticalityFloor is the minimum edge criticality counted by the
	// dependency-risk component.
	HighCriticalityFloor = 4

	// CascadeProbabilityDecay is the per-hop probability multiplier.
	CascadeProbabilityDecay = 0.7

	// CascadeBaseProbability is the probability assigned to depth-1 effects.
	CascadeBaseProbability = 0.9

	// DefaultMaxCascadeDepth is the default traversal ceiling.
	DefaultMaxCascadeDepth = 5

	// MaxCascadeDepthCeiling is the hard upper bound no tenant may exceed.
	MaxCascadeDepthCeiling = 10

	// MonteCarloMinIterations and MonteCarloMaxIterations bound iteration counts.
	MonteCarloMinIterations = 100
	MonteCarloMaxIterations = 10000

	// MonteCarloBatchSize is the number of iterations between cancellation checks.
	MonteCarloBatchSize = 100

	// MonteCarloMinConfidence and MonteCarloMaxConfidence bound the VaR tail level.
	MonteCarloMinConfidence = 0.80
	MonteCarloMaxConfidence = 0.99

	// MonteCarloMinVolatility and MonteCarloMaxVolatility bound perturbation scale.
	MonteCarloMinVolatility = 0.01
	MonteCarloMaxVolatility = 0.5

	// MonteCarloZeroScoreScale is the perturbation scale used when the
	// current score is 0 and volatility-proportional scaling degenerates.
	MonteCarloZeroScoreScale = 5.0

	// DefaultSimulationTimeout is the wall-clock ceiling for a single run.
	DefaultSimulationTimeout = 5 * time.Minute

	// RegistryRetention is how long terminal runs stay queryable before pruning.
	RegistryRetention = 24 * time.Hour

	// RegistrySweepInterval is the cadence of the registry pruning sweep.
	RegistrySweepInterval = 10 * time.Minute

	// SnapshotCacheTTL bounds staleness of cached tenant graph snapshots.
	SnapshotCacheTTL = 30 * time.Second

	// RecalcAllConcurrency bounds parallel per-entity score computation
	// during a recalculate-all run.
	RecalcAllConcurrency = 8
)

// Materiality thresholds above which a component is called out in the
// factors explanation attached to a RiskScore.
const (
	MaterialityDirect     = 50.0
	MaterialityIndirect   = 30.0
	MaterialityCountry    = 0.0
	MaterialityDependency = 30.0
)

// ================================================================================
// Event Constants
// ================================================================================

// EventType identifies an outbound audit/notification event.
type EventType string

const (
	EventSimulationSubmitted EventType = "simulation.submitted"
	EventSimulationCompleted EventType = "simulation.completed"
	EventSimulationFailed    EventType = "simulation.failed"
	EventSimulationCancelled EventType = "simulation.cancelled"
	EventRiskLevelChanged    EventType = "risk.level.changed"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey is the type for values carried on a request context.
type ContextKey string

const (
	// ContextKeyTenantID carries the tenant scope of a request.
	ContextKeyTenantID ContextKey = "tenant_id"

	// ContextKeyRequestID carries the request correlation id.
	ContextKeyRequestID ContextKey = "request_id"
)
