package models

import (
	"time"

	"github.com/turtacn/riskgraph/pkg/constants"
)

// ChainEffect is one causally-linked effect inside a cascade chain. Every
// effect at depth > 1 points at its parent effect one level shallower;
// depth-1 effects are caused directly by the trigger and have no parent.
type ChainEffect struct {
	// ID identifies the effect within its chain.
	ID string `json:"id"`

	// EntityID is the affected entity.
	EntityID string `json:"entity_id"`

	// CascadeDepth is the BFS depth at which the entity was reached (>= 1).
	CascadeDepth int `json:"cascade_depth"`

	// TimeDelayDays is the cumulative propagation delay along the causal path.
	TimeDelayDays int `json:"time_delay_days"`

	// Severity buckets the layer-weighted raw impact of the crossing edge.
	Severity constants.EffectSeverity `json:"severity"`

	// Probability compounds per hop; always in (0,1] and never above the
	// parent effect's probability.
	Probability float64 `json:"probability"`

	// RiskScoreDelta is the estimated score increase for the affected entity.
	RiskScoreDelta float64 `json:"risk_score_delta"`

	// CausedByEffectID is the parent effect id, empty for depth-1 effects.
	CausedByEffectID string `json:"caused_by_effect_id,omitempty"`
}

// ScenarioChain is the ordered result of one cascade simulation: a trigger
// plus the causally-linked effects discovered by breadth-first propagation.
type ScenarioChain struct {
	ID string `json:"id"`

	TenantID string `json:"tenant_id"`

	// TriggerEntityID is the entity the shock originates from.
	TriggerEntityID string `json:"trigger_entity_id"`

	// TriggerEvent describes the shock being simulated.
	TriggerEvent string `json:"trigger_event"`

	// Effects are ordered by depth, then by discovery order within a depth.
	Effects []ChainEffect `json:"effects"`

	// TotalEntitiesAffected is the count of effects in the chain.
	TotalEntitiesAffected int `json:"total_entities_affected"`

	// MaxCascadeDepth is the deepest effect found.
	MaxCascadeDepth int `json:"max_cascade_depth"`

	// OverallSeverity is the maximum severity observed across effects.
	OverallSeverity constants.EffectSeverity `json:"overall_severity"`

	// EstimatedTimelineDays is the maximum cumulative time delay observed.
	EstimatedTimelineDays int `json:"estimated_timeline_days"`

	// TotalRiskIncrease is the sum of all effect score deltas.
	TotalRiskIncrease float64 `json:"total_risk_increase"`

	CreatedAt time.Time `json:"created_at"`
}
