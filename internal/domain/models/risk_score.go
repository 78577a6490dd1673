package models

import (
	"time"

	"github.com/turtacn/riskgraph/pkg/constants"
)

// RiskFactor is a single entry of the structured explanation attached to a
// RiskScore. It names the component, its contribution, and an optional
// free-text note for downstream justification and audit consumers.
type RiskFactor struct {
	// Component is the score component name (direct_match, indirect_match,
	// country_risk, dependency_risk).
	Component string `json:"component"`

	// Contribution is the raw component value before weighting.
	Contribution float64 `json:"contribution"`

	// Note is an optional human-readable annotation.
	Note string `json:"note,omitempty"`
}

// RiskScore is the composite risk assessment of one entity at one point in
// time. Exactly one score per entity is current at any time (latest by
// CalculatedAt); history is retained by the store, not by the engine.
type RiskScore struct {
	ID string `json:"id" gorm:"primaryKey;column:id"`

	TenantID string `json:"tenant_id" gorm:"index:idx_scores_tenant_entity;column:tenant_id"`

	EntityID string `json:"entity_id" gorm:"index:idx_scores_tenant_entity;column:entity_id"`

	// Score is the weighted composite in [0,100].
	Score float64 `json:"score" gorm:"column:score"`

	// Level is the discrete classification derived from Score.
	Level constants.RiskLevel `json:"level" gorm:"column:level"`

	// Component values before weighting.
	DirectMatch    float64 `json:"direct_match" gorm:"column:direct_match"`
	IndirectMatch  float64 `json:"indirect_match" gorm:"column:indirect_match"`
	CountryRisk    float64 `json:"country_risk" gorm:"column:country_risk"`
	DependencyRisk float64 `json:"dependency_risk" gorm:"column:dependency_risk"`

	// Factors explains which components exceeded materiality thresholds.
	Factors []RiskFactor `json:"factors,omitempty" gorm:"serializer:json"`

	CalculatedAt time.Time `json:"calculated_at" gorm:"column:calculated_at"`

	// PreviousScore and PreviousLevel carry the prior current score for
	// change tracking; nil when this is the first score for the entity.
	PreviousScore *float64             `json:"previous_score,omitempty" gorm:"column:previous_score"`
	PreviousLevel *constants.RiskLevel `json:"previous_level,omitempty" gorm:"column:previous_level"`
}

// TableName sets the gorm table name.
func (RiskScore) TableName() string {
	return "risk_scores"
}

// LevelChanged reports whether the level moved relative to the previous score.
func (r *RiskScore) LevelChanged() bool {
	return r.PreviousLevel != nil && *r.PreviousLevel != r.Level
}

// Escalated reports whether the level moved upward relative to the previous score.
func (r *RiskScore) Escalated() bool {
	return r.PreviousLevel != nil &&
		constants.RiskLevelOrdinal(r.Level) > constants.RiskLevelOrdinal(*r.PreviousLevel)
}
