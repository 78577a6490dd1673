package models

import (
	"time"

	"github.com/turtacn/riskgraph/pkg/constants"
)

// Constraint represents an active compliance constraint (sanction, watchlist
// match, regulatory restriction) feeding the direct-match score component.
// Matching itself happens upstream; the engine only consumes severity and
// applicability.
type Constraint struct {
	ID string `json:"id" gorm:"primaryKey;column:id"`

	TenantID string `json:"tenant_id" gorm:"index;column:tenant_id"`

	// Name is the human-readable label of the constraint.
	Name string `json:"name" gorm:"column:name"`

	// Severity determines the direct-match weight contribution.
	Severity constants.ConstraintSeverity `json:"severity" gorm:"column:severity"`

	// ApplicableEntityTypes lists the entity types the constraint applies to.
	// An empty list applies to all types.
	ApplicableEntityTypes []string `json:"applicable_entity_types,omitempty" gorm:"serializer:json"`

	// Active indicates whether the constraint currently contributes to scores.
	Active bool `json:"active" gorm:"column:active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the gorm table name.
func (Constraint) TableName() string {
	return "constraints"
}

// AppliesTo reports whether the constraint applies to an entity type.
func (c *Constraint) AppliesTo(entityType string) bool {
	if len(c.ApplicableEntityTypes) == 0 {
		return true
	}
	for _, t := range c.ApplicableEntityTypes {
		if t == entityType {
			return true
		}
	}
	return false
}

// Weight returns the direct-match contribution of the constraint.
func (c *Constraint) Weight() float64 {
	return constants.ConstraintSeverityWeights[c.Severity]
}
