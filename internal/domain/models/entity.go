// Package models defines the domain models for the RiskGraph engine.
package models

import (
	"time"

	"github.com/turtacn/riskgraph/pkg/constants"
)

// Entity represents a monitored organization, person, or asset. Entities are
// owned by a tenant and are read-only inputs from the engine's point of view.
type Entity struct {
	// ID is the unique identifier of the entity.
	ID string `json:"id" gorm:"primaryKey;column:id"`

	// TenantID scopes the entity to its owning tenant.
	TenantID string `json:"tenant_id" gorm:"index;column:tenant_id"`

	// Type classifies the entity (e.g., organization, person, asset).
	Type string `json:"type" gorm:"column:type"`

	// Name is the primary display name.
	Name string `json:"name" gorm:"column:name"`

	// Aliases holds alternative names used by screening feeds.
	Aliases []string `json:"aliases,omitempty" gorm:"serializer:json"`

	// CountryCode is the ISO 3166-1 alpha-2 country of the entity, empty if unknown.
	CountryCode string `json:"country_code,omitempty" gorm:"column:country_code"`

	// Criticality is the 1-5 importance rating of the entity.
	Criticality int `json:"criticality" gorm:"column:criticality"`

	// Tags are free-form labels attached by analysts.
	Tags []string `json:"tags,omitempty" gorm:"serializer:json"`

	// Active indicates whether the entity participates in scoring and simulations.
	Active bool `json:"active" gorm:"column:active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the gorm table name.
func (Entity) TableName() string {
	return "entities"
}

// Dependency represents a directed, weighted relationship between two
// entities, classified into one of five risk layers. Multiple edges between
// the same pair are allowed for different layers or relationship types.
type Dependency struct {
	ID string `json:"id" gorm:"primaryKey;column:id"`

	TenantID string `json:"tenant_id" gorm:"index;column:tenant_id"`

	// SourceEntityID and TargetEntityID are the endpoints of the edge.
	SourceEntityID string `json:"source_entity_id" gorm:"index;column:source_entity_id"`
	TargetEntityID string `json:"target_entity_id" gorm:"index;column:target_entity_id"`

	// Layer classifies the edge into a risk layer with a fixed weight multiplier.
	Layer constants.DependencyLayer `json:"layer" gorm:"column:layer"`

	// RelationshipType is the free-form nature of the link (e.g., supplier, parent).
	RelationshipType string `json:"relationship_type" gorm:"column:relationship_type"`

	// Criticality is the 1-5 importance rating of the edge.
	Criticality int `json:"criticality" gorm:"column:criticality"`

	// IsBidirectional marks the edge as traversable in both directions.
	IsBidirectional bool `json:"is_bidirectional" gorm:"column:is_bidirectional"`

	// Metadata carries edge annotations not interpreted by the engine.
	Metadata map[string]string `json:"metadata,omitempty" gorm:"serializer:json"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName sets the gorm table name.
func (Dependency) TableName() string {
	return "dependencies"
}

// Touches reports whether the edge connects to the given entity in either
// direction.
func (d *Dependency) Touches(entityID string) bool {
	return d.SourceEntityID == entityID || d.TargetEntityID == entityID
}

// Other returns the opposite endpoint of the edge relative to entityID.
func (d *Dependency) Other(entityID string) string {
	if d.SourceEntityID == entityID {
		return d.TargetEntityID
	}
	return d.SourceEntityID
}

// RawImpact is the layer-weighted impact of the edge used by the cascade
// simulator to bucket effect severity.
func (d *Dependency) RawImpact() float64 {
	return float64(d.Criticality) * constants.LayerWeight(d.Layer)
}
