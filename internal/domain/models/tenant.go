package models

import (
	"time"

	"github.com/turtacn/riskgraph/pkg/constants"
	"github.com/turtacn/riskgraph/pkg/errors"
)

// RiskWeights are the tenant-configurable weights of the four score
// components. They need not sum to exactly 1; edits are validated loosely
// (within [0.99,1.01]) while the calculator itself does not enforce
// normalization.
type RiskWeights struct {
	Direct     float64 `json:"direct"`
	Indirect   float64 `json:"indirect"`
	Country    float64 `json:"country"`
	Dependency float64 `json:"dependency"`
}

// DefaultRiskWeights returns the platform default component weights.
func DefaultRiskWeights() RiskWeights {
	return RiskWeights{Direct: 0.4, Indirect: 0.2, Country: 0.2, Dependency: 0.2}
}

// Validate checks the weight sum stays within the loose tolerance band.
func (w RiskWeights) Validate() error {
	sum := w.Direct + w.Indirect + w.Country + w.Dependency
	if sum < 0.99 || sum > 1.01 {
		return errors.ErrInvalidConfig("risk_weights", "must sum to 1.0 within 0.01 tolerance").
			WithDetail("sum", sum)
	}
	return nil
}

// LevelThresholds are the ascending score thresholds separating risk levels.
type LevelThresholds struct {
	Medium   float64 `json:"medium"`
	High     float64 `json:"high"`
	Critical float64 `json:"critical"`
}

// DefaultLevelThresholds returns the platform default thresholds (40/60/80).
func DefaultLevelThresholds() LevelThresholds {
	return LevelThresholds{
		Medium:   constants.DefaultThresholdMedium,
		High:     constants.DefaultThresholdHigh,
		Critical: constants.DefaultThresholdCritical,
	}
}

// Validate checks thresholds are strictly ascending within (0,100).
func (t LevelThresholds) Validate() error {
	if t.Medium <= 0 || t.Medium >= t.High || t.High >= t.Critical || t.Critical >= 100 {
		return errors.ErrInvalidConfig("level_thresholds", "must be strictly ascending within (0,100)")
	}
	return nil
}

// LevelOf classifies a score against the thresholds.
func (t LevelThresholds) LevelOf(score float64) constants.RiskLevel {
	switch {
	case score >= t.Critical:
		return constants.RiskLevelCritical
	case score >= t.High:
		return constants.RiskLevelHigh
	case score >= t.Medium:
		return constants.RiskLevelMedium
	default:
		return constants.RiskLevelLow
	}
}

// SimulationCeilings bound simulation resource usage per tenant.
type SimulationCeilings struct {
	MaxCascadeDepth int           `json:"max_cascade_depth"`
	MaxIterations   int           `json:"max_iterations"`
	Timeout         time.Duration `json:"timeout"`
}

// DefaultSimulationCeilings returns the platform default ceilings.
func DefaultSimulationCeilings() SimulationCeilings {
	return SimulationCeilings{
		MaxCascadeDepth: constants.DefaultMaxCascadeDepth,
		MaxIterations:   constants.MonteCarloMaxIterations,
		Timeout:         constants.DefaultSimulationTimeout,
	}
}

// TenantConfig is the per-tenant engine configuration. It is passed
// explicitly into every calculator and simulator call; the engine holds no
// shared mutable configuration state.
type TenantConfig struct {
	TenantID string `json:"tenant_id" gorm:"primaryKey;column:tenant_id"`

	Weights RiskWeights `json:"weights" gorm:"serializer:json"`

	Thresholds LevelThresholds `json:"thresholds" gorm:"serializer:json"`

	Ceilings SimulationCeilings `json:"ceilings" gorm:"serializer:json"`

	// CountryRisk maps country codes to base risk values for the
	// country-risk component. Absent codes score 0.
	CountryRisk map[string]float64 `json:"country_risk,omitempty" gorm:"serializer:json"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the gorm table name.
func (TenantConfig) TableName() string {
	return "tenant_configs"
}

// DefaultTenantConfig returns a fully-populated config for a tenant that has
// not customized anything.
func DefaultTenantConfig(tenantID string) *TenantConfig {
	return &TenantConfig{
		TenantID:   tenantID,
		Weights:    DefaultRiskWeights(),
		Thresholds: DefaultLevelThresholds(),
		Ceilings:   DefaultSimulationCeilings(),
	}
}

// Validate checks all tenant-editable sections.
func (c *TenantConfig) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if c.Ceilings.MaxCascadeDepth < 1 || c.Ceilings.MaxCascadeDepth > constants.MaxCascadeDepthCeiling {
		return errors.ErrInvalidConfig("max_cascade_depth", "must be within [1,10]")
	}
	if c.Ceilings.MaxIterations < constants.MonteCarloMinIterations || c.Ceilings.MaxIterations > constants.MonteCarloMaxIterations {
		return errors.ErrInvalidConfig("max_iterations", "must be within [100,10000]")
	}
	if c.Ceilings.Timeout <= 0 {
		return errors.ErrInvalidConfig("timeout", "must be positive")
	}
	return nil
}
