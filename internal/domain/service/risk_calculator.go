package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/riskgraph/internal/domain/models"
	"github.com/turtacn/riskgraph/pkg/constants"
	"github.com/turtacn/riskgraph/pkg/errors"
	"github.com/turtacn/riskgraph/pkg/logger"
)

// scoreComponents holds the four raw component values before weighting.
type scoreComponents struct {
	direct     float64
	indirect   float64
	country    float64
	dependency float64
}

// RiskCalculator combines four weighted factors into a composite score per
// entity. Deterministic given the same snapshot and configuration; all
// components default to 0 on missing data rather than failing.
type RiskCalculator struct {
	log logger.Logger
}

// NewRiskCalculator creates a calculator.
func NewRiskCalculator(log logger.Logger) *RiskCalculator {
	return &RiskCalculator{log: log.WithComponent("RiskCalculator")}
}

// Compute calculates the composite risk score of one entity against a
// snapshot. The only error state is an unknown entity id.
func (c *RiskCalculator) Compute(ctx context.Context, snap *GraphSnapshot, entityID string, cfg *models.TenantConfig) (*models.RiskScore, error) {
	entity := snap.Entity(entityID)
	if entity == nil {
		return nil, errors.ErrEntityNotFound(entityID)
	}

	comp := c.components(snap, entity, cfg)
	total := composeScore(comp, cfg.Weights)
	level := cfg.Thresholds.LevelOf(total)

	score := &models.RiskScore{
		ID:             uuid.NewString(),
		TenantID:       snap.TenantID,
		EntityID:       entityID,
		Score:          total,
		Level:          level,
		DirectMatch:    comp.direct,
		IndirectMatch:  comp.indirect,
		CountryRisk:    comp.country,
		DependencyRisk: comp.dependency,
		Factors:        buildFactors(comp),
		CalculatedAt:   time.Now().UTC(),
	}

	// Carry the prior current score for diffing by callers.
	if prev := snap.CurrentScoreRecord(entityID); prev != nil {
		prevScore, prevLevel := prev.Score, prev.Level
		score.PreviousScore = &prevScore
		score.PreviousLevel = &prevLevel
	}

	return score, nil
}

// components computes the four raw factor values for an entity.
func (c *RiskCalculator) components(snap *GraphSnapshot, entity *models.Entity, cfg *models.TenantConfig) scoreComponents {
	return scoreComponents{
		direct:     directMatchComponent(snap, entity),
		indirect:   indirectMatchComponent(snap, entity),
		country:    countryRiskComponent(entity, cfg),
		dependency: dependencyRiskComponent(snap, entity),
	}
}

// directMatchComponent sums severity-weighted active constraints applicable
// to the entity's type, capped at 100.
func directMatchComponent(snap *GraphSnapshot, entity *models.Entity) float64 {
	var sum float64
	for _, con := range snap.ConstraintsFor(entity.Type) {
		sum += con.Weight()
	}
	return clamp(sum, 0, 100)
}

// indirectMatchComponent dampens the strongest current score among one-hop
// neighbors in either direction. Entities with no neighbors score 0. This
// models guilt by association without recursion; full propagation is the
// cascade simulator's job.
func indirectMatchComponent(snap *GraphSnapshot, entity *models.Entity) float64 {
	var maxNeighbor float64
	for _, edge := range snap.EdgesTouching(entity.ID) {
		neighbor := edge.Other(entity.ID)
		if neighbor == entity.ID {
			continue
		}
		if s := snap.CurrentScore(neighbor); s > maxNeighbor {
			maxNeighbor = s
		}
	}
	return maxNeighbor * constants.IndirectDampeningFactor
}

// countryRiskComponent looks up the entity's country in the tenant's base
// risk table; 0 when the entity has no country or the code is absent.
func countryRiskComponent(entity *models.Entity, cfg *models.TenantConfig) float64 {
	if entity.CountryCode == "" || cfg.CountryRisk == nil {
		return 0
	}
	return cfg.CountryRisk[entity.CountryCode]
}

// dependencyRiskComponent scales the entity's outgoing high-criticality
// edges by count and average criticality: min(100, count*10*avg/5).
func dependencyRiskComponent(snap *GraphSnapshot, entity *models.Entity) float64 {
	var count int
	var critSum float64
	for _, edge := range snap.OutgoingEdges(entity.ID) {
		if edge.Criticality >= constants.HighCriticalityFloor {
			count++
			critSum += float64(edge.Criticality)
		}
	}
	if count == 0 {
		return 0
	}
	avg := critSum / float64(count)
	return clamp(float64(count)*10*avg/5, 0, 100)
}

// composeScore applies the tenant weights and clamps to [0,100].
func composeScore(comp scoreComponents, w models.RiskWeights) float64 {
	total := w.Direct*comp.direct +
		w.Indirect*comp.indirect +
		w.Country*comp.country +
		w.Dependency*comp.dependency
	return clamp(total, 0, 100)
}

// buildFactors lists components that exceeded their materiality thresholds.
// The explanation is consumed by justification/audit tooling downstream.
func buildFactors(comp scoreComponents) []models.RiskFactor {
	var factors []models.RiskFactor
	if comp.direct > constants.MaterialityDirect {
		factors = append(factors, models.RiskFactor{
			Component:    "direct_match",
			Contribution: comp.direct,
			Note:         "active constraints exceed materiality threshold",
		})
	}
	if comp.indirect > constants.MaterialityIndirect {
		factors = append(factors, models.RiskFactor{
			Component:    "indirect_match",
			Contribution: comp.indirect,
			Note:         "high-risk neighbor within one hop",
		})
	}
	if comp.country > constants.MaterialityCountry {
		factors = append(factors, models.RiskFactor{
			Component:    "country_risk",
			Contribution: comp.country,
			Note:         fmt.Sprintf("country base risk %.1f", comp.country),
		})
	}
	if comp.dependency > constants.MaterialityDependency {
		factors = append(factors, models.RiskFactor{
			Component:    "dependency_risk",
			Contribution: comp.dependency,
			Note:         "concentration of high-criticality outgoing dependencies",
		})
	}
	return factors
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
