package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/turtacn/riskgraph/internal/domain/models"
	"github.com/turtacn/riskgraph/pkg/constants"
	"github.com/turtacn/riskgraph/pkg/logger"
)

// WhatIfEngine re-evaluates the risk calculator under hypothetically
// modified inputs without mutating the snapshot or writing anything back.
// Unknown ids in the change lists are reported per item; the run itself
// never aborts on them since its output feeds advisory decisions only.
type WhatIfEngine struct {
	calculator *RiskCalculator
	log        logger.Logger
}

// NewWhatIfEngine creates a what-if engine over the given calculator.
func NewWhatIfEngine(calculator *RiskCalculator, log logger.Logger) *WhatIfEngine {
	return &WhatIfEngine{
		calculator: calculator,
		log:        log.WithComponent("WhatIfEngine"),
	}
}

// Run projects the scenario over the affected entities and returns a
// three-way baseline/projected/delta comparison per entity.
func (e *WhatIfEngine) Run(ctx context.Context, snap *GraphSnapshot, scenario models.WhatIfScenario, cfg *models.TenantConfig) (*models.WhatIfResult, error) {
	result := &models.WhatIfResult{ScenarioName: scenario.Name}

	overlay, itemErrors := buildOverlay(snap, scenario)
	result.Errors = itemErrors

	affected := affectedEntityIDs(snap, scenario, overlay)

	var deltaSum float64
	for _, entityID := range affected {
		entity := snap.Entity(entityID)
		if entity == nil {
			result.Errors = append(result.Errors, fmt.Sprintf("entity %s: not found in snapshot", entityID))
			continue
		}

		baselineComp := e.calculator.components(snap, entity, cfg)
		baseline := composeScore(baselineComp, cfg.Weights)

		projected := e.projectScore(snap, entity, cfg, overlay, scenario.GlobalModifiers)

		result.Comparisons = append(result.Comparisons, models.WhatIfComparison{
			EntityID:       entityID,
			BaselineScore:  baseline,
			ProjectedScore: projected,
			Delta:          projected - baseline,
			BaselineLevel:  cfg.Thresholds.LevelOf(baseline),
			ProjectedLevel: cfg.Thresholds.LevelOf(projected),
		})
		if d := projected - baseline; d > 0 {
			deltaSum += d
		}
	}

	result.AggregateSeverity = aggregateSeverityFor(deltaSum, len(result.Comparisons))

	e.log.Debug(ctx, "what-if projection completed",
		logger.String("scenario", scenario.Name),
		logger.Int("entities", len(result.Comparisons)),
		logger.Int("item_errors", len(result.Errors)),
	)
	return result, nil
}

// scenarioOverlay holds the per-entity hypothetical modifications resolved
// from the change lists, keyed by entity id.
type scenarioOverlay struct {
	directDelta    map[string]float64
	directOverride map[string]*float64
	entityOverride map[string]models.EntityChange
}

func (o *scenarioOverlay) touches(entityID string) bool {
	if _, ok := o.directDelta[entityID]; ok {
		return true
	}
	if _, ok := o.directOverride[entityID]; ok {
		return true
	}
	_, ok := o.entityOverride[entityID]
	return ok
}

// buildOverlay resolves change lists against the snapshot, collecting
// per-item errors for unknown ids instead of failing the run.
func buildOverlay(snap *GraphSnapshot, scenario models.WhatIfScenario) (*scenarioOverlay, []string) {
	overlay := &scenarioOverlay{
		directDelta:    make(map[string]float64),
		directOverride: make(map[string]*float64),
		entityOverride: make(map[string]models.EntityChange),
	}
	var itemErrors []string

	for _, ch := range scenario.ConstraintChanges {
		if snap.Entity(ch.EntityID) == nil {
			itemErrors = append(itemErrors, fmt.Sprintf("constraint change for %s: entity not found", ch.EntityID))
			continue
		}
		if ch.Override != nil {
			overlay.directOverride[ch.EntityID] = ch.Override
		}
		overlay.directDelta[ch.EntityID] += ch.Delta
	}

	for _, ch := range scenario.EntityChanges {
		if snap.Entity(ch.EntityID) == nil {
			itemErrors = append(itemErrors, fmt.Sprintf("entity change for %s: entity not found", ch.EntityID))
			continue
		}
		overlay.entityOverride[ch.EntityID] = ch
	}

	return overlay, itemErrors
}

// affectedEntityIDs determines the projection population: entities named by
// changes when global modifiers are identity, the whole active population
// otherwise.
func affectedEntityIDs(snap *GraphSnapshot, scenario models.WhatIfScenario, overlay *scenarioOverlay) []string {
	if !scenario.GlobalModifiers.IsIdentity() {
		return snap.ActiveEntityIDs()
	}

	seen := make(map[string]bool)
	var ids []string
	for _, id := range snap.ActiveEntityIDs() {
		if overlay.touches(id) && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// projectScore recomputes one entity's score with overlay and modifiers
// applied. The snapshot itself is never mutated; attribute overrides are
// applied to a copy of the entity.
func (e *WhatIfEngine) projectScore(snap *GraphSnapshot, entity *models.Entity, cfg *models.TenantConfig, overlay *scenarioOverlay, mods models.GlobalModifiers) float64 {
	shadow := *entity
	if ch, ok := overlay.entityOverride[entity.ID]; ok {
		if ch.CountryCode != nil {
			shadow.CountryCode = *ch.CountryCode
		}
		if ch.Criticality != nil {
			shadow.Criticality = *ch.Criticality
		}
	}

	comp := e.calculator.components(snap, &shadow, cfg)

	if override, ok := overlay.directOverride[entity.ID]; ok && override != nil {
		comp.direct = *override
	}
	comp.direct = clamp(comp.direct+overlay.directDelta[entity.ID], 0, 100)

	comp.direct *= models.Multiplier(mods.DirectMultiplier)
	comp.indirect *= models.Multiplier(mods.IndirectMultiplier)
	comp.country *= models.Multiplier(mods.CountryMultiplier)
	comp.dependency *= models.Multiplier(mods.DependencyMultiplier)

	total := composeScore(comp, cfg.Weights) * models.Multiplier(mods.TotalMultiplier)
	return clamp(total, 0, 100)
}

// aggregateSeverityFor buckets the mean projected increase across the
// population into the effect severity scale.
func aggregateSeverityFor(positiveDeltaSum float64, population int) constants.EffectSeverity {
	if population == 0 {
		return constants.SeverityNegligible
	}
	avg := positiveDeltaSum / float64(population)
	switch {
	case avg < 2:
		return constants.SeverityNegligible
	case avg < 5:
		return constants.SeverityMinor
	case avg < 10:
		return constants.SeverityModerate
	case avg < 20:
		return constants.SeveritySignificant
	case avg < 35:
		return constants.SeveritySevere
	default:
		return constants.SeverityCatastrophic
	}
}
