package service

import (
	"context"
	"fmt"

	"github.com/turtacn/riskgraph/internal/domain/models"
	"github.com/turtacn/riskgraph/pkg/errors"
	"github.com/turtacn/riskgraph/pkg/logger"
)

// StressScenario is one named macro scenario in the fixed catalog. Its
// modifiers are a what-if payload; scenarios tied to an entity class also
// trigger cascades from each matching entity.
type StressScenario struct {
	Name        string
	Description string
	Modifiers   models.GlobalModifiers

	// TriggerEntityType selects entities to cascade from; empty disables
	// the cascade leg for this scenario.
	TriggerEntityType string

	// TriggerEvent labels the cascades this scenario spawns.
	TriggerEvent string

	// ImpactMultiplier scales edge impact for the cascade leg.
	ImpactMultiplier float64
}

// DefaultStressScenarios is the built-in macro scenario catalog.
func DefaultStressScenarios() []StressScenario {
	return []StressScenario{
		{
			Name:        "regulatory_crackdown",
			Description: "Sudden tightening of sanctions and licensing enforcement",
			Modifiers:   models.GlobalModifiers{DirectMultiplier: 1.4, CountryMultiplier: 1.3},
		},
		{
			Name:        "market_crisis",
			Description: "Broad financial stress raising counterparty exposure",
			Modifiers:   models.GlobalModifiers{IndirectMultiplier: 1.5, DependencyMultiplier: 1.3},
		},
		{
			Name:              "geopolitical_event",
			Description:       "Regional conflict disrupting cross-border relationships",
			Modifiers:         models.GlobalModifiers{CountryMultiplier: 1.6},
			TriggerEntityType: "organization",
			TriggerEvent:      "geopolitical shock",
			ImpactMultiplier:  1.2,
		},
		{
			Name:              "supply_chain_disruption",
			Description:       "Failure of critical upstream suppliers",
			Modifiers:         models.GlobalModifiers{DependencyMultiplier: 1.6},
			TriggerEntityType: "asset",
			TriggerEvent:      "supply chain failure",
			ImpactMultiplier:  1.1,
		},
	}
}

// StressTestRunner applies the macro scenario catalog across the whole
// tenant population via the what-if engine, plus the cascade simulator for
// scenarios that imply a triggering entity class, and reduces each scenario
// to a 0-100 resilience score.
type StressTestRunner struct {
	whatIf   *WhatIfEngine
	cascades *CascadeSimulator
	catalog  []StressScenario
	log      logger.Logger
}

// NewStressTestRunner creates a stress test runner with the default catalog.
func NewStressTestRunner(whatIf *WhatIfEngine, cascades *CascadeSimulator, log logger.Logger) *StressTestRunner {
	return &StressTestRunner{
		whatIf:   whatIf,
		cascades: cascades,
		catalog:  DefaultStressScenarios(),
		log:      log.WithComponent("StressTestRunner"),
	}
}

// Run executes the named scenarios, or the whole catalog when names is
// empty. Unknown names fail fast; a per-scenario failure mid-run is recorded
// against that scenario and does not abort the remainder.
func (r *StressTestRunner) Run(ctx context.Context, snap *GraphSnapshot, cfg *models.TenantConfig, names []string) (*models.StressTestResult, error) {
	scenarios, err := r.selectScenarios(names)
	if err != nil {
		return nil, err
	}

	result := &models.StressTestResult{}
	for _, scenario := range scenarios {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), errors.CodeTimeout, "stress test interrupted at scenario %s", scenario.Name)
		default:
		}

		scenarioResult, err := r.runScenario(ctx, snap, cfg, scenario)
		if err != nil {
			return nil, err
		}
		result.Scenarios = append(result.Scenarios, *scenarioResult)
	}
	return result, nil
}

// ScenarioNames lists the catalog entries, for discovery endpoints.
func (r *StressTestRunner) ScenarioNames() []string {
	names := make([]string, len(r.catalog))
	for i, s := range r.catalog {
		names[i] = s.Name
	}
	return names
}

func (r *StressTestRunner) selectScenarios(names []string) ([]StressScenario, error) {
	if len(names) == 0 {
		return r.catalog, nil
	}
	byName := make(map[string]StressScenario, len(r.catalog))
	for _, s := range r.catalog {
		byName[s.Name] = s
	}
	var out []StressScenario
	for _, name := range names {
		s, ok := byName[name]
		if !ok {
			return nil, errors.New(errors.CodeInvalidRequest, "unknown stress scenario: %s", name).
				WithDetail("scenario", name)
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *StressTestRunner) runScenario(ctx context.Context, snap *GraphSnapshot, cfg *models.TenantConfig, scenario StressScenario) (*models.StressScenarioResult, error) {
	whatIf, err := r.whatIf.Run(ctx, snap, models.WhatIfScenario{
		Name:            scenario.Name,
		GlobalModifiers: scenario.Modifiers,
	}, cfg)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	var positiveDeltaSum float64
	for _, cmp := range whatIf.Comparisons {
		if cmp.Delta > 0 {
			positiveDeltaSum += cmp.Delta
		}
	}

	out := &models.StressScenarioResult{
		ScenarioName:      scenario.Name,
		EntitiesEvaluated: len(whatIf.Comparisons),
		WhatIf:            whatIf,
	}
	if out.EntitiesEvaluated > 0 {
		out.AverageRiskIncrease = positiveDeltaSum / float64(out.EntitiesEvaluated)
	}
	// Resilience: 100 minus the normalized average projected risk increase.
	out.ResilienceScore = clamp(100-out.AverageRiskIncrease, 0, 100)

	if scenario.TriggerEntityType != "" {
		for _, entityID := range snap.ActiveEntityIDs() {
			entity := snap.Entity(entityID)
			if entity.Type != scenario.TriggerEntityType {
				continue
			}
			chain, err := r.cascades.RunCascade(ctx, snap, entityID, scenario.TriggerEvent, CascadeConfig{
				MaxDepth:         cfg.Ceilings.MaxCascadeDepth,
				ImpactMultiplier: scenario.ImpactMultiplier,
			})
			if err != nil {
				r.log.Warn(ctx, "stress cascade skipped",
					logger.String("scenario", scenario.Name),
					logger.String("entity_id", entityID),
					logger.Any("error", err.Error()),
				)
				continue
			}
			out.Cascades = append(out.Cascades, *chain)
		}
	}

	return out, nil
}
