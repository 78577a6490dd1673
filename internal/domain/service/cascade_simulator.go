package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/riskgraph/internal/domain/models"
	"github.com/turtacn/riskgraph/pkg/constants"
	"github.com/turtacn/riskgraph/pkg/errors"
	"github.com/turtacn/riskgraph/pkg/logger"
)

// cascadeDeltaScale converts probability-weighted raw impact into an
// estimated risk score delta per affected entity.
const cascadeDeltaScale = 2.0

// CascadeConfig tunes one cascade run. Zero values fall back to the
// documented defaults so callers only set what they override.
type CascadeConfig struct {
	// MaxDepth bounds the BFS traversal; capped by the tenant ceiling.
	MaxDepth int

	// SeverityBreakpoints override the default raw-impact bucket boundaries.
	SeverityBreakpoints []float64

	// ProbabilityDecay overrides the per-hop probability multiplier.
	ProbabilityDecay float64

	// ImpactMultiplier scales raw edge impact; used by stress scenarios.
	ImpactMultiplier float64
}

func (c CascadeConfig) decay() float64 {
	if c.ProbabilityDecay > 0 {
		return c.ProbabilityDecay
	}
	return constants.CascadeProbabilityDecay
}

func (c CascadeConfig) breakpoints() []float64 {
	if len(c.SeverityBreakpoints) > 0 {
		return c.SeverityBreakpoints
	}
	return constants.DefaultSeverityBreakpoints
}

func (c CascadeConfig) impactMultiplier() float64 {
	if c.ImpactMultiplier > 0 {
		return c.ImpactMultiplier
	}
	return 1.0
}

// CascadeSimulator propagates a triggering event outward through the
// dependency graph by breadth-first traversal, producing a causally-linked
// effect chain. The visited set is tracked per chain, not per path, so
// cyclic graphs terminate and each entity appears at most once.
type CascadeSimulator struct {
	log logger.Logger
}

// NewCascadeSimulator creates a cascade simulator.
func NewCascadeSimulator(log logger.Logger) *CascadeSimulator {
	return &CascadeSimulator{log: log.WithComponent("CascadeSimulator")}
}

// candidate is a provisional effect discovered while expanding one frontier.
type candidate struct {
	effect models.ChainEffect
	order  int
}

// RunCascade simulates shock propagation from a trigger entity. A trigger
// with no edges yields a chain with zero effects, which is a valid outcome,
// not an error. Cancellation is checked between depth levels.
func (s *CascadeSimulator) RunCascade(ctx context.Context, snap *GraphSnapshot, triggerEntityID, triggerEvent string, cfg CascadeConfig) (*models.ScenarioChain, error) {
	if snap.Entity(triggerEntityID) == nil {
		return nil, errors.ErrEntityNotFound(triggerEntityID)
	}

	maxDepth := cfg.MaxDepth
	if maxDepth < 1 {
		maxDepth = constants.DefaultMaxCascadeDepth
	}
	decay := cfg.decay()
	breakpoints := cfg.breakpoints()
	impactMult := cfg.impactMultiplier()

	chain := &models.ScenarioChain{
		ID:              uuid.NewString(),
		TenantID:        snap.TenantID,
		TriggerEntityID: triggerEntityID,
		TriggerEvent:    triggerEvent,
		CreatedAt:       time.Now().UTC(),
	}

	visited := map[string]bool{triggerEntityID: true}

	// The synthetic depth-0 frontier is the trigger itself: probability 1
	// divided out so depth-1 effects land at the base probability.
	frontier := []models.ChainEffect{{
		EntityID:      triggerEntityID,
		CascadeDepth:  0,
		Probability:   constants.CascadeBaseProbability / decay,
		TimeDelayDays: 0,
	}}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		// Cooperative cancellation between frontier expansions.
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), errors.CodeTimeout, "cascade traversal interrupted at depth %d", depth)
		default:
		}

		discovered := make(map[string]candidate)
		order := 0

		for i := range frontier {
			parent := &frontier[i]
			for _, edge := range snap.EdgesTouching(parent.EntityID) {
				next := edge.Other(parent.EntityID)
				if visited[next] || next == parent.EntityID {
					continue
				}

				rawImpact := edge.RawImpact() * impactMult
				probability := parent.Probability * decay
				effect := models.ChainEffect{
					ID:               uuid.NewString(),
					EntityID:         next,
					CascadeDepth:     depth,
					TimeDelayDays:    parent.TimeDelayDays + constants.PropagationLag(edge.Layer),
					Severity:         severityForImpact(rawImpact, breakpoints),
					Probability:      probability,
					RiskScoreDelta:   rawImpact * probability * cascadeDeltaScale,
					CausedByEffectID: parent.ID,
				}

				// First discovery wins within a depth unless a later route
				// arrives with strictly higher probability.
				if existing, ok := discovered[next]; ok {
					if probability <= existing.effect.Probability {
						continue
					}
					effect.ID = existing.effect.ID
					discovered[next] = candidate{effect: effect, order: existing.order}
					continue
				}
				discovered[next] = candidate{effect: effect, order: order}
				order++
			}
		}

		// Deterministic depth-then-discovery ordering of accepted effects.
		accepted := make([]candidate, 0, len(discovered))
		for _, cand := range discovered {
			accepted = append(accepted, cand)
		}
		sort.Slice(accepted, func(i, j int) bool { return accepted[i].order < accepted[j].order })

		frontier = frontier[:0]
		for _, cand := range accepted {
			visited[cand.effect.EntityID] = true
			chain.Effects = append(chain.Effects, cand.effect)
			frontier = append(frontier, cand.effect)
		}
	}

	aggregateChain(chain)

	s.log.Debug(ctx, "cascade completed",
		logger.String("trigger_entity_id", triggerEntityID),
		logger.Int("entities_affected", chain.TotalEntitiesAffected),
		logger.Int("max_depth", chain.MaxCascadeDepth),
	)
	return chain, nil
}

// severityForImpact buckets a raw impact value against ascending breakpoints.
func severityForImpact(impact float64, breakpoints []float64) constants.EffectSeverity {
	ordered := []constants.EffectSeverity{
		constants.SeverityNegligible,
		constants.SeverityMinor,
		constants.SeverityModerate,
		constants.SeveritySignificant,
		constants.SeveritySevere,
		constants.SeverityCatastrophic,
	}
	for i, bp := range breakpoints {
		if impact < bp {
			return ordered[i]
		}
	}
	return ordered[len(ordered)-1]
}

// aggregateChain fills the chain-level summary fields from its effects.
// Overall severity is the maximum observed, tie-broken by summed delta.
func aggregateChain(chain *models.ScenarioChain) {
	chain.TotalEntitiesAffected = len(chain.Effects)
	chain.OverallSeverity = constants.SeverityNegligible
	if len(chain.Effects) == 0 {
		chain.OverallSeverity = ""
		return
	}

	for _, e := range chain.Effects {
		if e.CascadeDepth > chain.MaxCascadeDepth {
			chain.MaxCascadeDepth = e.CascadeDepth
		}
		if constants.SeverityOrdinal(e.Severity) > constants.SeverityOrdinal(chain.OverallSeverity) {
			chain.OverallSeverity = e.Severity
		}
		if e.TimeDelayDays > chain.EstimatedTimelineDays {
			chain.EstimatedTimelineDays = e.TimeDelayDays
		}
		chain.TotalRiskIncrease += e.RiskScoreDelta
	}
}
