// Package service implements the RiskGraph engine: graph snapshots, the risk
// score calculator, and the four simulation modes. Everything here operates
// on an immutable point-in-time snapshot and takes its configuration as an
// explicit argument, so concurrent runs never share mutable state.
package service

import (
	"context"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/riskgraph/internal/domain/models"
	"github.com/turtacn/riskgraph/internal/domain/repository"
	"github.com/turtacn/riskgraph/pkg/constants"
	"github.com/turtacn/riskgraph/pkg/errors"
	"github.com/turtacn/riskgraph/pkg/logger"
)

// GraphSnapshot is an immutable, point-in-time view of a tenant's entities,
// dependency edges, active constraints and current risk scores. Once built it
// is never mutated, so simulations traverse and sample without locks.
type GraphSnapshot struct {
	TenantID string
	TakenAt  time.Time

	entities    map[string]*models.Entity
	touching    map[string][]*models.Dependency
	outgoing    map[string][]*models.Dependency
	constraints []*models.Constraint
	scores      map[string]*models.RiskScore

	activeIDs []string
}

// NewGraphSnapshot assembles a snapshot from raw rows. Edge lists are sorted
// by edge id so every traversal over the same snapshot visits edges in the
// same order.
func NewGraphSnapshot(
	tenantID string,
	entities []*models.Entity,
	edges []*models.Dependency,
	constraints []*models.Constraint,
	scores []*models.RiskScore,
) *GraphSnapshot {
	s := &GraphSnapshot{
		TenantID:    tenantID,
		TakenAt:     time.Now().UTC(),
		entities:    make(map[string]*models.Entity, len(entities)),
		touching:    make(map[string][]*models.Dependency),
		outgoing:    make(map[string][]*models.Dependency),
		constraints: constraints,
		scores:      make(map[string]*models.RiskScore, len(scores)),
	}

	for _, e := range entities {
		s.entities[e.ID] = e
		if e.Active {
			s.activeIDs = append(s.activeIDs, e.ID)
		}
	}
	sort.Strings(s.activeIDs)

	for _, d := range edges {
		s.touching[d.SourceEntityID] = append(s.touching[d.SourceEntityID], d)
		if d.TargetEntityID != d.SourceEntityID {
			s.touching[d.TargetEntityID] = append(s.touching[d.TargetEntityID], d)
		}
		s.outgoing[d.SourceEntityID] = append(s.outgoing[d.SourceEntityID], d)
		if d.IsBidirectional && d.TargetEntityID != d.SourceEntityID {
			s.outgoing[d.TargetEntityID] = append(s.outgoing[d.TargetEntityID], d)
		}
	}
	for _, list := range s.touching {
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}
	for _, list := range s.outgoing {
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}

	for _, sc := range scores {
		s.scores[sc.EntityID] = sc
	}

	return s
}

// Entity returns the entity with the given id, or nil when absent.
func (s *GraphSnapshot) Entity(id string) *models.Entity {
	return s.entities[id]
}

// ActiveEntityIDs returns the sorted ids of active entities.
func (s *GraphSnapshot) ActiveEntityIDs() []string {
	return s.activeIDs
}

// EdgesTouching returns every edge connected to the entity in either
// direction, sorted by edge id.
func (s *GraphSnapshot) EdgesTouching(id string) []*models.Dependency {
	return s.touching[id]
}

// OutgoingEdges returns edges the entity can propagate risk along: edges it
// is the source of, plus bidirectional edges it is the target of.
func (s *GraphSnapshot) OutgoingEdges(id string) []*models.Dependency {
	return s.outgoing[id]
}

// ConstraintsFor returns the active constraints applicable to an entity type.
func (s *GraphSnapshot) ConstraintsFor(entityType string) []*models.Constraint {
	var out []*models.Constraint
	for _, c := range s.constraints {
		if c.Active && c.AppliesTo(entityType) {
			out = append(out, c)
		}
	}
	return out
}

// CurrentScore returns the current composite score for an entity, or 0 when
// the entity has never been scored.
func (s *GraphSnapshot) CurrentScore(id string) float64 {
	if sc, ok := s.scores[id]; ok {
		return sc.Score
	}
	return 0
}

// CurrentScoreRecord returns the full current score record, or nil.
func (s *GraphSnapshot) CurrentScoreRecord(id string) *models.RiskScore {
	return s.scores[id]
}

// ================================================================================
// Snapshot Provider
// ================================================================================

// SnapshotProvider assembles tenant graph snapshots from the repositories.
// Snapshots are cached briefly and concurrent builds for the same tenant are
// collapsed into one.
type SnapshotProvider struct {
	entities     repository.EntityRepository
	dependencies repository.DependencyRepository
	constraints  repository.ConstraintRepository
	scores       repository.RiskScoreRepository

	cache *gocache.Cache
	group singleflight.Group
	log   logger.Logger
}

// NewSnapshotProvider creates a snapshot provider over the given repositories.
func NewSnapshotProvider(
	entities repository.EntityRepository,
	dependencies repository.DependencyRepository,
	constraints repository.ConstraintRepository,
	scores repository.RiskScoreRepository,
	log logger.Logger,
) *SnapshotProvider {
	return &SnapshotProvider{
		entities:     entities,
		dependencies: dependencies,
		constraints:  constraints,
		scores:       scores,
		cache:        gocache.New(constants.SnapshotCacheTTL, 2*constants.SnapshotCacheTTL),
		log:          log.WithComponent("SnapshotProvider"),
	}
}

// Snapshot returns a point-in-time view of the tenant's graph. A cached
// snapshot within its TTL is reused; otherwise one build runs per tenant at
// a time and waiters share its result.
func (p *SnapshotProvider) Snapshot(ctx context.Context, tenantID string) (*GraphSnapshot, error) {
	if cached, ok := p.cache.Get(tenantID); ok {
		return cached.(*GraphSnapshot), nil
	}

	v, err, _ := p.group.Do(tenantID, func() (interface{}, error) {
		snap, err := p.build(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		p.cache.Set(tenantID, snap, gocache.DefaultExpiration)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*GraphSnapshot), nil
}

// Invalidate drops the cached snapshot for a tenant. Called after writes that
// change scoring inputs.
func (p *SnapshotProvider) Invalidate(tenantID string) {
	p.cache.Delete(tenantID)
}

func (p *SnapshotProvider) build(ctx context.Context, tenantID string) (*GraphSnapshot, error) {
	started := time.Now()

	entities, err := p.entities.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "loading entities for snapshot")
	}
	edges, err := p.dependencies.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "loading dependencies for snapshot")
	}
	cons, err := p.constraints.ListActiveByTenant(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "loading constraints for snapshot")
	}
	scores, err := p.scores.ListCurrentByTenant(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "loading current scores for snapshot")
	}

	snap := NewGraphSnapshot(tenantID, entities, edges, cons, scores)

	p.log.Debug(ctx, "graph snapshot assembled",
		logger.String("tenant_id", tenantID),
		logger.Int("entities", len(entities)),
		logger.Int("edges", len(edges)),
		logger.Duration("took", time.Since(started)),
	)
	return snap, nil
}
