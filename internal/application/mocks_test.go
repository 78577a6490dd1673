package application

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/riskgraph/internal/domain/models"
)

// Test doubles for the application layer. The read-side repositories are
// plain stubs over fixture slices; the write-side collaborators are testify
// mocks so interactions can be asserted.

type stubEntityRepo struct{ entities []*models.Entity }

func (r *stubEntityRepo) FindByID(ctx context.Context, tenantID, entityID string) (*models.Entity, error) {
	for _, e := range r.entities {
		if e.ID == entityID {
			return e, nil
		}
	}
	return nil, nil
}

func (r *stubEntityRepo) ListByTenant(ctx context.Context, tenantID string) ([]*models.Entity, error) {
	return r.entities, nil
}

type stubDependencyRepo struct{ edges []*models.Dependency }

func (r *stubDependencyRepo) ListByTenant(ctx context.Context, tenantID string) ([]*models.Dependency, error) {
	return r.edges, nil
}

type stubConstraintRepo struct{ constraints []*models.Constraint }

func (r *stubConstraintRepo) ListActiveByTenant(ctx context.Context, tenantID string) ([]*models.Constraint, error) {
	return r.constraints, nil
}

type stubTenantRepo struct{ cfg *models.TenantConfig }

func (r *stubTenantRepo) GetConfig(ctx context.Context, tenantID string) (*models.TenantConfig, error) {
	if r.cfg != nil {
		return r.cfg, nil
	}
	return models.DefaultTenantConfig(tenantID), nil
}

func (r *stubTenantRepo) SaveConfig(ctx context.Context, cfg *models.TenantConfig) error {
	r.cfg = cfg
	return nil
}

type mockScoreRepo struct {
	mock.Mock
	mu     sync.Mutex
	scores []*models.RiskScore
}

func (m *mockScoreRepo) GetCurrent(ctx context.Context, tenantID, entityID string) (*models.RiskScore, error) {
	args := m.Called(ctx, tenantID, entityID)
	if s := args.Get(0); s != nil {
		return s.(*models.RiskScore), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockScoreRepo) ListCurrentByTenant(ctx context.Context, tenantID string) ([]*models.RiskScore, error) {
	args := m.Called(ctx, tenantID)
	if s := args.Get(0); s != nil {
		return s.([]*models.RiskScore), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockScoreRepo) Upsert(ctx context.Context, score *models.RiskScore) error {
	m.mu.Lock()
	m.scores = append(m.scores, score)
	m.mu.Unlock()
	args := m.Called(ctx, score)
	return args.Error(0)
}

func (m *mockScoreRepo) upserted() []*models.RiskScore {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.RiskScore(nil), m.scores...)
}

type mockScoreCache struct{ mock.Mock }

func (m *mockScoreCache) GetScores(ctx context.Context, tenantID string) ([]*models.RiskScore, error) {
	args := m.Called(ctx, tenantID)
	if s := args.Get(0); s != nil {
		return s.([]*models.RiskScore), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockScoreCache) SetScores(ctx context.Context, tenantID string, scores []*models.RiskScore) error {
	args := m.Called(ctx, tenantID, scores)
	return args.Error(0)
}

func (m *mockScoreCache) Invalidate(ctx context.Context, tenantID string) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

// recordingPublisher captures published events for assertions; it never fails.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.EngineEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event *models.EngineEvent) error {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) byType() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int)
	for _, e := range p.events {
		out[string(e.Type)]++
	}
	return out
}
