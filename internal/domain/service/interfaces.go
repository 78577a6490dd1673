package service

import (
	"context"

	"github.com/turtacn/riskgraph/internal/domain/models"
)

// EventPublisher delivers engine lifecycle and risk-change events to the
// external audit/notification sink. Publishing is best-effort from the
// engine's perspective; delivery guarantees belong to the sink.
type EventPublisher interface {
	// Publish sends one event envelope.
	Publish(ctx context.Context, event *models.EngineEvent) error

	// Close releases the underlying producer.
	Close() error
}

// ScoreCache caches current risk scores per tenant to spare the store on
// snapshot assembly. Implementations must treat the cache as advisory: a
// miss falls through to the repository.
type ScoreCache interface {
	// GetScores returns cached current scores for a tenant, or nil on miss.
	GetScores(ctx context.Context, tenantID string) ([]*models.RiskScore, error)

	// SetScores replaces the cached score set for a tenant.
	SetScores(ctx context.Context, tenantID string, scores []*models.RiskScore) error

	// Invalidate drops the cached scores for a tenant after a write.
	Invalidate(ctx context.Context, tenantID string) error
}
