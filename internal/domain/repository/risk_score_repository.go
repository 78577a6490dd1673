package repository

import (
	"context"

	"github.com/turtacn/riskgraph/internal/domain/models"
)

// RiskScoreRepository persists risk scores. The engine writes exactly one
// current score per entity per calculation; history retention is the store's
// concern.
type RiskScoreRepository interface {
	// GetCurrent returns the latest score for an entity, or nil without
	// error when the entity has never been scored.
	GetCurrent(ctx context.Context, tenantID, entityID string) (*models.RiskScore, error)

	// ListCurrentByTenant returns the latest score per entity for a tenant.
	ListCurrentByTenant(ctx context.Context, tenantID string) ([]*models.RiskScore, error)

	// Upsert writes a new current score. The write must be idempotent per
	// (tenant, entity, calculated_at): a score older than the stored current
	// one is a no-op, never an in-place mutation of history.
	Upsert(ctx context.Context, score *models.RiskScore) error
}

// TenantConfigRepository provides per-tenant engine configuration.
type TenantConfigRepository interface {
	// GetConfig returns the tenant's config, or defaults when none is stored.
	GetConfig(ctx context.Context, tenantID string) (*models.TenantConfig, error)

	// SaveConfig validates and persists a tenant config.
	SaveConfig(ctx context.Context, cfg *models.TenantConfig) error
}
