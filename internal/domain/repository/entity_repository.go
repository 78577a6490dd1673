// Package repository defines the persistence interfaces consumed by the
// engine. Implementations live in internal/infrastructure/persistence.
package repository

import (
	"context"

	"github.com/turtacn/riskgraph/internal/domain/models"
)

// EntityRepository provides read access to monitored entities.
type EntityRepository interface {
	// FindByID returns one entity or a not-found error.
	FindByID(ctx context.Context, tenantID, entityID string) (*models.Entity, error)

	// ListByTenant returns all entities of a tenant, active and inactive.
	ListByTenant(ctx context.Context, tenantID string) ([]*models.Entity, error)
}

// DependencyRepository provides read access to dependency edges.
type DependencyRepository interface {
	// ListByTenant returns all dependency edges of a tenant.
	ListByTenant(ctx context.Context, tenantID string) ([]*models.Dependency, error)
}

// ConstraintRepository provides read access to active compliance constraints.
type ConstraintRepository interface {
	// ListActiveByTenant returns the active constraints of a tenant.
	ListActiveByTenant(ctx context.Context, tenantID string) ([]*models.Constraint, error)
}
