package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/turtacn/riskgraph/internal/domain/models"
	"github.com/turtacn/riskgraph/internal/domain/repository"
	"github.com/turtacn/riskgraph/pkg/errors"
	"github.com/turtacn/riskgraph/pkg/logger"
)

type entityRepository struct {
	db  *gorm.DB
	log logger.Logger
}

// NewEntityRepository creates the gorm-backed entity repository.
func NewEntityRepository(db *gorm.DB, log logger.Logger) repository.EntityRepository {
	return &entityRepository{db: db, log: log}
}

func (r *entityRepository) FindByID(ctx context.Context, tenantID, entityID string) (*models.Entity, error) {
	var entity models.Entity
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, entityID).
		First(&entity).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrEntityNotFound(entityID)
		}
		return nil, errors.Wrap(err, errors.CodeInternal, "querying entity")
	}
	return &entity, nil
}

func (r *entityRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.Entity, error) {
	var entities []*models.Entity
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("id").
		Find(&entities).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "listing entities")
	}
	return entities, nil
}

type dependencyRepository struct {
	db  *gorm.DB
	log logger.Logger
}

// NewDependencyRepository creates the gorm-backed dependency repository.
func NewDependencyRepository(db *gorm.DB, log logger.Logger) repository.DependencyRepository {
	return &dependencyRepository{db: db, log: log}
}

func (r *dependencyRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.Dependency, error) {
	var edges []*models.Dependency
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("id").
		Find(&edges).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "listing dependencies")
	}
	return edges, nil
}

type constraintRepository struct {
	db  *gorm.DB
	log logger.Logger
}

// NewConstraintRepository creates the gorm-backed constraint repository.
func NewConstraintRepository(db *gorm.DB, log logger.Logger) repository.ConstraintRepository {
	return &constraintRepository{db: db, log: log}
}

func (r *constraintRepository) ListActiveByTenant(ctx context.Context, tenantID string) ([]*models.Constraint, error) {
	var constraints []*models.Constraint
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Order("id").
		Find(&constraints).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "listing constraints")
	}
	return constraints, nil
}
