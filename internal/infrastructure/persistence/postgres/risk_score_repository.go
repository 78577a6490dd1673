package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/turtacn/riskgraph/internal/domain/models"
	"github.com/turtacn/riskgraph/internal/domain/repository"
	"github.com/turtacn/riskgraph/pkg/errors"
	"github.com/turtacn/riskgraph/pkg/logger"
)

type riskScoreRepository struct {
	db  *gorm.DB
	log logger.Logger
}

// NewRiskScoreRepository creates the gorm-backed risk score repository.
func NewRiskScoreRepository(db *gorm.DB, log logger.Logger) repository.RiskScoreRepository {
	return &riskScoreRepository{db: db, log: log}
}

func (r *riskScoreRepository) GetCurrent(ctx context.Context, tenantID, entityID string) (*models.RiskScore, error) {
	var score models.RiskScore
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_id = ?", tenantID, entityID).
		Order("calculated_at DESC").
		First(&score).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil // never scored; not an error
		}
		return nil, errors.Wrap(err, errors.CodeInternal, "querying current score")
	}
	return &score, nil
}

func (r *riskScoreRepository) ListCurrentByTenant(ctx context.Context, tenantID string) ([]*models.RiskScore, error) {
	// One row per entity: the latest by calculated_at.
	var scores []*models.RiskScore
	sub := r.db.Model(&models.RiskScore{}).
		Select("entity_id, MAX(calculated_at) AS calculated_at").
		Where("tenant_id = ?", tenantID).
		Group("entity_id")
	err := r.db.WithContext(ctx).
		Joins("JOIN (?) latest ON risk_scores.entity_id = latest.entity_id AND risk_scores.calculated_at = latest.calculated_at", sub).
		Where("risk_scores.tenant_id = ?", tenantID).
		Order("risk_scores.entity_id").
		Find(&scores).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "listing current scores")
	}
	return scores, nil
}

// Upsert appends a new current score. Writes are idempotent per
// (tenant, entity, calculated_at): a score not newer than the stored current
// one is dropped rather than rewriting history, which makes concurrent
// recalculation requests for the same entity safe.
func (r *riskScoreRepository) Upsert(ctx context.Context, score *models.RiskScore) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.RiskScore
		err := tx.Where("tenant_id = ? AND entity_id = ?", score.TenantID, score.EntityID).
			Order("calculated_at DESC").
			First(&current).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			return errors.Wrap(err, errors.CodeInternal, "checking current score")
		}
		if err == nil && !score.CalculatedAt.After(current.CalculatedAt) {
			return nil // stale or duplicate calculation; keep history intact
		}
		if err := tx.Create(score).Error; err != nil {
			return errors.Wrap(err, errors.CodeInternal, "writing score")
		}
		return nil
	})
}

type tenantConfigRepository struct {
	db  *gorm.DB
	log logger.Logger
}

// NewTenantConfigRepository creates the gorm-backed tenant config repository.
func NewTenantConfigRepository(db *gorm.DB, log logger.Logger) repository.TenantConfigRepository {
	return &tenantConfigRepository{db: db, log: log}
}

func (r *tenantConfigRepository) GetConfig(ctx context.Context, tenantID string) (*models.TenantConfig, error) {
	var cfg models.TenantConfig
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&cfg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return models.DefaultTenantConfig(tenantID), nil
		}
		return nil, errors.Wrap(err, errors.CodeInternal, "querying tenant config")
	}
	return &cfg, nil
}

func (r *tenantConfigRepository) SaveConfig(ctx context.Context, cfg *models.TenantConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(cfg).Error; err != nil {
		return errors.Wrap(err, errors.CodeInternal, "saving tenant config")
	}
	return nil
}
