package plans

import (
	"context"

	"gorm.io/gorm"

	types "github.com/yungbote/famspace-backend/internal/domain/plans"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

type PlanRepo interface {
	GetByIDs(ctx context.Context, tx *gorm.DB, planIDs []string) ([]*types.Plan, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Plan, error)
}

type planRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlanRepo(db *gorm.DB, baseLog *logger.Logger) PlanRepo {
	return &planRepo{db: db, log: baseLog.With("repo", "PlanRepo")}
}

func (r *planRepo) GetByIDs(ctx context.Context, tx *gorm.DB, planIDs []string) ([]*types.Plan, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Plan
	if len(planIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", planIDs).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *planRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Plan, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Plan
	if err := transaction.WithContext(ctx).Order("id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
