package growth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/famspace-backend/internal/domain/growth"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

type RewardClaimRepo interface {
	// Create records a claim. The (member_id, plant_id) unique index rejects a second claim.
	Create(ctx context.Context, tx *gorm.DB, claim *types.RewardClaim) (*types.RewardClaim, error)
	Exists(ctx context.Context, tx *gorm.DB, memberID, plantID uuid.UUID) (bool, error)
	GetByMemberAndPlant(ctx context.Context, tx *gorm.DB, memberID, plantID uuid.UUID) (*types.RewardClaim, error)
	CountByPlant(ctx context.Context, tx *gorm.DB, plantID uuid.UUID) (int, error)
}

type rewardClaimRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRewardClaimRepo(db *gorm.DB, baseLog *logger.Logger) RewardClaimRepo {
	return &rewardClaimRepo{db: db, log: baseLog.With("repo", "RewardClaimRepo")}
}

func (r *rewardClaimRepo) Create(ctx context.Context, tx *gorm.DB, claim *types.RewardClaim) (*types.RewardClaim, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if claim.ID == uuid.Nil {
		claim.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(claim).Error; err != nil {
		return nil, err
	}
	return claim, nil
}

func (r *rewardClaimRepo) Exists(ctx context.Context, tx *gorm.DB, memberID, plantID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.RewardClaim{}).
		Where("member_id = ? AND plant_id = ?", memberID, plantID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *rewardClaimRepo) GetByMemberAndPlant(ctx context.Context, tx *gorm.DB, memberID, plantID uuid.UUID) (*types.RewardClaim, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var claim types.RewardClaim
	err := transaction.WithContext(ctx).
		Where("member_id = ? AND plant_id = ?", memberID, plantID).
		First(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *rewardClaimRepo) CountByPlant(ctx context.Context, tx *gorm.DB, plantID uuid.UUID) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.RewardClaim{}).
		Where("plant_id = ?", plantID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}
