package family

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/famspace-backend/internal/domain/family"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

type MemberRepo interface {
	Create(ctx context.Context, tx *gorm.DB, members []*types.Member) ([]*types.Member, error)
	GetByID(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) (*types.Member, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, memberIDs []uuid.UUID) ([]*types.Member, error)
	ListByFamily(ctx context.Context, tx *gorm.DB, familyID uuid.UUID) ([]*types.Member, error)
	CountByFamily(ctx context.Context, tx *gorm.DB, familyID uuid.UUID) (int, error)
	UpdateFamily(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, familyID *uuid.UUID) error
}

type memberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMemberRepo(db *gorm.DB, baseLog *logger.Logger) MemberRepo {
	repoLog := baseLog.With("repo", "MemberRepo")
	return &memberRepo{db: db, log: repoLog}
}

func (r *memberRepo) Create(ctx context.Context, tx *gorm.DB, members []*types.Member) ([]*types.Member, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(members) == 0 {
		return []*types.Member{}, nil
	}
	for _, m := range members {
		if m != nil && m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(ctx).Create(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// GetByID returns nil without error when the member does not exist.
func (r *memberRepo) GetByID(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) (*types.Member, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var m types.Member
	err := transaction.WithContext(ctx).Where("id = ?", memberID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *memberRepo) GetByIDs(ctx context.Context, tx *gorm.DB, memberIDs []uuid.UUID) ([]*types.Member, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Member
	if len(memberIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", memberIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *memberRepo) ListByFamily(ctx context.Context, tx *gorm.DB, familyID uuid.UUID) ([]*types.Member, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Member
	if err := transaction.WithContext(ctx).
		Where("family_space_id = ?", familyID).
		Order("created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *memberRepo) CountByFamily(ctx context.Context, tx *gorm.DB, familyID uuid.UUID) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Member{}).
		Where("family_space_id = ?", familyID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *memberRepo) UpdateFamily(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, familyID *uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Member{}).
		Where("id = ?", memberID).
		Update("family_space_id", familyID).Error
}
