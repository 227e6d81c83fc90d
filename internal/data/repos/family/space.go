package family

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/famspace-backend/internal/domain/family"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

type SpaceRepo interface {
	Create(ctx context.Context, tx *gorm.DB, space *types.Space) (*types.Space, error)
	GetByID(ctx context.Context, tx *gorm.DB, spaceID uuid.UUID) (*types.Space, error)
}

type spaceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSpaceRepo(db *gorm.DB, baseLog *logger.Logger) SpaceRepo {
	return &spaceRepo{db: db, log: baseLog.With("repo", "SpaceRepo")}
}

func (r *spaceRepo) Create(ctx context.Context, tx *gorm.DB, space *types.Space) (*types.Space, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if space.ID == uuid.Nil {
		space.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(space).Error; err != nil {
		return nil, err
	}
	return space, nil
}

func (r *spaceRepo) GetByID(ctx context.Context, tx *gorm.DB, spaceID uuid.UUID) (*types.Space, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var s types.Space
	err := transaction.WithContext(ctx).Where("id = ?", spaceID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
