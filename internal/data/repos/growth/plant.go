package growth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/famspace-backend/internal/domain/growth"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

type PlantRepo interface {
	Create(ctx context.Context, tx *gorm.DB, plant *types.Plant) (*types.Plant, error)
	GetByID(ctx context.Context, tx *gorm.DB, plantID uuid.UUID) (*types.Plant, error)
	// GetGrowingByFamily returns the family's incomplete plant or nil.
	GetGrowingByFamily(ctx context.Context, tx *gorm.DB, familyID uuid.UUID) (*types.Plant, error)
	// GetLatestByFamily returns the most recently created plant or nil.
	GetLatestByFamily(ctx context.Context, tx *gorm.DB, familyID uuid.UUID) (*types.Plant, error)
	// LockByID reads the plant holding a row lock for the rest of tx.
	LockByID(ctx context.Context, tx *gorm.DB, plantID uuid.UUID) (*types.Plant, error)
}

type plantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlantRepo(db *gorm.DB, baseLog *logger.Logger) PlantRepo {
	return &plantRepo{db: db, log: baseLog.With("repo", "PlantRepo")}
}

func (r *plantRepo) Create(ctx context.Context, tx *gorm.DB, plant *types.Plant) (*types.Plant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if plant.ID == uuid.Nil {
		plant.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(plant).Error; err != nil {
		return nil, err
	}
	return plant, nil
}

func (r *plantRepo) GetByID(ctx context.Context, tx *gorm.DB, plantID uuid.UUID) (*types.Plant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return firstOrNil(transaction.WithContext(ctx).Where("id = ?", plantID))
}

func (r *plantRepo) GetGrowingByFamily(ctx context.Context, tx *gorm.DB, familyID uuid.UUID) (*types.Plant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return firstOrNil(transaction.WithContext(ctx).
		Where("family_space_id = ? AND completed = ?", familyID, false).
		Order("created_at DESC"))
}

func (r *plantRepo) GetLatestByFamily(ctx context.Context, tx *gorm.DB, familyID uuid.UUID) (*types.Plant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return firstOrNil(transaction.WithContext(ctx).
		Where("family_space_id = ?", familyID).
		Order("created_at DESC, id DESC"))
}

func (r *plantRepo) LockByID(ctx context.Context, tx *gorm.DB, plantID uuid.UUID) (*types.Plant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return firstOrNil(transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", plantID))
}

func firstOrNil(q *gorm.DB) (*types.Plant, error) {
	var p types.Plant
	err := q.First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
