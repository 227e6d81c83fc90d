package growth

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/famspace-backend/internal/domain/growth"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

type ActivityRecordRepo interface {
	// Create appends a record. The (member_id, activity_type, activity_day) unique index rejects repeats.
	Create(ctx context.Context, tx *gorm.DB, rec *types.ActivityRecord) (*types.ActivityRecord, error)
	Exists(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, activityType, day string) (bool, error)
	ListByPlant(ctx context.Context, tx *gorm.DB, plantID uuid.UUID) ([]*types.ActivityRecord, error)
	ListByMemberAndDay(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, day string) ([]*types.ActivityRecord, error)
}

type activityRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityRecordRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRecordRepo {
	return &activityRecordRepo{db: db, log: baseLog.With("repo", "ActivityRecordRepo")}
}

func (r *activityRecordRepo) Create(ctx context.Context, tx *gorm.DB, rec *types.ActivityRecord) (*types.ActivityRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *activityRecordRepo) Exists(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, activityType, day string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ActivityRecord{}).
		Where("member_id = ? AND activity_type = ? AND activity_day = ?", memberID, activityType, day).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *activityRecordRepo) ListByPlant(ctx context.Context, tx *gorm.DB, plantID uuid.UUID) ([]*types.ActivityRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ActivityRecord
	if err := transaction.WithContext(ctx).
		Where("plant_id = ?", plantID).
		Order("created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *activityRecordRepo) ListByMemberAndDay(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, day string) ([]*types.ActivityRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ActivityRecord
	if err := transaction.WithContext(ctx).
		Where("member_id = ? AND activity_day = ?", memberID, day).
		Order("activity_type ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
