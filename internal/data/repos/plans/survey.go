package plans

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/famspace-backend/internal/domain/plans"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

type SurveyProfileRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, profile *types.SurveyProfile) (*types.SurveyProfile, error)
	GetByMemberID(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) (*types.SurveyProfile, error)
	ListByMemberIDs(ctx context.Context, tx *gorm.DB, memberIDs []uuid.UUID) ([]*types.SurveyProfile, error)
}

type surveyProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSurveyProfileRepo(db *gorm.DB, baseLog *logger.Logger) SurveyProfileRepo {
	return &surveyProfileRepo{db: db, log: baseLog.With("repo", "SurveyProfileRepo")}
}

// Upsert replaces the member's profile; member_id is unique.
func (r *surveyProfileRepo) Upsert(ctx context.Context, tx *gorm.DB, profile *types.SurveyProfile) (*types.SurveyProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "member_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"family_space_id",
				"age_band",
				"feature_tag",
				"personality_tag",
				"first_plan_id",
				"second_plan_id",
				"current_plan_id",
				"answers",
				"submitted_at",
			}),
		}).
		Create(profile).Error
	if err != nil {
		return nil, err
	}
	return r.GetByMemberID(ctx, transaction, profile.MemberID)
}

func (r *surveyProfileRepo) GetByMemberID(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) (*types.SurveyProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var p types.SurveyProfile
	err := transaction.WithContext(ctx).Where("member_id = ?", memberID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *surveyProfileRepo) ListByMemberIDs(ctx context.Context, tx *gorm.DB, memberIDs []uuid.UUID) ([]*types.SurveyProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.SurveyProfile
	if len(memberIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("member_id IN ?", memberIDs).
		Order("member_id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
