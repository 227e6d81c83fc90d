package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/famspace-backend/internal/data/repos/family"
	"github.com/yungbote/famspace-backend/internal/data/repos/growth"
	"github.com/yungbote/famspace-backend/internal/data/repos/plans"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

type MemberRepo = family.MemberRepo
type SpaceRepo = family.SpaceRepo

type PlanRepo = plans.PlanRepo
type SurveyProfileRepo = plans.SurveyProfileRepo

type PlantRepo = growth.PlantRepo
type ActivityRecordRepo = growth.ActivityRecordRepo
type RewardClaimRepo = growth.RewardClaimRepo

func NewMemberRepo(db *gorm.DB, baseLog *logger.Logger) MemberRepo {
	return family.NewMemberRepo(db, baseLog)
}
func NewSpaceRepo(db *gorm.DB, baseLog *logger.Logger) SpaceRepo {
	return family.NewSpaceRepo(db, baseLog)
}

func NewPlanRepo(db *gorm.DB, baseLog *logger.Logger) PlanRepo { return plans.NewPlanRepo(db, baseLog) }
func NewSurveyProfileRepo(db *gorm.DB, baseLog *logger.Logger) SurveyProfileRepo {
	return plans.NewSurveyProfileRepo(db, baseLog)
}

func NewPlantRepo(db *gorm.DB, baseLog *logger.Logger) PlantRepo { return growth.NewPlantRepo(db, baseLog) }
func NewActivityRecordRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRecordRepo {
	return growth.NewActivityRecordRepo(db, baseLog)
}
func NewRewardClaimRepo(db *gorm.DB, baseLog *logger.Logger) RewardClaimRepo {
	return growth.NewRewardClaimRepo(db, baseLog)
}

// Set bundles every table repo over one database handle.
type Set struct {
	Members  MemberRepo
	Spaces   SpaceRepo
	Plans    PlanRepo
	Surveys  SurveyProfileRepo
	Plants   PlantRepo
	Activity ActivityRecordRepo
	Rewards  RewardClaimRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) Set {
	return Set{
		Members:  NewMemberRepo(db, baseLog),
		Spaces:   NewSpaceRepo(db, baseLog),
		Plans:    NewPlanRepo(db, baseLog),
		Surveys:  NewSurveyProfileRepo(db, baseLog),
		Plants:   NewPlantRepo(db, baseLog),
		Activity: NewActivityRecordRepo(db, baseLog),
		Rewards:  NewRewardClaimRepo(db, baseLog),
	}
}
