package domain

import (
	"github.com/yungbote/famspace-backend/internal/domain/family"
	"github.com/yungbote/famspace-backend/internal/domain/growth"
	"github.com/yungbote/famspace-backend/internal/domain/plans"
)

type FamilySpace = family.Space
type FamilyMember = family.Member

type Plan = plans.Plan
type SurveyProfile = plans.SurveyProfile

type Plant = growth.Plant
type ActivityRecord = growth.ActivityRecord
type RewardClaim = growth.RewardClaim

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&family.Space{},
		&family.Member{},
		&plans.Plan{},
		&plans.SurveyProfile{},
		&growth.Plant{},
		&growth.ActivityRecord{},
		&growth.RewardClaim{},
	}
}
