package plans

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Age bands recorded by the survey.
const (
	AgeBandChild    = "child"
	AgeBandTeen     = "teen"
	AgeBandTwenties = "twenties"
	AgeBandThirties = "thirties"
	AgeBandForties  = "forties"
	AgeBandFifties  = "fifties"
	AgeBandSenior   = "senior"
)

// SurveyProfile is one member's questionnaire outcome. A resubmission replaces the row.
type SurveyProfile struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	MemberID       uuid.UUID      `gorm:"type:uuid;column:member_id;not null;uniqueIndex" json:"member_id"`
	FamilySpaceID  uuid.UUID      `gorm:"type:uuid;column:family_space_id;not null;index" json:"family_space_id"`
	AgeBand        string         `gorm:"column:age_band" json:"age_band"`
	FeatureTag     string         `gorm:"column:feature_tag" json:"feature_tag"`
	PersonalityTag string         `gorm:"column:personality_tag" json:"personality_tag"`
	FirstPlanID    *string        `gorm:"column:first_plan_id" json:"first_plan_id,omitempty"`
	SecondPlanID   *string        `gorm:"column:second_plan_id" json:"second_plan_id,omitempty"`
	CurrentPlanID  *string        `gorm:"column:current_plan_id" json:"current_plan_id,omitempty"`
	Answers        datatypes.JSON `gorm:"column:answers" json:"answers,omitempty"`
	SubmittedAt    time.Time      `gorm:"column:submitted_at;not null" json:"submitted_at"`
}

func (SurveyProfile) TableName() string { return "survey_profile" }

// Completed reports whether at least one suggestion slot is filled.
func (p *SurveyProfile) Completed() bool {
	if p == nil {
		return false
	}
	return nonEmpty(p.FirstPlanID) || nonEmpty(p.SecondPlanID)
}

// Suggestions returns the ranked, non-empty suggested plan ids.
func (p *SurveyProfile) Suggestions() (first, second string) {
	if p == nil {
		return "", ""
	}
	if nonEmpty(p.FirstPlanID) {
		first = strings.TrimSpace(*p.FirstPlanID)
	}
	if nonEmpty(p.SecondPlanID) {
		second = strings.TrimSpace(*p.SecondPlanID)
	}
	return first, second
}

func nonEmpty(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
