package plans

import "errors"

var (
	ErrNoMembers            = errors.New("the family has no members")
	ErrNoSurveyCompleted    = errors.New("no family member has completed the survey")
	ErrRecommendationFailed = errors.New("recommendation failed")
	ErrUnknownPlan          = errors.New("unknown plan")
)
