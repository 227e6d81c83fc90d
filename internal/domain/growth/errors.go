package growth

import "errors"

var (
	ErrInsufficientMembers    = errors.New("at least two family members are required")
	ErrPlantAlreadyActive     = errors.New("the family already has a growing plant")
	ErrRewardPending          = errors.New("the completed plant's reward has not been claimed yet")
	ErrDuplicateActivity      = errors.New("activity already recorded today")
	ErrNoActivePlant          = errors.New("the family has no growing plant")
	ErrUnsupportedProgression = errors.New("member count or level outside the supported progression")
	ErrNotCompleted           = errors.New("the plant has not finished growing")
	ErrAlreadyClaimed         = errors.New("reward already claimed for this plant")
	ErrNoPlant                = errors.New("the family has no plant")
	ErrNoFamily               = errors.New("member does not belong to a family")
	ErrUnknownKind            = errors.New("unknown plant kind")
	ErrEmptyActivity          = errors.New("activity type is required")
)
