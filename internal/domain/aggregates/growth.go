package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/famspace-backend/internal/domain/family"
	"github.com/yungbote/famspace-backend/internal/domain/growth"
)

const (
	OpCreatePlant    = "Growth.Plant.Create"
	OpSubmitActivity = "Growth.Plant.SubmitActivity"
	OpClaimReward    = "Growth.Plant.ClaimReward"
)

var GrowthAggregateContract = Contract{
	Name:       "Growth.PlantAggregate",
	Operations: []string{OpCreatePlant, OpSubmitActivity, OpClaimReward},
	LockScopes: []string{"family", "plant", "reward"},
	Notes: "Owns plant creation, activity ledger appends with experience/level transitions, " +
		"and per-member reward claims.",
}

// GrowthAggregate owns plant lifecycle invariants.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodePreconditionFailed, CodeInvariantViolation,
// CodeRetryable, CodeInternal. Business causes are growth.Err* sentinels reachable with errors.Is.
type GrowthAggregate interface {
	Aggregate

	// CreatePlant starts a new plant for a family with at least two members and no growing plant.
	CreatePlant(ctx context.Context, in CreatePlantInput) (CreatePlantResult, error)

	// SubmitActivity appends today's activity for a member and advances the family plant atomically.
	SubmitActivity(ctx context.Context, in SubmitActivityInput) (SubmitActivityResult, error)

	// ClaimReward grants a member's reward for the family's completed plant, at most once.
	ClaimReward(ctx context.Context, in ClaimRewardInput) (ClaimRewardResult, error)
}

type CreatePlantInput struct {
	FamilyID uuid.UUID
	Kind     growth.Kind
}

type CreatePlantResult struct {
	Plant growth.Plant
}

type SubmitActivityInput struct {
	MemberID     uuid.UUID
	ActivityType string
	OccurredAt   time.Time

	// OnCommitted runs after the write commits and before the plant lock is released,
	// so successive calls for one plant observe commit order.
	OnCommitted func(SubmitActivityResult)
}

type SubmitActivityResult struct {
	Member      family.Member
	Record      growth.ActivityRecord
	Plant       growth.Plant
	MemberCount int
	Threshold   int
	LevelUp     bool
}

type ClaimRewardInput struct {
	MemberID  uuid.UUID
	ClaimedAt time.Time
}

type ClaimRewardResult struct {
	Claim growth.RewardClaim
	Plant growth.Plant
}
