package aggregates

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/famspace-backend/internal/data/repos"
	domainagg "github.com/yungbote/famspace-backend/internal/domain/aggregates"
	"github.com/yungbote/famspace-backend/internal/domain/family"
	"github.com/yungbote/famspace-backend/internal/domain/growth"
	"github.com/yungbote/famspace-backend/internal/platform/dbctx"
)

type GrowthAggregateDeps struct {
	Base BaseDeps

	Members    repos.MemberRepo
	Plants     repos.PlantRepo
	Activities repos.ActivityRecordRepo
	Rewards    repos.RewardClaimRepo

	Picker   growth.RewardPicker
	Location *time.Location
	Locks    *KeyedLocks
	Now      func() time.Time
}

type growthAggregate struct {
	deps GrowthAggregateDeps
}

func NewGrowthAggregate(deps GrowthAggregateDeps) domainagg.GrowthAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Picker == nil {
		deps.Picker = growth.HashPicker{}
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Locks == nil {
		deps.Locks = NewKeyedLocks()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &growthAggregate{deps: deps}
}

func (a *growthAggregate) Contract() domainagg.Contract {
	return domainagg.GrowthAggregateContract
}

func (a *growthAggregate) configured() bool {
	return a.deps.Members != nil && a.deps.Plants != nil && a.deps.Activities != nil && a.deps.Rewards != nil
}

func (a *growthAggregate) CreatePlant(ctx context.Context, in domainagg.CreatePlantInput) (domainagg.CreatePlantResult, error) {
	const op = domainagg.OpCreatePlant
	var out domainagg.CreatePlantResult
	if in.FamilyID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing family_id", nil)
	}
	kind, err := growth.ParseKind(string(in.Kind))
	if err != nil {
		return out, growthError(op, err)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "growth aggregate repos not configured", nil)
	}

	unlock, err := a.deps.Locks.Lock(ctx, "family:"+in.FamilyID.String())
	if err != nil {
		return out, MapError(op, err)
	}
	defer unlock()

	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		members, err := a.deps.Members.CountByFamily(dbc.Ctx, dbc.Tx, in.FamilyID)
		if err != nil {
			return err
		}
		if members < growth.MinProgressionMembers {
			return growthError(op, growth.ErrInsufficientMembers)
		}

		growing, err := a.deps.Plants.GetGrowingByFamily(dbc.Ctx, dbc.Tx, in.FamilyID)
		if err != nil {
			return err
		}
		if growing != nil {
			return growthError(op, growth.ErrPlantAlreadyActive)
		}

		latest, err := a.deps.Plants.GetLatestByFamily(dbc.Ctx, dbc.Tx, in.FamilyID)
		if err != nil {
			return err
		}
		if latest != nil && latest.Completed {
			claims, err := a.deps.Rewards.CountByPlant(dbc.Ctx, dbc.Tx, latest.ID)
			if err != nil {
				return err
			}
			if claims == 0 {
				return growthError(op, growth.ErrRewardPending)
			}
		}

		plant := &growth.Plant{
			ID:            uuid.New(),
			FamilySpaceID: in.FamilyID,
			Kind:          kind,
			Level:         1,
			Experience:    0,
		}
		created, err := a.deps.Plants.Create(dbc.Ctx, dbc.Tx, plant)
		if err != nil {
			if IsUniqueViolation(err) {
				return growthError(op, growth.ErrPlantAlreadyActive)
			}
			return err
		}
		out.Plant = *created
		return nil
	})
	if err != nil {
		return domainagg.CreatePlantResult{}, err
	}
	return out, nil
}

func (a *growthAggregate) SubmitActivity(ctx context.Context, in domainagg.SubmitActivityInput) (domainagg.SubmitActivityResult, error) {
	const op = domainagg.OpSubmitActivity
	var out domainagg.SubmitActivityResult
	if in.MemberID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing member_id", nil)
	}
	activityType := strings.ToLower(strings.TrimSpace(in.ActivityType))
	if activityType == "" {
		return out, growthError(op, growth.ErrEmptyActivity)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "growth aggregate repos not configured", nil)
	}
	at := in.OccurredAt
	if at.IsZero() {
		at = a.deps.Now()
	}
	day := growth.DayKey(at, a.deps.Location)

	dup, err := a.deps.Activities.Exists(ctx, nil, in.MemberID, activityType, day)
	if err != nil {
		return out, MapError(op, err)
	}
	if dup {
		return out, growthError(op, growth.ErrDuplicateActivity)
	}

	member, familyID, err := a.resolveMember(ctx, op, in.MemberID)
	if err != nil {
		return out, err
	}
	growing, err := a.deps.Plants.GetGrowingByFamily(ctx, nil, familyID)
	if err != nil {
		return out, MapError(op, err)
	}
	if growing == nil {
		return out, growthError(op, growth.ErrNoActivePlant)
	}

	unlock, err := a.deps.Locks.Lock(ctx, "plant:"+growing.ID.String())
	if err != nil {
		return out, MapError(op, err)
	}
	defer unlock()

	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		plant, err := a.deps.Plants.LockByID(dbc.Ctx, dbc.Tx, growing.ID)
		if err != nil {
			return err
		}
		if plant == nil || plant.Completed {
			return growthError(op, growth.ErrNoActivePlant)
		}

		dup, err := a.deps.Activities.Exists(dbc.Ctx, dbc.Tx, in.MemberID, activityType, day)
		if err != nil {
			return err
		}
		if dup {
			return growthError(op, growth.ErrDuplicateActivity)
		}

		members, err := a.deps.Members.CountByFamily(dbc.Ctx, dbc.Tx, familyID)
		if err != nil {
			return err
		}
		if members < growth.MinProgressionMembers {
			return growthError(op, growth.ErrInsufficientMembers)
		}

		points := growth.Points(activityType)
		rec := &growth.ActivityRecord{
			ID:            uuid.New(),
			MemberID:      in.MemberID,
			ActivityType:  activityType,
			ActivityDay:   day,
			FamilySpaceID: familyID,
			PlantID:       plant.ID,
			Points:        points,
		}
		if _, err := a.deps.Activities.Create(dbc.Ctx, dbc.Tx, rec); err != nil {
			if IsUniqueViolation(err) {
				return growthError(op, growth.ErrDuplicateActivity)
			}
			return err
		}

		step, err := growth.Advance(members, plant.Level, plant.Experience, points)
		if err != nil {
			return growthError(op, err)
		}

		now := a.deps.Now().UTC()
		updates := map[string]any{
			"level":      step.Level,
			"experience": step.Experience,
			"completed":  step.Completed,
			"updated_at": now,
		}
		if step.Completed {
			updates["completed_at"] = now
		}
		version, err := a.deps.Base.Guard.Advance(dbc, "plant", plant.ID, plant.Version, updates)
		if err != nil {
			return err
		}

		plant.Level = step.Level
		plant.Experience = step.Experience
		plant.Completed = step.Completed
		plant.Version = version
		plant.UpdatedAt = now
		if step.Completed {
			plant.CompletedAt = &now
		}

		out.Member = *member
		out.Record = *rec
		out.Plant = *plant
		out.MemberCount = members
		out.Threshold = step.Threshold
		out.LevelUp = step.LevelUp
		return nil
	})
	if err != nil {
		return domainagg.SubmitActivityResult{}, err
	}
	if in.OnCommitted != nil {
		in.OnCommitted(out)
	}
	return out, nil
}

func (a *growthAggregate) ClaimReward(ctx context.Context, in domainagg.ClaimRewardInput) (domainagg.ClaimRewardResult, error) {
	const op = domainagg.OpClaimReward
	var out domainagg.ClaimRewardResult
	if in.MemberID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing member_id", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "growth aggregate repos not configured", nil)
	}
	claimedAt := in.ClaimedAt
	if claimedAt.IsZero() {
		claimedAt = a.deps.Now()
	}

	_, familyID, err := a.resolveMember(ctx, op, in.MemberID)
	if err != nil {
		return out, err
	}
	latest, err := a.deps.Plants.GetLatestByFamily(ctx, nil, familyID)
	if err != nil {
		return out, MapError(op, err)
	}
	if latest == nil {
		return out, growthError(op, growth.ErrNoPlant)
	}
	if !latest.Completed {
		return out, growthError(op, growth.ErrNotCompleted)
	}

	unlock, err := a.deps.Locks.Lock(ctx, "reward:"+in.MemberID.String()+":"+latest.ID.String())
	if err != nil {
		return out, MapError(op, err)
	}
	defer unlock()

	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		claimed, err := a.deps.Rewards.Exists(dbc.Ctx, dbc.Tx, in.MemberID, latest.ID)
		if err != nil {
			return err
		}
		if claimed {
			return growthError(op, growth.ErrAlreadyClaimed)
		}
		claim := &growth.RewardClaim{
			ID:            uuid.New(),
			MemberID:      in.MemberID,
			PlantID:       latest.ID,
			FamilySpaceID: familyID,
			RewardID:      a.deps.Picker.Pick(in.MemberID, latest.ID),
			ClaimedAt:     claimedAt.UTC(),
		}
		if _, err := a.deps.Rewards.Create(dbc.Ctx, dbc.Tx, claim); err != nil {
			if IsUniqueViolation(err) {
				return growthError(op, growth.ErrAlreadyClaimed)
			}
			return err
		}
		out.Claim = *claim
		out.Plant = *latest
		return nil
	})
	if err != nil {
		return domainagg.ClaimRewardResult{}, err
	}
	return out, nil
}

func (a *growthAggregate) resolveMember(ctx context.Context, op string, memberID uuid.UUID) (*family.Member, uuid.UUID, error) {
	member, err := a.deps.Members.GetByID(ctx, nil, memberID)
	if err != nil {
		return nil, uuid.Nil, MapError(op, err)
	}
	if member == nil {
		return nil, uuid.Nil, domainagg.NewError(domainagg.CodeNotFound, op, "member not found", nil)
	}
	if member.FamilySpaceID == nil || *member.FamilySpaceID == uuid.Nil {
		return nil, uuid.Nil, growthError(op, growth.ErrNoFamily)
	}
	return member, *member.FamilySpaceID, nil
}

// growthError tags a growth sentinel with its aggregate code. The sentinel stays reachable via errors.Is.
func growthError(op string, cause error) error {
	code := domainagg.CodeInternal
	switch {
	case errors.Is(cause, growth.ErrUnknownKind), errors.Is(cause, growth.ErrEmptyActivity):
		code = domainagg.CodeValidation
	case errors.Is(cause, growth.ErrNoFamily),
		errors.Is(cause, growth.ErrNoPlant),
		errors.Is(cause, growth.ErrNoActivePlant):
		code = domainagg.CodeNotFound
	case errors.Is(cause, growth.ErrPlantAlreadyActive),
		errors.Is(cause, growth.ErrDuplicateActivity),
		errors.Is(cause, growth.ErrAlreadyClaimed):
		code = domainagg.CodeConflict
	case errors.Is(cause, growth.ErrInsufficientMembers),
		errors.Is(cause, growth.ErrRewardPending),
		errors.Is(cause, growth.ErrNotCompleted):
		code = domainagg.CodePreconditionFailed
	case errors.Is(cause, growth.ErrUnsupportedProgression):
		code = domainagg.CodeInvariantViolation
	}
	return domainagg.NewError(code, op, cause.Error(), cause)
}
