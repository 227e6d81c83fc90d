package growth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/famspace-backend/internal/data/repos"
	domainagg "github.com/yungbote/famspace-backend/internal/domain/aggregates"
	"github.com/yungbote/famspace-backend/internal/domain/family"
	"github.com/yungbote/famspace-backend/internal/domain/growth"
	"github.com/yungbote/famspace-backend/internal/observability"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
	"github.com/yungbote/famspace-backend/internal/services"
)

type ServiceDeps struct {
	Log        *logger.Logger
	Aggregate  domainagg.GrowthAggregate
	Members    repos.MemberRepo
	Plants     repos.PlantRepo
	Activities repos.ActivityRecordRepo
	Rewards    repos.RewardClaimRepo
	Notifier   services.GrowthNotifier

	StoreTimeout time.Duration
	Location     *time.Location
	Now          func() time.Time
}

// Service runs growth operations for an authenticated member.
type Service struct {
	deps ServiceDeps
	log  *logger.Logger
}

func NewService(deps ServiceDeps) *Service {
	if deps.StoreTimeout <= 0 {
		deps.StoreTimeout = 5 * time.Second
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps, log: deps.Log.With("service", "GrowthService")}
}

// PlantStatus is the caller's view of the family plant.
type PlantStatus struct {
	Plant       growth.Plant `json:"plant"`
	MemberCount int          `json:"member_count"`
	// Threshold is zero once the plant is completed.
	Threshold int `json:"threshold"`
	// TodayActivities lists the caller's activity types already recorded today.
	TodayActivities []string `json:"today_activities"`
	RewardClaimed   bool     `json:"reward_claimed"`
	RewardID        string   `json:"reward_id,omitempty"`
}

func (s *Service) CreatePlant(ctx context.Context, callerID uuid.UUID, kind string) (growth.Plant, error) {
	const op = "Growth.CreatePlant"
	ctx, cancel := context.WithTimeout(ctx, s.deps.StoreTimeout)
	defer cancel()

	member, err := s.caller(ctx, op, callerID)
	if err != nil {
		return growth.Plant{}, err
	}
	if member.FamilySpaceID == nil {
		return growth.Plant{}, domainagg.NewError(domainagg.CodeNotFound, op, "member has no family", growth.ErrNoFamily)
	}
	parsed, err := growth.ParseKind(kind)
	if err != nil {
		return growth.Plant{}, domainagg.NewError(domainagg.CodeValidation, op, "unknown plant kind", err)
	}
	res, err := s.deps.Aggregate.CreatePlant(ctx, domainagg.CreatePlantInput{FamilyID: *member.FamilySpaceID, Kind: parsed})
	if err != nil {
		return growth.Plant{}, err
	}
	s.log.Info("plant created", "family_id", res.Plant.FamilySpaceID, "plant_id", res.Plant.ID, "kind", res.Plant.Kind)
	return res.Plant, nil
}

// SubmitActivity records the caller's activity. Realtime events go out after commit, in commit order.
func (s *Service) SubmitActivity(ctx context.Context, callerID uuid.UUID, activityType string) (domainagg.SubmitActivityResult, error) {
	if callerID == uuid.Nil {
		return domainagg.SubmitActivityResult{}, domainagg.NewError(domainagg.CodeValidation, "Growth.SubmitActivity", "missing caller", nil)
	}
	storeCtx, cancel := context.WithTimeout(ctx, s.deps.StoreTimeout)
	defer cancel()

	notifyCtx := context.WithoutCancel(ctx)
	res, err := s.deps.Aggregate.SubmitActivity(storeCtx, domainagg.SubmitActivityInput{
		MemberID:     callerID,
		ActivityType: activityType,
		OccurredAt:   s.deps.Now(),
		OnCommitted: func(committed domainagg.SubmitActivityResult) {
			observability.Current().ObserveActivity(committed.Record.ActivityType, committed.Record.Points, committed.LevelUp, committed.Plant.Completed)
			if s.deps.Notifier != nil {
				s.deps.Notifier.ActivitySubmitted(notifyCtx, committed)
			}
		},
	})
	if err != nil {
		return domainagg.SubmitActivityResult{}, err
	}
	s.log.Debug("activity recorded",
		"member_id", callerID,
		"activity_type", res.Record.ActivityType,
		"points", res.Record.Points,
		"level", res.Plant.Level,
		"experience", res.Plant.Experience,
	)
	return res, nil
}

func (s *Service) ClaimReward(ctx context.Context, callerID uuid.UUID) (domainagg.ClaimRewardResult, error) {
	if callerID == uuid.Nil {
		return domainagg.ClaimRewardResult{}, domainagg.NewError(domainagg.CodeValidation, "Growth.ClaimReward", "missing caller", nil)
	}
	ctx, cancel := context.WithTimeout(ctx, s.deps.StoreTimeout)
	defer cancel()

	res, err := s.deps.Aggregate.ClaimReward(ctx, domainagg.ClaimRewardInput{MemberID: callerID, ClaimedAt: s.deps.Now()})
	if err != nil {
		return domainagg.ClaimRewardResult{}, err
	}
	observability.Current().IncRewardClaim(res.Claim.RewardID)
	s.log.Info("reward claimed", "member_id", callerID, "plant_id", res.Plant.ID, "reward_id", res.Claim.RewardID)
	return res, nil
}

// CurrentPlant returns the family's latest plant, growing or completed.
func (s *Service) CurrentPlant(ctx context.Context, callerID uuid.UUID) (*PlantStatus, error) {
	const op = "Growth.CurrentPlant"
	ctx, cancel := context.WithTimeout(ctx, s.deps.StoreTimeout)
	defer cancel()

	member, err := s.caller(ctx, op, callerID)
	if err != nil {
		return nil, err
	}
	if member.FamilySpaceID == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "member has no family", growth.ErrNoFamily)
	}
	familyID := *member.FamilySpaceID

	plant, err := s.deps.Plants.GetLatestByFamily(ctx, nil, familyID)
	if err != nil {
		return nil, s.storeFailure(op, err)
	}
	if plant == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "family has no plant", growth.ErrNoPlant)
	}
	count, err := s.deps.Members.CountByFamily(ctx, nil, familyID)
	if err != nil {
		return nil, s.storeFailure(op, err)
	}

	status := &PlantStatus{Plant: *plant, MemberCount: count, TodayActivities: []string{}}
	if !plant.Completed {
		// Outside the supported member range the threshold is unknown; report zero.
		if threshold, err := growth.Threshold(count, plant.Level); err == nil {
			status.Threshold = threshold
		}
		today, err := s.deps.Activities.ListByMemberAndDay(ctx, nil, member.ID, growth.DayKey(s.deps.Now(), s.deps.Location))
		if err != nil {
			return nil, s.storeFailure(op, err)
		}
		for _, rec := range today {
			status.TodayActivities = append(status.TodayActivities, rec.ActivityType)
		}
		return status, nil
	}

	claim, err := s.deps.Rewards.GetByMemberAndPlant(ctx, nil, member.ID, plant.ID)
	if err != nil {
		return nil, s.storeFailure(op, err)
	}
	if claim != nil {
		status.RewardClaimed = true
		status.RewardID = claim.RewardID
	}
	return status, nil
}

func (s *Service) caller(ctx context.Context, op string, callerID uuid.UUID) (*family.Member, error) {
	if callerID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing caller", nil)
	}
	member, err := s.deps.Members.GetByID(ctx, nil, callerID)
	if err != nil {
		return nil, s.storeFailure(op, err)
	}
	if member == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "member not found", nil)
	}
	return member, nil
}

func (s *Service) storeFailure(op string, err error) error {
	s.log.Warn("growth store read failed", "op", op, "error", err)
	return domainagg.NewError(domainagg.CodeRetryable, op, "storage unavailable", nil)
}
