package family

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	dataagg "github.com/yungbote/famspace-backend/internal/data/aggregates"
	"github.com/yungbote/famspace-backend/internal/data/repos"
	domainagg "github.com/yungbote/famspace-backend/internal/domain/aggregates"
	"github.com/yungbote/famspace-backend/internal/domain/family"
	"github.com/yungbote/famspace-backend/internal/domain/growth"
	"github.com/yungbote/famspace-backend/internal/domain/plans"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

var (
	ErrAlreadyInFamily = errors.New("member already belongs to a family")
	ErrFamilyFull      = errors.New("family has reached the member limit")
	ErrSameSuggestion  = errors.New("first and second suggestions must differ")
)

type ServiceDeps struct {
	DB           *gorm.DB
	Log          *logger.Logger
	Members      repos.MemberRepo
	Spaces       repos.SpaceRepo
	Plans        repos.PlanRepo
	Surveys      repos.SurveyProfileRepo
	StoreTimeout time.Duration
	Now          func() time.Time
}

// Service manages family membership and survey submissions.
type Service struct {
	deps  ServiceDeps
	log   *logger.Logger
	locks *dataagg.KeyedLocks
}

func NewService(deps ServiceDeps) *Service {
	if deps.StoreTimeout <= 0 {
		deps.StoreTimeout = 5 * time.Second
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps, log: deps.Log.With("service", "FamilyService"), locks: dataagg.NewKeyedLocks()}
}

type SurveyInput struct {
	AgeBand        string         `json:"age_band"`
	FeatureTag     string         `json:"feature_tag"`
	PersonalityTag string         `json:"personality_tag"`
	FirstPlanID    string         `json:"first_plan_id"`
	SecondPlanID   string         `json:"second_plan_id"`
	CurrentPlanID  string         `json:"current_plan_id"`
	Answers        map[string]any `json:"answers"`
}

type Membership struct {
	Member   family.Member    `json:"member"`
	Family   *family.Space    `json:"family,omitempty"`
	Members  []*family.Member `json:"members"`
	Surveyed int              `json:"surveyed"`
}

// SubmitSurvey stores the caller's survey, replacing any earlier submission.
// Suggested plan ids must exist in the catalog.
func (s *Service) SubmitSurvey(ctx context.Context, callerID uuid.UUID, in SurveyInput) (*plans.SurveyProfile, error) {
	const op = "Family.SubmitSurvey"
	ctx, cancel := context.WithTimeout(ctx, s.deps.StoreTimeout)
	defer cancel()

	member, err := s.caller(ctx, op, callerID)
	if err != nil {
		return nil, err
	}
	if member.FamilySpaceID == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "member has no family", growth.ErrNoFamily)
	}

	first := strings.TrimSpace(in.FirstPlanID)
	second := strings.TrimSpace(in.SecondPlanID)
	current := strings.TrimSpace(in.CurrentPlanID)
	if first != "" && first == second {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "first and second suggestions must differ", ErrSameSuggestion)
	}
	if err := s.requirePlans(ctx, op, first, second, current); err != nil {
		return nil, err
	}

	var answers datatypes.JSON
	if len(in.Answers) > 0 {
		raw, err := json.Marshal(in.Answers)
		if err != nil {
			return nil, domainagg.NewError(domainagg.CodeValidation, op, "answers are not valid JSON", err)
		}
		answers = datatypes.JSON(raw)
	}

	profile := &plans.SurveyProfile{
		MemberID:       member.ID,
		FamilySpaceID:  *member.FamilySpaceID,
		AgeBand:        normalizeTag(in.AgeBand),
		FeatureTag:     normalizeTag(in.FeatureTag),
		PersonalityTag: normalizeTag(in.PersonalityTag),
		FirstPlanID:    optional(first),
		SecondPlanID:   optional(second),
		CurrentPlanID:  optional(current),
		Answers:        answers,
		SubmittedAt:    s.deps.Now().UTC(),
	}
	saved, err := s.deps.Surveys.Upsert(ctx, nil, profile)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	s.log.Info("survey submitted", "member_id", member.ID, "family_id", *member.FamilySpaceID, "completed", saved.Completed())
	return saved, nil
}

func (s *Service) requirePlans(ctx context.Context, op string, ids ...string) error {
	want := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			want = append(want, id)
		}
	}
	if len(want) == 0 {
		return nil
	}
	found, err := s.deps.Plans.GetByIDs(ctx, nil, want)
	if err != nil {
		return dataagg.MapError(op, err)
	}
	known := make(map[string]bool, len(found))
	for _, p := range found {
		known[p.ID] = true
	}
	for _, id := range want {
		if !known[id] {
			return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("unknown plan %q", id), plans.ErrUnknownPlan)
		}
	}
	return nil
}

// Membership describes the caller's family and how many members have surveyed.
func (s *Service) Membership(ctx context.Context, callerID uuid.UUID) (*Membership, error) {
	const op = "Family.Membership"
	ctx, cancel := context.WithTimeout(ctx, s.deps.StoreTimeout)
	defer cancel()

	member, err := s.caller(ctx, op, callerID)
	if err != nil {
		return nil, err
	}
	out := &Membership{Member: *member, Members: []*family.Member{}}
	if member.FamilySpaceID == nil {
		return out, nil
	}
	space, err := s.deps.Spaces.GetByID(ctx, nil, *member.FamilySpaceID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	out.Family = space
	members, err := s.deps.Members.ListByFamily(ctx, nil, *member.FamilySpaceID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	out.Members = members
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	profiles, err := s.deps.Surveys.ListByMemberIDs(ctx, nil, ids)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	for _, p := range profiles {
		if p.Completed() {
			out.Surveyed++
		}
	}
	return out, nil
}

// CreateFamily makes a new family with the caller as its first member.
func (s *Service) CreateFamily(ctx context.Context, callerID uuid.UUID, name string) (*family.Space, error) {
	const op = "Family.Create"
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "family name required", nil)
	}
	ctx, cancel := context.WithTimeout(ctx, s.deps.StoreTimeout)
	defer cancel()

	unlock, err := s.locks.Lock(ctx, "member:"+callerID.String())
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	defer unlock()

	var created *family.Space
	err = s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := s.callerTx(ctx, op, tx, callerID)
		if err != nil {
			return err
		}
		if member.FamilySpaceID != nil {
			return domainagg.NewError(domainagg.CodeConflict, op, "member already belongs to a family", ErrAlreadyInFamily)
		}
		created, err = s.deps.Spaces.Create(ctx, tx, &family.Space{ID: uuid.New(), Name: name})
		if err != nil {
			return err
		}
		return s.deps.Members.UpdateFamily(ctx, tx, member.ID, &created.ID)
	})
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	s.log.Info("family created", "family_id", created.ID, "member_id", callerID)
	return created, nil
}

// Join adds the caller to an existing family of at most family.MaxMembers members.
func (s *Service) Join(ctx context.Context, callerID, familyID uuid.UUID) error {
	const op = "Family.Join"
	if familyID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing family_id", nil)
	}
	ctx, cancel := context.WithTimeout(ctx, s.deps.StoreTimeout)
	defer cancel()

	unlock, err := s.locks.Lock(ctx, "family:"+familyID.String())
	if err != nil {
		return dataagg.MapError(op, err)
	}
	defer unlock()

	err = s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := s.callerTx(ctx, op, tx, callerID)
		if err != nil {
			return err
		}
		if member.FamilySpaceID != nil {
			if *member.FamilySpaceID == familyID {
				return nil
			}
			return domainagg.NewError(domainagg.CodeConflict, op, "member already belongs to a family", ErrAlreadyInFamily)
		}
		space, err := s.deps.Spaces.GetByID(ctx, tx, familyID)
		if err != nil {
			return err
		}
		if space == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, "family not found", nil)
		}
		count, err := s.deps.Members.CountByFamily(ctx, tx, familyID)
		if err != nil {
			return err
		}
		if count >= family.MaxMembers {
			return domainagg.NewError(domainagg.CodePreconditionFailed, op, "family is full", ErrFamilyFull)
		}
		return s.deps.Members.UpdateFamily(ctx, tx, member.ID, &familyID)
	})
	return dataagg.MapError(op, err)
}

// FamilyOf resolves the family of a member for realtime subscriptions.
func (s *Service) FamilyOf(ctx context.Context, memberID uuid.UUID) (uuid.UUID, error) {
	member, err := s.deps.Members.GetByID(ctx, nil, memberID)
	if err != nil {
		return uuid.Nil, err
	}
	if member == nil || member.FamilySpaceID == nil {
		return uuid.Nil, growth.ErrNoFamily
	}
	return *member.FamilySpaceID, nil
}

func (s *Service) caller(ctx context.Context, op string, callerID uuid.UUID) (*family.Member, error) {
	return s.callerTx(ctx, op, nil, callerID)
}

func (s *Service) callerTx(ctx context.Context, op string, tx *gorm.DB, callerID uuid.UUID) (*family.Member, error) {
	if callerID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing caller", nil)
	}
	member, err := s.deps.Members.GetByID(ctx, tx, callerID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if member == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "member not found", nil)
	}
	return member, nil
}

func normalizeTag(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
