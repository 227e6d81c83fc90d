package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/yungbote/famspace-backend/internal/data/repos"
	domainagg "github.com/yungbote/famspace-backend/internal/domain/aggregates"
	"github.com/yungbote/famspace-backend/internal/domain/family"
	"github.com/yungbote/famspace-backend/internal/domain/plans"
	"github.com/yungbote/famspace-backend/internal/observability"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

const (
	FirstChoiceWeight  = 3.0
	SecondChoiceWeight = 1.5
	ScoreFloor         = 0.1
	MaxRanked          = 3

	DefaultBaseLinePrice = 55000
	DefaultTeenAgeBand   = plans.AgeBandTeen

	catalogLoadTimeout = 5 * time.Second
)

type RankedPlan struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Price         int      `json:"price"`
	DiscountPrice int      `json:"discount_price"`
	Benefit       string   `json:"benefit"`
	Link          string   `json:"link"`
	Score         float64  `json:"score"`
	Rationale     string   `json:"rationale"`
	PreferredBy   int      `json:"preferred_by"`
	AppliedRules  []string `json:"applied_rules,omitempty"`
}

type Recommendation struct {
	FamilyID        uuid.UUID       `json:"family_id"`
	Plans           []RankedPlan    `json:"plans"`
	Combination     Bundle          `json:"combination"`
	Characteristics Characteristics `json:"characteristics"`
	Narrative       Narrative       `json:"narrative"`
}

type EngineDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Members repos.MemberRepo
	Surveys repos.SurveyProfileRepo
	Plans   repos.PlanRepo

	Rules         RuleTable
	BaseLinePrice int
	TeenAgeBand   string
}

// Engine ranks catalog plans for a family from its members' survey answers.
type Engine struct {
	deps    EngineDeps
	log     *logger.Logger
	catalog singleflight.Group
}

func NewEngine(deps EngineDeps) *Engine {
	if deps.BaseLinePrice <= 0 {
		deps.BaseLinePrice = DefaultBaseLinePrice
	}
	deps.TeenAgeBand = strings.ToLower(strings.TrimSpace(deps.TeenAgeBand))
	if deps.TeenAgeBand == "" {
		deps.TeenAgeBand = DefaultTeenAgeBand
	}
	return &Engine{deps: deps, log: deps.Log.With("service", "RecommendEngine")}
}

// Recommend fails with plans.ErrNoMembers or plans.ErrNoSurveyCompleted as business errors.
// Any other failure is logged and reported as plans.ErrRecommendationFailed.
func (e *Engine) Recommend(ctx context.Context, familyID uuid.UUID) (*Recommendation, error) {
	const op = "Recommend.Family"
	start := time.Now()
	ctx, span := otel.Tracer("famspace/recommend").Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("family_id", familyID.String()))

	rec, err := e.recommend(ctx, op, familyID)
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, plans.ErrNoMembers):
		outcome = "no_members"
	case errors.Is(err, plans.ErrNoSurveyCompleted):
		outcome = "no_survey_completed"
	default:
		outcome = "failed"
		span.SetStatus(codes.Error, "recommendation failed")
	}
	observability.Current().ObserveRecommendation(outcome, time.Since(start))
	return rec, err
}

func (e *Engine) recommend(ctx context.Context, op string, familyID uuid.UUID) (*Recommendation, error) {
	if e.deps.Members == nil || e.deps.Surveys == nil || e.deps.Plans == nil {
		return nil, e.failed(op, familyID, errors.New("recommend engine repos not configured"))
	}

	var (
		members  []*family.Member
		profiles []*plans.SurveyProfile
	)
	err := e.snapshot(ctx, func(tx *gorm.DB) error {
		var err error
		members, err = e.deps.Members.ListByFamily(ctx, tx, familyID)
		if err != nil || len(members) == 0 {
			return err
		}
		ids := make([]uuid.UUID, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.ID)
		}
		profiles, err = e.deps.Surveys.ListByMemberIDs(ctx, tx, ids)
		return err
	})
	if err != nil {
		return nil, e.failed(op, familyID, err)
	}
	if len(members) == 0 {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, plans.ErrNoMembers.Error(), plans.ErrNoMembers)
	}

	completed := make([]*plans.SurveyProfile, 0, len(profiles))
	for _, p := range profiles {
		if p.Completed() {
			completed = append(completed, p)
		}
	}
	if len(completed) == 0 {
		return nil, domainagg.NewError(domainagg.CodePreconditionFailed, op, plans.ErrNoSurveyCompleted.Error(), plans.ErrNoSurveyCompleted)
	}

	catalog, err := e.loadCatalog(ctx)
	if err != nil {
		return nil, e.failed(op, familyID, err)
	}

	chars := Characterize(completed, len(members))
	ranked := e.rank(completed, catalog, chars)

	// Age bands count for the bundle whether or not a member picked plans.
	teens := 0
	for _, p := range profiles {
		if strings.EqualFold(strings.TrimSpace(p.AgeBand), e.deps.TeenAgeBand) {
			teens++
		}
	}
	top := ""
	if len(ranked) > 0 {
		top = ranked[0].Name
	}

	return &Recommendation{
		FamilyID:        familyID,
		Plans:           ranked,
		Combination:     Combine(len(members), teens, e.deps.BaseLinePrice),
		Characteristics: chars,
		Narrative:       NewNarrative(len(members), len(completed), top, chars),
	}, nil
}

type tally struct {
	score     float64
	preferred int
}

func (e *Engine) rank(completed []*plans.SurveyProfile, catalog map[string]*plans.Plan, chars Characteristics) []RankedPlan {
	tallies := map[string]*tally{}
	add := func(id string, w float64) *tally {
		t, ok := tallies[id]
		if !ok {
			t = &tally{}
			tallies[id] = t
		}
		t.score += w
		return t
	}
	for _, p := range completed {
		first, second := p.Suggestions()
		if first != "" {
			add(first, FirstChoiceWeight).preferred++
		}
		if second != "" {
			t := add(second, SecondChoiceWeight)
			if second != first {
				t.preferred++
			}
		}
	}

	candidates := make([]*plans.Plan, 0, len(tallies))
	for id, t := range tallies {
		if t.score == 0 {
			continue
		}
		plan, ok := catalog[id]
		if !ok {
			continue
		}
		candidates = append(candidates, plan)
	}
	cheapest := cheapestPlan(candidates)

	type scored struct {
		RankedPlan
		raw float64
	}
	list := make([]scored, 0, len(candidates))
	for _, plan := range candidates {
		t := tallies[plan.ID]
		adj := e.deps.Rules.Evaluate(Subject{Plan: plan, Family: chars, Cheapest: plan.ID == cheapest})
		score := math.Max(t.score+adj.Delta, ScoreFloor)
		list = append(list, scored{raw: score, RankedPlan: RankedPlan{
			ID:            plan.ID,
			Name:          plan.Name,
			Price:         plan.Price,
			DiscountPrice: plan.DiscountPrice,
			Benefit:       plan.Benefit,
			Link:          plan.Link,
			Score:         math.Round(score*100) / 100,
			PreferredBy:   t.preferred,
			AppliedRules:  adj.Applied,
			Rationale:     rationale(plan, t.preferred, len(completed), adj.Reasons),
		}})
	}
	// Order on the exact score; Score is rounded for display only.
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].raw != list[j].raw {
			return list[i].raw > list[j].raw
		}
		return list[i].ID < list[j].ID
	})
	if len(list) > MaxRanked {
		list = list[:MaxRanked]
	}
	out := make([]RankedPlan, 0, len(list))
	for _, s := range list {
		out = append(out, s.RankedPlan)
	}
	return out
}

func cheapestPlan(candidates []*plans.Plan) string {
	best := ""
	bestPrice := 0
	for _, p := range candidates {
		if best == "" || p.DiscountPrice < bestPrice || (p.DiscountPrice == bestPrice && p.ID < best) {
			best, bestPrice = p.ID, p.DiscountPrice
		}
	}
	return best
}

func rationale(plan *plans.Plan, preferred, surveyed int, reasons []string) string {
	var b strings.Builder
	if surveyed > 0 {
		pct := int(math.Round(float64(preferred) / float64(surveyed) * 100))
		fmt.Fprintf(&b, "설문에 참여한 가족 %d명 중 %d명(%d%%)이 선호한 요금제입니다.", surveyed, preferred, pct)
	}
	if plan.DiscountPrice > 0 && plan.DiscountPrice < plan.Price {
		fmt.Fprintf(&b, " 할인가 월 %s(정가 %s)", won(plan.DiscountPrice), won(plan.Price))
	} else {
		fmt.Fprintf(&b, " 월 %s", won(plan.Price))
	}
	if benefit := strings.TrimSpace(plan.Benefit); benefit != "" {
		fmt.Fprintf(&b, ", %s.", benefit)
	} else {
		b.WriteString(".")
	}
	for _, r := range reasons {
		b.WriteString(" ")
		b.WriteString(r)
		b.WriteString(".")
	}
	return strings.TrimSpace(b.String())
}

// snapshot runs the survey reads in one read transaction when a DB is configured.
func (e *Engine) snapshot(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if e.deps.DB == nil {
		return fn(nil)
	}
	return e.deps.DB.WithContext(ctx).Transaction(fn)
}

// loadCatalog collapses concurrent catalog reads into one query. The shared query
// runs detached from any one caller so a cancelled request cannot fail the others.
func (e *Engine) loadCatalog(ctx context.Context) (map[string]*plans.Plan, error) {
	ch := e.catalog.DoChan("catalog", func() (any, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), catalogLoadTimeout)
		defer cancel()
		list, err := e.deps.Plans.List(qctx, nil)
		if err != nil {
			return nil, err
		}
		out := make(map[string]*plans.Plan, len(list))
		for _, p := range list {
			out[p.ID] = p
		}
		return out, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]*plans.Plan), nil
	}
}

func (e *Engine) failed(op string, familyID uuid.UUID, cause error) error {
	e.log.Error("recommendation failed", "family_id", familyID, "error", cause)
	return domainagg.NewError(domainagg.CodeInternal, op, plans.ErrRecommendationFailed.Error(), plans.ErrRecommendationFailed)
}
