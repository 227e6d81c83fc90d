package recommend

import (
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/famspace-backend/internal/data/db"
	"github.com/yungbote/famspace-backend/internal/data/repos"
	repotest "github.com/yungbote/famspace-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/famspace-backend/internal/domain/aggregates"
	"github.com/yungbote/famspace-backend/internal/domain/plans"
)

func newTestEngine(t *testing.T) (*Engine, *gorm.DB, repos.Set) {
	t.Helper()
	conn := repotest.DB(t)
	log := repotest.Logger(t)
	if err := db.SeedCatalog(conn, log); err != nil {
		t.Fatalf("SeedCatalog: %v", err)
	}
	rules, err := DefaultRules()
	if err != nil {
		t.Fatalf("DefaultRules: %v", err)
	}
	set := repos.NewSet(conn, log)
	eng := NewEngine(EngineDeps{
		DB:      conn,
		Log:     log,
		Members: set.Members,
		Surveys: set.Surveys,
		Plans:   set.Plans,
		Rules:   rules,
	})
	return eng, conn, set
}

// seedScenario: four members, three surveyed, one teen.
func seedScenario(t *testing.T, conn *gorm.DB) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	fs, members := repotest.SeedFamilyWithMembers(t, ctx, conn, 4)
	repotest.SeedSurvey(t, ctx, conn, members[0], repotest.SurveyInput{
		AgeBand: "teen", Feature: "sns", Personality: "active", First: "5g-standard", Second: "lte-youth",
	})
	repotest.SeedSurvey(t, ctx, conn, members[1], repotest.SurveyInput{
		AgeBand: "forties", Feature: "video", Personality: "stable", First: "5g-premier-plus", Second: "5g-standard",
	})
	repotest.SeedSurvey(t, ctx, conn, members[2], repotest.SurveyInput{
		AgeBand: "forties", Feature: "video", Personality: "stable", First: "5g-premier-essential", Second: "5g-standard",
	})
	return fs.ID
}

func TestRecommendRanksPlans(t *testing.T) {
	eng, conn, _ := newTestEngine(t)
	familyID := seedScenario(t, conn)

	rec, err := eng.Recommend(context.Background(), familyID)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(rec.Plans) != MaxRanked {
		t.Fatalf("plans: want=%d got=%d", MaxRanked, len(rec.Plans))
	}
	gotIDs := []string{rec.Plans[0].ID, rec.Plans[1].ID, rec.Plans[2].ID}
	wantIDs := []string{"5g-standard", "5g-premier-essential", "5g-premier-plus"}
	if !reflect.DeepEqual(gotIDs, wantIDs) {
		t.Fatalf("order: want=%v got=%v", wantIDs, gotIDs)
	}
	for i := 1; i < len(rec.Plans); i++ {
		if rec.Plans[i].Score > rec.Plans[i-1].Score {
			t.Fatalf("scores not sorted: %v > %v", rec.Plans[i].Score, rec.Plans[i-1].Score)
		}
	}
	top := rec.Plans[0]
	if top.Score != 6.13 || top.PreferredBy != 3 {
		t.Fatalf("top plan: want score=6.13 preferred=3 got score=%v preferred=%d", top.Score, top.PreferredBy)
	}
	if !strings.Contains(top.Rationale, "3명 중 3명(100%)") || !strings.Contains(top.Rationale, "56,250원") {
		t.Fatalf("rationale missing share or price: %q", top.Rationale)
	}

	if rec.Characteristics.AgeBand != "forties" || rec.Characteristics.MemberCount != 4 {
		t.Fatalf("characteristics: %+v", rec.Characteristics)
	}
	if rec.Combination.Name != "투게더 결합" || rec.Combination.Savings != 66000 {
		t.Fatalf("combination: want=투게더 결합/66000 got=%s/%d", rec.Combination.Name, rec.Combination.Savings)
	}
	n := rec.Narrative
	if n.TotalMembers != 4 || n.CompletedMembers != 3 || n.PendingMembers != 1 || n.AllCompleted {
		t.Fatalf("narrative: %+v", n)
	}
	if !strings.Contains(n.Text, "1명이 아직 남아") {
		t.Fatalf("narrative text should mention pending members: %q", n.Text)
	}
}

func TestRecommendIsDeterministic(t *testing.T) {
	eng, conn, _ := newTestEngine(t)
	familyID := seedScenario(t, conn)

	first, err := eng.Recommend(context.Background(), familyID)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := eng.Recommend(context.Background(), familyID)
		if err != nil {
			t.Fatalf("Recommend (%d): %v", i, err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\nfirst=%+v\nagain=%+v", i, first, again)
		}
	}
}

func TestRecommendSkipsPlansMissingFromCatalog(t *testing.T) {
	eng, conn, _ := newTestEngine(t)
	ctx := context.Background()
	fs, members := repotest.SeedFamilyWithMembers(t, ctx, conn, 2)
	repotest.SeedSurvey(t, ctx, conn, members[0], repotest.SurveyInput{First: "retired-plan", Second: "5g-slim"})
	repotest.SeedSurvey(t, ctx, conn, members[1], repotest.SurveyInput{First: "retired-plan"})

	rec, err := eng.Recommend(ctx, fs.ID)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(rec.Plans) != 1 || rec.Plans[0].ID != "5g-slim" {
		t.Fatalf("plans: want only 5g-slim got %+v", rec.Plans)
	}
	if !rec.Narrative.AllCompleted {
		t.Fatalf("both members surveyed, narrative: %+v", rec.Narrative)
	}
}

func TestRecommendNoSurveyCompleted(t *testing.T) {
	eng, conn, _ := newTestEngine(t)
	ctx := context.Background()
	fs, members := repotest.SeedFamilyWithMembers(t, ctx, conn, 3)
	repotest.SeedSurvey(t, ctx, conn, members[0], repotest.SurveyInput{AgeBand: "teen"})

	_, err := eng.Recommend(ctx, fs.ID)
	if !errors.Is(err, plans.ErrNoSurveyCompleted) {
		t.Fatalf("want ErrNoSurveyCompleted, got %v", err)
	}
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("code: want=%s got=%s", domainagg.CodePreconditionFailed, domainagg.CodeOf(err))
	}
}

func TestRecommendNoMembers(t *testing.T) {
	eng, conn, _ := newTestEngine(t)
	fs := repotest.SeedFamily(t, context.Background(), conn, "empty")

	_, err := eng.Recommend(context.Background(), fs.ID)
	if !errors.Is(err, plans.ErrNoMembers) {
		t.Fatalf("want ErrNoMembers, got %v", err)
	}
}

func TestRecommendHidesStorageFailures(t *testing.T) {
	if os.Getenv("TEST_POSTGRES_DSN") != "" {
		t.Skip("drops a table; sqlite only")
	}
	eng, conn, _ := newTestEngine(t)
	familyID := seedScenario(t, conn)
	if err := conn.Exec("DROP TABLE survey_profile").Error; err != nil {
		t.Fatalf("drop table: %v", err)
	}

	_, err := eng.Recommend(context.Background(), familyID)
	if !errors.Is(err, plans.ErrRecommendationFailed) {
		t.Fatalf("want ErrRecommendationFailed, got %v", err)
	}
	if strings.Contains(err.Error(), "survey_profile") {
		t.Fatalf("storage detail leaked: %v", err)
	}
}

func TestRecommendForMemberRequiresMembership(t *testing.T) {
	eng, conn, set := newTestEngine(t)
	familyID := seedScenario(t, conn)
	outsider := repotest.SeedMember(t, context.Background(), conn, nil, "outsider")

	svc := NewService(ServiceDeps{Log: repotest.Logger(t), Engine: eng, Members: set.Members})
	_, err := svc.RecommendForMember(context.Background(), outsider.ID, familyID)
	if !domainagg.IsCode(err, domainagg.CodeForbidden) {
		t.Fatalf("want forbidden, got %v", err)
	}

	members, err := set.Members.ListByFamily(context.Background(), nil, familyID)
	if err != nil || len(members) == 0 {
		t.Fatalf("ListByFamily: %v", err)
	}
	rec, err := svc.RecommendForMember(context.Background(), members[0].ID, familyID)
	if err != nil {
		t.Fatalf("RecommendForMember: %v", err)
	}
	if rec.FamilyID != familyID {
		t.Fatalf("family: want=%s got=%s", familyID, rec.FamilyID)
	}
}

func TestRecommendCountsTeenWithoutSuggestions(t *testing.T) {
	eng, conn, _ := newTestEngine(t)
	ctx := context.Background()
	fs, members := repotest.SeedFamilyWithMembers(t, ctx, conn, 4)
	repotest.SeedSurvey(t, ctx, conn, members[0], repotest.SurveyInput{AgeBand: "forties", First: "5g-standard"})
	repotest.SeedSurvey(t, ctx, conn, members[1], repotest.SurveyInput{AgeBand: "teen"})

	rec, err := eng.Recommend(ctx, fs.ID)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Combination.Name != "투게더 결합" || rec.Combination.Savings != 66000 {
		t.Fatalf("combination: want=투게더 결합/66000 got=%s/%d", rec.Combination.Name, rec.Combination.Savings)
	}
	if rec.Narrative.CompletedMembers != 1 {
		t.Fatalf("completed members: want=1 got=%d", rec.Narrative.CompletedMembers)
	}
}

func TestRankOrdersOnUnroundedScore(t *testing.T) {
	table, err := ParseRules([]byte(`
rules:
  - name: small
    plan: a
    bonus: 0.001
  - name: larger
    plan: b
    bonus: 0.004
`))
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	eng := NewEngine(EngineDeps{Log: repotest.Logger(t), Rules: table})
	pick := func(id string) *plans.SurveyProfile { return &plans.SurveyProfile{FirstPlanID: &id} }
	catalog := map[string]*plans.Plan{
		"a": {ID: "a", Name: "A", Price: 50000, DiscountPrice: 50000},
		"b": {ID: "b", Name: "B", Price: 50000, DiscountPrice: 50000},
	}

	ranked := eng.rank([]*plans.SurveyProfile{pick("a"), pick("b")}, catalog, Characteristics{MemberCount: 2})
	if len(ranked) != 2 {
		t.Fatalf("ranked: want=2 got=%d", len(ranked))
	}
	if ranked[0].ID != "b" || ranked[1].ID != "a" {
		t.Fatalf("order: want=[b a] got=[%s %s]", ranked[0].ID, ranked[1].ID)
	}
	if ranked[0].Score != 3.0 || ranked[1].Score != 3.0 {
		t.Fatalf("display scores: want=3 and 3 got=%v and %v", ranked[0].Score, ranked[1].Score)
	}
}

type gatedPlans struct {
	repos.PlanRepo
	gate chan struct{}
}

func (g gatedPlans) List(ctx context.Context, tx *gorm.DB) ([]*plans.Plan, error) {
	<-g.gate
	return g.PlanRepo.List(ctx, tx)
}

func TestCatalogLoadSurvivesCancelledCaller(t *testing.T) {
	eng, _, set := newTestEngine(t)
	gate := make(chan struct{})
	eng.deps.Plans = gatedPlans{PlanRepo: set.Plans, gate: gate}

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := eng.loadCatalog(first)
		firstErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	second := make(chan error, 1)
	var got map[string]*plans.Plan
	go func() {
		var err error
		got, err = eng.loadCatalog(context.Background())
		second <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller: want context.Canceled got %v", err)
	}
	close(gate)
	if err := <-second; err != nil {
		t.Fatalf("second caller should still get the catalog: %v", err)
	}
	if _, ok := got["5g-standard"]; !ok {
		t.Fatalf("catalog missing seeded plan: %d plans", len(got))
	}
}
