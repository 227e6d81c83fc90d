package aggregates

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/famspace-backend/internal/data/repos"
	repotest "github.com/yungbote/famspace-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/famspace-backend/internal/domain/aggregates"
	"github.com/yungbote/famspace-backend/internal/domain/growth"
)

type growthFixture struct {
	db      *gorm.DB
	agg     domainagg.GrowthAggregate
	set     repos.Set
	hooks   *spyHooks
	family  uuid.UUID
	members []uuid.UUID
}

func newGrowthFixture(t *testing.T, memberCount int) *growthFixture {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	ctx := context.Background()

	fs, members := repotest.SeedFamilyWithMembers(t, ctx, db, memberCount)
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}

	set := repos.NewSet(db, log)
	hooks := &spyHooks{}
	agg := NewGrowthAggregate(GrowthAggregateDeps{
		Base: BaseDeps{
			DB:     db,
			Log:    log,
			Runner: NewGormTxRunner(db),
			Hooks:  &lockedHooks{inner: hooks},
		},
		Members:    set.Members,
		Plants:     set.Plants,
		Activities: set.Activity,
		Rewards:    set.Rewards,
		Location:   time.UTC,
	})
	return &growthFixture{db: db, agg: agg, set: set, hooks: hooks, family: fs.ID, members: ids}
}

func (f *growthFixture) createPlant(t *testing.T) growth.Plant {
	t.Helper()
	res, err := f.agg.CreatePlant(context.Background(), domainagg.CreatePlantInput{FamilyID: f.family, Kind: growth.KindTree})
	if err != nil {
		t.Fatalf("CreatePlant: %v", err)
	}
	return res.Plant
}

func (f *growthFixture) submit(memberIdx int, activity string, at time.Time) (domainagg.SubmitActivityResult, error) {
	return f.agg.SubmitActivity(context.Background(), domainagg.SubmitActivityInput{
		MemberID:     f.members[memberIdx],
		ActivityType: activity,
		OccurredAt:   at,
	})
}

func (f *growthFixture) setPlantState(t *testing.T, plantID uuid.UUID, level, experience int) {
	t.Helper()
	err := f.db.Table("plant").Where("id = ?", plantID).Updates(map[string]any{
		"level":      level,
		"experience": experience,
	}).Error
	if err != nil {
		t.Fatalf("set plant state: %v", err)
	}
}

func day(d int) time.Time {
	return time.Date(2024, time.May, d, 9, 0, 0, 0, time.UTC)
}

func TestGrowthCreatePlantRequiresTwoMembers(t *testing.T) {
	f := newGrowthFixture(t, 1)
	_, err := f.agg.CreatePlant(context.Background(), domainagg.CreatePlantInput{FamilyID: f.family})
	if !errors.Is(err, growth.ErrInsufficientMembers) {
		t.Fatalf("want ErrInsufficientMembers, got %v", err)
	}
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("code: want=%s got=%s", domainagg.CodePreconditionFailed, domainagg.CodeOf(err))
	}
}

func TestGrowthCreatePlantRejectsSecondGrowingPlant(t *testing.T) {
	f := newGrowthFixture(t, 2)
	p := f.createPlant(t)
	if p.Level != 1 || p.Experience != 0 || p.Completed || p.Kind != growth.KindTree {
		t.Fatalf("unexpected new plant: %+v", p)
	}
	_, err := f.agg.CreatePlant(context.Background(), domainagg.CreatePlantInput{FamilyID: f.family})
	if !errors.Is(err, growth.ErrPlantAlreadyActive) {
		t.Fatalf("want ErrPlantAlreadyActive, got %v", err)
	}
	if len(f.hooks.Conflicts) != 1 {
		t.Fatalf("conflict hooks: want=1 got=%d", len(f.hooks.Conflicts))
	}
}

func TestGrowthCreatePlantRejectsUnknownKind(t *testing.T) {
	f := newGrowthFixture(t, 2)
	_, err := f.agg.CreatePlant(context.Background(), domainagg.CreatePlantInput{FamilyID: f.family, Kind: "cactus"})
	if !errors.Is(err, growth.ErrUnknownKind) || !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("want validation ErrUnknownKind, got %v", err)
	}
}

func TestGrowthCreatePlantWaitsForRewardClaim(t *testing.T) {
	f := newGrowthFixture(t, 2)
	ctx := context.Background()
	done := repotest.SeedPlant(t, ctx, f.db, f.family, growth.CompletionLevel, 0, true)

	_, err := f.agg.CreatePlant(ctx, domainagg.CreatePlantInput{FamilyID: f.family})
	if !errors.Is(err, growth.ErrRewardPending) {
		t.Fatalf("want ErrRewardPending, got %v", err)
	}

	if _, err := f.agg.ClaimReward(ctx, domainagg.ClaimRewardInput{MemberID: f.members[0]}); err != nil {
		t.Fatalf("ClaimReward: %v", err)
	}
	next := f.createPlant(t)
	if next.ID == done.ID {
		t.Fatalf("expected a new plant")
	}
}

func TestGrowthSubmitActivityAccumulatesExperience(t *testing.T) {
	f := newGrowthFixture(t, 3)
	f.createPlant(t)

	res, err := f.submit(0, "water", day(1))
	if err != nil {
		t.Fatalf("submit water: %v", err)
	}
	if res.Plant.Experience != 5 || res.Plant.Level != 1 || res.LevelUp {
		t.Fatalf("after water: level=%d exp=%d levelUp=%v", res.Plant.Level, res.Plant.Experience, res.LevelUp)
	}
	if res.Threshold != 200 || res.MemberCount != 3 {
		t.Fatalf("threshold/members: want=200/3 got=%d/%d", res.Threshold, res.MemberCount)
	}
	if res.Member.ID != f.members[0] || res.Member.DisplayName != "m1" {
		t.Fatalf("unexpected member in result: %+v", res.Member)
	}

	res, err = f.submit(1, "quiz", day(1))
	if err != nil {
		t.Fatalf("submit quiz: %v", err)
	}
	if res.Plant.Experience != 15 || res.Plant.Level != 1 {
		t.Fatalf("after quiz: level=%d exp=%d", res.Plant.Level, res.Plant.Experience)
	}
	if res.Record.Points != 10 || res.Record.ActivityDay != "2024-05-01" {
		t.Fatalf("unexpected record: %+v", res.Record)
	}
}

func TestGrowthSubmitActivityDuplicatePerDay(t *testing.T) {
	f := newGrowthFixture(t, 2)
	f.createPlant(t)

	if _, err := f.submit(0, "water", day(1)); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := f.submit(0, "water", day(1).Add(3*time.Hour))
	if !errors.Is(err, growth.ErrDuplicateActivity) {
		t.Fatalf("want ErrDuplicateActivity, got %v", err)
	}
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("code: want=conflict got=%s", domainagg.CodeOf(err))
	}
	if _, err := f.submit(1, "water", day(1)); err != nil {
		t.Fatalf("other member same day: %v", err)
	}
	res, err := f.submit(0, "water", day(2))
	if err != nil {
		t.Fatalf("next day submit: %v", err)
	}
	if res.Plant.Experience != 15 {
		t.Fatalf("experience: want=15 got=%d", res.Plant.Experience)
	}
}

func TestGrowthSubmitActivityWithoutPlant(t *testing.T) {
	f := newGrowthFixture(t, 2)
	_, err := f.submit(0, "water", day(1))
	if !errors.Is(err, growth.ErrNoActivePlant) {
		t.Fatalf("want ErrNoActivePlant, got %v", err)
	}
}

func TestGrowthSubmitActivityRequiresTwoMembers(t *testing.T) {
	f := newGrowthFixture(t, 2)
	plant := f.createPlant(t)
	if err := f.db.Table("family_member").Where("id = ?", f.members[1]).Update("family_space_id", nil).Error; err != nil {
		t.Fatalf("remove member: %v", err)
	}

	_, err := f.submit(0, "water", day(1))
	if !errors.Is(err, growth.ErrInsufficientMembers) {
		t.Fatalf("want ErrInsufficientMembers, got %v", err)
	}
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("code: want=%s got=%s", domainagg.CodePreconditionFailed, domainagg.CodeOf(err))
	}
	var stored struct {
		Level      int
		Experience int
	}
	if err := f.db.Table("plant").Select("level, experience").Where("id = ?", plant.ID).Scan(&stored).Error; err != nil {
		t.Fatalf("load plant: %v", err)
	}
	if stored.Level != 1 || stored.Experience != 0 {
		t.Fatalf("plant changed: level=%d experience=%d", stored.Level, stored.Experience)
	}
}

func TestGrowthSubmitActivityUnknownTypeEarnsNothing(t *testing.T) {
	f := newGrowthFixture(t, 2)
	f.createPlant(t)
	res, err := f.submit(0, "dance", day(1))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Record.Points != 0 || res.Plant.Experience != 0 {
		t.Fatalf("unknown activity should earn 0, got record=%d exp=%d", res.Record.Points, res.Plant.Experience)
	}
}

func TestGrowthLevelUpResetsExperience(t *testing.T) {
	f := newGrowthFixture(t, 3)
	p := f.createPlant(t)
	f.setPlantState(t, p.ID, 1, 195)

	res, err := f.submit(0, "mission", day(1))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.LevelUp || res.Plant.Level != 2 {
		t.Fatalf("want level up to 2, got level=%d levelUp=%v", res.Plant.Level, res.LevelUp)
	}
	if res.Plant.Experience != 0 {
		t.Fatalf("excess experience must not carry over, got %d", res.Plant.Experience)
	}
	if res.Threshold != 400 {
		t.Fatalf("next threshold: want=400 got=%d", res.Threshold)
	}

	stored, err := f.set.Plants.GetByID(context.Background(), nil, p.ID)
	if err != nil || stored == nil {
		t.Fatalf("reload plant: %v", err)
	}
	if stored.Level != 2 || stored.Experience != 0 || stored.Version != 1 {
		t.Fatalf("stored plant: level=%d exp=%d version=%d", stored.Level, stored.Experience, stored.Version)
	}
}

func TestGrowthCompletionAndRewardClaim(t *testing.T) {
	f := newGrowthFixture(t, 2)
	ctx := context.Background()
	p := f.createPlant(t)

	_, err := f.agg.ClaimReward(ctx, domainagg.ClaimRewardInput{MemberID: f.members[0]})
	if !errors.Is(err, growth.ErrNotCompleted) {
		t.Fatalf("want ErrNotCompleted, got %v", err)
	}

	f.setPlantState(t, p.ID, growth.MaxGrowingLevel, 595)
	res, err := f.submit(1, "diary", day(1))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Plant.Completed || res.Plant.Level != growth.CompletionLevel || res.Plant.CompletedAt == nil {
		t.Fatalf("want completed plant, got %+v", res.Plant)
	}

	_, err = f.submit(0, "water", day(1))
	if !errors.Is(err, growth.ErrNoActivePlant) {
		t.Fatalf("completed plant accepts no activity, got %v", err)
	}

	claim, err := f.agg.ClaimReward(ctx, domainagg.ClaimRewardInput{MemberID: f.members[0]})
	if err != nil {
		t.Fatalf("ClaimReward: %v", err)
	}
	if claim.Claim.PlantID != p.ID || claim.Claim.RewardID == "" {
		t.Fatalf("unexpected claim: %+v", claim.Claim)
	}
	if want := (growth.HashPicker{}).Pick(f.members[0], p.ID); claim.Claim.RewardID != want {
		t.Fatalf("reward: want=%s got=%s", want, claim.Claim.RewardID)
	}

	_, err = f.agg.ClaimReward(ctx, domainagg.ClaimRewardInput{MemberID: f.members[0]})
	if !errors.Is(err, growth.ErrAlreadyClaimed) {
		t.Fatalf("want ErrAlreadyClaimed, got %v", err)
	}
	if _, err := f.agg.ClaimReward(ctx, domainagg.ClaimRewardInput{MemberID: f.members[1]}); err != nil {
		t.Fatalf("second member claim: %v", err)
	}
}

func TestGrowthClaimRewardConcurrentOnce(t *testing.T) {
	f := newGrowthFixture(t, 2)
	ctx := context.Background()
	p := repotest.SeedPlant(t, ctx, f.db, f.family, growth.CompletionLevel, 0, true)

	const attempts = 6
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		claimed int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.agg.ClaimReward(ctx, domainagg.ClaimRewardInput{MemberID: f.members[0]})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, growth.ErrAlreadyClaimed):
				claimed++
			default:
				t.Errorf("unexpected claim error: %v", err)
			}
		}()
	}
	wg.Wait()
	if success != 1 || claimed != attempts-1 {
		t.Fatalf("claims: want success=1 already=%d, got success=%d already=%d", attempts-1, success, claimed)
	}
	n, err := f.set.Rewards.CountByPlant(ctx, nil, p.ID)
	if err != nil {
		t.Fatalf("CountByPlant: %v", err)
	}
	if n != 1 {
		t.Fatalf("stored claims: want=1 got=%d", n)
	}
}

func TestGrowthConcurrentSubmissionsNoLostUpdates(t *testing.T) {
	f := newGrowthFixture(t, 5)
	ctx := context.Background()
	p := f.createPlant(t)

	activities := []string{"attendance", "water", "sunlight", "nutrient", "quiz", "photo", "diary", "mission"}
	want := 0
	var wg sync.WaitGroup
	errs := make(chan error, len(activities)*len(f.members))
	for mi := range f.members {
		for _, act := range activities {
			want += growth.Points(act)
			wg.Add(1)
			go func(mi int, act string) {
				defer wg.Done()
				if _, err := f.submit(mi, act, day(1)); err != nil {
					errs <- err
				}
			}(mi, act)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent submit: %v", err)
	}

	records, err := f.set.Activity.ListByPlant(ctx, nil, p.ID)
	if err != nil {
		t.Fatalf("ListByPlant: %v", err)
	}
	if len(records) != len(activities)*len(f.members) {
		t.Fatalf("records: want=%d got=%d", len(activities)*len(f.members), len(records))
	}

	// 350 points cross the 300 threshold once; only points after the crossing remain.
	stored, err := f.set.Plants.GetByID(ctx, nil, p.ID)
	if err != nil || stored == nil {
		t.Fatalf("reload plant: %v", err)
	}
	if stored.Version != len(records) {
		t.Fatalf("version: want=%d got=%d", len(records), stored.Version)
	}
	if stored.Level != 2 {
		t.Fatalf("level: want=2 got=%d (total points %d)", stored.Level, want)
	}
	if stored.Experience < 0 || stored.Experience > want-300 {
		t.Fatalf("experience out of range after reset: %d", stored.Experience)
	}
}

func TestKeyedLocksReleaseKeys(t *testing.T) {
	locks := NewKeyedLocks()
	unlock, err := locks.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locks.Lock(ctx, "a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline while held, got %v", err)
	}
	unlock()
	unlock()
	if n := locks.Len(); n != 0 {
		t.Fatalf("keys after release: want=0 got=%d", n)
	}
}

type lockedHooks struct {
	mu    sync.Mutex
	inner *spyHooks
}

func (h *lockedHooks) ObserveWrite(ev WriteEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inner.ObserveWrite(ev)
}

func (h *lockedHooks) IncConflict(op string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inner.IncConflict(op)
}

func (h *lockedHooks) IncRetry(op string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inner.IncRetry(op)
}

func TestGrowthOnCommittedObservesCommitOrder(t *testing.T) {
	f := newGrowthFixture(t, 4)
	f.createPlant(t)

	var mu sync.Mutex
	var versions []int
	var wg sync.WaitGroup
	for mi := range f.members {
		for _, act := range []string{"water", "quiz", "photo"} {
			wg.Add(1)
			go func(mi int, act string) {
				defer wg.Done()
				_, err := f.agg.SubmitActivity(context.Background(), domainagg.SubmitActivityInput{
					MemberID:     f.members[mi],
					ActivityType: act,
					OccurredAt:   day(1),
					OnCommitted: func(res domainagg.SubmitActivityResult) {
						mu.Lock()
						versions = append(versions, res.Plant.Version)
						mu.Unlock()
					},
				})
				if err != nil {
					t.Errorf("submit: %v", err)
				}
			}(mi, act)
		}
	}
	wg.Wait()

	if len(versions) != 12 {
		t.Fatalf("callbacks: want=12 got=%d", len(versions))
	}
	for i, v := range versions {
		if v != i+1 {
			t.Fatalf("callback %d saw version %d; want %d", i, v, i+1)
		}
	}

	if _, err := f.submit(0, "water", day(1)); err == nil {
		t.Fatalf("expected duplicate")
	}
	if len(versions) != 12 {
		t.Fatalf("failed submit must not notify")
	}
}
