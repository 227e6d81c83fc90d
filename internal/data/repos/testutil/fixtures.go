package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/famspace-backend/internal/domain"
	"github.com/yungbote/famspace-backend/internal/domain/growth"
)

func SeedFamily(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.FamilySpace {
	tb.Helper()
	fs := &types.FamilySpace{
		ID:   uuid.New(),
		Name: name,
	}
	if err := tx.WithContext(ctx).Create(fs).Error; err != nil {
		tb.Fatalf("seed family: %v", err)
	}
	return fs
}

func SeedMember(tb testing.TB, ctx context.Context, tx *gorm.DB, familyID *uuid.UUID, name string) *types.FamilyMember {
	tb.Helper()
	m := &types.FamilyMember{
		ID:            uuid.New(),
		FamilySpaceID: familyID,
		DisplayName:   name,
		AvatarURL:     "https://cdn.example.test/avatars/" + name + ".png",
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed member: %v", err)
	}
	return m
}

// SeedFamilyWithMembers creates a family and n members named m1..mn in creation order.
func SeedFamilyWithMembers(tb testing.TB, ctx context.Context, tx *gorm.DB, n int) (*types.FamilySpace, []*types.FamilyMember) {
	tb.Helper()
	fs := SeedFamily(tb, ctx, tx, "family")
	out := make([]*types.FamilyMember, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, SeedMember(tb, ctx, tx, &fs.ID, fmt.Sprintf("m%d", i+1)))
	}
	return fs, out
}

func SeedPlan(tb testing.TB, ctx context.Context, tx *gorm.DB, id string, price, discountPrice int) *types.Plan {
	tb.Helper()
	p := &types.Plan{
		ID:            id,
		Name:          id,
		Price:         price,
		DiscountPrice: discountPrice,
		Benefit:       "benefit " + id,
		Link:          "https://plans.example.test/" + id,
		Tags:          datatypes.JSON([]byte("[]")),
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed plan: %v", err)
	}
	return p
}

// SurveyInput carries the scoring-relevant survey fields. Empty plan ids are stored as NULL.
type SurveyInput struct {
	AgeBand     string
	Feature     string
	Personality string
	First       string
	Second      string
}

func SeedSurvey(tb testing.TB, ctx context.Context, tx *gorm.DB, member *types.FamilyMember, in SurveyInput) *types.SurveyProfile {
	tb.Helper()
	sp := &types.SurveyProfile{
		ID:             uuid.New(),
		MemberID:       member.ID,
		AgeBand:        in.AgeBand,
		FeatureTag:     in.Feature,
		PersonalityTag: in.Personality,
		FirstPlanID:    optional(in.First),
		SecondPlanID:   optional(in.Second),
		Answers:        datatypes.JSON([]byte("{}")),
		SubmittedAt:    time.Now().UTC(),
	}
	if member.FamilySpaceID != nil {
		sp.FamilySpaceID = *member.FamilySpaceID
	}
	if err := tx.WithContext(ctx).Create(sp).Error; err != nil {
		tb.Fatalf("seed survey: %v", err)
	}
	return sp
}

func SeedPlant(tb testing.TB, ctx context.Context, tx *gorm.DB, familyID uuid.UUID, level, experience int, completed bool) *types.Plant {
	tb.Helper()
	p := &types.Plant{
		ID:            uuid.New(),
		FamilySpaceID: familyID,
		Kind:          growth.KindFlower,
		Level:         level,
		Experience:    experience,
		Completed:     completed,
	}
	if completed {
		now := time.Now().UTC()
		p.CompletedAt = &now
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed plant: %v", err)
	}
	return p
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
