package aggregates

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	domainagg "github.com/yungbote/famspace-backend/internal/domain/aggregates"
	"gorm.io/gorm"
)

func TestMapErrorClassifies(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want domainagg.ErrorCode
	}{
		{"record not found", gorm.ErrRecordNotFound, domainagg.CodeNotFound},
		{"duplicated key", gorm.ErrDuplicatedKey, domainagg.CodeConflict},
		{"foreign key", gorm.ErrForeignKeyViolated, domainagg.CodePreconditionFailed},
		{"canceled", context.Canceled, domainagg.CodeRetryable},
		{"pg unique", &pgconn.PgError{Code: "23505"}, domainagg.CodeConflict},
		{"pg serialization", &pgconn.PgError{Code: "40001"}, domainagg.CodeRetryable},
		{"sqlite unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, domainagg.CodeConflict},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, domainagg.CodeRetryable},
		{"sqlite message", errors.New("UNIQUE constraint failed: reward_claim.member_id, reward_claim.plant_id"), domainagg.CodeConflict},
		{"locked message", errors.New("database is locked"), domainagg.CodeRetryable},
		{"wrapped coded", fmt.Errorf("claim: %w", conflictf("already claimed")), domainagg.CodeConflict},
		{"unknown", errors.New("disk I/O error"), domainagg.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MapError("Growth.Plant.Test", tc.err)
			if !domainagg.IsCode(got, tc.want) {
				t.Fatalf("code: want=%s got=%s (%v)", tc.want, domainagg.CodeOf(got), got)
			}
			if !errors.Is(got, tc.err) {
				t.Fatalf("cause lost: %v", got)
			}
		})
	}
}

func TestMapErrorKeepsCodedErrors(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeRetryable, "Growth.Plant.Create", "retry", errors.New("boom"))
	if out := MapError("other", in); out != in {
		t.Fatalf("coded error with op must pass through unchanged")
	}

	bare := conflictf("plant moved on")
	out := MapError("Growth.Plant.SubmitActivity", bare)
	var aggErr *domainagg.Error
	if !errors.As(out, &aggErr) || aggErr.Op != "Growth.Plant.SubmitActivity" || aggErr.Code != domainagg.CodeConflict {
		t.Fatalf("bare coded error: want op attributed, got %v", out)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(gorm.ErrDuplicatedKey) {
		t.Fatalf("ErrDuplicatedKey should be a unique violation")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: plant.family_space_id")) {
		t.Fatalf("sqlite message should be a unique violation")
	}
	if IsUniqueViolation(errors.New("disk I/O error")) || IsUniqueViolation(nil) {
		t.Fatalf("unexpected unique violation")
	}
}
