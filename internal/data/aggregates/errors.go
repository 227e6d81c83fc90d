package aggregates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	domainagg "github.com/yungbote/famspace-backend/internal/domain/aggregates"
	"gorm.io/gorm"
)

// coded builds an aggregate error without an op; executeWrite attributes it to the
// write that returned it.
func coded(code domainagg.ErrorCode, format string, args ...any) error {
	return &domainagg.Error{Code: code, Message: strings.TrimSpace(fmt.Sprintf(format, args...))}
}

func conflictf(format string, args ...any) error {
	return coded(domainagg.CodeConflict, format, args...)
}

func validationf(format string, args ...any) error {
	return coded(domainagg.CodeValidation, format, args...)
}

// MapError turns a storage or context failure into a coded aggregate error. Errors
// that are already coded pass through, gaining op when they have none.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) && aggErr == err {
		if aggErr.Op == "" {
			return aggErr.WithOp(op)
		}
		return err
	}
	return domainagg.Wrap(classify(err), op, err)
}

func classify(err error) domainagg.ErrorCode {
	if code := domainagg.CodeOf(err); code != "" {
		return code
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.CodeNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrCheckConstraintViolated):
		return domainagg.CodeConflict
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return domainagg.CodePreconditionFailed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainagg.CodeRetryable
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return domainagg.CodeConflict
		case "23503": // foreign_key_violation
			return domainagg.CodePreconditionFailed
		case "40001", "40P01", "55P03":
			return domainagg.CodeRetryable
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch {
		case liteErr.ExtendedCode == sqlite3.ErrConstraintUnique,
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return domainagg.CodeConflict
		case liteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey:
			return domainagg.CodePreconditionFailed
		case liteErr.Code == sqlite3.ErrBusy, liteErr.Code == sqlite3.ErrLocked:
			return domainagg.CodeRetryable
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"), strings.Contains(msg, "duplicate key"):
		return domainagg.CodeConflict
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "could not serialize"):
		return domainagg.CodeRetryable
	}
	return domainagg.CodeInternal
}

// IsUniqueViolation reports whether err came from a unique index rejecting a row.
// Growth writes use it to turn a lost insert race into the matching business error.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return classify(err) == domainagg.CodeConflict && !errors.Is(err, gorm.ErrCheckConstraintViolated)
}
