package aggregates

import (
	"context"
	"time"

	domainagg "github.com/yungbote/famspace-backend/internal/domain/aggregates"
	"github.com/yungbote/famspace-backend/internal/platform/dbctx"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type BaseDeps struct {
	DB     *gorm.DB
	Log    *logger.Logger
	Runner TxRunner
	Hooks  Hooks
	Guard  VersionGuard
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.Guard.db == nil {
		d.Guard = NewVersionGuard(d.DB)
	}
	return d
}

// executeWrite runs fn once in a fresh transaction. A retryable failure is counted and
// returned to the caller, who decides whether to try again. Exactly one WriteEvent is
// reported per call.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	deps = deps.withDefaults()
	if op == "" {
		op = "Growth.write"
	}
	start := time.Now()

	err := MapError(op, deps.Runner.InTx(ctx, fn))
	if domainagg.Retryable(err) {
		deps.Hooks.IncRetry(op)
	}

	status := writeStatus(err)
	if domainagg.IsCode(err, domainagg.CodeConflict) {
		deps.Hooks.IncConflict(op)
	}
	if deps.Log != nil && (status == string(domainagg.CodeInternal) || status == string(domainagg.CodeInvariantViolation)) {
		deps.Log.Error("Aggregate write failed", "op", op, "status", status, "error", err)
	}
	deps.Hooks.ObserveWrite(WriteEvent{Op: op, Status: status, Duration: time.Since(start)})
	return err
}

func writeStatus(err error) string {
	if err == nil {
		return "success"
	}
	if code := domainagg.CodeOf(err); code != "" {
		return string(code)
	}
	return string(classify(err))
}
