package aggregates

import (
	"context"
	"errors"
	"testing"

	domainagg "github.com/yungbote/famspace-backend/internal/domain/aggregates"
	"github.com/yungbote/famspace-backend/internal/platform/dbctx"
)

func TestExecuteWriteStatuses(t *testing.T) {
	cases := []struct {
		name      string
		body      error
		want      domainagg.ErrorCode
		status    string
		conflicts int
	}{
		{name: "success", status: "success"},
		{name: "invariant", body: coded(domainagg.CodeInvariantViolation, "level beyond max"), want: domainagg.CodeInvariantViolation, status: "invariant_violation"},
		{name: "conflict", body: conflictf("plant moved on"), want: domainagg.CodeConflict, status: "conflict", conflicts: 1},
		{name: "plain error", body: errors.New("disk I/O error"), want: domainagg.CodeInternal, status: "internal"},
		{name: "deadline", body: context.DeadlineExceeded, want: domainagg.CodeRetryable, status: "retryable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hooks := &spyHooks{}
			err := executeWrite(context.Background(), BaseDeps{
				Runner: &spyTxRunner{},
				Hooks:  hooks,
			}, "Growth.Plant.Test", func(dbctx.Context) error { return tc.body })

			if tc.want == "" && err != nil {
				t.Fatalf("err: want=nil got=%v", err)
			}
			if tc.want != "" && !domainagg.IsCode(err, tc.want) {
				t.Fatalf("code: want=%s got=%s (%v)", tc.want, domainagg.CodeOf(err), err)
			}
			if len(hooks.Writes) != 1 || hooks.Writes[0].Status != tc.status {
				t.Fatalf("writes: want one with status=%s got=%+v", tc.status, hooks.Writes)
			}
			if len(hooks.Conflicts) != tc.conflicts {
				t.Fatalf("conflicts: want=%d got=%d", tc.conflicts, len(hooks.Conflicts))
			}
		})
	}
}

func TestExecuteWriteAttributesOp(t *testing.T) {
	err := executeWrite(context.Background(), BaseDeps{Runner: &spyTxRunner{}}, "Growth.Plant.ClaimReward",
		func(dbctx.Context) error { return conflictf("already claimed") })
	var aggErr *domainagg.Error
	if !errors.As(err, &aggErr) {
		t.Fatalf("want *aggregates.Error, got %T", err)
	}
	if aggErr.Op != "Growth.Plant.ClaimReward" {
		t.Fatalf("op: want=Growth.Plant.ClaimReward got=%q", aggErr.Op)
	}
}

func TestExecuteWriteRunsOnceOnRetryable(t *testing.T) {
	hooks := &spyHooks{}
	runner := &spyTxRunner{errs: []error{errors.New("database is locked")}}
	called := 0
	err := executeWrite(context.Background(), BaseDeps{Runner: runner, Hooks: hooks}, "Growth.Plant.SubmitActivity",
		func(dbctx.Context) error { called++; return nil })
	if !domainagg.Retryable(err) {
		t.Fatalf("want retryable, got %v", err)
	}
	if runner.calls != 1 || called != 0 {
		t.Fatalf("transactions=%d body runs=%d; want 1 and 0", runner.calls, called)
	}
	if len(hooks.Retries) != 1 || hooks.Retries[0] != "Growth.Plant.SubmitActivity" {
		t.Fatalf("retryable outcomes: want=[Growth.Plant.SubmitActivity] got=%v", hooks.Retries)
	}
	if len(hooks.Writes) != 1 || hooks.Writes[0].Status != "retryable" {
		t.Fatalf("write events: %+v", hooks.Writes)
	}

	// The caller's second call is a fresh write.
	if err := executeWrite(context.Background(), BaseDeps{Runner: runner, Hooks: hooks}, "Growth.Plant.SubmitActivity",
		func(dbctx.Context) error { called++; return nil }); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if runner.calls != 2 || called != 1 || len(hooks.Retries) != 1 {
		t.Fatalf("after second call: transactions=%d body runs=%d retries=%d", runner.calls, called, len(hooks.Retries))
	}
}

func TestExecuteWriteDoesNotCountConflictsAsRetryable(t *testing.T) {
	hooks := &spyHooks{}
	runner := &spyTxRunner{}
	_ = executeWrite(context.Background(), BaseDeps{Runner: runner, Hooks: hooks}, "Growth.Plant.Create",
		func(dbctx.Context) error { return conflictf("plant already growing") })
	if runner.calls != 1 || len(hooks.Retries) != 0 {
		t.Fatalf("calls=%d retries=%d; want 1 and 0", runner.calls, len(hooks.Retries))
	}
}

// spyTxRunner fails its first len(errs) transactions with those errors.
type spyTxRunner struct {
	errs  []error
	calls int
}

func (r *spyTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.calls++
	if r.calls <= len(r.errs) {
		return r.errs[r.calls-1]
	}
	return fn(dbctx.Context{Ctx: ctx})
}

type spyHooks struct {
	Writes    []WriteEvent
	Conflicts []string
	Retries   []string
}

func (h *spyHooks) ObserveWrite(ev WriteEvent) { h.Writes = append(h.Writes, ev) }
func (h *spyHooks) IncConflict(op string)      { h.Conflicts = append(h.Conflicts, op) }
func (h *spyHooks) IncRetry(op string)         { h.Retries = append(h.Retries, op) }
