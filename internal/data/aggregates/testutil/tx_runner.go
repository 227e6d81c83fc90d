package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/famspace-backend/internal/data/aggregates"
	"github.com/yungbote/famspace-backend/internal/platform/dbctx"
)

// InjectedTxRunner runs write bodies outside any transaction so tests can make begin or
// commit fail on demand. Bodies see a nil Tx and repos fall back to their own handle;
// a "rolled back" body's writes therefore stay, which is fine for failure-path tests.
type InjectedTxRunner struct {
	mu sync.Mutex

	FailBegin  error
	FailCommit error

	begins, commits, rollbacks int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.begins++
	failBegin, failCommit := r.FailBegin, r.FailCommit
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	var err error
	if fn != nil {
		err = fn(dbctx.Context{Ctx: ctx})
	}
	if err == nil {
		err = failCommit
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.rollbacks++
		return err
	}
	r.commits++
	return nil
}

// Counts snapshots how many transactions began, committed and rolled back.
func (r *InjectedTxRunner) Counts() (begin, commit, rollback int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.begins, r.commits, r.rollbacks
}

// FailNextCommit makes every following commit report err.
func (r *InjectedTxRunner) FailNextCommit(err error) {
	r.mu.Lock()
	r.FailCommit = err
	r.mu.Unlock()
}
