package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/famspace-backend/internal/platform/dbctx"
)

func TestInjectedTxRunnerCounts(t *testing.T) {
	bodyErr := errors.New("body failed")
	commitErr := errors.New("commit failed")
	beginErr := errors.New("begin failed")

	cases := []struct {
		name                      string
		runner                    *InjectedTxRunner
		body                      error
		wantErr                   error
		begin, commit, rollback   int
		wantBodyRan               bool
	}{
		{name: "commit", runner: &InjectedTxRunner{}, begin: 1, commit: 1, wantBodyRan: true},
		{name: "body error", runner: &InjectedTxRunner{}, body: bodyErr, wantErr: bodyErr, begin: 1, rollback: 1, wantBodyRan: true},
		{name: "commit error", runner: &InjectedTxRunner{FailCommit: commitErr}, wantErr: commitErr, begin: 1, rollback: 1, wantBodyRan: true},
		{name: "begin error", runner: &InjectedTxRunner{FailBegin: beginErr}, wantErr: beginErr, begin: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ran := false
			err := tc.runner.InTx(context.Background(), func(dbc dbctx.Context) error {
				ran = true
				if dbc.Tx != nil {
					t.Fatalf("injected runner must not hand out a tx")
				}
				return tc.body
			})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err: want=%v got=%v", tc.wantErr, err)
			}
			if ran != tc.wantBodyRan {
				t.Fatalf("body ran: want=%v got=%v", tc.wantBodyRan, ran)
			}
			b, c, r := tc.runner.Counts()
			if b != tc.begin || c != tc.commit || r != tc.rollback {
				t.Fatalf("counts: want=%d/%d/%d got=%d/%d/%d", tc.begin, tc.commit, tc.rollback, b, c, r)
			}
		})
	}
}

func TestInjectedTxRunnerFailNextCommit(t *testing.T) {
	r := &InjectedTxRunner{}
	if err := r.InTx(context.Background(), nil); err != nil {
		t.Fatalf("first: %v", err)
	}
	lost := errors.New("commit lost")
	r.FailNextCommit(lost)
	if err := r.InTx(context.Background(), func(dbctx.Context) error { return nil }); !errors.Is(err, lost) {
		t.Fatalf("second: want=%v got=%v", lost, err)
	}
	if b, c, rb := r.Counts(); b != 2 || c != 1 || rb != 1 {
		t.Fatalf("counts: want=2/1/1 got=%d/%d/%d", b, c, rb)
	}
}
