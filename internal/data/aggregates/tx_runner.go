package aggregates

import (
	"context"
	"time"

	domainagg "github.com/yungbote/famspace-backend/internal/domain/aggregates"
	"github.com/yungbote/famspace-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

// TxRunner opens the transaction a growth write runs in.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type TxOption func(*gormTxRunner)

// WithTxTimeout bounds each transaction, including the wait for the connection.
func WithTxTimeout(d time.Duration) TxOption {
	return func(r *gormTxRunner) { r.timeout = d }
}

type gormTxRunner struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewGormTxRunner(db *gorm.DB, opts ...TxOption) TxRunner {
	r := &gormTxRunner{db: db}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "Growth.tx", "no database configured", nil)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}
