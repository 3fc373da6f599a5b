package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-resources/core"
	"github.com/uptrace/bun"
)

// Coordinator opens one bun transaction per handle.
type Coordinator struct {
	db     *bun.DB
	opts   *sql.TxOptions
	logger core.Logger
}

type CoordinatorOption func(*Coordinator)

func WithTxOptions(opts *sql.TxOptions) CoordinatorOption {
	return func(c *Coordinator) {
		c.opts = opts
	}
}

func WithCoordinatorLogger(logger core.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func NewCoordinator(db *bun.DB, opts ...CoordinatorOption) *Coordinator {
	coordinator := &Coordinator{db: db}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(coordinator)
	}
	coordinator.logger = glog.Ensure(coordinator.logger)
	return coordinator
}

func (c *Coordinator) Begin(ctx context.Context) (core.Transaction, error) {
	if c == nil || c.db == nil {
		return nil, core.InternalError("sqlstore: transaction coordinator is not configured")
	}
	tx, err := c.db.BeginTx(ctx, c.opts)
	if err != nil {
		return nil, classifyError(err, "transaction")
	}
	return &Tx{tx: tx, state: core.TxOpen, logger: c.logger}, nil
}

// Tx is the sqlstore transaction handle.
type Tx struct {
	tx     bun.Tx
	state  core.TxState
	logger core.Logger
}

// BunTx exposes the underlying transaction to providers.
func (t *Tx) BunTx() bun.Tx {
	return t.tx
}

func (t *Tx) State() core.TxState {
	if t == nil {
		return core.TxAborted
	}
	return t.state
}

func (t *Tx) Commit(ctx context.Context) error {
	if t == nil || t.state != core.TxOpen {
		return core.TransactionResolvedError()
	}
	if err := ctx.Err(); err != nil {
		t.rollback()
		return err
	}
	if err := t.tx.Commit(); err != nil {
		t.state = core.TxAborted
		return classifyError(err, "transaction")
	}
	t.state = core.TxCommitted
	return nil
}

func (t *Tx) Abort(context.Context) error {
	if t == nil || t.state != core.TxOpen {
		return core.TransactionResolvedError()
	}
	return t.rollback()
}

func (t *Tx) Release(context.Context) {
	if t == nil || t.state != core.TxOpen {
		return
	}
	if err := t.rollback(); err != nil {
		t.logger.Warn("sqlstore release rollback failed", "error", err)
	}
}

func (t *Tx) rollback() error {
	t.state = core.TxAborted
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func openTx(txn core.Transaction) (bun.Tx, error) {
	holder, ok := txn.(interface{ BunTx() bun.Tx })
	if !ok || txn == nil {
		return bun.Tx{}, core.InternalError("sqlstore: transaction does not belong to a sql coordinator")
	}
	if txn.State() != core.TxOpen {
		return bun.Tx{}, core.TransactionResolvedError()
	}
	return holder.BunTx(), nil
}
