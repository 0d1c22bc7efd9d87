package datastore

import (
	"context"
	"database/sql"

	"github.com/handydb/handydb/expand"
	"github.com/handydb/handydb/logging"
	"github.com/handydb/handydb/route"
)

// Tx is a thin delegation around one transaction on the primary endpoint.
// Every statement executed through it (or through the owning datastore
// while it is open) runs inside the transaction; nested transactions are
// not supported. Rows already fetched from a transaction's result sets stay
// readable after Commit or Rollback.
type Tx struct {
	ds      *Datastore
	tx      *sql.Tx
	release func() error
	done    bool
}

// Begin opens a transaction on the primary connection. Begin while another
// transaction is open is ErrNestedTx.
func (d *Datastore) Begin(ctx context.Context) (*Tx, error) {
	if d.tx != nil && !d.tx.done {
		return nil, ErrNestedTx
	}

	h, err := d.mgr.Get(ctx, route.PrimaryName, d.cfg.Primary)
	if err != nil {
		return nil, d.log.Critical("connect failed", err)
	}
	sqlTx, err := h.DB().BeginTx(ctx, nil)
	if err != nil {
		h.Release()
		d.log.Error("begin failed", err)
		return nil, err
	}

	t := &Tx{ds: d, tx: sqlTx, release: h.Release}
	d.tx = t
	return t, nil
}

// Execute runs one statement inside the transaction. Routing is bypassed:
// transactional statements always use the primary connection.
func (t *Tx) Execute(ctx context.Context, opts Options, sqlText string, binds ...any) (*ResultSet, error) {
	if t.done {
		return nil, ErrTxDone
	}

	kind := Classify(sqlText)
	expanded, flat, err := expand.Expand(sqlText, binds...)
	if err != nil {
		t.ds.log.Error("placeholder expansion failed", err,
			logging.QueryContext{SQL: sqlText, Binds: binds, Name: opts.Name})
		return nil, err
	}

	style := expand.StyleFor(t.ds.cfg.Primary.Driver)
	return t.ds.run(ctx, t.tx, nil, style, kind, opts, expanded, flat), nil
}

// Commit commits and releases the pinned connection.
func (t *Tx) Commit() error {
	return t.finish(t.tx.Commit)
}

// Rollback rolls back and releases the pinned connection.
func (t *Tx) Rollback() error {
	return t.finish(t.tx.Rollback)
}

func (t *Tx) finish(op func() error) error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	if t.ds.tx == t {
		t.ds.tx = nil
	}
	err := op()
	if rerr := t.release(); rerr != nil && err == nil {
		err = rerr
	}
	return err
}
