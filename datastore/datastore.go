// Package datastore is the execution layer: it classifies statements,
// expands placeholders, routes to a primary or reader endpoint, applies
// pagination, and wraps driver cursors in lazy result sets.
//
// Fatal conditions (bad placeholders, unknown servers, failed connects)
// come back as returned errors before any SQL reaches a driver. Ordinary
// SQL failures do not: they ride inside the returned ResultSet, so caller
// control flow stays uniform around rs.OK().
package datastore

import (
	"context"
	"database/sql"

	"github.com/handydb/handydb/config"
	"github.com/handydb/handydb/conn"
	"github.com/handydb/handydb/expand"
	"github.com/handydb/handydb/logging"
	"github.com/handydb/handydb/route"
)

// DefaultPerPage is the page size used when pagination is requested without
// an explicit per_page.
const DefaultPerPage = 25

// Options is the per-call configuration. Pagination activates only when
// Page or PerPage is set; the other half then defaults (page 1, 25 rows).
type Options struct {
	Page    int
	PerPage int

	// Server names a specific reader for this query, overriding routing.
	Server string

	// Name labels the query in diagnostics.
	Name string
}

func (o Options) paginated() bool { return o.Page > 0 || o.PerPage > 0 }

func (o Options) pageBounds() (page, perPage int) {
	page, perPage = o.Page, o.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	return page, perPage
}

// Querier is the slice of database/sql both *sql.DB and *sql.Tx satisfy.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// Datastore executes raw SQL against one resolved datastore configuration.
// It is intended for a single caller goroutine; run independent instances
// for concurrent work.
type Datastore struct {
	cfg *config.Datastore
	mgr *conn.Manager
	log *logging.Logger
	tx  *Tx
}

// Option configures a Datastore at construction.
type Option func(*Datastore)

// WithLogger sets the logger instance. The default logs JSON to stderr.
func WithLogger(l *logging.Logger) Option {
	return func(d *Datastore) { d.log = l }
}

// WithManager substitutes the connection manager, mainly for tests.
func WithManager(m *conn.Manager) Option {
	return func(d *Datastore) { d.mgr = m }
}

// New builds a datastore over a resolved configuration.
func New(cfg *config.Datastore, opts ...Option) *Datastore {
	d := &Datastore{cfg: cfg}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logging.Default()
	}
	if d.mgr == nil {
		d.mgr = conn.NewManager(cfg)
	}
	return d
}

// Config returns the datastore's resolved configuration.
func (d *Datastore) Config() *config.Datastore { return d.cfg }

// Execute runs one statement. The returned error is non-nil only for fatal
// conditions caught before execution; driver-reported SQL errors set the
// ResultSet's error state instead. While a transaction is open, every
// statement runs inside it on the primary.
func (d *Datastore) Execute(ctx context.Context, opts Options, sqlText string, binds ...any) (*ResultSet, error) {
	if d.tx != nil && !d.tx.done {
		return d.tx.Execute(ctx, opts, sqlText, binds...)
	}

	kind := Classify(sqlText)
	qc := logging.QueryContext{SQL: sqlText, Binds: binds, Name: opts.Name}

	expanded, flat, err := expand.Expand(sqlText, binds...)
	if err != nil {
		d.log.Error("placeholder expansion failed", err, qc)
		return nil, err
	}

	name, srv, err := route.Select(opts.Server, kind.Write(), d.cfg)
	if err != nil {
		d.log.Error("server selection failed", err, qc)
		return nil, err
	}

	h, err := d.mgr.Get(ctx, name, srv)
	if err != nil {
		return nil, d.log.Critical("connect failed", err, qc)
	}

	return d.run(ctx, h.DB(), h, expand.StyleFor(srv.Driver), kind, opts, expanded, flat), nil
}

// Close closes all cached connections. Open uncached result sets keep their
// own handles and close them independently.
func (d *Datastore) Close() error {
	return d.mgr.Close()
}

// run executes an already expanded and routed statement. q is the querier
// to execute on; h is the owning handle for release/statement-cache
// purposes, nil when running inside a transaction.
func (d *Datastore) run(ctx context.Context, q Querier, h *conn.Handle, style expand.Style, kind Kind, opts Options, expanded string, flat []any) *ResultSet {
	rs := &ResultSet{
		kind:      kind,
		name:      opts.Name,
		log:       d.log,
		q:         q,
		style:     style,
		baseSQL:   expanded,
		baseBinds: flat,
	}

	execSQL, execBinds := expanded, flat
	if kind == KindSelect && opts.paginated() {
		page, perPage := opts.pageBounds()
		rs.pageActive, rs.page, rs.perPage = true, page, perPage
		execSQL += " limit ? offset ?"
		execBinds = append(append(make([]any, 0, len(flat)+2), flat...), perPage, (page-1)*perPage)
	}
	final := expand.Rewrite(execSQL, style)
	rs.execSQL = final

	qc := logging.QueryContext{SQL: final, Binds: execBinds, Name: opts.Name}
	d.log.Debug("executing "+kind.String(), qc)

	if kind == KindSelect {
		rows, err := d.query(ctx, q, h, final, execBinds)
		if err != nil {
			rs.err = err
			d.log.Error("query failed", err, qc)
			release(h)
			return rs
		}
		cols, err := rows.Columns()
		if err != nil {
			rs.err = err
			d.log.Error("column metadata unavailable", err, qc)
			rows.Close()
			release(h)
			return rs
		}
		rs.rows = rows
		rs.setColumns(cols)
		rs.h = h
		return rs
	}

	res, err := d.exec(ctx, q, h, final, execBinds)
	release(h)
	if err != nil {
		rs.err = err
		d.log.Error("statement failed", err, qc)
		return rs
	}
	rs.affected, rs.affectedErr = res.RowsAffected()
	return rs
}

func (d *Datastore) query(ctx context.Context, q Querier, h *conn.Handle, sqlText string, binds []any) (*sql.Rows, error) {
	if h != nil && h.CachesStatements() {
		stmt, err := h.Prepare(ctx, sqlText)
		if err != nil {
			return nil, err
		}
		return stmt.QueryContext(ctx, binds...)
	}
	return q.QueryContext(ctx, sqlText, binds...)
}

func (d *Datastore) exec(ctx context.Context, q Querier, h *conn.Handle, sqlText string, binds []any) (sql.Result, error) {
	if h != nil && h.CachesStatements() {
		stmt, err := h.Prepare(ctx, sqlText)
		if err != nil {
			return nil, err
		}
		return stmt.ExecContext(ctx, binds...)
	}
	return q.ExecContext(ctx, sqlText, binds...)
}

func release(h *conn.Handle) {
	if h != nil {
		h.Release()
	}
}
