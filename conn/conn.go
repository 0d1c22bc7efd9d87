// Package conn owns live database handles per server endpoint. Handles are
// opened lazily on first use; with connection caching enabled a handle is
// reused for the lifetime of the manager, otherwise each Get opens a fresh
// handle the caller releases when its result set is drained.
package conn

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	// Drivers used by configured endpoints. The mysql driver also registers
	// through the dburl import, listed here with the others for clarity.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/handydb/handydb/config"
	"github.com/handydb/handydb/dburl"
)

// Manager hands out handles per endpoint name. It is safe for use from the
// single caller thread the datastore assumes; the mutex only guards against
// misuse, it does not make open cursors shareable.
type Manager struct {
	cacheConn  bool
	cacheStmts bool
	autoCommit bool

	mu      sync.Mutex
	handles map[string]*Handle
}

// NewManager builds a manager from a datastore's behavior flags.
func NewManager(ds *config.Datastore) *Manager {
	return &Manager{
		cacheConn:  ds.CacheConnection,
		cacheStmts: ds.CacheStatements,
		autoCommit: ds.AutoCommitOn(),
		handles:    map[string]*Handle{},
	}
}

// Get returns a handle for the endpoint, opening it lazily. Connection
// failures are returned immediately; there is no retry.
func (m *Manager) Get(ctx context.Context, name string, srv config.Server) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cacheConn {
		if h, ok := m.handles[name]; ok {
			return h, nil
		}
	}

	h, err := m.open(ctx, name, srv)
	if err != nil {
		return nil, err
	}
	if m.cacheConn {
		m.handles[name] = h
	}
	return h, nil
}

func (m *Manager) open(ctx context.Context, name string, srv config.Server) (*Handle, error) {
	driver, dsn, err := dburl.DSN(srv, m.autoCommit)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("conn: open %s: %w", name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("conn: connect %s: %w", name, err)
	}
	h := &Handle{name: name, db: db, cached: m.cacheConn}
	if m.cacheStmts {
		h.stmts = map[string]*sql.Stmt{}
	}
	return h, nil
}

// Close closes every cached handle. Uncached handles are closed by their
// holders via Release.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var first error
	for name, h := range m.handles {
		if err := h.close(); err != nil && first == nil {
			first = err
		}
		delete(m.handles, name)
	}
	return first
}

// Handle wraps one endpoint's *sql.DB plus its optional prepared-statement
// cache.
type Handle struct {
	name   string
	db     *sql.DB
	cached bool

	stmtMu sync.Mutex
	stmts  map[string]*sql.Stmt // post-expansion SQL → prepared statement
}

// Name returns the endpoint name this handle serves.
func (h *Handle) Name() string { return h.name }

// DB exposes the underlying database handle.
func (h *Handle) DB() *sql.DB { return h.db }

// CachesStatements reports whether this handle keeps prepared statements.
func (h *Handle) CachesStatements() bool { return h.stmts != nil }

// Prepare returns the cached prepared statement for the exact SQL text,
// preparing it on first use. Cached statements live until the handle closes.
// Only meaningful when CachesStatements is true.
func (h *Handle) Prepare(ctx context.Context, sqlText string) (*sql.Stmt, error) {
	h.stmtMu.Lock()
	defer h.stmtMu.Unlock()
	if stmt, ok := h.stmts[sqlText]; ok {
		return stmt, nil
	}
	stmt, err := h.db.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	h.stmts[sqlText] = stmt
	return stmt, nil
}

// Release returns the handle after use. Uncached handles close here; cached
// ones stay open for the manager's lifetime.
func (h *Handle) Release() error {
	if h.cached {
		return nil
	}
	return h.close()
}

func (h *Handle) close() error {
	h.stmtMu.Lock()
	for sqlText, stmt := range h.stmts {
		stmt.Close()
		delete(h.stmts, sqlText)
	}
	h.stmtMu.Unlock()
	return h.db.Close()
}
