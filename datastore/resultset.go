package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"

	"github.com/handydb/handydb/conn"
	"github.com/handydb/handydb/expand"
	"github.com/handydb/handydb/logging"
)

// countHeadRe spots queries that already are a count, so Count can read the
// cursor's own single value instead of issuing a second query.
var countHeadRe = regexp.MustCompile(`(?is)^\s*select\s+count\(\s*\*\s*\)`)

// ResultSet wraps one executed statement: the live cursor for selects, the
// affected-row count for writes, and the error state for failed executions.
// It retains the expanded SQL and binds for diagnostics and for the count
// fallback query. A ResultSet is not safe for concurrent use.
type ResultSet struct {
	kind  Kind
	name  string
	log   *logging.Logger
	q     Querier
	h     *conn.Handle
	style expand.Style

	// baseSQL/baseBinds are the expanded statement before pagination, in ?
	// placeholder style; the count fallback wraps these so it always counts
	// the full, unpaged result.
	baseSQL   string
	baseBinds []any
	execSQL   string

	rows     *sql.Rows
	cols     []string
	colIdx   map[string]int
	cur      *Row
	rowsDone bool
	closed   bool

	err error

	affected    int64
	affectedErr error

	total *int64

	pageActive    bool
	page, perPage int
}

// OK reports whether execution succeeded. It is false exactly when Err is
// non-nil.
func (rs *ResultSet) OK() bool { return rs.err == nil }

// Err returns the driver-reported execution error, if any.
func (rs *ResultSet) Err() error { return rs.err }

// Kind returns the statement classification.
func (rs *ResultSet) Kind() Kind { return rs.kind }

// SQL returns the statement as sent to the driver.
func (rs *ResultSet) SQL() string { return rs.execSQL }

// Binds returns the flat bind list of the unpaged statement.
func (rs *ResultSet) Binds() []any { return rs.baseBinds }

// Columns returns the cursor's column names, nil for writes.
func (rs *ResultSet) Columns() []string { return rs.cols }

func (rs *ResultSet) setColumns(cols []string) {
	rs.cols = cols
	rs.colIdx = make(map[string]int, len(cols))
	for i, c := range cols {
		rs.colIdx[c] = i
	}
}

// Next advances the cursor one row, refreshing the current row buffer in
// place. It returns false at exhaustion or on a fetch error; check Err to
// tell the two apart.
func (rs *ResultSet) Next() bool {
	if rs.rows == nil || rs.closed || rs.rowsDone || rs.err != nil {
		return false
	}
	if !rs.rows.Next() {
		if err := rs.rows.Err(); err != nil {
			rs.err = err
			rs.log.Error("row fetch failed", err, rs.qc())
		}
		rs.closeRows()
		return false
	}

	if rs.cur == nil {
		rs.cur = &Row{cols: rs.cols, idx: rs.colIdx, vals: make([]any, len(rs.cols))}
	}
	ptrs := make([]any, len(rs.cols))
	for i := range ptrs {
		ptrs[i] = &rs.cur.vals[i]
	}
	if err := rs.rows.Scan(ptrs...); err != nil {
		rs.err = err
		rs.log.Error("row scan failed", err, rs.qc())
		rs.closeRows()
		return false
	}
	return true
}

// Row returns the current row view. The same Row is rewritten by each Next;
// snapshot with Row.Map if you need to keep values across iterations.
func (rs *ResultSet) Row() *Row { return rs.cur }

// NextMap combines Next with snapshotting the current row into a plain
// name→value map. It returns nil at exhaustion.
func (rs *ResultSet) NextMap() map[string]any {
	if !rs.Next() {
		return nil
	}
	return rs.cur.Map()
}

// All eagerly fetches every remaining row as an independent Row and closes
// the cursor. A fetch error during the bulk read is returned.
func (rs *ResultSet) All() ([]*Row, error) {
	if rs.rows == nil {
		if rs.err != nil {
			return nil, rs.err
		}
		return nil, ErrNoCursor
	}
	var out []*Row
	for rs.Next() {
		out = append(out, rs.cur.clone())
	}
	if rs.err != nil {
		return nil, rs.err
	}
	return out, nil
}

// Close releases the cursor and, for uncached connections, the underlying
// handle. Exhausting the cursor closes only the cursor: the handle stays
// usable for Count until Close. Safe to call more than once.
func (rs *ResultSet) Close() error {
	if rs.closed {
		return nil
	}
	rs.closed = true
	first := rs.closeRows()
	if rs.h != nil {
		if err := rs.h.Release(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (rs *ResultSet) closeRows() error {
	if rs.rows == nil || rs.rowsDone {
		return nil
	}
	rs.rowsDone = true
	return rs.rows.Close()
}

// Count returns the total number of rows the unpaged statement produces.
// Writes report the driver's affected-row count. A select whose text
// already is a count yields its own cursor value; any other select runs one
// memoized "select count(*) from ( ... ) derived" query with the same binds
// against the same connection.
func (rs *ResultSet) Count(ctx context.Context) (int64, error) {
	if rs.total != nil {
		return *rs.total, nil
	}
	if rs.err != nil {
		return 0, rs.err
	}

	if rs.kind != KindSelect {
		if rs.affectedErr != nil {
			return 0, rs.affectedErr
		}
		rs.total = &rs.affected
		return rs.affected, nil
	}

	if countHeadRe.MatchString(rs.baseSQL) && rs.cur == nil && !rs.closed && !rs.rowsDone {
		if rs.Next() {
			n, err := toInt64(rs.cur.vals[0])
			if err != nil {
				return 0, err
			}
			rs.total = &n
			return n, nil
		}
		if rs.err != nil {
			return 0, rs.err
		}
	}

	if expand.HasTopLevelLimit(rs.baseSQL) {
		rs.log.Warn("counting a query with its own limit clause", rs.qc())
	}

	countSQL := expand.Rewrite("select count(*) from ( "+rs.baseSQL+" ) derived", rs.style)
	var n int64
	row := rs.q.QueryRowContext(ctx, countSQL, rs.baseBinds...)
	if err := row.Scan(&n); err != nil {
		rs.log.Error("count query failed", err, logging.QueryContext{SQL: countSQL, Binds: rs.baseBinds, Name: rs.name})
		return 0, err
	}
	rs.total = &n
	return n, nil
}

// Pager returns the page metadata for this result set, computing the total
// via Count. An unpaged result set reports page 1 with the default size.
func (rs *ResultSet) Pager(ctx context.Context) (*Pager, error) {
	total, err := rs.Count(ctx)
	if err != nil {
		return nil, err
	}
	page, perPage := rs.page, rs.perPage
	if !rs.pageActive {
		page, perPage = 1, DefaultPerPage
	}
	return &Pager{TotalEntries: total, EntriesPerPage: perPage, CurrentPage: page}, nil
}

func (rs *ResultSet) qc() logging.QueryContext {
	return logging.QueryContext{SQL: rs.execSQL, Binds: rs.baseBinds, Name: rs.name}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("datastore: count value %T is not numeric", v)
	}
}

// Row is a view over the result set's current fetch buffer: one ordered
// value slice addressable by position or column name. Writes through Set
// change the in-memory buffer only, never the database. The column set is
// fixed for the result set's lifetime; there is deliberately no way to add
// or remove a column.
type Row struct {
	cols []string
	idx  map[string]int
	vals []any
}

// Columns returns the column names in cursor order.
func (r *Row) Columns() []string { return r.cols }

// Len returns the number of columns.
func (r *Row) Len() int { return len(r.vals) }

// Get returns the value of the named column. Unknown names are an error,
// never a nil.
func (r *Row) Get(col string) (any, error) {
	i, ok := r.idx[col]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnAccess, col)
	}
	return r.vals[i], nil
}

// Set overwrites the named column in the row buffer.
func (r *Row) Set(col string, v any) error {
	i, ok := r.idx[col]
	if !ok {
		return fmt.Errorf("%w: %q", ErrColumnAccess, col)
	}
	r.vals[i] = v
	return nil
}

// Index returns the value at position i in cursor order.
func (r *Row) Index(i int) (any, error) {
	if i < 0 || i >= len(r.vals) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrColumnAccess, i, len(r.vals))
	}
	return r.vals[i], nil
}

// Map snapshots the row into a plain name→value map.
func (r *Row) Map() map[string]any {
	m := make(map[string]any, len(r.cols))
	for i, c := range r.cols {
		m[c] = r.vals[i]
	}
	return m
}

func (r *Row) clone() *Row {
	vals := make([]any, len(r.vals))
	copy(vals, r.vals)
	return &Row{cols: r.cols, idx: r.idx, vals: vals}
}
