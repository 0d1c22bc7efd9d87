package expand

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/handydb/handydb/proptest"
)

func TestExpandScalars(t *testing.T) {
	tests := []struct {
		name      string
		sql       string
		binds     []any
		wantSQL   string
		wantBinds []any
	}{
		{
			name:      "no placeholders",
			sql:       "select 1",
			wantSQL:   "select 1",
			wantBinds: []any{},
		},
		{
			name:      "single scalar",
			sql:       "select * from users where id = ?",
			binds:     []any{42},
			wantSQL:   "select * from users where id = ?",
			wantBinds: []any{42},
		},
		{
			name:      "scalars keep source order",
			sql:       "select * from t where a = ? and b = ? and c = ?",
			binds:     []any{1, "two", 3.0},
			wantSQL:   "select * from t where a = ? and b = ? and c = ?",
			wantBinds: []any{1, "two", 3.0},
		},
		{
			name:      "question mark inside string literal is not a placeholder",
			sql:       "select * from t where a = '?' and b = ?",
			binds:     []any{7},
			wantSQL:   "select * from t where a = '?' and b = ?",
			wantBinds: []any{7},
		},
		{
			name:      "question mark inside line comment",
			sql:       "select * from t -- what?\nwhere a = ?",
			binds:     []any{1},
			wantSQL:   "select * from t -- what?\nwhere a = ?",
			wantBinds: []any{1},
		},
		{
			name:      "question mark inside block comment",
			sql:       "select /* ??? */ * from t where a = ?",
			binds:     []any{1},
			wantSQL:   "select /* ??? */ * from t where a = ?",
			wantBinds: []any{1},
		},
		{
			name:      "doubled quote escape",
			sql:       "select 'it''s a ?' from t where a = ?",
			binds:     []any{1},
			wantSQL:   "select 'it''s a ?' from t where a = ?",
			wantBinds: []any{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSQL, gotBinds, err := Expand(tt.sql, tt.binds...)
			if err != nil {
				t.Fatalf("Expand() error = %v", err)
			}
			if gotSQL != tt.wantSQL {
				t.Errorf("sql = %q, want %q", gotSQL, tt.wantSQL)
			}
			if !reflect.DeepEqual(gotBinds, tt.wantBinds) {
				t.Errorf("binds = %v, want %v", gotBinds, tt.wantBinds)
			}
		})
	}
}

func TestExpandList(t *testing.T) {
	gotSQL, gotBinds, err := Expand(
		"select * from users where email in ???",
		List{"a@x.com", "b@x.com"},
	)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if want := "select * from users where email in (?,?)"; gotSQL != want {
		t.Errorf("sql = %q, want %q", gotSQL, want)
	}
	if want := []any{"a@x.com", "b@x.com"}; !reflect.DeepEqual(gotBinds, want) {
		t.Errorf("binds = %v, want %v", gotBinds, want)
	}
}

func TestExpandSet(t *testing.T) {
	gotSQL, gotBinds, err := Expand(
		"update users set ??? where id = ?",
		Set{{"name", "Bob"}}, 42,
	)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if want := "update users set name = ? where id = ?"; gotSQL != want {
		t.Errorf("sql = %q, want %q", gotSQL, want)
	}
	if want := []any{"Bob", 42}; !reflect.DeepEqual(gotBinds, want) {
		t.Errorf("binds = %v, want %v", gotBinds, want)
	}
}

func TestExpandSetOrder(t *testing.T) {
	// Set order is the caller's order, not alphabetical.
	gotSQL, gotBinds, err := Expand(
		"update t set ???",
		Set{{"zeta", 1}, {"alpha", 2}, {"mid", 3}},
	)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if want := "update t set zeta = ?, alpha = ?, mid = ?"; gotSQL != want {
		t.Errorf("sql = %q, want %q", gotSQL, want)
	}
	if want := []any{1, 2, 3}; !reflect.DeepEqual(gotBinds, want) {
		t.Errorf("binds = %v, want %v", gotBinds, want)
	}
}

func TestExpandRows(t *testing.T) {
	gotSQL, gotBinds, err := Expand(
		"insert into users ???",
		Rows{
			{{"name", "Ann"}, {"email", "ann@x.com"}},
			{{"email", "bob@x.com"}, {"name", "Bob"}}, // reordered, same key set
		},
	)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if want := "insert into users (name,email) values (?,?),(?,?)"; gotSQL != want {
		t.Errorf("sql = %q, want %q", gotSQL, want)
	}
	// Values follow the first row's column order for every row.
	if want := []any{"Ann", "ann@x.com", "Bob", "bob@x.com"}; !reflect.DeepEqual(gotBinds, want) {
		t.Errorf("binds = %v, want %v", gotBinds, want)
	}
}

func TestExpandErrors(t *testing.T) {
	tests := []struct {
		name  string
		sql   string
		binds []any
		want  error
	}{
		{
			name: "more placeholders than binds",
			sql:  "select * from t where a = ? and b = ?",
			binds: []any{1},
			want: ErrBindCount,
		},
		{
			name:  "more binds than placeholders",
			sql:   "select * from t where a = ?",
			binds: []any{1, 2},
			want:  ErrBindCount,
		},
		{
			name:  "triple placeholder without bind",
			sql:   "select * from t where a in ???",
			binds: nil,
			want:  ErrBindCount,
		},
		{
			name:  "empty list",
			sql:   "select * from t where a in ???",
			binds: []any{List{}},
			want:  ErrEmptyList,
		},
		{
			name:  "empty set",
			sql:   "update t set ???",
			binds: []any{Set{}},
			want:  ErrEmptyList,
		},
		{
			name:  "empty rows",
			sql:   "insert into t ???",
			binds: []any{Rows{}},
			want:  ErrEmptyList,
		},
		{
			name: "ragged rows missing column",
			sql:  "insert into t ???",
			binds: []any{Rows{
				{{"a", 1}, {"b", 2}},
				{{"a", 3}},
			}},
			want: ErrRaggedRows,
		},
		{
			name: "ragged rows extra column",
			sql:  "insert into t ???",
			binds: []any{Rows{
				{{"a", 1}},
				{{"a", 2}, {"b", 3}},
			}},
			want: ErrRaggedRows,
		},
		{
			name: "duplicate column in first row",
			sql:  "insert into t ???",
			binds: []any{Rows{
				{{"a", 1}, {"a", 2}},
			}},
			want: ErrRaggedRows,
		},
		{
			name:  "scalar bind for triple placeholder",
			sql:   "select * from t where a in ???",
			binds: []any{42},
			want:  ErrBindKind,
		},
		{
			name:  "list bind for scalar placeholder",
			sql:   "select * from t where a = ?",
			binds: []any{List{1, 2}},
			want:  ErrBindKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Expand(tt.sql, tt.binds...)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expand() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExpandDisambiguatesByBindType(t *testing.T) {
	// The bind's runtime type decides the expansion, never the SQL keywords:
	// a Set after "insert into" still becomes col = ? fragments.
	gotSQL, _, err := Expand("insert into t set ???", Set{{"a", 1}})
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if want := "insert into t set a = ?"; gotSQL != want {
		t.Errorf("sql = %q, want %q", gotSQL, want)
	}
}

func TestRewrite(t *testing.T) {
	tests := []struct {
		name  string
		sql   string
		style Style
		want  string
	}{
		{
			name:  "question style is identity",
			sql:   "select * from t where a = ? and b in (?,?)",
			style: Question,
			want:  "select * from t where a = ? and b in (?,?)",
		},
		{
			name:  "dollar numbering",
			sql:   "select * from t where a = ? and b in (?,?)",
			style: Dollar,
			want:  "select * from t where a = $1 and b in ($2,$3)",
		},
		{
			name:  "literals untouched",
			sql:   "select '?' from t where a = ?",
			style: Dollar,
			want:  "select '?' from t where a = $1",
		},
		{
			name:  "dollar quoted body untouched",
			sql:   "select $tag$ ? $tag$ where a = ?",
			style: Dollar,
			want:  "select $tag$ ? $tag$ where a = $1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rewrite(tt.sql, tt.style); got != tt.want {
				t.Errorf("Rewrite() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStyleFor(t *testing.T) {
	if got := StyleFor("postgres"); got != Dollar {
		t.Errorf("StyleFor(postgres) = %v, want Dollar", got)
	}
	if got := StyleFor("mysql"); got != Question {
		t.Errorf("StyleFor(mysql) = %v, want Question", got)
	}
	if got := StyleFor("sqlite"); got != Question {
		t.Errorf("StyleFor(sqlite) = %v, want Question", got)
	}
}

func TestHasTopLevelLimit(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want bool
	}{
		{"plain limit", "select * from t limit 10", true},
		{"limit with offset", "select * from t LIMIT 5 OFFSET 10", true},
		{"no limit", "select * from t", false},
		{"limit only in subquery", "select * from (select * from t limit 5) d", false},
		{"limit in string literal", "select 'limit 5' from t", false},
		{"limit as identifier prefix", "select limitless from t", false},
		{"limit in comment", "select * from t -- limit 5", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasTopLevelLimit(tt.sql); got != tt.want {
				t.Errorf("HasTopLevelLimit(%q) = %v, want %v", tt.sql, got, tt.want)
			}
		})
	}
}

func TestExpandScalarProperty(t *testing.T) {
	proptest.Check(t, "n scalars expand to n placeholders in order", 100, func(g *proptest.Generator) bool {
		n := g.IntRange(1, 12)
		var sb strings.Builder
		sb.WriteString("select * from t where 1=1")
		binds := make([]any, n)
		for i := 0; i < n; i++ {
			sb.WriteString(" and ")
			sb.WriteString(g.Ident())
			sb.WriteString(" = ?")
			binds[i] = g.ScalarValue()
		}
		gotSQL, gotBinds, err := Expand(sb.String(), binds...)
		if err != nil {
			return false
		}
		return strings.Count(gotSQL, "?") == n && reflect.DeepEqual(gotBinds, binds)
	})
}

func TestExpandListProperty(t *testing.T) {
	proptest.Check(t, "list of k values expands to k placeholders", 100, func(g *proptest.Generator) bool {
		k := g.IntRange(1, 10)
		list := make(List, k)
		for i := range list {
			list[i] = g.ScalarValue()
		}
		gotSQL, gotBinds, err := Expand("select * from t where a in ???", list)
		if err != nil {
			return false
		}
		if len(gotBinds) != k {
			return false
		}
		group := "(" + strings.Repeat("?,", k-1) + "?)"
		return strings.HasSuffix(gotSQL, "in "+group)
	})
}
