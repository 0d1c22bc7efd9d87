// Package expand rewrites SQL templates containing shorthand placeholders
// into driver-ready SQL plus a flat, ordered bind list.
//
// Two token forms are recognized: a single ? consumes one scalar bind, and a
// triple ??? consumes one List, Set, or Rows bind:
//
//	"id in ???"        List{1, 2, 3}            → "id in (?,?,?)"
//	"set ???"          Set{{"name", "Bob"}}     → "set name = ?"
//	"into users ???"   Rows{{{"a", 1}}}         → "into users (a) values (?)"
//
// Which form a ??? takes is decided only by the runtime type of the next
// unconsumed bind, never by the surrounding SQL keywords. The scanner skips
// quoted strings and comments, so a ? inside a literal is left alone. No
// other SQL validation is performed; the package is dialect-agnostic apart
// from placeholder style rewriting.
package expand

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrBindCount reports more placeholders than binds or vice versa.
	ErrBindCount = errors.New("expand: placeholder/bind count mismatch")

	// ErrEmptyList reports a ??? expansion against zero values. An empty
	// IN-list has no sane SQL rendering, so it fails instead of emitting ().
	ErrEmptyList = errors.New("expand: empty expansion")

	// ErrRaggedRows reports a Rows bind whose rows do not share one column set.
	ErrRaggedRows = errors.New("expand: inconsistent row columns")

	// ErrBindKind reports a bind whose type does not match its placeholder:
	// a scalar reaching ??? or a List/Set/Rows reaching a single ?.
	ErrBindKind = errors.New("expand: bind type does not match placeholder")
)

// Pair is one column/value entry of a Set or Rows bind. Callers supply pairs
// in the order they want columns emitted; that order is preserved.
type Pair struct {
	Col string
	Val any
}

// List expands a ??? into a parenthesized placeholder group, one per value.
type List []any

// Set expands a ??? into "col1 = ?, col2 = ?, ..." in the Set's own order.
type Set []Pair

// Rows expands a ??? into a multi-row insert body:
// "(col1,col2) values (?,?),(?,?)". The column list comes from the first
// row; every later row must carry exactly the same columns (in any order)
// and its values are emitted in the first row's column order.
type Rows []Set

// Expand rewrites sqlText and returns the driver-ready SQL alongside the
// flattened bind values in emission order. Any placeholder/bind mismatch is
// reported before a single byte of SQL could reach a driver.
func Expand(sqlText string, binds ...any) (string, []any, error) {
	var b strings.Builder
	b.Grow(len(sqlText) + 16)
	flat := make([]any, 0, len(binds))
	next := 0

	i := 0
	for i < len(sqlText) {
		if j := skipNonSQL(sqlText, i); j > i {
			b.WriteString(sqlText[i:j])
			i = j
			continue
		}
		if sqlText[i] != '?' {
			b.WriteByte(sqlText[i])
			i++
			continue
		}

		if strings.HasPrefix(sqlText[i:], "???") {
			if next >= len(binds) {
				return "", nil, fmt.Errorf("%w: no bind left for ??? at byte %d", ErrBindCount, i)
			}
			if err := expandTriple(&b, &flat, binds[next]); err != nil {
				return "", nil, err
			}
			next++
			i += 3
			continue
		}

		if next >= len(binds) {
			return "", nil, fmt.Errorf("%w: no bind left for ? at byte %d", ErrBindCount, i)
		}
		switch binds[next].(type) {
		case List, Set, Rows:
			return "", nil, fmt.Errorf("%w: %T supplied for a scalar ?", ErrBindKind, binds[next])
		}
		b.WriteByte('?')
		flat = append(flat, binds[next])
		next++
		i++
	}

	if next != len(binds) {
		return "", nil, fmt.Errorf("%w: %d bind(s) left over", ErrBindCount, len(binds)-next)
	}
	return b.String(), flat, nil
}

func expandTriple(b *strings.Builder, flat *[]any, bind any) error {
	switch v := bind.(type) {
	case List:
		if len(v) == 0 {
			return fmt.Errorf("%w: empty list for ???", ErrEmptyList)
		}
		b.WriteByte('(')
		for i, val := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('?')
			*flat = append(*flat, val)
		}
		b.WriteByte(')')
		return nil

	case Set:
		if len(v) == 0 {
			return fmt.Errorf("%w: empty set for ???", ErrEmptyList)
		}
		for i, p := range v {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.Col)
			b.WriteString(" = ?")
			*flat = append(*flat, p.Val)
		}
		return nil

	case Rows:
		return expandRows(b, flat, v)

	default:
		return fmt.Errorf("%w: %T supplied for ???", ErrBindKind, bind)
	}
}

func expandRows(b *strings.Builder, flat *[]any, rows Rows) error {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return fmt.Errorf("%w: empty rows for ???", ErrEmptyList)
	}

	first := rows[0]
	cols := make([]string, len(first))
	seen := make(map[string]bool, len(first))
	for i, p := range first {
		if seen[p.Col] {
			return fmt.Errorf("%w: duplicate column %q", ErrRaggedRows, p.Col)
		}
		seen[p.Col] = true
		cols[i] = p.Col
	}

	// Validate every row against the first row's column set before emitting
	// anything, so a ragged row never produces partial SQL.
	byCol := make([]map[string]any, len(rows))
	for ri, row := range rows {
		m := make(map[string]any, len(row))
		for _, p := range row {
			if _, dup := m[p.Col]; dup {
				return fmt.Errorf("%w: row %d: duplicate column %q", ErrRaggedRows, ri, p.Col)
			}
			if !seen[p.Col] {
				return fmt.Errorf("%w: row %d: unexpected column %q", ErrRaggedRows, ri, p.Col)
			}
			m[p.Col] = p.Val
		}
		if len(m) != len(cols) {
			return fmt.Errorf("%w: row %d has %d column(s), want %d", ErrRaggedRows, ri, len(m), len(cols))
		}
		byCol[ri] = m
	}

	b.WriteByte('(')
	b.WriteString(strings.Join(cols, ","))
	b.WriteString(") values ")
	for ri, m := range byCol {
		if ri > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		for ci, col := range cols {
			if ci > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('?')
			*flat = append(*flat, m[col])
		}
		b.WriteByte(')')
	}
	return nil
}

// Style selects the positional placeholder form a driver expects.
type Style int

const (
	// Question keeps ? placeholders (MySQL, SQLite).
	Question Style = iota
	// Dollar rewrites to $1, $2, ... (PostgreSQL).
	Dollar
)

// StyleFor picks the placeholder style for a configured driver name.
func StyleFor(driver string) Style {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pgx":
		return Dollar
	default:
		return Question
	}
}

// Rewrite renumbers ? placeholders into the given style. Quoted regions and
// comments are copied through untouched.
func Rewrite(sqlText string, style Style) string {
	if style == Question {
		return sqlText
	}
	out := make([]byte, 0, len(sqlText)+16)
	i, arg := 0, 1
	for i < len(sqlText) {
		if j := skipNonSQL(sqlText, i); j > i {
			out = append(out, sqlText[i:j]...)
			i = j
			continue
		}
		if sqlText[i] == '?' {
			out = append(out, '$')
			out = strconv.AppendInt(out, int64(arg), 10)
			arg++
			i++
			continue
		}
		out = append(out, sqlText[i])
		i++
	}
	return string(out)
}

// HasTopLevelLimit reports whether sqlText contains a LIMIT keyword outside
// of any parenthesized subquery, quoted region, or comment.
func HasTopLevelLimit(sqlText string) bool {
	depth := 0
	i := 0
	for i < len(sqlText) {
		if j := skipNonSQL(sqlText, i); j > i {
			i = j
			continue
		}
		switch sqlText[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		}
		if depth == 0 && isWordAt(sqlText, i, "limit") {
			return true
		}
		i++
	}
	return false
}

// isWordAt reports a case-insensitive keyword match at i with identifier
// boundaries on both sides.
func isWordAt(s string, i int, word string) bool {
	if i+len(word) > len(s) {
		return false
	}
	if !strings.EqualFold(s[i:i+len(word)], word) {
		return false
	}
	if i > 0 && isIdentByte(s[i-1]) {
		return false
	}
	if i+len(word) < len(s) && isIdentByte(s[i+len(word)]) {
		return false
	}
	return true
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
