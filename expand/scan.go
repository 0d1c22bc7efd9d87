package expand

import "strings"

// skipNonSQL returns the end of the quoted string, quoted identifier, or
// comment starting at i, or i when position i starts none of those.
// Unterminated regions run to the end of the input; the expander is not a
// validator and leaves broken SQL for the driver to reject.
func skipNonSQL(s string, i int) int {
	switch s[i] {
	case '\'':
		return skipQuoted(s, i+1, '\'')
	case '"':
		return skipQuoted(s, i+1, '"')
	case '`':
		return skipQuoted(s, i+1, '`')
	case '-':
		if strings.HasPrefix(s[i:], "--") {
			return skipLine(s, i+2)
		}
	case '/':
		if strings.HasPrefix(s[i:], "/*") {
			if end := strings.Index(s[i+2:], "*/"); end >= 0 {
				return i + 2 + end + 2
			}
			return len(s)
		}
	case '$':
		if j, ok := skipDollarQuoted(s, i); ok {
			return j
		}
	}
	return i
}

// skipQuoted scans past a quoted region opened before i, honoring doubled
// quote characters as escapes.
func skipQuoted(s string, i int, q byte) int {
	for i < len(s) {
		if s[i] == q {
			if i+1 < len(s) && s[i+1] == q {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return len(s)
}

func skipLine(s string, i int) int {
	for i < len(s) {
		if s[i] == '\n' {
			return i + 1
		}
		i++
	}
	return len(s)
}

// skipDollarQuoted handles PostgreSQL $$...$$ and $tag$...$tag$ regions.
func skipDollarQuoted(s string, i int) (int, bool) {
	j := i + 1
	for j < len(s) && s[j] != '$' && isIdentByte(s[j]) {
		j++
	}
	if j >= len(s) || s[j] != '$' {
		return 0, false
	}
	tag := s[i : j+1]
	if end := strings.Index(s[j+1:], tag); end >= 0 {
		return j + 1 + end + len(tag), true
	}
	return len(s), true
}
