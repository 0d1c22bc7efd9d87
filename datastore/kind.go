package datastore

import "strings"

// Kind classifies a statement by its leading SQL keyword.
type Kind int

const (
	KindSelect Kind = iota
	KindInsert
	KindUpdate
	KindDelete
	KindOther
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "select"
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	default:
		return "other"
	}
}

// Write reports whether the kind routes to the primary. Unrecognized leading
// keywords count as writes so DDL and the like never land on a reader.
func (k Kind) Write() bool { return k != KindSelect }

// Classify inspects the leading keyword of a statement. Leading whitespace
// and comments are skipped first.
func Classify(sqlText string) Kind {
	rest := skipLeading(sqlText)
	end := 0
	for end < len(rest) && isLetter(rest[end]) {
		end++
	}
	switch strings.ToLower(rest[:end]) {
	case "select":
		return KindSelect
	case "insert":
		return KindInsert
	case "update":
		return KindUpdate
	case "delete":
		return KindDelete
	default:
		return KindOther
	}
}

// skipLeading advances past whitespace and -- or /* */ comments.
func skipLeading(s string) string {
	for {
		s = strings.TrimLeft(s, " \t\r\n")
		switch {
		case strings.HasPrefix(s, "--"):
			if nl := strings.IndexByte(s, '\n'); nl >= 0 {
				s = s[nl+1:]
				continue
			}
			return ""
		case strings.HasPrefix(s, "/*"):
			if end := strings.Index(s, "*/"); end >= 0 {
				s = s[end+2:]
				continue
			}
			return ""
		}
		return s
	}
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
