package protocol

import (
	"fmt"
	"strings"
)

// SplitFields tokenizes a command line, honoring double quotes so
// object names containing spaces travel as a single field. Inside
// quotes, `\"` and `\\` escape the quote and backslash characters.
func SplitFields(line string) ([]string, error) {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	escaped := false
	hasField := false

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case inQuotes && r == '\\':
			escaped = true
		case r == '"':
			inQuotes = !inQuotes
			hasField = true // empty quotes still produce a field
		case !inQuotes && (r == ' ' || r == '\t'):
			if hasField {
				fields = append(fields, cur.String())
				cur.Reset()
				hasField = false
			}
		default:
			cur.WriteRune(r)
			hasField = true
		}
	}

	if inQuotes || escaped {
		return nil, fmt.Errorf("unterminated quote")
	}
	if hasField {
		fields = append(fields, cur.String())
	}
	return fields, nil
}

// QuoteField wraps a field in double quotes when it would otherwise
// split, escaping embedded quotes and backslashes. Plain fields pass
// through unchanged so the common case stays readable on the wire.
func QuoteField(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"\\") {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}
