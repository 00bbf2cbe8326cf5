package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects SQL syntax differences between backends.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Rebind rewrites ? placeholders into the dialect's form.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// JSONField returns an expression extracting metadata key as text.
func (d Dialect) JSONField(column, key string) string {
	switch d {
	case DialectPostgres:
		return fmt.Sprintf("((%s)::jsonb ->> '%s')", column, key)
	default:
		return fmt.Sprintf("CAST(json_extract(%s, '$.%s') AS TEXT)", column, key)
	}
}

// Placeholders returns n comma separated ? placeholders.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
