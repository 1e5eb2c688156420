package storage

import (
	"database/sql"
	"strconv"
	"strings"
)

// Dialect captures the differences between the supported SQL backends.
// Queries are written with '?' placeholders and rebound per dialect.
type Dialect struct {
	Name       string
	DriverName string
	// positional switches '?' to '$n'.
	positional bool
	// snapshot is the transaction used for consistent statement reads.
	snapshot *sql.TxOptions
}

var (
	SQLite = Dialect{
		Name:       "sqlite",
		DriverName: "sqlite",
	}
	Postgres = Dialect{
		Name:       "postgres",
		DriverName: "pgx",
		positional: true,
		snapshot:   &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
	}
)

// Rebind rewrites '?' placeholders for the dialect. Quoted literals are
// left untouched.
func (d Dialect) Rebind(query string) string {
	if !d.positional {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
