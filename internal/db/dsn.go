package db

import (
	"strconv"
	"strings"
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "pgx"
)

// ParseDSN picks a driver from the URL scheme. Postgres URLs are passed through
// untouched; sqlite:// prefixes are stripped and anything else is treated as a
// SQLite path or file: URI.
func ParseDSN(dsn string) (Driver, string) {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DriverPostgres, dsn
	case strings.HasPrefix(lower, "sqlite://"):
		return DriverSQLite, dsn[len("sqlite://"):]
	case dsn == "":
		return DriverSQLite, "terapia.db"
	default:
		return DriverSQLite, dsn
	}
}

// Rebind converts '?' placeholders to $n for Postgres; SQLite queries are
// returned unchanged. Placeholders inside single-quoted literals are kept.
func (db *DB) Rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
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
