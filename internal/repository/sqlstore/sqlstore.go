package sqlstore

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/garnizeh/terapia/internal/db"
	"github.com/garnizeh/terapia/pkg/repository"
)

// Store implements the repository interfaces on top of the internal DB wrapper.
// Queries are written with '?' placeholders; the wrapper rebinds them for Postgres.
type Store struct {
	conn   *db.DB
	logger *slog.Logger
}

// Ensure Store implements the public interfaces.
var _ repository.ProfileRepo = (*Store)(nil)
var _ repository.SpecialistRepo = (*Store)(nil)
var _ repository.SessionRepo = (*Store)(nil)
var _ repository.PaymentRepo = (*Store)(nil)
var _ repository.MessageRepo = (*Store)(nil)
var _ repository.NotificationRepo = (*Store)(nil)
var _ repository.AvailabilityRepo = (*Store)(nil)
var _ repository.JobRepo = (*Store)(nil)

func New(conn *db.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{conn: conn, logger: logger}
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toMillis(*t)
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// encodeList stores string arrays as JSON text so both drivers share one column type.
func encodeList(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeList(s string) []string {
	out := []string{}
	if s == "" {
		return out
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

// inClause returns "?,?,?" for n placeholders and the ids as query args.
func inClause(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}

// likePattern escapes LIKE wildcards and wraps the lowercased term in '%'.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}
