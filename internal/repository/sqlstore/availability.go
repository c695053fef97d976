package sqlstore

import (
	"context"
	"fmt"

	"github.com/garnizeh/terapia/internal/db"
	"github.com/garnizeh/terapia/pkg/models"
)

func (r *Store) ListAvailability(ctx context.Context, specialistID string) ([]models.Availability, error) {
	q := `SELECT id, especialista_id, day_of_week, start_time, end_time, is_available, interval_minutes, max_sessions, exceptions, updated_at
FROM availability WHERE especialista_id = ? ORDER BY day_of_week ASC`
	rows, err := r.conn.QueryRows(ctx, q, specialistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Availability{}
	for rows.Next() {
		var a models.Availability
		var exc string
		var updated int64
		if err := rows.Scan(&a.ID, &a.EspecialistaID, &a.DayOfWeek, &a.StartTime, &a.EndTime, &a.IsAvailable, &a.IntervalMinutes, &a.MaxSessions, &exc, &updated); err != nil {
			return nil, err
		}
		a.Exceptions = decodeList(exc)
		a.UpdatedAt = fromMillis(updated)
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpsertAvailability writes entries keyed by (especialista_id, day_of_week).
// An existing row keeps its id.
func (r *Store) UpsertAvailability(ctx context.Context, entries []models.Availability) error {
	if len(entries) == 0 {
		return nil
	}

	ts := now()
	q := `INSERT INTO availability (id, especialista_id, day_of_week, start_time, end_time, is_available, interval_minutes, max_sessions, exceptions, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(especialista_id, day_of_week) DO UPDATE SET start_time = excluded.start_time, end_time = excluded.end_time,
is_available = excluded.is_available, interval_minutes = excluded.interval_minutes, max_sessions = excluded.max_sessions,
exceptions = excluded.exceptions, updated_at = excluded.updated_at`

	return r.conn.WithTx(ctx, func(tx *db.Tx) error {
		for i := range entries {
			a := &entries[i]
			if _, err := tx.Exec(ctx, q, a.ID, a.EspecialistaID, a.DayOfWeek, a.StartTime, a.EndTime, a.IsAvailable,
				a.IntervalMinutes, a.MaxSessions, encodeList(a.Exceptions), ts); err != nil {
				return fmt.Errorf("upsert availability day %d: %w", a.DayOfWeek, err)
			}
			a.UpdatedAt = fromMillis(ts)
		}
		return nil
	})
}
