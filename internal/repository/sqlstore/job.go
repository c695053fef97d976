package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/terapia/internal/db"
	"github.com/garnizeh/terapia/pkg/models"
)

// Enqueue inserts a job into the jobs table and returns the new ID
func (r *Store) Enqueue(ctx context.Context, j *models.BackgroundJob) (string, error) {
	if j == nil {
		return "", fmt.Errorf("job is nil")
	}
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.MaxAttempts == 0 {
		j.MaxAttempts = 5
	}
	if j.ScheduledAt.IsZero() {
		j.ScheduledAt = time.Now().UTC()
	}

	var payload any
	if len(j.Payload) > 0 {
		payload = string(j.Payload)
	}
	ts := now()
	q := `INSERT INTO jobs (id, type, payload, status, attempts, max_attempts, priority, scheduled_at, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.conn.Exec(ctx, q, j.ID, j.Type, payload, "queued", j.Attempts, j.MaxAttempts, j.Priority, toMillis(j.ScheduledAt), ts, ts); err != nil {
		return "", fmt.Errorf("enqueue failed: %w", err)
	}

	return j.ID, nil
}

// FetchNext claims the next available job respecting priority and schedule.
// The claimed row is flipped to running in the same transaction.
func (r *Store) FetchNext(ctx context.Context) (*models.BackgroundJob, error) {
	q := `SELECT id, type, payload, status, attempts, max_attempts, priority, scheduled_at, next_try_at, last_error, created, updated FROM jobs
WHERE (status = 'queued' OR status = 'retry') AND (next_try_at IS NULL OR next_try_at <= ?) AND scheduled_at <= ?
ORDER BY priority ASC, scheduled_at ASC LIMIT 1`
	ts := now()

	var out *models.BackgroundJob
	err := r.conn.WithTx(ctx, func(tx *db.Tx) error {
		var (
			j           models.BackgroundJob
			payload     sql.NullString
			scheduledAt int64
			nextTry     sql.NullInt64
			lastError   sql.NullString
			created     int64
			updated     int64
		)
		err := tx.QueryRow(ctx, q, ts, ts).Scan(&j.ID, &j.Type, &payload, &j.Status, &j.Attempts, &j.MaxAttempts, &j.Priority,
			&scheduledAt, &nextTry, &lastError, &created, &updated)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}

		res, err := tx.Exec(ctx, `UPDATE jobs SET status = 'running', updated = ? WHERE id = ? AND status = ?`, ts, j.ID, j.Status)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}

		j.Status = "running"
		j.ScheduledAt = fromMillis(scheduledAt)
		j.Created = fromMillis(created)
		j.Updated = fromMillis(ts)
		if payload.Valid {
			j.Payload = json.RawMessage(payload.String)
		}
		j.NextTryAt = timePtr(nextTry)
		if lastError.Valid {
			j.LastError = lastError.String
		}
		out = &j
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch next job: %w", err)
	}

	return out, nil
}

// UpdateJob updates attempts, status, next_try_at, last_error
func (r *Store) UpdateJob(ctx context.Context, j *models.BackgroundJob) error {
	q := `UPDATE jobs SET status = ?, attempts = ?, next_try_at = ?, last_error = ?, updated = ? WHERE id = ?`
	_, err := r.conn.Exec(ctx, q, j.Status, j.Attempts, nullMillis(j.NextTryAt), j.LastError, now(), j.ID)

	return err
}

// MoveToDeadLetter moves a job to dead_letter_jobs and deletes the original
func (r *Store) MoveToDeadLetter(ctx context.Context, j *models.BackgroundJob) error {
	return r.conn.WithTx(ctx, func(tx *db.Tx) error {
		var payload any
		if len(j.Payload) > 0 {
			payload = string(j.Payload)
		}
		insert := `INSERT INTO dead_letter_jobs (id, job_id, type, payload, attempts, last_error, failed_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.Exec(ctx, insert, uuid.NewString(), j.ID, j.Type, payload, j.Attempts, j.LastError, now()); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `DELETE FROM jobs WHERE id = ?`, j.ID)
		return err
	})
}

// CountPending counts jobs of jobType that are queued, running or waiting to retry.
func (r *Store) CountPending(ctx context.Context, jobType string) (int, error) {
	var n int
	q := `SELECT COUNT(*) FROM jobs WHERE type = ? AND status IN ('queued', 'running', 'retry')`
	if err := r.conn.QueryRow(ctx, q, jobType).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending jobs: %w", err)
	}
	return n, nil
}
