package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/garnizeh/terapia/internal/db"
	"github.com/garnizeh/terapia/pkg/models"
)

const notificationColumns = `id, user_id, type, title, message, lida, metadata, created_at`

// CreateNotifications inserts the batch atomically.
func (r *Store) CreateNotifications(ctx context.Context, ns []models.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	ts := now()
	return r.conn.WithTx(ctx, func(tx *db.Tx) error {
		for i := range ns {
			n := &ns[i]
			if n.CreatedAt.IsZero() {
				n.CreatedAt = fromMillis(ts)
			}
			var meta any
			if len(n.Metadata) > 0 {
				meta = string(n.Metadata)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO notifications (`+notificationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				n.ID, n.UserID, n.Type, n.Title, n.Message, n.Lida, meta, toMillis(n.CreatedAt)); err != nil {
				return fmt.Errorf("insert notification: %w", err)
			}
		}
		return nil
	})
}

func (r *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	q := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ?`
	args := []any{userID}
	if unreadOnly {
		q += ` AND lida = ?`
		args = append(args, false)
	}
	q += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		var meta sql.NullString
		var created int64
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Lida, &meta, &created); err != nil {
			return nil, err
		}
		if meta.Valid && meta.String != "" {
			n.Metadata = json.RawMessage(meta.String)
		}
		n.CreatedAt = fromMillis(created)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *Store) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND lida = ?`, userID, false).Scan(&n)
	return n, err
}

func (r *Store) CountAllUnread(ctx context.Context) (int64, error) {
	var n int64
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE lida = ?`, false).Scan(&n)
	return n, err
}

// MarkNotificationRead reports whether a notification owned by userID was found.
func (r *Store) MarkNotificationRead(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.conn.Exec(ctx, `UPDATE notifications SET lida = ? WHERE id = ? AND user_id = ?`, true, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Store) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.conn.Exec(ctx, `UPDATE notifications SET lida = ? WHERE user_id = ? AND lida = ?`, true, userID, false)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
