package sqlstore

import (
	"context"
	"fmt"

	"github.com/garnizeh/terapia/internal/db"
	"github.com/garnizeh/terapia/pkg/models"
)

const messageColumns = `id, sender_id, receiver_id, content, lido, created_at`

const upsertSummary = `INSERT INTO conversation_summaries (owner_id, counterpart_id, last_message, last_message_at, unread_count) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(owner_id, counterpart_id) DO UPDATE SET
last_message = CASE WHEN excluded.last_message_at >= conversation_summaries.last_message_at THEN excluded.last_message ELSE conversation_summaries.last_message END,
last_message_at = CASE WHEN excluded.last_message_at >= conversation_summaries.last_message_at THEN excluded.last_message_at ELSE conversation_summaries.last_message_at END,
unread_count = conversation_summaries.unread_count + excluded.unread_count`

// SendMessage inserts the message and folds it into both participants'
// conversation summaries inside one transaction.
func (r *Store) SendMessage(ctx context.Context, m *models.Message) error {
	if m == nil {
		return fmt.Errorf("message is nil")
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = fromMillis(now())
	}
	ts := toMillis(m.CreatedAt)

	return r.conn.WithTx(ctx, func(tx *db.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, m.SenderID, m.ReceiverID, m.Content, m.Lido, ts); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}

		if _, err := tx.Exec(ctx, upsertSummary, m.SenderID, m.ReceiverID, m.Content, ts, 0); err != nil {
			return fmt.Errorf("update sender summary: %w", err)
		}

		unread := 0
		if !m.Lido {
			unread = 1
		}
		if _, err := tx.Exec(ctx, upsertSummary, m.ReceiverID, m.SenderID, m.Content, ts, unread); err != nil {
			return fmt.Errorf("update receiver summary: %w", err)
		}
		return nil
	})
}

func (r *Store) ListMessagesForUser(ctx context.Context, userID string) ([]models.Message, error) {
	return r.queryMessages(ctx, `SELECT `+messageColumns+` FROM messages WHERE sender_id = ? OR receiver_id = ? ORDER BY created_at ASC`, userID, userID)
}

func (r *Store) ListThread(ctx context.Context, userID, counterpartID string) ([]models.Message, error) {
	q := `SELECT ` + messageColumns + ` FROM messages WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?) ORDER BY created_at ASC`
	return r.queryMessages(ctx, q, userID, counterpartID, counterpartID, userID)
}

// MarkThreadRead flags every unread message sent by counterpartID to userID and
// lowers the user's unread counter by the number of rows it flipped. Messages
// that land after the select keep their count.
func (r *Store) MarkThreadRead(ctx context.Context, userID, counterpartID string) ([]string, error) {
	var ids []string
	err := r.conn.WithTx(ctx, func(tx *db.Tx) error {
		rows, err := tx.QueryRows(ctx, `SELECT id FROM messages WHERE sender_id = ? AND receiver_id = ? AND lido = ?`, counterpartID, userID, false)
		if err != nil {
			return err
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		if len(ids) == 0 {
			return nil
		}
		in, args := inClause(ids)
		res, err := tx.Exec(ctx, `UPDATE messages SET lido = ? WHERE lido = ? AND id IN (`+in+`)`, append([]any{true, false}, args...)...)
		if err != nil {
			return fmt.Errorf("mark messages read: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("mark messages read: %w", err)
		}

		q := `UPDATE conversation_summaries SET unread_count = CASE WHEN unread_count > ? THEN unread_count - ? ELSE 0 END
WHERE owner_id = ? AND counterpart_id = ?`
		if _, err := tx.Exec(ctx, q, n, n, userID, counterpartID); err != nil {
			return fmt.Errorf("lower unread count: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListSummaries returns the user's conversations with the counterpart's name
// and avatar, most recent first.
func (r *Store) ListSummaries(ctx context.Context, userID string) ([]models.Conversation, error) {
	q := `SELECT cs.counterpart_id, COALESCE(p.nome, ''), COALESCE(p.avatar_url, ''), cs.last_message, cs.last_message_at, cs.unread_count
FROM conversation_summaries cs LEFT JOIN profiles p ON p.id = cs.counterpart_id
WHERE cs.owner_id = ? ORDER BY cs.last_message_at DESC`
	rows, err := r.conn.QueryRows(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Conversation{}
	for rows.Next() {
		var c models.Conversation
		var at int64
		if err := rows.Scan(&c.CounterpartID, &c.CounterpartName, &c.CounterpartAvatar, &c.LastMessage, &at, &c.UnreadCount); err != nil {
			return nil, err
		}
		c.LastMessageAt = fromMillis(at)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ReplaceSummaries swaps the user's stored summaries for convs.
func (r *Store) ReplaceSummaries(ctx context.Context, userID string, convs []models.Conversation) error {
	return r.conn.WithTx(ctx, func(tx *db.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM conversation_summaries WHERE owner_id = ?`, userID); err != nil {
			return fmt.Errorf("clear summaries: %w", err)
		}
		for _, c := range convs {
			_, err := tx.Exec(ctx, `INSERT INTO conversation_summaries (owner_id, counterpart_id, last_message, last_message_at, unread_count) VALUES (?, ?, ?, ?, ?)`,
				userID, c.CounterpartID, c.LastMessage, toMillis(c.LastMessageAt), c.UnreadCount)
			if err != nil {
				return fmt.Errorf("insert summary: %w", err)
			}
		}
		return nil
	})
}

func (r *Store) queryMessages(ctx context.Context, q string, args ...any) ([]models.Message, error) {
	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Message{}
	for rows.Next() {
		var m models.Message
		var created int64
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Lido, &created); err != nil {
			return nil, err
		}
		m.CreatedAt = fromMillis(created)
		out = append(out, m)
	}
	return out, rows.Err()
}
