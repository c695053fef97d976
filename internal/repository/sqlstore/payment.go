package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garnizeh/terapia/internal/db"
	"github.com/garnizeh/terapia/pkg/models"
	"github.com/garnizeh/terapia/pkg/repository"
)

const paymentColumns = `id, valor, status, data_pagamento, cliente_id, sessao_id, lembrete_enviado, created_at`

// RecordPayment stores the payment row and, when it references a session,
// mirrors its status onto the session in the same transaction.
func (r *Store) RecordPayment(ctx context.Context, p *models.Payment) error {
	if p == nil {
		return fmt.Errorf("payment is nil")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = fromMillis(now())
	}

	return r.conn.WithTx(ctx, func(tx *db.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO pagamentos (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Valor, p.Status, nullMillis(p.DataPagamento), nullString(p.ClienteID), nullString(p.SessaoID), p.LembreteEnviado, toMillis(p.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		if p.SessaoID == nil {
			return nil
		}
		if _, err := tx.Exec(ctx, `UPDATE sessoes SET status_pagamento = ?, data_pagamento = ? WHERE id = ?`,
			p.Status, nullMillis(p.DataPagamento), *p.SessaoID); err != nil {
			return fmt.Errorf("project payment on session: %w", err)
		}
		return nil
	})
}

func (r *Store) ListPaymentsBySession(ctx context.Context, sessionID string) ([]models.Payment, error) {
	return r.queryPayments(ctx, `SELECT `+paymentColumns+` FROM pagamentos WHERE sessao_id = ? ORDER BY created_at DESC`, sessionID)
}

func (r *Store) ListPendingPaymentReminders(ctx context.Context) ([]models.Payment, error) {
	return r.queryPayments(ctx, `SELECT `+paymentColumns+` FROM pagamentos WHERE status = ? AND lembrete_enviado = ? ORDER BY created_at ASC`,
		models.PaymentPending, false)
}

func (r *Store) MarkPaymentReminded(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	in, args := inClause(ids)
	_, err := r.conn.Exec(ctx, `UPDATE pagamentos SET lembrete_enviado = ? WHERE id IN (`+in+`)`, append([]any{true}, args...)...)
	return err
}

func (r *Store) PaymentTotals(ctx context.Context) (repository.PaymentTotals, error) {
	q := `SELECT
COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
COALESCE(SUM(CASE WHEN status = ? THEN valor ELSE 0 END), 0)
FROM pagamentos`
	var t repository.PaymentTotals
	err := r.conn.QueryRow(ctx, q, models.PaymentPaid, models.PaymentPending, models.PaymentPaid).Scan(&t.Paid, &t.Pending, &t.Revenue)
	return t, err
}

func (r *Store) queryPayments(ctx context.Context, q string, args ...any) ([]models.Payment, error) {
	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Payment{}
	for rows.Next() {
		var p models.Payment
		var paidAt sql.NullInt64
		var cliente, sessao sql.NullString
		var created int64
		if err := rows.Scan(&p.ID, &p.Valor, &p.Status, &paidAt, &cliente, &sessao, &p.LembreteEnviado, &created); err != nil {
			return nil, err
		}
		p.DataPagamento = timePtr(paidAt)
		p.ClienteID = stringPtr(cliente)
		p.SessaoID = stringPtr(sessao)
		p.CreatedAt = fromMillis(created)
		out = append(out, p)
	}
	return out, rows.Err()
}
