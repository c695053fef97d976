package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garnizeh/terapia/pkg/models"
	"github.com/garnizeh/terapia/pkg/repository"
)

const sessionColumns = `s.id, s.cliente_id, s.especialista_id, s.data_hora, s.tipo_sessao, s.notas, s.valor, s.status, s.status_pagamento,
s.data_pagamento, s.convite_status, s.convite_enviado_em, s.email_convidado, s.feedback_rating, s.feedback_comentarios,
s.feedback_enviado_em, s.lembrete_enviado, s.feedback_solicitado, s.created_at`

type scanner interface{ Scan(...any) error }

func sessionDest(s *models.Session, raw *sessionRaw) []any {
	return []any{&s.ID, &raw.cliente, &raw.especialista, &raw.dataHora, &s.TipoSessao, &s.Notas, &s.Valor, &s.Status, &s.StatusPagamento,
		&raw.dataPagamento, &s.ConviteStatus, &raw.conviteEnviado, &s.EmailConvidado, &raw.rating, &s.FeedbackComentarios,
		&raw.feedbackEnviado, &s.LembreteEnviado, &s.FeedbackSolicitado, &raw.created}
}

type sessionRaw struct {
	cliente         sql.NullString
	especialista    sql.NullString
	dataHora        int64
	dataPagamento   sql.NullInt64
	conviteEnviado  sql.NullInt64
	rating          sql.NullInt64
	feedbackEnviado sql.NullInt64
	created         int64
}

func (raw *sessionRaw) apply(s *models.Session) {
	s.ClienteID = stringPtr(raw.cliente)
	s.EspecialistaID = stringPtr(raw.especialista)
	s.DataHora = fromMillis(raw.dataHora)
	s.DataPagamento = timePtr(raw.dataPagamento)
	s.ConviteEnviadoEm = timePtr(raw.conviteEnviado)
	s.FeedbackEnviadoEm = timePtr(raw.feedbackEnviado)
	if raw.rating.Valid {
		v := int(raw.rating.Int64)
		s.FeedbackRating = &v
	}
	s.CreatedAt = fromMillis(raw.created)
}

func scanSession(sc scanner) (*models.Session, error) {
	var s models.Session
	var raw sessionRaw
	if err := sc.Scan(sessionDest(&s, &raw)...); err != nil {
		return nil, err
	}
	raw.apply(&s)
	return &s, nil
}

func (r *Store) CreateSession(ctx context.Context, s *models.Session) error {
	if s == nil {
		return fmt.Errorf("session is nil")
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = fromMillis(now())
	}

	var rating any
	if s.FeedbackRating != nil {
		rating = *s.FeedbackRating
	}

	q := `INSERT INTO sessoes (id, cliente_id, especialista_id, data_hora, tipo_sessao, notas, valor, status, status_pagamento,
data_pagamento, convite_status, convite_enviado_em, email_convidado, feedback_rating, feedback_comentarios,
feedback_enviado_em, lembrete_enviado, feedback_solicitado, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.conn.Exec(ctx, q, s.ID, nullString(s.ClienteID), nullString(s.EspecialistaID), toMillis(s.DataHora), s.TipoSessao, s.Notas, s.Valor,
		s.Status, s.StatusPagamento, nullMillis(s.DataPagamento), s.ConviteStatus, nullMillis(s.ConviteEnviadoEm), s.EmailConvidado,
		rating, s.FeedbackComentarios, nullMillis(s.FeedbackEnviadoEm), s.LembreteEnviado, s.FeedbackSolicitado, toMillis(s.CreatedAt))
	return err
}

// GetSession returns the session with its client profile joined in.
func (r *Store) GetSession(ctx context.Context, id string) (*models.Session, error) {
	q := `SELECT ` + sessionColumns + `, p.id, p.nome, p.email, p.avatar_url, p.role, p.created_at
FROM sessoes s LEFT JOIN profiles p ON p.id = s.cliente_id WHERE s.id = ?`

	var s models.Session
	var raw sessionRaw
	var pid, nome, email, avatar, role sql.NullString
	var pcreated sql.NullInt64
	dest := append(sessionDest(&s, &raw), &pid, &nome, &email, &avatar, &role, &pcreated)
	if err := r.conn.QueryRow(ctx, q, id).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	raw.apply(&s)

	if pid.Valid {
		s.Cliente = &models.Profile{
			ID:        pid.String,
			Nome:      nome.String,
			Email:     email.String,
			AvatarURL: avatar.String,
			Role:      role.String,
			CreatedAt: fromMillis(pcreated.Int64),
		}
	}
	return &s, nil
}

func sessionWhere(f repository.SessionFilter) (string, []any) {
	var conds []string
	var args []any
	if f.ClienteID != "" {
		conds = append(conds, "s.cliente_id = ?")
		args = append(args, f.ClienteID)
	}
	if f.EspecialistaID != "" {
		conds = append(conds, "s.especialista_id = ?")
		args = append(args, f.EspecialistaID)
	}
	if f.Status != "" {
		conds = append(conds, "s.status = ?")
		args = append(args, f.Status)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListSessions returns matching sessions, most recent appointment first.
func (r *Store) ListSessions(ctx context.Context, f repository.SessionFilter) ([]models.Session, error) {
	where, args := sessionWhere(f)
	return r.querySessions(ctx, `SELECT `+sessionColumns+` FROM sessoes s`+where+` ORDER BY s.data_hora DESC`, args...)
}

func (r *Store) CountSessions(ctx context.Context, f repository.SessionFilter) (int64, error) {
	where, args := sessionWhere(f)
	var n int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM sessoes s`+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *Store) UpdateSession(ctx context.Context, id string, p models.SessionPatch) error {
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.ClienteID != nil {
		add("cliente_id", *p.ClienteID)
	}
	if p.EspecialistaID != nil {
		add("especialista_id", *p.EspecialistaID)
	}
	if p.DataHora != nil {
		add("data_hora", toMillis(*p.DataHora))
	}
	if p.TipoSessao != nil {
		add("tipo_sessao", *p.TipoSessao)
	}
	if p.Notas != nil {
		add("notas", *p.Notas)
	}
	if p.Valor != nil {
		add("valor", *p.Valor)
	}
	if p.Status != nil {
		add("status", *p.Status)
	}
	if p.EmailConvidado != nil {
		add("email_convidado", *p.EmailConvidado)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	_, err := r.conn.Exec(ctx, `UPDATE sessoes SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	return err
}

func (r *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM sessoes WHERE id = ?`, id)
	return err
}

func (r *Store) MarkInviteSent(ctx context.Context, id string, at time.Time) error {
	_, err := r.conn.Exec(ctx, `UPDATE sessoes SET convite_enviado_em = ?, convite_status = ? WHERE id = ?`, toMillis(at), models.InviteSent, id)
	return err
}

func (r *Store) SaveFeedback(ctx context.Context, id string, rating int, comments string, at time.Time) error {
	_, err := r.conn.Exec(ctx, `UPDATE sessoes SET feedback_rating = ?, feedback_comentarios = ?, feedback_enviado_em = ? WHERE id = ?`,
		rating, comments, toMillis(at), id)
	return err
}

func (r *Store) ListDueReminders(ctx context.Context, from, to time.Time) ([]models.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessoes s WHERE s.data_hora > ? AND s.data_hora <= ? AND s.status <> ? AND s.lembrete_enviado = ? ORDER BY s.data_hora ASC`
	return r.querySessions(ctx, q, toMillis(from), toMillis(to), models.SessionCancelled, false)
}

func (r *Store) MarkReminded(ctx context.Context, ids []string) error {
	return r.flagSessions(ctx, "lembrete_enviado", ids)
}

func (r *Store) ListFeedbackPending(ctx context.Context) ([]models.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessoes s WHERE s.status = ? AND s.feedback_solicitado = ? ORDER BY s.data_hora ASC`
	return r.querySessions(ctx, q, models.SessionCompleted, false)
}

func (r *Store) MarkFeedbackRequested(ctx context.Context, ids []string) error {
	return r.flagSessions(ctx, "feedback_solicitado", ids)
}

func (r *Store) flagSessions(ctx context.Context, col string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	in, args := inClause(ids)
	_, err := r.conn.Exec(ctx, `UPDATE sessoes SET `+col+` = ? WHERE id IN (`+in+`)`, append([]any{true}, args...)...)
	return err
}

func (r *Store) querySessions(ctx context.Context, q string, args ...any) ([]models.Session, error) {
	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}
