package models

import "time"

const (
	SessionScheduled = "scheduled"
	SessionCompleted = "completed"
	SessionCancelled = "cancelled"

	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"

	InviteSent = "sent"
)

type Session struct {
	ID                  string     `json:"id"`
	ClienteID           *string    `json:"cliente_id"`
	EspecialistaID      *string    `json:"especialista_id"`
	DataHora            time.Time  `json:"data_hora"`
	TipoSessao          string     `json:"tipo_sessao"`
	Notas               string     `json:"notas"`
	Valor               float64    `json:"valor"`
	Status              string     `json:"status"`
	StatusPagamento     string     `json:"status_pagamento"`
	DataPagamento       *time.Time `json:"data_pagamento,omitempty"`
	ConviteStatus       string     `json:"convite_status"`
	ConviteEnviadoEm    *time.Time `json:"convite_enviado_em,omitempty"`
	EmailConvidado      string     `json:"email_convidado"`
	FeedbackRating      *int       `json:"feedback_rating,omitempty"`
	FeedbackComentarios string     `json:"feedback_comentarios"`
	FeedbackEnviadoEm   *time.Time `json:"feedback_enviado_em,omitempty"`
	LembreteEnviado     bool       `json:"lembrete_enviado"`
	FeedbackSolicitado  bool       `json:"feedback_solicitado"`
	CreatedAt           time.Time  `json:"created_at"`

	// Cliente is filled by single-session reads; nil for guest sessions.
	Cliente *Profile `json:"cliente,omitempty"`
}

// SessionPatch carries the fields an update may change; nil fields are left alone.
type SessionPatch struct {
	ClienteID      *string    `json:"cliente_id,omitempty"`
	EspecialistaID *string    `json:"especialista_id,omitempty"`
	DataHora       *time.Time `json:"data_hora,omitempty"`
	TipoSessao     *string    `json:"tipo_sessao,omitempty"`
	Notas          *string    `json:"notas,omitempty"`
	Valor          *float64   `json:"valor,omitempty"`
	Status         *string    `json:"status,omitempty"`
	EmailConvidado *string    `json:"email_convidado,omitempty"`
}

type Payment struct {
	ID              string     `json:"id"`
	Valor           float64    `json:"valor"`
	Status          string     `json:"status"`
	DataPagamento   *time.Time `json:"data_pagamento,omitempty"`
	ClienteID       *string    `json:"cliente_id"`
	SessaoID        *string    `json:"sessao_id"`
	LembreteEnviado bool       `json:"lembrete_enviado"`
	CreatedAt       time.Time  `json:"created_at"`
}
