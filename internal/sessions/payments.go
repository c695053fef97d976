package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/terapia/internal/apperr"
	"github.com/garnizeh/terapia/internal/realtime"
	"github.com/garnizeh/terapia/pkg/models"
)

var paymentStatuses = map[string]bool{
	models.PaymentPending:  true,
	models.PaymentPaid:     true,
	models.PaymentFailed:   true,
	models.PaymentRefunded: true,
}

// RecordPayment stores a payment for the session. The payment row is the
// record of truth; the session's payment columns are refreshed from it in the
// same transaction.
func (s *Service) RecordPayment(ctx context.Context, sessionID string, valor float64, status string) (*models.Payment, error) {
	if !paymentStatuses[status] {
		return nil, apperr.Validation("status", "Status de pagamento inválido")
	}
	if valor < 0 {
		return nil, apperr.Validation("valor", "O valor não pode ser negativo")
	}

	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	p := &models.Payment{
		ID:        uuid.NewString(),
		Valor:     valor,
		Status:    status,
		ClienteID: sess.ClienteID,
		SessaoID:  &sess.ID,
		CreatedAt: s.now().UTC(),
	}
	if status == models.PaymentPaid {
		t := s.now().UTC()
		p.DataPagamento = &t
	}

	if err := s.payments.RecordPayment(ctx, p); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	sess.StatusPagamento = status
	sess.DataPagamento = p.DataPagamento
	s.publish(ctx, sess, realtime.ActionUpdate)
	return p, nil
}

func (s *Service) ListPayments(ctx context.Context, sessionID string) ([]models.Payment, error) {
	list, err := s.payments.ListPaymentsBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return list, nil
}

func sessionMetadata(sess *models.Session, withTime bool) json.RawMessage {
	m := map[string]any{"session_id": sess.ID}
	if withTime {
		m["data_hora"] = sess.DataHora.UTC().Format(time.RFC3339)
	}
	b, _ := json.Marshal(m)
	return b
}
