package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/terapia/pkg/models"
)

func TestRecordPaymentProjectsOntoSession(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	spec := seedProfile(t, s, "Spec", models.RoleSpecialist, time.Now())
	ss := newSession(spec.ID, nil, time.Now().Add(time.Hour))
	if err := s.CreateSession(ctx, ss); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	paidAt := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	p := &models.Payment{ID: uuid.NewString(), Valor: 150, Status: models.PaymentPaid, DataPagamento: &paidAt, SessaoID: &ss.ID}
	if err := s.RecordPayment(ctx, p); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	got, _ := s.GetSession(ctx, ss.ID)
	if got.StatusPagamento != models.PaymentPaid || got.DataPagamento == nil || !got.DataPagamento.Equal(paidAt) {
		t.Fatalf("payment not projected: %#v", got)
	}

	list, err := s.ListPaymentsBySession(ctx, ss.ID)
	if err != nil || len(list) != 1 || list[0].Valor != 150 {
		t.Fatalf("unexpected payments: %#v, %v", list, err)
	}

	pending := &models.Payment{ID: uuid.NewString(), Valor: 80, Status: models.PaymentPending}
	if err := s.RecordPayment(ctx, pending); err != nil {
		t.Fatalf("RecordPayment pending: %v", err)
	}

	due, err := s.ListPendingPaymentReminders(ctx)
	if err != nil || len(due) != 1 || due[0].ID != pending.ID {
		t.Fatalf("expected one pending reminder, got %#v, %v", due, err)
	}
	if err := s.MarkPaymentReminded(ctx, []string{pending.ID}); err != nil {
		t.Fatalf("MarkPaymentReminded: %v", err)
	}
	due, _ = s.ListPendingPaymentReminders(ctx)
	if len(due) != 0 {
		t.Fatalf("expected no pending reminders, got %d", len(due))
	}

	totals, err := s.PaymentTotals(ctx)
	if err != nil {
		t.Fatalf("PaymentTotals: %v", err)
	}
	if totals.Paid != 1 || totals.Pending != 1 || totals.Revenue != 150 {
		t.Fatalf("unexpected totals: %#v", totals)
	}
}
