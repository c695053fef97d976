package sessions_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	dbfs "github.com/garnizeh/terapia/db"
	"github.com/garnizeh/terapia/internal/apperr"
	dbpkg "github.com/garnizeh/terapia/internal/db"
	"github.com/garnizeh/terapia/internal/realtime"
	"github.com/garnizeh/terapia/internal/repository/sqlstore"
	"github.com/garnizeh/terapia/internal/sessions"
	"github.com/garnizeh/terapia/pkg/models"
	"github.com/garnizeh/terapia/pkg/repository/mock"
)

type captureNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
	err  error
}

func (c *captureNotifier) Create(ctx context.Context, n *models.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, *n)
	return nil
}

func strPtr(s string) *string { return &s }

func TestCreateWithoutDateFailsBeforeStore(t *testing.T) {
	repo := mock.NewSessionRepo()
	svc := sessions.NewService(repo, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), &models.Session{EspecialistaID: strPtr("spec")})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.Calls != 0 {
		t.Fatalf("expected no store calls, got %d", repo.Calls)
	}
}

func TestCreateWithoutSpecialist(t *testing.T) {
	repo := mock.NewSessionRepo()
	svc := sessions.NewService(repo, nil, nil, nil, nil)
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	got, err := svc.Create(context.Background(), &models.Session{ClienteID: strPtr("c1"), DataHora: at, TipoSessao: "individual"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.ID == "" || got.EspecialistaID != nil {
		t.Fatalf("unexpected session: %#v", got)
	}
	if got.ClienteID == nil || *got.ClienteID != "c1" || !got.DataHora.Equal(at) || got.TipoSessao != "individual" {
		t.Fatalf("fields not kept: %#v", got)
	}
	if !sessions.CanAccess(got, "c1", models.RoleClient) || sessions.CanAccess(got, "other", models.RoleSpecialist) {
		t.Fatalf("unexpected access rules for unassigned session")
	}
}

func TestListFiltersByRole(t *testing.T) {
	repo := mock.NewSessionRepo()
	svc := sessions.NewService(repo, nil, nil, nil, nil)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	for i, spec := range []string{"s1", "s1", "s2"} {
		if _, err := svc.Create(ctx, &models.Session{EspecialistaID: &spec, ClienteID: strPtr("c1"), DataHora: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	list, err := svc.List(ctx, "s1", models.RoleSpecialist)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || !list[0].DataHora.After(list[1].DataHora) {
		t.Fatalf("expected two sessions newest first, got %#v", list)
	}

	clientList, _ := svc.List(ctx, "c1", models.RoleClient)
	if len(clientList) != 3 {
		t.Fatalf("expected 3 client sessions, got %d", len(clientList))
	}
	all, _ := svc.List(ctx, "", models.RoleAdmin)
	if len(all) != 3 {
		t.Fatalf("expected all sessions for admin, got %d", len(all))
	}
}

func TestCreateDefaultsAndConfirmation(t *testing.T) {
	repo := mock.NewSessionRepo()
	notifier := &captureNotifier{}
	broker := realtime.NewBroker(nil, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := broker.Subscribe(ctx, realtime.Topic("sessoes", "spec"))

	svc := sessions.NewService(repo, nil, notifier, broker, nil)
	at := time.Date(2025, 7, 10, 14, 0, 0, 0, time.UTC)
	got, err := svc.Create(ctx, &models.Session{EspecialistaID: strPtr("spec"), ClienteID: strPtr("cli"), DataHora: at, Valor: 200})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.ID == "" || got.Status != models.SessionScheduled || got.StatusPagamento != models.PaymentPending {
		t.Fatalf("unexpected defaults: %#v", got)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Type != models.NotificationAppointmentConfirmation || notifier.sent[0].UserID != "cli" {
		t.Fatalf("expected confirmation notification, got %#v", notifier.sent)
	}
	if len(sub.C()) != 1 {
		t.Fatalf("expected an insert event for the specialist")
	}

	notifier.err = errors.New("notification store down")
	if _, err := svc.Create(ctx, &models.Session{EspecialistaID: strPtr("spec"), ClienteID: strPtr("cli"), DataHora: at}); err != nil {
		t.Fatalf("notification failure must not fail booking: %v", err)
	}
}

func TestCancelFeedbackAndInvite(t *testing.T) {
	repo := mock.NewSessionRepo()
	notifier := &captureNotifier{}
	svc := sessions.NewService(repo, nil, notifier, nil, nil)
	ctx := context.Background()

	s, err := svc.Create(ctx, &models.Session{EspecialistaID: strPtr("spec"), ClienteID: strPtr("cli"), DataHora: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	cancelled, err := svc.Cancel(ctx, s.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != models.SessionCancelled {
		t.Fatalf("expected cancelled, got %q", cancelled.Status)
	}
	if last := notifier.sent[len(notifier.sent)-1]; last.Type != models.NotificationAppointmentCancellation {
		t.Fatalf("expected cancellation notification, got %#v", last)
	}

	if _, err := svc.Cancel(ctx, "missing"); !apperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	for _, r := range []int{0, 6} {
		if err := svc.SubmitFeedback(ctx, s.ID, r, ""); !apperr.IsValidation(err) {
			t.Fatalf("rating %d: expected validation error, got %v", r, err)
		}
	}
	if err := svc.SubmitFeedback(ctx, s.ID, 5, "excelente"); err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	if err := svc.SendInvite(ctx, s.ID); err != nil {
		t.Fatalf("SendInvite: %v", err)
	}

	got, _ := svc.Get(ctx, s.ID)
	if got.FeedbackRating == nil || *got.FeedbackRating != 5 || got.ConviteStatus != models.InviteSent || got.ConviteEnviadoEm == nil {
		t.Fatalf("unexpected session after feedback/invite: %#v", got)
	}

	n, _ := svc.ClientSessionCount(ctx, "cli")
	m, _ := svc.SpecialistSessionCount(ctx, "spec")
	if n != 1 || m != 1 {
		t.Fatalf("unexpected counts client=%d specialist=%d", n, m)
	}
}

func TestCanAccess(t *testing.T) {
	s := &models.Session{EspecialistaID: strPtr("spec"), ClienteID: strPtr("cli")}
	tests := []struct {
		user, role string
		want       bool
	}{
		{"spec", models.RoleSpecialist, true},
		{"cli", models.RoleClient, true},
		{"other", models.RoleClient, false},
		{"root", models.RoleAdmin, true},
	}
	for _, tt := range tests {
		if got := sessions.CanAccess(s, tt.user, tt.role); got != tt.want {
			t.Fatalf("CanAccess(%s,%s) = %v, want %v", tt.user, tt.role, got, tt.want)
		}
	}
	guest := &models.Session{EspecialistaID: strPtr("spec")}
	if sessions.CanAccess(guest, "cli", models.RoleClient) {
		t.Fatalf("guest session must not be visible to other clients")
	}
}

func TestRecordPaymentScenario(t *testing.T) {
	ctx := context.Background()
	d, err := dbpkg.New(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	defer d.Close()
	if err := dbpkg.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := sqlstore.New(d, nil)

	spec := &models.Profile{ID: uuid.NewString(), Nome: "Spec", Email: "spec@example.com", Role: models.RoleSpecialist}
	cli := &models.Profile{ID: uuid.NewString(), Nome: "Cli", Email: "cli@example.com", Role: models.RoleClient}
	for _, p := range []*models.Profile{spec, cli} {
		if err := store.CreateProfile(ctx, p); err != nil {
			t.Fatalf("CreateProfile: %v", err)
		}
	}

	svc := sessions.NewService(store, store, nil, nil, nil)
	s, err := svc.Create(ctx, &models.Session{EspecialistaID: &spec.ID, ClienteID: &cli.ID, DataHora: time.Now().Add(24 * time.Hour), Valor: 180, TipoSessao: "online"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.Cliente == nil || s.Cliente.Nome != "Cli" {
		t.Fatalf("expected client profile joined, got %#v", s.Cliente)
	}

	if _, err := svc.RecordPayment(ctx, s.ID, 180, "bogus"); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for bad status, got %v", err)
	}
	if _, err := svc.RecordPayment(ctx, "missing", 180, models.PaymentPaid); !apperr.IsNotFound(err) {
		t.Fatalf("expected not found for missing session, got %v", err)
	}

	p, err := svc.RecordPayment(ctx, s.ID, 180, models.PaymentPaid)
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if p.DataPagamento == nil || p.ClienteID == nil || *p.ClienteID != cli.ID {
		t.Fatalf("unexpected payment: %#v", p)
	}

	got, _ := svc.Get(ctx, s.ID)
	if got.StatusPagamento != models.PaymentPaid || got.DataPagamento == nil {
		t.Fatalf("payment not projected onto session: %#v", got)
	}
	list, err := svc.ListPayments(ctx, s.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListPayments: %#v, %v", list, err)
	}
}
