package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/terapia/internal/metrics"
	"github.com/garnizeh/terapia/pkg/models"
	"github.com/garnizeh/terapia/pkg/repository"
)

const (
	PassSessionReminders = "session_reminders"
	PassPaymentReminders = "payment_reminders"
	PassFeedbackRequests = "feedback_requests"
	PassBirthdays        = "birthday_greetings"
)

// PassResult summarizes one dispatch pass.
type PassResult struct {
	Name     string `json:"name"`
	Inserted int    `json:"inserted"`
	Marked   int    `json:"marked"`
	Error    string `json:"error,omitempty"`
}

type Report struct {
	StartedAt time.Time    `json:"started_at"`
	Duration  string       `json:"duration"`
	Passes    []PassResult `json:"passes"`
}

// Failed reports whether any pass returned an error.
func (r Report) Failed() bool {
	for _, p := range r.Passes {
		if p.Error != "" {
			return true
		}
	}
	return false
}

// Dispatcher creates reminder notifications from the current state of
// sessions, payments and profiles. Each pass fetches candidates, inserts the
// notifications and then flags the source rows so a later run skips them.
type Dispatcher struct {
	sessions repository.SessionRepo
	payments repository.PaymentRepo
	profiles repository.ProfileRepo
	notifier *Service
	logger   *slog.Logger
	now      func() time.Time
}

func NewDispatcher(sessions repository.SessionRepo, payments repository.PaymentRepo, profiles repository.ProfileRepo, notifier *Service, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{sessions: sessions, payments: payments, profiles: profiles, notifier: notifier, logger: logger, now: time.Now}
}

// Dispatch runs all passes concurrently and waits for every one of them. A
// failing pass is logged and reported without affecting the others.
func (d *Dispatcher) Dispatch(ctx context.Context) Report {
	start := d.now()
	passes := []struct {
		name string
		run  func(context.Context) (int, int, error)
	}{
		{PassSessionReminders, d.sessionReminders},
		{PassPaymentReminders, d.paymentReminders},
		{PassFeedbackRequests, d.feedbackRequests},
		{PassBirthdays, d.birthdays},
	}

	results := make([]PassResult, len(passes))
	var wg sync.WaitGroup
	for i, p := range passes {
		wg.Add(1)
		go func(i int, name string, run func(context.Context) (int, int, error)) {
			defer wg.Done()
			res := PassResult{Name: name}
			defer func() {
				if r := recover(); r != nil {
					res.Error = fmt.Sprintf("panic: %v", r)
					metrics.DispatchFailures.WithLabelValues(name).Inc()
					d.logger.Error("dispatch: pass panicked", "pass", name, "panic", r)
				}
				results[i] = res
			}()

			inserted, marked, err := run(ctx)
			res.Inserted, res.Marked = inserted, marked
			metrics.DispatchInserted.WithLabelValues(name).Add(float64(inserted))
			if err != nil {
				res.Error = err.Error()
				metrics.DispatchFailures.WithLabelValues(name).Inc()
				d.logger.Error("dispatch: pass failed", "pass", name, "err", err)
				return
			}
			d.logger.Info("dispatch: pass done", "pass", name, "inserted", inserted, "marked", marked)
		}(i, p.name, p.run)
	}
	wg.Wait()

	return Report{StartedAt: start.UTC(), Duration: time.Since(start).String(), Passes: results}
}

func (d *Dispatcher) sessionReminders(ctx context.Context) (int, int, error) {
	now := d.now().UTC()
	due, err := d.sessions.ListDueReminders(ctx, now, now.Add(24*time.Hour))
	if err != nil {
		return 0, 0, fmt.Errorf("list due sessions: %w", err)
	}

	ids := make([]string, 0, len(due))
	var ns []models.Notification
	for _, s := range due {
		ids = append(ids, s.ID)
		if s.ClienteID == nil {
			continue
		}
		ns = append(ns, models.Notification{
			ID:       uuid.NewString(),
			UserID:   *s.ClienteID,
			Type:     models.NotificationSessionReminder,
			Title:    "Lembrete de sessão",
			Message:  fmt.Sprintf("Você tem uma sessão agendada para %s.", s.DataHora.Format("02/01/2006 às 15:04")),
			Metadata: metadata(map[string]any{"session_id": s.ID, "data_hora": s.DataHora.Format(time.RFC3339)}),
		})
	}

	if err := d.insert(ctx, ns); err != nil {
		return 0, 0, err
	}
	if err := d.sessions.MarkReminded(ctx, ids); err != nil {
		return len(ns), 0, fmt.Errorf("mark sessions reminded: %w", err)
	}
	return len(ns), len(ids), nil
}

func (d *Dispatcher) paymentReminders(ctx context.Context) (int, int, error) {
	pending, err := d.payments.ListPendingPaymentReminders(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list pending payments: %w", err)
	}

	ids := make([]string, 0, len(pending))
	var ns []models.Notification
	for _, p := range pending {
		ids = append(ids, p.ID)
		if p.ClienteID == nil {
			continue
		}
		ns = append(ns, models.Notification{
			ID:       uuid.NewString(),
			UserID:   *p.ClienteID,
			Type:     models.NotificationPaymentDue,
			Title:    "Pagamento pendente",
			Message:  fmt.Sprintf("Você possui um pagamento pendente de R$ %.2f.", p.Valor),
			Metadata: metadata(map[string]any{"payment_id": p.ID, "valor": p.Valor}),
		})
	}

	if err := d.insert(ctx, ns); err != nil {
		return 0, 0, err
	}
	if err := d.payments.MarkPaymentReminded(ctx, ids); err != nil {
		return len(ns), 0, fmt.Errorf("mark payments reminded: %w", err)
	}
	return len(ns), len(ids), nil
}

func (d *Dispatcher) feedbackRequests(ctx context.Context) (int, int, error) {
	completed, err := d.sessions.ListFeedbackPending(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list completed sessions: %w", err)
	}

	ids := make([]string, 0, len(completed))
	var ns []models.Notification
	for _, s := range completed {
		ids = append(ids, s.ID)
		if s.ClienteID == nil {
			continue
		}
		ns = append(ns, models.Notification{
			ID:       uuid.NewString(),
			UserID:   *s.ClienteID,
			Type:     models.NotificationFeedbackRequest,
			Title:    "Como foi sua sessão?",
			Message:  "Conte para nós como foi o seu atendimento avaliando a sessão.",
			Metadata: metadata(map[string]any{"session_id": s.ID}),
		})
	}

	if err := d.insert(ctx, ns); err != nil {
		return 0, 0, err
	}
	if err := d.sessions.MarkFeedbackRequested(ctx, ids); err != nil {
		return len(ns), 0, fmt.Errorf("mark feedback requested: %w", err)
	}
	return len(ns), len(ids), nil
}

// birthdays greets every profile that has not been greeted yet. Profiles carry
// no birth date, so nothing restricts this to the actual birthday.
func (d *Dispatcher) birthdays(ctx context.Context) (int, int, error) {
	profiles, err := d.profiles.ListProfilesNotGreeted(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list profiles not greeted: %w", err)
	}

	ids := make([]string, 0, len(profiles))
	ns := make([]models.Notification, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
		ns = append(ns, models.Notification{
			ID:      uuid.NewString(),
			UserID:  p.ID,
			Type:    models.NotificationBirthdayGreeting,
			Title:   "Feliz aniversário!",
			Message: fmt.Sprintf("Feliz aniversário, %s! Desejamos um ótimo dia.", p.Nome),
		})
	}

	if err := d.insert(ctx, ns); err != nil {
		return 0, 0, err
	}
	if err := d.profiles.MarkBirthdayGreeted(ctx, ids); err != nil {
		return len(ns), 0, fmt.Errorf("mark birthday greeted: %w", err)
	}
	return len(ns), len(ids), nil
}

func (d *Dispatcher) insert(ctx context.Context, ns []models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	if err := d.notifier.CreateBatch(ctx, ns); err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}
	return nil
}

func metadata(v map[string]any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// JobType is the background job that runs one dispatch.
const JobType = "notifications.dispatch"

// HandleJob runs Dispatch as a background job. A report with failed passes
// returns an error so the job is retried; passes that succeeded already
// flagged their rows and insert nothing on the retry.
func (d *Dispatcher) HandleJob(ctx context.Context, _ *models.BackgroundJob) error {
	rep := d.Dispatch(ctx)
	if !rep.Failed() {
		return nil
	}
	var failed []string
	for _, p := range rep.Passes {
		if p.Error != "" {
			failed = append(failed, p.Name+": "+p.Error)
		}
	}
	return fmt.Errorf("dispatch passes failed: %v", failed)
}
