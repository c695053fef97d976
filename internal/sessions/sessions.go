// Package sessions books, updates and bills therapy sessions.
package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/terapia/internal/apperr"
	"github.com/garnizeh/terapia/internal/realtime"
	"github.com/garnizeh/terapia/pkg/models"
	"github.com/garnizeh/terapia/pkg/repository"
)

const table = "sessoes"

// Notifier creates user notifications.
type Notifier interface {
	Create(ctx context.Context, n *models.Notification) error
}

type Service struct {
	sessions repository.SessionRepo
	payments repository.PaymentRepo
	notifier Notifier
	events   realtime.Publisher
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(sessions repository.SessionRepo, payments repository.PaymentRepo, notifier Notifier, events realtime.Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{sessions: sessions, payments: payments, notifier: notifier, events: events, logger: logger, now: time.Now}
}

// Get returns the session joined with its client profile.
func (s *Service) Get(ctx context.Context, id string) (*models.Session, error) {
	sess, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, apperr.NotFound("session", "Sessão não encontrada")
	}
	return sess, nil
}

// List filters by role: specialists see their agenda, clients their bookings
// and any other role everything. Newest appointment first.
func (s *Service) List(ctx context.Context, userID, role string) ([]models.Session, error) {
	var f repository.SessionFilter
	switch role {
	case models.RoleSpecialist:
		f.EspecialistaID = userID
	case models.RoleClient:
		f.ClienteID = userID
	}
	list, err := s.sessions.ListSessions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return list, nil
}

// Create books a session. The appointment time is required; status and
// payment status default to scheduled and pending.
func (s *Service) Create(ctx context.Context, in *models.Session) (*models.Session, error) {
	if in == nil || in.DataHora.IsZero() {
		return nil, apperr.Validation("data_hora", "Data e hora da sessão são obrigatórias")
	}

	sess := *in
	sess.ID = uuid.NewString()
	if sess.Status == "" {
		sess.Status = models.SessionScheduled
	}
	if sess.StatusPagamento == "" {
		sess.StatusPagamento = models.PaymentPending
	}
	sess.CreatedAt = s.now().UTC()

	if err := s.sessions.CreateSession(ctx, &sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	stored, err := s.Get(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, stored, realtime.ActionInsert)
	if stored.ClienteID != nil {
		s.notify(ctx, &models.Notification{
			UserID:   *stored.ClienteID,
			Type:     models.NotificationAppointmentConfirmation,
			Title:    "Sessão agendada",
			Message:  fmt.Sprintf("Sua sessão foi agendada para %s.", stored.DataHora.Format("02/01/2006 às 15:04")),
			Metadata: sessionMetadata(stored, true),
		})
	}
	return stored, nil
}

// Update applies patch unconditionally and returns the stored row.
func (s *Service) Update(ctx context.Context, id string, patch models.SessionPatch) (*models.Session, error) {
	if patch.DataHora != nil && patch.DataHora.IsZero() {
		return nil, apperr.Validation("data_hora", "Data e hora da sessão são obrigatórias")
	}
	if err := s.sessions.UpdateSession(ctx, id, patch); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	stored, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, stored, realtime.ActionUpdate)
	return stored, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	sess, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if err := s.sessions.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if sess != nil {
		s.publish(ctx, sess, realtime.ActionDelete)
	}
	return nil
}

// Cancel marks the session cancelled and tells the client.
func (s *Service) Cancel(ctx context.Context, id string) (*models.Session, error) {
	status := models.SessionCancelled
	stored, err := s.Update(ctx, id, models.SessionPatch{Status: &status})
	if err != nil {
		return nil, err
	}
	if stored.ClienteID != nil {
		s.notify(ctx, &models.Notification{
			UserID:   *stored.ClienteID,
			Type:     models.NotificationAppointmentCancellation,
			Title:    "Sessão cancelada",
			Message:  fmt.Sprintf("A sessão de %s foi cancelada.", stored.DataHora.Format("02/01/2006 às 15:04")),
			Metadata: sessionMetadata(stored, false),
		})
	}
	return stored, nil
}

func (s *Service) SendInvite(ctx context.Context, id string) error {
	if err := s.sessions.MarkInviteSent(ctx, id, s.now()); err != nil {
		return fmt.Errorf("send invite: %w", err)
	}
	return nil
}

func (s *Service) SubmitFeedback(ctx context.Context, id string, rating int, comments string) error {
	if rating < 1 || rating > 5 {
		return apperr.Validation("rating", "A avaliação deve estar entre 1 e 5")
	}
	if err := s.sessions.SaveFeedback(ctx, id, rating, comments, s.now()); err != nil {
		return fmt.Errorf("submit feedback: %w", err)
	}
	return nil
}

func (s *Service) ClientSessionCount(ctx context.Context, clientID string) (int64, error) {
	n, err := s.sessions.CountSessions(ctx, repository.SessionFilter{ClienteID: clientID})
	if err != nil {
		return 0, fmt.Errorf("count client sessions: %w", err)
	}
	return n, nil
}

func (s *Service) SpecialistSessionCount(ctx context.Context, specialistID string) (int64, error) {
	n, err := s.sessions.CountSessions(ctx, repository.SessionFilter{EspecialistaID: specialistID})
	if err != nil {
		return 0, fmt.Errorf("count specialist sessions: %w", err)
	}
	return n, nil
}

// CanAccess reports whether the user may read or change the session.
func CanAccess(sess *models.Session, userID, role string) bool {
	if role == models.RoleAdmin {
		return true
	}
	if sess.EspecialistaID != nil && *sess.EspecialistaID == userID {
		return true
	}
	return sess.ClienteID != nil && *sess.ClienteID == userID
}

func (s *Service) publish(ctx context.Context, sess *models.Session, action string) {
	if s.events == nil {
		return
	}
	var owners []string
	if sess.EspecialistaID != nil {
		owners = append(owners, *sess.EspecialistaID)
	}
	if sess.ClienteID != nil && (sess.EspecialistaID == nil || *sess.ClienteID != *sess.EspecialistaID) {
		owners = append(owners, *sess.ClienteID)
	}
	for _, id := range owners {
		s.events.Publish(ctx, realtime.NewEvent(realtime.Topic(table, id), table, action, sess))
	}
}

// notify is best effort; the booking already succeeded.
func (s *Service) notify(ctx context.Context, n *models.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Create(ctx, n); err != nil {
		s.logger.Warn("sessions: notification not created", "type", n.Type, "user_id", n.UserID, "err", err)
	}
}
