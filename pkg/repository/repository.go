package repository

import (
	"context"
	"time"

	"github.com/garnizeh/terapia/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
// Single-row getters return (nil, nil) when nothing matches.

type ProfileRepo interface {
	CreateProfile(ctx context.Context, p *models.Profile) error
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, p *models.Profile) error
	ListProfilesByRole(ctx context.Context, role string) ([]models.Profile, error)
	ListProfilesByIDs(ctx context.Context, ids []string) ([]models.Profile, error)
	CountProfilesByRole(ctx context.Context) (map[string]int64, error)
	ListProfilesNotGreeted(ctx context.Context) ([]models.Profile, error)
	MarkBirthdayGreeted(ctx context.Context, ids []string) error
}

// SpecialistRepo covers the specialists and specialist_details tables.
type SpecialistRepo interface {
	ListSpecialistsByIDs(ctx context.Context, ids []string) ([]models.Specialist, error)
	ListDetailsByIDs(ctx context.Context, ids []string) ([]models.SpecialistDetail, error)
	// SearchSpecialistIDs returns ids of specialist profiles matching term,
	// ordered by profile creation time descending.
	SearchSpecialistIDs(ctx context.Context, term string) ([]string, error)
	// RegisterSpecialist upserts the specialist row, promotes the profile role
	// and, when detail is non-nil, upserts the detail row, all atomically.
	RegisterSpecialist(ctx context.Context, s *models.Specialist, detail *models.SpecialistDetail) error
	UpsertDetail(ctx context.Context, d *models.SpecialistDetail) error
}

type SessionRepo interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]models.Session, error)
	UpdateSession(ctx context.Context, id string, patch models.SessionPatch) error
	DeleteSession(ctx context.Context, id string) error
	MarkInviteSent(ctx context.Context, id string, at time.Time) error
	SaveFeedback(ctx context.Context, id string, rating int, comments string, at time.Time) error
	CountSessions(ctx context.Context, filter SessionFilter) (int64, error)
	// ListDueReminders returns sessions in (from, to] not yet reminded.
	ListDueReminders(ctx context.Context, from, to time.Time) ([]models.Session, error)
	MarkReminded(ctx context.Context, ids []string) error
	ListFeedbackPending(ctx context.Context) ([]models.Session, error)
	MarkFeedbackRequested(ctx context.Context, ids []string) error
}

type SessionFilter struct {
	ClienteID      string
	EspecialistaID string
	Status         string
}

type PaymentRepo interface {
	// RecordPayment inserts the payment and projects its status onto the session.
	RecordPayment(ctx context.Context, p *models.Payment) error
	ListPaymentsBySession(ctx context.Context, sessionID string) ([]models.Payment, error)
	ListPendingPaymentReminders(ctx context.Context) ([]models.Payment, error)
	MarkPaymentReminded(ctx context.Context, ids []string) error
	PaymentTotals(ctx context.Context) (PaymentTotals, error)
}

type PaymentTotals struct {
	Paid    int64   `json:"paid"`
	Pending int64   `json:"pending"`
	Revenue float64 `json:"revenue"`
}

type MessageRepo interface {
	// SendMessage inserts the message and updates both participants' summaries.
	SendMessage(ctx context.Context, m *models.Message) error
	ListMessagesForUser(ctx context.Context, userID string) ([]models.Message, error)
	ListThread(ctx context.Context, userID, counterpartID string) ([]models.Message, error)
	// MarkThreadRead flags unread messages from counterpart to user as read and
	// returns their ids.
	MarkThreadRead(ctx context.Context, userID, counterpartID string) ([]string, error)
	ListSummaries(ctx context.Context, userID string) ([]models.Conversation, error)
	ReplaceSummaries(ctx context.Context, userID string, convs []models.Conversation) error
}

type NotificationRepo interface {
	CreateNotifications(ctx context.Context, ns []models.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkNotificationRead(ctx context.Context, userID, id string) (bool, error)
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
	CountAllUnread(ctx context.Context) (int64, error)
}

type AvailabilityRepo interface {
	ListAvailability(ctx context.Context, specialistID string) ([]models.Availability, error)
	UpsertAvailability(ctx context.Context, entries []models.Availability) error
}

type JobRepo interface {
	Enqueue(ctx context.Context, j *models.BackgroundJob) (string, error)
	FetchNext(ctx context.Context) (*models.BackgroundJob, error)
	UpdateJob(ctx context.Context, j *models.BackgroundJob) error
	MoveToDeadLetter(ctx context.Context, j *models.BackgroundJob) error
	CountPending(ctx context.Context, jobType string) (int, error)
}
