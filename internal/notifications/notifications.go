// Package notifications serves a user's notification center and runs the
// periodic dispatch passes that create reminders.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/garnizeh/terapia/internal/apperr"
	"github.com/garnizeh/terapia/internal/realtime"
	"github.com/garnizeh/terapia/pkg/models"
	"github.com/garnizeh/terapia/pkg/repository"
)

const table = "notifications"

// Feed is the part of the change feed the service uses.
type Feed interface {
	realtime.Publisher
	Subscribe(ctx context.Context, topics ...string) *realtime.Subscription
}

type Service struct {
	repo      repository.NotificationRepo
	validator *MetadataValidator
	feed      Feed
	logger    *slog.Logger
}

func NewService(repo repository.NotificationRepo, validator *MetadataValidator, feed Feed, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, validator: validator, feed: feed, logger: logger}
}

func (s *Service) List(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	ns, err := s.repo.ListNotifications(ctx, userID, unreadOnly, 100)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return ns, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	ok, err := s.repo.MarkNotificationRead(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if !ok {
		return apperr.NotFound("notification", "")
	}
	s.publish(ctx, userID, realtime.ActionUpdate, map[string]any{"id": id, "lida": true})
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	if n > 0 {
		s.publish(ctx, userID, realtime.ActionUpdate, map[string]any{"all": true, "lida": true})
	}
	return n, nil
}

// Create validates and stores a single notification.
func (s *Service) Create(ctx context.Context, n *models.Notification) error {
	if n == nil {
		return apperr.Validation("notification", "required")
	}
	return s.CreateBatch(ctx, []models.Notification{*n})
}

// CreateBatch validates every notification, stores them atomically and emits
// one change event per recipient.
func (s *Service) CreateBatch(ctx context.Context, ns []models.Notification) error {
	for i := range ns {
		n := &ns[i]
		if strings.TrimSpace(n.UserID) == "" {
			return apperr.Validation("user_id", "required")
		}
		if strings.TrimSpace(n.Type) == "" {
			return apperr.Validation("type", "required")
		}
		if s.validator != nil {
			if err := s.validator.Validate(ctx, n.Type, n.Metadata); err != nil {
				return err
			}
		}
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
	}

	if err := s.repo.CreateNotifications(ctx, ns); err != nil {
		return fmt.Errorf("create notifications: %w", err)
	}
	for _, n := range ns {
		s.publish(ctx, n.UserID, realtime.ActionInsert, n)
	}
	return nil
}

// Subscribe streams change events for the user's notifications until ctx ends.
func (s *Service) Subscribe(ctx context.Context, userID string) *realtime.Subscription {
	return s.feed.Subscribe(ctx, realtime.Topic(table, userID))
}

func (s *Service) publish(ctx context.Context, userID, action string, record any) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(ctx, realtime.NewEvent(realtime.Topic(table, userID), table, action, record))
}
