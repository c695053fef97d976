// Package messaging stores direct messages between users and keeps each
// user's conversation list current.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/terapia/internal/apperr"
	"github.com/garnizeh/terapia/internal/realtime"
	"github.com/garnizeh/terapia/pkg/models"
	"github.com/garnizeh/terapia/pkg/repository"
)

const (
	table = "messages"

	MaxContentLength = 4000
)

type Feed interface {
	realtime.Publisher
	Subscribe(ctx context.Context, topics ...string) *realtime.Subscription
}

type Service struct {
	repo   repository.MessageRepo
	feed   Feed
	logger *slog.Logger
}

func NewService(repo repository.MessageRepo, feed Feed, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, feed: feed, logger: logger}
}

// Send stores a message from sender to receiver and notifies both sides.
func (s *Service) Send(ctx context.Context, senderID, receiverID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	switch {
	case receiverID == "":
		return nil, apperr.Validation("receiver_id", "obrigatório")
	case receiverID == senderID:
		return nil, apperr.Validation("receiver_id", "não é possível enviar mensagem para si mesmo")
	case content == "":
		return nil, apperr.Validation("content", "obrigatório")
	case len([]rune(content)) > MaxContentLength:
		return nil, apperr.Validation("content", fmt.Sprintf("máximo de %d caracteres", MaxContentLength))
	}

	m := &models.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.SendMessage(ctx, m); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	s.publish(ctx, receiverID, realtime.ActionInsert, m)
	s.publish(ctx, senderID, realtime.ActionInsert, m)
	return m, nil
}

func (s *Service) Conversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	convs, err := s.repo.ListSummaries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

func (s *Service) Thread(ctx context.Context, userID, counterpartID string) ([]models.Message, error) {
	msgs, err := s.repo.ListThread(ctx, userID, counterpartID)
	if err != nil {
		return nil, fmt.Errorf("list thread: %w", err)
	}
	return msgs, nil
}

// MarkThreadRead marks every message counterpartID sent to userID as read
// and returns how many changed.
func (s *Service) MarkThreadRead(ctx context.Context, userID, counterpartID string) (int, error) {
	ids, err := s.repo.MarkThreadRead(ctx, userID, counterpartID)
	if err != nil {
		return 0, fmt.Errorf("mark thread read: %w", err)
	}
	if len(ids) > 0 {
		rec := map[string]any{"ids": ids, "lido": true, "reader_id": userID}
		s.publish(ctx, userID, realtime.ActionUpdate, rec)
		s.publish(ctx, counterpartID, realtime.ActionUpdate, rec)
	}
	return len(ids), nil
}

// RebuildSummaries recomputes userID's stored conversation list from the
// message history.
func (s *Service) RebuildSummaries(ctx context.Context, userID string) ([]models.Conversation, error) {
	msgs, err := s.repo.ListMessagesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	convs := DeriveConversations(msgs, userID)
	if err := s.repo.ReplaceSummaries(ctx, userID, convs); err != nil {
		return nil, fmt.Errorf("replace summaries: %w", err)
	}
	s.logger.Info("messaging: summaries rebuilt", "user_id", userID, "conversations", len(convs))
	return s.Conversations(ctx, userID)
}

// Subscribe streams message events addressed to userID until ctx ends.
func (s *Service) Subscribe(ctx context.Context, userID string) *realtime.Subscription {
	return s.feed.Subscribe(ctx, realtime.Topic(table, userID))
}

func (s *Service) publish(ctx context.Context, userID, action string, record any) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(ctx, realtime.NewEvent(realtime.Topic(table, userID), table, action, record))
}
