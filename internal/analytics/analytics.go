// Package analytics computes the admin dashboard totals.
package analytics

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/garnizeh/terapia/pkg/models"
	"github.com/garnizeh/terapia/pkg/repository"
)

type Sessions struct {
	Total     int64 `json:"total"`
	Scheduled int64 `json:"scheduled"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
}

type Overview struct {
	ProfilesByRole      map[string]int64         `json:"profiles_by_role"`
	Sessions            Sessions                 `json:"sessions"`
	Payments            repository.PaymentTotals `json:"payments"`
	UnreadNotifications int64                    `json:"unread_notifications"`
	GeneratedAt         time.Time                `json:"generated_at"`
}

type Service struct {
	profiles      repository.ProfileRepo
	sessions      repository.SessionRepo
	payments      repository.PaymentRepo
	notifications repository.NotificationRepo
}

func NewService(profiles repository.ProfileRepo, sessions repository.SessionRepo, payments repository.PaymentRepo, notifications repository.NotificationRepo) *Service {
	return &Service{profiles: profiles, sessions: sessions, payments: payments, notifications: notifications}
}

func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	out := &Overview{GeneratedAt: time.Now().UTC()}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.profiles.CountProfilesByRole(gctx)
		if err != nil {
			return fmt.Errorf("count profiles: %w", err)
		}
		out.ProfilesByRole = counts
		return nil
	})

	statusCounts := []struct {
		status string
		dst    *int64
	}{
		{"", &out.Sessions.Total},
		{models.SessionScheduled, &out.Sessions.Scheduled},
		{models.SessionCompleted, &out.Sessions.Completed},
		{models.SessionCancelled, &out.Sessions.Cancelled},
	}
	for _, sc := range statusCounts {
		g.Go(func() error {
			n, err := s.sessions.CountSessions(gctx, repository.SessionFilter{Status: sc.status})
			if err != nil {
				return fmt.Errorf("count sessions %q: %w", sc.status, err)
			}
			*sc.dst = n
			return nil
		})
	}

	g.Go(func() error {
		totals, err := s.payments.PaymentTotals(gctx)
		if err != nil {
			return fmt.Errorf("payment totals: %w", err)
		}
		out.Payments = totals
		return nil
	})

	g.Go(func() error {
		n, err := s.notifications.CountAllUnread(gctx)
		if err != nil {
			return fmt.Errorf("count unread notifications: %w", err)
		}
		out.UnreadNotifications = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
