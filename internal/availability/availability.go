// Package availability serves a specialist's weekly schedule, synthesizing
// placeholder days for the ones never saved.
package availability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/terapia/internal/apperr"
	"github.com/garnizeh/terapia/pkg/models"
	"github.com/garnizeh/terapia/pkg/repository"
)

const (
	DaysPerWeek = 7

	DefaultStart    = "09:00"
	DefaultEnd      = "17:00"
	DefaultInterval = 60
	DefaultMax      = 1
)

type Service struct {
	repo   repository.AvailabilityRepo
	logger *slog.Logger
}

func NewService(repo repository.AvailabilityRepo, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Placeholder returns the unsaved default entry for a day.
func Placeholder(specialistID string, day int) models.Availability {
	return models.Availability{
		ID:              uuid.NewString(),
		EspecialistaID:  specialistID,
		DayOfWeek:       day,
		StartTime:       DefaultStart,
		EndTime:         DefaultEnd,
		IsAvailable:     false,
		IntervalMinutes: DefaultInterval,
		MaxSessions:     DefaultMax,
		Exceptions:      []string{},
		Synthesized:     true,
	}
}

// Complete fills the gaps in stored so the result has one entry per weekday,
// ordered Sunday (0) to Saturday (6). Stored rows are returned unchanged.
func Complete(specialistID string, stored []models.Availability) []models.Availability {
	byDay := make(map[int]models.Availability, len(stored))
	for _, a := range stored {
		if a.DayOfWeek >= 0 && a.DayOfWeek < DaysPerWeek {
			byDay[a.DayOfWeek] = a
		}
	}

	week := make([]models.Availability, DaysPerWeek)
	for day := 0; day < DaysPerWeek; day++ {
		if a, ok := byDay[day]; ok {
			if a.Exceptions == nil {
				a.Exceptions = []string{}
			}
			week[day] = a
			continue
		}
		week[day] = Placeholder(specialistID, day)
	}
	return week
}

// Week returns the full seven-day schedule for a specialist.
func (s *Service) Week(ctx context.Context, specialistID string) ([]models.Availability, error) {
	if specialistID == "" {
		return nil, apperr.Validation("especialista_id", "obrigatório")
	}
	stored, err := s.repo.ListAvailability(ctx, specialistID)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	return Complete(specialistID, stored), nil
}

// UpdateDay validates and stores a single weekday entry, returning the
// refreshed week.
func (s *Service) UpdateDay(ctx context.Context, specialistID string, a models.Availability) ([]models.Availability, error) {
	return s.SaveWeek(ctx, specialistID, []models.Availability{a})
}

// SaveWeek validates and stores entries in one transaction. Entries keep the
// id of the existing row for their weekday.
func (s *Service) SaveWeek(ctx context.Context, specialistID string, entries []models.Availability) ([]models.Availability, error) {
	if specialistID == "" {
		return nil, apperr.Validation("especialista_id", "obrigatório")
	}

	seen := map[int]bool{}
	rows := make([]models.Availability, 0, len(entries))
	for _, a := range entries {
		if err := Validate(a); err != nil {
			return nil, err
		}
		if seen[a.DayOfWeek] {
			return nil, apperr.Validation("day_of_week", fmt.Sprintf("dia %d repetido", a.DayOfWeek))
		}
		seen[a.DayOfWeek] = true

		a.EspecialistaID = specialistID
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.IntervalMinutes == 0 {
			a.IntervalMinutes = DefaultInterval
		}
		if a.MaxSessions == 0 {
			a.MaxSessions = DefaultMax
		}
		if a.Exceptions == nil {
			a.Exceptions = []string{}
		}
		a.Synthesized = false
		rows = append(rows, a)
	}

	if err := s.repo.UpsertAvailability(ctx, rows); err != nil {
		return nil, fmt.Errorf("save availability: %w", err)
	}
	s.logger.Info("availability: saved", "especialista_id", specialistID, "days", len(rows))
	return s.Week(ctx, specialistID)
}

// Validate checks the weekday range, the HH:MM times and the exception dates.
func Validate(a models.Availability) error {
	if a.DayOfWeek < 0 || a.DayOfWeek >= DaysPerWeek {
		return apperr.Validation("day_of_week", "deve estar entre 0 e 6")
	}
	start, err := time.Parse("15:04", a.StartTime)
	if err != nil {
		return apperr.Validation("start_time", "formato esperado HH:MM")
	}
	end, err := time.Parse("15:04", a.EndTime)
	if err != nil {
		return apperr.Validation("end_time", "formato esperado HH:MM")
	}
	if !start.Before(end) {
		return apperr.Validation("end_time", "deve ser posterior ao início")
	}
	if a.IntervalMinutes < 0 {
		return apperr.Validation("interval_minutes", "não pode ser negativo")
	}
	if a.MaxSessions < 0 {
		return apperr.Validation("max_sessions", "não pode ser negativo")
	}
	for _, d := range a.Exceptions {
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			return apperr.Validation("exceptions", fmt.Sprintf("data inválida %q", d))
		}
	}
	return nil
}
