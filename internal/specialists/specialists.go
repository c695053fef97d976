// Package specialists assembles the public specialist directory from profile,
// specialist and detail records and lets specialists maintain their own entry.
package specialists

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/garnizeh/terapia/internal/apperr"
	"github.com/garnizeh/terapia/pkg/models"
	"github.com/garnizeh/terapia/pkg/repository"
)

const notFoundMessage = "Especialista não encontrado"

// Drafter produces a short description from a long one.
type Drafter interface {
	DraftShortDescription(ctx context.Context, long string) (string, error)
}

type Service struct {
	profiles    repository.ProfileRepo
	specialists repository.SpecialistRepo
	drafter     Drafter
	draftWait   time.Duration
	logger      *slog.Logger
}

func NewService(profiles repository.ProfileRepo, specialists repository.SpecialistRepo, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{profiles: profiles, specialists: specialists, draftWait: 20 * time.Second, logger: logger}
}

// WithDrafter enables short description drafting on UpdateDetails.
func (s *Service) WithDrafter(d Drafter, wait time.Duration) *Service {
	s.drafter = d
	if wait > 0 {
		s.draftWait = wait
	}
	return s
}

// GetAll lists every specialist profile, newest first, merged with its
// specialist and detail rows.
func (s *Service) GetAll(ctx context.Context) ([]models.SpecialistView, error) {
	profiles, err := s.profiles.ListProfilesByRole(ctx, models.RoleSpecialist)
	if err != nil {
		return nil, fmt.Errorf("list specialist profiles: %w", err)
	}
	return s.assemble(ctx, profiles)
}

// Search matches term against names, specialties and descriptions. An empty
// term lists everyone.
func (s *Service) Search(ctx context.Context, term string) ([]models.SpecialistView, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.GetAll(ctx)
	}

	ids, err := s.specialists.SearchSpecialistIDs(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("search specialists: %w", err)
	}
	if len(ids) == 0 {
		return []models.SpecialistView{}, nil
	}

	profiles, err := s.profiles.ListProfilesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load matched profiles: %w", err)
	}
	return s.assemble(ctx, profiles)
}

// GetDetails returns the merged record for one specialist.
func (s *Service) GetDetails(ctx context.Context, id string) (*models.SpecialistView, error) {
	p, err := s.profiles.GetProfile(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if p == nil {
		return nil, apperr.NotFound("specialist", notFoundMessage)
	}

	views, err := s.assemble(ctx, []models.Profile{*p})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// assemble loads the side tables for profiles concurrently and merges them.
func (s *Service) assemble(ctx context.Context, profiles []models.Profile) ([]models.SpecialistView, error) {
	if len(profiles) == 0 {
		return []models.SpecialistView{}, nil
	}
	ids := make([]string, len(profiles))
	for i, p := range profiles {
		ids[i] = p.ID
	}

	var specs []models.Specialist
	var details []models.SpecialistDetail
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		specs, err = s.specialists.ListSpecialistsByIDs(gctx, ids)
		if err != nil {
			return fmt.Errorf("list specialists: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		details, err = s.specialists.ListDetailsByIDs(gctx, ids)
		if err != nil {
			return fmt.Errorf("list specialist details: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Merge(profiles, specs, details), nil
}
