package specialists

import (
	"context"
	"fmt"
	"strings"

	"github.com/garnizeh/terapia/internal/apperr"
	"github.com/garnizeh/terapia/pkg/models"
)

type RegisterInput struct {
	Specialty       string        `json:"specialty"`
	Bio             string        `json:"bio"`
	ExperienceYears int           `json:"experience_years"`
	Details         *DetailsPatch `json:"details,omitempty"`
}

// DetailsPatch carries the detail fields to change; nil fields keep their value.
type DetailsPatch struct {
	ShortDescription  *string   `json:"short_description,omitempty"`
	LongDescription   *string   `json:"long_description,omitempty"`
	Education         *string   `json:"education,omitempty"`
	ThumbnailURL      *string   `json:"thumbnail_url,omitempty"`
	SessionsCompleted *int      `json:"sessions_completed,omitempty"`
	ExpertiseAreas    *[]string `json:"expertise_areas,omitempty"`
	Languages         *[]string `json:"languages,omitempty"`
	Certifications    *[]string `json:"certifications,omitempty"`
}

func (p *DetailsPatch) apply(d *models.SpecialistDetail) {
	if p.ShortDescription != nil {
		d.ShortDescription = strings.TrimSpace(*p.ShortDescription)
	}
	if p.LongDescription != nil {
		d.LongDescription = strings.TrimSpace(*p.LongDescription)
	}
	if p.Education != nil {
		d.Education = *p.Education
	}
	if p.ThumbnailURL != nil {
		d.ThumbnailURL = *p.ThumbnailURL
	}
	if p.SessionsCompleted != nil {
		d.SessionsCompleted = *p.SessionsCompleted
	}
	if p.ExpertiseAreas != nil {
		d.ExpertiseAreas = *p.ExpertiseAreas
	}
	if p.Languages != nil {
		d.Languages = *p.Languages
	}
	if p.Certifications != nil {
		d.Certifications = *p.Certifications
	}
}

func (p *DetailsPatch) validate() error {
	if p.SessionsCompleted != nil && *p.SessionsCompleted < 0 {
		return apperr.Validation("sessions_completed", "não pode ser negativo")
	}
	return nil
}

// Register creates or refreshes the specialist record for userID, promotes the
// profile to the specialist role and optionally writes the details. Repeating
// it leaves exactly one specialist row and at most one detail row.
func (s *Service) Register(ctx context.Context, userID string, in RegisterInput) (*models.SpecialistView, error) {
	if in.ExperienceYears < 0 {
		return nil, apperr.Validation("experience_years", "não pode ser negativo")
	}
	if in.Details != nil {
		if err := in.Details.validate(); err != nil {
			return nil, err
		}
	}

	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if p == nil {
		return nil, apperr.NotFound("profile", "Perfil não encontrado")
	}

	spec := &models.Specialist{
		ID:              userID,
		Specialty:       strings.TrimSpace(in.Specialty),
		Bio:             strings.TrimSpace(in.Bio),
		ExperienceYears: in.ExperienceYears,
	}

	var detail *models.SpecialistDetail
	if in.Details != nil {
		detail, err = s.currentDetail(ctx, userID)
		if err != nil {
			return nil, err
		}
		in.Details.apply(detail)
		s.draftIfMissing(ctx, detail)
	}

	if err := s.specialists.RegisterSpecialist(ctx, spec, detail); err != nil {
		return nil, fmt.Errorf("register specialist: %w", err)
	}
	return s.GetDetails(ctx, userID)
}

// UpdateDetails upserts the detail row of a registered specialist.
func (s *Service) UpdateDetails(ctx context.Context, id string, patch DetailsPatch) (*models.SpecialistView, error) {
	if err := patch.validate(); err != nil {
		return nil, err
	}

	current, err := s.GetDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.HasSpecialistRow {
		return nil, apperr.Validation("id", "Perfil de especialista não cadastrado")
	}

	detail, err := s.currentDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.apply(detail)
	s.draftIfMissing(ctx, detail)

	if err := s.specialists.UpsertDetail(ctx, detail); err != nil {
		return nil, fmt.Errorf("update specialist details: %w", err)
	}
	return s.GetDetails(ctx, id)
}

func (s *Service) currentDetail(ctx context.Context, id string) (*models.SpecialistDetail, error) {
	rows, err := s.specialists.ListDetailsByIDs(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("load specialist details: %w", err)
	}
	if len(rows) > 0 {
		d := rows[0]
		return &d, nil
	}
	return &models.SpecialistDetail{ID: id}, nil
}

// draftIfMissing fills an empty short description from the long one when an
// assistant is configured. Failures leave the field empty.
func (s *Service) draftIfMissing(ctx context.Context, d *models.SpecialistDetail) {
	if s.drafter == nil || d.ShortDescription != "" || d.LongDescription == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.draftWait)
	defer cancel()
	short, err := s.drafter.DraftShortDescription(ctx, d.LongDescription)
	if err != nil {
		s.logger.Warn("specialists: short description draft failed", "id", d.ID, "err", err)
		return
	}
	d.ShortDescription = short
}
