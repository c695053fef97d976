package specialists

import "github.com/garnizeh/terapia/pkg/models"

// DefaultSpecialty labels specialists who never filled in their specialty.
const DefaultSpecialty = "Não especificada"

// Merge left-joins profiles with their specialist and detail rows, filling
// defaults for whatever is missing. The output keeps the order of profiles.
func Merge(profiles []models.Profile, specs []models.Specialist, details []models.SpecialistDetail) []models.SpecialistView {
	specByID := make(map[string]models.Specialist, len(specs))
	for _, s := range specs {
		specByID[s.ID] = s
	}
	detailByID := make(map[string]models.SpecialistDetail, len(details))
	for _, d := range details {
		detailByID[d.ID] = d
	}

	out := make([]models.SpecialistView, 0, len(profiles))
	for _, p := range profiles {
		v := models.SpecialistView{
			ID:             p.ID,
			Nome:           p.Nome,
			Email:          p.Email,
			AvatarURL:      p.AvatarURL,
			CreatedAt:      p.CreatedAt,
			Specialty:      DefaultSpecialty,
			ExpertiseAreas: []string{},
			Languages:      []string{},
			Certifications: []string{},
		}

		if s, ok := specByID[p.ID]; ok {
			v.HasSpecialistRow = true
			if s.Specialty != "" {
				v.Specialty = s.Specialty
			}
			v.Bio = s.Bio
			v.ExperienceYears = s.ExperienceYears
			v.Rating = s.Rating
		}

		if d, ok := detailByID[p.ID]; ok {
			v.HasDetailRow = true
			v.ShortDescription = d.ShortDescription
			v.LongDescription = d.LongDescription
			v.Education = d.Education
			v.ThumbnailURL = d.ThumbnailURL
			v.SessionsCompleted = d.SessionsCompleted
			v.ExpertiseAreas = orEmpty(d.ExpertiseAreas)
			v.Languages = orEmpty(d.Languages)
			v.Certifications = orEmpty(d.Certifications)
		}
		out = append(out, v)
	}
	return out
}

func orEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
