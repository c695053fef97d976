package sqlstore

import (
	"context"
	"fmt"

	"github.com/garnizeh/terapia/internal/db"
	"github.com/garnizeh/terapia/pkg/models"
)

func (r *Store) ListSpecialistsByIDs(ctx context.Context, ids []string) ([]models.Specialist, error) {
	out := []models.Specialist{}
	if len(ids) == 0 {
		return out, nil
	}

	in, args := inClause(ids)
	rows, err := r.conn.QueryRows(ctx, `SELECT id, specialty, bio, experience_years, rating, created_at, updated_at FROM specialists WHERE id IN (`+in+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var s models.Specialist
		var created, updated int64
		if err := rows.Scan(&s.ID, &s.Specialty, &s.Bio, &s.ExperienceYears, &s.Rating, &created, &updated); err != nil {
			return nil, err
		}
		s.CreatedAt = fromMillis(created)
		s.UpdatedAt = fromMillis(updated)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Store) ListDetailsByIDs(ctx context.Context, ids []string) ([]models.SpecialistDetail, error) {
	out := []models.SpecialistDetail{}
	if len(ids) == 0 {
		return out, nil
	}

	in, args := inClause(ids)
	q := `SELECT id, short_description, long_description, education, thumbnail_url, sessions_completed, expertise_areas, languages, certifications, updated_at FROM specialist_details WHERE id IN (` + in + `)`
	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var d models.SpecialistDetail
		var areas, langs, certs string
		var updated int64
		if err := rows.Scan(&d.ID, &d.ShortDescription, &d.LongDescription, &d.Education, &d.ThumbnailURL, &d.SessionsCompleted, &areas, &langs, &certs, &updated); err != nil {
			return nil, err
		}
		d.ExpertiseAreas = decodeList(areas)
		d.Languages = decodeList(langs)
		d.Certifications = decodeList(certs)
		d.UpdatedAt = fromMillis(updated)
		out = append(out, d)
	}
	return out, rows.Err()
}

// SearchSpecialistIDs matches term case-insensitively against the profile,
// specialist and detail text columns. Array columns are matched on their JSON text.
func (r *Store) SearchSpecialistIDs(ctx context.Context, term string) ([]string, error) {
	pat := likePattern(term)
	cols := []string{
		"p.nome", "p.email",
		"s.specialty", "s.bio",
		"d.short_description", "d.long_description", "d.education",
		"d.expertise_areas", "d.languages",
	}

	q := `SELECT p.id FROM profiles p
LEFT JOIN specialists s ON s.id = p.id
LEFT JOIN specialist_details d ON d.id = p.id
WHERE p.role = ? AND (`
	args := []any{models.RoleSpecialist}
	for i, c := range cols {
		if i > 0 {
			q += " OR "
		}
		q += r.conn.Lower("COALESCE("+c+", '')") + " LIKE ? ESCAPE '\\'"
		args = append(args, pat)
	}
	q += `) ORDER BY p.created_at DESC`

	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RegisterSpecialist upserts the specialist row, promotes the profile and
// optionally upserts the detail row in one transaction. Repeating it converges on
// a single row per table.
func (r *Store) RegisterSpecialist(ctx context.Context, s *models.Specialist, detail *models.SpecialistDetail) error {
	if s == nil {
		return fmt.Errorf("specialist is nil")
	}

	ts := now()
	return r.conn.WithTx(ctx, func(tx *db.Tx) error {
		q := `INSERT INTO specialists (id, specialty, bio, experience_years, rating, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET specialty = excluded.specialty, bio = excluded.bio, experience_years = excluded.experience_years, updated_at = excluded.updated_at`
		if _, err := tx.Exec(ctx, q, s.ID, s.Specialty, s.Bio, s.ExperienceYears, s.Rating, ts, ts); err != nil {
			return fmt.Errorf("upsert specialist: %w", err)
		}

		if _, err := tx.Exec(ctx, `UPDATE profiles SET role = ? WHERE id = ? AND role <> ?`, models.RoleSpecialist, s.ID, models.RoleSpecialist); err != nil {
			return fmt.Errorf("promote profile: %w", err)
		}

		if detail != nil {
			detail.ID = s.ID
			if err := upsertDetail(ctx, tx, detail, ts); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Store) UpsertDetail(ctx context.Context, d *models.SpecialistDetail) error {
	if d == nil {
		return fmt.Errorf("detail is nil")
	}
	return r.conn.WithTx(ctx, func(tx *db.Tx) error {
		return upsertDetail(ctx, tx, d, now())
	})
}

func upsertDetail(ctx context.Context, tx *db.Tx, d *models.SpecialistDetail, ts int64) error {
	q := `INSERT INTO specialist_details (id, short_description, long_description, education, thumbnail_url, sessions_completed, expertise_areas, languages, certifications, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET short_description = excluded.short_description, long_description = excluded.long_description,
education = excluded.education, thumbnail_url = excluded.thumbnail_url, sessions_completed = excluded.sessions_completed,
expertise_areas = excluded.expertise_areas, languages = excluded.languages, certifications = excluded.certifications, updated_at = excluded.updated_at`
	_, err := tx.Exec(ctx, q, d.ID, d.ShortDescription, d.LongDescription, d.Education, d.ThumbnailURL, d.SessionsCompleted,
		encodeList(d.ExpertiseAreas), encodeList(d.Languages), encodeList(d.Certifications), ts)
	if err != nil {
		return fmt.Errorf("upsert specialist detail: %w", err)
	}
	d.UpdatedAt = fromMillis(ts)
	return nil
}
