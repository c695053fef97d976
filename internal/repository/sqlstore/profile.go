package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/terapia/pkg/models"
)

const profileColumns = `id, nome, email, avatar_url, role, password_hash, birthday_greeted, created_at`

func scanProfile(sc scanner) (*models.Profile, error) {
	var p models.Profile
	var created int64
	if err := sc.Scan(&p.ID, &p.Nome, &p.Email, &p.AvatarURL, &p.Role, &p.PasswordHash, &p.BirthdayGreeted, &created); err != nil {
		return nil, err
	}
	p.CreatedAt = fromMillis(created)
	return &p, nil
}

func (r *Store) CreateProfile(ctx context.Context, p *models.Profile) error {
	if p == nil {
		return fmt.Errorf("profile is nil")
	}
	if p.Role == "" {
		p.Role = models.RoleClient
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = fromMillis(now())
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Nome, p.Email, p.AvatarURL, p.Role, p.PasswordHash, p.BirthdayGreeted, toMillis(p.CreatedAt))
	return err
}

func (r *Store) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	p, err := scanProfile(r.conn.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *Store) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	p, err := scanProfile(r.conn.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// UpdateProfile writes the editable fields. Role changes go through RegisterSpecialist.
func (r *Store) UpdateProfile(ctx context.Context, p *models.Profile) error {
	if p == nil {
		return fmt.Errorf("profile is nil")
	}

	_, err := r.conn.Exec(ctx, `UPDATE profiles SET nome = ?, email = ?, avatar_url = ?, password_hash = ? WHERE id = ?`,
		p.Nome, p.Email, p.AvatarURL, p.PasswordHash, p.ID)
	return err
}

func (r *Store) ListProfilesByRole(ctx context.Context, role string) ([]models.Profile, error) {
	return r.queryProfiles(ctx, `SELECT `+profileColumns+` FROM profiles WHERE role = ? ORDER BY created_at DESC`, role)
}

func (r *Store) ListProfilesByIDs(ctx context.Context, ids []string) ([]models.Profile, error) {
	if len(ids) == 0 {
		return []models.Profile{}, nil
	}
	in, args := inClause(ids)
	return r.queryProfiles(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id IN (`+in+`) ORDER BY created_at DESC`, args...)
}

func (r *Store) CountProfilesByRole(ctx context.Context) (map[string]int64, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT role, COUNT(*) FROM profiles GROUP BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var role string
		var n int64
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		out[role] = n
	}
	return out, rows.Err()
}

// ListProfilesNotGreeted feeds the birthday pass. There is no birth date column,
// so every profile not yet greeted qualifies.
func (r *Store) ListProfilesNotGreeted(ctx context.Context) ([]models.Profile, error) {
	return r.queryProfiles(ctx, `SELECT `+profileColumns+` FROM profiles WHERE birthday_greeted = ? ORDER BY created_at ASC`, false)
}

func (r *Store) MarkBirthdayGreeted(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	in, args := inClause(ids)
	_, err := r.conn.Exec(ctx, `UPDATE profiles SET birthday_greeted = ? WHERE id IN (`+in+`)`, append([]any{true}, args...)...)
	return err
}

func (r *Store) queryProfiles(ctx context.Context, q string, args ...any) ([]models.Profile, error) {
	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
