package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/garnizeh/terapia/pkg/models"
	"github.com/garnizeh/terapia/pkg/repository"
)

// Test helpers and mocks
type Mocks struct {
	Sessions *SessionRepo
	Profiles *ProfileRepo
}

func NewMocks() *Mocks {
	return &Mocks{
		Sessions: NewSessionRepo(),
		Profiles: &ProfileRepo{Stored: map[string]*models.Profile{}},
	}
}

var _ repository.SessionRepo = (*SessionRepo)(nil)
var _ repository.ProfileRepo = (*ProfileRepo)(nil)

// SessionRepo keeps sessions in memory and counts every call.
type SessionRepo struct {
	mu        sync.Mutex
	Stored    map[string]*models.Session
	Calls     int
	CreateErr error
	ListErr   error
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{Stored: map[string]*models.Session{}}
}

func (m *SessionRepo) touch() {
	m.Calls++
}

func (m *SessionRepo) CreateSession(ctx context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	cp := *s
	m.Stored[s.ID] = &cp
	return nil
}

func (m *SessionRepo) GetSession(ctx context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	s, ok := m.Stored[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *SessionRepo) ListSessions(ctx context.Context, f repository.SessionFilter) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := []models.Session{}
	for _, s := range m.Stored {
		if matches(s, f) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DataHora.After(out[j].DataHora) })
	return out, nil
}

func (m *SessionRepo) UpdateSession(ctx context.Context, id string, p models.SessionPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	s, ok := m.Stored[id]
	if !ok {
		return nil
	}
	if p.ClienteID != nil {
		s.ClienteID = p.ClienteID
	}
	if p.EspecialistaID != nil {
		v := *p.EspecialistaID
		s.EspecialistaID = &v
	}
	if p.DataHora != nil {
		s.DataHora = *p.DataHora
	}
	if p.TipoSessao != nil {
		s.TipoSessao = *p.TipoSessao
	}
	if p.Notas != nil {
		s.Notas = *p.Notas
	}
	if p.Valor != nil {
		s.Valor = *p.Valor
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.EmailConvidado != nil {
		s.EmailConvidado = *p.EmailConvidado
	}
	return nil
}

func (m *SessionRepo) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	delete(m.Stored, id)
	return nil
}

func (m *SessionRepo) MarkInviteSent(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	if s, ok := m.Stored[id]; ok {
		s.ConviteEnviadoEm = &at
		s.ConviteStatus = models.InviteSent
	}
	return nil
}

func (m *SessionRepo) SaveFeedback(ctx context.Context, id string, rating int, comments string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	if s, ok := m.Stored[id]; ok {
		s.FeedbackRating = &rating
		s.FeedbackComentarios = comments
		s.FeedbackEnviadoEm = &at
	}
	return nil
}

func (m *SessionRepo) CountSessions(ctx context.Context, f repository.SessionFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	var n int64
	for _, s := range m.Stored {
		if matches(s, f) {
			n++
		}
	}
	return n, nil
}

func (m *SessionRepo) ListDueReminders(ctx context.Context, from, to time.Time) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	out := []models.Session{}
	for _, s := range m.Stored {
		if s.DataHora.After(from) && !s.DataHora.After(to) && s.Status != models.SessionCancelled && !s.LembreteEnviado {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *SessionRepo) MarkReminded(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	for _, id := range ids {
		if s, ok := m.Stored[id]; ok {
			s.LembreteEnviado = true
		}
	}
	return nil
}

func (m *SessionRepo) ListFeedbackPending(ctx context.Context) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	out := []models.Session{}
	for _, s := range m.Stored {
		if s.Status == models.SessionCompleted && !s.FeedbackSolicitado {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *SessionRepo) MarkFeedbackRequested(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	for _, id := range ids {
		if s, ok := m.Stored[id]; ok {
			s.FeedbackSolicitado = true
		}
	}
	return nil
}

func matches(s *models.Session, f repository.SessionFilter) bool {
	if f.ClienteID != "" && (s.ClienteID == nil || *s.ClienteID != f.ClienteID) {
		return false
	}
	if f.EspecialistaID != "" && (s.EspecialistaID == nil || *s.EspecialistaID != f.EspecialistaID) {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	return true
}

// ProfileRepo is a map-backed ProfileRepo.
type ProfileRepo struct {
	mu     sync.Mutex
	Stored map[string]*models.Profile
}

func (m *ProfileRepo) CreateProfile(ctx context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.Stored[p.ID] = &cp
	return nil
}

func (m *ProfileRepo) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.Stored[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *ProfileRepo) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.Stored {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *ProfileRepo) UpdateProfile(ctx context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.Stored[p.ID] = &cp
	return nil
}

func (m *ProfileRepo) ListProfilesByRole(ctx context.Context, role string) ([]models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Profile{}
	for _, p := range m.Stored {
		if p.Role == role {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *ProfileRepo) ListProfilesByIDs(ctx context.Context, ids []string) ([]models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Profile{}
	for _, id := range ids {
		if p, ok := m.Stored[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *ProfileRepo) CountProfilesByRole(ctx context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int64{}
	for _, p := range m.Stored {
		out[p.Role]++
	}
	return out, nil
}

func (m *ProfileRepo) ListProfilesNotGreeted(ctx context.Context) ([]models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Profile{}
	for _, p := range m.Stored {
		if !p.BirthdayGreeted {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *ProfileRepo) MarkBirthdayGreeted(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if p, ok := m.Stored[id]; ok {
			p.BirthdayGreeted = true
		}
	}
	return nil
}
