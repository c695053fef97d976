// Package auth handles sign-up, sign-in and sign-out and resolves bearer
// tokens into the caller's session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/terapia/internal/apperr"
	"github.com/garnizeh/terapia/pkg/models"
	"github.com/garnizeh/terapia/pkg/repository"
)

const MinPasswordLength = 8

var errBadCredentials = fmt.Errorf("%w: credenciais inválidas", apperr.ErrUnauthorized)

// Session is the authenticated caller. Profile is read from the store on
// every request so role changes apply immediately.
type Session struct {
	Profile   models.Profile `json:"profile"`
	TokenID   string         `json:"-"`
	ExpiresAt time.Time      `json:"expires_at"`
}

type ctxKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by the auth middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}

type SignupInput struct {
	Nome     string `json:"nome"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type Result struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Profile   models.Profile `json:"profile"`
}

type Service struct {
	profiles repository.ProfileRepo
	issuer   *Issuer
	denylist Denylist
	logger   *slog.Logger
}

func NewService(profiles repository.ProfileRepo, issuer *Issuer, denylist Denylist, logger *slog.Logger) *Service {
	if denylist == nil {
		denylist = NewMemoryDenylist()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{profiles: profiles, issuer: issuer, denylist: denylist, logger: logger}
}

// Signup creates a client or specialist profile and signs the user in.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*Result, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Nome = strings.TrimSpace(in.Nome)
	if in.Nome == "" {
		return nil, apperr.Validation("nome", "obrigatório")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, apperr.Validation("email", "inválido")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperr.Validation("password", fmt.Sprintf("mínimo de %d caracteres", MinPasswordLength))
	}
	switch in.Role {
	case "":
		in.Role = models.RoleClient
	case models.RoleClient, models.RoleSpecialist:
	default:
		return nil, apperr.Validation("role", "deve ser client ou specialist")
	}

	existing, err := s.profiles.GetProfileByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if existing != nil {
		return nil, apperr.Validation("email", "já cadastrado")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	p := &models.Profile{
		ID:           uuid.NewString(),
		Nome:         in.Nome,
		Email:        in.Email,
		Role:         in.Role,
		PasswordHash: string(hash),
	}
	if err := s.profiles.CreateProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	s.logger.Info("auth: signup", "profile_id", p.ID, "role", p.Role)
	return s.issue(p)
}

// Signin checks the password and issues a new token. Unknown emails and wrong
// passwords fail the same way.
func (s *Service) Signin(ctx context.Context, email, password string) (*Result, error) {
	p, err := s.profiles.GetProfileByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if p == nil || p.PasswordHash == "" {
		return nil, errBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return nil, errBadCredentials
	}
	return s.issue(p)
}

// Signout revokes the session's token until it would have expired.
func (s *Service) Signout(ctx context.Context, sess *Session) error {
	if sess == nil {
		return apperr.ErrUnauthorized
	}
	if err := s.denylist.Revoke(ctx, sess.TokenID, sess.ExpiresAt); err != nil {
		return fmt.Errorf("signout: %w", err)
	}
	return nil
}

// Authenticate resolves a bearer token into a session.
func (s *Service) Authenticate(ctx context.Context, token string) (*Session, error) {
	claims, err := s.issuer.Parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("%w: token revoked", apperr.ErrUnauthorized)
	}

	p, err := s.profiles.GetProfile(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: profile not found", apperr.ErrUnauthorized)
	}
	return &Session{Profile: *p, TokenID: claims.ID, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, apperr.ErrUnauthorized)
}

func (s *Service) issue(p *models.Profile) (*Result, error) {
	tok, claims, err := s.issuer.Issue(p.ID)
	if err != nil {
		return nil, err
	}
	return &Result{Token: tok, ExpiresAt: claims.ExpiresAt.Time, Profile: *p}, nil
}
