package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/garnizeh/terapia/internal/apperr"
)

// Claims are the registered claims carried by access tokens. The subject is
// the profile id; the role is never trusted from the token.
type Claims struct {
	jwt.RegisteredClaims
}

type Issuer struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

func NewIssuer(secret string, duration time.Duration) *Issuer {
	if duration <= 0 {
		duration = 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), duration: duration, now: time.Now}
}

// Issue signs an HS256 token for profileID with a fresh token id.
func (i *Issuer) Issue(profileID string) (string, *Claims, error) {
	now := i.now()
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   profileID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.duration)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return tok, claims, nil
}

// Parse verifies signature and expiry. Every failure wraps apperr.ErrUnauthorized.
func (i *Issuer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", apperr.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnauthorized, err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: incomplete token", apperr.ErrUnauthorized)
	}
	return claims, nil
}
