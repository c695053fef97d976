package api_test

import (
	"net/http"
	"testing"

	"github.com/garnizeh/terapia/internal/auth"
	"github.com/garnizeh/terapia/pkg/models"
)

func TestAuthHandlers(t *testing.T) {
	a := newTestAPI(t)

	tests := []struct {
		name       string
		path       string
		body       any
		wantStatus int
	}{
		{"Signup_InvalidRequest", "/v1/auth/signup", "not a json", http.StatusBadRequest},
		{"Signup_MissingName", "/v1/auth/signup", map[string]string{"email": "alice@example.com", "password": "s3cret-pass"}, http.StatusBadRequest},
		{"Signup_BadEmail", "/v1/auth/signup", map[string]string{"nome": "Alice", "email": "alice", "password": "s3cret-pass"}, http.StatusBadRequest},
		{"Signup_AdminRole", "/v1/auth/signup", map[string]string{"nome": "Alice", "email": "alice@example.com", "password": "s3cret-pass", "role": models.RoleAdmin}, http.StatusBadRequest},
		{"Signup_Success", "/v1/auth/signup", map[string]string{"nome": "Alice", "email": "alice@example.com", "password": "s3cret-pass"}, http.StatusCreated},
		{"Signup_DuplicateEmail", "/v1/auth/signup", map[string]string{"nome": "Alice", "email": "ALICE@example.com", "password": "s3cret-pass"}, http.StatusBadRequest},
		{"Signin_InvalidRequest", "/v1/auth/signin", "not a json", http.StatusBadRequest},
		{"Signin_MissingUser", "/v1/auth/signin", map[string]string{"email": "missing@example.com", "password": "nop"}, http.StatusUnauthorized},
		{"Signin_WrongPassword", "/v1/auth/signin", map[string]string{"email": "alice@example.com", "password": "wrong"}, http.StatusUnauthorized},
		{"Signin_Success", "/v1/auth/signin", map[string]string{"email": "alice@example.com", "password": "s3cret-pass"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res auth.Result
			status := a.do(t, http.MethodPost, tt.path, "", tt.body, &res)
			if status != tt.wantStatus {
				t.Fatalf("expected status %d got %d", tt.wantStatus, status)
			}
			if status < 300 && (res.Token == "" || res.Profile.Role != models.RoleClient) {
				t.Fatalf("unexpected result: %#v", res)
			}
		})
	}
}

func TestSessionAndSignout(t *testing.T) {
	a := newTestAPI(t)
	token, profile := a.signup(t, "Bia", "bia@example.com", models.RoleSpecialist)

	var sess auth.Session
	if status := a.do(t, http.MethodGet, "/v1/auth/session", token, nil, &sess); status != http.StatusOK {
		t.Fatalf("session: status %d", status)
	}
	if sess.Profile.ID != profile.ID || sess.Profile.Role != models.RoleSpecialist {
		t.Fatalf("unexpected session: %#v", sess)
	}

	if status := a.do(t, http.MethodPost, "/v1/auth/signout", token, nil, nil); status != http.StatusOK {
		t.Fatalf("signout: status %d", status)
	}
	if status := a.do(t, http.MethodGet, "/v1/auth/session", token, nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("revoked token: expected 401 got %d", status)
	}
}
