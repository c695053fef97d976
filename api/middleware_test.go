package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/garnizeh/terapia/api"
	"github.com/garnizeh/terapia/internal/auth"
	"github.com/garnizeh/terapia/pkg/models"
)

func TestLoggingMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	})

	handler := api.LoggingMiddleware(next)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/log", nil))
	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusTeapot {
		t.Fatalf("expected status 418, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if string(b) != "ok" {
		t.Fatalf("unexpected body: %q", string(b))
	}
}

func TestCORSMiddleware(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	handler := api.CORSMiddleware([]string{"https://app.example.com"})(next)

	pre := httptest.NewRequest(http.MethodOptions, "/cors", nil)
	pre.Header.Set("Origin", "https://app.example.com")
	pre.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, pre)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", w.Code)
	}
	if called {
		t.Fatalf("preflight must not reach the handler")
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, http.MethodPatch) {
		t.Fatalf("expected PATCH allowed, got %q", got)
	}

	get := httptest.NewRequest(http.MethodGet, "/cors", nil)
	get.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, get)
	if !called || w.Code != http.StatusOK {
		t.Fatalf("expected GET to pass through, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unknown origin must not be allowed, got %q", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	pan := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	w := httptest.NewRecorder()
	api.RecoveryMiddleware(pan).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 from panic recovery, got %d", w.Code)
	}
	var body struct {
		Error string `json:"error"`
		Code  int    `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Error != "REMOTE_SERVICE_ERROR" || body.Code != 500 {
		t.Fatalf("unexpected body for recovery: %s", w.Body.String())
	}

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	w2 := httptest.NewRecorder()
	api.RecoveryMiddleware(ok).ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 for normal path, got %d", w2.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	a := newTestAPI(t)

	cases := []struct {
		name  string
		token string
	}{
		{"MissingHeader", ""},
		{"BadToken", "bad.token.here"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if status := a.do(t, http.MethodGet, "/v1/sessions", c.token, nil, nil); status != http.StatusUnauthorized {
				t.Fatalf("want 401 got %d", status)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := api.RequireRole(models.RoleAdmin)(next)

	cases := []struct {
		name string
		sess *auth.Session
		want int
	}{
		{"NoSession", nil, http.StatusUnauthorized},
		{"Client", &auth.Session{Profile: models.Profile{ID: "c", Role: models.RoleClient}}, http.StatusForbidden},
		{"Admin", &auth.Session{Profile: models.Profile{ID: "a", Role: models.RoleAdmin}}, http.StatusOK},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx := context.Background()
			if c.sess != nil {
				ctx = auth.WithSession(ctx, c.sess)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil).WithContext(ctx))
			if w.Code != c.want {
				t.Fatalf("want %d got %d", c.want, w.Code)
			}
		})
	}
}
