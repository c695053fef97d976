package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/terapia/api"
	dbfs "github.com/garnizeh/terapia/db"
	"github.com/garnizeh/terapia/internal/analytics"
	"github.com/garnizeh/terapia/internal/auth"
	"github.com/garnizeh/terapia/internal/availability"
	"github.com/garnizeh/terapia/internal/config"
	dbpkg "github.com/garnizeh/terapia/internal/db"
	"github.com/garnizeh/terapia/internal/messaging"
	"github.com/garnizeh/terapia/internal/notifications"
	"github.com/garnizeh/terapia/internal/realtime"
	"github.com/garnizeh/terapia/internal/repository/sqlstore"
	"github.com/garnizeh/terapia/internal/sessions"
	"github.com/garnizeh/terapia/internal/specialists"
	"github.com/garnizeh/terapia/pkg/models"
)

type testAPI struct {
	srv   *httptest.Server
	store *sqlstore.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	d, err := dbpkg.New(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := dbpkg.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := sqlstore.New(d, nil)
	broker := realtime.NewBroker(nil, 16)

	validator, err := notifications.NewMetadataValidator()
	if err != nil {
		t.Fatalf("NewMetadataValidator: %v", err)
	}
	notifier := notifications.NewService(store, validator, broker, nil)

	cfg := &config.Config{JWTSecret: "testsecret", TokenDuration: time.Hour}
	deps := api.Deps{
		DB:            d,
		Profiles:      store,
		Auth:          auth.NewService(store, auth.NewIssuer(cfg.JWTSecret, cfg.TokenDuration), auth.NewMemoryDenylist(), nil),
		Sessions:      sessions.NewService(store, store, notifier, broker, nil),
		Specialists:   specialists.NewService(store, store, nil),
		Availability:  availability.NewService(store, nil),
		Messaging:     messaging.NewService(store, broker, nil),
		Notifications: notifier,
		Dispatcher:    notifications.NewDispatcher(store, store, store, notifier, nil),
		Analytics:     analytics.NewService(store, store, store, store),
		Feed:          broker,
	}
	srv := httptest.NewServer(api.SetupRoutes(cfg, "test", "now", deps))
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, store: store}
}

// signup registers a user through the API and returns its token and profile.
func (a *testAPI) signup(t *testing.T, name, email, role string) (string, models.Profile) {
	t.Helper()
	var res auth.Result
	status := a.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"nome": name, "email": email, "password": "s3cret-pass", "role": role,
	}, &res)
	if status != http.StatusCreated {
		t.Fatalf("signup %s: status %d", email, status)
	}
	return res.Token, res.Profile
}

// admin stores an admin profile directly, since signup never grants the role.
func (a *testAPI) admin(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	p := &models.Profile{ID: uuid.NewString(), Nome: "Admin", Email: "admin@example.com", Role: models.RoleAdmin, PasswordHash: string(hash)}
	if err := a.store.CreateProfile(context.Background(), p); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	var res auth.Result
	if status := a.do(t, http.MethodPost, "/v1/auth/signin", "", map[string]string{"email": p.Email, "password": "admin-pass"}, &res); status != http.StatusOK {
		t.Fatalf("admin signin: status %d", status)
	}
	return res.Token
}

// do sends a JSON request and decodes the response into out when it is set.
func (a *testAPI) do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := a.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	data, _ := io.ReadAll(res.Body)
	if out != nil && res.StatusCode < 300 && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("%s %s: decode %s: %v", method, path, data, err)
		}
	}
	return res.StatusCode
}
