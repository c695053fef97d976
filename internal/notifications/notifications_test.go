package notifications_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/goleak"

	dbfs "github.com/garnizeh/terapia/db"
	"github.com/garnizeh/terapia/internal/apperr"
	dbpkg "github.com/garnizeh/terapia/internal/db"
	"github.com/garnizeh/terapia/internal/notifications"
	"github.com/garnizeh/terapia/internal/realtime"
	"github.com/garnizeh/terapia/internal/repository/sqlstore"
	"github.com/garnizeh/terapia/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func setup(t *testing.T) (*sqlstore.Store, *notifications.Service, *realtime.Broker) {
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

	v, err := notifications.NewMetadataValidator()
	if err != nil {
		t.Fatalf("NewMetadataValidator: %v", err)
	}
	store := sqlstore.New(d, nil)
	broker := realtime.NewBroker(nil, 16)
	return store, notifications.NewService(store, v, broker, nil), broker
}

func TestMetadataValidation(t *testing.T) {
	v, err := notifications.NewMetadataValidator()
	if err != nil {
		t.Fatalf("NewMetadataValidator: %v", err)
	}
	ctx := context.Background()

	tests := []struct {
		name    string
		typ     string
		meta    string
		wantErr bool
	}{
		{"empty metadata", models.NotificationPaymentDue, "", false},
		{"valid payment", models.NotificationPaymentDue, `{"payment_id":"p1","valor":10}`, false},
		{"missing required", models.NotificationPaymentDue, `{"valor":10}`, true},
		{"wrong type", models.NotificationSessionReminder, `{"session_id":5}`, true},
		{"not an object", models.NotificationWelcomeMessage, `[1,2]`, true},
		{"unknown type accepts object", "promo", `{"anything":true}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(ctx, tt.typ, json.RawMessage(tt.meta))
			if tt.wantErr && !apperr.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestServiceCreateAndRead(t *testing.T) {
	_, svc, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := svc.Subscribe(ctx, "u1")

	if err := svc.Create(ctx, &models.Notification{UserID: "u1", Type: models.NotificationWelcomeMessage, Title: "Olá"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Create(ctx, &models.Notification{UserID: "", Type: models.NotificationWelcomeMessage}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for missing user, got %v", err)
	}

	select {
	case ev := <-sub.C():
		if ev.Action != realtime.ActionInsert || ev.Table != "notifications" {
			t.Fatalf("unexpected event %#v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected insert event")
	}

	n, err := svc.UnreadCount(ctx, "u1")
	if err != nil || n != 1 {
		t.Fatalf("UnreadCount: %d, %v", n, err)
	}

	list, err := svc.List(ctx, "u1", true)
	if err != nil || len(list) != 1 {
		t.Fatalf("List: %#v, %v", list, err)
	}
	if err := svc.MarkRead(ctx, "u1", list[0].ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if err := svc.MarkRead(ctx, "u1", "missing"); !apperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if n, _ := svc.UnreadCount(ctx, "u1"); n != 0 {
		t.Fatalf("expected 0 unread, got %d", n)
	}
}
