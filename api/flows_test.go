package api_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/garnizeh/terapia/internal/analytics"
	"github.com/garnizeh/terapia/pkg/models"
)

func TestSessionLifecycle(t *testing.T) {
	a := newTestAPI(t)
	specToken, spec := a.signup(t, "Dra. Bia", "bia@example.com", models.RoleSpecialist)
	cliToken, cli := a.signup(t, "Caio", "caio@example.com", models.RoleClient)
	otherToken, _ := a.signup(t, "Duda", "duda@example.com", models.RoleClient)

	var created models.Session
	status := a.do(t, http.MethodPost, "/v1/sessions", cliToken, map[string]any{
		"especialista_id": spec.ID,
		"data_hora":       time.Now().Add(48 * time.Hour).UTC(),
		"tipo_sessao":     "online",
		"valor":           150,
	}, &created)
	if status != http.StatusCreated {
		t.Fatalf("create session: status %d", status)
	}
	if created.ClienteID == nil || *created.ClienteID != cli.ID || created.Status != models.SessionScheduled {
		t.Fatalf("unexpected session: %#v", created)
	}

	if status := a.do(t, http.MethodGet, "/v1/sessions/"+created.ID, otherToken, nil, nil); status != http.StatusForbidden {
		t.Fatalf("other client: expected 403 got %d", status)
	}
	if status := a.do(t, http.MethodPost, "/v1/sessions/"+created.ID+"/payments", cliToken, map[string]any{"valor": 150, "status": models.PaymentPaid}, nil); status != http.StatusForbidden {
		t.Fatalf("client recording payment: expected 403 got %d", status)
	}
	if status := a.do(t, http.MethodPost, "/v1/sessions/"+created.ID+"/payments", specToken, map[string]any{"valor": 150, "status": models.PaymentPaid}, nil); status != http.StatusCreated {
		t.Fatalf("record payment: status %d", status)
	}

	var got models.Session
	if status := a.do(t, http.MethodGet, "/v1/sessions/"+created.ID, cliToken, nil, &got); status != http.StatusOK {
		t.Fatalf("get session: status %d", status)
	}
	if got.StatusPagamento != models.PaymentPaid {
		t.Fatalf("expected paid session, got %q", got.StatusPagamento)
	}

	var payments []models.Payment
	if status := a.do(t, http.MethodGet, "/v1/sessions/"+created.ID+"/payments", cliToken, nil, &payments); status != http.StatusOK || len(payments) != 1 {
		t.Fatalf("list payments: status %d len %d", status, len(payments))
	}

	var count map[string]int64
	if status := a.do(t, http.MethodGet, "/v1/sessions/count", specToken, nil, &count); status != http.StatusOK || count["count"] != 1 {
		t.Fatalf("count: status %d body %v", status, count)
	}

	var unread map[string]int64
	if status := a.do(t, http.MethodGet, "/v1/notifications/unread-count", cliToken, nil, &unread); status != http.StatusOK {
		t.Fatalf("unread count: status %d", status)
	}
	if unread["count"] < 1 {
		t.Fatalf("expected a booking confirmation, got %v", unread)
	}

	var cancelled models.Session
	if status := a.do(t, http.MethodPost, "/v1/sessions/"+created.ID+"/cancel", cliToken, nil, &cancelled); status != http.StatusOK {
		t.Fatalf("cancel: status %d", status)
	}
	if cancelled.Status != models.SessionCancelled {
		t.Fatalf("expected cancelled, got %q", cancelled.Status)
	}

	if status := a.do(t, http.MethodGet, "/v1/sessions/missing", cliToken, nil, nil); status != http.StatusNotFound {
		t.Fatalf("missing session: expected 404 got %d", status)
	}
}

func TestCreateSessionChecksSpecialist(t *testing.T) {
	a := newTestAPI(t)
	cliToken, _ := a.signup(t, "Caio", "caio@example.com", models.RoleClient)
	_, other := a.signup(t, "Duda", "duda@example.com", models.RoleClient)

	if status := a.do(t, http.MethodPost, "/v1/sessions", cliToken, map[string]any{
		"especialista_id": other.ID,
		"data_hora":       time.Now().Add(24 * time.Hour).UTC(),
	}, nil); status != http.StatusBadRequest {
		t.Fatalf("client as specialist: expected 400 got %d", status)
	}
	if status := a.do(t, http.MethodPost, "/v1/sessions", cliToken, map[string]any{
		"especialista_id": "missing",
		"data_hora":       time.Now().Add(24 * time.Hour).UTC(),
	}, nil); status != http.StatusBadRequest {
		t.Fatalf("unknown specialist: expected 400 got %d", status)
	}

	var open models.Session
	if status := a.do(t, http.MethodPost, "/v1/sessions", cliToken, map[string]any{
		"data_hora":   time.Now().Add(24 * time.Hour).UTC(),
		"tipo_sessao": "individual",
	}, &open); status != http.StatusCreated {
		t.Fatalf("session without specialist: status %d", status)
	}
	if open.EspecialistaID != nil {
		t.Fatalf("expected no specialist, got %v", *open.EspecialistaID)
	}
}

func TestSpecialistDirectory(t *testing.T) {
	a := newTestAPI(t)
	specToken, spec := a.signup(t, "Dra. Bia", "bia@example.com", models.RoleSpecialist)
	cliToken, _ := a.signup(t, "Caio", "caio@example.com", models.RoleClient)

	var list []models.SpecialistView
	if status := a.do(t, http.MethodGet, "/v1/specialists", "", nil, &list); status != http.StatusOK || len(list) != 1 {
		t.Fatalf("list: status %d len %d", status, len(list))
	}
	if list[0].ID != spec.ID || list[0].Specialty != "Não especificada" {
		t.Fatalf("unexpected specialist: %#v", list[0])
	}

	if status := a.do(t, http.MethodPost, "/v1/specialists/register", specToken, map[string]any{
		"specialty": "Psicologia Clínica", "bio": "TCC", "experience_years": 8,
	}, nil); status != http.StatusOK {
		t.Fatalf("register: status %d", status)
	}

	var found []models.SpecialistView
	if status := a.do(t, http.MethodGet, "/v1/specialists/search?q=clínica", "", nil, &found); status != http.StatusOK || len(found) != 1 {
		t.Fatalf("search: status %d len %d", status, len(found))
	}
	if status := a.do(t, http.MethodGet, "/v1/specialists/search?q=ortopedia", "", nil, &found); status != http.StatusOK || len(found) != 0 {
		t.Fatalf("search without match: status %d len %d", status, len(found))
	}

	var week []models.Availability
	if status := a.do(t, http.MethodGet, "/v1/specialists/"+spec.ID+"/availability", "", nil, &week); status != http.StatusOK || len(week) != 7 {
		t.Fatalf("availability: status %d len %d", status, len(week))
	}
	if !week[2].Synthesized || week[2].StartTime != "09:00" {
		t.Fatalf("expected synthesized default, got %#v", week[2])
	}

	if status := a.do(t, http.MethodPut, "/v1/specialists/me/availability/2", specToken, map[string]any{
		"start_time": "10:00", "end_time": "14:00", "is_available": true,
	}, &week); status != http.StatusOK {
		t.Fatalf("save day: status %d", status)
	}
	if week[2].Synthesized || week[2].StartTime != "10:00" {
		t.Fatalf("expected stored day, got %#v", week[2])
	}
	if status := a.do(t, http.MethodPut, "/v1/specialists/me/availability/2", specToken, map[string]any{
		"start_time": "15:00", "end_time": "14:00",
	}, nil); status != http.StatusBadRequest {
		t.Fatalf("inverted window: expected 400 got %d", status)
	}

	if status := a.do(t, http.MethodPut, "/v1/specialists/me/details", cliToken, map[string]any{"short_description": "x"}, nil); status != http.StatusForbidden {
		t.Fatalf("client self-service: expected 403 got %d", status)
	}
	if status := a.do(t, http.MethodGet, "/v1/specialists/"+"unknown", "", nil, nil); status != http.StatusNotFound {
		t.Fatalf("unknown specialist: expected 404 got %d", status)
	}
}

func TestMessagingFlow(t *testing.T) {
	a := newTestAPI(t)
	specToken, spec := a.signup(t, "Dra. Bia", "bia@example.com", models.RoleSpecialist)
	cliToken, cli := a.signup(t, "Caio", "caio@example.com", models.RoleClient)

	for _, content := range []string{"Olá", "Podemos remarcar?"} {
		if status := a.do(t, http.MethodPost, "/v1/messages/"+spec.ID, cliToken, map[string]string{"content": content}, nil); status != http.StatusCreated {
			t.Fatalf("send: status %d", status)
		}
	}
	if status := a.do(t, http.MethodPost, "/v1/messages/"+spec.ID, cliToken, map[string]string{"content": "   "}, nil); status != http.StatusBadRequest {
		t.Fatalf("blank message: expected 400 got %d", status)
	}

	var convs []models.Conversation
	if status := a.do(t, http.MethodGet, "/v1/messages/conversations", specToken, nil, &convs); status != http.StatusOK || len(convs) != 1 {
		t.Fatalf("conversations: status %d len %d", status, len(convs))
	}
	if convs[0].CounterpartID != cli.ID || convs[0].UnreadCount != 2 || convs[0].LastMessage != "Podemos remarcar?" {
		t.Fatalf("unexpected conversation: %#v", convs[0])
	}

	if status := a.do(t, http.MethodPost, "/v1/messages/"+cli.ID+"/read", specToken, nil, nil); status != http.StatusOK {
		t.Fatalf("mark read: status %d", status)
	}
	if status := a.do(t, http.MethodGet, "/v1/messages/conversations", specToken, nil, &convs); status != http.StatusOK || convs[0].UnreadCount != 0 {
		t.Fatalf("expected thread read, got %#v", convs)
	}

	var thread []models.Message
	if status := a.do(t, http.MethodGet, "/v1/messages/"+spec.ID, cliToken, nil, &thread); status != http.StatusOK || len(thread) != 2 {
		t.Fatalf("thread: status %d len %d", status, len(thread))
	}
}

func TestAdminRoutes(t *testing.T) {
	a := newTestAPI(t)
	_, spec := a.signup(t, "Dra. Bia", "bia@example.com", models.RoleSpecialist)
	cliToken, _ := a.signup(t, "Caio", "caio@example.com", models.RoleClient)
	adminToken := a.admin(t)

	if status := a.do(t, http.MethodGet, "/v1/admin/analytics", cliToken, nil, nil); status != http.StatusForbidden {
		t.Fatalf("client analytics: expected 403 got %d", status)
	}

	var created models.Session
	if status := a.do(t, http.MethodPost, "/v1/sessions", cliToken, map[string]any{
		"especialista_id": spec.ID, "data_hora": time.Now().Add(time.Hour).UTC(), "valor": 100,
	}, &created); status != http.StatusCreated {
		t.Fatalf("create session: status %d", status)
	}

	var ov analytics.Overview
	if status := a.do(t, http.MethodGet, "/v1/admin/analytics", adminToken, nil, &ov); status != http.StatusOK {
		t.Fatalf("analytics: status %d", status)
	}
	if ov.Sessions.Total != 1 || ov.ProfilesByRole[models.RoleClient] != 1 {
		t.Fatalf("unexpected overview: %#v", ov)
	}

	var broadcast map[string]int
	if status := a.do(t, http.MethodPost, "/v1/admin/notifications", adminToken, map[string]string{
		"role": models.RoleClient, "type": models.NotificationWelcomeMessage, "title": "Bem-vindo", "message": "Olá!",
	}, &broadcast); status != http.StatusCreated || broadcast["created"] != 1 {
		t.Fatalf("broadcast: status %d body %v", status, broadcast)
	}

	var list []models.Notification
	if status := a.do(t, http.MethodGet, "/v1/notifications?unread=true", cliToken, nil, &list); status != http.StatusOK {
		t.Fatalf("notifications: status %d", status)
	}
	var welcome bool
	for _, n := range list {
		welcome = welcome || n.Type == models.NotificationWelcomeMessage
	}
	if !welcome {
		t.Fatalf("expected the broadcast in the client's inbox, got %#v", list)
	}

	if status := a.do(t, http.MethodPost, "/v1/admin/notifications/dispatch", adminToken, nil, nil); status != http.StatusOK {
		t.Fatalf("dispatch: status %d", status)
	}

	if status := a.do(t, http.MethodDelete, "/v1/admin/sessions/"+created.ID, adminToken, nil, nil); status != http.StatusNoContent {
		t.Fatalf("delete session: status %d", status)
	}
	if status := a.do(t, http.MethodGet, "/v1/sessions/"+created.ID, adminToken, nil, nil); status != http.StatusNotFound {
		t.Fatalf("deleted session: expected 404 got %d", status)
	}
}

func TestRealtimeStream(t *testing.T) {
	a := newTestAPI(t)
	specToken, spec := a.signup(t, "Dra. Bia", "bia@example.com", models.RoleSpecialist)
	cliToken, _ := a.signup(t, "Caio", "caio@example.com", models.RoleClient)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.srv.URL+"/v1/realtime/stream?access_token="+specToken, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	res, err := a.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK || !strings.HasPrefix(res.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("stream: status %d type %q", res.StatusCode, res.Header.Get("Content-Type"))
	}

	lines := bufio.NewScanner(res.Body)
	if !lines.Scan() || lines.Text() != ": connected" {
		t.Fatalf("expected connected comment, got %q", lines.Text())
	}

	if status := a.do(t, http.MethodPost, "/v1/messages/"+spec.ID, cliToken, map[string]string{"content": "Oi"}, nil); status != http.StatusCreated {
		t.Fatalf("send: status %d", status)
	}

	var event, data string
	for lines.Scan() {
		line := lines.Text()
		if v, ok := strings.CutPrefix(line, "event: "); ok {
			event = v
		}
		if v, ok := strings.CutPrefix(line, "data: "); ok {
			data = v
			break
		}
	}
	if event != "messages" {
		t.Fatalf("expected messages event, got %q", event)
	}
	var ev struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal([]byte(data), &ev); err != nil || ev.Action != "INSERT" {
		t.Fatalf("unexpected event payload %q: %v", data, err)
	}
}
