package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/garnizeh/terapia/internal/analytics"
	"github.com/garnizeh/terapia/internal/apperr"
	"github.com/garnizeh/terapia/internal/notifications"
	"github.com/garnizeh/terapia/internal/sessions"
	"github.com/garnizeh/terapia/pkg/models"
	"github.com/garnizeh/terapia/pkg/repository"
)

type AdminHandler struct {
	analytics       *analytics.Service
	notifications   *notifications.Service
	dispatcher      *notifications.Dispatcher
	sessions        *sessions.Service
	profiles        repository.ProfileRepo
	dispatchTimeout time.Duration
}

func NewAdminHandler(a *analytics.Service, n *notifications.Service, d *notifications.Dispatcher, s *sessions.Service, profiles repository.ProfileRepo, dispatchTimeout time.Duration) *AdminHandler {
	if dispatchTimeout <= 0 {
		dispatchTimeout = 5 * time.Minute
	}
	return &AdminHandler{analytics: a, notifications: n, dispatcher: d, sessions: s, profiles: profiles, dispatchTimeout: dispatchTimeout}
}

type broadcastRequest struct {
	UserIDs  []string        `json:"user_ids"`
	Role     string          `json:"role"`
	Type     string          `json:"type"`
	Title    string          `json:"title"`
	Message  string          `json:"message"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	ov, err := h.analytics.Overview(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

// Broadcast sends one notification to the listed users or to every profile
// with the given role.
func (h *AdminHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, apperr.Validation("title", "obrigatório"))
		return
	}

	recipients := req.UserIDs
	if len(recipients) == 0 && req.Role != "" {
		profiles, err := h.profiles.ListProfilesByRole(r.Context(), req.Role)
		if err != nil {
			writeError(w, err)
			return
		}
		for _, p := range profiles {
			recipients = append(recipients, p.ID)
		}
	}
	if len(recipients) == 0 {
		writeError(w, apperr.Validation("user_ids", "nenhum destinatário"))
		return
	}

	ns := make([]models.Notification, len(recipients))
	for i, id := range recipients {
		ns[i] = models.Notification{UserID: id, Type: req.Type, Title: req.Title, Message: req.Message, Metadata: req.Metadata}
	}
	if err := h.notifications.CreateBatch(r.Context(), ns); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"created": len(ns)})
}

// Dispatch runs the reminder passes now. It outlives a disconnecting client
// so the passes are not cut halfway.
func (h *AdminHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.dispatchTimeout)
	defer cancel()
	rep := h.dispatcher.Dispatch(ctx)
	status := http.StatusOK
	if rep.Failed() {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, rep)
}

func (h *AdminHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.sessions.Get(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	if err := h.sessions.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
