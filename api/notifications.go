package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/garnizeh/terapia/internal/notifications"
)

type NotificationHandler struct {
	svc *notifications.Service
}

func NewNotificationHandler(svc *notifications.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List returns the caller's notifications; ?unread=true keeps only unread ones.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	unread, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	list, err := h.svc.List(r.Context(), caller(r).Profile.ID, unread)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.UnreadCount(r.Context(), caller(r).Profile.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkRead(r.Context(), caller(r).Profile.ID, mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkAllRead(r.Context(), caller(r).Profile.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"marked": n})
}
