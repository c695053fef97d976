package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/garnizeh/terapia/internal/apperr"
	"github.com/garnizeh/terapia/internal/sessions"
	"github.com/garnizeh/terapia/pkg/models"
	"github.com/garnizeh/terapia/pkg/repository"
)

type SessionHandler struct {
	svc      *sessions.Service
	profiles repository.ProfileRepo
}

func NewSessionHandler(svc *sessions.Service, profiles repository.ProfileRepo) *SessionHandler {
	return &SessionHandler{svc: svc, profiles: profiles}
}

type createSessionRequest struct {
	ClienteID      *string   `json:"cliente_id"`
	EspecialistaID *string   `json:"especialista_id"`
	DataHora       time.Time `json:"data_hora"`
	TipoSessao     string    `json:"tipo_sessao"`
	Notas          string    `json:"notas"`
	Valor          float64   `json:"valor"`
	EmailConvidado string    `json:"email_convidado"`
}

type feedbackRequest struct {
	Rating      int    `json:"rating"`
	Comentarios string `json:"comentarios"`
}

type paymentRequest struct {
	Valor  float64 `json:"valor"`
	Status string  `json:"status"`
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	p := caller(r).Profile
	list, err := h.svc.List(r.Context(), p.ID, p.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Create books a session. Clients book for themselves and specialists into
// their own agenda; admins may book for anyone.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p := caller(r).Profile
	switch p.Role {
	case models.RoleClient:
		req.ClienteID = &p.ID
	case models.RoleSpecialist:
		req.EspecialistaID = &p.ID
	}
	if req.ClienteID != nil && strings.TrimSpace(*req.ClienteID) == "" {
		req.ClienteID = nil
	}
	if req.EspecialistaID != nil && strings.TrimSpace(*req.EspecialistaID) == "" {
		req.EspecialistaID = nil
	}
	if req.EspecialistaID != nil && p.Role != models.RoleSpecialist {
		if err := h.requireSpecialist(r, *req.EspecialistaID); err != nil {
			writeError(w, err)
			return
		}
	}

	sess, err := h.svc.Create(r.Context(), &models.Session{
		ClienteID:      req.ClienteID,
		EspecialistaID: req.EspecialistaID,
		DataHora:       req.DataHora,
		TipoSessao:     req.TipoSessao,
		Notas:          req.Notas,
		Valor:          req.Valor,
		EmailConvidado: strings.TrimSpace(req.EmailConvidado),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.load(r, false)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess, err := h.load(r, true)
	if err != nil {
		writeError(w, err)
		return
	}
	var patch models.SessionPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	if caller(r).Profile.Role != models.RoleAdmin {
		patch.EspecialistaID = nil
	}
	if patch.EspecialistaID != nil {
		if err := h.requireSpecialist(r, *patch.EspecialistaID); err != nil {
			writeError(w, err)
			return
		}
	}
	updated, err := h.svc.Update(r.Context(), sess.ID, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, err := h.load(r, true)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.Delete(r.Context(), sess.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	sess, err := h.load(r, false)
	if err != nil {
		writeError(w, err)
		return
	}
	updated, err := h.svc.Cancel(r.Context(), sess.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *SessionHandler) Invite(w http.ResponseWriter, r *http.Request) {
	sess, err := h.load(r, true)
	if err != nil {
		writeError(w, err)
		return
	}
	if sess.EmailConvidado == "" {
		writeError(w, apperr.Validation("email_convidado", "sessão sem convidado"))
		return
	}
	if err := h.svc.SendInvite(r.Context(), sess.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"convite_status": models.InviteSent})
}

// Feedback can only come from the session's client.
func (h *SessionHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	sess, err := h.load(r, false)
	if err != nil {
		writeError(w, err)
		return
	}
	if sess.ClienteID == nil || *sess.ClienteID != caller(r).Profile.ID {
		writeError(w, apperr.ErrForbidden)
		return
	}
	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.SubmitFeedback(r.Context(), sess.ID, req.Rating, strings.TrimSpace(req.Comentarios)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"feedback_rating": req.Rating})
}

func (h *SessionHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	sess, err := h.load(r, true)
	if err != nil {
		writeError(w, err)
		return
	}
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.svc.RecordPayment(r.Context(), sess.ID, req.Valor, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *SessionHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	sess, err := h.load(r, false)
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := h.svc.ListPayments(r.Context(), sess.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Count returns how many sessions the caller has as client or specialist.
func (h *SessionHandler) Count(w http.ResponseWriter, r *http.Request) {
	p := caller(r).Profile
	var (
		n   int64
		err error
	)
	if p.Role == models.RoleSpecialist {
		n, err = h.svc.SpecialistSessionCount(r.Context(), p.ID)
	} else {
		n, err = h.svc.ClientSessionCount(r.Context(), p.ID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

// load fetches the {id} session and checks the caller may see it. With
// manage set, only the session's specialist or an admin passes.
func (h *SessionHandler) load(r *http.Request, manage bool) (*models.Session, error) {
	sess, err := h.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return nil, err
	}
	p := caller(r).Profile
	if !sessions.CanAccess(sess, p.ID, p.Role) {
		return nil, apperr.ErrForbidden
	}
	if manage && p.Role != models.RoleAdmin && (sess.EspecialistaID == nil || *sess.EspecialistaID != p.ID) {
		return nil, apperr.ErrForbidden
	}
	return sess, nil
}

// requireSpecialist rejects ids that do not belong to a specialist profile.
func (h *SessionHandler) requireSpecialist(r *http.Request, id string) error {
	prof, err := h.profiles.GetProfile(r.Context(), id)
	if err != nil {
		return err
	}
	if prof == nil || prof.Role != models.RoleSpecialist {
		return apperr.Validation("especialista_id", "Especialista inválido")
	}
	return nil
}
