package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/garnizeh/terapia/internal/apperr"
	"github.com/garnizeh/terapia/internal/availability"
	"github.com/garnizeh/terapia/internal/specialists"
	"github.com/garnizeh/terapia/internal/storage"
	"github.com/garnizeh/terapia/pkg/models"
)

type SpecialistHandler struct {
	svc          *specialists.Service
	availability *availability.Service
	uploads      Uploader
}

func NewSpecialistHandler(svc *specialists.Service, avail *availability.Service, uploads Uploader) *SpecialistHandler {
	return &SpecialistHandler{svc: svc, availability: avail, uploads: uploads}
}

func (h *SpecialistHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.GetAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *SpecialistHandler) Search(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *SpecialistHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.GetDetails(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *SpecialistHandler) Availability(w http.ResponseWriter, r *http.Request) {
	week, err := h.availability.Week(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, week)
}

// Register turns the caller into a specialist.
func (h *SpecialistHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req specialists.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	v, err := h.svc.Register(r.Context(), caller(r).Profile.ID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *SpecialistHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	var patch specialists.DetailsPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	v, err := h.svc.UpdateDetails(r.Context(), caller(r).Profile.ID, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *SpecialistHandler) UploadThumbnail(w http.ResponseWriter, r *http.Request) {
	id := caller(r).Profile.ID
	url, err := saveUpload(w, r, h.uploads, storage.BucketThumbnails, id)
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.svc.UpdateDetails(r.Context(), id, specialists.DetailsPatch{ThumbnailURL: &url})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *SpecialistHandler) SaveAvailability(w http.ResponseWriter, r *http.Request) {
	var entries []models.Availability
	if err := decodeJSON(r, &entries); err != nil {
		writeError(w, err)
		return
	}
	week, err := h.availability.SaveWeek(r.Context(), caller(r).Profile.ID, entries)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, week)
}

// SaveAvailabilityDay stores one weekday; the path decides the day.
func (h *SpecialistHandler) SaveAvailabilityDay(w http.ResponseWriter, r *http.Request) {
	day, err := strconv.Atoi(mux.Vars(r)["day"])
	if err != nil {
		writeError(w, apperr.Validation("day_of_week", "deve estar entre 0 e 6"))
		return
	}
	var entry models.Availability
	if err := decodeJSON(r, &entry); err != nil {
		writeError(w, err)
		return
	}
	entry.DayOfWeek = day
	week, err := h.availability.UpdateDay(r.Context(), caller(r).Profile.ID, entry)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, week)
}
