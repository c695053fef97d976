package api

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/garnizeh/terapia/internal/apperr"
	"github.com/garnizeh/terapia/internal/storage"
	"github.com/garnizeh/terapia/pkg/repository"
)

// Uploader stores an uploaded image and returns its public URL.
type Uploader interface {
	Save(ctx context.Context, bucket, owner string, r io.Reader) (string, error)
}

type ProfileHandler struct {
	profiles repository.ProfileRepo
	uploads  Uploader
}

func NewProfileHandler(profiles repository.ProfileRepo, uploads Uploader) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, uploads: uploads}
}

type profileUpdate struct {
	Nome      *string `json:"nome"`
	AvatarURL *string `json:"avatar_url"`
}

func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req profileUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p := caller(r).Profile
	if req.Nome != nil {
		nome := strings.TrimSpace(*req.Nome)
		if nome == "" {
			writeError(w, apperr.Validation("nome", "obrigatório"))
			return
		}
		p.Nome = nome
	}
	if req.AvatarURL != nil {
		p.AvatarURL = strings.TrimSpace(*req.AvatarURL)
	}
	if err := h.profiles.UpdateProfile(r.Context(), &p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UploadAvatar stores the multipart "file" field and points the profile at it.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	url, err := saveUpload(w, r, h.uploads, storage.BucketAvatars, caller(r).Profile.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	p := caller(r).Profile
	p.AvatarURL = url
	if err := h.profiles.UpdateProfile(r.Context(), &p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func saveUpload(w http.ResponseWriter, r *http.Request, uploads Uploader, bucket, owner string) (string, error) {
	if uploads == nil {
		return "", apperr.Validation("file", "uploads desativados")
	}
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	f, _, err := r.FormFile("file")
	if err != nil {
		return "", apperr.Validation("file", "arquivo obrigatório")
	}
	defer f.Close()
	return uploads.Save(r.Context(), bucket, owner, f)
}
