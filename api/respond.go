package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/garnizeh/terapia/internal/apperr"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.Any("err", err))
	}
}

// writeError maps domain errors to their HTTP status and error code.
func writeError(w http.ResponseWriter, err error) {
	var (
		ve *apperr.ValidationError
		nf *apperr.NotFoundError
	)
	resp := errorResponse{Message: err.Error()}
	switch {
	case errors.As(err, &ve):
		resp.Error, resp.Code = "VALIDATION_ERROR", http.StatusBadRequest
	case errors.As(err, &nf):
		resp.Error, resp.Code = "RESOURCE_NOT_FOUND", http.StatusNotFound
	case errors.Is(err, apperr.ErrForbidden):
		resp.Error, resp.Code = "INSUFFICIENT_PERMISSIONS", http.StatusForbidden
	case errors.Is(err, apperr.ErrUnauthorized):
		resp.Error, resp.Code = "INVALID_TOKEN", http.StatusUnauthorized
	default:
		resp.Error, resp.Code = "REMOTE_SERVICE_ERROR", http.StatusInternalServerError
		logger.Error("request failed", slog.Any("err", err))
	}
	writeJSON(w, resp.Code, resp)
}

// decodeJSON reads a JSON body into v. Malformed bodies become validation errors.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("body", "JSON inválido")
	}
	return nil
}
