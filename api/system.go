package api

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker is implemented by optional upstreams such as the assistant.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// SystemHandler serves health and version. A failing database answers 503;
// a failing assistant only marks the service degraded.
type SystemHandler struct {
	DB        Pinger
	Assistant HealthChecker
}

func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.DB != nil {
		if err := h.DB.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "service": "terapia", "db": err.Error()})
			return
		}
	}

	body := map[string]string{"status": "ok", "service": "terapia"}
	if h.Assistant != nil {
		body["assistant"] = "ok"
		if err := h.Assistant.Health(ctx); err != nil {
			body["status"] = "degraded"
			body["assistant"] = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *SystemHandler) VersionHandler(version, buildTime string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": version, "buildTime": buildTime})
	}
}
