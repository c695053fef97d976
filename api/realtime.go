package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/garnizeh/terapia/internal/realtime"
)

const streamPath = "/v1/realtime/stream"

// Feed hands out change-feed subscriptions.
type Feed interface {
	Subscribe(ctx context.Context, topics ...string) *realtime.Subscription
}

// streamTables are the tables whose per-user topics a stream follows.
var streamTables = []string{"sessoes", "messages", "notifications"}

type StreamHandler struct {
	feed      Feed
	heartbeat time.Duration
}

func NewStreamHandler(feed Feed) *StreamHandler {
	return &StreamHandler{feed: feed, heartbeat: 25 * time.Second}
}

// Stream sends the caller's change events as server-sent events until the
// client goes away. The subscription ends with the request context.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, fmt.Errorf("streaming not supported"))
		return
	}

	id := caller(r).Profile.ID
	topics := make([]string, len(streamTables))
	for i, t := range streamTables {
		topics[i] = realtime.Topic(t, id)
	}
	sub := h.feed.Subscribe(r.Context(), topics...)

	// The server write timeout would cut long-lived streams.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	tick := time.NewTicker(h.heartbeat)
	defer tick.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			b, err := json.Marshal(ev)
			if err != nil {
				logger.Warn("stream: encode event", slog.Any("err", err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Table, b)
			flusher.Flush()
		}
	}
}
