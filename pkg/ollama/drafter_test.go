package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/garnizeh/terapia/pkg/ollama"
)

func TestDrafter_DraftShortDescription(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt = req.Prompt
		w.Header().Set("Content-Type", "application/x-ndjson")
		writeSequence(w, []map[string]any{{"response": `  "` + strings.Repeat("a", 200) + `"  `, "done": true}}, 0)
	}))
	defer srv.Close()

	client, err := ollama.NewClient(ollama.Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, srv.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	d := ollama.NewDrafter(client, "m")

	got, err := d.DraftShortDescription(context.Background(), "Psicóloga clínica com foco em ansiedade.")
	if err != nil {
		t.Fatalf("DraftShortDescription: %v", err)
	}
	if len(got) != ollama.MaxShortDescription || strings.Contains(got, `"`) {
		t.Fatalf("expected clipped unquoted draft, got %q (%d)", got, len(got))
	}
	if !strings.Contains(prompt, "foco em ansiedade") {
		t.Fatalf("prompt should carry the long description, got %q", prompt)
	}
}
