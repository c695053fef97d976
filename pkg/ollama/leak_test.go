package ollama

import (
	"net/http"
	"sync"
	"testing"
)

// TestClient_CreateClose_Concurrent creates and closes many clients at once;
// goleak in TestMain catches anything left running.
func TestClient_CreateClose_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := NewClient(Config{BaseURL: "http://localhost:11434"}, &http.Client{})
			if err != nil {
				t.Errorf("new client: %v", err)
				return
			}
			if err := c.Close(); err != nil {
				t.Errorf("close: %v", err)
			}
		}()
	}
	wg.Wait()
}
