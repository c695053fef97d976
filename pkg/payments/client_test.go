package payments_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garnizeh/terapia/pkg/payments"
)

func newClient(t *testing.T, url string, threshold int) *payments.Client {
	t.Helper()
	cfg := payments.DefaultConfig()
	cfg.BaseURL = url
	cfg.SecretKey = "sk_test"
	cfg.CircuitFailureThreshold = threshold
	cfg.CircuitReset = time.Minute
	c, err := payments.NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRequiresConfig(t *testing.T) {
	if _, err := payments.NewClient(payments.Config{BaseURL: "http://x"}, nil); !errors.Is(err, payments.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := payments.NewClient(payments.Config{BaseURL: "::bad", SecretKey: "k"}, nil); err == nil {
		t.Fatalf("expected invalid url error")
	}
}

func TestEndpoints(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		switch r.URL.Path {
		case "/create-checkout":
			w.Write([]byte(`{"session_id":"cs_1","url":"https://pay/cs_1"}`))
		case "/create-subscription":
			w.Write([]byte(`{"subscription_id":"sub_1","status":"active"}`))
		case "/functions/v1/process-payment":
			w.Write([]byte(`{"payment_id":"pi_1","status":"paid"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newClient(t, srv.URL+"/", 0)
	ctx := context.Background()

	co, err := c.CreateCheckout(ctx, payments.CheckoutRequest{SessaoID: "s1", Amount: 150, Currency: "brl"})
	if err != nil || co.URL != "https://pay/cs_1" {
		t.Fatalf("CreateCheckout: %#v, %v", co, err)
	}
	if gotPath != "/create-checkout" || gotAuth != "Bearer sk_test" || gotBody["sessao_id"] != "s1" {
		t.Fatalf("unexpected request path=%s auth=%s body=%v", gotPath, gotAuth, gotBody)
	}

	sub, err := c.CreateSubscription(ctx, payments.SubscriptionRequest{PlanID: "basic", UserID: "u1"})
	if err != nil || sub.SubscriptionID != "sub_1" || gotPath != "/create-subscription" {
		t.Fatalf("CreateSubscription: %#v, %v (path %s)", sub, err, gotPath)
	}

	pr, err := c.ProcessPayment(ctx, payments.ProcessRequest{SessaoID: "s1", Amount: 150})
	if err != nil || pr.Status != "paid" || gotPath != "/functions/v1/process-payment" {
		t.Fatalf("ProcessPayment: %#v, %v (path %s)", pr, err, gotPath)
	}
}

func TestNoRetryAndCircuitBreaker(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "provider down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, 2)
	ctx := context.Background()

	_, err := c.ProcessPayment(ctx, payments.ProcessRequest{SessaoID: "s1"})
	var re *payments.RemoteError
	if !errors.As(err, &re) || re.Status != http.StatusBadGateway || re.Body != "provider down" {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected exactly one call, got %d", calls)
	}

	_, _ = c.ProcessPayment(ctx, payments.ProcessRequest{SessaoID: "s1"})
	if _, err := c.ProcessPayment(ctx, payments.ProcessRequest{SessaoID: "s1"}); !errors.Is(err, payments.ErrCircuitOpen) {
		t.Fatalf("expected circuit open, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("open circuit must not reach the server, got %d calls", calls)
	}
}

func TestClientErrorsDoNotTripCircuit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad amount", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, 1)
	for i := 0; i < 3; i++ {
		_, err := c.CreateCheckout(context.Background(), payments.CheckoutRequest{})
		var re *payments.RemoteError
		if !errors.As(err, &re) || re.Status != http.StatusBadRequest {
			t.Fatalf("call %d: expected 400 RemoteError, got %v", i, err)
		}
	}
}
