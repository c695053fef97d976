// Package payments calls the hosted payment functions that create checkouts
// and subscriptions and process charges. Calls are never retried.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

const (
	pathCheckout     = "/create-checkout"
	pathSubscription = "/create-subscription"
	pathProcess      = "/functions/v1/process-payment"

	maxErrorBody = 4 << 10
)

var (
	ErrCircuitOpen   = errors.New("payments circuit open")
	ErrNotConfigured = errors.New("payments not configured")
)

// RemoteError is a non-2xx answer from a payment function.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("payment function returned %d: %s", e.Status, e.Body)
}

type CheckoutRequest struct {
	SessaoID      string  `json:"sessao_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	CustomerEmail string  `json:"customer_email,omitempty"`
	SuccessURL    string  `json:"success_url,omitempty"`
	CancelURL     string  `json:"cancel_url,omitempty"`
}

type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type SubscriptionRequest struct {
	PlanID        string `json:"plan_id"`
	UserID        string `json:"user_id"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

type SubscriptionResponse struct {
	SubscriptionID string `json:"subscription_id"`
	Status         string `json:"status"`
	URL            string `json:"url,omitempty"`
}

type ProcessRequest struct {
	SessaoID      string  `json:"sessao_id"`
	ClienteID     string  `json:"cliente_id,omitempty"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method,omitempty"`
}

type ProcessResponse struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

type Client struct {
	base   *url.URL
	cfg    Config
	client *http.Client

	failures  int32
	openUntil int64 // unix nano
}

// package-level logger for pkg/payments; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by pkg/payments. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.BaseURL == "" || cfg.SecretKey == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	u, err := url.ParseRequestURI(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger.Debug("payments: client created", slog.String("base_url", cfg.BaseURL), slog.Duration("timeout", cfg.Timeout))
	return &Client{base: u, cfg: cfg, client: httpClient}, nil
}

// PublishableKey is the browser-safe provider key.
func (c *Client) PublishableKey() string { return c.cfg.PublishableKey }

func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	var out CheckoutResponse
	if err := c.post(ctx, pathCheckout, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateSubscription(ctx context.Context, req SubscriptionRequest) (*SubscriptionResponse, error) {
	var out SubscriptionResponse
	if err := c.post(ctx, pathSubscription, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ProcessPayment(ctx context.Context, req ProcessRequest) (*ProcessResponse, error) {
	var out ProcessResponse
	if err := c.post(ctx, pathProcess, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	if c.isCircuitOpen() {
		return ErrCircuitOpen
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.String()+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if resp.StatusCode >= 500 {
			c.recordFailure()
		}
		logger.Warn("payments: call failed", slog.String("path", path), slog.Int("status", resp.StatusCode))
		return &RemoteError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	atomic.StoreInt32(&c.failures, 0)
	logger.Info("payments: call ok", slog.String("path", path), slog.Int64("latency_ms", time.Since(start).Milliseconds()))
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) isCircuitOpen() bool {
	if c.cfg.CircuitFailureThreshold <= 0 {
		return false
	}
	if atomic.LoadInt32(&c.failures) < int32(c.cfg.CircuitFailureThreshold) {
		return false
	}
	if time.Now().UnixNano() < atomic.LoadInt64(&c.openUntil) {
		return true
	}
	atomic.StoreInt32(&c.failures, 0)
	return false
}

func (c *Client) recordFailure() {
	v := atomic.AddInt32(&c.failures, 1)
	if c.cfg.CircuitFailureThreshold > 0 && v >= int32(c.cfg.CircuitFailureThreshold) {
		atomic.StoreInt64(&c.openUntil, time.Now().Add(c.cfg.CircuitReset).UnixNano())
	}
}
