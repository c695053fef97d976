package api

import (
	"net/http"

	"github.com/garnizeh/terapia/internal/apperr"
	"github.com/garnizeh/terapia/internal/sessions"
	"github.com/garnizeh/terapia/pkg/models"
	"github.com/garnizeh/terapia/pkg/payments"
)

type PaymentHandler struct {
	client   *payments.Client
	sessions *sessions.Service
	currency string
}

// NewPaymentHandler wires the payment functions. A nil client answers every
// call with an error.
func NewPaymentHandler(client *payments.Client, sess *sessions.Service) *PaymentHandler {
	return &PaymentHandler{client: client, sessions: sess, currency: "brl"}
}

type checkoutRequest struct {
	SessaoID   string `json:"sessao_id"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

type subscriptionRequest struct {
	PlanID string `json:"plan_id"`
}

type processRequest struct {
	SessaoID      string `json:"sessao_id"`
	PaymentMethod string `json:"payment_method"`
}

type processResponse struct {
	Remote  *payments.ProcessResponse `json:"remote"`
	Payment *models.Payment           `json:"payment"`
}

func (h *PaymentHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sess, err := h.session(r, req.SessaoID)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.client.CreateCheckout(r.Context(), payments.CheckoutRequest{
		SessaoID:      sess.ID,
		Amount:        sess.Valor,
		Currency:      h.currency,
		CustomerEmail: caller(r).Profile.Email,
		SuccessURL:    req.SuccessURL,
		CancelURL:     req.CancelURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"checkout": res, "publishable_key": h.client.PublishableKey()})
}

func (h *PaymentHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.PlanID == "" {
		writeError(w, apperr.Validation("plan_id", "obrigatório"))
		return
	}
	p := caller(r).Profile
	res, err := h.client.CreateSubscription(r.Context(), payments.SubscriptionRequest{PlanID: req.PlanID, UserID: p.ID, CustomerEmail: p.Email})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Process charges the session and records the outcome as a payment row.
func (h *PaymentHandler) Process(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req processRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sess, err := h.session(r, req.SessaoID)
	if err != nil {
		writeError(w, err)
		return
	}

	pr := payments.ProcessRequest{SessaoID: sess.ID, Amount: sess.Valor, PaymentMethod: req.PaymentMethod}
	if sess.ClienteID != nil {
		pr.ClienteID = *sess.ClienteID
	}
	res, err := h.client.ProcessPayment(r.Context(), pr)
	if err != nil {
		writeError(w, err)
		return
	}

	status := res.Status
	switch status {
	case models.PaymentPaid, models.PaymentPending, models.PaymentFailed, models.PaymentRefunded:
	default:
		status = models.PaymentPending
	}
	payment, err := h.sessions.RecordPayment(r.Context(), sess.ID, sess.Valor, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, processResponse{Remote: res, Payment: payment})
}

func (h *PaymentHandler) ready(w http.ResponseWriter) bool {
	if h.client == nil {
		writeError(w, payments.ErrNotConfigured)
		return false
	}
	return true
}

func (h *PaymentHandler) session(r *http.Request, id string) (*models.Session, error) {
	if id == "" {
		return nil, apperr.Validation("sessao_id", "obrigatório")
	}
	sess, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	p := caller(r).Profile
	if !sessions.CanAccess(sess, p.ID, p.Role) {
		return nil, apperr.ErrForbidden
	}
	if sess.Valor <= 0 {
		return nil, apperr.Validation("valor", "sessão sem valor a cobrar")
	}
	return sess, nil
}
