package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"club-system/config"
	"club-system/internal/billing/qrbank"
	"club-system/internal/services"
)

type PaymentHandler struct {
	app      *pocketbase.PocketBase
	payments *services.PaymentService
	cfg      *config.Config
}

func NewPaymentHandler(app *pocketbase.PocketBase, payments *services.PaymentService, cfg *config.Config) *PaymentHandler {
	return &PaymentHandler{
		app:      app,
		payments: payments,
		cfg:      cfg,
	}
}

// GetPaymentSummary returns what the caller's party owes for an event, one
// row per going attendee.
func (h *PaymentHandler) GetPaymentSummary(e *core.RequestEvent) error {
	if err := requireActiveMember(e); err != nil {
		return err
	}

	eventID := e.Request.PathValue("eventId")
	items, total, err := h.payments.Summary(e.Request.Context(), e.Auth.Id, eventID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"items": items, "total": total})
}

// OpenPayment starts a payment session for everything the caller's party
// still owes on an event. An open pending session is returned as is.
func (h *PaymentHandler) OpenPayment(e *core.RequestEvent) error {
	if err := requireActiveMember(e); err != nil {
		return err
	}

	var req struct {
		EventID string `json:"event_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.EventID == "" {
		return apis.NewBadRequestError("Event ID required", nil)
	}

	payment, err := h.payments.OpenSession(e.Request.Context(), e.Auth.Id, req.EventID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, payment)
}

// GetPayment returns one of the caller's payments.
func (h *PaymentHandler) GetPayment(e *core.RequestEvent) error {
	if err := requireActiveMember(e); err != nil {
		return err
	}

	payment, err := h.payments.Get(e.Request.Context(), e.Auth.Id, e.Request.PathValue("paymentId"))
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, payment)
}

// CheckPaymentStatus polls the gateway for a pending payment and returns the
// refreshed record.
func (h *PaymentHandler) CheckPaymentStatus(e *core.RequestEvent) error {
	if err := requireActiveMember(e); err != nil {
		return err
	}

	payment, err := h.payments.Status(e.Request.Context(), e.Auth.Id, e.Request.PathValue("paymentId"))
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"status": payment.Status, "payment": payment})
}

// CancelPayment cancels a pending payment session.
func (h *PaymentHandler) CancelPayment(e *core.RequestEvent) error {
	if err := requireActiveMember(e); err != nil {
		return err
	}

	payment, err := h.payments.Cancel(e.Request.Context(), e.Auth.Id, e.Request.PathValue("paymentId"))
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "Payment cancelled", "payment": payment})
}

// SimulatePayment settles a bill through the dev provider. Registered in
// development only and still guarded by the callback secret so a stray
// deployment cannot be settled from outside.
func (h *PaymentHandler) SimulatePayment(e *core.RequestEvent) error {
	var req struct {
		Reference string          `json:"reference"`
		Payer     string          `json:"payer"`
		Amount    decimal.Decimal `json:"amount"`
		Secret    string          `json:"secret"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Reference == "" {
		return apis.NewBadRequestError("Reference required", nil)
	}

	if h.cfg.BillingCallbackHash != "" &&
		!qrbank.CompareHash([]byte(h.cfg.BillingCallbackHash), []byte(req.Secret)) {
		return apis.NewUnauthorizedError("Invalid callback secret", nil)
	}

	if err := h.payments.SimulateSettle(e.Request.Context(), req.Reference, req.Payer, req.Amount); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "Settlement sent"})
}
