package handler

import (
	"net/http"

	"phankid/internal/middleware"
	"phankid/internal/model"
	"phankid/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PaymentHandler handles payment-related HTTP requests.
type PaymentHandler struct {
	payments service.PaymentService
	orders   service.OrderService
	logger   zerolog.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(payments service.PaymentService, orders service.OrderService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		orders:   orders,
		logger:   logger.With().Str("handler", "payment").Logger(),
	}
}

// Initiate handles POST /api/payments.
func (h *PaymentHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req model.CreatePaymentRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	if req.OrderID == uuid.Nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "orderId is required", h.logger)
		return
	}

	payment, err := h.payments.InitiatePayment(r.Context(), req.OrderID, middleware.IdentityFrom(r.Context()), req.GuestEmail)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, payment.Response())
}

// GetByOrder handles GET /api/payments/order/{id}.
func (h *PaymentHandler) GetByOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	if _, err := h.orders.GetForCaller(r.Context(), id, middleware.IdentityFrom(r.Context()), r.URL.Query().Get("email")); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	payment, err := h.payments.GetByOrderID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, payment.Response())
}

// Callback handles POST /api/payments/callback, the verified gateway result.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var cb model.PaymentCallback
	if !decodeJSON(w, r, &cb, h.logger) {
		return
	}

	payment, err := h.payments.HandleCallback(r.Context(), &cb)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, payment.Response())
}
