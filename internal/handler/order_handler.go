package handler

import (
	"net/http"
	"strconv"
	"strings"

	"phankid/internal/middleware"
	"phankid/internal/model"
	"phankid/internal/service"

	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateOrderRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	order, err := h.service.CreateOrder(r.Context(), middleware.IdentityFrom(r.Context()), &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order.Response())
}

// Get handles GET /api/orders/{id}. Guests pass their checkout email as ?email=.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	order, err := h.service.GetForCaller(r.Context(), id, middleware.IdentityFrom(r.Context()), r.URL.Query().Get("email"))
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order.Response())
}

// Track handles GET /api/orders/track/{code}.
func (h *OrderHandler) Track(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.PathValue("code"))
	if code == "" {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "order code is required", h.logger)
		return
	}

	order, err := h.service.Track(r.Context(), code, middleware.IdentityFrom(r.Context()), r.URL.Query().Get("email"))
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order.Response())
}

// ListMine handles GET /api/orders for the logged-in user.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	caller := middleware.IdentityFrom(r.Context())
	if !caller.IsAuthenticated() {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "login required to list orders", h.logger)
		return
	}
	limit, offset, ok := pagination(w, r, h.logger)
	if !ok {
		return
	}
	status, ok := statusParam(w, r, h.logger)
	if !ok {
		return
	}

	orders, err := h.service.ListForUser(r.Context(), *caller.UserID, status, limit, offset)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, responses(orders))
}

// Cancel handles POST /api/orders/{id}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req model.CancelOrderRequest
	if !decodeOptionalJSON(w, r, &req, h.logger) {
		return
	}

	order, err := h.service.Cancel(r.Context(), id, middleware.IdentityFrom(r.Context()), &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order.Response())
}

// AdminList handles GET /api/admin/orders.
func (h *OrderHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r, h.logger)
	if !ok {
		return
	}
	status, ok := statusParam(w, r, h.logger)
	if !ok {
		return
	}

	filter := model.OrderFilter{
		GuestEmail: strings.TrimSpace(r.URL.Query().Get("guestEmail")),
		Status:     status,
		Limit:      limit,
		Offset:     offset,
	}
	if raw := r.URL.Query().Get("userId"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "invalid userId parameter", h.logger)
			return
		}
		filter.UserID = &userID
	}

	orders, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, responses(orders))
}

// AdminGet handles GET /api/admin/orders/{id}.
func (h *OrderHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	order, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order.Response())
}

// UpdateStatus handles PUT /api/admin/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req model.UpdateOrderStatusRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	status, err := model.ParseOrderStatus(req.Status)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), id, status)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order.Response())
}

func responses(orders []model.Order) []*model.OrderResponse {
	out := make([]*model.OrderResponse, len(orders))
	for i := range orders {
		out[i] = orders[i].Response()
	}
	return out
}
