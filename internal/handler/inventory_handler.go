package handler

import (
	"net/http"

	"phankid/internal/model"
	"phankid/internal/service"

	"github.com/rs/zerolog"
)

// InventoryHandler exposes stock counters to the back office.
type InventoryHandler struct {
	service service.InventoryService
	logger  zerolog.Logger
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(service service.InventoryService, logger zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: service,
		logger:  logger.With().Str("handler", "inventory").Logger(),
	}
}

// Get handles GET /api/admin/inventory/{variantId}.
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	variantID, ok := pathInt64(w, r, "variantId", h.logger)
	if !ok {
		return
	}

	stock, err := h.service.GetStock(r.Context(), variantID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, stock)
}

// LowStock handles GET /api/admin/inventory/low-stock.
func (h *InventoryHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	limit, _, ok := pagination(w, r, h.logger)
	if !ok {
		return
	}

	stock, err := h.service.ListLowStock(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, stock)
}

// OutOfStock handles GET /api/admin/inventory/out-of-stock.
func (h *InventoryHandler) OutOfStock(w http.ResponseWriter, r *http.Request) {
	limit, _, ok := pagination(w, r, h.logger)
	if !ok {
		return
	}

	stock, err := h.service.ListOutOfStock(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, stock)
}

// Restock handles POST /api/admin/inventory/{variantId}/restock.
func (h *InventoryHandler) Restock(w http.ResponseWriter, r *http.Request) {
	variantID, ok := pathInt64(w, r, "variantId", h.logger)
	if !ok {
		return
	}

	var req model.RestockRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	stock, err := h.service.Restock(r.Context(), variantID, req.Quantity)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, stock)
}
