package handler

import (
	"net/http"
	"time"

	"phankid/internal/middleware"
	"phankid/internal/model"
	"phankid/internal/service"

	"github.com/rs/zerolog"
)

// CartHandler handles cart-related HTTP requests.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

func (h *CartHandler) owner(w http.ResponseWriter, r *http.Request) (model.CartOwner, bool) {
	owner, err := middleware.IdentityFrom(r.Context()).CartOwner()
	if err != nil {
		writeServiceError(w, err, h.logger)
		return model.CartOwner{}, false
	}
	return owner, true
}

// Get handles GET /api/cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	cart, err := h.service.GetCart(r.Context(), owner)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// AddItem handles POST /api/cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req model.AddToCartRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	if req.VariantID <= 0 {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "variantId is required", h.logger)
		return
	}

	cart, err := h.service.AddItem(r.Context(), owner, &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// UpdateItem handles PUT /api/cart/items/{variantId}.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	variantID, ok := pathInt64(w, r, "variantId", h.logger)
	if !ok {
		return
	}

	var req model.UpdateCartItemRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	cart, err := h.service.UpdateItemQuantity(r.Context(), owner, variantID, req.Quantity)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// RemoveItem handles DELETE /api/cart/items/{variantId}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	variantID, ok := pathInt64(w, r, "variantId", h.logger)
	if !ok {
		return
	}

	cart, err := h.service.RemoveItem(r.Context(), owner, variantID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// Clear handles DELETE /api/cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	cart, err := h.service.Clear(r.Context(), owner)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// Merge handles POST /api/cart/merge. The caller must be logged in and still
// present the guest session whose cart is folded in.
func (h *CartHandler) Merge(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	if !id.IsAuthenticated() {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "login required to merge carts", h.logger)
		return
	}
	if id.SessionID == "" {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidIdentity, "X-Session-ID header is required", h.logger)
		return
	}

	cart, err := h.service.MergeGuestIntoUser(r.Context(), *id.UserID, id.SessionID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// ExpiredGuestCarts handles GET /api/admin/carts/expired.
func (h *CartHandler) ExpiredGuestCarts(w http.ResponseWriter, r *http.Request) {
	limit, _, ok := pagination(w, r, h.logger)
	if !ok {
		return
	}

	carts, err := h.service.ExpiredGuestCarts(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	type expiredCart struct {
		ID        string     `json:"id"`
		Owner     string     `json:"owner"`
		ExpiresAt *time.Time `json:"expiresAt"`
	}
	out := make([]expiredCart, len(carts))
	for i, c := range carts {
		out[i] = expiredCart{ID: c.ID.String(), Owner: c.Owner.String(), ExpiresAt: c.ExpiresAt}
	}
	writeJSON(w, http.StatusOK, out)
}

// AbandonExpired handles POST /api/admin/carts/abandon-expired.
func (h *CartHandler) AbandonExpired(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.AbandonExpiredGuestCarts(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"abandoned": n})
}
