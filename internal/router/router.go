package router

import (
	"net/http"

	"phankid/internal/handler"
	"phankid/internal/middleware"

	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers served by the router.
type Handlers struct {
	Product   *handler.ProductHandler
	Cart      *handler.CartHandler
	Order     *handler.OrderHandler
	Payment   *handler.PaymentHandler
	Inventory *handler.InventoryHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, apiKey string, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	mux.HandleFunc("GET /api/products", h.Product.List)
	mux.HandleFunc("GET /api/products/{id}", h.Product.Get)

	mux.HandleFunc("GET /api/cart", h.Cart.Get)
	mux.HandleFunc("DELETE /api/cart", h.Cart.Clear)
	mux.HandleFunc("POST /api/cart/items", h.Cart.AddItem)
	mux.HandleFunc("PUT /api/cart/items/{variantId}", h.Cart.UpdateItem)
	mux.HandleFunc("DELETE /api/cart/items/{variantId}", h.Cart.RemoveItem)
	mux.HandleFunc("POST /api/cart/merge", h.Cart.Merge)

	mux.HandleFunc("POST /api/orders", h.Order.Create)
	mux.HandleFunc("GET /api/orders", h.Order.ListMine)
	mux.HandleFunc("GET /api/orders/{id}", h.Order.Get)
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.Order.Cancel)
	mux.HandleFunc("GET /api/orders/track/{code}", h.Order.Track)

	mux.HandleFunc("POST /api/payments", h.Payment.Initiate)
	mux.HandleFunc("POST /api/payments/callback", h.Payment.Callback)
	mux.HandleFunc("GET /api/payments/order/{id}", h.Payment.GetByOrder)

	mux.HandleFunc("GET /api/admin/orders", h.Order.AdminList)
	mux.HandleFunc("GET /api/admin/orders/{id}", h.Order.AdminGet)
	mux.HandleFunc("PUT /api/admin/orders/{id}/status", h.Order.UpdateStatus)

	mux.HandleFunc("GET /api/admin/inventory/low-stock", h.Inventory.LowStock)
	mux.HandleFunc("GET /api/admin/inventory/out-of-stock", h.Inventory.OutOfStock)
	mux.HandleFunc("GET /api/admin/inventory/{variantId}", h.Inventory.Get)
	mux.HandleFunc("POST /api/admin/inventory/{variantId}/restock", h.Inventory.Restock)

	mux.HandleFunc("GET /api/admin/carts/expired", h.Cart.ExpiredGuestCarts)
	mux.HandleFunc("POST /api/admin/carts/abandon-expired", h.Cart.AbandonExpired)

	// Apply middleware in order: Recovery -> Logging -> CORS -> APIKeyAuth -> Identity
	var handler http.Handler = mux
	handler = middleware.Identity(logger)(handler)
	handler = middleware.APIKeyAuth(apiKey, logger)(handler)
	handler = middleware.CORS(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}
