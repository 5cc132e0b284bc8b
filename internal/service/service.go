package service

import (
	"context"

	"phankid/internal/model"

	"github.com/google/uuid"
)

// CatalogService defines read operations on the product catalogue.
type CatalogService interface {
	// ListProducts retrieves active products with pagination.
	ListProducts(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetProduct retrieves a product and its variants.
	GetProduct(ctx context.Context, id int64) (*model.ProductDetail, error)
}

// InventoryService manages per-variant stock counters. Each call runs in its
// own transaction; order flows use the ledger inside their transaction instead.
type InventoryService interface {
	// GetStock returns the counters of a variant.
	GetStock(ctx context.Context, variantID int64) (*model.StockView, error)

	// Reserve holds qty units of a variant.
	Reserve(ctx context.Context, variantID int64, qty int) error

	// Release returns up to qty reserved units and reports how many were released.
	Release(ctx context.Context, variantID int64, qty int) (int, error)

	// Deduct permanently removes qty units, consuming the reservation.
	Deduct(ctx context.Context, variantID int64, qty int) error

	// Restock adds delivered units to a variant.
	Restock(ctx context.Context, variantID int64, qty int) (*model.StockView, error)

	// ListLowStock lists variants at or below their low-stock threshold.
	ListLowStock(ctx context.Context, limit int) ([]model.StockView, error)

	// ListOutOfStock lists variants with nothing left to sell.
	ListOutOfStock(ctx context.Context, limit int) ([]model.StockView, error)
}

// CartService defines operations on shopping carts.
type CartService interface {
	// GetCart returns the owner's active cart, creating an empty one if needed.
	GetCart(ctx context.Context, owner model.CartOwner) (*model.CartView, error)

	// AddItem adds qty of a variant, merging with an existing line.
	AddItem(ctx context.Context, owner model.CartOwner, req *model.AddToCartRequest) (*model.CartView, error)

	// UpdateItemQuantity sets a line's quantity; zero or less removes the line.
	UpdateItemQuantity(ctx context.Context, owner model.CartOwner, variantID int64, qty int) (*model.CartView, error)

	// RemoveItem deletes a line.
	RemoveItem(ctx context.Context, owner model.CartOwner, variantID int64) (*model.CartView, error)

	// Clear deletes every line.
	Clear(ctx context.Context, owner model.CartOwner) (*model.CartView, error)

	// MergeGuestIntoUser folds a guest session's cart into the user's cart.
	MergeGuestIntoUser(ctx context.Context, userID int64, sessionID string) (*model.CartView, error)

	// ExpiredGuestCarts lists guest carts past their expiry that are still active.
	ExpiredGuestCarts(ctx context.Context, limit int) ([]model.Cart, error)

	// AbandonExpiredGuestCarts marks expired guest carts ABANDONED.
	AbandonExpiredGuestCarts(ctx context.Context) (int64, error)
}

// OrderService defines checkout and order lifecycle operations.
type OrderService interface {
	// CreateOrder turns the caller's cart into an order, reserving stock.
	CreateOrder(ctx context.Context, caller model.Identity, req *model.CreateOrderRequest) (*model.Order, error)

	// GetByID retrieves an order with its items and payment.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetForCaller retrieves an order the caller owns.
	GetForCaller(ctx context.Context, id uuid.UUID, caller model.Identity, email string) (*model.Order, error)

	// Track retrieves an order by code for its owner.
	Track(ctx context.Context, code string, caller model.Identity, email string) (*model.Order, error)

	// ListForUser lists a user's orders, newest first.
	ListForUser(ctx context.Context, userID int64, status *model.OrderStatus, limit, offset int) ([]model.Order, error)

	// List lists orders for back-office use.
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)

	// UpdateStatus moves an order through the lifecycle.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error)

	// Cancel cancels an order on behalf of its owner.
	Cancel(ctx context.Context, id uuid.UUID, caller model.Identity, req *model.CancelOrderRequest) (*model.Order, error)
}

// PaymentService defines operations on payment records.
type PaymentService interface {
	// InitiatePayment opens (or returns the open) payment for an order.
	InitiatePayment(ctx context.Context, orderID uuid.UUID, caller model.Identity, email string) (*model.Payment, error)

	// GetByOrderID returns the payment of an order.
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Payment, error)

	// HandleCallback applies a verified gateway result.
	HandleCallback(ctx context.Context, cb *model.PaymentCallback) (*model.Payment, error)
}
