package repository

import (
	"context"
	"time"

	"phankid/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Transactor starts database transactions for multi-step writes.
type Transactor interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

// CatalogRepository reads the product catalogue. The catalogue is owned
// elsewhere; this service only reads names, prices and variant state.
type CatalogRepository interface {
	// ListProducts retrieves active products with pagination support.
	ListProducts(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetProduct retrieves a product with its variants, or nil if it does not exist.
	GetProduct(ctx context.Context, id int64) (*model.ProductDetail, error)

	// GetVariants returns live snapshots keyed by variant id. Unknown ids are
	// absent from the map.
	GetVariants(ctx context.Context, ids []int64) (map[int64]model.VariantSnapshot, error)
}

// InventoryRepository defines data access for per-variant stock counters.
type InventoryRepository interface {
	// GetByVariantID reads the current counters without locking.
	GetByVariantID(ctx context.Context, variantID int64) (*model.StockLevel, error)

	// LockForUpdate reads the counters and holds a row lock until tx ends.
	// Returns nil if the variant has no inventory row.
	LockForUpdate(ctx context.Context, tx pgx.Tx, variantID int64) (*model.StockLevel, error)

	// Save writes the counters, creating the row if needed.
	Save(ctx context.Context, tx pgx.Tx, level *model.StockLevel) error

	// ListLowStock lists variants whose available quantity is at or below their threshold.
	ListLowStock(ctx context.Context, limit int) ([]model.StockLevel, error)

	// ListOutOfStock lists variants with nothing left to sell.
	ListOutOfStock(ctx context.Context, limit int) ([]model.StockLevel, error)
}

// CartRepository defines data access for carts and their lines.
type CartRepository interface {
	Transactor

	// FindActive returns the owner's ACTIVE cart with its lines, or nil.
	FindActive(ctx context.Context, owner model.CartOwner) (*model.Cart, error)

	// LockActive is FindActive inside tx, holding the cart row lock.
	LockActive(ctx context.Context, tx pgx.Tx, owner model.CartOwner) (*model.Cart, error)

	// Create inserts a cart. It reports false when another ACTIVE cart for
	// the same owner already exists.
	Create(ctx context.Context, tx pgx.Tx, cart *model.Cart) (bool, error)

	// UpsertLine sets the quantity of a variant in a cart.
	UpsertLine(ctx context.Context, tx pgx.Tx, line *model.CartLine) error

	// DeleteLine removes one variant from a cart and reports whether it was present.
	DeleteLine(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, variantID int64) (bool, error)

	// DeleteLines removes every line of a cart.
	DeleteLines(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error

	// UpdateStatus moves a cart to status.
	UpdateStatus(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, status model.CartStatus, at time.Time) error

	// Touch bumps the cart's updated_at.
	Touch(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, at time.Time) error

	// ListExpiredGuestCarts lists ACTIVE guest carts that expired before now.
	ListExpiredGuestCarts(ctx context.Context, now time.Time, limit int) ([]model.Cart, error)

	// MarkExpiredAbandoned marks every expired ACTIVE guest cart ABANDONED.
	MarkExpiredAbandoned(ctx context.Context, now time.Time) (int64, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	Transactor

	// NextOrderSequence atomically claims the next order number for day.
	NextOrderSequence(ctx context.Context, tx pgx.Tx, day time.Time) (int, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order by its ID along with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetByCode retrieves an order by its human-readable code.
	GetByCode(ctx context.Context, code string) (*model.Order, error)

	// LockByID reads an order with its items and holds the order row lock.
	LockByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)

	// UpdateStatus persists status, lifecycle timestamps and cancellation reason.
	UpdateStatus(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// List returns orders matching filter, newest first, with their items.
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)
}

// PaymentRepository defines data access for payment records.
type PaymentRepository interface {
	// GetByOrderID returns the payment of an order, or nil.
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Payment, error)

	// GetByOrderIDs returns payments keyed by order id.
	GetByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID]*model.Payment, error)

	// LockByOrderID is GetByOrderID inside tx with a row lock.
	LockByOrderID(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*model.Payment, error)

	// GetByReference finds a payment by our transaction id or the gateway's.
	GetByReference(ctx context.Context, reference string) (*model.Payment, error)

	// Create inserts a payment.
	Create(ctx context.Context, tx pgx.Tx, payment *model.Payment) error

	// Update writes the mutable payment fields.
	Update(ctx context.Context, tx pgx.Tx, payment *model.Payment) error
}
