package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GuestCartTTL is how long a guest cart lives before the sweep abandons it.
const GuestCartTTL = 7 * 24 * time.Hour

// CartStatus is the lifecycle state of a cart.
type CartStatus string

const (
	CartStatusActive    CartStatus = "ACTIVE"
	CartStatusAbandoned CartStatus = "ABANDONED"
	CartStatusMerged    CartStatus = "MERGED"
)

// Cart is a per-user or per-session list of lines.
type Cart struct {
	ID        uuid.UUID
	Owner     CartOwner
	Status    CartStatus
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	Lines     []CartLine
}

// CartLine is the quantity of one variant held in one cart.
type CartLine struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CartID    uuid.UUID `json:"-" db:"cart_id"`
	VariantID int64     `json:"variantId" db:"variant_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	AddedAt   time.Time `json:"addedAt" db:"added_at"`
}

// NewCart returns a fresh ACTIVE cart for owner. Guest carts expire after ttl.
func NewCart(owner CartOwner, now time.Time, ttl time.Duration) *Cart {
	c := &Cart{
		ID:        uuid.New(),
		Owner:     owner,
		Status:    CartStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if owner.IsGuest() {
		expires := now.Add(ttl)
		c.ExpiresAt = &expires
	}
	return c
}

// IsEmpty reports whether the cart holds no lines.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}

// IsExpired reports whether a guest cart has passed its expiry.
func (c *Cart) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// Line returns the line for variantID, if present.
func (c *Cart) Line(variantID int64) (CartLine, bool) {
	for _, l := range c.Lines {
		if l.VariantID == variantID {
			return l, true
		}
	}
	return CartLine{}, false
}

// VariantIDs lists the variants in the cart, in line order.
func (c *Cart) VariantIDs() []int64 {
	ids := make([]int64, len(c.Lines))
	for i, l := range c.Lines {
		ids[i] = l.VariantID
	}
	return ids
}

// MergedQuantity is the quantity a user line ends up with when a guest line
// for the same variant is folded in. It is clamped to the available stock.
func MergedQuantity(existing, guest, available int) int {
	return max(0, min(existing+guest, available))
}

// CartItemView is a cart line priced at read time.
type CartItemView struct {
	ID             uuid.UUID       `json:"id"`
	VariantID      int64           `json:"variantId"`
	ProductName    string          `json:"productName"`
	ProductSlug    string          `json:"productSlug"`
	VariantSKU     string          `json:"variantSku"`
	SizeName       string          `json:"sizeName"`
	ColorName      string          `json:"colorName"`
	ImageURL       string          `json:"imageUrl,omitempty"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	Quantity       int             `json:"quantity"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	AvailableStock int             `json:"availableStock"`
	InStock        bool            `json:"inStock"`
}

// CartView is the priced cart returned to callers.
type CartView struct {
	ID         uuid.UUID       `json:"id"`
	Status     CartStatus      `json:"status"`
	ExpiresAt  *time.Time      `json:"expiresAt,omitempty"`
	Items      []CartItemView  `json:"items"`
	TotalItems int             `json:"totalItems"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// PriceCart prices every line of cart against the live variant snapshots.
// Lines whose variant is missing from variants are skipped.
func PriceCart(cart *Cart, variants map[int64]VariantSnapshot) *CartView {
	view := &CartView{
		ID:        cart.ID,
		Status:    cart.Status,
		ExpiresAt: cart.ExpiresAt,
		Items:     make([]CartItemView, 0, len(cart.Lines)),
		Subtotal:  decimal.Zero,
	}
	for _, line := range cart.Lines {
		v, ok := variants[line.VariantID]
		if !ok {
			continue
		}
		subtotal := v.FinalPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		view.Items = append(view.Items, CartItemView{
			ID:             line.ID,
			VariantID:      line.VariantID,
			ProductName:    v.ProductName,
			ProductSlug:    v.ProductSlug,
			VariantSKU:     v.SKU,
			SizeName:       v.SizeName,
			ColorName:      v.ColorName,
			ImageURL:       v.ImageURL,
			UnitPrice:      v.FinalPrice,
			Quantity:       line.Quantity,
			Subtotal:       subtotal,
			AvailableStock: v.Available,
			InStock:        v.Available > 0,
		})
		view.TotalItems += line.Quantity
		view.Subtotal = view.Subtotal.Add(subtotal)
	}
	return view
}

// AddToCartRequest is the payload for adding a variant to the cart.
type AddToCartRequest struct {
	VariantID int64 `json:"variantId"`
	Quantity  int   `json:"quantity"`
}

// UpdateCartItemRequest is the payload for changing a line's quantity.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}
