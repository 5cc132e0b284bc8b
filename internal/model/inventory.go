package model

import "time"

// DefaultLowStockThreshold is used for variants created without an explicit threshold.
const DefaultLowStockThreshold = 10

// StockLevel holds the stock counters of one sellable variant.
// Invariant: 0 <= Reserved <= OnHand.
type StockLevel struct {
	VariantID         int64     `json:"variantId" db:"variant_id"`
	OnHand            int       `json:"onHand" db:"quantity"`
	Reserved          int       `json:"reserved" db:"reserved_quantity"`
	LowStockThreshold int       `json:"lowStockThreshold" db:"low_stock_threshold"`
	UpdatedAt         time.Time `json:"updatedAt" db:"updated_at"`
}

// Available returns the quantity that can still be reserved.
func (s StockLevel) Available() int {
	return s.OnHand - s.Reserved
}

// IsLowStock reports whether the available quantity is at or below the threshold.
func (s StockLevel) IsLowStock() bool {
	return s.Available() <= s.LowStockThreshold
}

// IsOutOfStock reports whether nothing is left to sell.
func (s StockLevel) IsOutOfStock() bool {
	return s.Available() <= 0
}

// Reserve holds qty units. It fails without changes if fewer are available.
func (s *StockLevel) Reserve(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if s.Available() < qty {
		return &InsufficientStockError{VariantID: s.VariantID, Requested: qty, Available: max(s.Available(), 0)}
	}
	s.Reserved += qty
	return nil
}

// Release returns up to qty reserved units to the pool and reports how many
// were actually released. Reserved never goes below zero.
func (s *StockLevel) Release(qty int) int {
	if qty <= 0 {
		return 0
	}
	released := min(qty, s.Reserved)
	s.Reserved -= released
	return released
}

// Deduct permanently removes qty units, consuming the matching reservation.
// It fails without changes if fewer than qty units are on hand.
func (s *StockLevel) Deduct(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if s.OnHand < qty {
		return &InsufficientStockError{VariantID: s.VariantID, Requested: qty, Available: s.OnHand}
	}
	s.OnHand -= qty
	s.Reserved = max(0, s.Reserved-qty)
	return nil
}

// AddStock increases the on-hand quantity after a delivery.
func (s *StockLevel) AddStock(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	s.OnHand += qty
	return nil
}

// StockView is the JSON shape returned for a stock lookup.
type StockView struct {
	StockLevel
	Available  int  `json:"available"`
	LowStock   bool `json:"lowStock"`
	OutOfStock bool `json:"outOfStock"`
}

// View returns the stock level with its derived fields filled in.
func (s StockLevel) View() StockView {
	return StockView{
		StockLevel: s,
		Available:  s.Available(),
		LowStock:   s.IsLowStock(),
		OutOfStock: s.IsOutOfStock(),
	}
}

// RestockRequest is the payload for recording a delivery.
type RestockRequest struct {
	Quantity int `json:"quantity"`
}
