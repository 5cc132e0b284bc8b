package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus is the publication state of a catalogue product.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusInactive ProductStatus = "INACTIVE"
)

// Product represents a clothing product in the catalogue.
type Product struct {
	ID        int64            `json:"id" db:"id"`
	Name      string           `json:"name" db:"name"`
	Slug      string           `json:"slug" db:"slug"`
	BasePrice decimal.Decimal  `json:"basePrice" db:"base_price"`
	SalePrice *decimal.Decimal `json:"salePrice,omitempty" db:"sale_price"`
	Status    ProductStatus    `json:"status" db:"status"`
	ImageURL  *string          `json:"imageUrl,omitempty" db:"image_url"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
}

// EffectivePrice is the sale price when one is set below the base price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice != nil && p.SalePrice.IsPositive() && p.SalePrice.LessThan(p.BasePrice) {
		return *p.SalePrice
	}
	return p.BasePrice
}

// OnSale reports whether the sale price applies.
func (p Product) OnSale() bool {
	return !p.EffectivePrice().Equal(p.BasePrice)
}

// VariantSnapshot is what the catalogue tells us about a variant at call time:
// its product, option names, live price, and stock.
type VariantSnapshot struct {
	VariantID     int64           `json:"variantId"`
	ProductID     int64           `json:"productId"`
	ProductName   string          `json:"productName"`
	ProductSlug   string          `json:"productSlug"`
	ProductStatus ProductStatus   `json:"productStatus"`
	SKU           string          `json:"sku"`
	SizeName      string          `json:"sizeName"`
	ColorName     string          `json:"colorName"`
	ImageURL      string          `json:"imageUrl,omitempty"`
	IsActive      bool            `json:"isActive"`
	FinalPrice    decimal.Decimal `json:"finalPrice"`
	Available     int             `json:"availableStock"`
}

// Purchasable reports whether the variant may be put in a cart or ordered.
func (v VariantSnapshot) Purchasable() bool {
	return v.IsActive && v.ProductStatus == ProductStatusActive
}

// Label names the variant the way customers see it, e.g. "Dino Tee (M - Blue)".
func (v VariantSnapshot) Label() string {
	return fmt.Sprintf("%s (%s - %s)", v.ProductName, v.SizeName, v.ColorName)
}

// ProductDetail is a product together with its sellable variants.
type ProductDetail struct {
	Product
	EffectivePrice decimal.Decimal   `json:"effectivePrice"`
	Variants       []VariantSnapshot `json:"variants"`
}
