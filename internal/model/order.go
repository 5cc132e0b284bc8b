package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is a state of the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusShipping  OrderStatus = "SHIPPING"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusShipping, OrderStatusCancelled},
	OrderStatusShipping:  {OrderStatusDelivered, OrderStatusCompleted},
	OrderStatusDelivered: {OrderStatusCompleted},
}

// ParseOrderStatus validates a status name.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch status {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipping,
		OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled:
		return status, nil
	}
	return "", Errorf(ErrInvalidStatusTransition, "Unknown order status: %s", s)
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Payment methods accepted at checkout.
const (
	PaymentMethodCOD    = "COD"
	PaymentMethodVNPay  = "VNPAY"
	PaymentMethodMoMo   = "MOMO"
	PaymentMethodStripe = "STRIPE"
)

// DefaultShippingMethod is used when checkout does not name one.
const DefaultShippingMethod = "STANDARD"

// ParsePaymentMethod normalises and validates a payment method.
func ParsePaymentMethod(s string) (string, error) {
	method := strings.ToUpper(strings.TrimSpace(s))
	switch method {
	case PaymentMethodCOD, PaymentMethodVNPay, PaymentMethodMoMo, PaymentMethodStripe:
		return method, nil
	case "":
		return "", Errorf(ErrMissingField, "Payment method is required")
	}
	return "", Errorf(ErrInvalidPaymentMethod, "Payment method %s is not supported", s)
}

// ShippingInfo is the delivery address captured at checkout.
type ShippingInfo struct {
	RecipientName  string `json:"recipientName"`
	RecipientPhone string `json:"recipientPhone"`
	Province       string `json:"shippingProvince"`
	District       string `json:"shippingDistrict"`
	Ward           string `json:"shippingWard"`
	Address        string `json:"shippingAddress"`
}

// Validate checks that every address field is filled in.
func (s ShippingInfo) Validate() error {
	fields := []struct{ name, value string }{
		{"recipientName", s.RecipientName},
		{"recipientPhone", s.RecipientPhone},
		{"shippingProvince", s.Province},
		{"shippingDistrict", s.District},
		{"shippingWard", s.Ward},
		{"shippingAddress", s.Address},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return Errorf(ErrMissingField, "%s is required", f.name)
		}
	}
	return nil
}

// FullAddress joins the address parts from most to least specific.
func (s ShippingInfo) FullAddress() string {
	return fmt.Sprintf("%s, %s, %s, %s", s.Address, s.Ward, s.District, s.Province)
}

// Order is an immutable checkout record; only status fields change after creation.
type Order struct {
	ID                 uuid.UUID
	Code               string
	Owner              OrderOwner
	Status             OrderStatus
	Shipping           ShippingInfo
	Subtotal           decimal.Decimal
	ShippingFee        decimal.Decimal
	TotalAmount        decimal.Decimal
	PaymentMethod      string
	ShippingMethod     string
	Notes              *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	PaidAt             *time.Time
	ShippedAt          *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason *string
	Items              []OrderItem
	Payment            *Payment
}

// OrderItem is a frozen copy of a cart line at checkout time.
type OrderItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderID     uuid.UUID       `json:"-" db:"order_id"`
	VariantID   int64           `json:"variantId" db:"variant_id"`
	ProductName string          `json:"productName" db:"product_name"`
	VariantSKU  string          `json:"variantSku" db:"variant_sku"`
	SizeName    string          `json:"sizeName" db:"size_name"`
	ColorName   string          `json:"colorName" db:"color_name"`
	UnitPrice   decimal.Decimal `json:"unitPrice" db:"unit_price"`
	Quantity    int             `json:"quantity" db:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal" db:"subtotal"`
	ImageURL    string          `json:"productImageUrl,omitempty" db:"product_image_url"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

// SnapshotItem copies the live variant data into an order item.
func SnapshotItem(orderID uuid.UUID, v VariantSnapshot, qty int, now time.Time) OrderItem {
	return OrderItem{
		ID:          uuid.New(),
		OrderID:     orderID,
		VariantID:   v.VariantID,
		ProductName: v.ProductName,
		VariantSKU:  v.SKU,
		SizeName:    v.SizeName,
		ColorName:   v.ColorName,
		UnitPrice:   v.FinalPrice,
		Quantity:    qty,
		Subtotal:    v.FinalPrice.Mul(decimal.NewFromInt(int64(qty))),
		ImageURL:    v.ImageURL,
		CreatedAt:   now,
	}
}

// CanBeCancelled reports whether the order may still be cancelled.
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusPaid
}

// TotalItems sums the quantities of every item.
func (o *Order) TotalItems() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// Transition moves the order to next and stamps the matching timestamp.
func (o *Order) Transition(next OrderStatus, at time.Time) error {
	if next == OrderStatusCancelled && !o.CanBeCancelled() {
		return Errorf(ErrOrderNotCancellable, "Order cannot be cancelled. Current status: %s", o.Status)
	}
	if !o.Status.CanTransitionTo(next) {
		return Errorf(ErrInvalidStatusTransition, "Cannot change order status from %s to %s", o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = at
	switch next {
	case OrderStatusPaid:
		o.PaidAt = &at
	case OrderStatusShipping:
		o.ShippedAt = &at
	case OrderStatusCompleted:
		o.CompletedAt = &at
	case OrderStatusCancelled:
		o.CancelledAt = &at
	}
	return nil
}

// PaymentStatus is derived: the payment record's status, PENDING for
// cash-on-delivery orders without one, otherwise nil.
func (o *Order) PaymentStatus() *PaymentStatus {
	if o.Payment != nil {
		s := o.Payment.Status
		return &s
	}
	if strings.EqualFold(o.PaymentMethod, PaymentMethodCOD) {
		s := PaymentStatusPending
		return &s
	}
	return nil
}

// FormatOrderCode renders the human-readable code ORD-YYYYMMDD-NNNNNN.
func FormatOrderCode(day time.Time, seq int) string {
	return fmt.Sprintf("ORD-%s-%06d", day.Format("20060102"), seq)
}

// PricingPolicy decides the shipping fee for a subtotal.
type PricingPolicy struct {
	FreeShippingThreshold decimal.Decimal
	StandardShippingFee   decimal.Decimal
}

// DefaultPricingPolicy ships free from 599,000 and charges 30,000 below that.
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		FreeShippingThreshold: decimal.NewFromInt(599000),
		StandardShippingFee:   decimal.NewFromInt(30000),
	}
}

// ShippingFee returns the fee charged for an order with the given subtotal.
func (p PricingPolicy) ShippingFee(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.StandardShippingFee
}

// CreateOrderRequest is the checkout payload.
type CreateOrderRequest struct {
	GuestEmail     string  `json:"guestEmail,omitempty"`
	PaymentMethod  string  `json:"paymentMethod"`
	ShippingMethod string  `json:"shippingMethod,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	ShippingInfo
}

// CancelOrderRequest is the payload for a customer cancellation.
type CancelOrderRequest struct {
	Reason     string `json:"reason"`
	GuestEmail string `json:"guestEmail,omitempty"`
}

// UpdateOrderStatusRequest is the payload for an admin status change.
type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

// OrderResponse represents the response payload for an order.
type OrderResponse struct {
	ID                  uuid.UUID        `json:"id"`
	OrderCode           string           `json:"orderCode"`
	Status              OrderStatus      `json:"status"`
	UserID              *int64           `json:"userId,omitempty"`
	GuestEmail          *string          `json:"guestEmail,omitempty"`
	RecipientName       string           `json:"recipientName"`
	RecipientPhone      string           `json:"recipientPhone"`
	ShippingProvince    string           `json:"shippingProvince"`
	ShippingDistrict    string           `json:"shippingDistrict"`
	ShippingWard        string           `json:"shippingWard"`
	ShippingAddress     string           `json:"shippingAddress"`
	FullShippingAddress string           `json:"fullShippingAddress"`
	Subtotal            decimal.Decimal  `json:"subtotal"`
	ShippingFee         decimal.Decimal  `json:"shippingFee"`
	TotalAmount         decimal.Decimal  `json:"totalAmount"`
	PaymentMethod       string           `json:"paymentMethod"`
	PaymentStatus       *PaymentStatus   `json:"paymentStatus,omitempty"`
	ShippingMethod      string           `json:"shippingMethod"`
	Notes               *string          `json:"notes,omitempty"`
	TotalItems          int              `json:"totalItems"`
	Items               []OrderItem      `json:"items"`
	Payment             *PaymentResponse `json:"payment,omitempty"`
	CreatedAt           time.Time        `json:"createdAt"`
	PaidAt              *time.Time       `json:"paidAt,omitempty"`
	ShippedAt           *time.Time       `json:"shippedAt,omitempty"`
	CompletedAt         *time.Time       `json:"completedAt,omitempty"`
	CancelledAt         *time.Time       `json:"cancelledAt,omitempty"`
	CancellationReason  *string          `json:"cancellationReason,omitempty"`
}

// Response maps the order to its API representation.
func (o *Order) Response() *OrderResponse {
	userID, guestEmail := o.Owner.Columns()
	items := o.Items
	if items == nil {
		items = []OrderItem{}
	}
	resp := &OrderResponse{
		ID:                  o.ID,
		OrderCode:           o.Code,
		Status:              o.Status,
		UserID:              userID,
		GuestEmail:          guestEmail,
		RecipientName:       o.Shipping.RecipientName,
		RecipientPhone:      o.Shipping.RecipientPhone,
		ShippingProvince:    o.Shipping.Province,
		ShippingDistrict:    o.Shipping.District,
		ShippingWard:        o.Shipping.Ward,
		ShippingAddress:     o.Shipping.Address,
		FullShippingAddress: o.Shipping.FullAddress(),
		Subtotal:            o.Subtotal,
		ShippingFee:         o.ShippingFee,
		TotalAmount:         o.TotalAmount,
		PaymentMethod:       o.PaymentMethod,
		PaymentStatus:       o.PaymentStatus(),
		ShippingMethod:      o.ShippingMethod,
		Notes:               o.Notes,
		TotalItems:          o.TotalItems(),
		Items:               items,
		CreatedAt:           o.CreatedAt,
		PaidAt:              o.PaidAt,
		ShippedAt:           o.ShippedAt,
		CompletedAt:         o.CompletedAt,
		CancelledAt:         o.CancelledAt,
		CancellationReason:  o.CancellationReason,
	}
	if o.Payment != nil {
		resp.Payment = o.Payment.Response()
	}
	return resp
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	UserID     *int64
	GuestEmail string
	Status     *OrderStatus
	Limit      int
	Offset     int
}
