package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the state of one payment attempt.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusSuccess    PaymentStatus = "SUCCESS"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"
)

// DefaultCurrency is the only currency the shop charges in.
const DefaultCurrency = "VND"

// Payment tracks a payment attempt for an order. There is at most one per order.
type Payment struct {
	ID                   uuid.UUID       `json:"id" db:"id"`
	OrderID              uuid.UUID       `json:"orderId" db:"order_id"`
	TransactionID        string          `json:"transactionId" db:"transaction_id"`
	Gateway              string          `json:"gateway" db:"gateway"`
	GatewayTransactionID *string         `json:"gatewayTransactionId,omitempty" db:"gateway_transaction_id"`
	Amount               decimal.Decimal `json:"amount" db:"amount"`
	Currency             string          `json:"currency" db:"currency"`
	Status               PaymentStatus   `json:"status" db:"status"`
	GatewayResponse      map[string]any  `json:"gatewayResponse,omitempty" db:"gateway_response"`
	PaidAt               *time.Time      `json:"paidAt,omitempty" db:"paid_at"`
	FailedAt             *time.Time      `json:"failedAt,omitempty" db:"failed_at"`
	FailureReason        *string         `json:"failureReason,omitempty" db:"failure_reason"`
	CreatedAt            time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time       `json:"updatedAt" db:"updated_at"`
}

// NewTransactionID returns an internal reference such as TXN1760000000000-1A2B3C4D.
func NewTransactionID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("TXN%d-%s", now.UnixMilli(), suffix)
}

// NewPayment opens a PENDING payment for order through gateway.
func NewPayment(order *Order, gateway string, now time.Time) *Payment {
	return &Payment{
		ID:              uuid.New(),
		OrderID:         order.ID,
		TransactionID:   NewTransactionID(now),
		Gateway:         gateway,
		Amount:          order.TotalAmount,
		Currency:        DefaultCurrency,
		Status:          PaymentStatusPending,
		GatewayResponse: map[string]any{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// MarkAsSuccess records a successful capture with the gateway's reference.
func (p *Payment) MarkAsSuccess(gatewayRef string, at time.Time) {
	p.Status = PaymentStatusSuccess
	if gatewayRef != "" {
		p.GatewayTransactionID = &gatewayRef
	}
	p.PaidAt = &at
	p.UpdatedAt = at
}

// MarkAsFailed records a failed attempt.
func (p *Payment) MarkAsFailed(reason string, at time.Time) {
	p.Status = PaymentStatusFailed
	p.FailureReason = &reason
	p.FailedAt = &at
	p.UpdatedAt = at
}

// MarkAsCancelled records that the customer abandoned the attempt.
func (p *Payment) MarkAsCancelled(at time.Time) {
	p.Status = PaymentStatusCancelled
	p.UpdatedAt = at
}

// MarkAsRefunded records a refund.
func (p *Payment) MarkAsRefunded(at time.Time) {
	p.Status = PaymentStatusRefunded
	p.UpdatedAt = at
}

// IsSuccessful reports whether the payment was captured.
func (p *Payment) IsSuccessful() bool { return p.Status == PaymentStatusSuccess }

// IsPending reports whether the payment still awaits the gateway.
func (p *Payment) IsPending() bool {
	return p.Status == PaymentStatusPending || p.Status == PaymentStatusProcessing
}

// PaymentResponse is the API shape of a payment record.
type PaymentResponse struct {
	ID                   uuid.UUID       `json:"id"`
	OrderID              uuid.UUID       `json:"orderId"`
	TransactionID        string          `json:"transactionId"`
	Gateway              string          `json:"gateway"`
	GatewayTransactionID *string         `json:"gatewayTransactionId,omitempty"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	Status               PaymentStatus   `json:"status"`
	PaidAt               *time.Time      `json:"paidAt,omitempty"`
	FailureReason        *string         `json:"failureReason,omitempty"`
}

// Response maps the payment to its API representation.
func (p *Payment) Response() *PaymentResponse {
	return &PaymentResponse{
		ID:                   p.ID,
		OrderID:              p.OrderID,
		TransactionID:        p.TransactionID,
		Gateway:              p.Gateway,
		GatewayTransactionID: p.GatewayTransactionID,
		Amount:               p.Amount,
		Currency:             p.Currency,
		Status:               p.Status,
		PaidAt:               p.PaidAt,
		FailureReason:        p.FailureReason,
	}
}

// CreatePaymentRequest starts a payment for an order.
type CreatePaymentRequest struct {
	OrderID    uuid.UUID `json:"orderId"`
	GuestEmail string    `json:"guestEmail,omitempty"`
}

// PaymentCallback is what a gateway adapter reports once it has verified a
// gateway notification. Reference is our transaction id or the gateway's.
type PaymentCallback struct {
	Reference        string         `json:"reference"`
	Success          bool           `json:"success"`
	GatewayReference string         `json:"gatewayReference,omitempty"`
	Reason           string         `json:"reason,omitempty"`
	Response         map[string]any `json:"response,omitempty"`
}
