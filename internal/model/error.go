package model

import (
	"errors"
	"fmt"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Available     *int   `json:"available,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON             = "INVALID_JSON"
	ErrCodeMissingField            = "MISSING_FIELD"
	ErrCodeNotFound                = "NOT_FOUND"
	ErrCodeInsufficientStock       = "INSUFFICIENT_STOCK"
	ErrCodeInvalidIdentity         = "INVALID_IDENTITY"
	ErrCodeMissingGuestEmail       = "MISSING_GUEST_EMAIL"
	ErrCodeOrderNotCancellable     = "ORDER_NOT_CANCELLABLE"
	ErrCodeVariantUnavailable      = "VARIANT_UNAVAILABLE"
	ErrCodeEmptyCart               = "EMPTY_CART"
	ErrCodeInvalidQuantity         = "INVALID_QUANTITY"
	ErrCodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	ErrCodeInvalidPaymentMethod    = "INVALID_PAYMENT_METHOD"
	ErrCodePaymentExists           = "PAYMENT_EXISTS"
	ErrCodeUnauthorised            = "UNAUTHORIZED"
	ErrCodeForbidden               = "FORBIDDEN"
	ErrCodeInternalError           = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound                = NewDomainError(ErrCodeNotFound, "Resource not found")
	ErrInsufficientStock       = NewDomainError(ErrCodeInsufficientStock, "Not enough stock")
	ErrInvalidIdentity         = NewDomainError(ErrCodeInvalidIdentity, "Either a user ID or a session ID must be provided")
	ErrMissingGuestEmail       = NewDomainError(ErrCodeMissingGuestEmail, "Email is required for guest checkout")
	ErrOrderNotCancellable     = NewDomainError(ErrCodeOrderNotCancellable, "Order cannot be cancelled")
	ErrVariantUnavailable      = NewDomainError(ErrCodeVariantUnavailable, "Product is not available")
	ErrEmptyCart               = NewDomainError(ErrCodeEmptyCart, "Cart is empty")
	ErrInvalidQuantity         = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInvalidStatusTransition = NewDomainError(ErrCodeInvalidStatusTransition, "Order status transition is not allowed")
	ErrInvalidPaymentMethod    = NewDomainError(ErrCodeInvalidPaymentMethod, "Payment method is not supported")
	ErrPaymentExists           = NewDomainError(ErrCodePaymentExists, "Order already has a payment")
	ErrMissingField            = NewDomainError(ErrCodeMissingField, "Required field is missing")
	ErrForbidden               = NewDomainError(ErrCodeForbidden, "Not authorised to access this resource")
)

// detailError attaches a specific message to a sentinel DomainError while
// keeping errors.Is and errors.As working against the sentinel.
type detailError struct {
	sentinel *DomainError
	message  string
}

func (e *detailError) Error() string { return e.message }

func (e *detailError) Unwrap() error { return e.sentinel }

// Errorf returns an error carrying a formatted message that unwraps to sentinel.
func Errorf(sentinel *DomainError, format string, args ...any) error {
	return &detailError{sentinel: sentinel, message: fmt.Sprintf(format, args...)}
}

// NotFoundf is shorthand for Errorf(ErrNotFound, ...).
func NotFoundf(format string, args ...any) error {
	return Errorf(ErrNotFound, format, args...)
}

// InsufficientStockError reports a failed stock check along with the quantity
// that was still available, so clients can adjust.
type InsufficientStockError struct {
	VariantID int64
	Label     string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("Not enough stock for: %s. Available: %d", e.Label, e.Available)
	}
	return fmt.Sprintf("Not enough stock. Available: %d", e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// AsDomainError reports the DomainError sentinel behind err, if any.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
