package model

import (
	"fmt"
	"strings"
)

type ownerKind uint8

const (
	ownerNone ownerKind = iota
	ownerUser
	ownerGuest
)

// CartOwner identifies whose cart it is: an authenticated user or a guest
// session, never both. The zero value is invalid.
type CartOwner struct {
	kind      ownerKind
	userID    int64
	sessionID string
}

// UserCart returns the owner for an authenticated user's cart.
func UserCart(userID int64) CartOwner {
	return CartOwner{kind: ownerUser, userID: userID}
}

// GuestCart returns the owner for a guest session's cart.
func GuestCart(sessionID string) CartOwner {
	return CartOwner{kind: ownerGuest, sessionID: sessionID}
}

// NewCartOwner builds an owner from exactly one of userID or sessionID.
func NewCartOwner(userID *int64, sessionID string) (CartOwner, error) {
	sessionID = strings.TrimSpace(sessionID)
	switch {
	case userID != nil && sessionID != "":
		return CartOwner{}, ErrInvalidIdentity
	case userID != nil:
		return UserCart(*userID), nil
	case sessionID != "":
		return GuestCart(sessionID), nil
	default:
		return CartOwner{}, ErrInvalidIdentity
	}
}

// UserID returns the user id for user carts.
func (o CartOwner) UserID() (int64, bool) {
	return o.userID, o.kind == ownerUser
}

// SessionID returns the session id for guest carts.
func (o CartOwner) SessionID() (string, bool) {
	return o.sessionID, o.kind == ownerGuest
}

// IsGuest reports whether the cart belongs to a guest session.
func (o CartOwner) IsGuest() bool { return o.kind == ownerGuest }

// Valid reports whether the owner was built by one of the constructors.
func (o CartOwner) Valid() bool {
	switch o.kind {
	case ownerUser:
		return true
	case ownerGuest:
		return o.sessionID != ""
	default:
		return false
	}
}

func (o CartOwner) String() string {
	switch o.kind {
	case ownerUser:
		return fmt.Sprintf("user:%d", o.userID)
	case ownerGuest:
		return "session:" + o.sessionID
	default:
		return "none"
	}
}

// Identity is the caller as resolved by the authentication layer. UserID is
// nil for anonymous callers; SessionID is the guest cart token, if any.
type Identity struct {
	UserID    *int64
	SessionID string
}

// IsAuthenticated reports whether the caller is a registered user.
func (i Identity) IsAuthenticated() bool { return i.UserID != nil }

// CartOwner picks the cart the caller is working with. A logged-in user
// always works with their own cart.
func (i Identity) CartOwner() (CartOwner, error) {
	if i.UserID != nil {
		return UserCart(*i.UserID), nil
	}
	return NewCartOwner(nil, i.SessionID)
}

// OrderOwner is either a registered buyer or a guest identified by email.
type OrderOwner struct {
	kind       ownerKind
	userID     int64
	guestEmail string
}

// RegisteredBuyer returns the owner for an order placed by a user.
func RegisteredBuyer(userID int64) OrderOwner {
	return OrderOwner{kind: ownerUser, userID: userID}
}

// GuestBuyer returns the owner for a guest checkout.
func GuestBuyer(email string) OrderOwner {
	return OrderOwner{kind: ownerGuest, guestEmail: strings.TrimSpace(email)}
}

// UserID returns the buyer's user id for registered orders.
func (o OrderOwner) UserID() (int64, bool) {
	return o.userID, o.kind == ownerUser
}

// GuestEmail returns the contact email for guest orders.
func (o OrderOwner) GuestEmail() (string, bool) {
	return o.guestEmail, o.kind == ownerGuest
}

// IsGuest reports whether the order was placed without an account.
func (o OrderOwner) IsGuest() bool { return o.kind == ownerGuest }

// Columns splits the owner into its nullable storage columns.
func (o OrderOwner) Columns() (userID *int64, guestEmail *string) {
	switch o.kind {
	case ownerUser:
		id := o.userID
		return &id, nil
	case ownerGuest:
		email := o.guestEmail
		return nil, &email
	}
	return nil, nil
}

// OrderOwnerFromColumns rebuilds an owner from its storage columns.
func OrderOwnerFromColumns(userID *int64, guestEmail *string) (OrderOwner, error) {
	switch {
	case userID != nil && guestEmail == nil:
		return RegisteredBuyer(*userID), nil
	case userID == nil && guestEmail != nil:
		return GuestBuyer(*guestEmail), nil
	default:
		return OrderOwner{}, fmt.Errorf("order must have exactly one of user id or guest email")
	}
}

// CanBeManagedBy reports whether the caller may act on an order with this owner.
// Registered orders need the same user; guest orders need the checkout email.
func (o OrderOwner) CanBeManagedBy(caller Identity, email string) bool {
	switch o.kind {
	case ownerUser:
		return caller.UserID != nil && *caller.UserID == o.userID
	case ownerGuest:
		return email != "" && strings.EqualFold(strings.TrimSpace(email), o.guestEmail)
	default:
		return false
	}
}
