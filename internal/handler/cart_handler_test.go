package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"phankid/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testCartView() *model.CartView {
	return &model.CartView{
		ID:     uuid.New(),
		Status: model.CartStatusActive,
		Items: []model.CartItemView{
			{ID: uuid.New(), VariantID: 11, ProductName: "Cotton Tee", UnitPrice: decimal.NewFromInt(150000), Quantity: 2, Subtotal: decimal.NewFromInt(300000), AvailableStock: 8, InStock: true},
		},
		TotalItems: 2,
		Subtotal:   decimal.NewFromInt(300000),
	}
}

func TestCartHandler_Get(t *testing.T) {
	tests := []struct {
		name           string
		identity       model.Identity
		expectedOwner  model.CartOwner
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Guest cart",
			identity:       guest("sess-1"),
			expectedOwner:  model.GuestCart("sess-1"),
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "User cart wins over session",
			identity:       model.Identity{UserID: ptr(int64(7)), SessionID: "sess-1"},
			expectedOwner:  model.UserCart(7),
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "No identity",
			identity:       model.Identity{},
			expectedStatus: http.StatusBadRequest,
			expectService:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockCartService)
			if tt.expectService {
				svc.On("GetCart", mock.Anything, tt.expectedOwner).Return(testCartView(), nil)
			}
			h := NewCartHandler(svc, zerolog.Nop())

			w := httptest.NewRecorder()
			h.Get(w, newRequest(t, http.MethodGet, "/api/cart", nil, tt.identity))

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
			if !tt.expectService {
				assert.Equal(t, model.ErrCodeInvalidIdentity, decodeError(t, w).Error)
			}
		})
	}
}

func TestCartHandler_AddItem(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Success",
			body:           map[string]any{"variantId": 11, "quantity": 2},
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Over stock",
			body:           map[string]any{"variantId": 11, "quantity": 2},
			mockError:      &model.InsufficientStockError{VariantID: 11, Requested: 12, Available: 10},
			expectedStatus: http.StatusConflict,
			expectService:  true,
		},
		{
			name:           "Variant unavailable",
			body:           map[string]any{"variantId": 11, "quantity": 2},
			mockError:      model.ErrVariantUnavailable,
			expectedStatus: http.StatusBadRequest,
			expectService:  true,
		},
		{
			name:           "Missing variant",
			body:           map[string]any{"quantity": 2},
			expectedStatus: http.StatusBadRequest,
			expectService:  false,
		},
		{
			name:           "Invalid JSON",
			body:           "{",
			expectedStatus: http.StatusBadRequest,
			expectService:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockCartService)
			if tt.expectService {
				var ret *model.CartView
				if tt.mockError == nil {
					ret = testCartView()
				}
				svc.On("AddItem", mock.Anything, model.GuestCart("sess-1"), &model.AddToCartRequest{VariantID: 11, Quantity: 2}).
					Return(ret, tt.mockError)
			}
			h := NewCartHandler(svc, zerolog.Nop())

			w := httptest.NewRecorder()
			h.AddItem(w, newRequest(t, http.MethodPost, "/api/cart/items", tt.body, guest("sess-1")))

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestCartHandler_UpdateItem(t *testing.T) {
	svc := new(MockCartService)
	svc.On("UpdateItemQuantity", mock.Anything, model.UserCart(7), int64(11), 0).Return(testCartView(), nil)
	h := NewCartHandler(svc, zerolog.Nop())

	w := httptest.NewRecorder()
	h.UpdateItem(w, newRequest(t, http.MethodPut, "/api/cart/items/11", map[string]int{"quantity": 0}, user(7), "variantId", "11"))

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestCartHandler_RemoveItem(t *testing.T) {
	t.Run("Missing line", func(t *testing.T) {
		svc := new(MockCartService)
		svc.On("RemoveItem", mock.Anything, model.UserCart(7), int64(11)).Return(nil, model.NotFoundf("Item not found in cart: 11"))
		h := NewCartHandler(svc, zerolog.Nop())

		w := httptest.NewRecorder()
		h.RemoveItem(w, newRequest(t, http.MethodDelete, "/api/cart/items/11", nil, user(7), "variantId", "11"))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Bad variant id", func(t *testing.T) {
		svc := new(MockCartService)
		h := NewCartHandler(svc, zerolog.Nop())

		w := httptest.NewRecorder()
		h.RemoveItem(w, newRequest(t, http.MethodDelete, "/api/cart/items/x", nil, user(7), "variantId", "x"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "RemoveItem", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCartHandler_Merge(t *testing.T) {
	tests := []struct {
		name           string
		identity       model.Identity
		expectedStatus int
		expectedCode   string
		expectService  bool
	}{
		{
			name:           "Success",
			identity:       model.Identity{UserID: ptr(int64(7)), SessionID: "sess-1"},
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Not logged in",
			identity:       guest("sess-1"),
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   model.ErrCodeUnauthorised,
		},
		{
			name:           "No guest session",
			identity:       user(7),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeInvalidIdentity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockCartService)
			if tt.expectService {
				svc.On("MergeGuestIntoUser", mock.Anything, int64(7), "sess-1").Return(testCartView(), nil)
			}
			h := NewCartHandler(svc, zerolog.Nop())

			w := httptest.NewRecorder()
			h.Merge(w, newRequest(t, http.MethodPost, "/api/cart/merge", nil, tt.identity))

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeError(t, w).Error)
			}
		})
	}
}

func TestCartHandler_ExpiredGuestCarts(t *testing.T) {
	expires := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cart := model.Cart{ID: uuid.New(), Owner: model.GuestCart("old"), Status: model.CartStatusActive, ExpiresAt: &expires}
	svc := new(MockCartService)
	svc.On("ExpiredGuestCarts", mock.Anything, 50).Return([]model.Cart{cart}, nil)
	h := NewCartHandler(svc, zerolog.Nop())

	w := httptest.NewRecorder()
	h.ExpiredGuestCarts(w, newRequest(t, http.MethodGet, "/api/admin/carts/expired?limit=50", nil, model.Identity{}))

	require.Equal(t, http.StatusOK, w.Code)
	var resp []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "session:old", resp[0]["owner"])
	assert.Equal(t, "2026-03-01T00:00:00Z", resp[0]["expiresAt"])
}

func TestCartHandler_AbandonExpired(t *testing.T) {
	svc := new(MockCartService)
	svc.On("AbandonExpiredGuestCarts", mock.Anything).Return(int64(4), nil)
	h := NewCartHandler(svc, zerolog.Nop())

	w := httptest.NewRecorder()
	h.AbandonExpired(w, newRequest(t, http.MethodPost, "/api/admin/carts/abandon-expired", nil, model.Identity{}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"abandoned":4}`, w.Body.String())
}
