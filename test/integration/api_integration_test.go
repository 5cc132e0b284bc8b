package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"phankid/internal/handler"
	"phankid/internal/middleware"
	"phankid/internal/model"
	"phankid/internal/repository"
	"phankid/internal/router"
	"phankid/internal/service"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-api-key"

// setupTestServer wires the full storefront against testDB.
func setupTestServer(t *testing.T, testDB *TestDB) http.Handler {
	t.Helper()

	logger := zerolog.Nop()
	pool := testDB.Pool

	catalogRepo := repository.NewCatalogRepository(pool, logger)
	inventoryRepo := repository.NewInventoryRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	paymentRepo := repository.NewPaymentRepository(pool, logger)

	location, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)

	catalogService := service.NewCatalogService(catalogRepo, logger)
	inventoryService := service.NewInventoryService(repository.NewTransactor(pool, logger), inventoryRepo, logger)
	cartService := service.NewCartService(cartRepo, catalogRepo, 7*24*time.Hour, logger)
	orderService := service.NewOrderService(orderRepo, cartRepo, catalogRepo, inventoryRepo, paymentRepo, service.OrderSettings{
		Pricing:  model.DefaultPricingPolicy(),
		Location: location,
	}, logger)
	paymentService := service.NewPaymentService(orderRepo, paymentRepo, inventoryRepo, logger)

	return router.New(router.Handlers{
		Product:   handler.NewProductHandler(catalogService, logger),
		Cart:      handler.NewCartHandler(cartService, logger),
		Order:     handler.NewOrderHandler(orderService, logger),
		Payment:   handler.NewPaymentHandler(paymentService, orderService, logger),
		Inventory: handler.NewInventoryHandler(inventoryService, logger),
	}, testAPIKey, logger)
}

// caller carries the identity headers of one shopper.
type caller struct {
	userID    int64
	sessionID string
}

func asUser(id int64) caller        { return caller{userID: id} }
func asGuest(session string) caller { return caller{sessionID: session} }
func (c caller) withSession(s string) caller {
	c.sessionID = s
	return c
}

func call(t *testing.T, server http.Handler, c caller, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)
	if c.userID != 0 {
		req.Header.Set(middleware.HeaderUserID, fmt.Sprint(c.userID))
	}
	if c.sessionID != "" {
		req.Header.Set(middleware.HeaderSessionID, c.sessionID)
	}

	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out), w.Body.String())
	return out
}

func checkout(method, email string) model.CreateOrderRequest {
	return model.CreateOrderRequest{
		GuestEmail:    email,
		PaymentMethod: method,
		ShippingInfo: model.ShippingInfo{
			RecipientName:  "Nguyen Thi Lan",
			RecipientPhone: "0901234567",
			Province:       "Ho Chi Minh",
			District:       "Quan 1",
			Ward:           "Ben Nghe",
			Address:        "12 Le Loi",
		},
	}
}

func stockOf(t *testing.T, server http.Handler, variantID int64) model.StockView {
	t.Helper()
	w := call(t, server, caller{}, http.MethodGet, fmt.Sprintf("/api/admin/inventory/%d", variantID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[model.StockView](t, w)
}

func addToCart(t *testing.T, server http.Handler, c caller, variantID int64, qty int) model.CartView {
	t.Helper()
	w := call(t, server, c, http.MethodPost, "/api/cart/items", model.AddToCartRequest{VariantID: variantID, Quantity: qty})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[model.CartView](t, w)
}

func TestProductAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := setupTestServer(t, testDB)
	SeedCatalog(t, testDB.Pool)

	t.Run("GET /api/products lists active products", func(t *testing.T) {
		w := call(t, server, caller{}, http.MethodGet, "/api/products", nil)

		require.Equal(t, http.StatusOK, w.Code)
		products := decode[[]model.Product](t, w)
		require.Len(t, products, 2)
		assert.Equal(t, "Cotton Tee", products[0].Name)
		assert.Equal(t, "Flower Dress", products[1].Name)
	})

	t.Run("GET /api/products with pagination", func(t *testing.T) {
		w := call(t, server, caller{}, http.MethodGet, "/api/products?limit=1&offset=1", nil)

		require.Equal(t, http.StatusOK, w.Code)
		products := decode[[]model.Product](t, w)
		require.Len(t, products, 1)
		assert.Equal(t, int64(2), products[0].ID)
	})

	t.Run("GET /api/products/{id} returns 404 for unknown product", func(t *testing.T) {
		w := call(t, server, caller{}, http.MethodGet, "/api/products/999", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("GET /api/products without API key returns 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		w := httptest.NewRecorder()

		server.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("GET /health returns 200 without API key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()

		server.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestOnlinePaymentFlow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := setupTestServer(t, testDB)
	SeedCatalog(t, testDB.Pool)

	shopper := asUser(7)

	addToCart(t, server, shopper, 11, 2)
	cart := addToCart(t, server, shopper, 21, 1)
	assert.Equal(t, 3, cart.TotalItems)
	assert.True(t, decimal.NewFromInt(580000).Equal(cart.Subtotal))

	w := call(t, server, shopper, http.MethodPost, "/api/orders", checkout(model.PaymentMethodVNPay, ""))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[model.OrderResponse](t, w)

	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.True(t, strings.HasPrefix(order.OrderCode, "ORD-"), order.OrderCode)
	assert.True(t, decimal.NewFromInt(580000).Equal(order.Subtotal))
	assert.True(t, decimal.NewFromInt(30000).Equal(order.ShippingFee))
	assert.True(t, decimal.NewFromInt(610000).Equal(order.TotalAmount))
	assert.Len(t, order.Items, 2)

	stock := stockOf(t, server, 11)
	assert.Equal(t, 10, stock.OnHand)
	assert.Equal(t, 2, stock.Reserved)
	assert.Equal(t, 8, stock.Available)

	w = call(t, server, shopper, http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[model.CartView](t, w).Items)

	w = call(t, server, shopper, http.MethodPost, "/api/payments", model.CreatePaymentRequest{OrderID: order.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	payment := decode[model.PaymentResponse](t, w)
	assert.Equal(t, model.PaymentStatusPending, payment.Status)
	assert.True(t, order.TotalAmount.Equal(payment.Amount))

	w = call(t, server, caller{}, http.MethodPost, "/api/payments/callback", model.PaymentCallback{
		Reference:        payment.TransactionID,
		Success:          true,
		GatewayReference: "VNP-998877",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.PaymentStatusSuccess, decode[model.PaymentResponse](t, w).Status)

	// A repeated notification is acknowledged without changes.
	w = call(t, server, caller{}, http.MethodPost, "/api/payments/callback", model.PaymentCallback{
		Reference: "VNP-998877",
		Success:   true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(t, server, shopper, http.MethodGet, "/api/orders/"+order.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	paid := decode[model.OrderResponse](t, w)
	assert.Equal(t, model.OrderStatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)

	w = call(t, server, caller{}, http.MethodPut, "/api/admin/orders/"+order.ID.String()+"/status",
		model.UpdateOrderStatusRequest{Status: "SHIPPING"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stock = stockOf(t, server, 11)
	assert.Equal(t, 8, stock.OnHand)
	assert.Equal(t, 0, stock.Reserved)
	stock = stockOf(t, server, 21)
	assert.Equal(t, 1, stock.OnHand)
	assert.Equal(t, 0, stock.Reserved)

	w = call(t, server, shopper, http.MethodGet, "/api/orders/track/"+order.OrderCode, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.OrderStatusShipping, decode[model.OrderResponse](t, w).Status)

	w = call(t, server, asUser(8), http.MethodGet, "/api/orders/track/"+order.OrderCode, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = call(t, server, shopper, http.MethodPost, "/api/orders/"+order.ID.String()+"/cancel",
		model.CancelOrderRequest{Reason: "Changed my mind"})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = call(t, server, caller{}, http.MethodPut, "/api/admin/orders/"+order.ID.String()+"/status",
		model.UpdateOrderStatusRequest{Status: "PENDING"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(t, server, shopper, http.MethodGet, "/api/orders?status=SHIPPING", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.OrderResponse](t, w), 1)
}

func TestGuestCheckoutAndCancel_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := setupTestServer(t, testDB)
	SeedCatalog(t, testDB.Pool)

	guest := asGuest("guest-session-1")
	const email = "lan@example.com"

	addToCart(t, server, guest, 12, 3)

	w := call(t, server, guest, http.MethodPost, "/api/orders", checkout(model.PaymentMethodCOD, ""))
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = call(t, server, guest, http.MethodPost, "/api/orders", checkout(model.PaymentMethodCOD, email))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[model.OrderResponse](t, w)
	require.NotNil(t, order.GuestEmail)
	assert.Equal(t, email, *order.GuestEmail)
	assert.Nil(t, order.UserID)

	assert.Equal(t, 0, stockOf(t, server, 12).Available)

	// Another shopper can no longer put the variant in a cart.
	w = call(t, server, asGuest("guest-session-2"), http.MethodPost, "/api/cart/items",
		model.AddToCartRequest{VariantID: 12, Quantity: 1})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = call(t, server, guest, http.MethodPost, "/api/payments", model.CreatePaymentRequest{OrderID: order.ID, GuestEmail: email})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = call(t, server, guest, http.MethodGet, "/api/orders/track/"+order.OrderCode+"?email=someone@example.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = call(t, server, guest, http.MethodGet, "/api/orders/track/"+order.OrderCode+"?email=LAN@example.com", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(t, server, guest, http.MethodPost, "/api/orders/"+order.ID.String()+"/cancel",
		model.CancelOrderRequest{Reason: "Ordered the wrong size", GuestEmail: email})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cancelled := decode[model.OrderResponse](t, w)
	assert.Equal(t, model.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "Ordered the wrong size", *cancelled.CancellationReason)

	stock := stockOf(t, server, 12)
	assert.Equal(t, 3, stock.OnHand)
	assert.Equal(t, 0, stock.Reserved)

	w = call(t, server, guest, http.MethodPost, "/api/orders/"+order.ID.String()+"/cancel",
		model.CancelOrderRequest{GuestEmail: email})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutValidation_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := setupTestServer(t, testDB)
	SeedCatalog(t, testDB.Pool)

	t.Run("empty cart", func(t *testing.T) {
		w := call(t, server, asUser(21), http.MethodPost, "/api/orders", checkout(model.PaymentMethodCOD, ""))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), model.ErrCodeEmptyCart)
	})

	t.Run("inactive product cannot be added", func(t *testing.T) {
		w := call(t, server, asUser(22), http.MethodPost, "/api/cart/items", model.AddToCartRequest{VariantID: 31, Quantity: 1})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("insufficient stock leaves nothing reserved", func(t *testing.T) {
		shopper := asUser(23)
		addToCart(t, server, shopper, 11, 4)
		addToCart(t, server, shopper, 21, 2)

		// Someone else takes one of the dresses first.
		_, err := testDB.Pool.Exec(t.Context(), `UPDATE inventory SET quantity = 1 WHERE variant_id = 21`)
		require.NoError(t, err)

		w := call(t, server, shopper, http.MethodPost, "/api/orders", checkout(model.PaymentMethodCOD, ""))
		require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), `"available":1`)

		assert.Equal(t, 0, stockOf(t, server, 11).Reserved)
		assert.Equal(t, 0, stockOf(t, server, 21).Reserved)

		w = call(t, server, shopper, http.MethodGet, "/api/cart", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 6, decode[model.CartView](t, w).TotalItems)
	})
}

func TestCartMerge_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := setupTestServer(t, testDB)
	SeedCatalog(t, testDB.Pool)

	addToCart(t, server, asGuest("merge-session"), 11, 4)
	addToCart(t, server, asGuest("merge-session"), 12, 1)
	addToCart(t, server, asUser(9), 11, 8)

	w := call(t, server, asUser(9).withSession("merge-session"), http.MethodPost, "/api/cart/merge", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	merged := decode[model.CartView](t, w)

	quantities := map[int64]int{}
	for _, item := range merged.Items {
		quantities[item.VariantID] = item.Quantity
	}
	assert.Equal(t, map[int64]int{11: 10, 12: 1}, quantities)

	w = call(t, server, asGuest("merge-session"), http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[model.CartView](t, w).Items)
}

func TestConcurrentCheckout_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := setupTestServer(t, testDB)
	SeedCatalog(t, testDB.Pool)

	// Variant 21 has two units; five shoppers try to buy one each.
	const shoppers = 5
	for i := range shoppers {
		addToCart(t, server, asUser(int64(100+i)), 21, 1)
	}

	codes := make([]int, shoppers)
	var wg sync.WaitGroup
	for i := range shoppers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := call(t, server, asUser(int64(100+i)), http.MethodPost, "/api/orders", checkout(model.PaymentMethodCOD, ""))
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	created, conflicts := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		}
	}
	assert.Equal(t, 2, created)
	assert.Equal(t, 3, conflicts)

	stock := stockOf(t, server, 21)
	assert.Equal(t, 2, stock.OnHand)
	assert.Equal(t, 2, stock.Reserved)
	assert.Equal(t, 0, stock.Available)

	var orderCodes int
	require.NoError(t, testDB.Pool.QueryRow(t.Context(), `SELECT COUNT(DISTINCT order_code) FROM orders`).Scan(&orderCodes))
	assert.Equal(t, 2, orderCodes)
}

func TestCORS_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := setupTestServer(t, testDB)

	t.Run("OPTIONS request returns CORS headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
		w := httptest.NewRecorder()

		server.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), middleware.HeaderSessionID)
	})
}
