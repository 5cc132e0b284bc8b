package handler

import (
	"context"

	"phankid/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockCatalogService is a mock implementation of CatalogService.
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) ListProducts(ctx context.Context, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockCatalogService) GetProduct(ctx context.Context, id int64) (*model.ProductDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProductDetail), args.Error(1)
}

// MockCartService is a mock implementation of CartService.
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) cartView(args mock.Arguments) (*model.CartView, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartView), args.Error(1)
}

func (m *MockCartService) GetCart(ctx context.Context, owner model.CartOwner) (*model.CartView, error) {
	return m.cartView(m.Called(ctx, owner))
}

func (m *MockCartService) AddItem(ctx context.Context, owner model.CartOwner, req *model.AddToCartRequest) (*model.CartView, error) {
	return m.cartView(m.Called(ctx, owner, req))
}

func (m *MockCartService) UpdateItemQuantity(ctx context.Context, owner model.CartOwner, variantID int64, qty int) (*model.CartView, error) {
	return m.cartView(m.Called(ctx, owner, variantID, qty))
}

func (m *MockCartService) RemoveItem(ctx context.Context, owner model.CartOwner, variantID int64) (*model.CartView, error) {
	return m.cartView(m.Called(ctx, owner, variantID))
}

func (m *MockCartService) Clear(ctx context.Context, owner model.CartOwner) (*model.CartView, error) {
	return m.cartView(m.Called(ctx, owner))
}

func (m *MockCartService) MergeGuestIntoUser(ctx context.Context, userID int64, sessionID string) (*model.CartView, error) {
	return m.cartView(m.Called(ctx, userID, sessionID))
}

func (m *MockCartService) ExpiredGuestCarts(ctx context.Context, limit int) ([]model.Cart, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Cart), args.Error(1)
}

func (m *MockCartService) AbandonExpiredGuestCarts(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) order(args mock.Arguments) (*model.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) orders(args mock.Arguments) ([]model.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderService) CreateOrder(ctx context.Context, caller model.Identity, req *model.CreateOrderRequest) (*model.Order, error) {
	return m.order(m.Called(ctx, caller, req))
}

func (m *MockOrderService) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return m.order(m.Called(ctx, id))
}

func (m *MockOrderService) GetForCaller(ctx context.Context, id uuid.UUID, caller model.Identity, email string) (*model.Order, error) {
	return m.order(m.Called(ctx, id, caller, email))
}

func (m *MockOrderService) Track(ctx context.Context, code string, caller model.Identity, email string) (*model.Order, error) {
	return m.order(m.Called(ctx, code, caller, email))
}

func (m *MockOrderService) ListForUser(ctx context.Context, userID int64, status *model.OrderStatus, limit, offset int) ([]model.Order, error) {
	return m.orders(m.Called(ctx, userID, status, limit, offset))
}

func (m *MockOrderService) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	return m.orders(m.Called(ctx, filter))
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	return m.order(m.Called(ctx, id, status))
}

func (m *MockOrderService) Cancel(ctx context.Context, id uuid.UUID, caller model.Identity, req *model.CancelOrderRequest) (*model.Order, error) {
	return m.order(m.Called(ctx, id, caller, req))
}

// MockPaymentService is a mock implementation of PaymentService.
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) payment(args mock.Arguments) (*model.Payment, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentService) InitiatePayment(ctx context.Context, orderID uuid.UUID, caller model.Identity, email string) (*model.Payment, error) {
	return m.payment(m.Called(ctx, orderID, caller, email))
}

func (m *MockPaymentService) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Payment, error) {
	return m.payment(m.Called(ctx, orderID))
}

func (m *MockPaymentService) HandleCallback(ctx context.Context, cb *model.PaymentCallback) (*model.Payment, error) {
	return m.payment(m.Called(ctx, cb))
}

// MockInventoryService is a mock implementation of InventoryService.
type MockInventoryService struct {
	mock.Mock
}

func (m *MockInventoryService) view(args mock.Arguments) (*model.StockView, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StockView), args.Error(1)
}

func (m *MockInventoryService) GetStock(ctx context.Context, variantID int64) (*model.StockView, error) {
	return m.view(m.Called(ctx, variantID))
}

func (m *MockInventoryService) Reserve(ctx context.Context, variantID int64, qty int) error {
	return m.Called(ctx, variantID, qty).Error(0)
}

func (m *MockInventoryService) Release(ctx context.Context, variantID int64, qty int) (int, error) {
	args := m.Called(ctx, variantID, qty)
	return args.Int(0), args.Error(1)
}

func (m *MockInventoryService) Deduct(ctx context.Context, variantID int64, qty int) error {
	return m.Called(ctx, variantID, qty).Error(0)
}

func (m *MockInventoryService) Restock(ctx context.Context, variantID int64, qty int) (*model.StockView, error) {
	return m.view(m.Called(ctx, variantID, qty))
}

func (m *MockInventoryService) ListLowStock(ctx context.Context, limit int) ([]model.StockView, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StockView), args.Error(1)
}

func (m *MockInventoryService) ListOutOfStock(ctx context.Context, limit int) ([]model.StockView, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StockView), args.Error(1)
}
