package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"phankid/internal/model"
	"phankid/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// OrderSettings carries the shop policy used at checkout.
type OrderSettings struct {
	Pricing  model.PricingPolicy
	Location *time.Location // day boundary for order codes
}

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	catalogRepo repository.CatalogRepository
	paymentRepo repository.PaymentRepository
	ledger      *ledger
	lifecycle   *lifecycle
	settings    OrderSettings
	now         func() time.Time
	logger      zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	catalogRepo repository.CatalogRepository,
	inventoryRepo repository.InventoryRepository,
	paymentRepo repository.PaymentRepository,
	settings OrderSettings,
	logger zerolog.Logger,
) OrderService {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	l := newLedger(inventoryRepo, logger)
	return &orderService{
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		catalogRepo: catalogRepo,
		paymentRepo: paymentRepo,
		ledger:      l,
		lifecycle:   newLifecycle(orderRepo, paymentRepo, l, logger),
		settings:    settings,
		now:         time.Now,
		logger:      logger.With().Str("service", "order").Logger(),
	}
}

// CreateOrder turns the caller's cart into a PENDING order. Every line is
// reserved in one transaction; if any line cannot be reserved nothing is
// reserved, no order is written and the cart is left untouched.
func (s *orderService) CreateOrder(ctx context.Context, caller model.Identity, req *model.CreateOrderRequest) (*model.Order, error) {
	owner, cartOwners, err := s.validateCreateRequest(caller, req)
	if err != nil {
		return nil, err
	}
	method, _ := model.ParsePaymentMethod(req.PaymentMethod)
	callerLabel := cartOwners[0].String()

	var order *model.Order
	err = inTx(ctx, s.orderRepo, s.logger, func(tx pgx.Tx) error {
		cart, err := s.sourceCart(ctx, tx, cartOwners)
		if err != nil {
			return err
		}

		variants, err := s.catalogRepo.GetVariants(ctx, cart.VariantIDs())
		if err != nil {
			return fmt.Errorf("failed to load variants: %w", err)
		}
		for _, line := range cart.Lines {
			v, ok := variants[line.VariantID]
			if !ok || !v.Purchasable() {
				label := fmt.Sprintf("variant %d", line.VariantID)
				if ok {
					label = v.Label()
				}
				return model.Errorf(model.ErrVariantUnavailable, "Product is no longer available: %s", label)
			}
		}

		if err := s.reserveLines(ctx, tx, cart.Lines, variants); err != nil {
			return err
		}

		now := s.now()
		order = s.buildOrder(owner, req, method, cart.Lines, variants, now)

		seq, err := s.orderRepo.NextOrderSequence(ctx, tx, now.In(s.settings.Location))
		if err != nil {
			return err
		}
		order.Code = model.FormatOrderCode(now.In(s.settings.Location), seq)

		if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
			return err
		}
		if err := s.orderRepo.CreateOrderItems(ctx, tx, order.Items); err != nil {
			return err
		}

		if err := s.cartRepo.DeleteLines(ctx, tx, cart.ID); err != nil {
			return err
		}
		return s.cartRepo.UpdateStatus(ctx, tx, cart.ID, model.CartStatusMerged, now)
	})
	if err != nil {
		var stockErr *model.InsufficientStockError
		if errors.As(err, &stockErr) || errors.Is(err, model.ErrEmptyCart) || errors.Is(err, model.ErrVariantUnavailable) {
			s.logger.Warn().Err(err).Str("caller", callerLabel).Msg("checkout rejected")
		} else {
			s.logger.Error().Err(err).Str("caller", callerLabel).Msg("checkout failed")
		}
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_code", order.Code).
		Int("item_count", len(order.Items)).
		Str("total", order.TotalAmount.String()).
		Msg("order created successfully")

	return order, nil
}

// reserveLines reserves every line in variant-id order. A failure returns
// immediately; the surrounding rollback undoes the reservations already made.
func (s *orderService) reserveLines(ctx context.Context, tx pgx.Tx, lines []model.CartLine, variants map[int64]model.VariantSnapshot) error {
	ms := make([]movement, len(lines))
	for i, line := range lines {
		ms[i] = movement{variantID: line.VariantID, qty: line.Quantity}
	}

	for _, m := range inLockOrder(ms) {
		if err := s.ledger.reserve(ctx, tx, m.variantID, m.qty); err != nil {
			var stockErr *model.InsufficientStockError
			if errors.As(err, &stockErr) {
				stockErr.Label = variants[m.variantID].Label()
			}
			return err
		}
	}
	return nil
}

func (s *orderService) buildOrder(
	owner model.OrderOwner,
	req *model.CreateOrderRequest,
	method string,
	lines []model.CartLine,
	variants map[int64]model.VariantSnapshot,
	now time.Time,
) *model.Order {
	order := &model.Order{
		ID:             uuid.New(),
		Owner:          owner,
		Status:         model.OrderStatusPending,
		Shipping:       trimShipping(req.ShippingInfo),
		PaymentMethod:  method,
		ShippingMethod: model.DefaultShippingMethod,
		Notes:          req.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
		Items:          make([]model.OrderItem, 0, len(lines)),
	}
	if m := strings.TrimSpace(req.ShippingMethod); m != "" {
		order.ShippingMethod = strings.ToUpper(m)
	}

	subtotal := decimal.Zero
	for _, line := range lines {
		item := model.SnapshotItem(order.ID, variants[line.VariantID], line.Quantity, now)
		subtotal = subtotal.Add(item.Subtotal)
		order.Items = append(order.Items, item)
	}

	order.Subtotal = subtotal
	order.ShippingFee = s.settings.Pricing.ShippingFee(subtotal)
	order.TotalAmount = subtotal.Add(order.ShippingFee)
	return order
}

// sourceCart locks the first non-empty cart among owners: the user's cart,
// then the guest session's.
func (s *orderService) sourceCart(ctx context.Context, tx pgx.Tx, owners []model.CartOwner) (*model.Cart, error) {
	for _, owner := range owners {
		cart, err := s.cartRepo.LockActive(ctx, tx, owner)
		if err != nil {
			return nil, err
		}
		if !cart.IsEmpty() {
			return cart, nil
		}
	}
	return nil, model.ErrEmptyCart
}

func (s *orderService) validateCreateRequest(caller model.Identity, req *model.CreateOrderRequest) (model.OrderOwner, []model.CartOwner, error) {
	if req == nil {
		return model.OrderOwner{}, nil, model.Errorf(model.ErrMissingField, "Order request is required")
	}

	var (
		owner  model.OrderOwner
		owners []model.CartOwner
	)
	if caller.IsAuthenticated() {
		owner = model.RegisteredBuyer(*caller.UserID)
		owners = append(owners, model.UserCart(*caller.UserID))
	}
	if caller.SessionID != "" {
		owners = append(owners, model.GuestCart(caller.SessionID))
	}
	if len(owners) == 0 {
		return model.OrderOwner{}, nil, model.ErrInvalidIdentity
	}

	if !caller.IsAuthenticated() {
		if strings.TrimSpace(req.GuestEmail) == "" {
			return model.OrderOwner{}, nil, model.ErrMissingGuestEmail
		}
		owner = model.GuestBuyer(req.GuestEmail)
	}

	if err := req.ShippingInfo.Validate(); err != nil {
		return model.OrderOwner{}, nil, err
	}
	if _, err := model.ParsePaymentMethod(req.PaymentMethod); err != nil {
		return model.OrderOwner{}, nil, err
	}

	return owner, owners, nil
}

func trimShipping(s model.ShippingInfo) model.ShippingInfo {
	return model.ShippingInfo{
		RecipientName:  strings.TrimSpace(s.RecipientName),
		RecipientPhone: strings.TrimSpace(s.RecipientPhone),
		Province:       strings.TrimSpace(s.Province),
		District:       strings.TrimSpace(s.District),
		Ward:           strings.TrimSpace(s.Ward),
		Address:        strings.TrimSpace(s.Address),
	}
}

// GetByID retrieves an order with its items and payment.
func (s *orderService) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		s.logger.Debug().Str("order_id", id.String()).Msg("order not found")
		return nil, model.NotFoundf("Order not found: %s", id)
	}
	return s.withPayment(ctx, order)
}

// GetForCaller retrieves an order the caller owns.
func (s *orderService) GetForCaller(ctx context.Context, id uuid.UUID, caller model.Identity, email string) (*model.Order, error) {
	order, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Owner.CanBeManagedBy(caller, email) {
		return nil, model.Errorf(model.ErrForbidden, "Not authorized to view this order")
	}
	return order, nil
}

// Track retrieves an order by code for its owner.
func (s *orderService) Track(ctx context.Context, code string, caller model.Identity, email string) (*model.Order, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	order, err := s.orderRepo.GetByCode(ctx, code)
	if err != nil {
		s.logger.Error().Err(err).Str("order_code", code).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil || !order.Owner.CanBeManagedBy(caller, email) {
		// Do not reveal whether a code exists to someone who does not own it.
		return nil, model.NotFoundf("Order not found: %s", code)
	}
	return s.withPayment(ctx, order)
}

// ListForUser lists a user's orders, newest first.
func (s *orderService) ListForUser(ctx context.Context, userID int64, status *model.OrderStatus, limit, offset int) ([]model.Order, error) {
	return s.List(ctx, model.OrderFilter{UserID: &userID, Status: status, Limit: limit, Offset: offset})
}

// List lists orders for back-office use.
func (s *orderService) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	filter.Limit = clampLimit(filter.Limit)
	filter.Offset = max(filter.Offset, 0)

	orders, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	payments, err := s.paymentRepo.GetByOrderIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}
	for i := range orders {
		orders[i].Payment = payments[orders[i].ID]
	}

	return orders, nil
}

// UpdateStatus moves an order through the lifecycle.
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	var order *model.Order
	err := inTx(ctx, s.orderRepo, s.logger, func(tx pgx.Tx) error {
		var err error
		order, err = s.lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		return s.lifecycle.transition(ctx, tx, order, status, "", s.now())
	})
	if err != nil {
		return nil, err
	}
	return s.withPayment(ctx, order)
}

// Cancel cancels an order on behalf of its owner. Guest orders require the
// email used at checkout.
func (s *orderService) Cancel(ctx context.Context, id uuid.UUID, caller model.Identity, req *model.CancelOrderRequest) (*model.Order, error) {
	if req == nil {
		req = &model.CancelOrderRequest{}
	}

	var order *model.Order
	err := inTx(ctx, s.orderRepo, s.logger, func(tx pgx.Tx) error {
		var err error
		order, err = s.lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if !order.Owner.CanBeManagedBy(caller, req.GuestEmail) {
			return model.Errorf(model.ErrForbidden, "Not authorized to cancel this order")
		}
		if !order.CanBeCancelled() {
			return model.Errorf(model.ErrOrderNotCancellable, "Order cannot be cancelled. Current status: %s", order.Status)
		}
		return s.lifecycle.transition(ctx, tx, order, model.OrderStatusCancelled, strings.TrimSpace(req.Reason), s.now())
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("order_id", id.String()).Msg("cancel rejected")
		return nil, err
	}
	return s.withPayment(ctx, order)
}

func (s *orderService) lockOrder(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.LockByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.NotFoundf("Order not found: %s", id)
	}
	return order, nil
}

func (s *orderService) withPayment(ctx context.Context, order *model.Order) (*model.Order, error) {
	if order.Payment != nil {
		return order, nil
	}
	payment, err := s.paymentRepo.GetByOrderID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	order.Payment = payment
	return order, nil
}
