package service

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"phankid/internal/model"
	"phankid/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// paymentService implements PaymentService.
type paymentService struct {
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	lifecycle   *lifecycle
	now         func() time.Time
	logger      zerolog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	inventoryRepo repository.InventoryRepository,
	logger zerolog.Logger,
) PaymentService {
	return &paymentService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		lifecycle:   newLifecycle(orderRepo, paymentRepo, newLedger(inventoryRepo, logger), logger),
		now:         time.Now,
		logger:      logger.With().Str("service", "payment").Logger(),
	}
}

// InitiatePayment opens a PENDING payment for an online-paid order. Calling
// it again returns the open payment; after a failed or cancelled attempt it
// reopens the record under a fresh transaction id.
func (s *paymentService) InitiatePayment(ctx context.Context, orderID uuid.UUID, caller model.Identity, email string) (*model.Payment, error) {
	var payment *model.Payment
	err := inTx(ctx, s.orderRepo, s.logger, func(tx pgx.Tx) error {
		order, err := s.orderRepo.LockByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return model.NotFoundf("Order not found: %s", orderID)
		}
		if !order.Owner.CanBeManagedBy(caller, email) {
			return model.Errorf(model.ErrForbidden, "Not authorized to pay for this order")
		}
		if order.PaymentMethod == model.PaymentMethodCOD {
			return model.Errorf(model.ErrInvalidPaymentMethod, "Cash on delivery orders are paid on delivery")
		}

		payment, err = s.paymentRepo.LockByOrderID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if payment != nil && (payment.IsPending() || payment.IsSuccessful()) {
			return nil
		}
		if order.Status != model.OrderStatusPending {
			return model.Errorf(model.ErrInvalidStatusTransition, "Order is not awaiting payment. Current status: %s", order.Status)
		}

		now := s.now()
		if payment == nil {
			payment = model.NewPayment(order, order.PaymentMethod, now)
			return s.paymentRepo.Create(ctx, tx, payment)
		}

		payment.TransactionID = model.NewTransactionID(now)
		payment.Status = model.PaymentStatusPending
		payment.Amount = order.TotalAmount
		payment.FailedAt = nil
		payment.FailureReason = nil
		payment.UpdatedAt = now
		return s.paymentRepo.Update(ctx, tx, payment)
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("order_id", orderID.String()).Msg("payment initiation rejected")
		return nil, err
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("transaction_id", payment.TransactionID).
		Str("status", string(payment.Status)).
		Msg("payment initiated")

	return payment, nil
}

// GetByOrderID returns the payment of an order.
func (s *paymentService) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Payment, error) {
	payment, err := s.paymentRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to get payment")
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return nil, model.NotFoundf("Payment not found for order: %s", orderID)
	}
	return payment, nil
}

// HandleCallback applies a verified gateway result. A success moves a
// PENDING order to PAID in the same transaction. Callbacks for a payment
// that already succeeded are acknowledged without changes.
func (s *paymentService) HandleCallback(ctx context.Context, cb *model.PaymentCallback) (*model.Payment, error) {
	if cb == nil || strings.TrimSpace(cb.Reference) == "" {
		return nil, model.Errorf(model.ErrMissingField, "Payment reference is required")
	}
	reference := strings.TrimSpace(cb.Reference)

	found, err := s.paymentRepo.GetByReference(ctx, reference)
	if err != nil {
		s.logger.Error().Err(err).Str("reference", reference).Msg("failed to look up payment")
		return nil, fmt.Errorf("failed to look up payment: %w", err)
	}
	if found == nil {
		s.logger.Warn().Str("reference", reference).Msg("callback for unknown payment")
		return nil, model.NotFoundf("Payment not found: %s", reference)
	}

	var payment *model.Payment
	err = inTx(ctx, s.orderRepo, s.logger, func(tx pgx.Tx) error {
		// Order before payment, the same lock order cancellation uses.
		order, err := s.orderRepo.LockByID(ctx, tx, found.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return model.NotFoundf("Order not found: %s", found.OrderID)
		}
		payment, err = s.paymentRepo.LockByOrderID(ctx, tx, found.OrderID)
		if err != nil {
			return err
		}
		if payment == nil {
			return model.NotFoundf("Payment not found: %s", reference)
		}

		if payment.IsSuccessful() {
			s.logger.Info().Str("transaction_id", payment.TransactionID).Msg("duplicate callback ignored")
			return nil
		}

		now := s.now()
		if len(cb.Response) > 0 {
			if payment.GatewayResponse == nil {
				payment.GatewayResponse = map[string]any{}
			}
			maps.Copy(payment.GatewayResponse, cb.Response)
		}

		if !cb.Success {
			reason := strings.TrimSpace(cb.Reason)
			if reason == "" {
				reason = "Payment failed"
			}
			payment.MarkAsFailed(reason, now)
			return s.paymentRepo.Update(ctx, tx, payment)
		}

		payment.MarkAsSuccess(cb.GatewayReference, now)
		if err := s.paymentRepo.Update(ctx, tx, payment); err != nil {
			return err
		}
		if order.Status != model.OrderStatusPending {
			s.logger.Warn().
				Str("order_id", order.ID.String()).
				Str("status", string(order.Status)).
				Msg("payment captured for order that is no longer pending")
			return nil
		}
		return s.lifecycle.transition(ctx, tx, order, model.OrderStatusPaid, "", now)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("reference", reference).Msg("failed to apply payment callback")
		return nil, err
	}

	s.logger.Info().
		Str("transaction_id", payment.TransactionID).
		Str("status", string(payment.Status)).
		Msg("payment callback applied")

	return payment, nil
}
