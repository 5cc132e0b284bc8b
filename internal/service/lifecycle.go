package service

import (
	"context"
	"time"

	"phankid/internal/model"
	"phankid/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// lifecycle moves orders between statuses and applies the stock side
// effects of each move inside the caller's transaction. The caller must
// hold the order row lock.
type lifecycle struct {
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	ledger      *ledger
	logger      zerolog.Logger
}

func newLifecycle(
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	ledger *ledger,
	logger zerolog.Logger,
) *lifecycle {
	return &lifecycle{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		ledger:      ledger,
		logger:      logger.With().Str("component", "lifecycle").Logger(),
	}
}

// transition validates and applies next. Shipping a paid order deducts its
// stock; cancelling releases it and voids any payment still in flight.
func (l *lifecycle) transition(ctx context.Context, tx pgx.Tx, order *model.Order, next model.OrderStatus, reason string, at time.Time) error {
	prev := order.Status
	if err := order.Transition(next, at); err != nil {
		l.logger.Warn().
			Str("order_id", order.ID.String()).
			Str("from", string(prev)).
			Str("to", string(next)).
			Msg("status change rejected")
		return err
	}

	switch {
	case next == model.OrderStatusCancelled:
		if reason != "" {
			order.CancellationReason = &reason
		}
		for _, m := range inLockOrder(itemMovements(order.Items)) {
			if _, err := l.ledger.release(ctx, tx, m.variantID, m.qty); err != nil {
				return err
			}
		}
		if err := l.voidPendingPayment(ctx, tx, order, at); err != nil {
			return err
		}
	case prev == model.OrderStatusPaid && next == model.OrderStatusShipping:
		for _, m := range inLockOrder(itemMovements(order.Items)) {
			if err := l.ledger.deduct(ctx, tx, m.variantID, m.qty); err != nil {
				return err
			}
		}
	}

	if err := l.orderRepo.UpdateStatus(ctx, tx, order); err != nil {
		return err
	}

	l.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_code", order.Code).
		Str("from", string(prev)).
		Str("to", string(next)).
		Msg("order status changed")

	return nil
}

func (l *lifecycle) voidPendingPayment(ctx context.Context, tx pgx.Tx, order *model.Order, at time.Time) error {
	payment, err := l.paymentRepo.LockByOrderID(ctx, tx, order.ID)
	if err != nil || payment == nil {
		return err
	}
	if !payment.IsPending() {
		order.Payment = payment
		return nil
	}
	payment.MarkAsCancelled(at)
	order.Payment = payment
	return l.paymentRepo.Update(ctx, tx, payment)
}

func itemMovements(items []model.OrderItem) []movement {
	ms := make([]movement, len(items))
	for i, item := range items {
		ms[i] = movement{variantID: item.VariantID, qty: item.Quantity}
	}
	return ms
}
