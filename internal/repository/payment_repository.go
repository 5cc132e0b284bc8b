package repository

import (
	"context"
	"errors"
	"fmt"

	"phankid/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// paymentRepository implements the PaymentRepository interface using PostgreSQL.
type paymentRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPaymentRepository creates a new PostgreSQL-backed payment repository.
func NewPaymentRepository(pool *pgxpool.Pool, logger zerolog.Logger) PaymentRepository {
	return &paymentRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "payment").Logger(),
	}
}

const paymentColumns = `
	id, order_id, transaction_id, gateway, gateway_transaction_id, amount, currency, status,
	gateway_response, paid_at, failed_at, failure_reason, created_at, updated_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	err := row.Scan(
		&p.ID, &p.OrderID, &p.TransactionID, &p.Gateway, &p.GatewayTransactionID, &p.Amount, &p.Currency, &p.Status,
		&p.GatewayResponse, &p.PaidAt, &p.FailedAt, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) getOne(ctx context.Context, q querier, query string, key any) (*model.Payment, error) {
	p, err := scanPayment(q.QueryRow(ctx, query, key))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Any("key", key).Msg("failed to query payment")
		return nil, fmt.Errorf("failed to query payment: %w", err)
	}
	return p, nil
}

// GetByOrderID returns the payment of an order, or nil.
func (r *paymentRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Payment, error) {
	return r.getOne(ctx, r.pool, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1`, orderID)
}

// LockByOrderID is GetByOrderID inside tx with a row lock.
func (r *paymentRepository) LockByOrderID(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*model.Payment, error) {
	return r.getOne(ctx, tx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 FOR UPDATE`, orderID)
}

// GetByReference finds a payment by our transaction id or the gateway's.
func (r *paymentRepository) GetByReference(ctx context.Context, reference string) (*model.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE transaction_id = $1 OR gateway_transaction_id = $1
		ORDER BY (transaction_id = $1) DESC
		LIMIT 1
	`
	return r.getOne(ctx, r.pool, query, reference)
}

// GetByOrderIDs returns payments keyed by order id.
func (r *paymentRepository) GetByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID]*model.Payment, error) {
	result := make(map[uuid.UUID]*model.Payment, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = ANY($1)`, orderIDs)
	if err != nil {
		r.logger.Error().Err(err).Int("orders", len(orderIDs)).Msg("failed to query payments")
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan payment row")
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		result[p.OrderID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}

	return result, nil
}

// Create inserts a payment.
func (r *paymentRepository) Create(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
	query := `
		INSERT INTO payments (
			id, order_id, transaction_id, gateway, gateway_transaction_id, amount, currency, status,
			gateway_response, paid_at, failed_at, failure_reason, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := tx.Exec(ctx, query,
		p.ID, p.OrderID, p.TransactionID, p.Gateway, p.GatewayTransactionID, p.Amount, p.Currency, p.Status,
		responseOrEmpty(p.GatewayResponse), p.PaidAt, p.FailedAt, p.FailureReason, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.ErrPaymentExists
		}
		r.logger.Error().Err(err).Str("order_id", p.OrderID.String()).Msg("failed to create payment")
		return fmt.Errorf("failed to create payment: %w", err)
	}

	r.logger.Debug().
		Str("payment_id", p.ID.String()).
		Str("transaction_id", p.TransactionID).
		Msg("payment created")

	return nil
}

// Update writes the mutable payment fields.
func (r *paymentRepository) Update(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
	query := `
		UPDATE payments
		SET status = $2, gateway_transaction_id = $3, gateway_response = $4, paid_at = $5,
		    failed_at = $6, failure_reason = $7, updated_at = $8
		WHERE id = $1
	`

	_, err := tx.Exec(ctx, query,
		p.ID, p.Status, p.GatewayTransactionID, responseOrEmpty(p.GatewayResponse), p.PaidAt,
		p.FailedAt, p.FailureReason, p.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("payment_id", p.ID.String()).Msg("failed to update payment")
		return fmt.Errorf("failed to update payment: %w", err)
	}

	r.logger.Debug().
		Str("payment_id", p.ID.String()).
		Str("status", string(p.Status)).
		Msg("payment updated")

	return nil
}

func responseOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
