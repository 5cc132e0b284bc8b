package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"phankid/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// NextOrderSequence atomically claims the next order number for day. The
// counter row stays locked until tx ends, so numbers are never reused.
func (r *orderRepository) NextOrderSequence(ctx context.Context, tx pgx.Tx, day time.Time) (int, error) {
	query := `
		INSERT INTO order_code_sequences (order_day, last_seq)
		VALUES ($1::date, 1)
		ON CONFLICT (order_day) DO UPDATE SET last_seq = order_code_sequences.last_seq + 1
		RETURNING last_seq
	`

	var seq int
	if err := tx.QueryRow(ctx, query, day.Format("2006-01-02")).Scan(&seq); err != nil {
		r.logger.Error().Err(err).Time("day", day).Msg("failed to claim order sequence")
		return 0, fmt.Errorf("failed to claim order sequence: %w", err)
	}
	return seq, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, order_code, user_id, guest_email, status,
			recipient_name, recipient_phone, shipping_province, shipping_district, shipping_ward, shipping_address,
			subtotal, shipping_fee, total_amount, payment_method, shipping_method, notes,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	userID, guestEmail := order.Owner.Columns()
	s := order.Shipping
	_, err := tx.Exec(ctx, query,
		order.ID, order.Code, userID, guestEmail, order.Status,
		s.RecipientName, s.RecipientPhone, s.Province, s.District, s.Ward, s.Address,
		order.Subtotal, order.ShippingFee, order.TotalAmount, order.PaymentMethod, order.ShippingMethod, order.Notes,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Str("order_code", order.Code).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("order_code", order.Code).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (
			id, order_id, variant_id, product_name, variant_sku, size_name, color_name,
			unit_price, quantity, subtotal, product_image_url, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query,
			item.ID, item.OrderID, item.VariantID, item.ProductName, item.VariantSKU, item.SizeName, item.ColorName,
			item.UnitPrice, item.Quantity, item.Subtotal, item.ImageURL, item.CreatedAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Int64("variant_id", items[i].VariantID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

const orderColumns = `
	id, order_code, user_id, guest_email, status,
	recipient_name, recipient_phone, shipping_province, shipping_district, shipping_ward, shipping_address,
	subtotal, shipping_fee, total_amount, payment_method, shipping_method, notes, cancellation_reason,
	created_at, updated_at, paid_at, shipped_at, completed_at, cancelled_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o          model.Order
		userID     *int64
		guestEmail *string
	)
	s := &o.Shipping
	err := row.Scan(
		&o.ID, &o.Code, &userID, &guestEmail, &o.Status,
		&s.RecipientName, &s.RecipientPhone, &s.Province, &s.District, &s.Ward, &s.Address,
		&o.Subtotal, &o.ShippingFee, &o.TotalAmount, &o.PaymentMethod, &o.ShippingMethod, &o.Notes, &o.CancellationReason,
		&o.CreatedAt, &o.UpdatedAt, &o.PaidAt, &o.ShippedAt, &o.CompletedAt, &o.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	owner, err := model.OrderOwnerFromColumns(userID, guestEmail)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", o.ID, err)
	}
	o.Owner = owner
	return &o, nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.getOne(ctx, r.pool, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetByCode retrieves an order by its human-readable code.
func (r *orderRepository) GetByCode(ctx context.Context, code string) (*model.Order, error) {
	return r.getOne(ctx, r.pool, `SELECT `+orderColumns+` FROM orders WHERE order_code = $1`, code)
}

// LockByID reads an order with its items and holds the order row lock.
func (r *orderRepository) LockByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	return r.getOne(ctx, tx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *orderRepository) getOne(ctx context.Context, q querier, query string, key any) (*model.Order, error) {
	order, err := scanOrder(q.QueryRow(ctx, query, key))
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Any("key", key).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Any("key", key).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := r.items(ctx, q, []uuid.UUID{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]

	return order, nil
}

// items loads the items of every order in ids, grouped by order.
func (r *orderRepository) items(ctx context.Context, q querier, ids []uuid.UUID) (map[uuid.UUID][]model.OrderItem, error) {
	query := `
		SELECT id, order_id, variant_id, product_name, variant_sku, size_name, color_name,
		       unit_price, quantity, subtotal, product_image_url, created_at
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY created_at, id
	`

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("orders", len(ids)).Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	grouped := make(map[uuid.UUID][]model.OrderItem, len(ids))
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.VariantID, &item.ProductName, &item.VariantSKU, &item.SizeName, &item.ColorName,
			&item.UnitPrice, &item.Quantity, &item.Subtotal, &item.ImageURL, &item.CreatedAt,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		grouped[item.OrderID] = append(grouped[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return grouped, nil
}

// UpdateStatus persists status, lifecycle timestamps and cancellation reason.
func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		UPDATE orders
		SET status = $2, updated_at = $3, paid_at = $4, shipped_at = $5, completed_at = $6,
		    cancelled_at = $7, cancellation_reason = $8
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query,
		order.ID, order.Status, order.UpdatedAt, order.PaidAt, order.ShippedAt, order.CompletedAt,
		order.CancelledAt, order.CancellationReason,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NotFoundf("Order not found: %s", order.ID)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("status", string(order.Status)).
		Msg("order status updated")

	return nil
}

// List returns orders matching filter, newest first, with their items.
func (r *orderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	var (
		conds []string
		args  []any
	)
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.GuestEmail != "" {
		args = append(args, strings.TrimSpace(filter.GuestEmail))
		conds = append(conds, fmt.Sprintf("lower(guest_email) = lower($%d)", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	items, err := r.items(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}

	return orders, nil
}
