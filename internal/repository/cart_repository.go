package repository

import (
	"context"
	"fmt"
	"time"

	"phankid/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// cartRepository implements the CartRepository interface using PostgreSQL.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *cartRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// FindActive returns the owner's ACTIVE cart with its lines, or nil.
func (r *cartRepository) FindActive(ctx context.Context, owner model.CartOwner) (*model.Cart, error) {
	return r.findActive(ctx, r.pool, owner, false)
}

// LockActive is FindActive inside tx, holding the cart row lock.
func (r *cartRepository) LockActive(ctx context.Context, tx pgx.Tx, owner model.CartOwner) (*model.Cart, error) {
	return r.findActive(ctx, tx, owner, true)
}

func (r *cartRepository) findActive(ctx context.Context, q querier, owner model.CartOwner, lock bool) (*model.Cart, error) {
	column, value, err := ownerColumn(owner)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, session_id, status, expires_at, created_at, updated_at
		FROM carts
		WHERE ` + column + ` = $1 AND status = 'ACTIVE'
	`
	if lock {
		query += ` FOR UPDATE`
	}

	cart, err := scanCart(q.QueryRow(ctx, query, value))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("owner", owner.String()).Msg("failed to query cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}

	lines, err := r.lines(ctx, q, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Lines = lines

	return cart, nil
}

func ownerColumn(owner model.CartOwner) (string, any, error) {
	if id, ok := owner.UserID(); ok {
		return "user_id", id, nil
	}
	if sid, ok := owner.SessionID(); ok && sid != "" {
		return "session_id", sid, nil
	}
	return "", nil, model.ErrInvalidIdentity
}

func scanCart(row pgx.Row) (*model.Cart, error) {
	var (
		c         model.Cart
		userID    *int64
		sessionID *string
	)
	if err := row.Scan(&c.ID, &userID, &sessionID, &c.Status, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	sid := ""
	if sessionID != nil {
		sid = *sessionID
	}
	owner, err := model.NewCartOwner(userID, sid)
	if err != nil {
		return nil, fmt.Errorf("cart %s has no valid owner: %w", c.ID, err)
	}
	c.Owner = owner
	return &c, nil
}

func (r *cartRepository) lines(ctx context.Context, q querier, cartID uuid.UUID) ([]model.CartLine, error) {
	query := `
		SELECT id, cart_id, variant_id, quantity, added_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY added_at, id
	`

	rows, err := q.Query(ctx, query, cartID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to query cart items")
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	lines := []model.CartLine{}
	for rows.Next() {
		var l model.CartLine
		if err := rows.Scan(&l.ID, &l.CartID, &l.VariantID, &l.Quantity, &l.AddedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart item row")
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return lines, nil
}

// Create inserts a cart, reporting false if the owner already has an ACTIVE one.
func (r *cartRepository) Create(ctx context.Context, tx pgx.Tx, cart *model.Cart) (bool, error) {
	var userID *int64
	var sessionID *string
	if id, ok := cart.Owner.UserID(); ok {
		userID = &id
	} else if sid, ok := cart.Owner.SessionID(); ok {
		sessionID = &sid
	}

	query := `
		INSERT INTO carts (id, user_id, session_id, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING
	`

	tag, err := tx.Exec(ctx, query, cart.ID, userID, sessionID, cart.Status, cart.ExpiresAt, cart.CreatedAt, cart.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("owner", cart.Owner.String()).Msg("failed to create cart")
		return false, fmt.Errorf("failed to create cart: %w", err)
	}

	created := tag.RowsAffected() == 1
	r.logger.Debug().
		Str("cart_id", cart.ID.String()).
		Str("owner", cart.Owner.String()).
		Bool("created", created).
		Msg("cart create attempted")

	return created, nil
}

// UpsertLine sets the quantity of a variant in a cart.
func (r *cartRepository) UpsertLine(ctx context.Context, tx pgx.Tx, line *model.CartLine) error {
	query := `
		INSERT INTO cart_items (id, cart_id, variant_id, quantity, added_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cart_id, variant_id) DO UPDATE SET quantity = EXCLUDED.quantity
	`

	_, err := tx.Exec(ctx, query, line.ID, line.CartID, line.VariantID, line.Quantity, line.AddedAt)
	if err != nil {
		r.logger.Error().Err(err).
			Str("cart_id", line.CartID.String()).
			Int64("variant_id", line.VariantID).
			Msg("failed to upsert cart item")
		return fmt.Errorf("failed to upsert cart item: %w", err)
	}
	return nil
}

// DeleteLine removes one variant from a cart.
func (r *cartRepository) DeleteLine(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, variantID int64) (bool, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND variant_id = $2`, cartID, variantID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to delete cart item")
		return false, fmt.Errorf("failed to delete cart item: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteLines removes every line of a cart.
func (r *cartRepository) DeleteLines(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to clear cart")
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// UpdateStatus moves a cart to status.
func (r *cartRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, status model.CartStatus, at time.Time) error {
	_, err := tx.Exec(ctx, `UPDATE carts SET status = $2, updated_at = $3 WHERE id = $1`, cartID, status, at)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to update cart status")
		return fmt.Errorf("failed to update cart status: %w", err)
	}
	r.logger.Debug().Str("cart_id", cartID.String()).Str("status", string(status)).Msg("cart status updated")
	return nil
}

// Touch bumps the cart's updated_at.
func (r *cartRepository) Touch(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, at time.Time) error {
	if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at = $2 WHERE id = $1`, cartID, at); err != nil {
		return fmt.Errorf("failed to touch cart: %w", err)
	}
	return nil
}

// ListExpiredGuestCarts lists ACTIVE guest carts that expired before now.
func (r *cartRepository) ListExpiredGuestCarts(ctx context.Context, now time.Time, limit int) ([]model.Cart, error) {
	query := `
		SELECT id, user_id, session_id, status, expires_at, created_at, updated_at
		FROM carts
		WHERE status = 'ACTIVE' AND session_id IS NOT NULL AND expires_at < $1
		ORDER BY expires_at
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query expired carts")
		return nil, fmt.Errorf("failed to query expired carts: %w", err)
	}
	defer rows.Close()

	carts := []model.Cart{}
	for rows.Next() {
		c, err := scanCart(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart: %w", err)
		}
		carts = append(carts, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating carts: %w", err)
	}

	return carts, nil
}

// MarkExpiredAbandoned marks every expired ACTIVE guest cart ABANDONED.
func (r *cartRepository) MarkExpiredAbandoned(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE carts
		SET status = 'ABANDONED', updated_at = $1
		WHERE status = 'ACTIVE' AND session_id IS NOT NULL AND expires_at < $1
	`

	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to abandon expired carts")
		return 0, fmt.Errorf("failed to abandon expired carts: %w", err)
	}

	r.logger.Info().Int64("count", tag.RowsAffected()).Msg("expired guest carts abandoned")
	return tag.RowsAffected(), nil
}
