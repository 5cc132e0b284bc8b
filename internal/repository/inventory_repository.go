package repository

import (
	"context"
	"errors"
	"fmt"

	"phankid/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// inventoryRepository implements the InventoryRepository interface using PostgreSQL.
type inventoryRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewInventoryRepository creates a new PostgreSQL-backed inventory repository.
func NewInventoryRepository(pool *pgxpool.Pool, logger zerolog.Logger) InventoryRepository {
	return &inventoryRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "inventory").Logger(),
	}
}

const stockColumns = `variant_id, quantity, reserved_quantity, low_stock_threshold, updated_at`

func scanStock(row pgx.Row, s *model.StockLevel) error {
	return row.Scan(&s.VariantID, &s.OnHand, &s.Reserved, &s.LowStockThreshold, &s.UpdatedAt)
}

// GetByVariantID reads the current counters without locking.
func (r *inventoryRepository) GetByVariantID(ctx context.Context, variantID int64) (*model.StockLevel, error) {
	return r.get(ctx, r.pool, `SELECT `+stockColumns+` FROM inventory WHERE variant_id = $1`, variantID)
}

// LockForUpdate reads the counters and holds a row lock until tx ends.
func (r *inventoryRepository) LockForUpdate(ctx context.Context, tx pgx.Tx, variantID int64) (*model.StockLevel, error) {
	return r.get(ctx, tx, `SELECT `+stockColumns+` FROM inventory WHERE variant_id = $1 FOR UPDATE`, variantID)
}

func (r *inventoryRepository) get(ctx context.Context, q querier, query string, variantID int64) (*model.StockLevel, error) {
	var s model.StockLevel
	err := scanStock(q.QueryRow(ctx, query, variantID), &s)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Int64("variant_id", variantID).Msg("inventory not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("variant_id", variantID).Msg("failed to query inventory")
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	return &s, nil
}

// Save writes the counters, creating the row if needed.
func (r *inventoryRepository) Save(ctx context.Context, tx pgx.Tx, level *model.StockLevel) error {
	query := `
		INSERT INTO inventory (variant_id, quantity, reserved_quantity, low_stock_threshold, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (variant_id) DO UPDATE
		SET quantity = EXCLUDED.quantity,
		    reserved_quantity = EXCLUDED.reserved_quantity,
		    low_stock_threshold = EXCLUDED.low_stock_threshold,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := tx.Exec(ctx, query, level.VariantID, level.OnHand, level.Reserved, level.LowStockThreshold, level.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return model.NotFoundf("Variant not found: %d", level.VariantID)
		}
		r.logger.Error().Err(err).Int64("variant_id", level.VariantID).Msg("failed to save inventory")
		return fmt.Errorf("failed to save inventory: %w", err)
	}

	r.logger.Debug().
		Int64("variant_id", level.VariantID).
		Int("on_hand", level.OnHand).
		Int("reserved", level.Reserved).
		Msg("inventory saved")

	return nil
}

// ListLowStock lists variants whose available quantity is at or below their threshold.
func (r *inventoryRepository) ListLowStock(ctx context.Context, limit int) ([]model.StockLevel, error) {
	return r.list(ctx, `quantity - reserved_quantity <= low_stock_threshold`, limit)
}

// ListOutOfStock lists variants with nothing left to sell.
func (r *inventoryRepository) ListOutOfStock(ctx context.Context, limit int) ([]model.StockLevel, error) {
	return r.list(ctx, `quantity - reserved_quantity <= 0`, limit)
}

func (r *inventoryRepository) list(ctx context.Context, where string, limit int) ([]model.StockLevel, error) {
	query := `
		SELECT ` + stockColumns + `
		FROM inventory
		WHERE ` + where + `
		ORDER BY quantity - reserved_quantity, variant_id
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query inventory")
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer rows.Close()

	levels := []model.StockLevel{}
	for rows.Next() {
		var s model.StockLevel
		if err := scanStock(rows, &s); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan inventory row")
			return nil, fmt.Errorf("failed to scan inventory: %w", err)
		}
		levels = append(levels, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory: %w", err)
	}

	return levels, nil
}
