package repository

import (
	"context"
	"fmt"

	"phankid/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// catalogRepository implements the CatalogRepository interface using PostgreSQL.
type catalogRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCatalogRepository creates a new PostgreSQL-backed catalogue reader.
func NewCatalogRepository(pool *pgxpool.Pool, logger zerolog.Logger) CatalogRepository {
	return &catalogRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "catalog").Logger(),
	}
}

const productColumns = `p.id, p.name, p.slug, p.base_price, p.sale_price, p.status, p.image_url, p.created_at`

func scanProduct(row pgx.Row, p *model.Product) error {
	return row.Scan(&p.ID, &p.Name, &p.Slug, &p.BasePrice, &p.SalePrice, &p.Status, &p.ImageURL, &p.CreatedAt)
}

// ListProducts retrieves active products with pagination support.
func (r *catalogRepository) ListProducts(ctx context.Context, limit, offset int) ([]model.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		WHERE p.status = 'ACTIVE'
		ORDER BY p.name
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		var p model.Product
		if err := scanProduct(rows, &p); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// GetProduct retrieves a product with its variants.
func (r *catalogRepository) GetProduct(ctx context.Context, id int64) (*model.ProductDetail, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1`

	var p model.Product
	err := scanProduct(r.pool.QueryRow(ctx, query, id), &p)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Int64("product_id", id).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	variants, err := r.queryVariants(ctx, `v.product_id = $1`, id)
	if err != nil {
		return nil, err
	}

	return &model.ProductDetail{
		Product:        p,
		EffectivePrice: p.EffectivePrice(),
		Variants:       variants,
	}, nil
}

// GetVariants returns live snapshots keyed by variant id.
func (r *catalogRepository) GetVariants(ctx context.Context, ids []int64) (map[int64]model.VariantSnapshot, error) {
	result := make(map[int64]model.VariantSnapshot, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	variants, err := r.queryVariants(ctx, `v.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, v := range variants {
		result[v.VariantID] = v
	}

	return result, nil
}

// queryVariants loads variant snapshots matching where. The price is derived
// from the product's effective price plus the variant adjustment.
func (r *catalogRepository) queryVariants(ctx context.Context, where string, arg any) ([]model.VariantSnapshot, error) {
	query := `
		SELECT v.id, v.sku, v.size_name, v.color_name, COALESCE(v.image_url, p.image_url, ''),
		       v.is_active, v.price_adjustment, COALESCE(i.quantity - i.reserved_quantity, 0),
		       ` + productColumns + `
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		LEFT JOIN inventory i ON i.variant_id = v.id
		WHERE ` + where + `
		ORDER BY v.id
	`

	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query variants")
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	variants := []model.VariantSnapshot{}
	for rows.Next() {
		var (
			v          model.VariantSnapshot
			p          model.Product
			adjustment decimal.Decimal
		)
		err := rows.Scan(
			&v.VariantID, &v.SKU, &v.SizeName, &v.ColorName, &v.ImageURL,
			&v.IsActive, &adjustment, &v.Available,
			&p.ID, &p.Name, &p.Slug, &p.BasePrice, &p.SalePrice, &p.Status, &p.ImageURL, &p.CreatedAt,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan variant row")
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		v.ProductID = p.ID
		v.ProductName = p.Name
		v.ProductSlug = p.Slug
		v.ProductStatus = p.Status
		v.FinalPrice = p.EffectivePrice().Add(adjustment)
		variants = append(variants, v)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating variant rows")
		return nil, fmt.Errorf("error iterating variants: %w", err)
	}

	return variants, nil
}
