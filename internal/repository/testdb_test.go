package repository

import (
	"context"
	"testing"
	"time"

	"phankid/internal/database"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL testcontainer with the storefront schema
// and returns a connection pool.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, database.Migrate(ctx, pool, zerolog.Nop()))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// seedCatalog inserts two products with three variants:
//
//	variant 11: product 1, 2T/White, base 150000, stock 10
//	variant 12: product 1, 4T/White, +10000 adjustment, stock 3
//	variant 21: product 2 (on sale 280000 of 320000), 3T/Pink, no inventory row
func seedCatalog(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		INSERT INTO products (id, name, slug, base_price, sale_price, status)
		VALUES (1, 'Cotton Tee', 'cotton-tee', 150000, NULL, 'ACTIVE'),
		       (2, 'Flower Dress', 'flower-dress', 320000, 280000, 'ACTIVE'),
		       (3, 'Retired Hat', 'retired-hat', 90000, NULL, 'INACTIVE');
		INSERT INTO product_variants (id, product_id, sku, size_name, color_name, price_adjustment)
		VALUES (11, 1, 'TEE-2T-WHT', '2T', 'White', 0),
		       (12, 1, 'TEE-4T-WHT', '4T', 'White', 10000),
		       (21, 2, 'DRS-3T-PNK', '3T', 'Pink', 0);
		INSERT INTO inventory (variant_id, quantity, reserved_quantity, low_stock_threshold)
		VALUES (11, 10, 0, 5), (12, 3, 0, 5);
	`)
	require.NoError(t, err)
}

// inTestTx runs fn in a transaction and commits it.
func inTestTx(t *testing.T, pool *pgxpool.Pool, fn func(tx pgx.Tx)) {
	ctx := context.Background()
	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	fn(tx)

	require.NoError(t, tx.Commit(ctx))
}
