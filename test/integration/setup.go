package integration

import (
	"context"
	"testing"
	"time"

	"phankid/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container with the storefront schema.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("phankid"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	// Enough connections for the concurrent checkout tests.
	poolConfig.MaxConns = 20

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	if err := database.Migrate(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// SeedCatalog inserts the test catalog:
//
//	variant 11: Cotton Tee 2T/White, 150000, stock 10
//	variant 12: Cotton Tee 4T/White, 160000, stock 3
//	variant 21: Flower Dress 3T/Pink, on sale 280000, stock 2
//	variant 31: Retired Hat (inactive), stock 5
func SeedCatalog(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		INSERT INTO products (id, name, slug, base_price, sale_price, status)
		VALUES (1, 'Cotton Tee', 'cotton-tee', 150000, NULL, 'ACTIVE'),
		       (2, 'Flower Dress', 'flower-dress', 320000, 280000, 'ACTIVE'),
		       (3, 'Retired Hat', 'retired-hat', 90000, NULL, 'INACTIVE');
		INSERT INTO product_variants (id, product_id, sku, size_name, color_name, price_adjustment)
		VALUES (11, 1, 'TEE-2T-WHT', '2T', 'White', 0),
		       (12, 1, 'TEE-4T-WHT', '4T', 'White', 10000),
		       (21, 2, 'DRS-3T-PNK', '3T', 'Pink', 0),
		       (31, 3, 'HAT-OS-BLU', 'One Size', 'Blue', 0);
		INSERT INTO inventory (variant_id, quantity, reserved_quantity, low_stock_threshold)
		VALUES (11, 10, 0, 5), (12, 3, 0, 5), (21, 2, 0, 1), (31, 5, 0, 1);
	`)
	if err != nil {
		t.Fatalf("failed to seed catalog: %v", err)
	}
}

// CleanupDB removes all rows from the storefront tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		TRUNCATE payments, order_items, orders, order_code_sequences,
		         cart_items, carts, inventory, product_variants, products
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		t.Fatalf("failed to clean database: %v", err)
	}
}
