package integration

import (
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"phankid/internal/model"
	"phankid/internal/repository"
	"phankid/internal/restock"
	"phankid/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return path
}

func TestRestockImport_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	SeedCatalog(t, testDB.Pool)

	logger := zerolog.Nop()
	inventory := service.NewInventoryService(
		repository.NewTransactor(testDB.Pool, logger),
		repository.NewInventoryRepository(testDB.Pool, logger),
		logger,
	)
	importer := restock.NewImporter(restock.NewFileLoader(logger), inventory, logger)
	ctx := context.Background()

	dir := t.TempDir()
	first := writeManifest(t, dir, "supplier-a.gz", "# weekly", "11,5", "12,7")
	second := writeManifest(t, dir, "supplier-b.gz", "11,3", "999,4")

	report, err := importer.Import(ctx, []string{first, second})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Manifests)
	assert.Equal(t, 4, report.Entries)
	require.Len(t, report.Applied, 2)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, int64(999), report.Failed[0].VariantID)

	stock, err := inventory.GetStock(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, 18, stock.OnHand)

	stock, err = inventory.GetStock(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, 10, stock.OnHand)

	t.Run("unreadable manifest applies nothing", func(t *testing.T) {
		broken := writeManifest(t, dir, "broken.gz", "11,not-a-number")

		_, err := importer.Import(ctx, []string{first, broken})
		require.Error(t, err)

		stock, err := inventory.GetStock(ctx, 11)
		require.NoError(t, err)
		assert.Equal(t, 18, stock.OnHand)
	})
}

func TestStockReports_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := setupTestServer(t, testDB)
	SeedCatalog(t, testDB.Pool)

	_, err := testDB.Pool.Exec(context.Background(), `UPDATE inventory SET reserved_quantity = quantity WHERE variant_id = 21`)
	require.NoError(t, err)

	w := call(t, server, caller{}, http.MethodGet, "/api/admin/inventory/low-stock", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	low := decode[[]model.StockView](t, w)
	lowIDs := make([]int64, 0, len(low))
	for _, s := range low {
		lowIDs = append(lowIDs, s.VariantID)
	}
	assert.ElementsMatch(t, []int64{12, 21}, lowIDs)

	w = call(t, server, caller{}, http.MethodGet, "/api/admin/inventory/out-of-stock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode[[]model.StockView](t, w)
	require.Len(t, out, 1)
	assert.Equal(t, int64(21), out[0].VariantID)
	assert.True(t, out[0].OutOfStock)

	w = call(t, server, caller{}, http.MethodPost, "/api/admin/inventory/21/restock", model.RestockRequest{Quantity: 4})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	restocked := decode[model.StockView](t, w)
	assert.Equal(t, 6, restocked.OnHand)
	assert.Equal(t, 4, restocked.Available)

	w = call(t, server, caller{}, http.MethodGet, "/api/admin/inventory/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExpiredGuestCarts_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := setupTestServer(t, testDB)
	SeedCatalog(t, testDB.Pool)

	for i := range 3 {
		addToCart(t, server, asGuest(fmt.Sprintf("stale-%d", i)), 11, 1)
	}
	addToCart(t, server, asGuest("fresh"), 11, 1)
	addToCart(t, server, asUser(5), 11, 1)

	_, err := testDB.Pool.Exec(context.Background(),
		`UPDATE carts SET expires_at = NOW() - INTERVAL '1 day' WHERE session_id LIKE 'stale-%'`)
	require.NoError(t, err)

	w := call(t, server, caller{}, http.MethodGet, "/api/admin/carts/expired", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[[]map[string]any](t, w), 3)

	w = call(t, server, caller{}, http.MethodPost, "/api/admin/carts/abandon-expired", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"abandoned":3}`, w.Body.String())

	w = call(t, server, caller{}, http.MethodGet, "/api/admin/carts/expired", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]map[string]any](t, w))

	// A returning stale guest starts over with an empty cart.
	w = call(t, server, asGuest("stale-0"), http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[model.CartView](t, w).Items)

	w = call(t, server, asGuest("fresh"), http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[model.CartView](t, w).TotalItems)
}
