package restock

import (
	"context"

	"phankid/internal/model"
)

// Entry is one delivery line of a manifest.
type Entry struct {
	VariantID int64
	Quantity  int
}

// Manifest is a parsed supplier delivery file.
type Manifest struct {
	Source  string
	Entries []Entry
}

// Totals sums the quantities per variant.
func (m *Manifest) Totals() map[int64]int {
	totals := make(map[int64]int, len(m.Entries))
	for _, e := range m.Entries {
		totals[e.VariantID] += e.Quantity
	}
	return totals
}

// Loader defines the interface for loading restock manifests.
type Loader interface {
	// Load reads a gzipped manifest and returns its entries.
	Load(ctx context.Context, path string) (*Manifest, error)
}

// Restocker adds delivered units to a variant's stock.
type Restocker interface {
	Restock(ctx context.Context, variantID int64, qty int) (*model.StockView, error)
}
