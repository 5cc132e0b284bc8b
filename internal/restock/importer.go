package restock

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"phankid/internal/model"

	"github.com/rs/zerolog"
)

// Applied is a variant whose stock was raised.
type Applied struct {
	VariantID int64           `json:"variantId"`
	Quantity  int             `json:"quantity"`
	Stock     model.StockView `json:"stock"`
}

// Failure is a variant the import could not restock.
type Failure struct {
	VariantID int64  `json:"variantId"`
	Quantity  int    `json:"quantity"`
	Error     string `json:"error"`
}

// Report summarises one import run.
type Report struct {
	Manifests int       `json:"manifests"`
	Entries   int       `json:"entries"`
	Applied   []Applied `json:"applied"`
	Failed    []Failure `json:"failed"`
}

// Importer applies restock manifests to inventory.
type Importer struct {
	loader    Loader
	restocker Restocker
	logger    zerolog.Logger
}

// NewImporter creates a new manifest importer.
func NewImporter(loader Loader, restocker Restocker, logger zerolog.Logger) *Importer {
	return &Importer{
		loader:    loader,
		restocker: restocker,
		logger:    logger.With().Str("component", "restock-importer").Logger(),
	}
}

// Import loads every manifest concurrently and, only if all of them parse,
// restocks each variant once with its summed quantity. Per-variant failures
// are recorded in the report and do not stop the run.
func (i *Importer) Import(ctx context.Context, paths []string) (*Report, error) {
	manifests, err := i.loadAll(ctx, paths)
	if err != nil {
		return nil, err
	}

	report := &Report{Manifests: len(manifests)}
	totals := make(map[int64]int)
	for _, m := range manifests {
		report.Entries += len(m.Entries)
		for id, qty := range m.Totals() {
			totals[id] += qty
		}
	}

	for _, variantID := range slices.SortedFunc(maps.Keys(totals), cmp.Compare[int64]) {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		qty := totals[variantID]
		stock, err := i.restocker.Restock(ctx, variantID, qty)
		if err != nil {
			i.logger.Warn().Err(err).Int64("variant_id", variantID).Int("quantity", qty).Msg("restock failed")
			report.Failed = append(report.Failed, Failure{VariantID: variantID, Quantity: qty, Error: err.Error()})
			continue
		}
		report.Applied = append(report.Applied, Applied{VariantID: variantID, Quantity: qty, Stock: *stock})
	}

	i.logger.Info().
		Int("manifests", report.Manifests).
		Int("entries", report.Entries).
		Int("applied", len(report.Applied)).
		Int("failed", len(report.Failed)).
		Msg("restock import finished")

	return report, nil
}

func (i *Importer) loadAll(ctx context.Context, paths []string) ([]*Manifest, error) {
	type loadResult struct {
		index    int
		manifest *Manifest
		err      error
	}

	resultChan := make(chan loadResult, len(paths))
	var wg sync.WaitGroup

	for idx, path := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := i.loader.Load(ctx, path)
			resultChan <- loadResult{index: idx, manifest: m, err: err}
		}()
	}

	wg.Wait()
	close(resultChan)

	manifests := make([]*Manifest, len(paths))
	for result := range resultChan {
		if result.err != nil {
			i.logger.Error().Err(result.err).Str("path", paths[result.index]).Msg("failed to load manifest")
			return nil, fmt.Errorf("failed to load manifest %s: %w", paths[result.index], result.err)
		}
		manifests[result.index] = result.manifest
	}

	return manifests, nil
}
