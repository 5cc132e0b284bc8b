package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"phankid/internal/model"
	"phankid/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// ledger applies stock movements inside a caller's transaction. Every
// movement locks the variant's inventory row first, so concurrent movements
// on the same variant are serialised by the database.
type ledger struct {
	repo   repository.InventoryRepository
	now    func() time.Time
	logger zerolog.Logger
}

func newLedger(repo repository.InventoryRepository, logger zerolog.Logger) *ledger {
	return &ledger{
		repo:   repo,
		now:    time.Now,
		logger: logger.With().Str("component", "ledger").Logger(),
	}
}

func (l *ledger) lock(ctx context.Context, tx pgx.Tx, variantID int64) (*model.StockLevel, error) {
	level, err := l.repo.LockForUpdate(ctx, tx, variantID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock inventory: %w", err)
	}
	if level == nil {
		return nil, model.NotFoundf("Inventory not found for variant: %d", variantID)
	}
	return level, nil
}

func (l *ledger) reserve(ctx context.Context, tx pgx.Tx, variantID int64, qty int) error {
	level, err := l.lock(ctx, tx, variantID)
	if err != nil {
		return err
	}
	if err := level.Reserve(qty); err != nil {
		l.logger.Warn().
			Int64("variant_id", variantID).
			Int("requested", qty).
			Int("available", level.Available()).
			Msg("reservation rejected")
		return err
	}
	level.UpdatedAt = l.now()
	return l.repo.Save(ctx, tx, level)
}

func (l *ledger) release(ctx context.Context, tx pgx.Tx, variantID int64, qty int) (int, error) {
	level, err := l.lock(ctx, tx, variantID)
	if err != nil {
		return 0, err
	}
	released := level.Release(qty)
	if released < qty {
		l.logger.Warn().
			Int64("variant_id", variantID).
			Int("requested", qty).
			Int("released", released).
			Msg("released less than requested")
	}
	level.UpdatedAt = l.now()
	return released, l.repo.Save(ctx, tx, level)
}

func (l *ledger) deduct(ctx context.Context, tx pgx.Tx, variantID int64, qty int) error {
	level, err := l.lock(ctx, tx, variantID)
	if err != nil {
		return err
	}
	if err := level.Deduct(qty); err != nil {
		return err
	}
	level.UpdatedAt = l.now()
	return l.repo.Save(ctx, tx, level)
}

func (l *ledger) restock(ctx context.Context, tx pgx.Tx, variantID int64, qty int) (*model.StockLevel, error) {
	level, err := l.repo.LockForUpdate(ctx, tx, variantID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock inventory: %w", err)
	}
	if level == nil {
		level = &model.StockLevel{VariantID: variantID, LowStockThreshold: model.DefaultLowStockThreshold}
	}
	if err := level.AddStock(qty); err != nil {
		return nil, err
	}
	level.UpdatedAt = l.now()
	if err := l.repo.Save(ctx, tx, level); err != nil {
		return nil, err
	}
	return level, nil
}

// movement is one variant quantity touched by a multi-line operation.
type movement struct {
	variantID int64
	qty       int
}

// inLockOrder sorts movements by variant id so that concurrent multi-line
// operations always take row locks in the same order.
func inLockOrder(ms []movement) []movement {
	sorted := slices.Clone(ms)
	slices.SortFunc(sorted, func(a, b movement) int {
		return cmp.Compare(a.variantID, b.variantID)
	})
	return sorted
}

// inventoryService implements InventoryService.
type inventoryService struct {
	tx     repository.Transactor
	repo   repository.InventoryRepository
	ledger *ledger
	logger zerolog.Logger
}

// NewInventoryService creates a new inventory service.
func NewInventoryService(tx repository.Transactor, repo repository.InventoryRepository, logger zerolog.Logger) InventoryService {
	return &inventoryService{
		tx:     tx,
		repo:   repo,
		ledger: newLedger(repo, logger),
		logger: logger.With().Str("service", "inventory").Logger(),
	}
}

// GetStock returns the counters of a variant.
func (s *inventoryService) GetStock(ctx context.Context, variantID int64) (*model.StockView, error) {
	level, err := s.repo.GetByVariantID(ctx, variantID)
	if err != nil {
		s.logger.Error().Err(err).Int64("variant_id", variantID).Msg("failed to get stock")
		return nil, fmt.Errorf("failed to get stock: %w", err)
	}
	if level == nil {
		return nil, model.NotFoundf("Inventory not found for variant: %d", variantID)
	}
	view := level.View()
	return &view, nil
}

// Reserve holds qty units of a variant.
func (s *inventoryService) Reserve(ctx context.Context, variantID int64, qty int) error {
	return inTx(ctx, s.tx, s.logger, func(tx pgx.Tx) error {
		return s.ledger.reserve(ctx, tx, variantID, qty)
	})
}

// Release returns up to qty reserved units.
func (s *inventoryService) Release(ctx context.Context, variantID int64, qty int) (int, error) {
	var released int
	err := inTx(ctx, s.tx, s.logger, func(tx pgx.Tx) error {
		var err error
		released, err = s.ledger.release(ctx, tx, variantID, qty)
		return err
	})
	return released, err
}

// Deduct permanently removes qty units.
func (s *inventoryService) Deduct(ctx context.Context, variantID int64, qty int) error {
	return inTx(ctx, s.tx, s.logger, func(tx pgx.Tx) error {
		return s.ledger.deduct(ctx, tx, variantID, qty)
	})
}

// Restock adds delivered units to a variant.
func (s *inventoryService) Restock(ctx context.Context, variantID int64, qty int) (*model.StockView, error) {
	var level *model.StockLevel
	err := inTx(ctx, s.tx, s.logger, func(tx pgx.Tx) error {
		var err error
		level, err = s.ledger.restock(ctx, tx, variantID, qty)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("variant_id", variantID).
		Int("added", qty).
		Int("on_hand", level.OnHand).
		Msg("variant restocked")

	view := level.View()
	return &view, nil
}

// ListLowStock lists variants at or below their low-stock threshold.
func (s *inventoryService) ListLowStock(ctx context.Context, limit int) ([]model.StockView, error) {
	levels, err := s.repo.ListLowStock(ctx, clampLimit(limit))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list low stock")
		return nil, fmt.Errorf("failed to list low stock: %w", err)
	}
	return views(levels), nil
}

// ListOutOfStock lists variants with nothing left to sell.
func (s *inventoryService) ListOutOfStock(ctx context.Context, limit int) ([]model.StockView, error) {
	levels, err := s.repo.ListOutOfStock(ctx, clampLimit(limit))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list out of stock")
		return nil, fmt.Errorf("failed to list out of stock: %w", err)
	}
	return views(levels), nil
}

func views(levels []model.StockLevel) []model.StockView {
	out := make([]model.StockView, len(levels))
	for i, l := range levels {
		out[i] = l.View()
	}
	return out
}

// clampLimit applies the default page size of 10 and the maximum of 100.
func clampLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	return min(limit, 100)
}
