package service

import (
	"context"
	"fmt"
	"time"

	"phankid/internal/model"
	"phankid/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// cartService implements CartService.
type cartService struct {
	cartRepo    repository.CartRepository
	catalogRepo repository.CatalogRepository
	guestTTL    time.Duration
	now         func() time.Time
	logger      zerolog.Logger
}

// NewCartService creates a new cart service. Guest carts expire after guestTTL.
func NewCartService(
	cartRepo repository.CartRepository,
	catalogRepo repository.CatalogRepository,
	guestTTL time.Duration,
	logger zerolog.Logger,
) CartService {
	if guestTTL <= 0 {
		guestTTL = model.GuestCartTTL
	}
	return &cartService{
		cartRepo:    cartRepo,
		catalogRepo: catalogRepo,
		guestTTL:    guestTTL,
		now:         time.Now,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

// GetCart returns the owner's active cart, creating an empty one if needed.
func (s *cartService) GetCart(ctx context.Context, owner model.CartOwner) (*model.CartView, error) {
	if !owner.Valid() {
		return nil, model.ErrInvalidIdentity
	}

	cart, err := s.cartRepo.FindActive(ctx, owner)
	if err != nil {
		s.logger.Error().Err(err).Str("owner", owner.String()).Msg("failed to get cart")
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	if cart == nil || cart.IsExpired(s.now()) {
		err = inTx(ctx, s.cartRepo, s.logger, func(tx pgx.Tx) error {
			cart, err = s.lockOrCreate(ctx, tx, owner)
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	return s.price(ctx, cart)
}

// AddItem adds qty of a variant, merging with an existing line. The merged
// quantity may not exceed the variant's available stock.
func (s *cartService) AddItem(ctx context.Context, owner model.CartOwner, req *model.AddToCartRequest) (*model.CartView, error) {
	if !owner.Valid() {
		return nil, model.ErrInvalidIdentity
	}
	if req == nil || req.Quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}

	variant, err := s.purchasableVariant(ctx, req.VariantID)
	if err != nil {
		return nil, err
	}

	var cart *model.Cart
	err = inTx(ctx, s.cartRepo, s.logger, func(tx pgx.Tx) error {
		cart, err = s.lockOrCreate(ctx, tx, owner)
		if err != nil {
			return err
		}

		now := s.now()
		line, exists := cart.Line(req.VariantID)
		if !exists {
			line = model.CartLine{ID: uuid.New(), CartID: cart.ID, VariantID: req.VariantID, AddedAt: now}
		}
		line.Quantity += req.Quantity

		if line.Quantity > variant.Available {
			return &model.InsufficientStockError{
				VariantID: req.VariantID,
				Requested: line.Quantity,
				Available: max(variant.Available, 0),
			}
		}

		if err := s.cartRepo.UpsertLine(ctx, tx, &line); err != nil {
			return err
		}
		return s.cartRepo.Touch(ctx, tx, cart.ID, now)
	})
	if err != nil {
		s.logger.Warn().Err(err).
			Str("owner", owner.String()).
			Int64("variant_id", req.VariantID).
			Int("quantity", req.Quantity).
			Msg("add to cart failed")
		return nil, err
	}

	s.logger.Debug().
		Str("cart_id", cart.ID.String()).
		Int64("variant_id", req.VariantID).
		Int("quantity", req.Quantity).
		Msg("item added to cart")

	return s.reload(ctx, owner)
}

// UpdateItemQuantity sets a line's quantity; zero or less removes the line.
func (s *cartService) UpdateItemQuantity(ctx context.Context, owner model.CartOwner, variantID int64, qty int) (*model.CartView, error) {
	if qty <= 0 {
		return s.RemoveItem(ctx, owner, variantID)
	}
	if !owner.Valid() {
		return nil, model.ErrInvalidIdentity
	}

	variant, err := s.purchasableVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}

	err = inTx(ctx, s.cartRepo, s.logger, func(tx pgx.Tx) error {
		cart, err := s.lockExisting(ctx, tx, owner)
		if err != nil {
			return err
		}
		line, ok := cart.Line(variantID)
		if !ok {
			return model.NotFoundf("Item not found in cart: %d", variantID)
		}
		if qty > variant.Available {
			return &model.InsufficientStockError{VariantID: variantID, Requested: qty, Available: max(variant.Available, 0)}
		}

		line.Quantity = qty
		if err := s.cartRepo.UpsertLine(ctx, tx, &line); err != nil {
			return err
		}
		return s.cartRepo.Touch(ctx, tx, cart.ID, s.now())
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, owner)
}

// RemoveItem deletes a line.
func (s *cartService) RemoveItem(ctx context.Context, owner model.CartOwner, variantID int64) (*model.CartView, error) {
	if !owner.Valid() {
		return nil, model.ErrInvalidIdentity
	}

	err := inTx(ctx, s.cartRepo, s.logger, func(tx pgx.Tx) error {
		cart, err := s.lockExisting(ctx, tx, owner)
		if err != nil {
			return err
		}
		removed, err := s.cartRepo.DeleteLine(ctx, tx, cart.ID, variantID)
		if err != nil {
			return err
		}
		if !removed {
			return model.NotFoundf("Item not found in cart: %d", variantID)
		}
		return s.cartRepo.Touch(ctx, tx, cart.ID, s.now())
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, owner)
}

// Clear deletes every line. Clearing a cart that does not exist is a no-op.
func (s *cartService) Clear(ctx context.Context, owner model.CartOwner) (*model.CartView, error) {
	if !owner.Valid() {
		return nil, model.ErrInvalidIdentity
	}

	err := inTx(ctx, s.cartRepo, s.logger, func(tx pgx.Tx) error {
		cart, err := s.cartRepo.LockActive(ctx, tx, owner)
		if err != nil || cart == nil {
			return err
		}
		if err := s.cartRepo.DeleteLines(ctx, tx, cart.ID); err != nil {
			return err
		}
		return s.cartRepo.Touch(ctx, tx, cart.ID, s.now())
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, owner)
}

// MergeGuestIntoUser folds the guest cart into the user's cart. Each merged
// line is clamped to the stock available at merge time; lines whose variant
// is gone or has no stock are dropped. The guest cart ends up MERGED and empty.
func (s *cartService) MergeGuestIntoUser(ctx context.Context, userID int64, sessionID string) (*model.CartView, error) {
	if sessionID == "" {
		return nil, model.ErrInvalidIdentity
	}
	userOwner := model.UserCart(userID)
	guestOwner := model.GuestCart(sessionID)

	merged := 0
	err := inTx(ctx, s.cartRepo, s.logger, func(tx pgx.Tx) error {
		guest, err := s.cartRepo.LockActive(ctx, tx, guestOwner)
		if err != nil || guest == nil {
			return err
		}

		user, err := s.lockOrCreate(ctx, tx, userOwner)
		if err != nil {
			return err
		}

		variants, err := s.catalogRepo.GetVariants(ctx, guest.VariantIDs())
		if err != nil {
			return fmt.Errorf("failed to load variants: %w", err)
		}

		now := s.now()
		for _, g := range guest.Lines {
			v, ok := variants[g.VariantID]
			if !ok || !v.Purchasable() {
				continue
			}
			line, exists := user.Line(g.VariantID)
			qty := model.MergedQuantity(line.Quantity, g.Quantity, v.Available)
			if qty <= 0 || (exists && qty == line.Quantity) {
				continue
			}
			if !exists {
				line = model.CartLine{ID: uuid.New(), CartID: user.ID, VariantID: g.VariantID, AddedAt: now}
			}
			line.Quantity = qty
			if err := s.cartRepo.UpsertLine(ctx, tx, &line); err != nil {
				return err
			}
			merged++
		}

		if err := s.cartRepo.DeleteLines(ctx, tx, guest.ID); err != nil {
			return err
		}
		if err := s.cartRepo.UpdateStatus(ctx, tx, guest.ID, model.CartStatusMerged, now); err != nil {
			return err
		}
		return s.cartRepo.Touch(ctx, tx, user.ID, now)
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to merge guest cart")
		return nil, err
	}

	s.logger.Info().
		Int64("user_id", userID).
		Int("merged_lines", merged).
		Msg("guest cart merged")

	return s.GetCart(ctx, userOwner)
}

// ExpiredGuestCarts lists guest carts past their expiry that are still active.
func (s *cartService) ExpiredGuestCarts(ctx context.Context, limit int) ([]model.Cart, error) {
	carts, err := s.cartRepo.ListExpiredGuestCarts(ctx, s.now(), clampLimit(limit))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list expired carts")
		return nil, fmt.Errorf("failed to list expired carts: %w", err)
	}
	return carts, nil
}

// AbandonExpiredGuestCarts marks expired guest carts ABANDONED.
func (s *cartService) AbandonExpiredGuestCarts(ctx context.Context) (int64, error) {
	n, err := s.cartRepo.MarkExpiredAbandoned(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to abandon expired carts: %w", err)
	}
	return n, nil
}

// lockOrCreate returns the owner's locked ACTIVE cart, creating it if needed.
// An expired guest cart is abandoned and replaced.
func (s *cartService) lockOrCreate(ctx context.Context, tx pgx.Tx, owner model.CartOwner) (*model.Cart, error) {
	now := s.now()

	cart, err := s.cartRepo.LockActive(ctx, tx, owner)
	if err != nil {
		return nil, err
	}
	if cart != nil && cart.IsExpired(now) {
		if err := s.cartRepo.UpdateStatus(ctx, tx, cart.ID, model.CartStatusAbandoned, now); err != nil {
			return nil, err
		}
		s.logger.Debug().Str("cart_id", cart.ID.String()).Msg("expired guest cart abandoned on access")
		cart = nil
	}
	if cart != nil {
		return cart, nil
	}

	fresh := model.NewCart(owner, now, s.guestTTL)
	created, err := s.cartRepo.Create(ctx, tx, fresh)
	if err != nil {
		return nil, err
	}
	if created {
		return fresh, nil
	}

	// Lost a race with a concurrent create; the winner is committed by now.
	cart, err = s.cartRepo.LockActive(ctx, tx, owner)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, fmt.Errorf("cart for %s vanished after concurrent create", owner)
	}
	return cart, nil
}

func (s *cartService) lockExisting(ctx context.Context, tx pgx.Tx, owner model.CartOwner) (*model.Cart, error) {
	cart, err := s.cartRepo.LockActive(ctx, tx, owner)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, model.NotFoundf("Cart not found")
	}
	return cart, nil
}

func (s *cartService) purchasableVariant(ctx context.Context, variantID int64) (model.VariantSnapshot, error) {
	variants, err := s.catalogRepo.GetVariants(ctx, []int64{variantID})
	if err != nil {
		s.logger.Error().Err(err).Int64("variant_id", variantID).Msg("failed to load variant")
		return model.VariantSnapshot{}, fmt.Errorf("failed to load variant: %w", err)
	}
	v, ok := variants[variantID]
	if !ok {
		return model.VariantSnapshot{}, model.NotFoundf("Variant not found: %d", variantID)
	}
	if !v.Purchasable() {
		return model.VariantSnapshot{}, model.ErrVariantUnavailable
	}
	return v, nil
}

func (s *cartService) reload(ctx context.Context, owner model.CartOwner) (*model.CartView, error) {
	cart, err := s.cartRepo.FindActive(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart == nil {
		return nil, model.NotFoundf("Cart not found")
	}
	return s.price(ctx, cart)
}

func (s *cartService) price(ctx context.Context, cart *model.Cart) (*model.CartView, error) {
	variants, err := s.catalogRepo.GetVariants(ctx, cart.VariantIDs())
	if err != nil {
		s.logger.Error().Err(err).Str("cart_id", cart.ID.String()).Msg("failed to price cart")
		return nil, fmt.Errorf("failed to price cart: %w", err)
	}
	return model.PriceCart(cart, variants), nil
}
