package service

import (
	"context"
	"errors"
	"time"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/domain/model"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/repository/db"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/pkg/apperr"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

const (
	defaultCASRetries = 5
	casBaseDelay      = 5 * time.Millisecond
	casMaxDelay       = 100 * time.Millisecond
)

// CartService applies cart mutations as read, check, compare-and-set.
// A lost compare-and-set reruns the whole sequence against fresh state.
type CartService struct {
	carts       db.ICartRepository
	reservation *ReservationService
	casRetries  uint64
	logger      zerolog.Logger
}

func NewCartService(carts db.ICartRepository, reservation *ReservationService, casRetries uint64, logger zerolog.Logger) *CartService {
	if casRetries == 0 {
		casRetries = defaultCASRetries
	}
	return &CartService{
		carts:       carts,
		reservation: reservation,
		casRetries:  casRetries,
		logger:      logger.With().Str("component", "cart_service").Logger(),
	}
}

func (s *CartService) backoff() retry.Backoff {
	b := retry.NewExponential(casBaseDelay)
	b = retry.WithCappedDuration(casMaxDelay, b)
	b = retry.WithJitterPercent(20, b)
	return retry.WithMaxRetries(s.casRetries, b)
}

// withCAS retries fn while it loses the compare-and-set.
func (s *CartService) withCAS(ctx context.Context, fn func(ctx context.Context) error) error {
	attempt := 0
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if errors.Is(err, db.ErrQuantityConflict) {
			s.logger.Debug().Int("attempt", attempt).Msg("cart compare-and-set lost, retrying")
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, db.ErrQuantityConflict) {
		s.logger.Warn().Int("attempts", attempt).Msg("cart compare-and-set retries exhausted")
	}
	return err
}

func (s *CartService) ReadCart(ctx context.Context, userID uint) (*model.CartView, error) {
	cart, err := s.carts.GetCartWithItems(ctx, userID)
	if err != nil {
		return nil, repoError(err, "load cart")
	}
	return cart.View(), nil
}

// AddItem increases the line for productID by delta, creating it if needed.
// 錯誤:
//   - Validation: delta <= 0 或 productID 無效
//   - NotFound: 商品不存在
//   - CapacityExceeded: 超過庫存, MaxPermitted = stock - 目前數量
//   - Conflict: 併發修改重試用盡
func (s *CartService) AddItem(ctx context.Context, userID, productID uint, delta int) (*model.CartView, error) {
	if productID == 0 {
		return nil, apperr.Validation("productId is required")
	}
	if delta <= 0 {
		return nil, apperr.Validation("quantity must be greater than zero")
	}

	cart, err := s.carts.EnsureCart(ctx, userID)
	if err != nil {
		return nil, repoError(err, "ensure cart")
	}

	err = s.withCAS(ctx, func(ctx context.Context) error {
		prior, err := s.carts.GetItemQuantity(ctx, cart.ID, productID)
		if err != nil {
			return err
		}
		check, err := s.reservation.CanAdd(ctx, productID, delta, prior)
		if err != nil {
			return err
		}
		if !check.OK {
			return apperr.CapacityExceeded(check.AvailableUnits,
				"only %d more units of product %d can be added", check.AvailableUnits, productID)
		}
		return s.carts.CompareAndSetQuantity(ctx, cart.ID, productID, prior, prior+delta)
	})
	if err != nil {
		return nil, repoError(err, "add cart item")
	}
	return s.ReadCart(ctx, userID)
}

// SetItem replaces the quantity of an item in the user's cart. Zero removes
// the line, and zero on a line that is already gone changes nothing.
// Zero on an item outside the user's cart, another user's included, returns
// the caller's own cart untouched; a positive quantity there is NotFound.
func (s *CartService) SetItem(ctx context.Context, userID, itemID uint, quantity int) (*model.CartView, error) {
	if quantity < 0 {
		return nil, apperr.Validation("quantity must not be negative")
	}

	cart, err := s.carts.EnsureCart(ctx, userID)
	if err != nil {
		return nil, repoError(err, "ensure cart")
	}

	err = s.withCAS(ctx, func(ctx context.Context) error {
		item, err := s.carts.GetItem(ctx, cart.ID, itemID)
		if errors.Is(err, db.ErrCartItemNotFound) && quantity == 0 {
			return nil
		}
		if err != nil {
			return err
		}

		if quantity > 0 {
			check, err := s.reservation.CanSet(ctx, item.ProductID, quantity)
			if err != nil {
				return err
			}
			if !check.OK {
				return apperr.CapacityExceeded(check.Stock,
					"product %d has only %d units in stock", item.ProductID, check.Stock)
			}
		}

		// a concurrent delete loses the race here; the next attempt sees the
		// line gone and, for quantity 0, succeeds
		return s.carts.CompareAndSetQuantity(ctx, cart.ID, item.ProductID, item.Quantity, quantity)
	})
	if err != nil {
		return nil, repoError(err, "set cart item")
	}
	return s.ReadCart(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uint) (*model.CartView, error) {
	cart, err := s.carts.EnsureCart(ctx, userID)
	if err != nil {
		return nil, repoError(err, "ensure cart")
	}
	if err := s.carts.DeleteItem(ctx, cart.ID, itemID); err != nil {
		return nil, repoError(err, "remove cart item")
	}
	return s.ReadCart(ctx, userID)
}

func (s *CartService) ClearCart(ctx context.Context, userID uint) (*model.CartView, error) {
	cart, err := s.carts.EnsureCart(ctx, userID)
	if err != nil {
		return nil, repoError(err, "ensure cart")
	}
	if err := s.carts.ClearCart(ctx, cart.ID); err != nil {
		return nil, repoError(err, "clear cart")
	}
	return s.ReadCart(ctx, userID)
}
