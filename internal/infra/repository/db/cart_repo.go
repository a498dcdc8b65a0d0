package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/domain/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepo struct {
	db *DbDao
}

func NewCartRepo(db *DbDao) *CartRepo {
	return &CartRepo{db: db}
}

// EnsureCart returns the user's cart, creating it on first access.
func (s *CartRepo) EnsureCart(ctx context.Context, userID uint) (*model.Cart, error) {
	cart := model.Cart{UserID: userID}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&cart).Error
	if err != nil {
		return nil, err
	}
	if cart.ID != 0 {
		return &cart, nil
	}

	// lost the insert to a concurrent ensure or the cart already existed
	if err := s.db.WithContext(ctx).First(&cart, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (s *CartRepo) GetCartWithItems(ctx context.Context, userID uint) (*model.Cart, error) {
	cart, err := s.EnsureCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_items.id ASC")
		}).
		Preload("Items.Product", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped()
		}).
		First(cart, "id = ?", cart.ID).Error
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartRepo) GetItemQuantity(ctx context.Context, cartID, productID uint) (int, error) {
	var quantities []int
	err := s.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Pluck("quantity", &quantities).Error
	if err != nil {
		return 0, err
	}
	if len(quantities) == 0 {
		return 0, nil
	}
	return quantities[0], nil
}

// GetItem only finds items inside the given cart.
func (s *CartRepo) GetItem(ctx context.Context, cartID, itemID uint) (*model.CartItem, error) {
	var item model.CartItem
	err := s.db.WithContext(ctx).
		Preload("Product", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped()
		}).
		First(&item, "id = ? AND cart_id = ?", itemID, cartID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// stockBound holds when newQty units fit in the product's current stock.
// A soft deleted product has no stock.
const stockBound = "? <= (SELECT stock FROM products WHERE products.id = ? AND products.deleted_at IS NULL)"

// CompareAndSetQuantity also refuses to grow a line past the product's stock
// as stored at write time. Both refusals report ErrQuantityConflict, and the
// caller's retry re-reads the stock.
func (s *CartRepo) CompareAndSetQuantity(ctx context.Context, cartID, productID uint, prevQty, newQty int) error {
	if prevQty < 0 || newQty < 0 {
		return fmt.Errorf("invalid quantity transition %d -> %d", prevQty, newQty)
	}

	tx := s.db.WithContext(ctx)
	var res *gorm.DB
	switch {
	case prevQty == 0 && newQty == 0:
		return nil
	case prevQty == 0:
		now := time.Now()
		res = tx.Exec(`INSERT INTO cart_items (cart_id, product_id, quantity, created_at, updated_at)
			SELECT ?, ?, ?, ?, ?
			WHERE `+stockBound+`
			ON CONFLICT (cart_id, product_id) DO NOTHING`,
			cartID, productID, newQty, now, now, newQty, productID)
	case newQty == 0:
		res = tx.Where("cart_id = ? AND product_id = ? AND quantity = ?", cartID, productID, prevQty).
			Delete(&model.CartItem{})
	default:
		q := tx.Model(&model.CartItem{}).
			Where("cart_id = ? AND product_id = ? AND quantity = ?", cartID, productID, prevQty)
		if newQty > prevQty {
			q = q.Where(stockBound, newQty, productID)
		}
		res = q.Updates(map[string]any{"quantity": newQty, "updated_at": time.Now()})
	}

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrQuantityConflict
	}
	return nil
}

func (s *CartRepo) DeleteItem(ctx context.Context, cartID, itemID uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Delete(&model.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (s *CartRepo) ClearCart(ctx context.Context, cartID uint) error {
	return s.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&model.CartItem{}).Error
}

var _ ICartRepository = (*CartRepo)(nil)
