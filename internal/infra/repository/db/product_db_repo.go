package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/domain/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductDBRepo struct {
	db *DbDao
}

func NewProductDBRepo(db *DbDao) *ProductDBRepo {
	return &ProductDBRepo{db: db}
}

func (s *ProductDBRepo) GetProductByID(ctx context.Context, productID uint) (*model.Product, error) {
	var product model.Product
	err := s.db.WithContext(ctx).First(&product, "id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// GetReservedTotal sums the product's quantity over every cart.
func (s *ProductDBRepo) GetReservedTotal(ctx context.Context, productID uint) (int, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

// UpsertProductByName inserts the product or overwrites the row with the same name.
func (s *ProductDBRepo) UpsertProductByName(ctx context.Context, product *model.Product) error {
	if product.Stock < 0 {
		return fmt.Errorf("product %q: negative stock %d", product.Name, product.Stock)
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"category", "description", "price", "stock", "image_url", "updated_at"}),
	}).Create(product).Error
}

func (s *ProductDBRepo) UpdateStock(ctx context.Context, productID uint, stock int) error {
	if stock < 0 {
		return fmt.Errorf("product %d: negative stock %d", productID, stock)
	}
	res := s.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", productID).
		Update("stock", stock)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

var _ IProductRepository = (*ProductDBRepo)(nil)
