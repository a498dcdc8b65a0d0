package service

import (
	"context"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/domain/model"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/repository/db"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/pkg/apperr"
)

// AddCheck answers whether delta more units fit on top of the current line.
// AvailableUnits does not depend on the requested delta.
type AddCheck struct {
	OK             bool
	AvailableUnits int
	Stock          int
}

type SetCheck struct {
	OK    bool
	Stock int
}

// ReservationService checks capacity against ledger, which must read the
// products table directly. catalog only feeds the stock report and may be
// a cached view.
type ReservationService struct {
	ledger  db.IProductRepository
	catalog db.IProductRepository
}

func NewReservationService(ledger db.IProductRepository) *ReservationService {
	return &ReservationService{ledger: ledger, catalog: ledger}
}

// WithCatalog serves stock report reads from catalog, e.g. the redis cache-aside repo.
func (s *ReservationService) WithCatalog(catalog db.IProductRepository) *ReservationService {
	if catalog != nil {
		s.catalog = catalog
	}
	return s
}

func availableToAdd(stock, current int) int {
	return max(stock-current, 0)
}

func checkAdd(stock, current, delta int) AddCheck {
	return AddCheck{
		OK:             current+delta <= stock,
		AvailableUnits: availableToAdd(stock, current),
		Stock:          stock,
	}
}

func checkSet(stock, quantity int) SetCheck {
	return SetCheck{OK: quantity <= stock, Stock: stock}
}

func (s *ReservationService) loadProduct(ctx context.Context, repo db.IProductRepository, productID uint) (*model.Product, error) {
	product, err := repo.GetProductByID(ctx, productID)
	if err != nil {
		return nil, repoError(err, "load product")
	}
	return product, nil
}

// 計算可再加入購物車的數量
// 錯誤:
//   - Validation: currentQuantity 為負
//   - NotFound: 商品不存在
func (s *ReservationService) AvailableToAdd(ctx context.Context, productID uint, currentQuantity int) (int, error) {
	if currentQuantity < 0 {
		return 0, apperr.Validation("current quantity must not be negative")
	}
	product, err := s.loadProduct(ctx, s.ledger, productID)
	if err != nil {
		return 0, err
	}
	return availableToAdd(product.Stock, currentQuantity), nil
}

func (s *ReservationService) CanAdd(ctx context.Context, productID uint, delta, currentQuantity int) (*AddCheck, error) {
	if delta < 0 || currentQuantity < 0 {
		return nil, apperr.Validation("quantities must not be negative")
	}
	product, err := s.loadProduct(ctx, s.ledger, productID)
	if err != nil {
		return nil, err
	}
	check := checkAdd(product.Stock, currentQuantity, delta)
	return &check, nil
}

func (s *ReservationService) CanSet(ctx context.Context, productID uint, quantity int) (*SetCheck, error) {
	if quantity < 0 {
		return nil, apperr.Validation("quantity must not be negative")
	}
	product, err := s.loadProduct(ctx, s.ledger, productID)
	if err != nil {
		return nil, err
	}
	check := checkSet(product.Stock, quantity)
	return &check, nil
}

// StockReport sums every cart's reservation of the product. The figure is
// advisory: carts are not locked while it is computed.
func (s *ReservationService) StockReport(ctx context.Context, productID uint) (*model.StockReport, error) {
	product, err := s.loadProduct(ctx, s.catalog, productID)
	if err != nil {
		return nil, err
	}
	reserved, err := s.ledger.GetReservedTotal(ctx, productID)
	if err != nil {
		return nil, repoError(err, "sum reserved units")
	}
	return &model.StockReport{
		ProductID:  product.ID,
		Name:       product.Name,
		TotalStock: product.Stock,
		Reserved:   reserved,
		Available:  availableToAdd(product.Stock, reserved),
	}, nil
}
