package db

import (
	"context"
	"errors"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/domain/model"
	"gorm.io/gorm"
)

type OrderRepo struct {
	db *DbDao
}

func NewOrderRepo(db *DbDao) *OrderRepo {
	return &OrderRepo{db: db}
}

func (s *OrderRepo) CreateOrder(ctx context.Context, order *model.Order) error {
	if order.Status == "" {
		order.Status = model.OrderStatusPending
	}
	return s.db.WithContext(ctx).Create(order).Error
}

func (s *OrderRepo) GetOrderByID(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	err := s.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *OrderRepo) GetOrderBySessionRef(ctx context.Context, ref string) (*model.Order, error) {
	var order model.Order
	err := s.db.WithContext(ctx).First(&order, "session_ref = ?", ref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *OrderRepo) GetOrdersByUserID(ctx context.Context, userID uint) ([]model.Order, error) {
	var orders []model.Order
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&orders).Error
	return orders, err
}

// AttachSession writes the session reference once; the amount column is never touched.
func (s *OrderRepo) AttachSession(ctx context.Context, id uint, ref string, token string) error {
	updates := map[string]any{"session_ref": ref}
	if token != "" {
		updates["session_token"] = token
	}
	res := s.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND session_ref IS NULL", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetOrderByID(ctx, id); err != nil {
			return err
		}
		return ErrSessionAlreadyAttached
	}
	return nil
}

// ApplyReconciliation only writes pending orders, so terminal states stick.
func (s *OrderRepo) ApplyReconciliation(ctx context.Context, id uint, status model.OrderStatus, paymentIntentID string) error {
	updates := map[string]any{"status": status}
	if paymentIntentID != "" {
		updates["payment_intent_id"] = paymentIntentID
	}
	res := s.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, model.OrderStatusPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetOrderByID(ctx, id); err != nil {
			return err
		}
		return ErrOrderNotPending
	}
	return nil
}

var _ IOrderRepository = (*OrderRepo)(nil)
