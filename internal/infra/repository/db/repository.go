package db

import (
	"context"
	"errors"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/domain/model"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrOrderNotFound    = errors.New("order not found")
	// ErrQuantityConflict means the stored quantity no longer matches the
	// caller's precondition.
	ErrQuantityConflict = errors.New("cart item quantity changed concurrently")
	// ErrSessionAlreadyAttached guards the one-time session reference write.
	ErrSessionAlreadyAttached = errors.New("order already has a session reference")
	// ErrOrderNotPending means a terminal order was not overwritten.
	ErrOrderNotPending = errors.New("order is not pending")
)

// IProductRepository is the stock ledger.
type IProductRepository interface {
	GetProductByID(ctx context.Context, productID uint) (*model.Product, error)
	GetReservedTotal(ctx context.Context, productID uint) (int, error)
	UpsertProductByName(ctx context.Context, product *model.Product) error
	UpdateStock(ctx context.Context, productID uint, stock int) error
}

type ICartRepository interface {
	EnsureCart(ctx context.Context, userID uint) (*model.Cart, error)
	GetCartWithItems(ctx context.Context, userID uint) (*model.Cart, error)
	// GetItemQuantity returns 0 when the cart has no line for the product.
	GetItemQuantity(ctx context.Context, cartID, productID uint) (int, error)
	GetItem(ctx context.Context, cartID, itemID uint) (*model.CartItem, error)
	// CompareAndSetQuantity moves a line from prevQty to newQty in one
	// statement. prevQty 0 means the line must be absent, newQty 0 deletes it.
	// Growing a line past the product's stored stock is refused as a conflict.
	CompareAndSetQuantity(ctx context.Context, cartID, productID uint, prevQty, newQty int) error
	DeleteItem(ctx context.Context, cartID, itemID uint) error
	ClearCart(ctx context.Context, cartID uint) error
}

type IOrderRepository interface {
	CreateOrder(ctx context.Context, order *model.Order) error
	GetOrderByID(ctx context.Context, id uint) (*model.Order, error)
	GetOrderBySessionRef(ctx context.Context, ref string) (*model.Order, error)
	GetOrdersByUserID(ctx context.Context, userID uint) ([]model.Order, error)
	AttachSession(ctx context.Context, id uint, ref string, token string) error
	ApplyReconciliation(ctx context.Context, id uint, status model.OrderStatus, paymentIntentID string) error
}

type IUserRepository interface {
	GetUserByID(ctx context.Context, id uint) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
}
