package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/api/middleware"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/domain/model"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/pkg/apperr"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/service"
	"github.com/go-chi/chi/v5"
)

type ICartService interface {
	ReadCart(ctx context.Context, userID uint) (*model.CartView, error)
	AddItem(ctx context.Context, userID, productID uint, delta int) (*model.CartView, error)
	SetItem(ctx context.Context, userID, itemID uint, quantity int) (*model.CartView, error)
	RemoveItem(ctx context.Context, userID, itemID uint) (*model.CartView, error)
	ClearCart(ctx context.Context, userID uint) (*model.CartView, error)
}

type IStockService interface {
	StockReport(ctx context.Context, productID uint) (*model.StockReport, error)
}

type IOrderService interface {
	StartCheckout(ctx context.Context, userID uint) (*service.CheckoutResult, error)
	ReconcileOwned(ctx context.Context, userID uint, sessionRef string) (*service.ReconcileResult, error)
	ListOrders(ctx context.Context, userID uint) ([]model.Order, error)
}

const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("invalid request body").WithErr(err)
	}
	return nil
}

func pathID(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("%s must be a positive integer", name)
	}
	return uint(id), nil
}

// currentUser is only called behind AuthMiddleware.
func currentUser(r *http.Request) (uint, error) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		return 0, apperr.Internal(nil, "request reached a protected handler without claims")
	}
	return claims.ID, nil
}
