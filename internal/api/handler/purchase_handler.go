package handler

import (
	"net/http"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/api/response"
	"github.com/go-chi/chi/v5"
)

type PurchaseHandler struct {
	orderService IOrderService
}

func NewPurchaseHandler(orderService IOrderService) *PurchaseHandler {
	if orderService == nil {
		panic("orderService cannot be nil")
	}
	return &PurchaseHandler{orderService: orderService}
}

func (h *PurchaseHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		response.ErrorJSON(w, err)
		return
	}
	res, err := h.orderService.StartCheckout(r.Context(), userID)
	if err != nil {
		response.ErrorJSON(w, err)
		return
	}
	response.SuccessJSON(w, http.StatusCreated, res)
}

func (h *PurchaseHandler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		response.ErrorJSON(w, err)
		return
	}
	res, err := h.orderService.ReconcileOwned(r.Context(), userID, chi.URLParam(r, "sessionId"))
	if err != nil {
		response.ErrorJSON(w, err)
		return
	}
	response.SuccessJSON(w, http.StatusOK, res)
}

func (h *PurchaseHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		response.ErrorJSON(w, err)
		return
	}
	orders, err := h.orderService.ListOrders(r.Context(), userID)
	if err != nil {
		response.ErrorJSON(w, err)
		return
	}
	response.SuccessJSON(w, http.StatusOK, map[string]any{"orders": orders})
}
