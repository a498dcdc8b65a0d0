package handler

import (
	"net/http"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/api/response"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/pkg/apperr"
)

type CartHandler struct {
	cartService ICartService
}

func NewCartHandler(cartService ICartService) *CartHandler {
	if cartService == nil {
		panic("cartService cannot be nil")
	}
	return &CartHandler{cartService: cartService}
}

// AddItemDTO binds product_id; older clients still send productId.
type AddItemDTO struct {
	ProductID       uint `json:"product_id"`
	LegacyProductID uint `json:"productId"`
	Quantity        int  `json:"quantity"`
}

func (d AddItemDTO) productID() uint {
	if d.ProductID != 0 {
		return d.ProductID
	}
	return d.LegacyProductID
}

type SetItemDTO struct {
	Quantity *int `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		response.ErrorJSON(w, err)
		return
	}
	view, err := h.cartService.ReadCart(r.Context(), userID)
	if err != nil {
		response.ErrorJSON(w, err)
		return
	}
	response.SuccessJSON(w, http.StatusOK, view)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		response.ErrorJSON(w, err)
		return
	}
	var dto AddItemDTO
	if err := decodeBody(w, r, &dto); err != nil {
		response.ErrorJSON(w, err)
		return
	}
	view, err := h.cartService.AddItem(r.Context(), userID, dto.productID(), dto.Quantity)
	if err != nil {
		response.ErrorJSON(w, err)
		return
	}
	response.SuccessJSON(w, http.StatusCreated, view)
}

func (h *CartHandler) SetItem(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		response.ErrorJSON(w, err)
		return
	}
	itemID, err := pathID(r, "itemId")
	if err != nil {
		response.ErrorJSON(w, err)
		return
	}
	var dto SetItemDTO
	if err := decodeBody(w, r, &dto); err != nil {
		response.ErrorJSON(w, err)
		return
	}
	if dto.Quantity == nil {
		response.ErrorJSON(w, apperr.Validation("quantity is required"))
		return
	}
	view, err := h.cartService.SetItem(r.Context(), userID, itemID, *dto.Quantity)
	if err != nil {
		response.ErrorJSON(w, err)
		return
	}
	response.SuccessJSON(w, http.StatusOK, view)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		response.ErrorJSON(w, err)
		return
	}
	itemID, err := pathID(r, "itemId")
	if err != nil {
		response.ErrorJSON(w, err)
		return
	}
	view, err := h.cartService.RemoveItem(r.Context(), userID, itemID)
	if err != nil {
		response.ErrorJSON(w, err)
		return
	}
	response.SuccessJSON(w, http.StatusOK, view)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		response.ErrorJSON(w, err)
		return
	}
	view, err := h.cartService.ClearCart(r.Context(), userID)
	if err != nil {
		response.ErrorJSON(w, err)
		return
	}
	response.SuccessJSON(w, http.StatusOK, view)
}
