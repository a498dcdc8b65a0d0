package handler

import (
	"net/http"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/api/response"
)

type ProductHandler struct {
	stockService IStockService
}

func NewProductHandler(stockService IStockService) *ProductHandler {
	if stockService == nil {
		panic("stockService cannot be nil")
	}
	return &ProductHandler{stockService: stockService}
}

// GetStock reports total, reserved and available units of a product.
func (h *ProductHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productId")
	if err != nil {
		response.ErrorJSON(w, err)
		return
	}
	report, err := h.stockService.StockReport(r.Context(), productID)
	if err != nil {
		response.ErrorJSON(w, err)
		return
	}
	response.SuccessJSON(w, http.StatusOK, report)
}
