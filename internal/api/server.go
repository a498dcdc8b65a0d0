package api

import "github.com/Fintoc-PepeStore2-0/Backend/internal/api/handler"

type Server struct {
	CartHandler     *handler.CartHandler
	ProductHandler  *handler.ProductHandler
	PurchaseHandler *handler.PurchaseHandler
}

func NewServer(
	cartHandler *handler.CartHandler,
	productHandler *handler.ProductHandler,
	purchaseHandler *handler.PurchaseHandler,
) *Server {
	return &Server{
		CartHandler:     cartHandler,
		ProductHandler:  productHandler,
		PurchaseHandler: purchaseHandler,
	}
}
