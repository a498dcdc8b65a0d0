package router

import (
	"net/http"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/api"
	m "github.com/Fintoc-PepeStore2-0/Backend/internal/api/middleware"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/api/response"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type Options struct {
	Verifier        *m.TokenVerifier
	CheckoutLimiter m.Limiter
	Logger          zerolog.Logger
}

func SetupRouter(server *api.Server, opts Options) *chi.Mux {
	r := chi.NewRouter()

	// 全局中間件
	r.Use(m.RequestIdMiddleware)
	r.Use(middleware.RealIP)
	r.Use(m.LoggerMiddleware(opts.Logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.ErrorMessage(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.ErrorMessage(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.SuccessJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/products/{productId}/stock", server.ProductHandler.GetStock)

		r.Group(func(r chi.Router) {
			r.Use(m.AuthMiddleware(opts.Verifier))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", server.CartHandler.GetCart)
				r.Delete("/", server.CartHandler.ClearCart)
				r.Post("/items", server.CartHandler.AddItem)
				r.Put("/items/{itemId}", server.CartHandler.SetItem)
				r.Delete("/items/{itemId}", server.CartHandler.RemoveItem)
			})

			r.Route("/purchase", func(r chi.Router) {
				start := http.HandlerFunc(server.PurchaseHandler.StartCheckout)
				if opts.CheckoutLimiter != nil {
					r.With(m.NewRateLimitMiddleware(opts.CheckoutLimiter, "checkout", opts.Logger)).Post("/start", start)
				} else {
					r.Post("/start", start)
				}
				r.Get("/status/{sessionId}", server.PurchaseHandler.SessionStatus)
				r.Get("/orders", server.PurchaseHandler.ListOrders)
			})
		})
	})
	return r
}
