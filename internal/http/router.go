package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/go_storefront/internal/auth"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	// ExposeErrors adds diagnostic detail to internal error responses.
	ExposeErrors bool
}

type Services struct {
	Carts    CartService
	Orders   OrderService
	Products ProductCatalog
}

// NewRouter serves every route both at the root and under /api.
// authenticate resolves the caller for cart and order routes.
func NewRouter(svc Services, authenticate func(http.Handler) http.Handler, cfg RouterConfig) http.Handler {
	cartHandler := NewCartHandler(svc.Carts, cfg.RequestTimeout, cfg.ExposeErrors)
	ordersHandler := NewOrdersHandler(svc.Orders, cfg.RequestTimeout, cfg.ExposeErrors)
	productHandler := NewProductHandler(svc.Products, cfg.RequestTimeout, cfg.ExposeErrors)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(LimitBody(cfg.MaxRequestBodySize))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	routes := func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Get("/{id}", productHandler.GetProduct)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Post("/add", cartHandler.AddItem)
				r.Delete("/clear", cartHandler.ClearCart)
				r.Put("/{itemId}", cartHandler.UpdateQuantity)
				r.Delete("/{itemId}", cartHandler.RemoveItem)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", ordersHandler.CreateOrder)
				r.Get("/", ordersHandler.ListOrders)
				r.With(auth.RequireAdmin).Get("/admin/all", ordersHandler.ListAllOrders)
				r.Get("/{orderId}", ordersHandler.GetOrder)
				r.With(auth.RequireAdmin).Put("/{orderId}/status", ordersHandler.UpdateStatus)
			})
		})
	}

	r.Group(routes)
	r.Route("/api", routes)

	return otelhttp.NewHandler(r, "storefront")
}
