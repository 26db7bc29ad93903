package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/go_storefront/internal/domain"
)

type ProductCatalog interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
}

type ProductHandler struct {
	products ProductCatalog
	timeout  time.Duration
	errorMapper
}

func NewProductHandler(products ProductCatalog, timeout time.Duration, exposeErrors bool) *ProductHandler {
	return &ProductHandler{
		products:    products,
		timeout:     timeout,
		errorMapper: errorMapper{exposeDetail: exposeErrors},
	}
}

// GET /products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.products.ListProducts(ctx)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	dtos := make([]*ProductDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, convertProduct(p))
	}
	respondJSON(w, http.StatusOK, map[string]any{"products": dtos})
}

// GET /products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.products.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"product": convertProduct(p)})
}
