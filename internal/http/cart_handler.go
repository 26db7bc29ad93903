package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/go_storefront/internal/auth"
	"github.com/fjod/go_storefront/internal/domain"
)

type CartService interface {
	GetCart(ctx context.Context, userID string) (*domain.CartView, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.CartView, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.CartView, error)
	RemoveItem(ctx context.Context, userID, itemID string) (*domain.CartView, error)
	ClearCart(ctx context.Context, userID string) (*domain.CartView, error)
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
	errorMapper
}

func NewCartHandler(carts CartService, timeout time.Duration, exposeErrors bool) *CartHandler {
	return &CartHandler{
		carts:       carts,
		timeout:     timeout,
		errorMapper: errorMapper{exposeDetail: exposeErrors},
	}
}

type cartEnvelope struct {
	Message string  `json:"message,omitempty"`
	Cart    CartDTO `json:"cart"`
}

// POST /cart/add
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "user not authenticated")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", "productId is required")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	view, err := h.carts.AddItem(ctx, caller.UserID, req.ProductID, quantity)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cartEnvelope{Message: "Product added to cart successfully", Cart: convertCart(view)})
}

// GET /cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "user not authenticated")
		return
	}

	view, err := h.carts.GetCart(ctx, caller.UserID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cartEnvelope{Cart: convertCart(view)})
}

// PUT /cart/{itemId}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "user not authenticated")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_argument", "quantity is required")
		return
	}

	view, err := h.carts.UpdateItemQuantity(ctx, caller.UserID, chi.URLParam(r, "itemId"), *req.Quantity)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cartEnvelope{Message: "Cart updated successfully", Cart: convertCart(view)})
}

// DELETE /cart/{itemId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "user not authenticated")
		return
	}

	view, err := h.carts.RemoveItem(ctx, caller.UserID, chi.URLParam(r, "itemId"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cartEnvelope{Message: "Item removed from cart", Cart: convertCart(view)})
}

// DELETE /cart/clear
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "user not authenticated")
		return
	}

	view, err := h.carts.ClearCart(ctx, caller.UserID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cartEnvelope{Message: "Cart cleared successfully", Cart: convertCart(view)})
}
