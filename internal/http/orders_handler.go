package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/go_storefront/internal/auth"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/orders/service"
)

type OrderService interface {
	CreateOrder(ctx context.Context, caller domain.Identity, in service.CreateOrderInput) (*domain.OrderView, error)
	GetUserOrders(ctx context.Context, userID string) ([]*domain.OrderView, error)
	GetOrderByID(ctx context.Context, userID, orderID string) (*domain.OrderView, error)
	GetAllOrders(ctx context.Context, caller domain.Identity) ([]*domain.OrderView, error)
	UpdateOrderStatus(ctx context.Context, caller domain.Identity, orderID string, in service.StatusUpdate) (*domain.OrderView, error)
}

type OrdersHandler struct {
	orders  OrderService
	timeout time.Duration
	errorMapper
}

func NewOrdersHandler(orders OrderService, timeout time.Duration, exposeErrors bool) *OrdersHandler {
	return &OrdersHandler{
		orders:      orders,
		timeout:     timeout,
		errorMapper: errorMapper{exposeDetail: exposeErrors},
	}
}

type orderEnvelope struct {
	Message string           `json:"message,omitempty"`
	Order   OrderResponseDTO `json:"order"`
}

type ordersEnvelope struct {
	Orders []OrderResponseDTO `json:"orders"`
}

// POST /orders
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "user not authenticated")
		return
	}

	var req CreateOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	view, err := h.orders.CreateOrder(ctx, caller, service.CreateOrderInput{
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, orderEnvelope{Message: "Order placed successfully", Order: convertOrder(view)})
}

// GET /orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "user not authenticated")
		return
	}

	views, err := h.orders.GetUserOrders(ctx, caller.UserID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, ordersEnvelope{Orders: convertOrders(views)})
}

// GET /orders/{orderId}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "user not authenticated")
		return
	}

	view, err := h.orders.GetOrderByID(ctx, caller.UserID, chi.URLParam(r, "orderId"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, orderEnvelope{Order: convertOrder(view)})
}

// GET /orders/admin/all
func (h *OrdersHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "user not authenticated")
		return
	}

	views, err := h.orders.GetAllOrders(ctx, caller)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, ordersEnvelope{Orders: convertOrders(views)})
}

// PUT /orders/{orderId}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "user not authenticated")
		return
	}

	var req UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	view, err := h.orders.UpdateOrderStatus(ctx, caller, chi.URLParam(r, "orderId"), service.StatusUpdate{
		OrderStatus:   req.OrderStatus,
		PaymentStatus: req.PaymentStatus,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, orderEnvelope{Message: "Order updated successfully", Order: convertOrder(view)})
}
