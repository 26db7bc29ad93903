package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/orders/repository"
	"github.com/fjod/go_storefront/internal/product"
)

const (
	orderNumberAttempts = 3
	clearCartAttempts   = 3
	clearCartTimeout    = 5 * time.Second
)

var tracer = otel.Tracer("github.com/fjod/go_storefront/internal/orders/service")

// Carts is the part of the cart engine checkout depends on.
type Carts interface {
	LoadForCheckout(ctx context.Context, userID string) (*domain.CartView, error)
	ClearCart(ctx context.Context, userID string) (*domain.CartView, error)
}

type OrderService struct {
	repo         repository.OrderRepository
	carts        Carts
	products     product.Getter
	pricing      domain.Pricing
	clearBackoff time.Duration
}

func NewOrderService(repo repository.OrderRepository, carts Carts, products product.Getter, pricing domain.Pricing) *OrderService {
	return &OrderService{
		repo:         repo,
		carts:        carts,
		products:     products,
		pricing:      pricing,
		clearBackoff: 200 * time.Millisecond,
	}
}

type CreateOrderInput struct {
	ShippingAddress domain.ShippingAddress
	PaymentMethod   string
}

// CreateOrder converts the caller's cart into an order and empties the cart.
// Replaying a checkout for a cart revision that already produced an order
// returns that order.
func (s *OrderService) CreateOrder(ctx context.Context, caller domain.Identity, in CreateOrderInput) (*domain.OrderView, error) {
	ctx, span := tracer.Start(ctx, "OrderService.CreateOrder", trace.WithAttributes(attribute.String("user.id", caller.UserID)))
	defer span.End()

	if err := in.ShippingAddress.Validate(); err != nil {
		return nil, err
	}
	method, err := domain.ParsePaymentMethod(in.PaymentMethod)
	if err != nil {
		return nil, err
	}

	view, err := s.carts.LoadForCheckout(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	cart := view.Cart
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}

	key := domain.CheckoutKey(cart)
	if existing, err := s.repo.GetOrderByCheckoutKey(ctx, key); err == nil {
		return s.replayed(ctx, caller.UserID, existing)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	items, err := domain.SnapshotItems(view.Lines)
	if err != nil {
		return nil, err
	}
	totals := s.pricing.Quote(cart.TotalPrice)

	order := &domain.Order{
		ID:              uuid.New(),
		UserID:          caller.UserID,
		CustomerName:    caller.Name,
		CustomerEmail:   caller.Email,
		Items:           items,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   method,
		ItemsTotal:      totals.ItemsTotal,
		ShippingCost:    totals.ShippingCost,
		Tax:             totals.Tax,
		TotalAmount:     totals.TotalAmount,
		OrderStatus:     domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		CheckoutKey:     key,
	}
	event := domain.OrderPlacedEvent{
		UserID:      caller.UserID,
		CartID:      cart.ID,
		Lines:       cart.OrderedLines(),
		TotalAmount: totals.TotalAmount.StringFixed(2),
	}

	err = s.persist(ctx, order, &event)
	if errors.Is(err, repository.ErrDuplicateCheckout) {
		existing, getErr := s.repo.GetOrderByCheckoutKey(ctx, key)
		if getErr != nil {
			return nil, fmt.Errorf("load duplicate checkout: %w", getErr)
		}
		return s.replayed(ctx, caller.UserID, existing)
	}
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "order placed",
		"order_number", order.OrderNumber, "user_id", order.UserID,
		"items", len(order.Items), "total_amount", order.TotalAmount.StringFixed(2))

	s.clearCart(ctx, caller.UserID)

	products := make(map[string]*domain.Product, len(view.Lines))
	for _, line := range view.Lines {
		products[line.Item.ProductID] = line.Product
	}
	return &domain.OrderView{Order: order, Products: products}, nil
}

// persist stores the order, drawing a new order number on collision.
func (s *OrderService) persist(ctx context.Context, order *domain.Order, event *domain.OrderPlacedEvent) error {
	for attempt := 1; ; attempt++ {
		number, err := domain.NewOrderNumber()
		if err != nil {
			return err
		}
		order.OrderNumber = number
		event.OrderNumber = number

		err = s.repo.CreateOrder(ctx, order, *event)
		if errors.Is(err, repository.ErrDuplicateOrderNumber) && attempt < orderNumberAttempts {
			slog.WarnContext(ctx, "order number collision, regenerating", "order_number", number)
			continue
		}
		return err
	}
}

func (s *OrderService) replayed(ctx context.Context, userID string, existing *domain.Order) (*domain.OrderView, error) {
	slog.InfoContext(ctx, "checkout replayed for existing order",
		"order_number", existing.OrderNumber, "user_id", userID)
	s.clearCart(ctx, userID)
	return s.view(ctx, existing)
}

// clearCart empties the cart after checkout. Failures are logged only; the
// order stands and the order event reconciles the cart later.
func (s *OrderService) clearCart(ctx context.Context, userID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), clearCartTimeout)
	defer cancel()

	var err error
retry:
	for attempt := 1; attempt <= clearCartAttempts; attempt++ {
		if _, err = s.carts.ClearCart(ctx, userID); err == nil {
			return
		}
		if attempt == clearCartAttempts {
			break
		}
		select {
		case <-ctx.Done():
			break retry
		case <-time.After(s.clearBackoff * time.Duration(attempt)):
		}
	}
	slog.ErrorContext(ctx, "failed to clear cart after checkout", "user_id", userID, "error", err)
}

// GetUserOrders lists the caller's orders, newest first.
func (s *OrderService) GetUserOrders(ctx context.Context, userID string) ([]*domain.OrderView, error) {
	orders, err := s.repo.ListOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, orders)
}

// GetOrderByID returns the order only when the caller owns it. Unknown,
// foreign and malformed ids all read as not found.
func (s *OrderService) GetOrderByID(ctx context.Context, userID, orderID string) (*domain.OrderView, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, domain.ErrOrderNotFound
	}
	order, err := s.repo.GetOrderForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, order)
}

// GetAllOrders is the admin listing across users, newest first.
func (s *OrderService) GetAllOrders(ctx context.Context, caller domain.Identity) ([]*domain.OrderView, error) {
	if !caller.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	orders, err := s.repo.ListAllOrders(ctx)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, orders)
}

type StatusUpdate struct {
	OrderStatus   *string
	PaymentStatus *string
}

// UpdateOrderStatus changes either or both statuses of an order. Admin only.
// Absent or empty fields leave the status unchanged.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, caller domain.Identity, orderID string, in StatusUpdate) (*domain.OrderView, error) {
	if !caller.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, domain.ErrOrderNotFound
	}

	// the order is locked and loaded before fn runs, so a missing order wins
	// over a malformed body
	order, err := s.repo.UpdateOrder(ctx, id, func(o *domain.Order) error {
		var (
			orderStatus   *domain.OrderStatus
			paymentStatus *domain.PaymentStatus
		)
		if in.OrderStatus != nil && *in.OrderStatus != "" {
			st, err := domain.ParseOrderStatus(*in.OrderStatus)
			if err != nil {
				return err
			}
			orderStatus = &st
		}
		if in.PaymentStatus != nil && *in.PaymentStatus != "" {
			st, err := domain.ParsePaymentStatus(*in.PaymentStatus)
			if err != nil {
				return err
			}
			paymentStatus = &st
		}
		return o.ApplyStatusUpdate(orderStatus, paymentStatus)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "order status updated",
		"order_number", order.OrderNumber, "order_status", order.OrderStatus,
		"payment_status", order.PaymentStatus, "by", caller.UserID)
	return s.view(ctx, order)
}

func (s *OrderService) view(ctx context.Context, order *domain.Order) (*domain.OrderView, error) {
	views, err := s.views(ctx, []*domain.Order{order})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// views attaches the live products behind every item. Snapshots are never
// modified.
func (s *OrderService) views(ctx context.Context, orders []*domain.Order) ([]*domain.OrderView, error) {
	ids := make(map[string]struct{})
	for _, o := range orders {
		for _, item := range o.Items {
			ids[item.ProductID] = struct{}{}
		}
	}

	products, err := product.ResolveAll(ctx, s.products, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.OrderView, 0, len(orders))
	for _, o := range orders {
		own := make(map[string]*domain.Product, len(o.Items))
		for _, item := range o.Items {
			own[item.ProductID] = products[item.ProductID]
		}
		out = append(out, &domain.OrderView{Order: o, Products: own})
	}
	return out, nil
}
