package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fjod/go_storefront/internal/domain"
)

type AddItemRequestDTO struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

type CreateOrderRequestDTO struct {
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
}

type UpdateStatusRequestDTO struct {
	OrderStatus   *string `json:"orderStatus,omitempty"`
	PaymentStatus *string `json:"paymentStatus,omitempty"`
}

type ProductDTO struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Brand     string    `json:"brand"`
	Image     string    `json:"image"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
}

type CartItemDTO struct {
	ID        string      `json:"id"`
	ProductID string      `json:"productId"`
	Product   *ProductDTO `json:"product"`
	Quantity  int         `json:"quantity"`
	Price     float64     `json:"price"`
	AddedAt   time.Time   `json:"addedAt"`
}

type CartDTO struct {
	ID         string        `json:"id"`
	UserID     string        `json:"userId"`
	Items      []CartItemDTO `json:"items"`
	TotalPrice float64       `json:"totalPrice"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

type CustomerDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type OrderItemDTO struct {
	ProductID string      `json:"productId"`
	Product   *ProductDTO `json:"product"`
	Title     string      `json:"title"`
	Brand     string      `json:"brand"`
	Image     string      `json:"image"`
	Quantity  int         `json:"quantity"`
	Price     float64     `json:"price"`
}

type OrderResponseDTO struct {
	ID              string                 `json:"id"`
	OrderNumber     string                 `json:"orderNumber"`
	User            CustomerDTO            `json:"user"`
	Items           []OrderItemDTO         `json:"items"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	ItemsTotal      float64                `json:"itemsTotal"`
	ShippingCost    float64                `json:"shippingCost"`
	Tax             float64                `json:"tax"`
	TotalAmount     float64                `json:"totalAmount"`
	OrderStatus     string                 `json:"orderStatus"`
	PaymentStatus   string                 `json:"paymentStatus"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func convertProduct(p *domain.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	return &ProductDTO{
		ID:        p.ID,
		Title:     p.Title,
		Brand:     p.Brand,
		Image:     p.Image,
		Price:     money(p.Price),
		CreatedAt: p.CreatedAt,
	}
}

func convertCart(v *domain.CartView) CartDTO {
	items := make([]CartItemDTO, 0, len(v.Lines))
	for _, line := range v.Lines {
		items = append(items, CartItemDTO{
			ID:        line.Item.ID,
			ProductID: line.Item.ProductID,
			Product:   convertProduct(line.Product),
			Quantity:  line.Item.Quantity,
			Price:     money(line.Item.UnitPrice),
			AddedAt:   line.Item.AddedAt,
		})
	}
	return CartDTO{
		ID:         v.Cart.ID,
		UserID:     v.Cart.UserID,
		Items:      items,
		TotalPrice: money(v.Cart.TotalPrice),
		CreatedAt:  v.Cart.CreatedAt,
		UpdatedAt:  v.Cart.UpdatedAt,
	}
}

func convertOrder(v *domain.OrderView) OrderResponseDTO {
	o := v.Order
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID: item.ProductID,
			Product:   convertProduct(v.Products[item.ProductID]),
			Title:     item.Title,
			Brand:     item.Brand,
			Image:     item.Image,
			Quantity:  item.Quantity,
			Price:     money(item.UnitPrice),
		})
	}
	return OrderResponseDTO{
		ID:          o.ID.String(),
		OrderNumber: o.OrderNumber,
		User: CustomerDTO{
			ID:    o.UserID,
			Name:  o.CustomerName,
			Email: o.CustomerEmail,
		},
		Items:           items,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   string(o.PaymentMethod),
		ItemsTotal:      money(o.ItemsTotal),
		ShippingCost:    money(o.ShippingCost),
		Tax:             money(o.Tax),
		TotalAmount:     money(o.TotalAmount),
		OrderStatus:     string(o.OrderStatus),
		PaymentStatus:   string(o.PaymentStatus),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func convertOrders(views []*domain.OrderView) []OrderResponseDTO {
	dtos := make([]OrderResponseDTO, 0, len(views))
	for _, v := range views {
		dtos = append(dtos, convertOrder(v))
	}
	return dtos
}
