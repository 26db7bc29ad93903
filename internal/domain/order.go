package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusConfirmed OrderStatus = "Confirmed"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return st, nil
	}
	return "", ErrInvalidOrderStatus
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "Paid"
	PaymentStatusFailed  PaymentStatus = "Failed"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch st := PaymentStatus(s); st {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return st, nil
	}
	return "", ErrInvalidPaymentStatus
}

type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "COD"
	PaymentMethodUPI            PaymentMethod = "UPI"
	PaymentMethodCard           PaymentMethod = "Card"
	PaymentMethodNetBanking     PaymentMethod = "NetBanking"
)

// ParsePaymentMethod accepts the wire values plus "CashOnDelivery" as an
// alias of COD.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	if s == "CashOnDelivery" {
		return PaymentMethodCashOnDelivery, nil
	}
	switch m := PaymentMethod(s); m {
	case PaymentMethodCashOnDelivery, PaymentMethodUPI, PaymentMethodCard, PaymentMethodNetBanking:
		return m, nil
	}
	return "", ErrInvalidPaymentMethod
}

type ShippingAddress struct {
	FullName     string `json:"fullName"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
}

// Validate checks that every field except AddressLine2 is present.
func (a ShippingAddress) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"shippingAddress.fullName", a.FullName},
		{"shippingAddress.phone", a.Phone},
		{"shippingAddress.addressLine1", a.AddressLine1},
		{"shippingAddress.city", a.City},
		{"shippingAddress.state", a.State},
		{"shippingAddress.pincode", a.Pincode},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &FieldError{Field: f.name, Reason: "is required"}
		}
	}
	return nil
}

// OrderItem is a copy of the product taken at checkout. It keeps no link to
// the live product beyond its id and is never refreshed.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	Brand     string          `json:"brand"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type Order struct {
	ID              uuid.UUID
	OrderNumber     string
	UserID          string
	CustomerName    string
	CustomerEmail   string
	Items           []OrderItem
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
	ItemsTotal      decimal.Decimal
	ShippingCost    decimal.Decimal
	Tax             decimal.Decimal
	TotalAmount     decimal.Decimal
	OrderStatus     OrderStatus
	PaymentStatus   PaymentStatus
	// CheckoutKey identifies the cart revision the order was built from.
	CheckoutKey string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderView is an order with the live products behind its items, for display.
// Products that left the catalog map to nil.
type OrderView struct {
	Order    *Order
	Products map[string]*Product
}

// SnapshotItems copies product details from the resolved cart lines.
func SnapshotItems(lines []CartLine) ([]OrderItem, error) {
	items := make([]OrderItem, 0, len(lines))
	for _, line := range lines {
		if line.Product == nil {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, line.Item.ProductID)
		}
		items = append(items, OrderItem{
			ProductID: line.Item.ProductID,
			Title:     line.Product.Title,
			Brand:     line.Product.Brand,
			Image:     line.Product.Image,
			Quantity:  line.Item.Quantity,
			UnitPrice: line.Item.UnitPrice,
		})
	}
	return items, nil
}

// CheckoutKey derives the duplicate-checkout key for a cart revision.
func CheckoutKey(c *Cart) string {
	return fmt.Sprintf("%s:%d", c.ID, c.Version)
}

// NewOrderNumber returns "ORD" followed by the hex digits of a UUIDv7. The
// value is time ordered and carries 74 random bits.
func NewOrderNumber() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate order number: %w", err)
	}
	return "ORD" + strings.ToUpper(hex.EncodeToString(id[:])), nil
}
