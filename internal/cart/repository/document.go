package repository

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fjod/go_storefront/internal/domain"
)

type cartDocument struct {
	ID            string               `bson:"_id"`
	UserID        string               `bson:"user_id"`
	Items         []itemDocument       `bson:"items"`
	TotalPrice    primitive.Decimal128 `bson:"total_price"`
	Version       int64                `bson:"version"`
	SettledOrders []string             `bson:"settled_orders,omitempty"`
	CreatedAt     time.Time            `bson:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at"`
}

type itemDocument struct {
	ID        string               `bson:"id"`
	ProductID string               `bson:"product_id"`
	Quantity  int                  `bson:"quantity"`
	UnitPrice primitive.Decimal128 `bson:"unit_price"`
	AddedAt   time.Time            `bson:"added_at"`
}

func toDocument(c *domain.Cart) (cartDocument, error) {
	items, err := toItemDocuments(c.Items)
	if err != nil {
		return cartDocument{}, err
	}
	total, err := toDecimal128(c.TotalPrice)
	if err != nil {
		return cartDocument{}, err
	}
	return cartDocument{
		ID:            c.ID,
		UserID:        c.UserID,
		Items:         items,
		TotalPrice:    total,
		Version:       c.Version,
		SettledOrders: c.SettledOrders,
		CreatedAt:     c.CreatedAt.UTC(),
		UpdatedAt:     c.UpdatedAt.UTC(),
	}, nil
}

func toItemDocuments(items []domain.CartItem) ([]itemDocument, error) {
	docs := make([]itemDocument, 0, len(items))
	for _, item := range items {
		price, err := toDecimal128(item.UnitPrice)
		if err != nil {
			return nil, err
		}
		docs = append(docs, itemDocument{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: price,
			AddedAt:   item.AddedAt.UTC(),
		})
	}
	return docs, nil
}

func (d cartDocument) toDomain() (*domain.Cart, error) {
	cart := &domain.Cart{
		ID:            d.ID,
		UserID:        d.UserID,
		Items:         make([]domain.CartItem, 0, len(d.Items)),
		Version:       d.Version,
		SettledOrders: d.SettledOrders,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	for _, item := range d.Items {
		price, err := fromDecimal128(item.UnitPrice)
		if err != nil {
			return nil, err
		}
		cart.Items = append(cart.Items, domain.CartItem{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: price,
			AddedAt:   item.AddedAt,
		})
	}
	// total_price is stored for querying; the lines are authoritative.
	cart.Recalculate()
	return cart, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("convert %s to decimal128: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("convert decimal128 %s: %w", v, err)
	}
	return d, nil
}
