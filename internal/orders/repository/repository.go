package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fjod/go_storefront/internal/domain"
)

var (
	// ErrDuplicateCheckout means an order already exists for the cart revision.
	ErrDuplicateCheckout    = errors.New("order for this checkout already exists")
	ErrDuplicateOrderNumber = errors.New("order number already taken")
)

type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type OrderRepository interface {
	// CreateOrder stores the order and its outbox event atomically.
	CreateOrder(ctx context.Context, order *domain.Order, event domain.OrderPlacedEvent) error
	GetOrderByCheckoutKey(ctx context.Context, key string) (*domain.Order, error)
	// GetOrderForUser finds an order only if userID owns it.
	GetOrderForUser(ctx context.Context, id uuid.UUID, userID string) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	ListAllOrders(ctx context.Context) ([]*domain.Order, error)
	// UpdateOrder locks the row, applies fn and writes the result back.
	UpdateOrder(ctx context.Context, id uuid.UUID, fn func(*domain.Order) error) (*domain.Order, error)
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}
