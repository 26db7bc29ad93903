package domain

import "time"

const EventTypeOrderPlaced = "order.placed"

// OrderedLine is the part of a cart line that went into an order.
type OrderedLine struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// OrderPlacedEvent is written to the outbox in the same transaction as the
// order and later published to the order topic.
type OrderPlacedEvent struct {
	OrderID     string        `json:"order_id"`
	OrderNumber string        `json:"order_number"`
	UserID      string        `json:"user_id"`
	CartID      string        `json:"cart_id"`
	Lines       []OrderedLine `json:"lines"`
	TotalAmount string        `json:"total_amount"`
	PlacedAt    time.Time     `json:"placed_at"`
}
