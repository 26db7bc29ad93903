package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxLineQuantity caps the quantity a single cart line may hold.
const MaxLineQuantity = 9999

// settledOrdersKept bounds Cart.SettledOrders.
const settledOrdersKept = 20

// Cart is the per-user shopping cart. There is at most one cart per user and
// it is never deleted, only emptied.
type Cart struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Items         []CartItem      `json:"items"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	// Version is bumped on every persisted change and used for compare-and-swap.
	Version       int64           `json:"version"`
	// SettledOrders lists the most recent orders already taken off the cart.
	SettledOrders []string        `json:"settled_orders,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CartItem holds the unit price captured when the product entered the cart.
// It is not re-synced with the catalog afterwards.
type CartItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	AddedAt   time.Time       `json:"added_at"`
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func NewCart(userID string, now time.Time) *Cart {
	return &Cart{
		ID:         uuid.NewString(),
		UserID:     userID,
		Items:      []CartItem{},
		TotalPrice: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// EnsureCart returns existing when present, otherwise a fresh empty cart for
// userID. Calling it repeatedly with the same input yields the same cart.
func EnsureCart(existing *Cart, userID string, now time.Time) *Cart {
	if existing != nil {
		return existing
	}
	return NewCart(userID, now)
}

// AddItem merges quantity into the line holding productID, or appends a new
// line priced at unitPrice. An existing line keeps its original price.
func (c *Cart) AddItem(productID string, quantity int, unitPrice decimal.Decimal, now time.Time) (CartItem, error) {
	if quantity < 1 {
		return CartItem{}, ErrInvalidQuantity
	}
	if quantity > MaxLineQuantity {
		return CartItem{}, ErrQuantityTooLarge
	}

	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			if c.Items[i].Quantity > MaxLineQuantity-quantity {
				return CartItem{}, ErrQuantityTooLarge
			}
			c.Items[i].Quantity += quantity
			c.touch(now)
			return c.Items[i], nil
		}
	}

	item := CartItem{
		ID:        uuid.NewString(),
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		AddedAt:   now,
	}
	c.Items = append(c.Items, item)
	c.touch(now)
	return item, nil
}

// SetQuantity sets the absolute quantity of a line.
func (c *Cart) SetQuantity(itemID string, quantity int, now time.Time) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if quantity > MaxLineQuantity {
		return ErrQuantityTooLarge
	}
	item := c.FindItem(itemID)
	if item == nil {
		return ErrItemNotFound
	}
	item.Quantity = quantity
	c.touch(now)
	return nil
}

// RemoveItem drops the line with itemID. It reports whether anything changed;
// removing an unknown line is not an error.
func (c *Cart) RemoveItem(itemID string, now time.Time) bool {
	return c.RemoveItems([]string{itemID}, now) > 0
}

// RemoveItems drops every line whose id is listed and returns how many went.
func (c *Cart) RemoveItems(itemIDs []string, now time.Time) int {
	drop := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		drop[id] = struct{}{}
	}

	kept := make([]CartItem, 0, len(c.Items))
	for _, item := range c.Items {
		if _, ok := drop[item.ID]; ok {
			continue
		}
		kept = append(kept, item)
	}
	removed := len(c.Items) - len(kept)
	c.Items = kept
	if removed > 0 {
		c.touch(now)
	}
	return removed
}

func (c *Cart) Clear(now time.Time) {
	c.Items = []CartItem{}
	c.touch(now)
}

func (c *Cart) FindItem(itemID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// OrderedLines snapshots every line as it goes into an order.
func (c *Cart) OrderedLines() []OrderedLine {
	lines := make([]OrderedLine, len(c.Items))
	for i, item := range c.Items {
		lines[i] = OrderedLine{ItemID: item.ID, Quantity: item.Quantity}
	}
	return lines
}

// SettleOrder takes the ordered quantities off their lines, dropping lines
// that run out. Quantity added to a line after checkout stays in the cart. A
// line listed without a positive quantity is dropped whole. Each order number
// is settled at most once. It reports whether the cart changed.
func (c *Cart) SettleOrder(orderNumber string, lines []OrderedLine, now time.Time) bool {
	if orderNumber != "" && slices.Contains(c.SettledOrders, orderNumber) {
		return false
	}

	ordered := make(map[string]int, len(lines))
	for _, l := range lines {
		ordered[l.ItemID] += l.Quantity
	}

	kept := make([]CartItem, 0, len(c.Items))
	changed := false
	for _, item := range c.Items {
		q, ok := ordered[item.ID]
		if !ok {
			kept = append(kept, item)
			continue
		}
		changed = true
		if q > 0 && item.Quantity > q {
			item.Quantity -= q
			kept = append(kept, item)
		}
	}
	if !changed {
		return false
	}

	c.Items = kept
	if orderNumber != "" {
		c.SettledOrders = append(c.SettledOrders, orderNumber)
		if n := len(c.SettledOrders); n > settledOrdersKept {
			c.SettledOrders = slices.Clone(c.SettledOrders[n-settledOrdersKept:])
		}
	}
	c.touch(now)
	return true
}

// Recalculate derives TotalPrice from the lines.
func (c *Cart) Recalculate() {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	c.TotalPrice = total
}

func (c *Cart) touch(now time.Time) {
	c.Recalculate()
	c.UpdatedAt = now
}

// CartLine pairs a cart item with the live product it references, resolved
// for display. Product is nil when the product left the catalog.
type CartLine struct {
	Item    CartItem
	Product *Product
}

type CartView struct {
	Cart  *Cart
	Lines []CartLine
}
