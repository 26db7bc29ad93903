package domain

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderNumber_UniqueUnderConcurrency(t *testing.T) {
	const workers, perWorker = 16, 500

	var mu sync.Mutex
	seen := make(map[string]struct{}, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				n, err := NewOrderNumber()
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				seen[n] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestNewOrderNumber_Format(t *testing.T) {
	n, err := NewOrderNumber()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(n, "ORD"))
	assert.Len(t, n, 3+32)
	assert.Equal(t, strings.ToUpper(n), n)
}

func TestSnapshotItems_CopiesProductDetails(t *testing.T) {
	c := NewCart("user-1", time.Now())
	item, _ := c.AddItem("P1", 2, price("200"), time.Now())
	product := &Product{ID: "P1", Title: "Runner", Brand: "Acme", Image: "runner.png", Price: price("250")}

	items, err := SnapshotItems([]CartLine{{Item: item, Product: product}})
	require.NoError(t, err)
	require.Len(t, items, 1)

	// later catalog edits must not leak into the snapshot
	product.Title = "Renamed"
	assert.Equal(t, "Runner", items[0].Title)
	assert.Equal(t, "Acme", items[0].Brand)
	assert.True(t, items[0].UnitPrice.Equal(price("200")))
	assert.Equal(t, 2, items[0].Quantity)
}

func TestSnapshotItems_MissingProduct(t *testing.T) {
	_, err := SnapshotItems([]CartLine{{Item: CartItem{ProductID: "gone", Quantity: 1}}})
	assert.ErrorIs(t, err, ErrProductUnavailable)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestShippingAddressValidate(t *testing.T) {
	valid := ShippingAddress{
		FullName: "A B", Phone: "99999", AddressLine1: "1 Road", City: "Pune", State: "MH", Pincode: "411001",
	}
	assert.NoError(t, valid.Validate())

	missing := valid
	missing.City = "  "
	err := missing.Validate()
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "city")
}

func TestParsePaymentMethod(t *testing.T) {
	m, err := ParsePaymentMethod("CashOnDelivery")
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodCashOnDelivery, m)

	_, err = ParsePaymentMethod("Bitcoin")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestApplyStatusUpdate_Partial(t *testing.T) {
	o := &Order{OrderStatus: OrderStatusPending, PaymentStatus: PaymentStatusPending}

	shipped := OrderStatusShipped
	require.NoError(t, o.ApplyStatusUpdate(&shipped, nil))
	assert.Equal(t, OrderStatusShipped, o.OrderStatus)
	assert.Equal(t, PaymentStatusPending, o.PaymentStatus)

	paid := PaymentStatusPaid
	require.NoError(t, o.ApplyStatusUpdate(nil, &paid))
	assert.Equal(t, OrderStatusShipped, o.OrderStatus)
	assert.Equal(t, PaymentStatusPaid, o.PaymentStatus)

	require.NoError(t, o.ApplyStatusUpdate(nil, nil))
	assert.Equal(t, OrderStatusShipped, o.OrderStatus)
	assert.Equal(t, PaymentStatusPaid, o.PaymentStatus)
}

func TestApplyStatusUpdate_AnyTransitionAllowed(t *testing.T) {
	statuses := []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled}
	for _, from := range statuses {
		for _, to := range statuses {
			o := &Order{OrderStatus: from, PaymentStatus: PaymentStatusPending}
			target := to
			require.NoError(t, o.ApplyStatusUpdate(&target, nil), "%s -> %s", from, to)
			assert.Equal(t, to, o.OrderStatus)
		}
	}
}
