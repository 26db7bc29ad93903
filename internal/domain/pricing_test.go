package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		name     string
		items    string
		shipping string
		tax      string
		total    string
	}{
		{"above threshold ships free", "1500", "0", "270", "1770"},
		{"below threshold pays flat fee", "400", "50", "72", "522"},
		{"exactly threshold pays flat fee", "1000", "50", "180", "1230"},
		{"just above threshold", "1000.01", "0", "180", "1180.01"},
		{"tax rounds to cents", "99.99", "50", "18", "167.99"},
	}

	p := DefaultPricing()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := p.Quote(price(tt.items))
			assert.True(t, q.ItemsTotal.Equal(price(tt.items)), "items %s", q.ItemsTotal)
			assert.True(t, q.ShippingCost.Equal(price(tt.shipping)), "shipping %s", q.ShippingCost)
			assert.True(t, q.Tax.Equal(price(tt.tax)), "tax %s", q.Tax)
			assert.True(t, q.TotalAmount.Equal(price(tt.total)), "total %s", q.TotalAmount)
			assert.True(t, q.TotalAmount.Equal(q.ItemsTotal.Add(q.ShippingCost).Add(q.Tax)))
		})
	}
}
