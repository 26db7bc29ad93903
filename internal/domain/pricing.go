package domain

import "github.com/shopspring/decimal"

// Pricing holds the checkout charges policy.
type Pricing struct {
	// Shipping is waived when the items total is strictly above this.
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	TaxRate               decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{
		FreeShippingThreshold: decimal.NewFromInt(1000),
		FlatShippingFee:       decimal.NewFromInt(50),
		TaxRate:               decimal.RequireFromString("0.18"),
	}
}

type Totals struct {
	ItemsTotal   decimal.Decimal
	ShippingCost decimal.Decimal
	Tax          decimal.Decimal
	TotalAmount  decimal.Decimal
}

// Quote computes shipping, tax and grand total. Every amount is rounded to
// two decimal places and TotalAmount is the sum of the rounded parts.
func (p Pricing) Quote(itemsTotal decimal.Decimal) Totals {
	itemsTotal = itemsTotal.Round(2)

	shipping := p.FlatShippingFee.Round(2)
	if itemsTotal.GreaterThan(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := itemsTotal.Mul(p.TaxRate).Round(2)

	return Totals{
		ItemsTotal:   itemsTotal,
		ShippingCost: shipping,
		Tax:          tax,
		TotalAmount:  itemsTotal.Add(shipping).Add(tax),
	}
}
