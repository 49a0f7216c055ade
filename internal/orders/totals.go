package orders

import "github.com/shopspring/decimal"

type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Shipping int64 `json:"shipping"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`
}

// ComputeTotals prices items in minor units. Tax is applied to the subtotal
// and rounded half away from zero to a whole minor unit.
func ComputeTotals(items []OrderItem, shippingCents int64, taxRate decimal.Decimal) Totals {
	var subtotal int64
	for _, it := range items {
		subtotal += it.UnitPrice * int64(it.Quantity)
	}
	if subtotal == 0 {
		shippingCents = 0
	}
	tax := decimal.NewFromInt(subtotal).Mul(taxRate).Round(0).IntPart()
	return Totals{
		Subtotal: subtotal,
		Shipping: shippingCents,
		Tax:      tax,
		Total:    subtotal + shippingCents + tax,
	}
}
