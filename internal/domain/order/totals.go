package order

import "errors"

var ErrNegativeAmount = errors.New("amounts must not be negative")

type Totals struct {
	Subtotal     int64
	Discount     int64
	ShippingCost int64
	GrandTotal   int64
}

// Discounter reports the discount owed on a subtotal.
type Discounter interface {
	DiscountFor(subtotal int64) int64
}

// Calculate derives totals from frozen line items and the shipping cost. A nil
// discounter means no voucher was applied.
func Calculate(items []LineItem, shippingCost int64, d Discounter) (Totals, error) {
	if shippingCost < 0 {
		return Totals{}, ErrNegativeAmount
	}

	var subtotal int64
	for _, it := range items {
		if it.PurchasePrice < 0 || it.Quantity < 0 {
			return Totals{}, ErrNegativeAmount
		}
		subtotal += it.Total()
	}

	var discount int64
	if d != nil {
		discount = d.DiscountFor(subtotal)
	}
	discount = min(max(discount, 0), subtotal)

	return Totals{
		Subtotal:     subtotal,
		Discount:     discount,
		ShippingCost: shippingCost,
		GrandTotal:   subtotal - discount + shippingCost,
	}, nil
}

func (t Totals) Consistent() bool {
	return t.Discount >= 0 && t.GrandTotal >= 0 && t.GrandTotal == t.Subtotal-t.Discount+t.ShippingCost
}
