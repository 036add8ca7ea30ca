package cart

import "errors"

// MaxQuantity bounds a single line and the merged total of one variant.
const MaxQuantity = 10000

var (
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrQuantityTooLarge = errors.New("quantity exceeds the per-variant limit")
	ErrInvalidVariant   = errors.New("variant id must be positive")
)

// Line is one raw cart row as submitted by the customer.
type Line struct {
	VariantID int64
	Quantity  int
	Note      string
}

func (l Line) Validate() error {
	if l.VariantID <= 0 {
		return ErrInvalidVariant
	}
	if l.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if l.Quantity > MaxQuantity {
		return ErrQuantityTooLarge
	}
	return nil
}

// ValidateLines checks every line and the merged total of each variant.
func ValidateLines(lines []Line) error {
	totals := make(map[int64]int, len(lines))
	for _, l := range lines {
		if err := l.Validate(); err != nil {
			return err
		}
		totals[l.VariantID] += l.Quantity
		if totals[l.VariantID] > MaxQuantity {
			return ErrQuantityTooLarge
		}
	}
	return nil
}

// VariantSnapshot is the catalog state of a variant at read time.
type VariantSnapshot struct {
	VariantID          int64
	ProductID          int64
	ProductName        string
	ProductImage       string
	SKU                string
	VariantDescription string
	Price              int64
	DiscountPrice      int64
	Stock              int
	WeightGrams        int
}

// PurchasePrice is the price actually charged: the discount price when it undercuts the list price.
func (v VariantSnapshot) PurchasePrice() int64 {
	if v.DiscountPrice > 0 && v.DiscountPrice < v.Price {
		return v.DiscountPrice
	}
	return v.Price
}

type Item struct {
	VariantID          int64
	ProductID          int64
	ProductName        string
	ProductImage       string
	SKU                string
	VariantDescription string
	UnitPrice          int64
	DiscountPrice      int64
	PurchasePrice      int64
	Quantity           int
	Available          int
	WeightGrams        int
	Note               string
}

func (i Item) LineTotal() int64 {
	return i.PurchasePrice * int64(i.Quantity)
}

func (i Item) LineWeight() int {
	return i.WeightGrams * i.Quantity
}

type CheckResult struct {
	Items       []Item
	OutOfStock  []Item
	TotalWeight int
}

// Ready reports whether an order may proceed from this result.
func (r *CheckResult) Ready() bool {
	return r != nil && len(r.OutOfStock) == 0 && len(r.Items) > 0
}

func (r *CheckResult) IsEmpty() bool {
	return r == nil || (len(r.Items) == 0 && len(r.OutOfStock) == 0)
}

func (r *CheckResult) Subtotal() int64 {
	var total int64
	for _, it := range r.Items {
		total += it.LineTotal()
	}
	return total
}

// Quantities maps variant id to aggregated quantity over every item in the result.
func (r *CheckResult) Quantities() map[int64]int {
	out := make(map[int64]int, len(r.Items)+len(r.OutOfStock))
	for _, it := range r.Items {
		out[it.VariantID] = it.Quantity
	}
	for _, it := range r.OutOfStock {
		out[it.VariantID] = it.Quantity
	}
	return out
}
