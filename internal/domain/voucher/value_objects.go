package voucher

import (
	"errors"
	"strings"
)

var (
	ErrInvalidCode            = errors.New("voucher code must not be empty")
	ErrInvalidDiscountAmount  = errors.New("discount amount cannot be negative")
	ErrInvalidDiscountPercent = errors.New("percentage discount must be between 0 and 100")
	ErrAmbiguousDiscount      = errors.New("discount can only be either fixed amount or percentage, not both")
	ErrMissingDiscount        = errors.New("discount must have either fixed amount or percentage")
)

type Code string

func NewCode(code string) (Code, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrInvalidCode
	}
	return Code(code), nil
}

func (c Code) String() string {
	return string(c)
}

// Discount is either a fixed rupiah amount or a percentage of the subtotal.
type Discount struct {
	amount  *int64
	percent *float64
}

func NewFixedDiscount(amount int64) (Discount, error) {
	if amount < 0 {
		return Discount{}, ErrInvalidDiscountAmount
	}
	return Discount{amount: &amount}, nil
}

func NewPercentageDiscount(percent float64) (Discount, error) {
	if percent < 0 || percent > 100 {
		return Discount{}, ErrInvalidDiscountPercent
	}
	return Discount{percent: &percent}, nil
}

func NewDiscount(amount *int64, percent *float64) (Discount, error) {
	switch {
	case amount != nil && percent != nil:
		return Discount{}, ErrAmbiguousDiscount
	case amount != nil:
		return NewFixedDiscount(*amount)
	case percent != nil:
		return NewPercentageDiscount(*percent)
	default:
		return Discount{}, ErrMissingDiscount
	}
}

func (d Discount) IsPercentage() bool { return d.percent != nil }

func (d Discount) Amount() int64 {
	if d.amount != nil {
		return *d.amount
	}
	return 0
}

func (d Discount) Percent() float64 {
	if d.percent != nil {
		return *d.percent
	}
	return 0
}

// For returns the discount owed on subtotal, never more than the subtotal itself.
func (d Discount) For(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	var off int64
	if d.IsPercentage() {
		off = int64(float64(subtotal) * d.Percent() / 100.0)
	} else {
		off = d.Amount()
	}
	if off > subtotal {
		return subtotal
	}
	if off < 0 {
		return 0
	}
	return off
}
