package voucher

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrVoucherExpired     = errors.New("voucher has expired")
	ErrVoucherNotYetValid = errors.New("voucher is not yet valid")
	ErrVoucherInactive    = errors.New("voucher is not active")
)

type Voucher struct {
	id        int64
	code      Code
	discount  Discount
	validFrom *time.Time
	validTo   *time.Time
	active    bool
}

func NewVoucher(
	id int64,
	code string,
	amount *int64,
	percent *float64,
	validFrom, validTo *time.Time,
	active bool,
) (*Voucher, error) {
	c, err := NewCode(code)
	if err != nil {
		return nil, err
	}

	discount, err := NewDiscount(amount, percent)
	if err != nil {
		return nil, err
	}

	return &Voucher{
		id:        id,
		code:      c,
		discount:  discount,
		validFrom: validFrom,
		validTo:   validTo,
		active:    active,
	}, nil
}

func (v *Voucher) ValidateUsage(t time.Time) error {
	if !v.active {
		return ErrVoucherInactive
	}
	if v.validFrom != nil && t.Before(*v.validFrom) {
		return ErrVoucherNotYetValid
	}
	if v.validTo != nil && t.After(*v.validTo) {
		return ErrVoucherExpired
	}
	return nil
}

// DiscountFor clamps the configured value to subtotal.
func (v *Voucher) DiscountFor(subtotal int64) int64 {
	return v.discount.For(subtotal)
}

func (v *Voucher) ID() int64  { return v.id }
func (v *Voucher) Code() Code { return v.code }

// Redemption records one voucher use; an order carries at most one.
type Redemption struct {
	VoucherID int64
	UserID    uuid.UUID
	OrderID   int64
	CreatedAt time.Time
}
