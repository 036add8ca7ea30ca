//go:build unit

package voucher_test

import (
	"testing"
	"time"

	"storefront-checkout/internal/domain/voucher"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }
func at(s string) *time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return &t
}

func TestNewVoucher(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		amount  *int64
		percent *float64
		errIs   error
	}{
		{name: "fixed amount", code: "HEMAT10", amount: i64(10000)},
		{name: "percentage", code: "HEMAT10", percent: f64(10)},
		{name: "empty code", code: "  ", amount: i64(1), errIs: voucher.ErrInvalidCode},
		{name: "both discounts", code: "X", amount: i64(1), percent: f64(1), errIs: voucher.ErrAmbiguousDiscount},
		{name: "no discount", code: "X", errIs: voucher.ErrMissingDiscount},
		{name: "negative amount", code: "X", amount: i64(-1), errIs: voucher.ErrInvalidDiscountAmount},
		{name: "percent above 100", code: "X", percent: f64(101), errIs: voucher.ErrInvalidDiscountPercent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := voucher.NewVoucher(1, tt.code, tt.amount, tt.percent, nil, nil, true)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(1), v.ID())
		})
	}
}

func TestDiscountFor(t *testing.T) {
	fixed, err := voucher.NewVoucher(1, "FLAT", i64(50000), nil, nil, nil, true)
	require.NoError(t, err)
	pct, err := voucher.NewVoucher(2, "PCT", nil, f64(25), nil, nil, true)
	require.NoError(t, err)

	assert.Equal(t, int64(50000), fixed.DiscountFor(200000))
	assert.Equal(t, int64(30000), fixed.DiscountFor(30000), "clamped to subtotal")
	assert.Equal(t, int64(0), fixed.DiscountFor(0))
	assert.Equal(t, int64(50000), pct.DiscountFor(200000))
}

func TestValidateUsage(t *testing.T) {
	v, err := voucher.NewVoucher(1, "WINDOW", i64(1000), nil, at("2026-01-01T00:00:00Z"), at("2026-01-31T23:59:59Z"), true)
	require.NoError(t, err)

	assert.ErrorIs(t, v.ValidateUsage(*at("2025-12-31T00:00:00Z")), voucher.ErrVoucherNotYetValid)
	assert.NoError(t, v.ValidateUsage(*at("2026-01-15T00:00:00Z")))
	assert.ErrorIs(t, v.ValidateUsage(*at("2026-02-01T00:00:00Z")), voucher.ErrVoucherExpired)

	inactive, err := voucher.NewVoucher(2, "OFF", i64(1000), nil, nil, nil, false)
	require.NoError(t, err)
	assert.ErrorIs(t, inactive.ValidateUsage(time.Now()), voucher.ErrVoucherInactive)
	expiredAndInactive, err := voucher.NewVoucher(3, "GONE", i64(1000), nil, nil, at("2026-01-31T23:59:59Z"), false)
	require.NoError(t, err)
	assert.ErrorIs(t, expiredAndInactive.ValidateUsage(*at("2026-02-01T00:00:00Z")), voucher.ErrVoucherInactive, "inactive is reported first")
}
