package commands

import (
	"context"

	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/shared"
)

type computedTotals struct {
	Totals      order.Totals
	VoucherCode string
	Items       []order.LineItem
}

type orderCalculator struct{}

// Calculate recomputes totals from persisted rows only and stores them on the order.
func (orderCalculator) Calculate(ctx context.Context, tx shared.Tx, orderID int64) (*computedTotals, error) {
	o, err := tx.Orders().FindByID(ctx, orderID)
	if err != nil {
		return nil, errs.Wrap(err, "load order for totals")
	}

	items, err := tx.LineItems().ListByOrder(ctx, orderID)
	if err != nil {
		return nil, errs.Wrap(err, "load line items for totals")
	}

	var (
		discounter order.Discounter
		code       string
	)
	if o.VoucherID != nil {
		snap, err := tx.Vouchers().FindByID(ctx, *o.VoucherID)
		if err != nil {
			return nil, errs.Wrap(err, "load voucher for totals")
		}
		v, err := snap.ToDomain()
		if err != nil {
			return nil, errs.Wrap(err, "rebuild voucher")
		}
		discounter = v
		code = v.Code().String()
	}

	totals, err := order.Calculate(items, o.Courier.Cost, discounter)
	if err != nil {
		return nil, err
	}

	if err := tx.Orders().SetTotals(ctx, orderID, totals); err != nil {
		return nil, errs.Wrap(err, "store totals")
	}

	return &computedTotals{Totals: totals, VoucherCode: code, Items: items}, nil
}
