package commands

import (
	"context"
	"errors"
	"time"

	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/pkg/errs"
)

const maxDisplayName = 42

var ErrPaymentNotReconciled = errs.New("payment lines do not add up to the grand total")

type PaymentItem struct {
	ID       string
	Name     string
	Price    int64
	Quantity int
}

type PaymentCustomer struct {
	FirstName string
	Email     string
	Phone     string
}

type PaymentRequest struct {
	OrderNumber string
	GrossAmount int64
	Items       []PaymentItem
	Customer    PaymentCustomer
}

func (r PaymentRequest) LinesTotal() int64 {
	var sum int64
	for _, it := range r.Items {
		sum += it.Price * int64(it.Quantity)
	}
	return sum
}

// buildPaymentRequest lays out product lines, one shipping line and one voucher line.
// The voucher line is a zero-price placeholder when nothing was redeemed.
func buildPaymentRequest(o *order.Order, computed *computedTotals, customer PaymentCustomer) (PaymentRequest, error) {
	items := make([]PaymentItem, 0, len(computed.Items)+2)
	for _, li := range computed.Items {
		items = append(items, PaymentItem{
			ID:       li.SKU,
			Name:     displayName(li.ProductName),
			Price:    li.PurchasePrice,
			Quantity: li.Quantity,
		})
	}

	courier := o.Courier.Agent + "-" + o.Courier.Service
	items = append(items, PaymentItem{
		ID:       "shipping-" + courier,
		Name:     displayName(courier),
		Price:    computed.Totals.ShippingCost,
		Quantity: 1,
	})

	if o.VoucherID != nil {
		items = append(items, PaymentItem{
			ID:       computed.VoucherCode,
			Name:     "Discount Voucher",
			Price:    -computed.Totals.Discount,
			Quantity: 1,
		})
	} else {
		items = append(items, PaymentItem{
			ID:       "no-voucher",
			Name:     "No Discount Voucher",
			Price:    0,
			Quantity: 1,
		})
	}

	req := PaymentRequest{
		OrderNumber: o.Numbers.InvoiceNumber,
		GrossAmount: computed.Totals.GrandTotal,
		Items:       items,
		Customer:    customer,
	}
	if sum := req.LinesTotal(); sum != req.GrossAmount {
		return PaymentRequest{}, errs.Wrapf(ErrPaymentNotReconciled, "lines %d, grand total %d", sum, req.GrossAmount)
	}
	return req, nil
}

func displayName(name string) string {
	r := []rune(name)
	if len(r) <= maxDisplayName {
		return name
	}
	return string(r[:maxDisplayName]) + "..."
}

type paymentIssuer struct {
	gateway PaymentGateway
	timeout time.Duration
}

// Issue makes exactly one gateway call bounded by the configured timeout.
func (p paymentIssuer) Issue(ctx context.Context, req PaymentRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	token, err := p.gateway.CreateSession(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", errs.Wrapf(err, "payment gateway timed out after %s", p.timeout)
		}
		return "", err
	}
	if token == "" {
		return "", errs.Newf("payment gateway returned an empty token for %s", req.OrderNumber)
	}
	return token, nil
}
