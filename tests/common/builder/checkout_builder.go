//go:build unit || e2e

package builder

import (
	"time"

	"storefront-checkout/internal/domain/address"
	"storefront-checkout/internal/domain/order"
	reqdto "storefront-checkout/internal/handler/dto/request"
	"storefront-checkout/internal/usecase/commands"
	"storefront-checkout/internal/usecase/queries"

	"github.com/google/uuid"
)

type CheckoutBuilder struct {
	UserID            uuid.UUID
	OrderID           int64
	OrderUUID         uuid.UUID
	OrderNumber       string
	ShippingAddressID int64
	BillingAddressID  int64
	Courier           reqdto.CourierSelection
	Lines             []reqdto.CartLine
	VoucherID         *int64
	PaymentToken      string
	CreatedAt         time.Time
}

func NewCheckoutBuilder() *CheckoutBuilder {
	return &CheckoutBuilder{
		UserID:            uuid.New(),
		OrderID:           42,
		OrderUUID:         uuid.New(),
		OrderNumber:       "INV/20260305/000042",
		ShippingAddressID: 7,
		BillingAddressID:  0,
		Courier:           reqdto.CourierSelection{Agent: "jne", Service: "REG", Price: 18000, ETD: "2-3"},
		Lines: []reqdto.CartLine{
			{VariantID: 10, Qty: 2, Note: "gift wrap"},
			{VariantID: 11, Qty: 1},
		},
		PaymentToken: "snap-token-1",
		CreatedAt:    time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC),
	}
}

func (b *CheckoutBuilder) With(mutate func(*CheckoutBuilder)) *CheckoutBuilder {
	mutate(b)
	return b
}

func (b *CheckoutBuilder) BuildRequestDTO() reqdto.CheckoutRequest {
	return reqdto.CheckoutRequest{
		Data: reqdto.CheckoutData{
			Shipping: reqdto.AddressRef{AddressID: b.ShippingAddressID},
			Billing:  reqdto.BillingRef{AddressID: b.BillingAddressID, SameAsShipping: b.BillingAddressID == 0},
			Courier:  b.Courier,
			Product:  b.Lines,
			Voucher:  b.VoucherID,
		},
	}
}

func (b *CheckoutBuilder) BuildResult() *commands.CheckoutResult {
	return &commands.CheckoutResult{
		OrderID:      b.OrderID,
		UUID:         b.OrderUUID,
		OrderNumber:  b.OrderNumber,
		PaymentToken: b.PaymentToken,
		Totals:       order.Totals{Subtotal: 150000, ShippingCost: b.Courier.Price, GrandTotal: 150000 + b.Courier.Price},
	}
}

func (b *CheckoutBuilder) BuildOrderView() *queries.OrderView {
	snap := address.Snapshot{Recipient: "Budi", Phone: "08123456789", Email: "budi@example.com", Street: "Jl. Merdeka 1", City: "Jakarta Selatan", Country: "Indonesia", Label: "Home"}
	return &queries.OrderView{
		ID:             b.OrderID,
		UUID:           b.OrderUUID,
		UserID:         b.UserID,
		OrderNumber:    b.OrderNumber,
		QueueNumber:    b.OrderID,
		ContactEmail:   "budi@example.com",
		ContactPhone:   "08123456789",
		Shipping:       snap,
		Billing:        snap,
		CourierAgent:   b.Courier.Agent,
		CourierService: b.Courier.Service,
		CourierETD:     b.Courier.ETD,
		PaymentMethod:  "Midtrans",
		PaymentStatus:  "PENDING",
		Status:         "PENDING",
		PaymentToken:   b.PaymentToken,
		Subtotal:       150000,
		ShippingCost:   b.Courier.Price,
		GrandTotal:     150000 + b.Courier.Price,
		Items: []queries.OrderItemView{
			{VariantID: 10, ProductID: 1, ProductName: "Batik Shirt", SKU: "BS-M", Quantity: 2, ActualPrice: 50000, PurchasePrice: 50000, Note: "gift wrap"},
			{VariantID: 11, ProductID: 2, ProductName: "Sarong", SKU: "SR-1", Quantity: 1, ActualPrice: 50000, PurchasePrice: 50000},
		},
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.CreatedAt,
	}
}
