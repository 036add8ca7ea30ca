package request

import (
	"strings"

	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/domain/shipping"
	"storefront-checkout/internal/usecase/commands"

	"github.com/google/uuid"
)

type CheckoutRequest struct {
	Data CheckoutData `json:"data" binding:"required"`
}

type CheckoutData struct {
	Shipping AddressRef       `json:"shipping" binding:"required"`
	Billing  BillingRef       `json:"billing"`
	Courier  CourierSelection `json:"courier" binding:"required"`
	Product  []CartLine       `json:"product" binding:"dive"`
	Voucher  *int64           `json:"voucher,omitempty"`
}

type AddressRef struct {
	AddressID int64 `json:"address_id" binding:"required,gt=0"`
}

type BillingRef struct {
	AddressID      int64 `json:"address_id" binding:"gte=0"`
	SameAsShipping bool  `json:"same_as_shipping"`
}

type CourierSelection struct {
	Agent   string `json:"agent" binding:"required"`
	Service string `json:"service" binding:"required"`
	Price   int64  `json:"price" binding:"gte=0"`
	ETD     string `json:"etd"`
	Note    string `json:"note"`
}

type CartLine struct {
	VariantID int64  `json:"variant_id" binding:"required,gt=0"`
	Qty       int    `json:"qty" binding:"required,gt=0,lte=10000"`
	Note      string `json:"note" binding:"max=500"`
}

func (r CheckoutRequest) ToInput(userID uuid.UUID, key *uuid.UUID) commands.CheckoutInput {
	d := r.Data
	in := commands.CheckoutInput{
		UserID:            userID,
		IdempotencyKey:    key,
		ShippingAddressID: d.Shipping.AddressID,
		BillingAddressID:  d.Billing.AddressID,
		SameAsShipping:    d.Billing.SameAsShipping || d.Billing.AddressID == 0,
		Courier: shipping.Selection{
			Carrier: strings.TrimSpace(d.Courier.Agent),
			Service: strings.TrimSpace(d.Courier.Service),
			Price:   d.Courier.Price,
			ETD:     strings.TrimSpace(d.Courier.ETD),
			Note:    d.Courier.Note,
		},
		Lines: ToCartLines(d.Product),
	}
	if d.Voucher != nil && *d.Voucher > 0 {
		id := *d.Voucher
		in.VoucherID = &id
	}
	return in
}

type CartCheckRequest struct {
	Data []CartLine `json:"data" binding:"dive"`
}

func ToCartLines(lines []CartLine) []cart.Line {
	out := make([]cart.Line, len(lines))
	for i, l := range lines {
		out[i] = cart.Line{VariantID: l.VariantID, Quantity: l.Qty, Note: strings.TrimSpace(l.Note)}
	}
	return out
}
