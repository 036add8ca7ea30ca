package order

import (
	"time"

	"storefront-checkout/internal/domain/address"
	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/domain/shipping"

	"github.com/google/uuid"
)

type Courier struct {
	Agent       string
	Service     string
	Description string
	ETD         string
	Cost        int64
}

func NewCourier(q shipping.Quote) Courier {
	return Courier{
		Agent:       q.Carrier,
		Service:     q.Service,
		Description: q.Description,
		ETD:         q.ETD,
		Cost:        q.Cost,
	}
}

type Order struct {
	ID                int64
	UUID              uuid.UUID
	UserID            uuid.UUID
	Numbers           Numbers
	ContactEmail      string
	ContactPhone      string
	Shipping          address.Snapshot
	Billing           address.Snapshot
	Courier           Courier
	PaymentMethod     string
	PaymentStatus     PaymentStatus
	Status            Status
	VoucherID         *int64
	InvoiceNote       string
	DeliveryOrderNote string
	PaymentToken      string
	CreatedAt         time.Time
}

// Draft is everything needed to place an order before it is numbered.
type Draft struct {
	UserID            uuid.UUID
	ContactEmail      string
	Shipping          *address.Address
	Billing           *address.Address
	Quote             shipping.Quote
	VoucherID         *int64
	InvoiceNote       string
	DeliveryOrderNote string
	Country           string
}

// New places a draft under numbers. The order starts unpaid.
func New(d Draft, numbers Numbers, id uuid.UUID, now time.Time) *Order {
	return &Order{
		UUID:              id,
		UserID:            d.UserID,
		Numbers:           numbers,
		ContactEmail:      d.ContactEmail,
		ContactPhone:      d.Shipping.Phone,
		Shipping:          d.Shipping.Snapshot(d.Country),
		Billing:           d.Billing.Snapshot(d.Country),
		Courier:           NewCourier(d.Quote),
		PaymentMethod:     PaymentMethodMidtrans,
		PaymentStatus:     PaymentUnpaid,
		Status:            StatusOrder,
		VoucherID:         d.VoucherID,
		InvoiceNote:       d.InvoiceNote,
		DeliveryOrderNote: d.DeliveryOrderNote,
		CreatedAt:         now,
	}
}

// LineItem is the frozen copy of a cart item at order time.
type LineItem struct {
	ID                 int64
	OrderID            int64
	ProductID          int64
	VariantID          int64
	ProductName        string
	Image              string
	SKU                string
	VariantDescription string
	Quantity           int
	ActualPrice        int64
	DiscountPrice      int64
	PurchasePrice      int64
	Note               string
}

func (li LineItem) Total() int64 {
	return li.PurchasePrice * int64(li.Quantity)
}

func LineItemsFrom(orderID int64, items []cart.Item) []LineItem {
	out := make([]LineItem, len(items))
	for i, it := range items {
		out[i] = LineItem{
			OrderID:            orderID,
			ProductID:          it.ProductID,
			VariantID:          it.VariantID,
			ProductName:        it.ProductName,
			Image:              it.ProductImage,
			SKU:                it.SKU,
			VariantDescription: it.VariantDescription,
			Quantity:           it.Quantity,
			ActualPrice:        it.UnitPrice,
			DiscountPrice:      it.DiscountPrice,
			PurchasePrice:      it.PurchasePrice,
			Note:               it.Note,
		}
	}
	return out
}
