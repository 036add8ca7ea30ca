package queries

import (
	"time"

	"storefront-checkout/internal/domain/address"

	"github.com/google/uuid"
)

// Read models (DTO for read side)
type OrderView struct {
	ID                int64            `json:"id"`
	UUID              uuid.UUID        `json:"uuid"`
	UserID            uuid.UUID        `json:"user_id"`
	OrderNumber       string           `json:"order_number"`
	QueueNumber       int64            `json:"queue_number"`
	ContactEmail      string           `json:"contact_email"`
	ContactPhone      string           `json:"contact_phone"`
	Shipping          address.Snapshot `json:"shipping"`
	Billing           address.Snapshot `json:"billing"`
	CourierAgent      string           `json:"courier_agent"`
	CourierService    string           `json:"courier_service"`
	CourierETD        string           `json:"courier_etd"`
	PaymentMethod     string           `json:"payment_method"`
	PaymentStatus     string           `json:"payment_status"`
	Status            string           `json:"status"`
	PaymentToken      string           `json:"payment_snap_token"`
	VoucherID         *int64           `json:"voucher_id,omitempty"`
	VoucherCode       *string          `json:"voucher_code,omitempty"`
	Subtotal          int64            `json:"subtotal"`
	Discount          int64            `json:"discount"`
	ShippingCost      int64            `json:"shipping_cost"`
	GrandTotal        int64            `json:"grand_total"`
	InvoiceNote       string           `json:"invoice_note"`
	DeliveryOrderNote string           `json:"delivery_order_note"`
	Items             []OrderItemView  `json:"items"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

type OrderItemView struct {
	VariantID          int64  `json:"variant_id"`
	ProductID          int64  `json:"product_id"`
	ProductName        string `json:"product_name"`
	Image              string `json:"image"`
	SKU                string `json:"sku"`
	VariantDescription string `json:"variant_description"`
	Quantity           int    `json:"qty"`
	ActualPrice        int64  `json:"actual_price"`
	DiscountPrice      int64  `json:"discount_price"`
	PurchasePrice      int64  `json:"purchase_price"`
	Note               string `json:"note"`
}

type VoucherRedemptionView struct {
	ID          int64     `json:"id"`
	VoucherID   int64     `json:"voucher_id"`
	VoucherCode string    `json:"voucher_code"`
	OrderID     int64     `json:"order_id"`
	OrderUUID   uuid.UUID `json:"order_uuid"`
	OrderNumber string    `json:"order_number"`
	CreatedAt   time.Time `json:"created_at"`
}
