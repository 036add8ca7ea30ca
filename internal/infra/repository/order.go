package repository

import (
	"context"
	"encoding/json"

	"storefront-checkout/internal/domain/address"
	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/infra/db"
	"storefront-checkout/internal/pkg/pgconv"

	"github.com/jackc/pgx/v5/pgtype"
)

const (
	insertOrder = `
INSERT INTO orders (
    uuid, user_id, queue_number, order_number, contact_email, contact_phone,
    shipping, billing, courier_agent, courier_service, courier_service_desc, courier_etd, courier_cost,
    payment_method, payment_status, status, voucher_id, invoice_note, delivery_order_note, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
RETURNING id`

	findOrderByID = `
SELECT id, uuid, user_id, queue_number, order_number, contact_email, contact_phone,
       shipping, billing, courier_agent, courier_service, courier_service_desc, courier_etd, courier_cost,
       payment_method, payment_status, status, voucher_id, invoice_note, delivery_order_note,
       payment_snap_token, created_at
FROM orders
WHERE id = $1`

	updateOrderTotals = `
UPDATE orders
SET subtotal = $2, discount = $3, grand_total = $4, updated_at = now()
WHERE id = $1`

	updateOrderPaymentToken = `
UPDATE orders
SET payment_snap_token = $2, updated_at = now()
WHERE id = $1`

	cancelOrder = `
UPDATE orders
SET status = 'CANCELED', payment_status = $2, updated_at = now()
WHERE id = $1 AND status <> 'CANCELED'`
)

type OrderRepository struct {
	db db.DBTX
}

func NewOrderRepository(db db.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) (int64, error) {
	shipping, err := json.Marshal(o.Shipping)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to encode shipping snapshot", err, infra.KindDBFailure)
	}
	billing, err := json.Marshal(o.Billing)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to encode billing snapshot", err, infra.KindDBFailure)
	}

	var id int64
	err = r.db.QueryRow(ctx, insertOrder,
		o.UUID, o.UserID, o.Numbers.QueueNumber, o.Numbers.InvoiceNumber, o.ContactEmail, o.ContactPhone,
		shipping, billing, o.Courier.Agent, o.Courier.Service, o.Courier.Description, o.Courier.ETD, o.Courier.Cost,
		o.PaymentMethod, o.PaymentStatus.String(), string(o.Status), pgconv.Int8PtrToPgtype(o.VoucherID),
		o.InvoiceNote, o.DeliveryOrderNote, o.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to insert order", err)
	}

	o.ID = id
	return id, nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*order.Order, error) {
	var (
		o                     order.Order
		shipping, billing     []byte
		paymentStatus, status string
		voucherID             pgtype.Int8
	)
	err := r.db.QueryRow(ctx, findOrderByID, id).Scan(
		&o.ID, &o.UUID, &o.UserID, &o.Numbers.QueueNumber, &o.Numbers.InvoiceNumber, &o.ContactEmail, &o.ContactPhone,
		&shipping, &billing, &o.Courier.Agent, &o.Courier.Service, &o.Courier.Description, &o.Courier.ETD, &o.Courier.Cost,
		&o.PaymentMethod, &paymentStatus, &status, &voucherID, &o.InvoiceNote, &o.DeliveryOrderNote,
		&o.PaymentToken, &o.CreatedAt,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find order", err)
	}

	if o.Shipping, err = decodeSnapshot(shipping); err != nil {
		return nil, infra.WrapRepoErr("failed to decode shipping snapshot", err, infra.KindDBFailure)
	}
	if o.Billing, err = decodeSnapshot(billing); err != nil {
		return nil, infra.WrapRepoErr("failed to decode billing snapshot", err, infra.KindDBFailure)
	}
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.Status = order.Status(status)
	o.VoucherID = pgconv.Int8PtrFromPgtype(voucherID)

	return &o, nil
}

func (r *OrderRepository) SetTotals(ctx context.Context, id int64, t order.Totals) error {
	tag, err := r.db.Exec(ctx, updateOrderTotals, id, t.Subtotal, t.Discount, t.GrandTotal)
	if err != nil {
		return infra.WrapRepoErr("failed to update order totals", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("order not found", nil, infra.KindNotFound)
	}
	return nil
}

func (r *OrderRepository) SetPaymentToken(ctx context.Context, id int64, token string) error {
	tag, err := r.db.Exec(ctx, updateOrderPaymentToken, id, token)
	if err != nil {
		return infra.WrapRepoErr("failed to store payment token", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("order not found", nil, infra.KindNotFound)
	}
	return nil
}

// Cancel is idempotent: an already canceled order is left as is.
func (r *OrderRepository) Cancel(ctx context.Context, id int64, paymentStatus order.PaymentStatus) error {
	if _, err := r.db.Exec(ctx, cancelOrder, id, paymentStatus.String()); err != nil {
		return infra.WrapRepoErr("failed to cancel order", err)
	}
	return nil
}

func decodeSnapshot(raw []byte) (address.Snapshot, error) {
	var s address.Snapshot
	if len(raw) == 0 {
		return s, nil
	}
	err := json.Unmarshal(raw, &s)
	return s, err
}
