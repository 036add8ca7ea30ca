package readstore

import (
	"context"
	"encoding/json"
	"time"

	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/infra/db"
	"storefront-checkout/internal/pkg/pgconv"
	"storefront-checkout/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	getOrderViewByUUID = `
SELECT o.id, o.uuid, o.user_id, o.order_number, o.queue_number, o.contact_email, o.contact_phone,
       o.shipping, o.billing, o.courier_agent, o.courier_service, o.courier_etd, o.courier_cost,
       o.payment_method, o.payment_status, o.status, o.payment_snap_token,
       o.voucher_id, v.code, o.subtotal, o.discount, o.grand_total,
       o.invoice_note, o.delivery_order_note, o.created_at, o.updated_at
FROM orders o
LEFT JOIN vouchers v ON v.id = o.voucher_id
WHERE o.uuid = $1`

	getOrderItemViews = `
SELECT variant_id, product_id, product_name, image, sku, variant_description,
       qty, actual_price, discount_price, purchase_price, note
FROM order_products
WHERE order_id = $1
ORDER BY id`

	getRedemptionsFirstPage = `
SELECT h.id, h.voucher_id, v.code, h.order_id, o.uuid, o.order_number, h.created_at
FROM history_vouchers h
JOIN vouchers v ON v.id = h.voucher_id
JOIN orders o ON o.id = h.order_id
WHERE h.user_id = $1
ORDER BY h.created_at DESC, h.id DESC
LIMIT $2`

	getRedemptionsKeyset = `
SELECT h.id, h.voucher_id, v.code, h.order_id, o.uuid, o.order_number, h.created_at
FROM history_vouchers h
JOIN vouchers v ON v.id = h.voucher_id
JOIN orders o ON o.id = h.order_id
WHERE h.user_id = $1 AND (h.created_at, h.id) < ($2, $3)
ORDER BY h.created_at DESC, h.id DESC
LIMIT $4`
)

type OrderReadStore struct {
	db db.DBTX
}

func NewOrderReadStore(db db.DBTX) *OrderReadStore {
	return &OrderReadStore{db: db}
}

func (r *OrderReadStore) FindByUUID(ctx context.Context, id uuid.UUID) (*queries.OrderView, error) {
	var (
		v                 queries.OrderView
		shipping, billing []byte
		voucherID         pgtype.Int8
		voucherCode       pgtype.Text
	)
	err := r.db.QueryRow(ctx, getOrderViewByUUID, id).Scan(
		&v.ID, &v.UUID, &v.UserID, &v.OrderNumber, &v.QueueNumber, &v.ContactEmail, &v.ContactPhone,
		&shipping, &billing, &v.CourierAgent, &v.CourierService, &v.CourierETD, &v.ShippingCost,
		&v.PaymentMethod, &v.PaymentStatus, &v.Status, &v.PaymentToken,
		&voucherID, &voucherCode, &v.Subtotal, &v.Discount, &v.GrandTotal,
		&v.InvoiceNote, &v.DeliveryOrderNote, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("order not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get order view by uuid", err)
	}

	if err := json.Unmarshal(shipping, &v.Shipping); err != nil {
		return nil, infra.WrapRepoErr("failed to decode shipping snapshot", err, infra.KindDBFailure)
	}
	if err := json.Unmarshal(billing, &v.Billing); err != nil {
		return nil, infra.WrapRepoErr("failed to decode billing snapshot", err, infra.KindDBFailure)
	}
	v.VoucherID = pgconv.Int8PtrFromPgtype(voucherID)
	if voucherCode.Valid {
		code := voucherCode.String
		v.VoucherCode = &code
	}

	items, err := r.findItems(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	v.Items = items

	return &v, nil
}

func (r *OrderReadStore) findItems(ctx context.Context, orderID int64) ([]queries.OrderItemView, error) {
	rows, err := r.db.Query(ctx, getOrderItemViews, orderID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to get order items", err)
	}
	defer rows.Close()

	items := []queries.OrderItemView{}
	for rows.Next() {
		var it queries.OrderItemView
		if err := rows.Scan(
			&it.VariantID, &it.ProductID, &it.ProductName, &it.Image, &it.SKU, &it.VariantDescription,
			&it.Quantity, &it.ActualPrice, &it.DiscountPrice, &it.PurchasePrice, &it.Note,
		); err != nil {
			return nil, infra.WrapRepoErr("failed to scan order item", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate order items", err)
	}
	return items, nil
}

// ListRedemptions pages newest first. afterTime nil means the first page.
func (r *OrderReadStore) ListRedemptions(ctx context.Context, userID uuid.UUID, afterTime *time.Time, afterID int64, limit int32) ([]*queries.VoucherRedemptionView, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if afterTime == nil {
		rows, err = r.db.Query(ctx, getRedemptionsFirstPage, userID, limit)
	} else {
		rows, err = r.db.Query(ctx, getRedemptionsKeyset, userID, *afterTime, afterID, limit)
	}
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list voucher redemptions", err)
	}
	defer rows.Close()

	out := make([]*queries.VoucherRedemptionView, 0, limit)
	for rows.Next() {
		var v queries.VoucherRedemptionView
		if err := rows.Scan(&v.ID, &v.VoucherID, &v.VoucherCode, &v.OrderID, &v.OrderUUID, &v.OrderNumber, &v.CreatedAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan voucher redemption", err)
		}
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate voucher redemptions", err)
	}
	return out, nil
}
