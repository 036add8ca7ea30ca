package repository

import (
	"context"

	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/infra/db"
)

const (
	// One round trip for the whole cart.
	bulkInsertLineItems = `
INSERT INTO order_products (
    order_id, product_id, variant_id, product_name, image, sku, variant_description,
    qty, actual_price, discount_price, purchase_price, note
)
SELECT * FROM unnest(
    $1::bigint[], $2::bigint[], $3::bigint[], $4::text[], $5::text[], $6::text[], $7::text[],
    $8::integer[], $9::bigint[], $10::bigint[], $11::bigint[], $12::text[]
)`

	listLineItemsByOrder = `
SELECT id, order_id, product_id, variant_id, product_name, image, sku, variant_description,
       qty, actual_price, discount_price, purchase_price, note
FROM order_products
WHERE order_id = $1
ORDER BY id`
)

type LineItemRepository struct {
	db db.DBTX
}

func NewLineItemRepository(db db.DBTX) *LineItemRepository {
	return &LineItemRepository{db: db}
}

func (r *LineItemRepository) BulkInsert(ctx context.Context, items []order.LineItem) error {
	if len(items) == 0 {
		return nil
	}

	n := len(items)
	var (
		orderIDs, productIDs, variantIDs  = make([]int64, n), make([]int64, n), make([]int64, n)
		names, images, skus, descriptions = make([]string, n), make([]string, n), make([]string, n), make([]string, n)
		qtys                              = make([]int32, n)
		actual, discount, purchase        = make([]int64, n), make([]int64, n), make([]int64, n)
		notes                             = make([]string, n)
	)
	for i, it := range items {
		orderIDs[i] = it.OrderID
		productIDs[i] = it.ProductID
		variantIDs[i] = it.VariantID
		names[i] = it.ProductName
		images[i] = it.Image
		skus[i] = it.SKU
		descriptions[i] = it.VariantDescription
		qtys[i] = int32(it.Quantity) // #nosec G115 -- quantities are validated positive and small
		actual[i] = it.ActualPrice
		discount[i] = it.DiscountPrice
		purchase[i] = it.PurchasePrice
		notes[i] = it.Note
	}

	_, err := r.db.Exec(ctx, bulkInsertLineItems,
		orderIDs, productIDs, variantIDs, names, images, skus, descriptions,
		qtys, actual, discount, purchase, notes,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to insert order line items", err)
	}
	return nil
}

func (r *LineItemRepository) ListByOrder(ctx context.Context, orderID int64) ([]order.LineItem, error) {
	rows, err := r.db.Query(ctx, listLineItemsByOrder, orderID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query order line items", err)
	}
	defer rows.Close()

	var items []order.LineItem
	for rows.Next() {
		var it order.LineItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.VariantID, &it.ProductName, &it.Image, &it.SKU, &it.VariantDescription,
			&it.Quantity, &it.ActualPrice, &it.DiscountPrice, &it.PurchasePrice, &it.Note,
		); err != nil {
			return nil, infra.WrapRepoErr("failed to scan order line item", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate order line items", err)
	}
	return items, nil
}
