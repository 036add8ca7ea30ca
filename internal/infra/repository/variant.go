package repository

import (
	"context"

	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/infra/db"
)

const findVariantsByIDs = `
SELECT v.id, v.product_id, p.name, p.image, v.sku, v.description,
       v.price, v.discount_price, v.stock, v.weight_grams
FROM product_variants v
JOIN products p ON p.id = v.product_id
WHERE v.id = ANY($1::bigint[])`

type VariantRepository struct {
	db db.DBTX
}

func NewVariantRepository(db db.DBTX) *VariantRepository {
	return &VariantRepository{db: db}
}

// FindByIDs returns current catalog snapshots keyed by variant id. Unknown ids are absent.
func (r *VariantRepository) FindByIDs(ctx context.Context, ids []int64) (map[int64]cart.VariantSnapshot, error) {
	out := make(map[int64]cart.VariantSnapshot, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx, findVariantsByIDs, ids)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query variants", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v cart.VariantSnapshot
		if err := rows.Scan(
			&v.VariantID, &v.ProductID, &v.ProductName, &v.ProductImage, &v.SKU, &v.VariantDescription,
			&v.Price, &v.DiscountPrice, &v.Stock, &v.WeightGrams,
		); err != nil {
			return nil, infra.WrapRepoErr("failed to scan variant", err)
		}
		out[v.VariantID] = v
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate variants", err)
	}

	return out, nil
}
