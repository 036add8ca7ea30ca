package repository

import (
	"context"
	"slices"

	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/infra/db"
	"storefront-checkout/internal/usecase/shared"
)

const (
	// The guard and the decrement are one statement, so two buyers cannot both take the last unit.
	reserveStock = `
UPDATE product_variants
SET stock = stock - $2, updated_at = now()
WHERE id = $1 AND stock >= $2`

	releaseStock = `
UPDATE product_variants
SET stock = stock + $2, updated_at = now()
WHERE id = $1`
)

type StockRepository struct {
	db db.DBTX
}

func NewStockRepository(db db.DBTX) *StockRepository {
	return &StockRepository{db: db}
}

// Reserve locks rows in variant id order to keep concurrent checkouts from deadlocking.
func (r *StockRepository) Reserve(ctx context.Context, lines []shared.StockLine) error {
	for _, l := range sortedByVariant(lines) {
		tag, err := r.db.Exec(ctx, reserveStock, l.VariantID, l.Quantity)
		if err != nil {
			return infra.WrapRepoErr("failed to reserve stock", err)
		}
		if tag.RowsAffected() == 0 {
			return &shared.StockShortageError{VariantID: l.VariantID, SKU: l.SKU, Requested: l.Quantity}
		}
	}
	return nil
}

func (r *StockRepository) Release(ctx context.Context, lines []shared.StockLine) error {
	for _, l := range sortedByVariant(lines) {
		if _, err := r.db.Exec(ctx, releaseStock, l.VariantID, l.Quantity); err != nil {
			return infra.WrapRepoErr("failed to release stock", err)
		}
	}
	return nil
}

func sortedByVariant(lines []shared.StockLine) []shared.StockLine {
	out := slices.Clone(lines)
	slices.SortFunc(out, func(a, b shared.StockLine) int {
		switch {
		case a.VariantID < b.VariantID:
			return -1
		case a.VariantID > b.VariantID:
			return 1
		default:
			return 0
		}
	})
	return out
}
