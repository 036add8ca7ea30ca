package repository

import (
	"context"
	"time"

	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/infra/db"
	"storefront-checkout/internal/pkg/clock"
)

type SequenceRepository struct {
	db  db.DBTX
	clk clock.Clock
	loc *time.Location
}

func NewSequenceRepository(db db.DBTX, clk clock.Clock, loc *time.Location) *SequenceRepository {
	return &SequenceRepository{db: db, clk: clk, loc: loc}
}

// Next draws from order_queue_seq. Values are never reused, even when the transaction rolls back.
func (r *SequenceRepository) Next(ctx context.Context) (order.Numbers, error) {
	var queue int64
	if err := r.db.QueryRow(ctx, `SELECT nextval('order_queue_seq')`).Scan(&queue); err != nil {
		return order.Numbers{}, infra.WrapRepoErr("failed to draw order queue number", err)
	}

	numbers, err := order.NewNumbers(queue, r.clk.Now(), r.loc)
	if err != nil {
		return order.Numbers{}, infra.WrapRepoErr("invalid order queue number", err, infra.KindDBFailure)
	}
	return numbers, nil
}
