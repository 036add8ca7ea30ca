package queries

import (
	"context"
	"time"

	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound = errs.New("order not found")
	ErrInvalidCursor = errs.New("invalid cursor")
)

//go:generate mockgen -source=order.go -destination=../../../tests/mock/queries/order.go -package=queriesmock

type OrderQueries interface {
	GetByUUID(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*OrderView, error)
	ListVoucherHistory(ctx context.Context, userID uuid.UUID, after *Cursor, limit int) ([]*VoucherRedemptionView, *Cursor, error)
}

type OrderReadStore interface {
	FindByUUID(ctx context.Context, id uuid.UUID) (*OrderView, error)
	ListRedemptions(ctx context.Context, userID uuid.UUID, afterTime *time.Time, afterID int64, limit int32) ([]*VoucherRedemptionView, error)
}

type orderQueriesImpl struct {
	store OrderReadStore
}

func NewOrderQueries(store OrderReadStore) OrderQueries {
	return &orderQueriesImpl{store: store}
}

// GetByUUID hides orders of other customers behind not found.
func (q *orderQueriesImpl) GetByUUID(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*OrderView, error) {
	view, err := q.store.FindByUUID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if view.UserID != actor {
		return nil, ErrOrderNotFound
	}
	return view, nil
}

func (q *orderQueriesImpl) ListVoucherHistory(ctx context.Context, userID uuid.UUID, after *Cursor, limit int) ([]*VoucherRedemptionView, *Cursor, error) {
	limit = ValidateLimit(limit)

	var (
		afterTime *time.Time
		afterID   int64
	)
	if after != nil && after.After != "" {
		t, id, err := DecodeAfterCursor(after.After)
		if err != nil {
			return nil, nil, errs.Mark(err, ErrInvalidCursor)
		}
		afterTime, afterID = &t, id
	}

	// One extra row tells whether another page exists.
	rows, err := q.store.ListRedemptions(ctx, userID, afterTime, afterID, int32(limit+1))
	if err != nil {
		return nil, nil, err
	}

	var next *Cursor
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = &Cursor{After: EncodeAfterCursor(last.CreatedAt, last.ID)}
	}
	return rows, next, nil
}
