package shared

import (
	"context"
	"time"

	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/domain/voucher"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: Full transaction for write operations with retry logic
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// Direct: Repositories bound to the pool, each statement in its own implicit transaction
	Direct() Tx
}

// Tx exposes repositories bound to one transaction.
type Tx interface {
	Orders() OrderRepository
	LineItems() LineItemRepository
	Stock() StockRepository
	Sequence() SequenceRepository
	Vouchers() VoucherRepository
	Redemptions() RedemptionRepository
	Idempotency() IdempotencyRepository
	Notifications() NotificationRepository
}

type OrderRepository interface {
	Create(ctx context.Context, o *order.Order) (int64, error)
	FindByID(ctx context.Context, id int64) (*order.Order, error)
	SetTotals(ctx context.Context, id int64, totals order.Totals) error
	SetPaymentToken(ctx context.Context, id int64, token string) error
	Cancel(ctx context.Context, id int64, paymentStatus order.PaymentStatus) error
}

type LineItemRepository interface {
	BulkInsert(ctx context.Context, items []order.LineItem) error
	ListByOrder(ctx context.Context, orderID int64) ([]order.LineItem, error)
}

type StockRepository interface {
	// Reserve decrements every line or fails with a *StockShortageError.
	Reserve(ctx context.Context, lines []StockLine) error
	Release(ctx context.Context, lines []StockLine) error
}

type SequenceRepository interface {
	Next(ctx context.Context) (order.Numbers, error)
}

type VoucherRepository interface {
	FindByID(ctx context.Context, id int64) (*VoucherSnapshot, error)
}

type RedemptionRepository interface {
	Create(ctx context.Context, r voucher.Redemption) error
}

type IdempotencyRepository interface {
	TryInsert(ctx context.Context, key, userID uuid.UUID, endpoint, requestHash string, expiresAt time.Time) (bool, error)
	Get(ctx context.Context, key, userID uuid.UUID) (*IdempotencyRecord, error)
	ClaimExpired(ctx context.Context, key, userID uuid.UUID, requestHash string, now, expiresAt time.Time) (bool, error)
	MarkCompleted(ctx context.Context, key, userID uuid.UUID, orderID int64) error
	Delete(ctx context.Context, key, userID uuid.UUID) error
}

type NotificationRepository interface {
	CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error
}
