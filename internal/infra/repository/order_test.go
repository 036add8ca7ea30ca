//go:build unit

package repository_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"storefront-checkout/internal/domain/address"
	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/infra/repository"
	"storefront-checkout/internal/pkg/clock"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceRepository_Next(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT nextval\('order_queue_seq'\)`).
		WillReturnRows(pgxmock.NewRows([]string{"nextval"}).AddRow(int64(42)))

	// 18:30 UTC is already the next day in Jakarta.
	clk := clock.NewMockClock(time.Date(2026, 3, 4, 18, 30, 0, 0, time.UTC))
	repo := repository.NewSequenceRepository(mock, clk, jakarta)

	numbers, err := repo.Next(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(42), numbers.QueueNumber)
	assert.Equal(t, "INV/20260305/000042", numbers.InvoiceNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	o := &order.Order{
		UUID:          uuid.New(),
		UserID:        uuid.New(),
		Numbers:       order.Numbers{QueueNumber: 1, InvoiceNumber: "INV/20260305/000001"},
		Shipping:      address.Snapshot{Recipient: "Ayu", City: "Bandung"},
		Billing:       address.Snapshot{Recipient: "Ayu", City: "Bandung"},
		Courier:       order.Courier{Agent: "jne", Service: "REG", Cost: 18000},
		PaymentMethod: order.PaymentMethodMidtrans,
		PaymentStatus: order.PaymentUnpaid,
		Status:        order.StatusOrder,
		CreatedAt:     time.Now(),
	}

	mock.ExpectQuery(`INSERT INTO orders`).
		WithArgs(
			o.UUID, o.UserID, int64(1), "INV/20260305/000001", "", "",
			pgxmock.AnyArg(), pgxmock.AnyArg(), "jne", "REG", "", "", int64(18000),
			"Midtrans", "UNPAID", "ORDER", pgtype.Int8{}, "", "", o.CreatedAt,
		).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(10)))

	repo := repository.NewOrderRepository(mock)
	id, err := repo.Create(context.Background(), o)

	require.NoError(t, err)
	assert.Equal(t, int64(10), id)
	assert.Equal(t, int64(10), o.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_FindByID(t *testing.T) {
	ctx := context.Background()

	t.Run("success: decodes snapshots", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		ship, _ := json.Marshal(address.Snapshot{Recipient: "Ayu", City: "Bandung"})
		id, userID := uuid.New(), uuid.New()
		voucherID := int64(5)
		mock.ExpectQuery(`FROM orders\s+WHERE id = \$1`).
			WithArgs(int64(10)).
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "uuid", "user_id", "queue_number", "order_number", "contact_email", "contact_phone",
				"shipping", "billing", "courier_agent", "courier_service", "courier_service_desc", "courier_etd", "courier_cost",
				"payment_method", "payment_status", "status", "voucher_id", "invoice_note", "delivery_order_note",
				"payment_snap_token", "created_at",
			}).AddRow(
				int64(10), id.String(), userID.String(), int64(1), "INV/20260305/000001", "a@example.com", "0812",
				ship, ship, "jne", "REG", "Layanan Reguler", "2-3", int64(18000),
				"Midtrans", "UNPAID", "ORDER", voucherID, "", "",
				"snap-token", time.Now(),
			))

		repo := repository.NewOrderRepository(mock)
		o, err := repo.FindByID(ctx, 10)

		require.NoError(t, err)
		assert.Equal(t, id, o.UUID)
		assert.Equal(t, "Bandung", o.Shipping.City)
		assert.Equal(t, order.PaymentUnpaid, o.PaymentStatus)
		require.NotNil(t, o.VoucherID)
		assert.Equal(t, voucherID, *o.VoucherID)
		assert.Equal(t, "snap-token", o.PaymentToken)
	})

	t.Run("error: missing order is not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`FROM orders`).WithArgs(int64(99)).WillReturnError(pgx.ErrNoRows)

		repo := repository.NewOrderRepository(mock)
		_, err = repo.FindByID(ctx, 99)

		require.Error(t, err)
		assert.True(t, infra.IsKind(err, infra.KindNotFound))
	})
}

func TestOrderRepository_SetTotals(t *testing.T) {
	ctx := context.Background()
	totals := order.Totals{Subtotal: 100000, Discount: 10000, ShippingCost: 18000, GrandTotal: 108000}

	t.Run("success", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE orders\s+SET subtotal`).
			WithArgs(int64(10), int64(100000), int64(10000), int64(108000)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repository.NewOrderRepository(mock).SetTotals(ctx, 10, totals))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error: no row updated", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE orders`).
			WithArgs(int64(10), int64(100000), int64(10000), int64(108000)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err = repository.NewOrderRepository(mock).SetTotals(ctx, 10, totals)
		assert.True(t, infra.IsKind(err, infra.KindNotFound))
	})
}

func TestOrderRepository_Cancel(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`SET status = 'CANCELED'`).
		WithArgs(int64(10), "FAILED").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repository.NewOrderRepository(mock).Cancel(context.Background(), 10, order.PaymentFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLineItemRepository_BulkInsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO order_products`).
		WithArgs(
			[]int64{10, 10}, []int64{1, 2}, []int64{11, 21}, []string{"Tee", "Cap"}, []string{"", ""},
			[]string{"TEE-M", "CAP"}, []string{"M", ""}, []int32{2, 1},
			[]int64{100000, 50000}, []int64{90000, 0}, []int64{90000, 50000}, []string{"gift", ""},
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	repo := repository.NewLineItemRepository(mock)
	err = repo.BulkInsert(context.Background(), []order.LineItem{
		{OrderID: 10, ProductID: 1, VariantID: 11, ProductName: "Tee", SKU: "TEE-M", VariantDescription: "M",
			Quantity: 2, ActualPrice: 100000, DiscountPrice: 90000, PurchasePrice: 90000, Note: "gift"},
		{OrderID: 10, ProductID: 2, VariantID: 21, ProductName: "Cap", SKU: "CAP",
			Quantity: 1, ActualPrice: 50000, PurchasePrice: 50000},
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
