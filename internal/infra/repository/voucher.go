package repository

import (
	"context"

	"storefront-checkout/internal/domain/voucher"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/infra/db"
	"storefront-checkout/internal/pkg/pgconv"
	"storefront-checkout/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgtype"
)

const (
	findVoucherByID = `
SELECT id, code, amount_off, percent_off, valid_from, valid_to, is_active
FROM vouchers
WHERE id = $1`

	insertRedemption = `
INSERT INTO history_vouchers (voucher_id, user_id, order_id, created_at)
VALUES ($1, $2, $3, $4)`
)

type VoucherRepository struct {
	db db.DBTX
}

func NewVoucherRepository(db db.DBTX) *VoucherRepository {
	return &VoucherRepository{db: db}
}

func (r *VoucherRepository) FindByID(ctx context.Context, id int64) (*shared.VoucherSnapshot, error) {
	var (
		s         shared.VoucherSnapshot
		amount    pgtype.Int8
		percent   pgtype.Float8
		validFrom pgtype.Timestamptz
		validTo   pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, findVoucherByID, id).
		Scan(&s.ID, &s.Code, &amount, &percent, &validFrom, &validTo, &s.Active)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find voucher", err)
	}

	s.AmountOff = pgconv.Int8PtrFromPgtype(amount)
	if percent.Valid {
		p := percent.Float64
		s.PercentOff = &p
	}
	s.ValidFrom = pgconv.TimePtrFromPgtype(validFrom)
	s.ValidTo = pgconv.TimePtrFromPgtype(validTo)
	return &s, nil
}

type RedemptionRepository struct {
	db db.DBTX
}

func NewRedemptionRepository(db db.DBTX) *RedemptionRepository {
	return &RedemptionRepository{db: db}
}

// Create relies on the unique order_id index to keep one redemption per order.
func (r *RedemptionRepository) Create(ctx context.Context, red voucher.Redemption) error {
	_, err := r.db.Exec(ctx, insertRedemption, red.VoucherID, red.UserID, red.OrderID, red.CreatedAt)
	if err != nil {
		return infra.WrapRepoErr("failed to record voucher redemption", err)
	}
	return nil
}
