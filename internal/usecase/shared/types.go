package shared

import (
	"fmt"
	"time"

	"storefront-checkout/internal/domain/voucher"
	"storefront-checkout/internal/pkg/errs"

	"github.com/google/uuid"
)

var ErrInsufficientStock = errs.New("insufficient stock")

const (
	IdempotencyProcessing = "processing"
	IdempotencyCompleted  = "completed"
)

type StockLine struct {
	VariantID int64
	SKU       string
	Quantity  int
}

// StockShortageError names the first line the conditional decrement refused.
type StockShortageError struct {
	VariantID int64
	SKU       string
	Requested int
}

func (e *StockShortageError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %d (%s): requested %d", e.VariantID, e.SKU, e.Requested)
}

func (e *StockShortageError) Is(target error) bool {
	return target == ErrInsufficientStock
}

type VoucherSnapshot struct {
	ID         int64
	Code       string
	AmountOff  *int64
	PercentOff *float64
	ValidFrom  *time.Time
	ValidTo    *time.Time
	Active     bool
}

func (s *VoucherSnapshot) ToDomain() (*voucher.Voucher, error) {
	return voucher.NewVoucher(s.ID, s.Code, s.AmountOff, s.PercentOff, s.ValidFrom, s.ValidTo, s.Active)
}

type IdempotencyRecord struct {
	Key           uuid.UUID
	UserID        uuid.UUID
	Status        string
	RequestHash   string
	ResultOrderID *int64
	ExpiresAt     time.Time
}

type CustomerSnapshot struct {
	ID    uuid.UUID
	Name  string
	Email string
	Phone string
}
