package commands

import (
	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/pkg/errs"
)

// Markers classify every checkout failure. Handlers map them to status codes.
var (
	ErrValidation      = errs.New("validation failed")
	ErrNotFound        = errs.New("not found")
	ErrOutOfStock      = errs.New("out of stock")
	ErrExternalService = errs.New("external service failed")
	ErrPersistence     = errs.New("persistence failed")
	ErrInternal        = errs.New("internal error")

	ErrIdempotencyInProgress = errs.New("idempotency key in progress")
	ErrIdempotencyMismatch   = errs.New("idempotency key reused with a different request")
)

// Stage fields reported to clients.
const (
	FieldShippingAddress = "shipping_address"
	FieldBillingAddress  = "billing_address"
	FieldVoucher         = "voucher"
	FieldRateLookup      = "rajaongkir"
	FieldCourier         = "courier"
	FieldCartEmpty       = "cart_empty"
	FieldOutOfStock      = "out_of_stock"
	FieldProduct         = "product"
	FieldOrder           = "order"
	FieldPayment         = "payment"
	FieldIdempotency     = "idempotency_key"
)

type StageError struct {
	Stage      string
	Message    string
	Detail     string
	OutOfStock []cart.Item
	cause      error
}

func (e *StageError) Error() string {
	if e.cause != nil {
		return e.Stage + ": " + e.Detail + ": " + e.cause.Error()
	}
	return e.Stage + ": " + e.Detail
}

func (e *StageError) Unwrap() error {
	return e.cause
}

// Is lets stdlib errors.Is see the kind marker on cause.
func (e *StageError) Is(target error) bool {
	return errs.Is(e.cause, target)
}

// NewStageError marks cause with kind and attributes it to stage.
func NewStageError(stage string, kind error, message, detail string, cause error) *StageError {
	if cause == nil {
		cause = errs.New(detail)
	}
	return &StageError{
		Stage:   stage,
		Message: message,
		Detail:  detail,
		cause:   errs.Mark(cause, kind),
	}
}

func stageErr(stage string, kind error, message, detail string, cause error) *StageError {
	return NewStageError(stage, kind, message, detail, cause)
}
