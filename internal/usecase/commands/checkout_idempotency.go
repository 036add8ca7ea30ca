package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/usecase/shared"
)

const (
	checkoutEndpoint = "POST /api/checkout"
	idempotencyTTL   = 24 * time.Hour
)

// beginIdempotent claims the key for this request. A non-nil result replays a completed checkout.
func (u *checkoutUseCaseImpl) beginIdempotent(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	key := *in.IdempotencyKey
	hash := requestHash(in)
	now := u.clock.Now()
	repo := u.uow.Direct().Idempotency()

	inserted, err := repo.TryInsert(ctx, key, in.UserID, checkoutEndpoint, hash, now.Add(idempotencyTTL))
	if err != nil {
		return nil, stageErr(FieldIdempotency, ErrPersistence, "Idempotency check failed", "Idempotency check failed", err)
	}
	if inserted {
		return nil, nil
	}

	existing, err := repo.Get(ctx, key, in.UserID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, stageErr(FieldIdempotency, ErrIdempotencyInProgress, "Checkout is being processed", "Checkout is being processed", err)
		}
		return nil, stageErr(FieldIdempotency, ErrPersistence, "Idempotency check failed", "Idempotency check failed", err)
	}

	if existing.RequestHash != hash {
		return nil, stageErr(FieldIdempotency, ErrIdempotencyMismatch,
			"Duplicate checkout request with different parameters", "Idempotency key was used with a different request", nil)
	}

	switch existing.Status {
	case shared.IdempotencyCompleted:
		if existing.ResultOrderID == nil {
			return nil, stageErr(FieldIdempotency, ErrInternal, "Idempotency record is incomplete", "Completed request missing result order", nil)
		}
		o, err := u.uow.Direct().Orders().FindByID(ctx, *existing.ResultOrderID)
		if err != nil {
			return nil, stageErr(FieldOrder, ErrPersistence, "Order lookup failed", "Order lookup failed", err)
		}
		return &CheckoutResult{
			OrderID:      o.ID,
			UUID:         o.UUID,
			OrderNumber:  o.Numbers.InvoiceNumber,
			PaymentToken: o.PaymentToken,
			Replayed:     true,
		}, nil

	case shared.IdempotencyProcessing:
		if existing.ExpiresAt.Before(now) {
			claimed, err := repo.ClaimExpired(ctx, key, in.UserID, hash, now, now.Add(idempotencyTTL))
			if err != nil {
				return nil, stageErr(FieldIdempotency, ErrPersistence, "Idempotency check failed", "Idempotency check failed", err)
			}
			if claimed {
				return nil, nil
			}
		}
		return nil, stageErr(FieldIdempotency, ErrIdempotencyInProgress, "Checkout is being processed", "Checkout is being processed", nil)

	default:
		return nil, stageErr(FieldIdempotency, ErrInternal, "Idempotency check failed", "Unknown idempotency status "+existing.Status, nil)
	}
}

// releaseIdempotencyKey lets the client retry with the same key after a failed checkout.
func (u *checkoutUseCaseImpl) releaseIdempotencyKey(ctx context.Context, in CheckoutInput) {
	if err := u.uow.Direct().Idempotency().Delete(ctx, *in.IdempotencyKey, in.UserID); err != nil {
		slog.Warn("failed to release idempotency key",
			"key", in.IdempotencyKey.String(),
			"user_id", in.UserID.String(),
			"error", err.Error())
	}
}

func requestHash(in CheckoutInput) string {
	body := struct {
		Shipping  int64         `json:"shipping"`
		Billing   int64         `json:"billing"`
		Same      bool          `json:"same"`
		Carrier   string        `json:"carrier"`
		Service   string        `json:"service"`
		Lines     []lineForHash `json:"lines"`
		VoucherID *int64        `json:"voucher_id"`
	}{
		Shipping:  in.ShippingAddressID,
		Billing:   in.BillingAddressID,
		Same:      in.SameAsShipping,
		Carrier:   in.Courier.Carrier,
		Service:   in.Courier.Service,
		VoucherID: in.VoucherID,
	}
	for _, l := range in.Lines {
		body.Lines = append(body.Lines, lineForHash{VariantID: l.VariantID, Quantity: l.Quantity, Note: l.Note})
	}

	data, _ := json.Marshal(body)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type lineForHash struct {
	VariantID int64  `json:"v"`
	Quantity  int    `json:"q"`
	Note      string `json:"n"`
}
