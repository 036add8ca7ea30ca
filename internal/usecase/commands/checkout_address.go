package commands

import (
	"context"

	"storefront-checkout/internal/domain/address"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/pkg/errs"

	"github.com/google/uuid"
)

type addressResolver struct {
	repo AddressRepository
}

// resolve returns address.ErrAddressNotFound when id is missing or owned by someone else.
func (r addressResolver) resolve(ctx context.Context, id int64, userID uuid.UUID) (*address.Address, error) {
	a, err := r.repo.FindOwned(ctx, id, userID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, address.ErrAddressNotFound
		}
		return nil, errs.Wrap(err, "resolve address")
	}
	if !a.OwnedBy(userID) {
		return nil, address.ErrAddressNotFound
	}
	return a, nil
}

func (r addressResolver) resolvePair(ctx context.Context, in CheckoutInput) (ship, bill *address.Address, se *StageError) {
	ship, err := r.resolve(ctx, in.ShippingAddressID, in.UserID)
	if err != nil {
		return nil, nil, addressStageErr(FieldShippingAddress, "Shipping address not found", err)
	}

	if in.SameAsShipping || in.BillingAddressID == in.ShippingAddressID {
		return ship, ship, nil
	}

	bill, err = r.resolve(ctx, in.BillingAddressID, in.UserID)
	if err != nil {
		return nil, nil, addressStageErr(FieldBillingAddress, "Billing address not found", err)
	}
	return ship, bill, nil
}

func addressStageErr(field, msg string, err error) *StageError {
	if errs.Is(err, address.ErrAddressNotFound) {
		return stageErr(field, ErrNotFound, msg, msg, err)
	}
	return stageErr(field, ErrPersistence, "Address lookup failed", "Address lookup failed", err)
}
