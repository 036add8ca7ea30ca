package commands

import (
	"context"

	"storefront-checkout/internal/domain/address"
	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/domain/shipping"
	"storefront-checkout/internal/usecase/shared"

	"github.com/google/uuid"
)

// Reads used by commands outside the checkout transaction.
type VariantReader interface {
	FindByIDs(ctx context.Context, ids []int64) (map[int64]cart.VariantSnapshot, error)
}

type AddressRepository interface {
	FindOwned(ctx context.Context, id int64, userID uuid.UUID) (*address.Address, error)
}

type CustomerReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*shared.CustomerSnapshot, error)
}

// External collaborators.
type RateClient interface {
	GetRates(ctx context.Context, route shipping.Route) ([]shipping.Quote, error)
}

type PaymentGateway interface {
	CreateSession(ctx context.Context, req PaymentRequest) (string, error)
}
