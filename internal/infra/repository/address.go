package repository

import (
	"context"

	"storefront-checkout/internal/domain/address"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/infra/db"

	"github.com/google/uuid"
)

const findOwnedAddress = `
SELECT id, user_id, label_place, recipient, phone_number, email, address,
       province, city, city_id, district, postal_code, country, courier_note
FROM user_shipping_addresses
WHERE id = $1 AND user_id = $2`

type AddressRepository struct {
	db db.DBTX
}

func NewAddressRepository(db db.DBTX) *AddressRepository {
	return &AddressRepository{db: db}
}

// FindOwned filters by owner in SQL so a foreign id is indistinguishable from a missing one.
func (r *AddressRepository) FindOwned(ctx context.Context, id int64, userID uuid.UUID) (*address.Address, error) {
	var a address.Address
	err := r.db.QueryRow(ctx, findOwnedAddress, id, userID).Scan(
		&a.ID, &a.UserID, &a.Label, &a.Recipient, &a.Phone, &a.Email, &a.Street,
		&a.Province, &a.City, &a.CityID, &a.District, &a.PostalCode, &a.Country, &a.CourierNote,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find owned address", err)
	}
	return &a, nil
}
