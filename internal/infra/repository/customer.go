package repository

import (
	"context"

	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/infra/db"
	"storefront-checkout/internal/usecase/shared"

	"github.com/google/uuid"
)

type CustomerRepository struct {
	db db.DBTX
}

func NewCustomerRepository(db db.DBTX) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*shared.CustomerSnapshot, error) {
	var c shared.CustomerSnapshot
	err := r.db.QueryRow(ctx, `SELECT id, name, email, phone FROM users WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Email, &c.Phone)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find customer", err)
	}
	return &c, nil
}
