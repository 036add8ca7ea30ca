//go:build unit

package repository_test

import (
	"context"
	"errors"
	"testing"

	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/infra/repository"
	"storefront-checkout/internal/usecase/shared"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockRepository_Reserve(t *testing.T) {
	ctx := context.Background()

	t.Run("success: decrements in variant order", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE product_variants\s+SET stock = stock - \$2`).
			WithArgs(int64(3), 1).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(`UPDATE product_variants\s+SET stock = stock - \$2`).
			WithArgs(int64(7), 2).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := repository.NewStockRepository(mock)
		err = repo.Reserve(ctx, []shared.StockLine{
			{VariantID: 7, SKU: "TEE-M", Quantity: 2},
			{VariantID: 3, SKU: "CAP", Quantity: 1},
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error: zero rows updated is a shortage", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE product_variants`).
			WithArgs(int64(7), 2).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := repository.NewStockRepository(mock)
		err = repo.Reserve(ctx, []shared.StockLine{{VariantID: 7, SKU: "TEE-M", Quantity: 2}})

		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		var shortage *shared.StockShortageError
		require.True(t, errors.As(err, &shortage))
		assert.Equal(t, "TEE-M", shortage.SKU)
		assert.Equal(t, 2, shortage.Requested)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error: database failure is wrapped", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE product_variants`).
			WithArgs(int64(7), 2).
			WillReturnError(errors.New("connection reset"))

		repo := repository.NewStockRepository(mock)
		err = repo.Reserve(ctx, []shared.StockLine{{VariantID: 7, SKU: "TEE-M", Quantity: 2}})

		require.Error(t, err)
		assert.True(t, infra.IsKind(err, infra.KindDBFailure))
		assert.NotErrorIs(t, err, shared.ErrInsufficientStock)
	})
}

func TestStockRepository_Release(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`SET stock = stock \+ \$2`).
		WithArgs(int64(7), 2).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := repository.NewStockRepository(mock)
	require.NoError(t, repo.Release(context.Background(), []shared.StockLine{{VariantID: 7, Quantity: 2}}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
