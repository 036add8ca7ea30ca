//go:build unit || e2e

package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func CreateTestUser(t *testing.T, db DBLike, email string) uuid.UUID {
	t.Helper()

	userID := uuid.New()
	ctx := context.Background()

	tag, err := db.Exec(ctx, "INSERT INTO users (id, name, email, phone) VALUES ($1, $2, $3, $4) ON CONFLICT (email) DO NOTHING",
		userID, "Test Buyer", email, "081234567890")
	require.NoError(t, err)

	if tag.RowsAffected() == 0 {
		_ = db.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&userID)
	}

	return userID
}

// CreateTestAddress stores a shipping address for userID in the given RajaOngkir city.
func CreateTestAddress(t *testing.T, db DBLike, userID uuid.UUID, cityID string) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(context.Background(), `
		INSERT INTO user_shipping_addresses
		    (user_id, label_place, recipient, phone_number, email, address, province, city, city_id, district, postal_code)
		VALUES ($1, 'Home', 'Test Buyer', '081234567890', 'buyer@example.com', 'Jl. Merdeka 1', 'DKI Jakarta', 'Jakarta Selatan', $2, 'Kebayoran Baru', '12110')
		RETURNING id`, userID, cityID).Scan(&id)
	require.NoError(t, err)
	return id
}

type VariantSeed struct {
	Name          string
	SKU           string
	Price         int64
	DiscountPrice int64
	Stock         int
	WeightGrams   int
}

// CreateTestVariant inserts a product with a single variant and returns the variant id.
func CreateTestVariant(t *testing.T, db DBLike, v VariantSeed) int64 {
	t.Helper()

	ctx := context.Background()
	var productID int64
	err := db.QueryRow(ctx, "INSERT INTO products (name) VALUES ($1) RETURNING id", v.Name).Scan(&productID)
	require.NoError(t, err)

	var variantID int64
	err = db.QueryRow(ctx, `
		INSERT INTO product_variants (product_id, sku, price, discount_price, stock, weight_grams)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`, productID, v.SKU, v.Price, v.DiscountPrice, v.Stock, v.WeightGrams).Scan(&variantID)
	require.NoError(t, err)
	return variantID
}

// CreateTestVoucher inserts an active fixed-amount voucher valid around now.
func CreateTestVoucher(t *testing.T, db DBLike, code string, amountOff int64) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(context.Background(), `
		INSERT INTO vouchers (code, amount_off, valid_from, valid_to)
		VALUES ($1, $2, now() - interval '1 day', now() + interval '1 day')
		RETURNING id`, code, amountOff).Scan(&id)
	require.NoError(t, err)
	return id
}

func StockOf(t *testing.T, db DBLike, variantID int64) int {
	t.Helper()

	var stock int
	err := db.QueryRow(context.Background(), "SELECT stock FROM product_variants WHERE id = $1", variantID).Scan(&stock)
	require.NoError(t, err)
	return stock
}

// CountRows runs a COUNT(*) against table filtered by an optional where clause.
func CountRows(t *testing.T, db DBLike, table, where string, args ...any) int {
	t.Helper()

	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	err := db.QueryRow(context.Background(), query, args...).Scan(&n)
	require.NoError(t, err)
	return n
}

var (
	buildTruncateOnce sync.Once
	truncateSQL       atomic.Value // string
)

// ResetDB truncates every table and restarts the order queue sequence.
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buildTruncateOnce.Do(func() {
		rows, err := pool.Query(ctx, `
		  SELECT 'public.' || quote_ident(tablename)
		  FROM pg_tables
		  WHERE schemaname = 'public'
		    AND tablename NOT IN ('schema_migrations')`)
		if err != nil {
			truncateSQL.Store("")
			return
		}
		defer rows.Close()
		var tables []string
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				truncateSQL.Store("")
				return
			}
			tables = append(tables, t)
		}
		if rows.Err() != nil {
			truncateSQL.Store("")
			return
		}
		if len(tables) == 0 {
			truncateSQL.Store("SELECT 1")
			return
		}
		truncateSQL.Store("TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE;")
	})
	sqlAny := truncateSQL.Load()
	if sqlAny == nil || sqlAny.(string) == "" {
		return fmt.Errorf("failed to build TRUNCATE SQL")
	}
	if _, err := pool.Exec(ctx, sqlAny.(string)); err != nil {
		return err
	}

	_, err := pool.Exec(ctx, "ALTER SEQUENCE order_queue_seq RESTART WITH 1")
	return err
}
