//go:build unit

package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-checkout/internal/pkg/config"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/commands"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"
)

type fakeSnap struct {
	got   *snap.Request
	resp  *snap.Response
	err   *midtrans.Error
	delay time.Duration
}

func (f *fakeSnap) CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error) {
	f.got = req
	time.Sleep(f.delay)
	return f.resp, f.err
}

type fakeIntents struct {
	got *stripe.PaymentIntentParams
	pi  *stripe.PaymentIntent
	err error
}

func (f *fakeIntents) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.got = params
	return f.pi, f.err
}

func samplePaymentRequest() commands.PaymentRequest {
	return commands.PaymentRequest{
		OrderNumber: "INV/20260305/000001",
		GrossAmount: 108000,
		Items: []commands.PaymentItem{
			{ID: "TEE-M", Name: "Tee", Price: 50000, Quantity: 2},
			{ID: "shipping-jne-REG", Name: "Shipping", Price: 18000, Quantity: 1},
			{ID: "HEMAT10", Name: "Voucher", Price: -10000, Quantity: 1},
		},
		Customer: commands.PaymentCustomer{FirstName: "Ayu", Email: "ayu@example.com", Phone: "0812"},
	}
}

func TestMidtransGateway_CreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("success: maps lines and returns the snap token", func(t *testing.T) {
		api := &fakeSnap{resp: &snap.Response{Token: "snap-123"}}
		g := &MidtransGateway{api: api}

		token, err := g.CreateSession(ctx, samplePaymentRequest())

		require.NoError(t, err)
		assert.Equal(t, "snap-123", token)
		assert.Equal(t, "INV/20260305/000001", api.got.TransactionDetails.OrderID)
		assert.Equal(t, int64(108000), api.got.TransactionDetails.GrossAmt)
		require.NotNil(t, api.got.Items)
		require.Len(t, *api.got.Items, 3)
		assert.Equal(t, int32(2), (*api.got.Items)[0].Qty)
		assert.Equal(t, int64(-10000), (*api.got.Items)[2].Price)
		assert.Equal(t, "ayu@example.com", api.got.CustomerDetail.Email)
	})

	t.Run("error: provider message is kept", func(t *testing.T) {
		api := &fakeSnap{err: &midtrans.Error{Message: "transaction_details.gross_amount is not equal to the sum of item_details", StatusCode: 400}}
		g := &MidtransGateway{api: api}

		_, err := g.CreateSession(ctx, samplePaymentRequest())

		var ge *GatewayError
		require.True(t, errors.As(err, &ge))
		assert.Equal(t, 400, ge.StatusCode)
		assert.Contains(t, ge.UpstreamMessage(), "gross_amount")
	})

	t.Run("error: deadline ends the wait", func(t *testing.T) {
		api := &fakeSnap{resp: &snap.Response{Token: "late"}, delay: 200 * time.Millisecond}
		g := &MidtransGateway{api: api}

		tctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()

		_, err := g.CreateSession(tctx, samplePaymentRequest())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("error: empty token", func(t *testing.T) {
		g := &MidtransGateway{api: &fakeSnap{resp: &snap.Response{}}}

		_, err := g.CreateSession(ctx, samplePaymentRequest())

		var ge *GatewayError
		assert.True(t, errors.As(err, &ge))
	})
}

func TestStripeGateway_CreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("success: returns the client secret", func(t *testing.T) {
		api := &fakeIntents{pi: &stripe.PaymentIntent{ClientSecret: "pi_secret"}}
		g := newStripeGateway(api, "IDR")

		token, err := g.CreateSession(ctx, samplePaymentRequest())

		require.NoError(t, err)
		assert.Equal(t, "pi_secret", token)
		assert.Equal(t, int64(108000), *api.got.Amount)
		assert.Equal(t, "idr", *api.got.Currency)
		assert.Equal(t, "INV/20260305/000001", *api.got.IdempotencyKey)
	})

	t.Run("error: stripe message is kept", func(t *testing.T) {
		api := &fakeIntents{err: &stripe.Error{Msg: "Amount must be at least Rp 2.500", HTTPStatusCode: 400}}
		g := newStripeGateway(api, "idr")

		_, err := g.CreateSession(ctx, samplePaymentRequest())

		var ge *GatewayError
		require.True(t, errors.As(err, &ge))
		assert.Equal(t, "Amount must be at least Rp 2.500", ge.UpstreamMessage())
	})
}

func TestNewGateway(t *testing.T) {
	g, err := NewGateway(config.PaymentConfig{Provider: "midtrans", MidtransServerKey: "SB-Mid-server-test"})
	require.NoError(t, err)
	assert.IsType(t, &MidtransGateway{}, g)

	g, err = NewGateway(config.PaymentConfig{Provider: "stripe", StripeAPIKey: "sk_test_123"})
	require.NoError(t, err)
	assert.IsType(t, &StripeGateway{}, g)

	_, err = NewGateway(config.PaymentConfig{Provider: "paypal"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown payment provider "paypal"`)
	assert.Greater(t, len(errs.ExtractStackLines(err, 0)), 1, "error should carry a stack trace")

	_, err = NewGateway(config.PaymentConfig{Provider: "midtrans"})
	assert.Error(t, err)
}
