package payment

import (
	"context"
	"errors"
	"strings"

	"storefront-checkout/internal/pkg/config"
	"storefront-checkout/internal/usecase/commands"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

type stripeIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeGateway returns the PaymentIntent client secret as the session token.
type StripeGateway struct {
	intents  stripeIntentAPI
	currency string
}

func NewStripeGateway(cfg config.PaymentConfig, backends *stripe.Backends) (*StripeGateway, error) {
	apiKey := strings.TrimSpace(cfg.StripeAPIKey)
	if apiKey == "" {
		return nil, errors.New("stripe: api key is required")
	}
	sc := client.New(apiKey, backends)
	return newStripeGateway(sc.PaymentIntents, cfg.StripeCurrency), nil
}

func newStripeGateway(intents stripeIntentAPI, currency string) *StripeGateway {
	if currency == "" {
		currency = "idr"
	}
	return &StripeGateway{intents: intents, currency: strings.ToLower(currency)}
}

func (g *StripeGateway) CreateSession(ctx context.Context, req commands.PaymentRequest) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.GrossAmount),
		Currency:    stripe.String(g.currency),
		Description: stripe.String(req.OrderNumber),
	}
	params.Context = ctx
	// One intent per invoice even if the call is repeated.
	params.SetIdempotencyKey(req.OrderNumber)
	params.AddMetadata("order_number", req.OrderNumber)
	if req.Customer.Email != "" {
		params.ReceiptEmail = stripe.String(req.Customer.Email)
	}

	pi, err := g.intents.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) {
			return "", &GatewayError{Provider: "stripe", StatusCode: se.HTTPStatusCode, Message: se.Msg, err: err}
		}
		return "", &GatewayError{Provider: "stripe", Message: err.Error(), err: err}
	}
	if pi.ClientSecret == "" {
		return "", &GatewayError{Provider: "stripe", Message: "empty client secret"}
	}
	return pi.ClientSecret, nil
}
