package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"storefront-checkout/internal/pkg/config"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/commands"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// GatewayError keeps the provider's message for the checkout response.
type GatewayError struct {
	Provider   string
	StatusCode int
	Message    string
	err        error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.err
}

func (e *GatewayError) UpstreamMessage() string {
	return e.Message
}

type snapAPI interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

type MidtransGateway struct {
	api snapAPI
}

func NewMidtransGateway(cfg config.PaymentConfig) (*MidtransGateway, error) {
	if strings.TrimSpace(cfg.MidtransServerKey) == "" {
		return nil, errors.New("midtrans: server key is required")
	}

	env := midtrans.Sandbox
	if strings.EqualFold(cfg.MidtransEnvironment, "production") {
		env = midtrans.Production
	}

	var c snap.Client
	c.New(cfg.MidtransServerKey, env)
	return &MidtransGateway{api: &c}, nil
}

// CreateSession issues a Snap token. The SDK call is not context-aware, so ctx only bounds the wait.
func (g *MidtransGateway) CreateSession(ctx context.Context, req commands.PaymentRequest) (string, error) {
	snapReq, err := toSnapRequest(req)
	if err != nil {
		return "", err
	}

	type result struct {
		resp *snap.Response
		err  *midtrans.Error
	}
	done := make(chan result, 1)
	go func() {
		resp, merr := g.api.CreateTransaction(snapReq)
		done <- result{resp: resp, err: merr}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", &GatewayError{
				Provider:   "midtrans",
				StatusCode: r.err.StatusCode,
				Message:    r.err.Message,
				err:        r.err.RawError,
			}
		}
		if r.resp == nil || r.resp.Token == "" {
			return "", &GatewayError{Provider: "midtrans", Message: "empty snap token"}
		}
		return r.resp.Token, nil
	}
}

func toSnapRequest(req commands.PaymentRequest) (*snap.Request, error) {
	items := make([]midtrans.ItemDetails, 0, len(req.Items))
	for _, it := range req.Items {
		if it.Quantity <= 0 || it.Quantity > math.MaxInt32 {
			return nil, errs.Newf("midtrans: invalid quantity %d for %s", it.Quantity, it.ID)
		}
		items = append(items, midtrans.ItemDetails{
			ID:    it.ID,
			Name:  it.Name,
			Price: it.Price,
			Qty:   int32(it.Quantity), // #nosec G115 -- bounded above
		})
	}

	return &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderNumber,
			GrossAmt: req.GrossAmount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.Customer.FirstName,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
		Items: &items,
	}, nil
}
