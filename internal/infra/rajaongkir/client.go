package rajaongkir

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront-checkout/internal/domain/shipping"
	"storefront-checkout/internal/pkg/breaker"
	"storefront-checkout/internal/pkg/config"
	"storefront-checkout/internal/pkg/errs"
)

const maxBodyBytes = 1 << 20

// StatusError is a non-200 rajaongkir.status reported by the carrier API.
type StatusError struct {
	Code        int
	Description string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rajaongkir status %d: %s", e.Code, e.Description)
}

func (e *StatusError) UpstreamMessage() string {
	return e.Description
}

type costResponse struct {
	RajaOngkir struct {
		Status struct {
			Code        int    `json:"code"`
			Description string `json:"description"`
		} `json:"status"`
		Results []struct {
			Code  string `json:"code"`
			Name  string `json:"name"`
			Costs []struct {
				Service     string `json:"service"`
				Description string `json:"description"`
				Cost        []struct {
					Value int64  `json:"value"`
					ETD   string `json:"etd"`
					Note  string `json:"note"`
				} `json:"cost"`
			} `json:"costs"`
		} `json:"results"`
	} `json:"rajaongkir"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *breaker.Breaker[[]shipping.Quote]
}

func NewClient(cfg config.RajaOngkirConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpClient,
		breaker: breaker.New[[]shipping.Quote](breaker.Settings{
			Name: "rajaongkir",
			// A rejected route is the caller's problem, not an outage.
			Ignore: func(err error) bool {
				var se *StatusError
				return errs.As(err, &se) && se.Code >= 400 && se.Code < 500
			},
		}),
	}
}

// GetRates posts to /cost and flattens the first result into quotes.
func (c *Client) GetRates(ctx context.Context, route shipping.Route) ([]shipping.Quote, error) {
	return c.breaker.Execute(func() ([]shipping.Quote, error) {
		return c.fetch(ctx, route)
	})
}

func (c *Client) fetch(ctx context.Context, route shipping.Route) ([]shipping.Quote, error) {
	form := url.Values{}
	form.Set("origin", route.Origin)
	form.Set("destination", route.Destination)
	form.Set("weight", strconv.Itoa(route.WeightGrams))
	form.Set("courier", route.Carrier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cost", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errs.Wrap(err, "build rajaongkir request")
	}
	req.Header.Set("key", c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Wrap(err, "rajaongkir request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errs.Wrap(err, "read rajaongkir response")
	}

	var parsed costResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &StatusError{Code: resp.StatusCode, Description: http.StatusText(resp.StatusCode)}
		}
		return nil, errs.Wrap(err, "decode rajaongkir response")
	}

	status := parsed.RajaOngkir.Status
	if status.Code != http.StatusOK || resp.StatusCode != http.StatusOK {
		code := status.Code
		if code == 0 {
			code = resp.StatusCode
		}
		return nil, &StatusError{Code: code, Description: status.Description}
	}

	var quotes []shipping.Quote
	if len(parsed.RajaOngkir.Results) == 0 {
		return quotes, nil
	}
	result := parsed.RajaOngkir.Results[0]
	for _, c := range result.Costs {
		if len(c.Cost) == 0 {
			continue
		}
		quotes = append(quotes, shipping.Quote{
			Carrier:     result.Code,
			Service:     c.Service,
			Description: c.Description,
			Cost:        c.Cost[0].Value,
			ETD:         c.Cost[0].ETD,
		})
	}
	return quotes, nil
}
