package rajaongkir

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"storefront-checkout/internal/domain/shipping"

	"github.com/redis/go-redis/v9"
)

type RateSource interface {
	GetRates(ctx context.Context, route shipping.Route) ([]shipping.Quote, error)
}

// CachedClient memoizes quotes per route in Redis. Cache faults never fail a lookup.
type CachedClient struct {
	next RateSource
	rdb  redis.UniversalClient
	ttl  time.Duration
}

func NewCachedClient(next RateSource, rdb redis.UniversalClient, ttl time.Duration) *CachedClient {
	return &CachedClient{next: next, rdb: rdb, ttl: ttl}
}

func (c *CachedClient) GetRates(ctx context.Context, route shipping.Route) ([]shipping.Quote, error) {
	key := cacheKey(route)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var quotes []shipping.Quote
		if jerr := json.Unmarshal(raw, &quotes); jerr == nil {
			return quotes, nil
		}
		slog.Warn("discarding unreadable rate cache entry", "key", key)
	case err != redis.Nil:
		slog.Warn("rate cache read failed", "key", key, "error", err.Error())
	}

	quotes, err := c.next.GetRates(ctx, route)
	if err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return quotes, nil
	}

	if data, jerr := json.Marshal(quotes); jerr == nil {
		if serr := c.rdb.Set(ctx, key, data, c.ttl).Err(); serr != nil {
			slog.Warn("rate cache write failed", "key", key, "error", serr.Error())
		}
	}
	return quotes, nil
}

func cacheKey(r shipping.Route) string {
	return fmt.Sprintf("rajaongkir:cost:%s:%s:%d:%s", r.Origin, r.Destination, r.WeightGrams, r.Carrier)
}
