package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"storefront-checkout/internal/infra/payment"
	"storefront-checkout/internal/infra/rajaongkir"
	"storefront-checkout/internal/pkg/config"
	"storefront-checkout/internal/usecase/commands"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var ClientsModule = fx.Module("clients",
	fx.Provide(
		NewRedisClient,
		NewRateClient,
		NewPaymentGateway,
	),
)

func NewRedisClient(lc fx.Lifecycle, cfg config.Config) redis.UniversalClient {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// The rate cache degrades to direct calls, so an unreachable redis only warns.
			if err := rdb.Ping(ctx).Err(); err != nil {
				slog.Warn("redis unreachable, rate cache disabled until it recovers", "addr", cfg.Redis.Addr, "error", err)
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			return rdb.Close()
		},
	})
	return rdb
}

func NewRateClient(cfg config.Config, rdb redis.UniversalClient) commands.RateClient {
	httpClient := &http.Client{Timeout: 15 * time.Second}
	return rajaongkir.NewCachedClient(rajaongkir.NewClient(cfg.RajaOngkir, httpClient), rdb, cfg.RajaOngkir.CacheTTL)
}

func NewPaymentGateway(cfg config.Config) (commands.PaymentGateway, error) {
	return payment.NewGateway(cfg.Payment)
}
