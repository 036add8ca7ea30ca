package bootstrap

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"storefront-checkout/internal/infra/db"
	"storefront-checkout/internal/infra/repository"
	"storefront-checkout/internal/pkg/clock"
	"storefront-checkout/internal/pkg/config"

	"go.uber.org/fx"
)

var MaintenanceModule = fx.Module("maintenance",
	fx.Invoke(StartIdempotencySweeper),
)

// StartIdempotencySweeper drops expired idempotency keys in the background.
// Expired keys are also reclaimable inline, so a missed sweep only costs table size.
func StartIdempotencySweeper(lc fx.Lifecycle, cfg config.Config, pool db.DBTX, clk clock.Clock) {
	interval := cfg.Checkout.IdempotencySweep
	if interval <= 0 {
		return
	}
	repo := repository.NewIdempotencyRepository(pool)

	var (
		cancel context.CancelFunc
		wg     sync.WaitGroup
	)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			wg.Add(1)
			go func() {
				defer wg.Done()
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						n, err := repo.DeleteExpired(ctx, clk.Now())
						if err != nil && ctx.Err() == nil {
							slog.Error("idempotency sweep failed", "error", err.Error())
							continue
						}
						if n > 0 {
							slog.Info("expired idempotency keys removed", "count", n)
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			if cancel != nil {
				cancel()
			}
			wg.Wait()
			return nil
		},
	})
}
