package bootstrap

import (
	"time"

	"storefront-checkout/internal/pkg/config"

	"go.uber.org/fx"
)

var ConfigModule = fx.Module("config",
	fx.Provide(
		config.LoadConfig,
		NewLocation,
	),
)

// NewLocation is the business timezone used for invoice dates.
func NewLocation(cfg config.Config) (*time.Location, error) {
	return time.LoadLocation(cfg.DB.TimeZone)
}
