package bootstrap

import (
	"storefront-checkout/cmd/bootstrap/components"

	"go.uber.org/fx"
)

var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	DBModule,
	JWTModule,
	ClientsModule,
	MessagingModule,
	MaintenanceModule,
	components.PersistenceModule,
	components.UseCaseModule,
	components.HandlerModule,
)
