package components

import (
	"time"

	"storefront-checkout/internal/infra/db"
	"storefront-checkout/internal/infra/messaging"
	"storefront-checkout/internal/infra/readstore"
	"storefront-checkout/internal/infra/repository"
	"storefront-checkout/internal/infra/uow"
	"storefront-checkout/internal/pkg/clock"
	"storefront-checkout/internal/usecase/commands"
	"storefront-checkout/internal/usecase/queries"
	"storefront-checkout/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	baseOption,
	readstoreModule,
	repositoryModule,
)

var baseOption = fx.Provide(
	NewDBTX,
)

var readstoreModule = fx.Module("persistence/readstore",
	fx.Provide(
		fx.Annotate(
			readstore.NewOrderReadStore,
			fx.As(new(queries.OrderReadStore)),
		),
	),
)

var repositoryModule = fx.Module("persistence/repository",
	fx.Provide(
		// UnitOfWork
		NewUnitOfWork,
		// Reads outside the checkout transaction
		fx.Annotate(
			repository.NewVariantRepository,
			fx.As(new(commands.VariantReader)),
		),
		fx.Annotate(
			repository.NewAddressRepository,
			fx.As(new(commands.AddressRepository)),
		),
		fx.Annotate(
			repository.NewCustomerRepository,
			fx.As(new(commands.CustomerReader)),
		),
		// Outbox
		fx.Annotate(
			repository.NewNotificationRepository,
			fx.As(new(messaging.JobStore)),
		),
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}

func NewUnitOfWork(pool *pgxpool.Pool, clk clock.Clock, loc *time.Location) shared.UnitOfWork {
	return uow.NewPostgresUoW(pool, clk, loc)
}
