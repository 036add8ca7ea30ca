package bootstrap

import (
	"context"
	"log/slog"

	"storefront-checkout/internal/infra/messaging"
	"storefront-checkout/internal/pkg/clock"
	"storefront-checkout/internal/pkg/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
)

var MessagingModule = fx.Module("messaging",
	fx.Provide(
		NewAMQPConnection,
		NewPublisher,
		NewDispatcher,
	),
	fx.Invoke(func(*messaging.Dispatcher) {}),
)

func NewAMQPConnection(lc fx.Lifecycle, cfg config.Config) (*amqp.Connection, error) {
	conn, err := amqp.Dial(cfg.AMQP.URL)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			slog.Info("closing amqp connection")
			return conn.Close()
		},
	})
	return conn, nil
}

func NewPublisher(lc fx.Lifecycle, conn *amqp.Connection) (*messaging.Publisher, error) {
	pub, err := messaging.NewPublisher(conn)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return pub.Close()
		},
	})
	return pub, nil
}

func NewDispatcher(lc fx.Lifecycle, cfg config.Config, store messaging.JobStore, pub *messaging.Publisher, clk clock.Clock) *messaging.Dispatcher {
	d := messaging.NewDispatcher(store, pub, clk, cfg.AMQP.PollInterval, cfg.AMQP.BatchSize)

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			d.Start()
			return nil
		},
		OnStop: func(_ context.Context) error {
			d.Stop()
			return nil
		},
	})
	return d
}
