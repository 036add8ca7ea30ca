package components

import (
	"storefront-checkout/internal/handler"
	"storefront-checkout/internal/handler/api"
	"storefront-checkout/internal/handler/middleware"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewCheckoutHandler,
		api.NewOrderHandler,
		middleware.NewAuthMiddleware,
		newHandlers,
	),
	fx.Invoke(handler.NewRouter),
)

func newHandlers(checkout *api.CheckoutHandler, order *api.OrderHandler, auth *middleware.AuthMiddleware) handler.Handlers {
	return handler.Handlers{Checkout: checkout, Order: order, Auth: auth}
}
