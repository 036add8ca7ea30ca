package payment

import (
	"strings"

	"storefront-checkout/internal/pkg/config"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/commands"
)

// NewGateway picks the provider named by PAYMENT_PROVIDER.
func NewGateway(cfg config.PaymentConfig) (commands.PaymentGateway, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "midtrans":
		return NewMidtransGateway(cfg)
	case "stripe":
		return NewStripeGateway(cfg, nil)
	default:
		return nil, errs.Newf("unknown payment provider %q", cfg.Provider)
	}
}
