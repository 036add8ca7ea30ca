package commands

import (
	"context"

	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/pkg/errs"
)

var ErrInvalidCartLine = errs.New("invalid cart line")

//go:generate mockgen -source=cart.go -destination=../../../tests/mock/commands/cart.go -package=commandsmock

type CartCommands interface {
	Check(ctx context.Context, lines []cart.Line) (*cart.CheckResult, error)
}

type cartAggregator struct {
	variants VariantReader
}

func NewCartAggregator(variants VariantReader) CartCommands {
	return &cartAggregator{variants: variants}
}

// Check is read-only; checkout runs it once before and once after the rate lookup.
func (a *cartAggregator) Check(ctx context.Context, lines []cart.Line) (*cart.CheckResult, error) {
	if err := cart.ValidateLines(lines); err != nil {
		return nil, errs.Mark(errs.Mark(err, ErrInvalidCartLine), ErrValidation)
	}

	if len(lines) == 0 {
		return cart.Group(nil, nil), nil
	}

	snapshots, err := a.variants.FindByIDs(ctx, cart.VariantIDs(lines))
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return cart.Group(lines, nil), nil
		}
		return nil, errs.Mark(err, ErrPersistence)
	}

	return cart.Group(lines, snapshots), nil
}
