package commands

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"storefront-checkout/internal/domain/address"
	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/domain/checkout"
	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/domain/shipping"
	"storefront-checkout/internal/domain/voucher"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/pkg/clock"
	"storefront-checkout/internal/pkg/config"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/shared"

	"github.com/google/uuid"
)

const (
	OrderCreatedTopic  = "order.created.v1"
	OrderCanceledTopic = "order.canceled.v1"
	orderJobKind       = "order"

	defaultRateTimeout    = 8 * time.Second
	defaultPaymentTimeout = 10 * time.Second
)

type CheckoutInput struct {
	UserID            uuid.UUID
	IdempotencyKey    *uuid.UUID
	ShippingAddressID int64
	BillingAddressID  int64
	SameAsShipping    bool
	Courier           shipping.Selection
	Lines             []cart.Line
	VoucherID         *int64
}

type CheckoutResult struct {
	OrderID      int64
	UUID         uuid.UUID
	OrderNumber  string
	PaymentToken string
	Totals       order.Totals
	Replayed     bool
}

//go:generate mockgen -source=checkout.go -destination=../../../tests/mock/commands/checkout.go -package=commandsmock

type CheckoutCommands interface {
	PlaceOrder(ctx context.Context, in CheckoutInput) (*CheckoutResult, error)
}

// upstreamMessager is implemented by external errors that carry the provider's own message.
type upstreamMessager interface {
	UpstreamMessage() string
}

type placedOrder struct {
	order    *order.Order
	computed *computedTotals
	stock    []shared.StockLine
}

type checkoutUseCaseImpl struct {
	uow         shared.UnitOfWork
	cart        CartCommands
	addresses   addressResolver
	customers   CustomerReader
	rates       RateClient
	payments    paymentIssuer
	calculator  orderCalculator
	clock       clock.Clock
	origin      string
	rateTimeout time.Duration
	notes       config.CheckoutConfig
}

func NewCheckoutUseCase(
	uow shared.UnitOfWork,
	cartCommands CartCommands,
	addresses AddressRepository,
	customers CustomerReader,
	rates RateClient,
	gateway PaymentGateway,
	cfg config.Config,
	clk clock.Clock,
) CheckoutCommands {
	rateTimeout := cfg.Checkout.RateTimeout
	if rateTimeout <= 0 {
		rateTimeout = defaultRateTimeout
	}
	paymentTimeout := cfg.Checkout.PaymentTimeout
	if paymentTimeout <= 0 {
		paymentTimeout = defaultPaymentTimeout
	}

	return &checkoutUseCaseImpl{
		uow:         uow,
		cart:        cartCommands,
		addresses:   addressResolver{repo: addresses},
		customers:   customers,
		rates:       rates,
		payments:    paymentIssuer{gateway: gateway, timeout: paymentTimeout},
		clock:       clk,
		origin:      cfg.RajaOngkir.OriginCity,
		rateTimeout: rateTimeout,
		notes:       cfg.Checkout,
	}
}

// PlaceOrder runs detached from the caller's cancellation so an abandoned request
// never leaves a half-written checkout. Only the per-call timeouts bound it.
func (u *checkoutUseCaseImpl) PlaceOrder(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	ctx = context.WithoutCancel(ctx)

	if in.IdempotencyKey != nil {
		replay, err := u.beginIdempotent(ctx, in)
		if err != nil {
			return nil, err
		}
		if replay != nil {
			return replay, nil
		}
	}

	res, err := u.run(ctx, in)
	if err != nil {
		if in.IdempotencyKey != nil {
			u.releaseIdempotencyKey(ctx, in)
		}
		return nil, err
	}
	return res, nil
}

func (u *checkoutUseCaseImpl) run(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	progress := checkout.NewProgress()
	fail := func(se *StageError) (*CheckoutResult, error) {
		progress.Fail(se)
		slog.Warn("checkout failed",
			"user_id", in.UserID.String(),
			"stage", progress.FailedAt().String(),
			"field", se.Stage,
			"error", se.Error())
		return nil, se
	}
	advance := func(p *checkout.Progress, next checkout.Stage) *StageError {
		if err := p.Advance(next); err != nil {
			return stageErr(FieldOrder, ErrInternal, "Checkout failed", "Illegal checkout transition to "+next.String(), err)
		}
		return nil
	}

	// Fail fast on the cart before any address, rate or stock work.
	first, se := u.checkCart(ctx, in.Lines)
	if se != nil {
		return fail(se)
	}

	ship, bill, se := u.addresses.resolvePair(ctx, in)
	if se != nil {
		return fail(se)
	}

	customer, se := u.loadCustomer(ctx, in.UserID)
	if se != nil {
		return fail(se)
	}

	if in.VoucherID != nil {
		if se := u.checkVoucher(ctx, *in.VoucherID); se != nil {
			return fail(se)
		}
	}
	if se := advance(progress, checkout.StageAddressChecked); se != nil {
		return fail(se)
	}

	quote, se := u.matchRate(ctx, ship, first.TotalWeight, in.Courier)
	if se != nil {
		return fail(se)
	}
	if se := advance(progress, checkout.StageRatesMatched); se != nil {
		return fail(se)
	}

	// The rate lookup left a window open; price and stock are read again before reserving.
	rechecked, se := u.checkCart(ctx, in.Lines)
	if se != nil {
		return fail(se)
	}

	draft := order.Draft{
		UserID:            in.UserID,
		ContactEmail:      customer.Email,
		Shipping:          ship,
		Billing:           bill,
		Quote:             quote,
		VoucherID:         in.VoucherID,
		InvoiceNote:       u.notes.InvoiceNote,
		DeliveryOrderNote: u.notes.DeliveryOrderNote,
		Country:           u.notes.Country,
	}

	var (
		placed  *placedOrder
		attempt *checkout.Progress
	)
	base := progress
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		attempt = base.Fork()
		p, err := u.persist(ctx, tx, attempt, advance, draft, rechecked)
		if err != nil {
			return err
		}
		placed = p
		return nil
	})
	if attempt != nil {
		progress = attempt
	}
	if err != nil {
		var se *StageError
		if errors.As(err, &se) {
			return fail(se)
		}
		return fail(stageErr(FieldOrder, ErrPersistence, "Order insertion failed", "Order creation failed", err))
	}
	token, se := u.issueToken(ctx, placed, customer)
	if se != nil {
		u.compensate(ctx, placed, in)
		return fail(se)
	}

	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := tx.Orders().SetPaymentToken(ctx, placed.order.ID, token); err != nil {
			return err
		}
		if in.IdempotencyKey != nil {
			return tx.Idempotency().MarkCompleted(ctx, *in.IdempotencyKey, in.UserID, placed.order.ID)
		}
		return nil
	})
	if err != nil {
		u.compensate(ctx, placed, in)
		return fail(stageErr(FieldPayment, ErrPersistence, "Payment token could not be stored", "Payment token could not be stored", err))
	}
	placed.order.PaymentToken = token
	if se := advance(progress, checkout.StageTokenIssued); se != nil {
		return fail(se)
	}

	slog.Info("checkout completed",
		"user_id", in.UserID.String(),
		"order_id", placed.order.ID,
		"order_number", placed.order.Numbers.InvoiceNumber,
		"grand_total", placed.computed.Totals.GrandTotal)

	return &CheckoutResult{
		OrderID:      placed.order.ID,
		UUID:         placed.order.UUID,
		OrderNumber:  placed.order.Numbers.InvoiceNumber,
		PaymentToken: token,
		Totals:       placed.computed.Totals,
	}, nil
}

// persist reserves stock, numbers the order and writes every row in one transaction.
func (u *checkoutUseCaseImpl) persist(
	ctx context.Context,
	tx shared.Tx,
	p *checkout.Progress,
	advance func(*checkout.Progress, checkout.Stage) *StageError,
	draft order.Draft,
	checked *cart.CheckResult,
) (*placedOrder, error) {
	lines := stockLines(checked.Items)
	if err := tx.Stock().Reserve(ctx, lines); err != nil {
		var shortage *shared.StockShortageError
		if errors.As(err, &shortage) {
			se := stageErr(FieldOutOfStock, ErrOutOfStock, "Item out of stock", shortage.Error(), err)
			se.OutOfStock = itemsFor(checked.Items, shortage.VariantID)
			return nil, se
		}
		return nil, stageErr(FieldOrder, ErrPersistence, "Stock reservation failed", "Stock reservation failed", err)
	}
	if se := advance(p, checkout.StageStockReserved); se != nil {
		return nil, se
	}

	numbers, err := tx.Sequence().Next(ctx)
	if err != nil {
		return nil, stageErr(FieldOrder, ErrPersistence, "Order number generation failed", "Order creation failed", err)
	}

	now := u.clock.Now()
	o := order.New(draft, numbers, uuid.New(), now)
	id, err := tx.Orders().Create(ctx, o)
	if err != nil {
		return nil, stageErr(FieldOrder, ErrPersistence, "Order insertion failed", "Order creation failed", err)
	}
	o.ID = id

	if err := tx.LineItems().BulkInsert(ctx, order.LineItemsFrom(id, checked.Items)); err != nil {
		return nil, stageErr(FieldOrder, ErrPersistence, "Order insertion failed", "Order products could not be saved", err)
	}

	if draft.VoucherID != nil {
		redemption := voucher.Redemption{VoucherID: *draft.VoucherID, UserID: draft.UserID, OrderID: id, CreatedAt: now}
		if err := tx.Redemptions().Create(ctx, redemption); err != nil {
			return nil, stageErr(FieldVoucher, ErrPersistence, "Voucher redemption failed", "Voucher redemption failed", err)
		}
	}
	if se := advance(p, checkout.StageOrderPersisted); se != nil {
		return nil, se
	}

	computed, err := u.calculator.Calculate(ctx, tx, id)
	if err != nil {
		return nil, stageErr(FieldOrder, ErrPersistence, "Order calculation failed", "Order totals could not be computed", err)
	}
	if se := advance(p, checkout.StageTotalsComputed); se != nil {
		return nil, se
	}

	if err := u.enqueueOrderEvent(ctx, tx, OrderCreatedTopic, o, computed.Totals); err != nil {
		return nil, stageErr(FieldOrder, ErrPersistence, "Order insertion failed", "Order event could not be queued", err)
	}

	return &placedOrder{order: o, computed: computed, stock: lines}, nil
}

func (u *checkoutUseCaseImpl) checkCart(ctx context.Context, lines []cart.Line) (*cart.CheckResult, *StageError) {
	res, err := u.cart.Check(ctx, lines)
	if err != nil {
		if errs.Is(err, ErrValidation) {
			return nil, stageErr(FieldProduct, ErrValidation, "Invalid cart data", err.Error(), err)
		}
		return nil, stageErr(FieldOrder, ErrPersistence, "Cart check failed", "Cart could not be checked", err)
	}

	if len(res.OutOfStock) > 0 {
		se := stageErr(FieldOutOfStock, ErrOutOfStock, "Item out of stock", "Some items are out of stock", nil)
		se.OutOfStock = res.OutOfStock
		return nil, se
	}
	if len(res.Items) == 0 {
		return nil, stageErr(FieldCartEmpty, ErrValidation, "Cart empty", "Cart is empty, please add some products", nil)
	}
	return res, nil
}

func (u *checkoutUseCaseImpl) loadCustomer(ctx context.Context, userID uuid.UUID) (*shared.CustomerSnapshot, *StageError) {
	c, err := u.customers.FindByID(ctx, userID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, stageErr(FieldOrder, ErrNotFound, "Customer not found", "Customer not found", err)
		}
		return nil, stageErr(FieldOrder, ErrPersistence, "Customer lookup failed", "Customer lookup failed", err)
	}
	return c, nil
}

func (u *checkoutUseCaseImpl) checkVoucher(ctx context.Context, id int64) *StageError {
	snap, err := u.uow.Direct().Vouchers().FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return stageErr(FieldVoucher, ErrNotFound, "Voucher not found", "Voucher not found", err)
		}
		return stageErr(FieldVoucher, ErrPersistence, "Voucher lookup failed", "Voucher lookup failed", err)
	}

	v, err := snap.ToDomain()
	if err != nil {
		return stageErr(FieldVoucher, ErrValidation, "Invalid voucher", err.Error(), err)
	}
	if err := v.ValidateUsage(u.clock.Now()); err != nil {
		return stageErr(FieldVoucher, ErrValidation, "Invalid voucher", err.Error(), err)
	}
	return nil
}

func (u *checkoutUseCaseImpl) matchRate(ctx context.Context, ship *address.Address, weight int, sel shipping.Selection) (shipping.Quote, *StageError) {
	rctx, cancel := context.WithTimeout(ctx, u.rateTimeout)
	defer cancel()

	quotes, err := u.rates.GetRates(rctx, shipping.Route{
		Origin:      u.origin,
		Destination: ship.CityID,
		WeightGrams: weight,
		Carrier:     sel.Carrier,
	})
	if err != nil {
		detail := "Courier service failed"
		var um upstreamMessager
		switch {
		case errors.As(err, &um) && um.UpstreamMessage() != "":
			detail = um.UpstreamMessage()
		case errors.Is(err, context.DeadlineExceeded):
			detail = "Courier service timed out"
		}
		return shipping.Quote{}, stageErr(FieldRateLookup, ErrExternalService, "Courier cost check failed", detail, err)
	}

	q, err := shipping.Match(quotes, sel)
	if err != nil {
		return shipping.Quote{}, stageErr(FieldCourier, ErrValidation, "Courier validation failed", "Invalid courier cost input", err)
	}
	return q, nil
}

func (u *checkoutUseCaseImpl) issueToken(ctx context.Context, placed *placedOrder, customer *shared.CustomerSnapshot) (string, *StageError) {
	req, err := buildPaymentRequest(placed.order, placed.computed, PaymentCustomer{
		FirstName: customer.Name,
		Email:     customer.Email,
		Phone:     customer.Phone,
	})
	if err != nil {
		return "", stageErr(FieldPayment, ErrInternal, "Payment request is inconsistent", "Payment request is inconsistent", err)
	}

	token, err := u.payments.Issue(ctx, req)
	if err != nil {
		detail := "Payment session could not be created"
		var um upstreamMessager
		if errors.As(err, &um) && um.UpstreamMessage() != "" {
			detail = um.UpstreamMessage()
		}
		return "", stageErr(FieldPayment, ErrExternalService, "Payment session failed", detail, err)
	}
	return token, nil
}

// compensate releases reserved stock and cancels the order after a post-commit failure.
func (u *checkoutUseCaseImpl) compensate(ctx context.Context, placed *placedOrder, in CheckoutInput) {
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := tx.Stock().Release(ctx, placed.stock); err != nil {
			return err
		}
		if err := tx.Orders().Cancel(ctx, placed.order.ID, order.PaymentFailed); err != nil {
			return err
		}
		return u.enqueueOrderEvent(ctx, tx, OrderCanceledTopic, placed.order, placed.computed.Totals)
	})
	if err != nil {
		slog.Error("checkout compensation failed",
			"user_id", in.UserID.String(),
			"order_id", placed.order.ID,
			"error", err.Error(),
			"stack", errs.ExtractStackLines(err, 10))
		return
	}
	slog.Warn("checkout compensated", "order_id", placed.order.ID, "order_number", placed.order.Numbers.InvoiceNumber)
}

type orderEvent struct {
	Type        string    `json:"type"`
	OrderID     int64     `json:"order_id"`
	OrderUUID   uuid.UUID `json:"order_uuid"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	GrandTotal  int64     `json:"grand_total"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (u *checkoutUseCaseImpl) enqueueOrderEvent(ctx context.Context, tx shared.Tx, topic string, o *order.Order, totals order.Totals) error {
	now := u.clock.Now()
	payload, err := json.Marshal(orderEvent{
		Type:        topic,
		OrderID:     o.ID,
		OrderUUID:   o.UUID,
		OrderNumber: o.Numbers.InvoiceNumber,
		UserID:      o.UserID,
		Email:       o.ContactEmail,
		GrandTotal:  totals.GrandTotal,
		OccurredAt:  now,
	})
	if err != nil {
		return err
	}
	return tx.Notifications().CreateJob(ctx, orderJobKind, topic, payload, now)
}

func stockLines(items []cart.Item) []shared.StockLine {
	lines := make([]shared.StockLine, len(items))
	for i, it := range items {
		lines[i] = shared.StockLine{VariantID: it.VariantID, SKU: it.SKU, Quantity: it.Quantity}
	}
	return lines
}

func itemsFor(items []cart.Item, variantID int64) []cart.Item {
	for _, it := range items {
		if it.VariantID == variantID {
			return []cart.Item{it}
		}
	}
	return nil
}
