//go:build unit

package commands_test

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"storefront-checkout/internal/domain/address"
	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/domain/shipping"
	"storefront-checkout/internal/domain/voucher"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/usecase/commands"
	"storefront-checkout/internal/usecase/shared"

	"github.com/google/uuid"
)

var errNoRow = errors.New("no rows in result set")

func notFound(msg string) error {
	return infra.WrapRepoErr(msg, errNoRow, infra.KindNotFound)
}

type idemKey struct {
	key    uuid.UUID
	userID uuid.UUID
}

type memJob struct {
	Kind    string
	Topic   string
	Payload []byte
}

// memState is everything a transaction may change.
type memState struct {
	stock       map[int64]int
	orders      map[int64]order.Order
	totals      map[int64]order.Totals
	lines       map[int64][]order.LineItem
	redemptions []voucher.Redemption
	jobs        []memJob
	idem        map[idemKey]shared.IdempotencyRecord
	nextOrderID int64
	seq         int64
}

func (s memState) clone() memState {
	lines := make(map[int64][]order.LineItem, len(s.lines))
	for k, v := range s.lines {
		lines[k] = slices.Clone(v)
	}
	return memState{
		stock:       maps.Clone(s.stock),
		orders:      maps.Clone(s.orders),
		totals:      maps.Clone(s.totals),
		lines:       lines,
		redemptions: slices.Clone(s.redemptions),
		jobs:        slices.Clone(s.jobs),
		idem:        maps.Clone(s.idem),
		nextOrderID: s.nextOrderID,
		seq:         s.seq,
	}
}

// memStore serializes transactions and restores state when one fails.
type memStore struct {
	mu       sync.Mutex
	state    memState
	catalog  map[int64]cart.VariantSnapshot
	vouchers map[int64]shared.VoucherSnapshot

	// failure injection
	bulkInsertErr error
	setTokenErr   error
	// afterRead runs under the store lock once a catalog read has been served
	afterRead func(call int, st *memState)
	reads     int
	loc       *time.Location
	now       func() time.Time
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{
		state: memState{
			stock:  map[int64]int{},
			orders: map[int64]order.Order{},
			totals: map[int64]order.Totals{},
			lines:  map[int64][]order.LineItem{},
			idem:   map[idemKey]shared.IdempotencyRecord{},
		},
		catalog:  map[int64]cart.VariantSnapshot{},
		vouchers: map[int64]shared.VoucherSnapshot{},
		loc:      time.UTC,
		now:      now,
	}
}

func (s *memStore) addVariant(v cart.VariantSnapshot) {
	s.catalog[v.VariantID] = v
	s.state.stock[v.VariantID] = v.Stock
}

func (s *memStore) snapshot() memState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *memStore) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := s.state.clone()
	if err := fn(ctx, &memTx{s: s, inTx: true}); err != nil {
		s.state = saved
		return err
	}
	return nil
}

func (s *memStore) Direct() shared.Tx {
	return &memTx{s: s}
}

// FindByIDs reads current stock, as the catalog query would.
func (s *memStore) FindByIDs(_ context.Context, ids []int64) (map[int64]cart.VariantSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]cart.VariantSnapshot, len(ids))
	for _, id := range ids {
		v, ok := s.catalog[id]
		if !ok {
			continue
		}
		v.Stock = s.state.stock[id]
		out[id] = v
	}
	s.reads++
	if s.afterRead != nil {
		s.afterRead(s.reads, &s.state)
	}
	return out, nil
}

type memTx struct {
	s    *memStore
	inTx bool
}

func (t *memTx) lock() func() {
	if t.inTx {
		return func() {}
	}
	t.s.mu.Lock()
	return t.s.mu.Unlock
}

func (t *memTx) Orders() shared.OrderRepository               { return t }
func (t *memTx) LineItems() shared.LineItemRepository         { return memLines{t} }
func (t *memTx) Stock() shared.StockRepository                { return memStock{t} }
func (t *memTx) Sequence() shared.SequenceRepository          { return memSeq{t} }
func (t *memTx) Vouchers() shared.VoucherRepository           { return memVouchers{t} }
func (t *memTx) Redemptions() shared.RedemptionRepository     { return memRedemptions{t} }
func (t *memTx) Idempotency() shared.IdempotencyRepository    { return memIdem{t} }
func (t *memTx) Notifications() shared.NotificationRepository { return memJobs{t} }

func (t *memTx) Create(_ context.Context, o *order.Order) (int64, error) {
	defer t.lock()()
	t.s.state.nextOrderID++
	id := t.s.state.nextOrderID
	cp := *o
	cp.ID = id
	t.s.state.orders[id] = cp
	return id, nil
}

func (t *memTx) FindByID(_ context.Context, id int64) (*order.Order, error) {
	defer t.lock()()
	o, ok := t.s.state.orders[id]
	if !ok {
		return nil, notFound("order not found")
	}
	return &o, nil
}

func (t *memTx) SetTotals(_ context.Context, id int64, totals order.Totals) error {
	defer t.lock()()
	t.s.state.totals[id] = totals
	return nil
}

func (t *memTx) SetPaymentToken(_ context.Context, id int64, token string) error {
	defer t.lock()()
	if t.s.setTokenErr != nil {
		return t.s.setTokenErr
	}
	o, ok := t.s.state.orders[id]
	if !ok {
		return notFound("order not found")
	}
	o.PaymentToken = token
	t.s.state.orders[id] = o
	return nil
}

func (t *memTx) Cancel(_ context.Context, id int64, ps order.PaymentStatus) error {
	defer t.lock()()
	o, ok := t.s.state.orders[id]
	if !ok {
		return notFound("order not found")
	}
	o.Status = order.StatusCanceled
	o.PaymentStatus = ps
	t.s.state.orders[id] = o
	return nil
}

type memLines struct{ t *memTx }

func (r memLines) BulkInsert(_ context.Context, items []order.LineItem) error {
	defer r.t.lock()()
	if r.t.s.bulkInsertErr != nil {
		return r.t.s.bulkInsertErr
	}
	for _, it := range items {
		r.t.s.state.lines[it.OrderID] = append(r.t.s.state.lines[it.OrderID], it)
	}
	return nil
}

func (r memLines) ListByOrder(_ context.Context, orderID int64) ([]order.LineItem, error) {
	defer r.t.lock()()
	return slices.Clone(r.t.s.state.lines[orderID]), nil
}

type memStock struct{ t *memTx }

// Reserve mirrors the conditional UPDATE: a line that would go negative refuses the whole batch.
func (r memStock) Reserve(_ context.Context, lines []shared.StockLine) error {
	defer r.t.lock()()
	for _, l := range lines {
		if r.t.s.state.stock[l.VariantID] < l.Quantity {
			return &shared.StockShortageError{VariantID: l.VariantID, SKU: l.SKU, Requested: l.Quantity}
		}
		r.t.s.state.stock[l.VariantID] -= l.Quantity
	}
	return nil
}

func (r memStock) Release(_ context.Context, lines []shared.StockLine) error {
	defer r.t.lock()()
	for _, l := range lines {
		r.t.s.state.stock[l.VariantID] += l.Quantity
	}
	return nil
}

type memSeq struct{ t *memTx }

func (r memSeq) Next(_ context.Context) (order.Numbers, error) {
	defer r.t.lock()()
	r.t.s.state.seq++
	return order.NewNumbers(r.t.s.state.seq, r.t.s.now(), r.t.s.loc)
}

type memVouchers struct{ t *memTx }

func (r memVouchers) FindByID(_ context.Context, id int64) (*shared.VoucherSnapshot, error) {
	defer r.t.lock()()
	v, ok := r.t.s.vouchers[id]
	if !ok {
		return nil, notFound("voucher not found")
	}
	return &v, nil
}

type memRedemptions struct{ t *memTx }

func (r memRedemptions) Create(_ context.Context, red voucher.Redemption) error {
	defer r.t.lock()()
	r.t.s.state.redemptions = append(r.t.s.state.redemptions, red)
	return nil
}

type memIdem struct{ t *memTx }

func (r memIdem) TryInsert(_ context.Context, key, userID uuid.UUID, _ string, requestHash string, expiresAt time.Time) (bool, error) {
	defer r.t.lock()()
	k := idemKey{key, userID}
	if _, ok := r.t.s.state.idem[k]; ok {
		return false, nil
	}
	r.t.s.state.idem[k] = shared.IdempotencyRecord{
		Key: key, UserID: userID, Status: shared.IdempotencyProcessing, RequestHash: requestHash, ExpiresAt: expiresAt,
	}
	return true, nil
}

func (r memIdem) Get(_ context.Context, key, userID uuid.UUID) (*shared.IdempotencyRecord, error) {
	defer r.t.lock()()
	rec, ok := r.t.s.state.idem[idemKey{key, userID}]
	if !ok {
		return nil, notFound("idempotency key not found")
	}
	return &rec, nil
}

func (r memIdem) ClaimExpired(_ context.Context, key, userID uuid.UUID, requestHash string, now, expiresAt time.Time) (bool, error) {
	defer r.t.lock()()
	k := idemKey{key, userID}
	rec, ok := r.t.s.state.idem[k]
	if !ok || rec.Status != shared.IdempotencyProcessing || !rec.ExpiresAt.Before(now) {
		return false, nil
	}
	rec.RequestHash = requestHash
	rec.ExpiresAt = expiresAt
	r.t.s.state.idem[k] = rec
	return true, nil
}

func (r memIdem) MarkCompleted(_ context.Context, key, userID uuid.UUID, orderID int64) error {
	defer r.t.lock()()
	k := idemKey{key, userID}
	rec := r.t.s.state.idem[k]
	rec.Status = shared.IdempotencyCompleted
	rec.ResultOrderID = &orderID
	r.t.s.state.idem[k] = rec
	return nil
}

func (r memIdem) Delete(_ context.Context, key, userID uuid.UUID) error {
	defer r.t.lock()()
	k := idemKey{key, userID}
	if rec, ok := r.t.s.state.idem[k]; ok && rec.Status == shared.IdempotencyProcessing {
		delete(r.t.s.state.idem, k)
	}
	return nil
}

type memJobs struct{ t *memTx }

func (r memJobs) CreateJob(_ context.Context, kind, topic string, payload []byte, _ time.Time) error {
	defer r.t.lock()()
	r.t.s.state.jobs = append(r.t.s.state.jobs, memJob{Kind: kind, Topic: topic, Payload: payload})
	return nil
}

// Collaborators outside the store.

type fakeAddresses struct {
	mu    sync.Mutex
	book  map[int64]*address.Address
	calls int
}

func (f *fakeAddresses) FindOwned(_ context.Context, id int64, userID uuid.UUID) (*address.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	a, ok := f.book[id]
	if !ok || a.UserID != userID {
		return nil, notFound("address not found")
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAddresses) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCustomers struct {
	customers map[uuid.UUID]*shared.CustomerSnapshot
}

func (f *fakeCustomers) FindByID(_ context.Context, id uuid.UUID) (*shared.CustomerSnapshot, error) {
	c, ok := f.customers[id]
	if !ok {
		return nil, notFound("customer not found")
	}
	return c, nil
}

type fakeRates struct {
	mu     sync.Mutex
	quotes []shipping.Quote
	err    error
	routes []shipping.Route
}

func (f *fakeRates) GetRates(_ context.Context, route shipping.Route) ([]shipping.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes = append(f.routes, route)
	if f.err != nil {
		return nil, f.err
	}
	return f.quotes, nil
}

func (f *fakeRates) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.routes)
}

type fakeGateway struct {
	mu         sync.Mutex
	err        error
	emptyToken bool
	requests   []commands.PaymentRequest

	// entered and release hold a call open when set
	entered chan struct{}
	release chan struct{}
}

func (f *fakeGateway) CreateSession(_ context.Context, req commands.PaymentRequest) (string, error) {
	if f.release != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if f.emptyToken {
		return "", nil
	}
	return "snap-" + req.OrderNumber, nil
}

func (f *fakeGateway) Requests() []commands.PaymentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.requests)
}

type upstreamErr struct{ msg string }

func (e upstreamErr) Error() string           { return "upstream: " + e.msg }
func (e upstreamErr) UpstreamMessage() string { return e.msg }
