package payment

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/craftkart/checkout/internal/domain/cart"
	"github.com/craftkart/checkout/internal/domain/coupon"
	"github.com/craftkart/checkout/internal/domain/delivery"
	"github.com/craftkart/checkout/internal/domain/order"
)

type stubCarts struct {
	cart *cart.Cart
	err  error
}

func (s *stubCarts) Get(context.Context, string) (*cart.Cart, error) {
	if s.err != nil {
		return nil, s.err
	}
	c := *s.cart
	c.Lines = append([]cart.Line(nil), s.cart.Lines...)
	return &c, nil
}

func (s *stubCarts) Ensure(context.Context, string) error            { return nil }
func (s *stubCarts) MergeLine(context.Context, string, cart.Line) error { return nil }
func (s *stubCarts) SetQuantity(context.Context, string, string, string, string, int) error {
	return nil
}
func (s *stubCarts) RemoveLines(context.Context, string, string, string) error { return nil }
func (s *stubCarts) SetCoupon(context.Context, string, string, decimal.Decimal) error {
	return nil
}
func (s *stubCarts) ClearCoupon(context.Context, string) error { return nil }
func (s *stubCarts) Clear(context.Context, string) error       { return nil }

type stubValidator struct {
	discount *coupon.Discount
	err      error
}

func (s *stubValidator) Validate(context.Context, string, decimal.Decimal) (*coupon.Discount, error) {
	return s.discount, s.err
}

type stubDelivery struct {
	settings *delivery.Settings
}

func (s *stubDelivery) Active(context.Context) (*delivery.Settings, error) {
	return s.settings, nil
}

func (s *stubDelivery) Replace(context.Context, *delivery.Settings) (*delivery.Settings, error) {
	return nil, errors.New("not implemented")
}

type stubGateway struct {
	mu    sync.Mutex
	calls int
	id    string
	err   error
}

func (s *stubGateway) CreateIntent(context.Context, decimal.Decimal, string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return s.id, nil
}

type memIntents struct {
	mu      sync.Mutex
	intents map[string]*Intent
}

func newMemIntents() *memIntents {
	return &memIntents{intents: make(map[string]*Intent)}
}

func (m *memIntents) Create(_ context.Context, intent *Intent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *intent
	m.intents[intent.ID] = &cp
	return nil
}

func (m *memIntents) Get(_ context.Context, id string) (*Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.intents[id]
	if !ok {
		return nil, ErrIntentNotFound
	}
	cp := *intent
	return &cp, nil
}

func (m *memIntents) SetStatus(_ context.Context, id string, status IntentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.intents[id]
	if !ok {
		return ErrIntentNotFound
	}
	intent.Status = status
	return nil
}

// memOrders enforces transaction-id uniqueness under a mutex so concurrent
// confirmations exercise the same race the database constraint resolves.
type memOrders struct {
	mu    sync.Mutex
	byTxn map[string]*order.Order
}

func newMemOrders() *memOrders {
	return &memOrders{byTxn: make(map[string]*order.Order)}
}

func (m *memOrders) Create(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byTxn[o.TransactionID]; exists {
		return order.ErrDuplicateTransaction
	}
	m.byTxn[o.TransactionID] = o
	return nil
}

func (m *memOrders) GetByID(_ context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.byTxn {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, order.ErrNotFound
}

func (m *memOrders) GetByTransactionID(_ context.Context, txn string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byTxn[txn]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *memOrders) ListByUser(context.Context, string) ([]order.Order, error) { return nil, nil }
func (m *memOrders) ListAll(context.Context) ([]order.Order, error)            { return nil, nil }
func (m *memOrders) SetStatus(context.Context, string, order.Status) error     { return nil }

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byTxn)
}

type noopClearer struct{}

func (noopClearer) Clear(context.Context, string) error { return nil }

type checkoutFixture struct {
	checkout *Checkout
	carts    *stubCarts
	gateway  *stubGateway
	intents  *memIntents
	orders   *memOrders
	secret   []byte
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	carts := &stubCarts{cart: &cart.Cart{
		UserRef: "u1",
		Lines: []cart.Line{
			{ProductID: "p1", Name: "Collar", UnitPrice: decimal.NewFromInt(1500), Quantity: 2},
		},
		CouponCode: "BIG20",
	}}
	gateway := &stubGateway{id: "intent_1"}
	intents := newMemIntents()
	orders := newMemOrders()
	secret := []byte("whsec_test")

	checkout := NewCheckout(
		CheckoutConfig{Currency: "INR", WebhookSecret: secret},
		carts,
		&stubValidator{discount: &coupon.Discount{Code: "BIG20", Amount: decimal.NewFromInt(500)}},
		&stubDelivery{settings: &delivery.Settings{
			Type:                    delivery.FreeAbove,
			MinOrderForFreeDelivery: decimal.NewFromInt(1000),
			StandardDeliveryCharge:  decimal.NewFromInt(100),
			Active:                  true,
		}},
		gateway,
		intents,
		order.NewService(orders, noopClearer{}, zap.NewNop()),
		orders,
		zap.NewNop(),
	)

	return &checkoutFixture{
		checkout: checkout,
		carts:    carts,
		gateway:  gateway,
		intents:  intents,
		orders:   orders,
		secret:   secret,
	}
}

func (f *checkoutFixture) signedCallback(txn string) Callback {
	return Callback{
		IntentID:      "intent_1",
		TransactionID: txn,
		Signature:     Sign(f.secret, "intent_1", txn),
	}
}

func TestCheckout_Initiate(t *testing.T) {
	f := newCheckoutFixture(t)

	handle, err := f.checkout.Initiate(context.Background(), "u1")
	require.NoError(t, err)

	// 3000 subtotal, free delivery above 1000, 500 coupon discount.
	assert.Equal(t, "intent_1", handle.IntentID)
	assert.True(t, handle.Amount.Equal(decimal.NewFromInt(2500)), "got %s", handle.Amount)
	assert.Equal(t, "INR", handle.Currency)

	intent, err := f.intents.Get(context.Background(), "intent_1")
	require.NoError(t, err)
	assert.Equal(t, IntentAwaiting, intent.Status)
	assert.Equal(t, "u1", intent.UserRef)
	assert.True(t, intent.Amount.Equal(decimal.NewFromInt(2500)))
}

func TestCheckout_Initiate_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	f.carts.cart.Lines = nil

	_, err := f.checkout.Initiate(context.Background(), "u1")
	assert.ErrorIs(t, err, cart.ErrEmptyCart)
	assert.Zero(t, f.gateway.calls, "no intent may be created for an empty cart")
}

func TestCheckout_Initiate_GatewayDown(t *testing.T) {
	f := newCheckoutFixture(t)
	f.gateway.err = ErrGatewayUnavailable

	_, err := f.checkout.Initiate(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	_, err = f.intents.Get(context.Background(), "intent_1")
	assert.ErrorIs(t, err, ErrIntentNotFound, "no intent persists when the processor is down")
}

func TestCheckout_Initiate_StaleCouponDropped(t *testing.T) {
	f := newCheckoutFixture(t)
	f.checkout.coupons = &stubValidator{err: coupon.ErrExpired}

	handle, err := f.checkout.Initiate(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, handle.Amount.Equal(decimal.NewFromInt(3000)),
		"an expired coupon prices to zero discount, got %s", handle.Amount)
}

func TestCheckout_Confirm(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.checkout.Initiate(context.Background(), "u1")
	require.NoError(t, err)

	o, err := f.checkout.Confirm(context.Background(), f.signedCallback("txn_1"))
	require.NoError(t, err)

	assert.Equal(t, "u1", o.UserRef)
	assert.Equal(t, "txn_1", o.TransactionID)
	assert.Equal(t, "intent_1", o.IntentID)
	assert.Equal(t, order.PaymentPaid, o.PaymentStatus)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, "BIG20", o.CouponCode)
	assert.True(t, o.Pricing.GrandTotal.Equal(decimal.NewFromInt(2500)))

	intent, err := f.intents.Get(context.Background(), "intent_1")
	require.NoError(t, err)
	assert.Equal(t, IntentConfirmed, intent.Status)
}

func TestCheckout_Confirm_BadSignature(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.checkout.Initiate(context.Background(), "u1")
	require.NoError(t, err)

	cb := f.signedCallback("txn_1")
	cb.Signature = Sign([]byte("wrong secret"), cb.IntentID, cb.TransactionID)

	_, err = f.checkout.Confirm(context.Background(), cb)
	assert.ErrorIs(t, err, ErrBadSignature)
	assert.Zero(t, f.orders.count())
}

func TestCheckout_Confirm_UnknownIntent(t *testing.T) {
	f := newCheckoutFixture(t)

	cb := Callback{IntentID: "intent_ghost", TransactionID: "txn_1"}
	cb.Signature = Sign(f.secret, cb.IntentID, cb.TransactionID)

	_, err := f.checkout.Confirm(context.Background(), cb)
	assert.ErrorIs(t, err, ErrIntentNotFound)
}

func TestCheckout_Confirm_PricingMismatch(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.checkout.Initiate(context.Background(), "u1")
	require.NoError(t, err)

	// The cart grew between intent creation and the callback.
	f.carts.cart.Lines[0].Quantity = 3

	_, err = f.checkout.Confirm(context.Background(), f.signedCallback("txn_1"))
	assert.ErrorIs(t, err, ErrPricingMismatch)
	assert.Zero(t, f.orders.count())

	intent, err := f.intents.Get(context.Background(), "intent_1")
	require.NoError(t, err)
	assert.Equal(t, IntentAwaiting, intent.Status, "a mismatched intent is not confirmed")
}

func TestCheckout_Confirm_RetriedCallback(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.checkout.Initiate(context.Background(), "u1")
	require.NoError(t, err)

	cb := f.signedCallback("txn_1")

	first, err := f.checkout.Confirm(context.Background(), cb)
	require.NoError(t, err)

	second, err := f.checkout.Confirm(context.Background(), cb)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.orders.count())
}

func TestCheckout_Confirm_ConcurrentDuplicates(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.checkout.Initiate(context.Background(), "u1")
	require.NoError(t, err)

	cb := f.signedCallback("txn_1")

	const n = 16
	results := make([]*order.Order, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.checkout.Confirm(context.Background(), cb)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, f.orders.count(), "exactly one order per transaction id")
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		assert.Equal(t, results[0].ID, results[i].ID)
	}
}
