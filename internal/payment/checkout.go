package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/craftkart/checkout/internal/domain/cart"
	"github.com/craftkart/checkout/internal/domain/coupon"
	"github.com/craftkart/checkout/internal/domain/delivery"
	"github.com/craftkart/checkout/internal/domain/order"
)

// OrderCreator is the slice of the order service the orchestrator needs.
type OrderCreator interface {
	Create(
		ctx context.Context,
		userRef string,
		lines []cart.Line,
		pricing cart.Pricing,
		couponCode string,
		conf order.PaymentConfirmation,
	) (*order.Order, error)
}

// CheckoutConfig holds orchestrator configuration.
type CheckoutConfig struct {
	// Currency for all intents. The storefront prices in a single currency.
	Currency string
	// WebhookSecret verifies callback signatures.
	WebhookSecret []byte
}

// Checkout drives a checkout attempt through the gateway state machine:
// Created -> AwaitingConfirmation -> {Confirmed | Failed}, with abandonment
// leaving the intent awaiting forever and producing no order.
type Checkout struct {
	cfg      CheckoutConfig
	carts    cart.Repository
	coupons  coupon.Validator
	delivery delivery.Repository
	gateway  Gateway
	intents  IntentRepository
	orders   OrderCreator
	history  order.Repository
	lg       *zap.Logger
	now      func() time.Time
}

// NewCheckout creates the checkout orchestrator.
func NewCheckout(
	cfg CheckoutConfig,
	carts cart.Repository,
	coupons coupon.Validator,
	deliveryRepo delivery.Repository,
	gateway Gateway,
	intents IntentRepository,
	orders OrderCreator,
	history order.Repository,
	lg *zap.Logger,
) *Checkout {
	return &Checkout{
		cfg:      cfg,
		carts:    carts,
		coupons:  coupons,
		delivery: deliveryRepo,
		gateway:  gateway,
		intents:  intents,
		orders:   orders,
		history:  history,
		lg:       lg,
		now:      time.Now,
	}
}

// IntentHandle is returned to the client to drive the processor's
// confirmation flow.
type IntentHandle struct {
	IntentID string          `json:"intent_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Initiate recomputes the cart's pricing snapshot server-side and creates a
// payment intent for the grand total. Client-supplied amounts are never
// accepted anywhere in this path, which closes the price-tampering hole.
func (c *Checkout) Initiate(ctx context.Context, userRef string) (*IntentHandle, error) {
	crt, err := c.carts.Get(ctx, userRef)
	if err != nil {
		return nil, err
	}
	if len(crt.Lines) == 0 {
		return nil, cart.ErrEmptyCart
	}

	pricing, err := c.price(ctx, crt)
	if err != nil {
		return nil, err
	}

	intentID, err := c.gateway.CreateIntent(ctx, pricing.GrandTotal, c.cfg.Currency)
	if err != nil {
		return nil, err
	}

	intent := &Intent{
		ID:        intentID,
		UserRef:   userRef,
		Amount:    pricing.GrandTotal,
		Currency:  c.cfg.Currency,
		Status:    IntentAwaiting,
		CreatedAt: c.now(),
	}
	if err := c.intents.Create(ctx, intent); err != nil {
		return nil, errors.Wrap(err, "persist intent")
	}

	c.lg.Info("payment intent created",
		zap.String("intent_id", intentID),
		zap.String("user_ref", userRef),
		zap.String("amount", pricing.GrandTotal.String()),
	)

	return &IntentHandle{
		IntentID: intentID,
		Amount:   pricing.GrandTotal,
		Currency: c.cfg.Currency,
	}, nil
}

// Confirm handles the processor's success callback. It verifies the
// signature, reprices the cart, checks the amount against the intent, and
// creates the order exactly once per gateway transaction. A retried
// callback for an already-processed transaction returns the existing order.
func (c *Checkout) Confirm(ctx context.Context, cb Callback) (*order.Order, error) {
	if !VerifySignature(c.cfg.WebhookSecret, cb) {
		return nil, ErrBadSignature
	}

	// A network-level retry of an already-processed callback is resolved
	// idempotently before anything else runs.
	if existing, err := c.history.GetByTransactionID(ctx, cb.TransactionID); err == nil {
		return existing, nil
	} else if !errors.Is(err, order.ErrNotFound) {
		return nil, errors.Wrap(err, "lookup transaction")
	}

	intent, err := c.intents.Get(ctx, cb.IntentID)
	if err != nil {
		return nil, err
	}

	crt, err := c.carts.Get(ctx, intent.UserRef)
	if err != nil {
		return nil, err
	}

	// Never trust the discount figure displayed earlier: the snapshot is
	// recomputed from the live cart at the moment of order creation.
	pricing, err := c.price(ctx, crt)
	if err != nil {
		return nil, err
	}
	if !pricing.GrandTotal.Equal(intent.Amount) {
		return nil, errors.Wrapf(ErrPricingMismatch,
			"cart total %s, intent amount %s", pricing.GrandTotal, intent.Amount)
	}

	if err := c.intents.SetStatus(ctx, intent.ID, IntentConfirmed); err != nil {
		return nil, errors.Wrap(err, "mark intent confirmed")
	}

	o, err := c.orders.Create(ctx, intent.UserRef, crt.Lines, pricing, crt.CouponCode, order.PaymentConfirmation{
		IntentID:      intent.ID,
		TransactionID: cb.TransactionID,
		Amount:        intent.Amount,
	})
	if err != nil {
		// A concurrent duplicate callback lost the race on the unique
		// transaction constraint; the winner's order is the answer.
		if errors.Is(err, order.ErrDuplicateTransaction) {
			return c.history.GetByTransactionID(ctx, cb.TransactionID)
		}
		return nil, err
	}

	c.lg.Info("order created from payment callback",
		zap.String("order_id", o.ID),
		zap.String("intent_id", intent.ID),
		zap.String("transaction_id", cb.TransactionID),
	)

	return o, nil
}

// price derives the snapshot for a cart, re-validating any applied coupon
// against the current subtotal rather than reusing the stored amount.
func (c *Checkout) price(ctx context.Context, crt *cart.Cart) (cart.Pricing, error) {
	if crt.CouponCode != "" {
		d, err := c.coupons.Validate(ctx, crt.CouponCode, crt.Subtotal())
		if err != nil {
			// The coupon was valid when applied but is not anymore
			// (expired, deactivated, subtotal dropped below minimum).
			// Price without it rather than blocking checkout.
			crt.CouponCode = ""
			crt.DiscountAmount = decimal.Zero
		} else {
			crt.DiscountAmount = d.Amount
		}
	}

	settings, err := c.delivery.Active(ctx)
	if err != nil {
		return cart.Pricing{}, errors.Wrap(err, "load delivery settings")
	}
	return cart.ComputePricing(crt, settings)
}
