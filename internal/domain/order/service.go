package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/craftkart/checkout/internal/domain/cart"
)

// CartClearer removes a user's cart contents after a successful order.
type CartClearer interface {
	Clear(ctx context.Context, userRef string) error
}

// Service encapsulates order creation and status transitions.
type Service struct {
	orders Repository
	carts  CartClearer
	lg     *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewService creates an order Service with the required dependencies.
func NewService(orders Repository, carts CartClearer, lg *zap.Logger) *Service {
	return &Service{
		orders: orders,
		carts:  carts,
		lg:     lg,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// Create snapshots the cart contents and computed totals into a durable
// order for a confirmed payment. The confirmation amount must equal the
// snapshot's grand total exactly; a mismatch means a stale or tampered
// snapshot reached this stage and nothing is persisted.
//
// Duplicate confirmations surface as ErrDuplicateTransaction via the unique
// constraint on the transaction id; any other persistence failure after a
// confirmed payment is wrapped in *InconsistencyError so it reaches the
// operator path instead of being silently retried.
func (s *Service) Create(
	ctx context.Context,
	userRef string,
	lines []cart.Line,
	pricing cart.Pricing,
	couponCode string,
	conf PaymentConfirmation,
) (*Order, error) {
	if len(lines) == 0 {
		return nil, cart.ErrEmptyCart
	}
	if !conf.Amount.Equal(pricing.GrandTotal) {
		return nil, errors.Wrapf(ErrAmountMismatch,
			"confirmed %s, snapshot %s", conf.Amount, pricing.GrandTotal)
	}

	o := &Order{
		ID:            s.newID(),
		UserRef:       userRef,
		Items:         lines,
		Pricing:       pricing,
		CouponCode:    couponCode,
		PaymentStatus: PaymentPaid,
		Status:        StatusPending,
		IntentID:      conf.IntentID,
		TransactionID: conf.TransactionID,
		CreatedAt:     s.now(),
	}

	if err := s.orders.Create(ctx, o); err != nil {
		if errors.Is(err, ErrDuplicateTransaction) {
			return nil, ErrDuplicateTransaction
		}
		return nil, &InconsistencyError{TransactionID: conf.TransactionID, Err: err}
	}

	// A persisted order is authoritative over cart cleanup: a failure here
	// is reported but never rolls the order back.
	if err := s.carts.Clear(ctx, userRef); err != nil {
		s.lg.Error("cart clear failed after order creation",
			zap.String("order_id", o.ID),
			zap.String("user_ref", userRef),
			zap.Error(err),
		)
	}

	return o, nil
}

// Transition moves an order to a new lifecycle status. Only order_status
// changes; payment status, items and pricing are never touched.
func (s *Service) Transition(ctx context.Context, id string, to Status) (*Order, error) {
	if !to.Valid() {
		return nil, errors.Wrapf(ErrInvalidTransition, "unknown status %q", to)
	}

	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, to) {
		return nil, errors.Wrapf(ErrInvalidTransition, "%s -> %s", o.Status, to)
	}

	if err := s.orders.SetStatus(ctx, id, to); err != nil {
		return nil, errors.Wrap(err, "set status")
	}

	o.Status = to
	return o, nil
}
