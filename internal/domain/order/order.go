// Package order turns a confirmed payment into an immutable order record
// and manages the operator-driven status lifecycle afterwards.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/craftkart/checkout/internal/domain/cart"
)

// PaymentStatus reflects the payment outcome recorded on the order.
type PaymentStatus string

const (
	// PaymentPaid marks an order whose payment was confirmed by the gateway.
	PaymentPaid PaymentStatus = "Paid"
	// PaymentFailed marks an order recorded for a failed payment.
	PaymentFailed PaymentStatus = "Failed"
)

var (
	// ErrNotFound is returned when no order matches the given identifier.
	ErrNotFound = errors.New("order not found")
	// ErrAmountMismatch is returned when a payment confirmation's amount
	// does not exactly equal the server-computed grand total. The order is
	// not created; the confirmation is rejected without side effects.
	ErrAmountMismatch = errors.New("payment amount does not match order total")
	// ErrDuplicateTransaction is returned when an order already exists for
	// the gateway transaction id. Callers resolve this idempotently.
	ErrDuplicateTransaction = errors.New("order already exists for transaction")
)

// Order is the immutable, payment-confirmed record of a completed purchase.
// Everything priced is copied in at creation time; only Status may change
// afterwards.
type Order struct {
	ID            string
	UserRef       string
	Items         []cart.Line
	Pricing       cart.Pricing
	CouponCode    string
	PaymentStatus PaymentStatus
	Status        Status
	IntentID      string
	TransactionID string
	CreatedAt     time.Time
}

// PaymentConfirmation carries the gateway identifiers and amount of a
// confirmed payment intent into order creation.
type PaymentConfirmation struct {
	IntentID      string
	TransactionID string
	Amount        decimal.Decimal
}

// InconsistencyError reports the one genuinely dangerous failure mode:
// payment confirmed but order persistence failed. Money has moved with no
// fulfillment record, so this class must reach the operator/monitoring path
// rather than being retried blindly (a blind retry risks duplicate orders).
type InconsistencyError struct {
	TransactionID string
	Err           error
}

func (e *InconsistencyError) Error() string {
	return "payment confirmed but order persistence failed for transaction " +
		e.TransactionID + ": " + e.Err.Error()
}

func (e *InconsistencyError) Unwrap() error { return e.Err }

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists a new order. Returns ErrDuplicateTransaction when an
	// order already exists for the same gateway transaction id.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*Order, error)
	ListByUser(ctx context.Context, userRef string) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	// SetStatus updates order_status only, leaving payment and pricing
	// untouched. Returns ErrNotFound when the order does not exist.
	SetStatus(ctx context.Context, id string, status Status) error
}
