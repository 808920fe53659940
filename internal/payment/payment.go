// Package payment orchestrates the external payment round trip: creating a
// payment intent for the server-computed grand total, and turning the
// gateway's asynchronous success callback into exactly one order.
package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// IntentStatus tracks a checkout attempt through the gateway round trip.
// An abandoned attempt simply stays awaiting_confirmation forever; it never
// produces an order and needs no cleanup beyond the inert gateway record.
type IntentStatus string

const (
	IntentCreated   IntentStatus = "created"
	IntentAwaiting  IntentStatus = "awaiting_confirmation"
	IntentConfirmed IntentStatus = "confirmed"
	IntentFailed    IntentStatus = "failed"
)

var (
	// ErrIntentNotFound is returned when no payment intent matches the id.
	ErrIntentNotFound = errors.New("payment intent not found")
	// ErrBadSignature is returned when a callback's signature does not
	// verify against the webhook secret.
	ErrBadSignature = errors.New("invalid callback signature")
	// ErrGatewayUnavailable wraps transport or processor-side failures
	// while creating an intent. Retryable by the user; no charge happened.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrPricingMismatch is returned when the cart's recomputed total no
	// longer matches the intent amount at confirmation time. The caller
	// must restart checkout with a fresh intent.
	ErrPricingMismatch = errors.New("cart total no longer matches payment intent")
)

// Intent is the server-side record of one checkout attempt against the
// external processor.
type Intent struct {
	ID        string
	UserRef   string
	Amount    decimal.Decimal
	Currency  string
	Status    IntentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Callback is the payload the processor posts on payment completion.
type Callback struct {
	IntentID      string `json:"intent_id"`
	TransactionID string `json:"transaction_id"`
	Signature     string `json:"signature"`
}

// Gateway abstracts the external payment processor. The client-side
// confirmation flow is opaque; the processor either posts a callback or
// never calls back at all.
type Gateway interface {
	// CreateIntent registers a payment of the given amount with the
	// processor and returns the processor's intent id.
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (string, error)
}

// IntentRepository persists payment intents.
type IntentRepository interface {
	Create(ctx context.Context, intent *Intent) error
	Get(ctx context.Context, id string) (*Intent, error)
	SetStatus(ctx context.Context, id string, status IntentStatus) error
}
