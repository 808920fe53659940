// Package delivery computes the delivery charge from the active delivery
// policy. Policy history is append-only: an update deactivates every prior
// record and inserts a new active one, keeping an audit trail of pricing
// changes.
package delivery

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported delivery pricing policies.
type Type string

const (
	// FreeAll waives the delivery charge for every order.
	FreeAll Type = "FREE_ALL"
	// FreeAbove waives the charge once the subtotal reaches a threshold.
	FreeAbove Type = "FREE_ABOVE"
	// Fixed applies the standard charge regardless of subtotal.
	Fixed Type = "FIXED"
)

var (
	// ErrUnknownType is returned for a policy type outside the enum.
	ErrUnknownType = errors.New("unknown delivery type")
	// ErrNoActiveSettings is returned when no active policy record exists.
	ErrNoActiveSettings = errors.New("no active delivery settings")
)

// Settings is one versioned delivery policy record. Exactly one record is
// active at a time.
type Settings struct {
	ID                      int64
	Type                    Type
	MinOrderForFreeDelivery decimal.Decimal
	StandardDeliveryCharge  decimal.Decimal
	Active                  bool
	CreatedAt               time.Time
}

// Valid reports whether t is a known policy type.
func (t Type) Valid() bool {
	switch t {
	case FreeAll, FreeAbove, Fixed:
		return true
	}
	return false
}

// Charge computes the delivery charge for the given subtotal. Callers must
// not invoke it for an empty cart; an empty cart has no delivery charge and
// is handled upstream.
func Charge(s *Settings, subtotal decimal.Decimal) (decimal.Decimal, error) {
	switch s.Type {
	case FreeAll:
		return decimal.Zero, nil
	case FreeAbove:
		if subtotal.GreaterThanOrEqual(s.MinOrderForFreeDelivery) {
			return decimal.Zero, nil
		}
		return s.StandardDeliveryCharge, nil
	case Fixed:
		return s.StandardDeliveryCharge, nil
	default:
		return decimal.Zero, errors.Wrapf(ErrUnknownType, "%q", s.Type)
	}
}

// Repository provides access to the versioned delivery policy records.
type Repository interface {
	// Active returns the single active settings record.
	Active(ctx context.Context) (*Settings, error)
	// Replace deactivates all existing records and inserts s as the new
	// active record, atomically.
	Replace(ctx context.Context, s *Settings) (*Settings, error)
}
