// Package coupon implements discount code validation for the checkout
// pipeline. A coupon may be validated against a changing cart subtotal any
// number of times before an order consumes it; consumption itself keeps no
// usage bookkeeping (no per-user or global cap), matching the storefront's
// pricing rules.
package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no coupon exists for the given code.
	ErrNotFound = errors.New("coupon not found")
	// ErrInactive is returned when the coupon has been switched off.
	ErrInactive = errors.New("coupon inactive")
	// ErrExpired is returned when the coupon's expiration date has passed.
	ErrExpired = errors.New("coupon expired")
	// ErrBelowMinimum is returned when the subtotal does not reach the
	// coupon's minimum order value.
	ErrBelowMinimum = errors.New("below minimum order value")
)

// Rule defines a coupon's discount behaviour and eligibility constraints.
// Codes are stored upper-cased; lookups are case-insensitive.
type Rule struct {
	Code             string
	DiscountPercent  decimal.Decimal
	MinOrderValue    decimal.Decimal
	MaxDiscountValue decimal.Decimal
	ExpiresAt        time.Time
	Active           bool
}

// Discount holds the resolved discount amount for a specific subtotal.
// Orders store this amount, never a live coupon reference, so later rule
// changes cannot retroactively alter historical pricing.
type Discount struct {
	Code   string
	Amount decimal.Decimal
}

// Repository provides lookup and mutation of coupon rules.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
	Create(ctx context.Context, rule *Rule) error
	Deactivate(ctx context.Context, code string) error
	List(ctx context.Context) ([]Rule, error)
}

// Normalize upper-cases and trims a user-supplied coupon code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
