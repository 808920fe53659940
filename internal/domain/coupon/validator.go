package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Validator validates a coupon code against a candidate order subtotal and
// returns the computed discount.
type Validator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Discount, error)
}

// RepoValidator implements Validator by looking up coupon rules from a
// Repository and applying them via the Apply function. Validation has no
// side effects and is safe to repeat as the cart changes before checkout.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Validate looks up the rule for the given code (case-insensitive), checks
// activity, expiration and minimum order value, and computes the bounded
// discount for the subtotal.
func (v *RepoValidator) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Discount, error) {
	rule, err := v.repo.FindByCode(ctx, Normalize(code))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if !rule.Active {
		return nil, ErrInactive
	}
	if v.now().After(rule.ExpiresAt) {
		return nil, ErrExpired
	}
	if subtotal.LessThan(rule.MinOrderValue) {
		return nil, ErrBelowMinimum
	}

	d := Apply(rule, subtotal)
	return &d, nil
}

// Apply computes the discount a rule yields for the given subtotal:
// subtotal * percent / 100, capped at MaxDiscountValue and at the subtotal
// itself, never negative, rounded to 2 decimal places. Pure; eligibility is
// the validator's concern.
func Apply(rule *Rule, subtotal decimal.Decimal) Discount {
	amount := subtotal.Mul(rule.DiscountPercent).Div(hundred)
	if rule.MaxDiscountValue.IsPositive() {
		amount = decimal.Min(amount, rule.MaxDiscountValue)
	}
	amount = decimal.Min(amount, subtotal)
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	return Discount{
		Code:   rule.Code,
		Amount: amount.Round(2),
	}
}
