// Package cart maintains the mutable pre-checkout working set of line items
// for a user and derives the pricing snapshot deterministically from it.
// Carts are keyed explicitly by user reference; there is no ambient session
// state.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/craftkart/checkout/internal/domain/delivery"
)

// Quantity bounds for a single cart line.
const (
	MinQuantity = 1
	MaxQuantity = 10
)

var (
	// ErrCartNotFound is returned for operations on a user with no cart.
	// Recoverable: adding an item creates the cart.
	ErrCartNotFound = errors.New("cart not found")
	// ErrLineNotFound is returned when a quantity update targets a line
	// that does not exist.
	ErrLineNotFound = errors.New("cart line not found")
	// ErrQuantityRange is returned when a requested quantity is outside
	// [MinQuantity, MaxQuantity].
	ErrQuantityRange = errors.Errorf("quantity must be between %d and %d", MinQuantity, MaxQuantity)
	// ErrQuantityLimit is returned when merging an added quantity into an
	// existing line would exceed MaxQuantity. The existing line is left
	// untouched; the excess is rejected, not truncated.
	ErrQuantityLimit = errors.Errorf("merged quantity would exceed %d", MaxQuantity)
	// ErrEmptyCart is returned when checkout is attempted on a cart with
	// no line items.
	ErrEmptyCart = errors.New("cart is empty")
)

// Line is a single cart entry. UnitPrice is a snapshot of the product price
// at add time; it does not track later catalog changes within the session.
type Line struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
}

// Cart is the authoritative working set for one user. DiscountAmount holds
// the resolved amount from the last successful coupon validation, not a live
// coupon reference; it is re-validated against the current subtotal before
// any payment intent is created.
type Cart struct {
	UserRef        string
	Lines          []Line
	CouponCode     string
	DiscountAmount decimal.Decimal
	UpdatedAt      time.Time
}

// Pricing is the derived snapshot: GrandTotal = Subtotal + DeliveryCharge -
// DiscountAmount, floored at zero.
type Pricing struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
}

// ValidateQuantity checks a requested line quantity against the bounds.
func ValidateQuantity(qty int) error {
	if qty < MinQuantity || qty > MaxQuantity {
		return ErrQuantityRange
	}
	return nil
}

// MergeQuantity combines an existing line quantity with an added one,
// rejecting the merge when the result would exceed MaxQuantity.
func MergeQuantity(existing, added int) (int, error) {
	merged := existing + added
	if merged > MaxQuantity {
		return existing, ErrQuantityLimit
	}
	return merged, nil
}

// Subtotal returns the sum of unit price times quantity across all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.Lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// ComputePricing derives the pricing snapshot for the given lines, resolved
// discount and delivery policy. An empty cart prices to all zeros and never
// consults the delivery calculator.
func ComputePricing(c *Cart, settings *delivery.Settings) (Pricing, error) {
	if len(c.Lines) == 0 {
		return Pricing{
			Subtotal:       decimal.Zero,
			DeliveryCharge: decimal.Zero,
			DiscountAmount: decimal.Zero,
			GrandTotal:     decimal.Zero,
		}, nil
	}

	subtotal := c.Subtotal()
	charge, err := delivery.Charge(settings, subtotal)
	if err != nil {
		return Pricing{}, errors.Wrap(err, "delivery charge")
	}

	total := subtotal.Add(charge).Sub(c.DiscountAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Pricing{
		Subtotal:       subtotal.Round(2),
		DeliveryCharge: charge.Round(2),
		DiscountAmount: c.DiscountAmount.Round(2),
		GrandTotal:     total.Round(2),
	}, nil
}

// Repository defines persistence for carts. Implementations must make
// MergeLine an atomic read-modify-write against the stored cart so that
// concurrent adds for the same user serialize instead of racing on a stale
// client copy.
type Repository interface {
	// Get loads the cart with its lines. Returns ErrCartNotFound when the
	// user has no cart.
	Get(ctx context.Context, userRef string) (*Cart, error)
	// Ensure creates an empty cart for the user if none exists.
	Ensure(ctx context.Context, userRef string) error
	// MergeLine inserts the line or atomically adds its quantity into the
	// matching (product, size, color) line. Returns ErrQuantityLimit when
	// the merged quantity would exceed MaxQuantity.
	MergeLine(ctx context.Context, userRef string, line Line) error
	// SetQuantity replaces the quantity of an existing line. Returns
	// ErrLineNotFound when no such line exists.
	SetQuantity(ctx context.Context, userRef, productID, size, color string, qty int) error
	// RemoveLines deletes lines matching product and size. Removing an
	// absent line is a no-op, not an error.
	RemoveLines(ctx context.Context, userRef, productID, size string) error
	// SetCoupon stores the applied code with its resolved discount amount.
	SetCoupon(ctx context.Context, userRef, code string, amount decimal.Decimal) error
	// ClearCoupon removes any applied coupon.
	ClearCoupon(ctx context.Context, userRef string) error
	// Clear removes all lines and the applied coupon, keeping the cart.
	Clear(ctx context.Context, userRef string) error
}
