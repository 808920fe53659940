package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/craftkart/checkout/internal/domain/cart"
)

const (
	getCartSQL = `SELECT user_ref, coupon_code, discount_amount, updated_at
		FROM carts WHERE user_ref = $1`

	getCartItemsSQL = `SELECT ci.product_id, p.name, ci.unit_price, ci.quantity, ci.size, ci.color
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_ref = $1
		ORDER BY ci.added_at, ci.product_id`

	ensureCartSQL = `INSERT INTO carts (user_ref) VALUES ($1)
		ON CONFLICT (user_ref) DO NOTHING`

	// The WHERE clause on the conflict branch makes the quantity cap atomic:
	// an over-limit merge updates zero rows and leaves the stored line as it
	// was. The stored unit price snapshot also stays as it was.
	mergeCartLineSQL = `INSERT INTO cart_items (user_ref, product_id, unit_price, quantity, size, color)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_ref, product_id, size, color) DO UPDATE
			SET quantity = cart_items.quantity + EXCLUDED.quantity
			WHERE cart_items.quantity + EXCLUDED.quantity <= $7`

	setCartLineQuantitySQL = `UPDATE cart_items SET quantity = $5
		WHERE user_ref = $1 AND product_id = $2 AND size = $3 AND color = $4`

	removeCartLinesSQL = `DELETE FROM cart_items
		WHERE user_ref = $1 AND product_id = $2 AND size = $3`

	setCartCouponSQL = `UPDATE carts SET coupon_code = $2, discount_amount = $3, updated_at = now()
		WHERE user_ref = $1`

	clearCartCouponSQL = `UPDATE carts SET coupon_code = NULL, discount_amount = 0, updated_at = now()
		WHERE user_ref = $1`

	clearCartItemsSQL = `DELETE FROM cart_items WHERE user_ref = $1`

	touchCartSQL = `UPDATE carts SET updated_at = now() WHERE user_ref = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Line merges
// are single statements, so concurrent adds for one user serialize on the row
// instead of racing on a stale client copy.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get loads the cart with its lines. Returns cart.ErrCartNotFound when the
// user has no cart row.
func (r *CartRepository) Get(ctx context.Context, userRef string) (*cart.Cart, error) {
	var (
		c          cart.Cart
		couponCode *string
	)
	err := r.pool.QueryRow(ctx, getCartSQL, userRef).Scan(
		&c.UserRef, &couponCode, &c.DiscountAmount, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrCartNotFound
		}
		return nil, fmt.Errorf("getting cart for %q: %w", userRef, err)
	}
	if couponCode != nil {
		c.CouponCode = *couponCode
	}

	rows, err := r.pool.Query(ctx, getCartItemsSQL, userRef)
	if err != nil {
		return nil, fmt.Errorf("getting cart items for %q: %w", userRef, err)
	}
	c.Lines, err = pgx.CollectRows(rows, scanCartLine)
	if err != nil {
		return nil, fmt.Errorf("getting cart items for %q: %w", userRef, err)
	}

	return &c, nil
}

// Ensure creates an empty cart row for the user if none exists.
func (r *CartRepository) Ensure(ctx context.Context, userRef string) error {
	_, err := r.pool.Exec(ctx, ensureCartSQL, userRef)
	if err != nil {
		return fmt.Errorf("ensuring cart for %q: %w", userRef, err)
	}
	return nil
}

// MergeLine inserts the line or atomically adds its quantity into the
// matching (product, size, color) line. Returns cart.ErrQuantityLimit when
// the merged quantity would exceed the cap.
func (r *CartRepository) MergeLine(ctx context.Context, userRef string, line cart.Line) error {
	tag, err := r.pool.Exec(ctx, mergeCartLineSQL,
		userRef, line.ProductID, line.UnitPrice, line.Quantity,
		line.Size, line.Color, cart.MaxQuantity,
	)
	if err != nil {
		return fmt.Errorf("merging cart line for %q: %w", userRef, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrQuantityLimit
	}

	if _, err := r.pool.Exec(ctx, touchCartSQL, userRef); err != nil {
		return fmt.Errorf("touching cart for %q: %w", userRef, err)
	}
	return nil
}

// SetQuantity replaces the quantity of an existing line. Returns
// cart.ErrLineNotFound when no such line exists.
func (r *CartRepository) SetQuantity(ctx context.Context, userRef, productID, size, color string, qty int) error {
	tag, err := r.pool.Exec(ctx, setCartLineQuantitySQL, userRef, productID, size, color, qty)
	if err != nil {
		return fmt.Errorf("setting quantity for %q/%q: %w", userRef, productID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

// RemoveLines deletes lines matching product and size. Removing an absent
// line is a no-op.
func (r *CartRepository) RemoveLines(ctx context.Context, userRef, productID, size string) error {
	_, err := r.pool.Exec(ctx, removeCartLinesSQL, userRef, productID, size)
	if err != nil {
		return fmt.Errorf("removing cart lines for %q/%q: %w", userRef, productID, err)
	}
	return nil
}

// SetCoupon stores the applied code with its resolved discount amount.
func (r *CartRepository) SetCoupon(ctx context.Context, userRef, code string, amount decimal.Decimal) error {
	tag, err := r.pool.Exec(ctx, setCartCouponSQL, userRef, code, amount)
	if err != nil {
		return fmt.Errorf("setting coupon for %q: %w", userRef, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrCartNotFound
	}
	return nil
}

// ClearCoupon removes any applied coupon.
func (r *CartRepository) ClearCoupon(ctx context.Context, userRef string) error {
	_, err := r.pool.Exec(ctx, clearCartCouponSQL, userRef)
	if err != nil {
		return fmt.Errorf("clearing coupon for %q: %w", userRef, err)
	}
	return nil
}

// Clear removes all lines and the applied coupon, keeping the cart row.
func (r *CartRepository) Clear(ctx context.Context, userRef string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("clearing cart for %q: %w", userRef, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, clearCartItemsSQL, userRef); err != nil {
		return fmt.Errorf("clearing cart items for %q: %w", userRef, err)
	}
	if _, err := tx.Exec(ctx, clearCartCouponSQL, userRef); err != nil {
		return fmt.Errorf("clearing coupon for %q: %w", userRef, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("clearing cart for %q: %w", userRef, err)
	}
	return nil
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var (
		l     cart.Line
		price decimal.Decimal
	)
	err := row.Scan(&l.ProductID, &l.Name, &price, &l.Quantity, &l.Size, &l.Color)
	l.UnitPrice = price
	return l, err
}
