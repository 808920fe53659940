package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/craftkart/checkout/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT code, discount_percent, min_order_value, max_discount_value, expires_at, active
		FROM coupons WHERE code = UPPER($1)`

	// Re-issuing a code replaces its rule; codes are the natural key and
	// campaign reruns overwrite rather than fail.
	upsertCouponSQL = `INSERT INTO coupons (code, discount_percent, min_order_value, max_discount_value, expires_at, active)
		VALUES (UPPER($1), $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO UPDATE SET
			discount_percent = EXCLUDED.discount_percent,
			min_order_value = EXCLUDED.min_order_value,
			max_discount_value = EXCLUDED.max_discount_value,
			expires_at = EXCLUDED.expires_at,
			active = EXCLUDED.active`

	deactivateCouponSQL = `UPDATE coupons SET active = FALSE WHERE code = UPPER($1)`

	listCouponsSQL = `SELECT code, discount_percent, min_order_value, max_discount_value, expires_at, active
		FROM coupons ORDER BY code`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon rule by its code (case-insensitive). Returns
// coupon.ErrNotFound when no rule exists; eligibility checks beyond existence
// belong to the validator.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &rule, nil
}

// Create inserts the rule, replacing any existing rule with the same code.
func (r *CouponRepository) Create(ctx context.Context, rule *coupon.Rule) error {
	_, err := r.pool.Exec(ctx, upsertCouponSQL,
		rule.Code, rule.DiscountPercent, rule.MinOrderValue,
		rule.MaxDiscountValue, rule.ExpiresAt, rule.Active,
	)
	if err != nil {
		return fmt.Errorf("creating coupon %q: %w", rule.Code, err)
	}
	return nil
}

// Deactivate switches a coupon off. Deactivating an unknown code is a no-op.
func (r *CouponRepository) Deactivate(ctx context.Context, code string) error {
	_, err := r.pool.Exec(ctx, deactivateCouponSQL, code)
	if err != nil {
		return fmt.Errorf("deactivating coupon %q: %w", code, err)
	}
	return nil
}

// List returns every coupon rule ordered by code.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCouponRule)
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var (
		rule      coupon.Rule
		percent   decimal.Decimal
		minOrder  decimal.Decimal
		maxAmount decimal.Decimal
		expiresAt time.Time
	)
	err := row.Scan(&rule.Code, &percent, &minOrder, &maxAmount, &expiresAt, &rule.Active)
	rule.DiscountPercent = percent
	rule.MinOrderValue = minOrder
	rule.MaxDiscountValue = maxAmount
	rule.ExpiresAt = expiresAt
	return rule, err
}
