package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftkart/checkout/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, user_ref, items, subtotal, delivery_charge, discount_amount,
		grand_total, coupon_code, payment_status, order_status, intent_id, transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	orderColumns = `id, user_ref, items, subtotal, delivery_charge, discount_amount,
		grand_total, coupon_code, payment_status, order_status, intent_id, transaction_id, created_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderByTransactionSQL = `SELECT ` + orderColumns + ` FROM orders WHERE transaction_id = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_ref = $1 ORDER BY created_at DESC`

	listAllOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`

	setOrderStatusSQL = `UPDATE orders SET order_status = $2 WHERE id = $1`
)

// transactionUniqueConstraint is the UNIQUE constraint on orders.transaction_id.
const transactionUniqueConstraint = "orders_transaction_id_key"

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. The
// unique constraint on transaction_id is the authoritative guard against
// duplicate payment confirmations.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. The line items are serialized to JSON for
// storage in the JSONB column. Returns order.ErrDuplicateTransaction when an
// order already exists for the same gateway transaction id.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.UserRef, itemsJSON,
		o.Pricing.Subtotal, o.Pricing.DeliveryCharge, o.Pricing.DiscountAmount, o.Pricing.GrandTotal,
		o.CouponCode, o.PaymentStatus, o.Status, o.IntentID, o.TransactionID, o.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, transactionUniqueConstraint) {
			return order.ErrDuplicateTransaction
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	return nil
}

// GetByID loads an order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// GetByTransactionID loads the order created for a gateway transaction.
func (r *OrderRepository) GetByTransactionID(ctx context.Context, transactionID string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByTransactionSQL, transactionID)
	if err != nil {
		return nil, fmt.Errorf("getting order for transaction %q: %w", transactionID, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order for transaction %q: %w", transactionID, err)
	}
	return &o, nil
}

// ListByUser returns a user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userRef string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userRef)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %q: %w", userRef, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListAll returns every order, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listAllOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// SetStatus updates order_status only. Returns order.ErrNotFound when the
// order does not exist.
func (r *OrderRepository) SetStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := r.pool.Exec(ctx, setOrderStatusSQL, id, status)
	if err != nil {
		return fmt.Errorf("setting status for order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		itemsJSON     []byte
		paymentStatus string
		orderStatus   string
	)
	err := row.Scan(
		&o.ID, &o.UserRef, &itemsJSON,
		&o.Pricing.Subtotal, &o.Pricing.DeliveryCharge, &o.Pricing.DiscountAmount, &o.Pricing.GrandTotal,
		&o.CouponCode, &paymentStatus, &orderStatus, &o.IntentID, &o.TransactionID, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.Status = order.Status(orderStatus)
	return o, nil
}
