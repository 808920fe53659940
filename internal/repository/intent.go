package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftkart/checkout/internal/payment"
)

const (
	createIntentSQL = `INSERT INTO payment_intents (id, user_ref, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`

	getIntentSQL = `SELECT id, user_ref, amount, currency, status, created_at, updated_at
		FROM payment_intents WHERE id = $1`

	setIntentStatusSQL = `UPDATE payment_intents SET status = $2, updated_at = now()
		WHERE id = $1`
)

var _ payment.IntentRepository = (*IntentRepository)(nil)

// IntentRepository implements payment.IntentRepository backed by PostgreSQL.
type IntentRepository struct {
	pool *pgxpool.Pool
}

// NewIntentRepository returns an IntentRepository that uses the given pool.
func NewIntentRepository(pool *pgxpool.Pool) *IntentRepository {
	return &IntentRepository{pool: pool}
}

// Create persists a new payment intent.
func (r *IntentRepository) Create(ctx context.Context, intent *payment.Intent) error {
	_, err := r.pool.Exec(ctx, createIntentSQL,
		intent.ID, intent.UserRef, intent.Amount, intent.Currency,
		intent.Status, intent.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating payment intent %q: %w", intent.ID, err)
	}
	return nil
}

// Get loads a payment intent by id. Returns payment.ErrIntentNotFound when
// no intent exists.
func (r *IntentRepository) Get(ctx context.Context, id string) (*payment.Intent, error) {
	var (
		intent payment.Intent
		status string
	)
	err := r.pool.QueryRow(ctx, getIntentSQL, id).Scan(
		&intent.ID, &intent.UserRef, &intent.Amount, &intent.Currency,
		&status, &intent.CreatedAt, &intent.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrIntentNotFound
		}
		return nil, fmt.Errorf("getting payment intent %q: %w", id, err)
	}
	intent.Status = payment.IntentStatus(status)
	return &intent, nil
}

// SetStatus updates the intent status.
func (r *IntentRepository) SetStatus(ctx context.Context, id string, status payment.IntentStatus) error {
	tag, err := r.pool.Exec(ctx, setIntentStatusSQL, id, status)
	if err != nil {
		return fmt.Errorf("setting status for payment intent %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrIntentNotFound
	}
	return nil
}
