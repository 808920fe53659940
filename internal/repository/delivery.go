package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/craftkart/checkout/internal/domain/delivery"
)

const (
	getActiveDeliverySettingsSQL = `SELECT id, type, min_order_for_free_delivery, standard_delivery_charge, active, created_at
		FROM delivery_settings WHERE active = TRUE`

	deactivateDeliverySettingsSQL = `UPDATE delivery_settings SET active = FALSE WHERE active = TRUE`

	insertDeliverySettingsSQL = `INSERT INTO delivery_settings (type, min_order_for_free_delivery, standard_delivery_charge, active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, created_at`
)

var _ delivery.Repository = (*DeliveryRepository)(nil)

// DeliveryRepository implements delivery.Repository backed by PostgreSQL.
// A partial unique index on (active) WHERE active enforces at most one
// active policy row at the database level.
type DeliveryRepository struct {
	pool *pgxpool.Pool
}

// NewDeliveryRepository returns a DeliveryRepository that uses the given pool.
func NewDeliveryRepository(pool *pgxpool.Pool) *DeliveryRepository {
	return &DeliveryRepository{pool: pool}
}

// Active returns the single active settings record. Returns
// delivery.ErrNoActiveSettings when none exists.
func (r *DeliveryRepository) Active(ctx context.Context) (*delivery.Settings, error) {
	rows, err := r.pool.Query(ctx, getActiveDeliverySettingsSQL)
	if err != nil {
		return nil, fmt.Errorf("getting active delivery settings: %w", err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanDeliverySettings)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, delivery.ErrNoActiveSettings
		}
		return nil, fmt.Errorf("getting active delivery settings: %w", err)
	}
	return &s, nil
}

// Replace deactivates every existing record and inserts s as the new active
// one in a single transaction, keeping the policy history append-only.
func (r *DeliveryRepository) Replace(ctx context.Context, s *delivery.Settings) (*delivery.Settings, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("replacing delivery settings: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, deactivateDeliverySettingsSQL); err != nil {
		return nil, fmt.Errorf("deactivating delivery settings: %w", err)
	}

	out := *s
	out.Active = true
	err = tx.QueryRow(ctx, insertDeliverySettingsSQL,
		s.Type, s.MinOrderForFreeDelivery, s.StandardDeliveryCharge,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting delivery settings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("replacing delivery settings: %w", err)
	}
	return &out, nil
}

func scanDeliverySettings(row pgx.CollectableRow) (delivery.Settings, error) {
	var (
		s         delivery.Settings
		kind      string
		minOrder  decimal.Decimal
		stdCharge decimal.Decimal
	)
	err := row.Scan(&s.ID, &kind, &minOrder, &stdCharge, &s.Active, &s.CreatedAt)
	s.Type = delivery.Type(kind)
	s.MinOrderForFreeDelivery = minOrder
	s.StandardDeliveryCharge = stdCharge
	return s, err
}
