package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is the catalog projection the checkout core reads. The catalog
// itself (CRUD, images, content pages) is owned by an external service;
// this is the narrow contract consumed at add-to-cart time.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Category string
	ImageURL string
}

// Repository defines read operations against the product catalog.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
}
