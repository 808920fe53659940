package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/craftkart/checkout/internal/domain/coupon"
	"github.com/craftkart/checkout/internal/domain/delivery"
	"github.com/craftkart/checkout/internal/domain/product"
)

// Service orchestrates cart mutations and recomputes the pricing snapshot on
// every observable change.
type Service struct {
	carts    Repository
	products product.Repository
	coupons  coupon.Validator
	delivery delivery.Repository
}

// NewService creates a cart Service with the required dependencies.
func NewService(
	carts Repository,
	products product.Repository,
	coupons coupon.Validator,
	deliveryRepo delivery.Repository,
) *Service {
	return &Service{
		carts:    carts,
		products: products,
		coupons:  coupons,
		delivery: deliveryRepo,
	}
}

// View is a cart together with its derived pricing snapshot.
type View struct {
	Lines   []Line
	Coupon  string
	Pricing Pricing
}

// AddItemRequest holds the input for adding a product to a cart.
type AddItemRequest struct {
	ProductID string
	Quantity  int
	Size      string
	Color     string
}

// Get loads the user's cart and recomputes its pricing snapshot.
func (s *Service) Get(ctx context.Context, userRef string) (*View, error) {
	c, err := s.carts.Get(ctx, userRef)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, c)
}

// AddItem validates the product and quantity, snapshots the catalog price,
// and merges the line into the cart. The cart is created lazily on first
// add. A merge that would push the line past the quantity limit fails whole;
// the existing line keeps its prior quantity.
func (s *Service) AddItem(ctx context.Context, userRef string, req AddItemRequest) (*View, error) {
	if err := ValidateQuantity(req.Quantity); err != nil {
		return nil, err
	}

	p, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %s", req.ProductID)
	}

	if err := s.carts.Ensure(ctx, userRef); err != nil {
		return nil, errors.Wrap(err, "ensure cart")
	}

	line := Line{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  req.Quantity,
		Size:      req.Size,
		Color:     req.Color,
	}
	if err := s.carts.MergeLine(ctx, userRef, line); err != nil {
		return nil, err
	}

	return s.Get(ctx, userRef)
}

// UpdateQuantity replaces the quantity of an existing line.
func (s *Service) UpdateQuantity(ctx context.Context, userRef, productID, size, color string, qty int) (*View, error) {
	if err := ValidateQuantity(qty); err != nil {
		return nil, err
	}
	if err := s.carts.SetQuantity(ctx, userRef, productID, size, color, qty); err != nil {
		return nil, err
	}
	return s.Get(ctx, userRef)
}

// RemoveItem removes all lines matching the product and size. Removing an
// absent line is not an error.
func (s *Service) RemoveItem(ctx context.Context, userRef, productID, size string) (*View, error) {
	if err := s.carts.RemoveLines(ctx, userRef, productID, size); err != nil {
		return nil, err
	}
	return s.Get(ctx, userRef)
}

// ApplyCoupon validates the code against the current subtotal and stores the
// resolved discount amount on the cart. The stored amount does not re-scale
// silently as the cart changes; checkout re-validates against the subtotal
// of record before any payment intent is created.
func (s *Service) ApplyCoupon(ctx context.Context, userRef, code string) (*View, error) {
	c, err := s.carts.Get(ctx, userRef)
	if err != nil {
		return nil, err
	}
	if len(c.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	d, err := s.coupons.Validate(ctx, code, c.Subtotal())
	if err != nil {
		return nil, err
	}

	if err := s.carts.SetCoupon(ctx, userRef, d.Code, d.Amount); err != nil {
		return nil, errors.Wrap(err, "store coupon")
	}
	return s.Get(ctx, userRef)
}

// RemoveCoupon drops any applied coupon from the cart.
func (s *Service) RemoveCoupon(ctx context.Context, userRef string) (*View, error) {
	if err := s.carts.ClearCoupon(ctx, userRef); err != nil {
		return nil, err
	}
	return s.Get(ctx, userRef)
}

func (s *Service) view(ctx context.Context, c *Cart) (*View, error) {
	var settings *delivery.Settings
	if len(c.Lines) > 0 {
		var err error
		settings, err = s.delivery.Active(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "load delivery settings")
		}
	}

	pricing, err := ComputePricing(c, settings)
	if err != nil {
		return nil, err
	}

	return &View{
		Lines:   c.Lines,
		Coupon:  c.CouponCode,
		Pricing: pricing,
	}, nil
}
