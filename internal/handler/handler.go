// Package handler exposes the checkout pipeline over HTTP. Shopper routes
// are keyed by the X-User-Ref header the edge proxy injects after session
// auth; admin routes require an HMAC-verified API key.
package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/craftkart/checkout/internal/domain/cart"
	"github.com/craftkart/checkout/internal/domain/coupon"
	"github.com/craftkart/checkout/internal/domain/delivery"
	"github.com/craftkart/checkout/internal/domain/order"
	"github.com/craftkart/checkout/internal/payment"
)

// userRefHeader carries the shopper identity. The header is trusted; session
// authentication happens upstream at the edge.
const userRefHeader = "X-User-Ref"

// Handler wires the domain services to the HTTP surface.
type Handler struct {
	carts    *cart.Service
	checkout *payment.Checkout
	orders   *order.Service
	history  order.Repository
	coupons  coupon.Repository
	delivery delivery.Repository
	security *Security
	lg       *zap.Logger
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	carts *cart.Service,
	checkout *payment.Checkout,
	orders *order.Service,
	history order.Repository,
	coupons coupon.Repository,
	deliveryRepo delivery.Repository,
	security *Security,
	lg *zap.Logger,
) *Handler {
	return &Handler{
		carts:    carts,
		checkout: checkout,
		orders:   orders,
		history:  history,
		coupons:  coupons,
		delivery: deliveryRepo,
		security: security,
		lg:       lg,
	}
}

// Routes registers every route on the given mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("POST /api/cart/items", h.addCartItem)
	mux.HandleFunc("PUT /api/cart/items", h.updateCartItem)
	mux.HandleFunc("DELETE /api/cart/items", h.removeCartItem)
	mux.HandleFunc("POST /api/cart/coupon", h.applyCoupon)
	mux.HandleFunc("DELETE /api/cart/coupon", h.removeCoupon)

	mux.HandleFunc("GET /api/delivery-settings", h.getDeliverySettings)

	mux.HandleFunc("POST /api/checkout", h.initiateCheckout)
	mux.HandleFunc("POST /api/payment/callback", h.paymentCallback)

	mux.HandleFunc("GET /api/orders", h.listOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)

	mux.Handle("GET /api/admin/coupons", h.security.Require(http.HandlerFunc(h.adminListCoupons)))
	mux.Handle("POST /api/admin/coupons", h.security.Require(http.HandlerFunc(h.adminCreateCoupon)))
	mux.Handle("DELETE /api/admin/coupons/{code}", h.security.Require(http.HandlerFunc(h.adminDeactivateCoupon)))
	mux.Handle("PUT /api/admin/delivery-settings", h.security.Require(http.HandlerFunc(h.adminReplaceDeliverySettings)))
	mux.Handle("GET /api/admin/orders", h.security.Require(http.HandlerFunc(h.adminListOrders)))
	mux.Handle("PUT /api/admin/orders/{id}/status", h.security.Require(http.HandlerFunc(h.adminSetOrderStatus)))
}

// userRef extracts the shopper identity, writing a 400 when absent.
func (h *Handler) userRef(w http.ResponseWriter, r *http.Request) (string, bool) {
	ref := r.Header.Get(userRefHeader)
	if ref == "" {
		writeError(w, http.StatusBadRequest, "missing "+userRefHeader+" header")
		return "", false
	}
	return ref, true
}
