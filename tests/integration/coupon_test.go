//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyCoupon(t *testing.T) {
	user := asUser("it-coupon-apply")

	resp := do(t, http.MethodPost, "/api/cart/items", map[string]any{
		"product_id": "sneakers-low",
		"quantity":   1,
	}, user)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Codes are case-insensitive. BIG20 is 20% capped at 500, min order 1000.
	resp = do(t, http.MethodPost, "/api/cart/coupon", map[string]any{
		"code": "big20",
	}, user)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	crt := decodeJSON[cartResponse](t, resp)
	assert.Equal(t, "BIG20", crt.CouponCode)
	assertAmount(t, 2499, crt.Pricing.Subtotal)
	assertAmount(t, 0, crt.Pricing.DeliveryCharge)
	// 20% of 2499 is 499.80, under the 500 cap.
	assert.True(t, crt.Pricing.DiscountAmount.Equal(decimal.RequireFromString("499.80")),
		"discount = %s", crt.Pricing.DiscountAmount)
	assert.True(t, crt.Pricing.GrandTotal.Equal(decimal.RequireFromString("1999.20")),
		"grand total = %s", crt.Pricing.GrandTotal)

	// Removing the coupon restores full price.
	resp = do(t, http.MethodDelete, "/api/cart/coupon", nil, user)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	crt = decodeJSON[cartResponse](t, resp)
	assert.Empty(t, crt.CouponCode)
	assertAmount(t, 0, crt.Pricing.DiscountAmount)
	assertAmount(t, 2499, crt.Pricing.GrandTotal)
}

func TestApplyCouponDiscountCap(t *testing.T) {
	user := asUser("it-coupon-cap")

	// 3 pairs of sneakers: 7497 subtotal, 20% would be 1499.40 but BIG20
	// caps at 500.
	resp := do(t, http.MethodPost, "/api/cart/items", map[string]any{
		"product_id": "sneakers-low",
		"quantity":   3,
	}, user)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, http.MethodPost, "/api/cart/coupon", map[string]any{
		"code": "BIG20",
	}, user)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	crt := decodeJSON[cartResponse](t, resp)
	assertAmount(t, 500, crt.Pricing.DiscountAmount)
	assertAmount(t, 6997, crt.Pricing.GrandTotal)
}

func TestApplyCouponRejections(t *testing.T) {
	user := asUser("it-coupon-reject")

	// A cap alone is under BIG20's 1000 minimum order value.
	resp := do(t, http.MethodPost, "/api/cart/items", map[string]any{
		"product_id": "cap-canvas",
		"quantity":   1,
	}, user)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	tests := []struct {
		name string
		code string
	}{
		{"unknown code", "NOPE1234"},
		{"below min order", "BIG20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, "/api/cart/coupon", map[string]any{
				"code": tt.code,
			}, user)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		})
	}
}

func TestApplyCouponEmptyCart(t *testing.T) {
	resp := do(t, http.MethodPost, "/api/cart/coupon", map[string]any{
		"code": "WELCOME10",
	}, asUser("it-coupon-empty"))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
