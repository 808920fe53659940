//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The compose environment points the payment gateway at an unroutable
// address, so checkout initiation exercises the unreachable-processor path.
// The full intent-and-callback round trip is covered by the payment package
// tests against an httptest processor.

func TestCheckoutEmptyCart(t *testing.T) {
	resp := do(t, http.MethodPost, "/api/checkout", nil, asUser("it-checkout-empty"))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeJSON[errorResponse](t, resp)
	assert.Equal(t, http.StatusBadRequest, body.Code)
	assert.NotEmpty(t, body.Message)
}

func TestCheckoutGatewayUnreachable(t *testing.T) {
	user := asUser("it-checkout-gateway")

	resp := do(t, http.MethodPost, "/api/cart/items", map[string]any{
		"product_id": "jeans-slim",
		"quantity":   1,
	}, user)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, http.MethodPost, "/api/checkout", nil, user)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	// A failed initiation leaves the cart intact for retry.
	cartResp := do(t, http.MethodGet, "/api/cart", nil, user)
	require.Equal(t, http.StatusOK, cartResp.StatusCode)

	crt := decodeJSON[cartResponse](t, cartResp)
	assert.Len(t, crt.Items, 1)
}

func TestPaymentCallbackBadSignature(t *testing.T) {
	resp := do(t, http.MethodPost, "/api/payment/callback", map[string]any{
		"intent_id":      "pi_nonexistent",
		"transaction_id": "txn_nonexistent",
		"signature":      "deadbeef",
	}, nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPaymentCallbackMissingFields(t *testing.T) {
	resp := do(t, http.MethodPost, "/api/payment/callback", map[string]any{
		"intent_id": "pi_nonexistent",
	}, nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOrderHistoryEmpty(t *testing.T) {
	resp := do(t, http.MethodGet, "/api/orders", nil, asUser("it-orders-empty"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	orders := decodeJSON[[]orderResponse](t, resp)
	assert.Empty(t, orders)
}

func TestGetUnknownOrder(t *testing.T) {
	resp := do(t, http.MethodGet, "/api/orders/b5fca776-0000-0000-0000-000000000000", nil, asUser("it-orders-unknown"))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
