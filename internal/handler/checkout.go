package handler

import (
	"net/http"

	"github.com/craftkart/checkout/internal/payment"
)

// initiateCheckout prices the cart server-side and opens a payment intent.
// The request has no body: the amount comes from the stored cart, never from
// the client.
func (h *Handler) initiateCheckout(w http.ResponseWriter, r *http.Request) {
	userRef, ok := h.userRef(w, r)
	if !ok {
		return
	}

	handle, err := h.checkout.Initiate(r.Context(), userRef)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, handle)
}

type callbackResponse struct {
	OrderID string `json:"order_id"`
}

// paymentCallback receives the processor's signed success webhook. The route
// is unauthenticated by API key; the HMAC signature inside the payload is
// the authentication.
func (h *Handler) paymentCallback(w http.ResponseWriter, r *http.Request) {
	var cb payment.Callback
	if err := decodeJSON(r, &cb); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if cb.IntentID == "" || cb.TransactionID == "" || cb.Signature == "" {
		writeError(w, http.StatusBadRequest, "intent_id, transaction_id and signature are required")
		return
	}

	o, err := h.checkout.Confirm(r.Context(), cb)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, callbackResponse{OrderID: o.ID})
}
