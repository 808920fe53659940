package handler

import (
	"net/http"
	"time"

	"github.com/craftkart/checkout/internal/domain/cart"
	"github.com/craftkart/checkout/internal/domain/order"
)

type orderResponse struct {
	ID            string              `json:"id"`
	UserRef       string              `json:"user_ref,omitempty"`
	Items         []cart.Line         `json:"items"`
	Pricing       cart.Pricing        `json:"pricing"`
	CouponCode    string              `json:"coupon_code,omitempty"`
	PaymentStatus order.PaymentStatus `json:"payment_status"`
	Status        order.Status        `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
}

func toOrderResponse(o *order.Order, includeUser bool) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		Items:         o.Items,
		Pricing:       o.Pricing,
		CouponCode:    o.CouponCode,
		PaymentStatus: o.PaymentStatus,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
	}
	if includeUser {
		resp.UserRef = o.UserRef
	}
	return resp
}

func toOrderResponses(orders []order.Order, includeUser bool) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i], includeUser)
	}
	return out
}

// listOrders returns the caller's order history, newest first.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	userRef, ok := h.userRef(w, r)
	if !ok {
		return
	}

	orders, err := h.history.ListByUser(r.Context(), userRef)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders, false))
}

// getOrder returns one order. Orders are scoped to their owner; asking for
// someone else's order reads as not found.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	userRef, ok := h.userRef(w, r)
	if !ok {
		return
	}

	o, err := h.history.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if o.UserRef != userRef {
		writeError(w, http.StatusNotFound, order.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o, false))
}

func (h *Handler) adminListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.history.ListAll(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders, true))
}

type setOrderStatusRequest struct {
	Status order.Status `json:"status"`
}

func (h *Handler) adminSetOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req setOrderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.Transition(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o, true))
}
