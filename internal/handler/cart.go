package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/craftkart/checkout/internal/domain/cart"
)

// cartResponse is the wire form of a cart view.
type cartResponse struct {
	Items      []cart.Line  `json:"items"`
	CouponCode string       `json:"coupon_code,omitempty"`
	Pricing    cart.Pricing `json:"pricing"`
}

func toCartResponse(v *cart.View) cartResponse {
	items := v.Lines
	if items == nil {
		items = []cart.Line{}
	}
	return cartResponse{
		Items:      items,
		CouponCode: v.Coupon,
		Pricing:    v.Pricing,
	}
}

// getCart returns the cart with its pricing snapshot. A user who has never
// added anything gets an empty cart, not a 404.
func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	userRef, ok := h.userRef(w, r)
	if !ok {
		return
	}

	v, err := h.carts.Get(r.Context(), userRef)
	if err != nil {
		if errors.Is(err, cart.ErrCartNotFound) {
			writeJSON(w, http.StatusOK, toCartResponse(&cart.View{}))
			return
		}
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(v))
}

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	userRef, ok := h.userRef(w, r)
	if !ok {
		return
	}

	var req addCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	v, err := h.carts.AddItem(r.Context(), userRef, cart.AddItemRequest{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Size:      req.Size,
		Color:     req.Color,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(v))
}

type updateCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	userRef, ok := h.userRef(w, r)
	if !ok {
		return
	}

	var req updateCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	v, err := h.carts.UpdateQuantity(r.Context(), userRef, req.ProductID, req.Size, req.Color, req.Quantity)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(v))
}

type removeCartItemRequest struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	userRef, ok := h.userRef(w, r)
	if !ok {
		return
	}

	var req removeCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	v, err := h.carts.RemoveItem(r.Context(), userRef, req.ProductID, req.Size)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(v))
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	userRef, ok := h.userRef(w, r)
	if !ok {
		return
	}

	var req applyCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	v, err := h.carts.ApplyCoupon(r.Context(), userRef, req.Code)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(v))
}

func (h *Handler) removeCoupon(w http.ResponseWriter, r *http.Request) {
	userRef, ok := h.userRef(w, r)
	if !ok {
		return
	}

	v, err := h.carts.RemoveCoupon(r.Context(), userRef)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(v))
}
