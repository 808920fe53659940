package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/craftkart/checkout/internal/domain/coupon"
)

type couponRule struct {
	Code             string          `json:"code"`
	DiscountPercent  decimal.Decimal `json:"discount_percent"`
	MinOrderValue    decimal.Decimal `json:"min_order_value"`
	MaxDiscountValue decimal.Decimal `json:"max_discount_value"`
	ExpiresAt        time.Time       `json:"expires_at"`
	Active           bool            `json:"active"`
}

func toCouponRule(r *coupon.Rule) couponRule {
	return couponRule{
		Code:             r.Code,
		DiscountPercent:  r.DiscountPercent,
		MinOrderValue:    r.MinOrderValue,
		MaxDiscountValue: r.MaxDiscountValue,
		ExpiresAt:        r.ExpiresAt,
		Active:           r.Active,
	}
}

func (h *Handler) adminListCoupons(w http.ResponseWriter, r *http.Request) {
	rules, err := h.coupons.List(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	out := make([]couponRule, len(rules))
	for i := range rules {
		out[i] = toCouponRule(&rules[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) adminCreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRule
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	code := coupon.Normalize(req.Code)
	switch {
	case code == "":
		writeError(w, http.StatusBadRequest, "code is required")
		return
	case req.DiscountPercent.IsNegative() || req.DiscountPercent.GreaterThan(decimal.NewFromInt(100)):
		writeError(w, http.StatusBadRequest, "discount_percent must be between 0 and 100")
		return
	case req.MinOrderValue.IsNegative() || req.MaxDiscountValue.IsNegative():
		writeError(w, http.StatusBadRequest, "coupon amounts must not be negative")
		return
	case req.ExpiresAt.IsZero():
		writeError(w, http.StatusBadRequest, "expires_at is required")
		return
	}

	rule := &coupon.Rule{
		Code:             code,
		DiscountPercent:  req.DiscountPercent,
		MinOrderValue:    req.MinOrderValue,
		MaxDiscountValue: req.MaxDiscountValue,
		ExpiresAt:        req.ExpiresAt,
		Active:           req.Active,
	}
	if err := h.coupons.Create(r.Context(), rule); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCouponRule(rule))
}

func (h *Handler) adminDeactivateCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.coupons.Deactivate(r.Context(), r.PathValue("code")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
