package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/craftkart/checkout/internal/domain/delivery"
)

type deliverySettingsResponse struct {
	Type                    delivery.Type   `json:"type"`
	MinOrderForFreeDelivery decimal.Decimal `json:"min_order_for_free_delivery"`
	StandardDeliveryCharge  decimal.Decimal `json:"standard_delivery_charge"`
	CreatedAt               time.Time       `json:"created_at"`
}

func toDeliverySettingsResponse(s *delivery.Settings) deliverySettingsResponse {
	return deliverySettingsResponse{
		Type:                    s.Type,
		MinOrderForFreeDelivery: s.MinOrderForFreeDelivery,
		StandardDeliveryCharge:  s.StandardDeliveryCharge,
		CreatedAt:               s.CreatedAt,
	}
}

func (h *Handler) getDeliverySettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.delivery.Active(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeliverySettingsResponse(s))
}

type replaceDeliverySettingsRequest struct {
	Type                    delivery.Type   `json:"type"`
	MinOrderForFreeDelivery decimal.Decimal `json:"min_order_for_free_delivery"`
	StandardDeliveryCharge  decimal.Decimal `json:"standard_delivery_charge"`
}

func (h *Handler) adminReplaceDeliverySettings(w http.ResponseWriter, r *http.Request) {
	var req replaceDeliverySettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.Type.Valid() {
		writeError(w, http.StatusBadRequest, "unknown delivery type")
		return
	}
	if req.StandardDeliveryCharge.IsNegative() || req.MinOrderForFreeDelivery.IsNegative() {
		writeError(w, http.StatusBadRequest, "delivery amounts must not be negative")
		return
	}

	s, err := h.delivery.Replace(r.Context(), &delivery.Settings{
		Type:                    req.Type,
		MinOrderForFreeDelivery: req.MinOrderForFreeDelivery,
		StandardDeliveryCharge:  req.StandardDeliveryCharge,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeliverySettingsResponse(s))
}
