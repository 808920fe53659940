package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/craftkart/checkout/internal/domain/auth"
	"github.com/craftkart/checkout/internal/domain/cart"
	"github.com/craftkart/checkout/internal/domain/coupon"
	"github.com/craftkart/checkout/internal/domain/delivery"
	"github.com/craftkart/checkout/internal/domain/order"
	"github.com/craftkart/checkout/internal/domain/product"
	"github.com/craftkart/checkout/internal/payment"
)

// errorResponse is the uniform error envelope for every non-2xx response.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	// Reference carries an identifier the caller can quote to support,
	// set only for payment inconsistencies.
	Reference string `json:"reference,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// respondError maps domain errors onto HTTP statuses. Unrecognized errors
// become opaque 500s; their detail goes to the log, not the wire.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, cart.ErrQuantityRange),
		errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, delivery.ErrUnknownType):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, coupon.ErrInactive),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrBelowMinimum),
		errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, cart.ErrCartNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, payment.ErrIntentNotFound),
		errors.Is(err, delivery.ErrNoActiveSettings):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, cart.ErrQuantityLimit),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, payment.ErrPricingMismatch):
		writeError(w, http.StatusConflict, err.Error())

	case errors.Is(err, payment.ErrBadSignature),
		errors.Is(err, auth.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")

	case errors.Is(err, payment.ErrGatewayUnavailable):
		writeError(w, http.StatusBadGateway, "payment gateway unavailable, please retry")

	default:
		var inconsistency *order.InconsistencyError
		if errors.As(err, &inconsistency) {
			// Money moved but no order persisted. The transaction id is the
			// support reference; the alerting pipeline keys on this message.
			h.lg.Error("payment confirmed but order persistence failed",
				zap.String("transaction_id", inconsistency.TransactionID),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Code:      http.StatusInternalServerError,
				Message:   "payment received, order processing delayed; contact support",
				Reference: inconsistency.TransactionID,
			})
			return
		}

		h.lg.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}
