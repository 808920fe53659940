package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// GatewayConfig configures the HTTP client for the external processor.
type GatewayConfig struct {
	// BaseURL is the processor API root, e.g. https://api.gateway.example.
	BaseURL string
	// KeyID and KeySecret authenticate intent-creation calls (basic auth).
	KeyID     string
	KeySecret string
	// Timeout bounds each processor call.
	Timeout time.Duration
}

// HTTPGateway implements Gateway against the processor's REST API.
type HTTPGateway struct {
	cfg    GatewayConfig
	client *http.Client
}

// NewHTTPGateway creates an HTTPGateway with a bounded-timeout client.
func NewHTTPGateway(cfg GatewayConfig) *HTTPGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type createIntentRequest struct {
	// Amount is in minor currency units (paise for INR), the processor's
	// wire convention.
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type createIntentResponse struct {
	ID string `json:"id"`
}

// CreateIntent registers a payment intent for the given amount. Any
// transport or processor-side failure wraps ErrGatewayUnavailable; no charge
// is assumed to have happened.
func (g *HTTPGateway) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (string, error) {
	body, err := json.Marshal(createIntentRequest{
		Amount:   amount.Mul(decimal.NewFromInt(100)).IntPart(),
		Currency: currency,
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal intent request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/v1/intents", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build intent request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.cfg.KeyID, g.cfg.KeySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", errors.Wrap(ErrGatewayUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", errors.Wrapf(ErrGatewayUnavailable, "processor returned %d", resp.StatusCode)
	}

	var out createIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(ErrGatewayUnavailable, err.Error())
	}
	if out.ID == "" {
		return "", errors.Wrap(ErrGatewayUnavailable, "empty intent id")
	}

	return out.ID, nil
}
