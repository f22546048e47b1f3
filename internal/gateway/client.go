package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/metrics"
	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/models"
)

type Mode string

const (
	ModeDirect   Mode = "DIRECT"
	ModeRedirect Mode = "REDIRECT"
)

type InitiateRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Phone     string          `json:"phone"`
	Email     string          `json:"email"`
	Carrier   models.Carrier  `json:"carrier"`
	Reference string          `json:"reference"`
	ReturnURL string          `json:"return_url"`
}

type InitiateResponse struct {
	OK          bool   `json:"ok"`
	OrderID     string `json:"order_id"`
	Mode        Mode   `json:"mode"`
	RedirectURL string `json:"redirect_url,omitempty"`
	Error       string `json:"error,omitempty"`
}

type StatusResponse struct {
	OK            bool   `json:"ok"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// Config is the single immutable value injected at startup; the
// client never reads process-wide state.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Initiate submits the payment request. There is no client-side retry
// here: a failed submission goes back to the payer.
func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (InitiateResponse, error) {
	ctx, span := otel.Tracer("gateway").Start(ctx, "gateway.Initiate")
	defer span.End()
	span.SetAttributes(attribute.String("payment.reference", req.Reference))

	var out InitiateResponse
	payload, err := json.Marshal(req)
	if err != nil {
		return out, &models.NetworkError{Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pay", bytes.NewReader(payload))
	if err != nil {
		return out, &models.NetworkError{Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues("initiate", "network_error").Inc()
		return out, &models.NetworkError{Cause: err}
	}
	defer resp.Body.Close()

	// A body that fails to parse as JSON is a gateway problem, not a
	// crash.
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.GatewayRequests.WithLabelValues("initiate", "bad_body").Inc()
		return out, &models.NetworkError{Cause: fmt.Errorf("decoding initiate response: %w", err)}
	}

	if !out.OK {
		metrics.GatewayRequests.WithLabelValues("initiate", "rejected").Inc()
		c.logger.Warn("gateway rejected payment",
			zap.String("reference", req.Reference),
			zap.String("error", out.Error),
		)
		return out, &models.GatewayError{Message: out.Error}
	}

	metrics.GatewayRequests.WithLabelValues("initiate", "ok").Inc()
	c.logger.Info("payment initiated",
		zap.String("reference", req.Reference),
		zap.String("order_id", out.OrderID),
		zap.String("mode", string(out.Mode)),
	)
	return out, nil
}

// QueryStatus looks up one payment. Retrying is the polling engine's
// job; this method reports a single observation.
func (c *Client) QueryStatus(ctx context.Context, orderID string) (StatusResponse, error) {
	ctx, span := otel.Tracer("gateway").Start(ctx, "gateway.QueryStatus")
	defer span.End()
	span.SetAttributes(attribute.String("payment.order_id", orderID))

	var out StatusResponse
	u := c.baseURL + "/check_payment?order_id=" + url.QueryEscape(orderID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return out, &models.NetworkError{Cause: err}
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues("status", "network_error").Inc()
		return out, &models.NetworkError{Cause: err}
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.GatewayRequests.WithLabelValues("status", "bad_body").Inc()
		return out, &models.NetworkError{Cause: fmt.Errorf("decoding status response: %w", err)}
	}

	metrics.GatewayRequests.WithLabelValues("status", "ok").Inc()
	return out, nil
}

// ProbeHealth is advisory only: failure degrades a status indicator
// but never blocks payment.
func (c *Client) ProbeHealth(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
