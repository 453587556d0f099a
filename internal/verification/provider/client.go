package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"idvgate/internal/verification/metrics"
	"idvgate/internal/verification/models"
	"idvgate/pkg/platform/circuit"
)

const (
	opExchangeToken = "exchange_token"
	opFetchResult   = "fetch_result"

	tokensPath       = "/v0/tokens"
	transactionsPath = "/v0/transactions/"

	maxResponseBytes = 1 << 20
)

// Client talks to the verification provider's REST API. Both calls
// authenticate with the private key as the basic-auth username.
type Client struct {
	baseURL    string
	privateKey string
	httpClient *http.Client
	metrics    *metrics.Metrics
	breaker    *circuit.Breaker
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithBreaker fails calls fast with provider_outage while b is open.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

// New creates a provider client.
func New(baseURL, privateKey string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		privateKey: privateKey,
		httpClient: &http.Client{Timeout: timeout},
		tracer:     otel.Tracer("idvgate/verification/provider"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenRequest struct {
	Code string `json:"code"`
}

// ExchangeToken trades the one-time token from the hosted flow for the
// provider's check identifier.
func (c *Client) ExchangeToken(ctx context.Context, exchangeToken string) (string, error) {
	body, err := json.Marshal(tokenRequest{Code: exchangeToken})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	status, respBody, err := c.do(ctx, opExchangeToken, http.MethodPost, c.baseURL+tokensPath, body)
	if err != nil {
		return "", err
	}
	return parseTokenResponse(status, respBody)
}

// FetchResult retrieves the verification result for a check.
func (c *Client) FetchResult(ctx context.Context, checkID string) (*models.VerificationResult, error) {
	endpoint := c.baseURL + transactionsPath + url.PathEscape(checkID)
	status, respBody, err := c.do(ctx, opFetchResult, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return parseResultResponse(status, respBody)
}

func (c *Client) do(ctx context.Context, operation, method, endpoint string, body []byte) (int, []byte, error) {
	ctx, span := c.tracer.Start(ctx, "provider."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.method", method)),
	)
	defer span.End()

	start := time.Now()
	if c.breaker != nil && !c.breaker.Allow() {
		err := newError(ErrorOutage, operation, 0, "provider circuit open", nil)
		span.SetStatus(codes.Error, string(ErrorOutage))
		c.metrics.ObserveProviderLatency(operation, "circuit_open", 0)
		return 0, nil, err
	}

	status, respBody, err := c.send(ctx, operation, method, endpoint, body)
	c.record(err, status)
	result := "ok"
	if err != nil {
		result = string(GetCategory(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	} else if status >= http.StatusBadRequest {
		result = fmt.Sprintf("http_%d", status)
	}
	span.SetAttributes(attribute.Int("http.status_code", status))
	c.metrics.ObserveProviderLatency(operation, result, time.Since(start))
	return status, respBody, err
}

func (c *Client) send(ctx context.Context, operation, method, endpoint string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, newError(ErrorBadData, operation, 0, "build request", err)
	}
	req.SetBasicAuth(c.privateKey, "")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return 0, nil, newError(ErrorTimeout, operation, 0, "request timed out", err)
		}
		return 0, nil, newError(ErrorOutage, operation, 0, "provider unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, newError(ErrorBadData, operation, resp.StatusCode, "read response", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return resp.StatusCode, nil, newError(ErrorAuthentication, operation, resp.StatusCode, "unauthorized", nil)
	}
	return resp.StatusCode, respBody, nil
}

// record feeds the breaker. Only outages, timeouts and 5xx count against
// the provider; rejected credentials and bad input do not.
func (c *Client) record(err error, status int) {
	if c.breaker == nil {
		return
	}
	category := GetCategory(err)
	if (err != nil && (category == ErrorOutage || category == ErrorTimeout)) || status >= http.StatusInternalServerError {
		c.breaker.RecordFailure()
		return
	}
	c.breaker.RecordSuccess()
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
