package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pampermomma/internal/platform/config"
	"pampermomma/internal/platform/metrics"
	dErrors "pampermomma/pkg/domain-errors"
)

// HTTPClient is the production processor client.
type HTTPClient struct {
	baseURL   string
	secretKey string
	client    *http.Client
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures the HTTP client.
type Option func(*HTTPClient)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.client = c }
}

// WithMetrics attaches latency metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *HTTPClient) { h.metrics = m }
}

// NewHTTPClient constructs a processor client from config.
func NewHTTPClient(cfg config.ProcessorConfig, logger *slog.Logger, opts ...Option) (*HTTPClient, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("processor secret key is required")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.stripe.com"
	}
	h := &HTTPClient{
		baseURL:   base,
		secretKey: cfg.SecretKey,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *HTTPClient) CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.Amount.Cents(), 10))
	form.Set("currency", defaultCurrency(req.Currency))
	form.Set("automatic_payment_methods[enabled]", "true")
	if req.ReceiptEmail != "" {
		form.Set("receipt_email", req.ReceiptEmail)
	}
	for key, value := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", key), value)
	}

	var intent Intent
	if err := h.do(ctx, http.MethodPost, "/v1/payment_intents", form, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (h *HTTPClient) GetIntent(ctx context.Context, intentID string) (*Intent, error) {
	if intentID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "intent id is required")
	}
	form := url.Values{}
	form.Set("expand[]", "latest_charge.balance_transaction")

	var intent Intent
	path := "/v1/payment_intents/" + url.PathEscape(intentID)
	if err := h.do(ctx, http.MethodGet, path, form, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (h *HTTPClient) CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.Amount.Cents(), 10))
	form.Set("currency", defaultCurrency(req.Currency))
	form.Set("destination", req.Destination)
	if req.Description != "" {
		form.Set("description", req.Description)
	}

	var transfer Transfer
	if err := h.do(ctx, http.MethodPost, "/v1/transfers", form, &transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (h *HTTPClient) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	if accountID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "account id is required")
	}
	var account Account
	path := "/v1/accounts/" + url.PathEscape(accountID)
	if err := h.do(ctx, http.MethodGet, path, nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (h *HTTPClient) GetBalance(ctx context.Context, accountID string) (*Balance, error) {
	var balance Balance
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/v1/balance", nil)
	if err != nil {
		return nil, fmt.Errorf("build balance request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.secretKey)
	if accountID != "" {
		req.Header.Set("Stripe-Account", accountID)
	}
	if err := h.send(req, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

func (h *HTTPClient) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var (
		body        io.Reader
		contentType string
	)
	endpoint := h.baseURL + path
	if form != nil {
		if method == http.MethodGet {
			endpoint += "?" + form.Encode()
		} else {
			body = strings.NewReader(form.Encode())
			contentType = "application/x-www-form-urlencoded"
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build processor request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.secretKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return h.send(req, out)
}

func (h *HTTPClient) send(req *http.Request, out any) error {
	start := time.Now()
	resp, err := h.client.Do(req)
	if h.metrics != nil {
		h.metrics.ObserveProcessorLatency(time.Since(start))
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "processor unreachable")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "read processor response")
	}

	if resp.StatusCode >= 400 {
		return h.apiError(req, resp.StatusCode, payload)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "decode processor response")
	}
	return nil
}

type apiErrorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (h *HTTPClient) apiError(req *http.Request, status int, payload []byte) error {
	var envelope apiErrorEnvelope
	_ = json.Unmarshal(payload, &envelope)
	message := envelope.Error.Message
	if message == "" {
		message = fmt.Sprintf("processor returned status %d", status)
	}

	h.logger.Warn("processor request failed",
		"method", req.Method,
		"path", req.URL.Path,
		"status", status,
		"processor_code", envelope.Error.Code,
	)

	switch {
	case status >= 500:
		return dErrors.New(dErrors.CodeUnavailable, message)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return dErrors.New(dErrors.CodeInternal, "processor rejected credentials")
	case status == http.StatusNotFound:
		return dErrors.New(dErrors.CodeNotFound, message)
	case status == http.StatusTooManyRequests:
		return dErrors.New(dErrors.CodeUnavailable, message)
	default:
		return dErrors.New(dErrors.CodeBadRequest, message)
	}
}

func defaultCurrency(currency string) string {
	if currency == "" {
		return "usd"
	}
	return strings.ToLower(currency)
}
