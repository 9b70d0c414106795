// Package apiclient is the typed HTTP client the workflows use to reach the
// registry API. Every call returns either a decoded value or a coded error,
// never both; transport failures and API error envelopes map onto the same
// error taxonomy the server uses.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	dErrors "pampermomma/pkg/domain-errors"
)

// Client calls the registry API.
type Client struct {
	baseURL        string
	http           *http.Client
	token          func() string
	onUnauthorized func()
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTokenSource supplies the bearer token per request. An empty return
// sends the request unauthenticated.
func WithTokenSource(token func() string) Option {
	return func(c *Client) { c.token = token }
}

// WithUnauthorizedHook installs the single global reaction to a 401. All
// other errors stay with the caller.
func WithUnauthorizedHook(hook func()) Option {
	return func(c *Client) { c.onUnauthorized = hook }
}

// New creates a Client for the given API origin.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches path and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON and decodes the response into out. A nil out
// discards the response body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "request failed")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "read response")
	}

	if resp.StatusCode >= 400 {
		return c.apiError(resp.StatusCode, payload)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "decode response")
	}
	return nil
}

type errorEnvelope struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (c *Client) apiError(status int, payload []byte) error {
	var envelope errorEnvelope
	_ = json.Unmarshal(payload, &envelope)

	if status == http.StatusUnauthorized {
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		message := envelope.Error
		if message == "" {
			message = "unauthorized"
		}
		return dErrors.New(dErrors.CodeUnauthorized, message)
	}

	code := dErrors.Code(envelope.Code)
	if code == "" {
		code = codeForStatus(status)
	}
	message := envelope.Error
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}
	return dErrors.New(code, message)
}

func codeForStatus(status int) dErrors.Code {
	switch {
	case status == http.StatusNotFound:
		return dErrors.CodeNotFound
	case status == http.StatusForbidden:
		return dErrors.CodeForbidden
	case status == http.StatusConflict:
		return dErrors.CodeConflict
	case status >= 500:
		return dErrors.CodeUnavailable
	default:
		return dErrors.CodeBadRequest
	}
}
