// Package httpclient is the transport adapter for the marketplace REST API.
// It attaches the bearer token, distinguishes JSON from multipart bodies,
// maps non-2xx responses to typed failures, and publishes an AuthRejected
// event when the backend refuses the credential. It holds no reference to
// session storage or navigation.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/lapmarkt/lapcli/internal/errs"
	"github.com/lapmarkt/lapcli/internal/event"
)

// TokenSource supplies the current bearer token. An empty string means
// no credential is attached.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to the TokenSource interface.
type TokenFunc func() string

// Token returns the current token.
func (f TokenFunc) Token() string { return f() }

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	Tokens     TokenSource
	Bus        *event.Bus
	Logger     *zap.Logger
}

// Client issues authenticated requests against the backend.
type Client struct {
	baseURL    string
	http       *http.Client
	maxRetries int
	tokens     TokenSource
	bus        *event.Bus
	logger     *zap.Logger
}

// New constructs a Client from options. Bus and Tokens may be nil for
// unauthenticated use.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		http:       &http.Client{Timeout: timeout},
		maxRetries: opts.MaxRetries,
		tokens:     opts.Tokens,
		bus:        opts.Bus,
		logger:     logger,
	}
}

// GetJSON performs a GET and decodes the (possibly enveloped) response into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, "", nil, out)
}

// PostJSON performs a POST with a JSON body.
func (c *Client) PostJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, nil, "application/json", payload, out)
}

// Post performs a POST with no body.
func (c *Client) Post(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, "", nil, out)
}

// Delete performs a DELETE, optionally with query parameters.
func (c *Client) Delete(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodDelete, path, query, "", nil, out)
}

// PostMultipart performs a POST with a multipart/form-data body. The form's
// own content type carries the boundary; no JSON header is set.
func (c *Client) PostMultipart(ctx context.Context, path string, form *Form, out any) error {
	contentType, payload, err := form.Encode()
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, nil, contentType, payload, out)
}

// PutMultipart performs a PUT with a multipart/form-data body.
func (c *Client) PutMultipart(ctx context.Context, path string, form *Form, out any) error {
	contentType, payload, err := form.Encode()
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, path, nil, contentType, payload, out)
}

// do runs the request with bounded retries. Only transport-level failures
// are retried; any HTTP response, success or rejection, is final.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, payload []byte, out any) error {
	backoff := retry.WithMaxRetries(uint64(c.maxRetries), retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.attempt(ctx, method, path, query, contentType, payload, out)
		if errs.IsNetwork(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *Client) attempt(ctx context.Context, method, path string, query url.Values, contentType string, payload []byte, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	reqID, _ := uuid.NewV4()
	req.Header.Set("X-Request-ID", reqID.String())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed before response",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", reqID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("%s %s: %w: %w", method, path, errs.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, errs.ErrNetwork, err)
	}

	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("request_id", reqID.String()),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.mapError(resp.StatusCode, resp.Status, raw)
	}
	return decodeInto(raw, out)
}

// mapError converts a non-2xx response to a typed failure. 401/403 publish
// AuthRejected so the session layer can clear state and redirect; the
// failing call still gets an error either way.
func (c *Client) mapError(status int, statusText string, body []byte) error {
	msg := serverMessage(body)
	if msg == "" {
		msg = statusText
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		if c.bus != nil {
			c.bus.Publish(event.Event{Type: event.AuthRejected})
		}
		return fmt.Errorf("%s: %w", msg, errs.ErrAuthRejected)
	}
	return &errs.APIError{StatusCode: status, Message: msg}
}

// serverMessage extracts the error text the backend supplies, if any.
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

// decodeInto unmarshals a response body into out. Most endpoints wrap their
// payload in {"success":..,"data":..}; some return the payload bare. The
// data field wins when present.
func decodeInto(raw []byte, out any) error {
	if out == nil || len(raw) == 0 {
		return nil
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 && string(env.Data) != "null" {
		return json.Unmarshal(env.Data, out)
	}
	return json.Unmarshal(raw, out)
}
