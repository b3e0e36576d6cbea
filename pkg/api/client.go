// Package api is the client for the marketplace REST API.
//
// Usage:
//
//	client := api.New(api.WithTokenSource(session))
//	products, err := client.ListProducts(ctx)
//
//	var apiErr *api.Error
//	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
//	    // prompt for login
//	}
//
// Requests are never retried automatically. Callers that need to resend a
// mutation (an order submission after a timeout) do so explicitly with the
// same idempotency key.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shashiranjanraj/kisanbazaar/config"
	"github.com/shashiranjanraj/kisanbazaar/pkg/logger"
	"github.com/shashiranjanraj/kisanbazaar/pkg/metrics"
)

// ErrUnauthenticated is returned before any network call when an endpoint
// needs a bearer credential and none is held.
var ErrUnauthenticated = errors.New("api: not logged in")

// TokenSource supplies the bearer credential for authenticated calls.
// *auth.Session satisfies it.
type TokenSource interface {
	Token() string
}

// Error is a non-2xx response from the API server.
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("api: %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Client talks to one API server.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	tokens  TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides API_BASE_URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithTimeout overrides API_TIMEOUT for every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithTokenSource sets where bearer credentials come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithHTTPClient replaces the underlying client. Its transport is used as is.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New builds a client from configuration and opts.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: config.APIBaseURL(),
		timeout: config.APITimeout(),
		http: &http.Client{
			Transport: metrics.InstrumentTransport(&http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			}),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server root requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

// ─── Request ──────────────────────────────────────────────────────────────────

// request is a fluent builder for one API call.
type request struct {
	client  *Client
	method  string
	path    string
	headers map[string]string
	body    interface{}
	auth    bool
}

func (c *Client) newRequest(method, path string) *request {
	return &request{
		client:  c,
		method:  method,
		path:    path,
		headers: map[string]string{"Accept": "application/json"},
	}
}

func (c *Client) get(path string) *request    { return c.newRequest(http.MethodGet, path) }
func (c *Client) post(path string) *request   { return c.newRequest(http.MethodPost, path) }
func (c *Client) put(path string) *request    { return c.newRequest(http.MethodPut, path) }
func (c *Client) patch(path string) *request  { return c.newRequest(http.MethodPatch, path) }
func (c *Client) delete(path string) *request { return c.newRequest(http.MethodDelete, path) }

// Header sets a single request header.
func (r *request) Header(key, value string) *request {
	r.headers[key] = value
	return r
}

// Body sets a JSON body.
func (r *request) Body(v interface{}) *request {
	r.body = v
	return r
}

// Authenticated marks the call as needing the bearer credential.
func (r *request) Authenticated() *request {
	r.auth = true
	return r
}

// Send performs the call once and returns the raw 2xx body.
func (r *request) Send(ctx context.Context) ([]byte, error) {
	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("api: marshal %s %s: %w", r.method, r.path, err)
		}
		body = bytes.NewReader(b)
		r.headers["Content-Type"] = "application/json"
	}

	if r.auth {
		token := r.client.token()
		if token == "" {
			return nil, ErrUnauthenticated
		}
		r.headers["Authorization"] = "Bearer " + token
	}

	if r.client.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.client.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.client.baseURL+r.path, body)
	if err != nil {
		return nil, fmt.Errorf("api: build request: %w", err)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	log := logger.WithCtx(ctx)
	start := time.Now()
	resp, err := r.client.http.Do(req)
	if err != nil {
		log.Warn("api: request failed", "method", r.method, "path", r.path, "error", err)
		return nil, fmt.Errorf("api: %s %s: %w", r.method, r.path, err)
	}
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("api: read %s %s: %w", r.method, r.path, err)
	}
	log.Debug("api: request", "method", r.method, "path", r.path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Method: r.method, Path: r.path, Status: resp.StatusCode, Message: serverMessage(raw)}
	}
	return raw, nil
}

// JSON performs the call and decodes the response into dest.
func (r *request) JSON(ctx context.Context, dest interface{}) error {
	raw, err := r.Send(ctx)
	if err != nil {
		return err
	}
	if dest == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}

// serverMessage extracts {"message": "..."} from an error body, falling back
// to the trimmed body text.
func serverMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

type messageResponse struct {
	Message string `json:"message"`
}
