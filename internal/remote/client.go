// Package remote is the HTTP access layer for the tour-booking API. It exposes
// one method per remote operation and normalizes every failure into a single
// human-readable [Error].
//
// The client performs exactly one round trip per call. It never retries and
// never caches; both are the concern of the stores built on top of it.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// defaultTimeout bounds a single round trip when the caller supplies no
	// *http.Client of its own.
	defaultTimeout = 15 * time.Second

	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 4 << 20

	headerRequestID = "X-Request-ID"
)

// HTTPDoer is the subset of [http.Client] used by [Client]. Defining it as an
// interface allows a custom transport to be injected.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the tour-booking REST API. Create one with [NewClient].
// A Client is safe for concurrent use.
type Client struct {
	baseURL string
	hc      HTTPDoer
	limiter *rate.Limiter
	log     *slog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc HTTPDoer) Option {
	return func(c *Client) { c.hc = hc }
}

// WithTimeout sets the per-request timeout of the default *http.Client.
// Ignored when WithHTTPClient is also given.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if hc, ok := c.hc.(*http.Client); ok && d > 0 {
			hc.Timeout = d
		}
	}
}

// WithRateLimit throttles outgoing requests to rps requests per second with a
// burst of one. A non-positive rps disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets the logger used for per-request debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.log = logger }
}

// NewClient creates a Client for the API rooted at baseURL
// (e.g. "http://localhost:8080").
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.ParseRequestURI(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("api url %q must be a valid http or https URL", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: defaultTimeout},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// operation names a remote call and the message reported when the server
// gives no usable explanation for a failure.
type operation struct {
	name     string
	fallback string
}

// request describes one round trip.
type request struct {
	op     operation
	method string
	path   string
	query  url.Values
	token  string
	body   any // marshalled as JSON when non-nil
}

// do performs r and returns the raw response body on a 2xx status. Every
// failure is returned as *Error.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, transportError(r.op, err)
		}
	}

	endpoint := c.baseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, &Error{Op: r.op.name, Message: r.op.fallback, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return nil, &Error{Op: r.op.name, Message: r.op.fallback, Err: fmt.Errorf("create request: %w", err)}
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, reqID)
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Debug("request failed", "op", r.op.name, "request_id", reqID, "error", err)
		return nil, transportError(r.op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	c.log.Debug("request done",
		"op", r.op.name,
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"request_id", reqID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Op:      r.op.name,
			Status:  resp.StatusCode,
			Message: messageFromBody(raw, r.op.fallback),
		}
	}
	if readErr != nil {
		return nil, &Error{Op: r.op.name, Status: resp.StatusCode, Message: r.op.fallback, Err: fmt.Errorf("read response: %w", readErr)}
	}
	return raw, nil
}

// call performs r and decodes a JSON object response into out. A nil out
// discards the body.
func (c *Client) call(ctx context.Context, r request, out any) error {
	raw, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Op: r.op.name, Status: http.StatusOK, Message: r.op.fallback, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// callList performs r and decodes a JSON array response. Any payload that is
// not an array yields an empty, non-nil slice.
func callList[T any](ctx context.Context, c *Client, r request) ([]T, error) {
	raw, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return []T{}, nil
	}
	out := []T{}
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, &Error{Op: r.op.name, Status: http.StatusOK, Message: r.op.fallback, Err: fmt.Errorf("decode response: %w", err)}
	}
	return out, nil
}
