// Package client is the authenticated request gateway to the storefront API.
//
// Every outgoing request picks up the stored session credential, and every
// authentication rejection revokes it. Responses are classified into the
// error taxonomy in errors.go; nothing is retried.
package client

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
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "DayStore-Client/1.0"
	maxResponseBytes = 8 << 20

	// RequestIDHeader carries a per-request correlation id.
	RequestIDHeader = "X-Request-ID"
)

// Credentials is the part of the session store the gateway depends on.
// *session.Store satisfies it.
type Credentials interface {
	Get() (string, bool)
	Touch()
	Clear()
}

// Client sends requests to the storefront API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	session   Credentials
	logger    *slog.Logger
	userAgent string
	maxBody   int64
	metrics   *metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the timeout of the default *http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http = &http.Client{Timeout: d}
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRegisterer records request metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) {
		if reg != nil {
			c.metrics = newMetrics(reg)
		}
	}
}

// WithMaxResponseBytes caps how much of a response body is read. Larger
// bodies fail with ErrResponseTooLarge.
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a client for the API rooted at baseURL. sess may be nil, in
// which case no credential is ever attached.
func New(baseURL string, sess Credentials, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	c := &Client{
		baseURL:   u,
		http:      &http.Client{Timeout: defaultTimeout},
		session:   sess,
		userAgent: defaultUserAgent,
		maxBody:   maxResponseBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Request describes one API call. Path is relative to the base URL and
// already escaped (see url.PathEscape).
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   io.Reader
}

// Response is a successful (2xx) API response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// IsJSON reports whether the response declared a JSON content type.
func (r *Response) IsJSON() bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json")
}

// Decode parses the body as JSON into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Text returns the raw body.
func (r *Response) Text() string {
	return string(r.Body)
}

// resolve joins the escaped path onto the base URL.
func (c *Client) resolve(path string, query url.Values) string {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// Do sends req and classifies the result:
//   - 2xx returns the response;
//   - 401/403 clears the session and returns *UnauthorizedError;
//   - other statuses return *RequestError with the raw body;
//   - round-trip failures return *TransportError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := c.resolve(req.Path, req.Query)

	httpReq, err := http.NewRequestWithContext(ctx, method, target, req.Body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, Cause: err}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set(RequestIDHeader, requestID)

	attached := false
	if httpReq.Header.Get("Authorization") == "" && c.session != nil {
		if cred, ok := c.session.Get(); ok {
			httpReq.Header.Set("Authorization", cred)
			c.session.Touch()
			attached = true
		}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.observe(method, OutcomeTransport, time.Since(start))
		c.logger.Debug("api request failed",
			slog.String("method", method),
			slog.String("url", target),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, &TransportError{Method: method, URL: target, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err == nil && int64(len(body)) > c.maxBody {
		err = fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, c.maxBody)
	}
	if err != nil {
		c.metrics.observe(method, OutcomeTransport, time.Since(start))
		return nil, &TransportError{Method: method, URL: target, Cause: fmt.Errorf("reading body: %w", err)}
	}

	outcome := OutcomeOK
	defer func() {
		c.metrics.observe(method, outcome, time.Since(start))
		c.logger.Debug("api request",
			slog.String("method", method),
			slog.String("url", target),
			slog.String("request_id", requestID),
			slog.Int("status", resp.StatusCode),
			slog.Bool("authenticated", attached),
			slog.String("outcome", outcome))
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		outcome = OutcomeUnauthorized
		if c.session != nil {
			c.session.Clear()
		}
		return nil, &UnauthorizedError{Status: resp.StatusCode}
	default:
		outcome = OutcomeFailed
		return nil, &RequestError{Status: resp.StatusCode, Body: string(body)}
	}
}

// DoJSON sends in (if non-nil) as a JSON body and decodes the response into
// out. out may be nil to discard the body, or a *string to receive the raw
// text. An empty body (204) leaves out untouched.
func (c *Client) DoJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	req := Request{Method: method, Path: path, Query: query, Header: http.Header{}}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		req.Body = bytes.NewReader(data)
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	switch dst := out.(type) {
	case nil:
		return nil
	case *string:
		*dst = resp.Text()
		return nil
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	return resp.Decode(out)
}
