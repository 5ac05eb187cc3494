// Package upstream is the HTTP client the proxy uses to reach the remote
// commerce admin API.
package upstream

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

	"go.uber.org/zap"
)

// ErrNotJSON is returned when the upstream body cannot be parsed as JSON.
var ErrNotJSON = errors.New("upstream returned a non-JSON body")

// Request describes one forwarded call.
type Request struct {
	Method string
	// Path is appended to the base URL, e.g. "/api/address".
	Path  string
	Query url.Values
	// Body is JSON-encoded when non-nil.
	Body any
	// Cookie is sent verbatim as the Cookie header when non-empty.
	Cookie string
}

// Response is the upstream status and its raw JSON body.
type Response struct {
	StatusCode int
	Body       json.RawMessage
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client forwards requests to the commerce API. A single attempt is made per
// call; deadlines come only from the caller's context.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// New creates a Client. hc may be nil to use a client without a timeout.
func New(baseURL string, hc *http.Client, log *zap.Logger) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc, log: log}
}

// BaseURL returns the configured upstream base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL builds the absolute upstream URL for path and query.
func (c *Client) URL(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Do performs the request. Transport failures and non-JSON bodies are
// returned as errors; any HTTP status is returned as a Response.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	var body io.Reader
	if r.Body != nil {
		b, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	target := c.URL(r.Path, r.Query)
	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.Cookie != "" {
		req.Header.Set("Cookie", r.Cookie)
	}

	c.log.Debug("forwarding to upstream", zap.String("method", r.Method), zap.String("url", target))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream %s %s: %w", r.Method, r.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w (status %d)", ErrNotJSON, resp.StatusCode)
	}

	return &Response{StatusCode: resp.StatusCode, Body: raw}, nil
}
