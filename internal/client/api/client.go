// Package api is the client's HTTP binding to the storefront proxy. Every
// call returns the decoded response envelope; only transport failures and
// non-JSON bodies are returned as errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/storefront/internal/models"
)

const userCookie = "user"

// Client calls the proxy's /api endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// New creates a Client for the proxy at baseURL. hc should carry a cookie
// jar (see NewHTTPClient); log may be nil.
func New(baseURL string, hc *http.Client, log *zap.Logger) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc, log: log}
}

// RegisterRequest is the registration form.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.Envelope, error) {
	return c.do(ctx, http.MethodPost, "/api/auth/login", nil, map[string]string{"email": email, "password": password})
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*models.Envelope, error) {
	return c.do(ctx, http.MethodPost, "/api/auth/register", nil, req)
}

func (c *Client) ResendOTP(ctx context.Context, email string) (*models.Envelope, error) {
	return c.do(ctx, http.MethodPost, "/api/auth/resend-otp", nil, map[string]string{"email": email})
}

func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (*models.Envelope, error) {
	return c.do(ctx, http.MethodPost, "/api/auth/verify-otp", nil, map[string]string{"email": email, "otp": otp})
}

func (c *Client) Logout(ctx context.Context) (*models.Envelope, error) {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Identity returns the user stored in the readable user cookie, or nil when
// the cookie is absent or unreadable.
func (c *Client) Identity() *models.Identity {
	if c.http.Jar == nil {
		return nil
	}
	u, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return nil
	}
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name != userCookie || ck.Value == "" {
			continue
		}
		raw, err := url.QueryUnescape(ck.Value)
		if err != nil {
			return nil
		}
		var id models.Identity
		if err := json.Unmarshal([]byte(raw), &id); err != nil {
			c.log.Warn("unreadable user cookie", zap.Error(err))
			return nil
		}
		return &id
	}
	return nil
}

func (c *Client) Products(ctx context.Context, query url.Values) (*models.Envelope, error) {
	return c.do(ctx, http.MethodGet, "/api/products", query, nil)
}

func (c *Client) Wishlist(ctx context.Context) (*models.Envelope, error) {
	return c.do(ctx, http.MethodGet, "/api/wishlist", nil, nil)
}

func (c *Client) AddToWishlist(ctx context.Context, productID string) (*models.Envelope, error) {
	return c.do(ctx, http.MethodPost, "/api/wishlist", nil, map[string]string{"productId": productID})
}

func (c *Client) RemoveFromWishlist(ctx context.Context, productID string) (*models.Envelope, error) {
	return c.do(ctx, http.MethodDelete, "/api/wishlist", url.Values{"productId": {productID}}, nil)
}

func (c *Client) Addresses(ctx context.Context) (*models.Envelope, error) {
	return c.do(ctx, http.MethodGet, "/api/address", nil, nil)
}

func (c *Client) CreateAddress(ctx context.Context, addr any) (*models.Envelope, error) {
	return c.do(ctx, http.MethodPost, "/api/address", nil, addr)
}

func (c *Client) Address(ctx context.Context, id string) (*models.Envelope, error) {
	return c.do(ctx, http.MethodGet, "/api/address/"+url.PathEscape(id), nil, nil)
}

func (c *Client) UpdateAddress(ctx context.Context, id string, addr any) (*models.Envelope, error) {
	return c.do(ctx, http.MethodPut, "/api/address/"+url.PathEscape(id), nil, addr)
}

func (c *Client) DeleteAddress(ctx context.Context, id string) (*models.Envelope, error) {
	return c.do(ctx, http.MethodDelete, "/api/address/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*models.Envelope, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env models.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%s %s: decode response (status %d): %w", method, path, resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 {
		env.Success = false
		c.log.Debug("request rejected", zap.String("path", path), zap.Int("status", resp.StatusCode), zap.String("message", env.Message))
	}
	return &env, nil
}
