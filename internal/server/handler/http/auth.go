// Package http provides the storefront proxy's HTTP handlers: authentication,
// catalog, addresses and wishlist, each forwarding to the commerce API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/atinyakov/storefront/internal/middleware"
	"github.com/atinyakov/storefront/internal/service"
	"github.com/atinyakov/storefront/internal/upstream"
)

// sessionMaxAge is the lifetime of both session cookies, in seconds.
const sessionMaxAge = 3600

// AuthService defines the interface for authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// Login signs in upstream; the Session is nil when no token was issued.
	Login(ctx context.Context, email, password string) (*upstream.Response, *service.Session, error)
	// Register creates an account upstream.
	Register(ctx context.Context, in service.RegisterInput) (*upstream.Response, error)
	// ResendOTP sends a new one-time code.
	ResendOTP(ctx context.Context, email string) (*upstream.Response, error)
	// VerifyOTP confirms an email with its one-time code.
	VerifyOTP(ctx context.Context, email, otp string) (*upstream.Response, error)
}

// AuthHandler handles HTTP requests for login, registration, email
// verification and logout.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	// Secure marks the session cookies Secure (production).
	Secure bool
	// Log receives failures; may be nil.
	Log *zap.Logger
}

// LoginRequest represents the JSON payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OTPRequest represents the JSON payload for resend-otp and verify-otp.
type OTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// Login forwards the credentials upstream and relays the answer. When the
// upstream issues a token it is stored in the HttpOnly session cookie and
// the identity in the readable user cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.internalError(w, r, "login failed", err)
		return
	}

	resp, sess, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, "login failed", err)
		return
	}

	if sess != nil {
		user, err := json.Marshal(sess.User)
		if err != nil {
			h.internalError(w, r, "login failed", err)
			return
		}
		http.SetCookie(w, h.cookie(middleware.SessionCookie, sess.Token, true))
		http.SetCookie(w, h.cookie(middleware.UserCookie, url.QueryEscape(string(user)), false))
	}
	writeRaw(w, resp.StatusCode, resp.Body)
}

// Register creates an account. A duplicate email is answered with 409.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.internalError(w, r, "registration failed", err)
		return
	}

	resp, err := h.AuthService.Register(r.Context(), req)
	if errors.Is(err, service.ErrEmailTaken) {
		writeFailure(w, http.StatusConflict, "Email already registered", nil)
		return
	}
	if err != nil {
		h.fail(w, r, "registration failed", err)
		return
	}
	writeRaw(w, resp.StatusCode, resp.Body)
}

// ResendOTP asks the upstream to email a new one-time code.
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req OTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.internalError(w, r, "resend otp failed", err)
		return
	}

	resp, err := h.AuthService.ResendOTP(r.Context(), req.Email)
	if err != nil {
		h.fail(w, r, "resend otp failed", err)
		return
	}
	writeRaw(w, resp.StatusCode, resp.Body)
}

// VerifyOTP confirms the email address with the one-time code.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req OTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.internalError(w, r, "verify otp failed", err)
		return
	}

	resp, err := h.AuthService.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		h.fail(w, r, "verify otp failed", err)
		return
	}
	writeRaw(w, resp.StatusCode, resp.Body)
}

// Logout expires both session cookies.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{middleware.SessionCookie, middleware.UserCookie} {
		c := h.cookie(name, "", name == middleware.SessionCookie)
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out successfully"})
}

func (h *AuthHandler) cookie(name, value string, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: httpOnly,
		Secure:   h.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// fail maps validation errors to 400 and everything else to 500.
func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		writeFailure(w, http.StatusBadRequest, verr.Message, nil)
		return
	}
	h.internalError(w, r, msg, err)
}

func (h *AuthHandler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logError(h.Log, msg, r, err)
	writeFailure(w, http.StatusInternalServerError, "Internal server error", nil)
}
