// Package service provides the proxy's business logic: authentication
// calls and catalog queries against the commerce API, delegating transport
// to an Upstream and catalog caching to a CacheRepository.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/atinyakov/storefront/internal/models"
	"github.com/atinyakov/storefront/internal/upstream"
)

// Upstream defines the transport operation required by the services.
type Upstream interface {
	// Do forwards one request and returns the upstream status and JSON body.
	// Transport failures and non-JSON bodies are returned as errors.
	Do(ctx context.Context, r upstream.Request) (*upstream.Response, error)
}

// ValidationError reports a missing or malformed input, detected before any
// upstream call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ErrEmailTaken is returned by Register when the upstream rejects a duplicate email.
var ErrEmailTaken = errors.New("email already registered")

// Session is the token and identity issued by a successful login.
type Session struct {
	Token string
	User  models.Identity
}

// RegisterInput holds the fields accepted by the registration endpoint.
type RegisterInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	CountryCode string `json:"country_code"`
	Phone       string `json:"phone"`
}

// signupRequest is the vendor registration payload the upstream expects.
type signupRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	CountryCode      string `json:"country_code"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	City             string `json:"city"`
	State            string `json:"state"`
	Country          string `json:"country"`
	Zip              string `json:"zip"`
	StoreName        string `json:"store_name"`
	StoreDescription string `json:"store_description"`
}

// AuthService implements the authentication endpoints by delegating
// to the commerce API.
type AuthService struct {
	// up performs the upstream calls.
	up Upstream
}

// NewAuthService constructs a new AuthService using the provided upstream.
func NewAuthService(up Upstream) *AuthService {
	return &AuthService{up: up}
}

// Login signs the user in upstream. The upstream response is always returned
// for relaying; the Session is non-nil only when the upstream issued a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*upstream.Response, *Session, error) {
	if email == "" || password == "" {
		return nil, nil, &ValidationError{Message: "Email and password are required"}
	}

	resp, err := s.up.Do(ctx, upstream.Request{
		Method: http.MethodPost,
		Path:   "/api/auth/signin",
		Body:   map[string]string{"email": email, "password": password},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("signin: %w", err)
	}
	if !resp.OK() {
		return resp, nil, nil
	}
	return resp, parseSession(resp.Body), nil
}

type signinReply struct {
	Success bool `json:"success"`
	Data    struct {
		Token string `json:"token"`
		User  struct {
			ID      any             `json:"id"`
			MongoID any             `json:"_id"`
			Name    string          `json:"name"`
			Email   string          `json:"email"`
			Role    json.RawMessage `json:"role"`
		} `json:"user"`
	} `json:"data"`
}

// parseSession extracts the token and identity from a signin body, or nil
// when the body carries no token.
func parseSession(body []byte) *Session {
	var reply signinReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil
	}
	if !reply.Success || reply.Data.Token == "" {
		return nil
	}

	u := reply.Data.User
	id := idString(u.ID)
	if id == "" {
		id = idString(u.MongoID)
	}

	role := "user"
	var r struct {
		Name string `json:"name"`
	}
	if len(u.Role) > 0 && json.Unmarshal(u.Role, &r) == nil && r.Name != "" {
		role = r.Name
	}

	return &Session{
		Token: reply.Data.Token,
		User:  models.Identity{ID: id, Name: u.Name, Email: u.Email, Role: role},
	}
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

// Register creates a vendor account upstream, filling the fields the
// storefront does not collect with placeholder values.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*upstream.Response, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, &ValidationError{Message: "Name, email, and password are required"}
	}

	req := signupRequest{
		Name:             in.Name,
		Email:            strings.ToLower(strings.TrimSpace(in.Email)),
		Password:         in.Password,
		CountryCode:      in.CountryCode,
		Phone:            in.Phone,
		Address:          "N/A",
		City:             "N/A",
		State:            "N/A",
		Country:          "N/A",
		Zip:              "00000",
		StoreName:        in.Name + "'s Store",
		StoreDescription: "My online store",
	}
	if req.CountryCode == "" {
		req.CountryCode = "+1"
	}
	if req.Phone == "" {
		req.Phone = "0000000000"
	}

	resp, err := s.up.Do(ctx, upstream.Request{Method: http.MethodPost, Path: "/api/auth/signup", Body: req})
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	if !resp.OK() {
		env := decodeEnvelope(resp.Body)
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(env.Message, "already exists") {
			return nil, ErrEmailTaken
		}
		return resp, nil
	}

	data, err := json.Marshal(map[string]any{
		"user":  decodeEnvelope(resp.Body).Data,
		"email": req.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("encode registration: %w", err)
	}
	return reshape(models.Envelope{
		Success: true,
		Message: "Registration successful. You can now login.",
		Data:    data,
	})
}

// ResendOTP asks the upstream to send a new one-time code to email.
func (s *AuthService) ResendOTP(ctx context.Context, email string) (*upstream.Response, error) {
	if email == "" {
		return nil, &ValidationError{Message: "Email is required"}
	}

	resp, err := s.up.Do(ctx, upstream.Request{
		Method: http.MethodPost,
		Path:   "/api/auth/forgot-password",
		Body:   map[string]string{"email": email},
	})
	if err != nil {
		return nil, fmt.Errorf("forgot-password: %w", err)
	}
	if !resp.OK() {
		return resp, nil
	}
	return reshape(models.Envelope{Success: true, Message: "OTP sent successfully", Data: decodeEnvelope(resp.Body).Data})
}

// VerifyOTP confirms the email address with the one-time code.
func (s *AuthService) VerifyOTP(ctx context.Context, email, otp string) (*upstream.Response, error) {
	if email == "" || otp == "" {
		return nil, &ValidationError{Message: "Email and OTP are required"}
	}

	resp, err := s.up.Do(ctx, upstream.Request{
		Method: http.MethodPost,
		Path:   "/api/auth/verify-token",
		Body:   map[string]string{"email": email, "token": otp},
	})
	if err != nil {
		return nil, fmt.Errorf("verify-token: %w", err)
	}
	if !resp.OK() {
		return resp, nil
	}
	return reshape(models.Envelope{Success: true, Message: "Email verified successfully", Data: decodeEnvelope(resp.Body).Data})
}

// decodeEnvelope reads the envelope fields of body, leaving them zero when
// body is not an object.
func decodeEnvelope(body []byte) models.Envelope {
	var env models.Envelope
	_ = json.Unmarshal(body, &env)
	return env
}

func reshape(env models.Envelope) (*upstream.Response, error) {
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return &upstream.Response{StatusCode: http.StatusOK, Body: b}, nil
}
