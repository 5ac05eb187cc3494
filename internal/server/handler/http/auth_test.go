package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/atinyakov/storefront/internal/middleware"
	"github.com/atinyakov/storefront/internal/models"
	"github.com/atinyakov/storefront/internal/service"
	"github.com/atinyakov/storefront/internal/upstream"
)

// fakeAuthService implements AuthService for testing.
type fakeAuthService struct {
	resp    *upstream.Response
	session *service.Session
	err     error

	gotEmail string
	gotInput service.RegisterInput
}

func (f *fakeAuthService) Login(_ context.Context, email, _ string) (*upstream.Response, *service.Session, error) {
	f.gotEmail = email
	return f.resp, f.session, f.err
}

func (f *fakeAuthService) Register(_ context.Context, in service.RegisterInput) (*upstream.Response, error) {
	f.gotInput = in
	return f.resp, f.err
}

func (f *fakeAuthService) ResendOTP(_ context.Context, email string) (*upstream.Response, error) {
	f.gotEmail = email
	return f.resp, f.err
}

func (f *fakeAuthService) VerifyOTP(_ context.Context, email, _ string) (*upstream.Response, error) {
	f.gotEmail = email
	return f.resp, f.err
}

func okResp(status int, body string) *upstream.Response {
	return &upstream.Response{StatusCode: status, Body: json.RawMessage(body)}
}

func TestAuthHandler_Endpoints(t *testing.T) {
	tests := []struct {
		name           string
		call           func(h *AuthHandler) http.HandlerFunc
		body           string
		service        *fakeAuthService
		expectedCode   int
		expectedSubstr string
	}{
		{
			name:           "login invalid JSON",
			call:           func(h *AuthHandler) http.HandlerFunc { return h.Login },
			body:           `not a json`,
			service:        &fakeAuthService{},
			expectedCode:   http.StatusInternalServerError,
			expectedSubstr: "Internal server error",
		},
		{
			name:           "login validation",
			call:           func(h *AuthHandler) http.HandlerFunc { return h.Login },
			body:           `{"email":"a@b.c"}`,
			service:        &fakeAuthService{err: &service.ValidationError{Message: "Email and password are required"}},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "Email and password are required",
		},
		{
			name:           "login upstream rejection relayed",
			call:           func(h *AuthHandler) http.HandlerFunc { return h.Login },
			body:           `{"email":"a@b.c","password":"x"}`,
			service:        &fakeAuthService{resp: okResp(http.StatusUnauthorized, `{"success":false,"message":"Invalid credentials"}`)},
			expectedCode:   http.StatusUnauthorized,
			expectedSubstr: "Invalid credentials",
		},
		{
			name:           "login transport failure",
			call:           func(h *AuthHandler) http.HandlerFunc { return h.Login },
			body:           `{"email":"a@b.c","password":"x"}`,
			service:        &fakeAuthService{err: errors.New("connection refused")},
			expectedCode:   http.StatusInternalServerError,
			expectedSubstr: "Internal server error",
		},
		{
			name:           "register duplicate email",
			call:           func(h *AuthHandler) http.HandlerFunc { return h.Register },
			body:           `{"name":"A","email":"a@b.c","password":"x"}`,
			service:        &fakeAuthService{err: service.ErrEmailTaken},
			expectedCode:   http.StatusConflict,
			expectedSubstr: "Email already registered",
		},
		{
			name:           "register success",
			call:           func(h *AuthHandler) http.HandlerFunc { return h.Register },
			body:           `{"name":"A","email":"a@b.c","password":"x"}`,
			service:        &fakeAuthService{resp: okResp(http.StatusOK, `{"success":true,"message":"Registration successful. You can now login."}`)},
			expectedCode:   http.StatusOK,
			expectedSubstr: "Registration successful",
		},
		{
			name:           "resend otp validation",
			call:           func(h *AuthHandler) http.HandlerFunc { return h.ResendOTP },
			body:           `{}`,
			service:        &fakeAuthService{err: &service.ValidationError{Message: "Email is required"}},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "Email is required",
		},
		{
			name:           "verify otp success",
			call:           func(h *AuthHandler) http.HandlerFunc { return h.VerifyOTP },
			body:           `{"email":"a@b.c","otp":"123456"}`,
			service:        &fakeAuthService{resp: okResp(http.StatusOK, `{"success":true,"message":"Email verified successfully"}`)},
			expectedCode:   http.StatusOK,
			expectedSubstr: "Email verified successfully",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/auth", bytes.NewBufferString(tt.body))
			h := &AuthHandler{AuthService: tt.service}
			tt.call(h)(rec, req)
			res := rec.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.expectedCode {
				t.Fatalf("expected status %d, got %d", tt.expectedCode, res.StatusCode)
			}

			buf := new(bytes.Buffer)
			if _, err := buf.ReadFrom(res.Body); err != nil {
				t.Fatalf("failed to read body: %v", err)
			}
			if !bytes.Contains(buf.Bytes(), []byte(tt.expectedSubstr)) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedSubstr, buf.String())
			}
		})
	}
}

func TestAuthHandler_LoginSetsCookies(t *testing.T) {
	svc := &fakeAuthService{
		resp: okResp(http.StatusOK, `{"success":true,"data":{"token":"tok"}}`),
		session: &service.Session{
			Token: "tok",
			User:  models.Identity{ID: "u1", Name: "Ann Lee", Email: "ann@x.io", Role: "user"},
		},
	}
	h := &AuthHandler{AuthService: svc, Secure: true}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewBufferString(`{"email":"ann@x.io","password":"pw"}`))
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	cookies := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}

	uat := cookies[middleware.SessionCookie]
	if uat == nil || uat.Value != "tok" || !uat.HttpOnly || !uat.Secure || uat.MaxAge != 3600 ||
		uat.Path != "/" || uat.SameSite != http.SameSiteLaxMode {
		t.Errorf("unexpected session cookie %+v", uat)
	}

	user := cookies[middleware.UserCookie]
	if user == nil || user.HttpOnly {
		t.Fatalf("unexpected user cookie %+v", user)
	}
	raw, err := url.QueryUnescape(user.Value)
	if err != nil {
		t.Fatalf("unescape user cookie: %v", err)
	}
	var id models.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		t.Fatalf("decode user cookie: %v", err)
	}
	if id != svc.session.User {
		t.Errorf("identity = %+v; want %+v", id, svc.session.User)
	}
}

func TestAuthHandler_LoginWithoutTokenSetsNoCookies(t *testing.T) {
	h := &AuthHandler{AuthService: &fakeAuthService{resp: okResp(http.StatusOK, `{"success":false}`)}}
	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest("POST", "/api/auth/login", bytes.NewBufferString(`{"email":"a","password":"b"}`)))
	if n := len(rec.Result().Cookies()); n != 0 {
		t.Errorf("expected no cookies, got %d", n)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	h := &AuthHandler{}
	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest("POST", "/api/auth/logout", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	for _, c := range cookies {
		if c.MaxAge >= 0 {
			t.Errorf("cookie %s not expired: MaxAge=%d", c.Name, c.MaxAge)
		}
	}
}
