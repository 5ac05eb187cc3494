package store

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/storefront/internal/client/api"
	"github.com/atinyakov/storefront/internal/models"
)

// AuthAPI is the remote side of the session.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*models.Envelope, error)
	Register(ctx context.Context, req api.RegisterRequest) (*models.Envelope, error)
	ResendOTP(ctx context.Context, email string) (*models.Envelope, error)
	VerifyOTP(ctx context.Context, email, otp string) (*models.Envelope, error)
	Logout(ctx context.Context) (*models.Envelope, error)
	// Identity reads the user cookie left by the last login.
	Identity() *models.Identity
}

// IdentityListener is called after the identity changes. id is nil after
// logout.
type IdentityListener func(ctx context.Context, id *models.Identity)

// Session tracks who is logged in.
type Session struct {
	api AuthAPI
	log *zap.Logger

	mu        sync.Mutex
	identity  *models.Identity
	listeners []IdentityListener
}

// NewSession restores the identity from the user cookie, if any.
func NewSession(a AuthAPI, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{api: a, log: log, identity: a.Identity()}
}

func (s *Session) Subscribe(fn IdentityListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) Identity() *models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity != nil
}

func (s *Session) Login(ctx context.Context, email, password string) models.Result {
	env, err := s.api.Login(ctx, email, password)
	if res, ok := s.check("login", env, err, "Login failed"); !ok {
		return res
	}
	id := s.api.Identity()
	if id == nil {
		s.log.Warn("login succeeded without a user cookie")
		return models.Fail("Login failed")
	}
	s.setIdentity(ctx, id)
	return models.Ok(messageOr(env.Message, "Login successful"))
}

func (s *Session) Register(ctx context.Context, req api.RegisterRequest) models.Result {
	env, err := s.api.Register(ctx, req)
	if res, ok := s.check("register", env, err, "Registration failed"); !ok {
		return res
	}
	return models.Ok(env.Message)
}

func (s *Session) ResendOTP(ctx context.Context, email string) models.Result {
	env, err := s.api.ResendOTP(ctx, email)
	if res, ok := s.check("resend otp", env, err, "Failed to send OTP"); !ok {
		return res
	}
	return models.Ok(env.Message)
}

func (s *Session) VerifyOTP(ctx context.Context, email, otp string) models.Result {
	env, err := s.api.VerifyOTP(ctx, email, otp)
	if res, ok := s.check("verify otp", env, err, "OTP verification failed"); !ok {
		return res
	}
	return models.Ok(env.Message)
}

// Logout always clears the local identity, even when the server call fails.
func (s *Session) Logout(ctx context.Context) models.Result {
	if _, err := s.api.Logout(ctx); err != nil {
		s.log.Warn("logout", zap.Error(err))
	}
	s.setIdentity(ctx, nil)
	return models.Ok("Logged out successfully")
}

func (s *Session) check(op string, env *models.Envelope, err error, fallback string) (models.Result, bool) {
	if err != nil {
		s.log.Warn(op, zap.Error(err))
		return models.Fail(fallback), false
	}
	if !env.Success {
		return models.Fail(messageOr(env.Message, fallback)), false
	}
	return models.Result{}, true
}

func (s *Session) setIdentity(ctx context.Context, id *models.Identity) {
	s.mu.Lock()
	s.identity = id
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx, id)
	}
}
