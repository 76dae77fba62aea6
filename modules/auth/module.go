package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stackblog/authkit/svc/auth"
)

// Service is the slice of the session service this module consumes.
type Service interface {
	Register(ctx context.Context, params auth.RegisterParams) (*auth.Session, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID uuid.UUID) error
	ChangePassword(ctx context.Context, userID uuid.UUID, current, newPassword string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	SendVerificationEmail(ctx context.Context, userID uuid.UUID) error
	VerifyEmail(ctx context.Context, token string) error
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
	ResolveUser(ctx context.Context, accessToken string) (*auth.User, error)
}

// Module exposes the session service over HTTP.
type Module struct {
	svc Service
	log *slog.Logger
}

// Option configures a Module.
type Option func(*Module)

// WithLogger sets the module logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Module) {
		if log != nil {
			m.log = log
		}
	}
}

// New creates the HTTP module around the session service.
func New(svc Service, opts ...Option) *Module {
	m := &Module{
		svc: svc,
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Router returns the module's routes, intended to be mounted at /auth.
func (m *Module) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/register", m.handleRegister)
	r.Post("/login", m.handleLogin)
	r.Post("/refresh", m.handleRefresh)
	r.Post("/forgot-password", m.handleForgotPassword)
	r.Post("/reset-password", m.handleResetPassword)
	r.Post("/verify-email", m.handleVerifyEmail)

	r.Group(func(r chi.Router) {
		r.Use(m.RequireAuth)

		r.Post("/logout", m.handleLogout)
		r.Post("/logout-all", m.handleLogoutAll)
		r.Post("/change-password", m.handleChangePassword)
		r.Post("/verify-email/send", m.handleSendVerificationEmail)
		r.Delete("/account", m.handleDeleteAccount)
		r.Get("/me", m.handleMe)
	})

	return r
}
