package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stackblog/authkit/pkg/email"
	"github.com/stackblog/authkit/pkg/jwt"
	"github.com/stackblog/authkit/pkg/logger"
	"github.com/stackblog/authkit/pkg/password"
)

// Config holds the session service's tunables. Token signing material and
// bearer-token lifetimes live in jwt.Config; this covers the persisted
// single-use tokens and outbound links.
type Config struct {
	AppURL               string        `env:"APP_URL" envDefault:"http://localhost:3000"`          // Base URL for links embedded in emails.
	ResetTokenTTL        time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`                     // Lifetime of password-reset tokens.
	VerificationTokenTTL time.Duration `env:"VERIFICATION_TOKEN_TTL" envDefault:"24h"`             // Lifetime of email-verification tokens.
	OpaqueTokenBytes     int           `env:"OPAQUE_TOKEN_BYTES" envDefault:"32"`                  // Random bytes per opaque token before hex encoding.
	UsedTokenRetention   time.Duration `env:"USED_TOKEN_RETENTION" envDefault:"168h"`              // How long used one-time tokens are kept before purge.
	CleanupInterval      time.Duration `env:"TOKEN_CLEANUP_INTERVAL" envDefault:"1h"`              // Period of the background token purge.
}

// Session is the result of a successful registration or login.
type Session struct {
	User         *User
	AccessToken  string
	RefreshToken string
}

// Service orchestrates the authentication lifecycle: registration, login,
// token refresh, revocation, password change/reset, and email verification.
// It is the only component that mints or revokes tokens.
type Service struct {
	storage Storage
	codec   *jwt.Service
	hasher  *password.Hasher
	mailer  email.EmailSender
	cfg     Config
	log     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates the session service. All collaborators are injected; the
// service holds no connection state of its own.
func New(storage Storage, codec *jwt.Service, hasher *password.Hasher, mailer email.EmailSender, cfg Config, opts ...Option) *Service {
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	if cfg.VerificationTokenTTL <= 0 {
		cfg.VerificationTokenTTL = 24 * time.Hour
	}
	if cfg.OpaqueTokenBytes <= 0 {
		cfg.OpaqueTokenBytes = 32
	}
	if cfg.UsedTokenRetention <= 0 {
		cfg.UsedTokenRetention = 7 * 24 * time.Hour
	}

	s := &Service{
		storage: storage,
		codec:   codec,
		hasher:  hasher,
		mailer:  mailer,
		cfg:     cfg,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveUser verifies an access token and re-reads the identity from the
// datastore, so a just-deleted account or stale claims never authenticate.
// Returns ErrTokenExpired or ErrTokenInvalid per the codec's distinction.
func (s *Service) ResolveUser(ctx context.Context, accessToken string) (*User, error) {
	claims, err := s.codec.VerifyAccess(accessToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return user, nil
}

// DeleteAccount hard-deletes the identity. Dependent token rows are removed
// by the datastore's cascading deletes.
func (s *Service) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if err := s.storage.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	s.log.InfoContext(ctx, "account deleted",
		logger.UserID(userID.String()),
		logger.Component("auth"),
	)
	return nil
}

// CleanupExpiredTokens purges expired refresh tokens and stale one-time
// tokens. Called periodically by the process entry point.
func (s *Service) CleanupExpiredTokens(ctx context.Context) error {
	removed, err := s.storage.PurgeExpiredTokens(ctx, time.Now(), s.cfg.UsedTokenRetention)
	if err != nil {
		return fmt.Errorf("failed to purge expired tokens: %w", err)
	}

	if removed > 0 {
		s.log.InfoContext(ctx, "purged expired tokens",
			slog.Int64("removed", removed),
			logger.Component("auth"),
		)
	}
	return nil
}

// mintSession issues an access/refresh pair and persists the refresh token.
// The persisted expiry mirrors the signed expiry; the store record is
// authoritative on refresh.
func (s *Service) mintSession(ctx context.Context, user *User) (*Session, error) {
	accessToken, err := s.codec.SignAccess(user.ID.String(), user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := s.codec.SignRefresh(user.ID.String(), user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	expiresAt := time.Now().Add(s.codec.RefreshTTL())
	if err := s.storage.CreateRefreshToken(ctx, refreshToken, user.ID, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	return &Session{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// sendMail delivers a message as a best-effort side effect: failures are
// logged and never abort the operation that triggered them.
func (s *Service) sendMail(ctx context.Context, params email.SendEmailParams, buildErr error) {
	if buildErr != nil {
		s.log.ErrorContext(ctx, "failed to build email",
			logger.Error(buildErr),
			logger.Component("auth"),
		)
		return
	}

	if err := s.mailer.SendEmail(ctx, params); err != nil {
		s.log.ErrorContext(ctx, "failed to send email",
			logger.Email(params.SendTo),
			slog.String("tag", params.Tag),
			logger.Error(err),
			logger.Component("auth"),
		)
	}
}
