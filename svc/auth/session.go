package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stackblog/authkit/pkg/jwt"
	"github.com/stackblog/authkit/pkg/logger"
	"github.com/stackblog/authkit/pkg/sanitizer"
)

// Login authenticates by email and password and opens a new session without
// touching the user's other active sessions (multi-device by design).
// Unknown email and wrong password both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, emailAddr, pw string) (*Session, error) {
	emailAddr = sanitizer.NormalizeEmail(emailAddr)

	user, err := s.storage.UserByEmail(ctx, emailAddr)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(pw, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	session, err := s.mintSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "user logged in",
		logger.UserID(user.ID.String()),
		logger.Component("auth"),
	)
	return session, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// persisted record is checked after the signature: a signature-valid token
// whose record was deleted (logout, password change) fails with
// ErrTokenInvalid, and the record's own expiry is authoritative even when the
// signature check would still pass.
//
// The refresh token itself is not rotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if _, err := s.codec.VerifyRefresh(refreshToken); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	record, user, err := s.storage.RefreshTokenByValue(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return "", ErrTokenInvalid
		}
		return "", fmt.Errorf("failed to look up refresh token: %w", err)
	}

	if time.Now().After(record.ExpiresAt) {
		if err := s.storage.DeleteRefreshToken(ctx, refreshToken); err != nil {
			s.log.ErrorContext(ctx, "failed to delete expired refresh token",
				logger.Error(err),
				logger.Component("auth"),
			)
		}
		return "", ErrTokenExpired
	}

	accessToken, err := s.codec.SignAccess(user.ID.String(), user.Email, string(user.Role))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return accessToken, nil
}

// Logout revokes a single refresh token. Idempotent: revoking an unknown
// token succeeds.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.storage.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}

// LogoutAll revokes every session the user holds. Used directly and as the
// blast-radius containment step after password change or reset.
func (s *Service) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.storage.DeleteAllRefreshTokens(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete refresh tokens: %w", err)
	}

	s.log.InfoContext(ctx, "all sessions revoked",
		logger.UserID(userID.String()),
		logger.Component("auth"),
	)
	return nil
}
