package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stackblog/authkit/pkg/email"
	"github.com/stackblog/authkit/pkg/logger"
	"github.com/stackblog/authkit/pkg/password"
	"github.com/stackblog/authkit/pkg/sanitizer"
)

// ChangePassword replaces the user's password after re-verifying the current
// one, then revokes every active session. A no-op change (new password equal
// to the current one) is rejected.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, newPassword string) error {
	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(current, user.PasswordHash) {
		return ErrWrongPassword
	}
	if err := s.hasher.ValidateStrength(newPassword); err != nil {
		return err
	}
	if s.hasher.Verify(newPassword, user.PasswordHash) {
		return ErrSamePassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.storage.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.LogoutAll(ctx, userID); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "password changed",
		logger.UserID(userID.String()),
		logger.Component("auth"),
	)

	notice, buildErr := email.NewPasswordChangedEmail(user.Email, user.Name)
	s.sendMail(ctx, notice, buildErr)

	return nil
}

// ForgotPassword issues a reset token and emails the reset link. It returns
// success whether or not the email exists so callers cannot probe for
// registered addresses; only the existing-account path has side effects.
func (s *Service) ForgotPassword(ctx context.Context, emailAddr string) error {
	emailAddr = sanitizer.NormalizeEmail(emailAddr)

	user, err := s.storage.UserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.log.DebugContext(ctx, "password reset requested for unknown email",
				logger.Email(emailAddr),
				logger.Component("auth"),
			)
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	token, err := password.GenerateToken(s.cfg.OpaqueTokenBytes)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	expiresAt := time.Now().Add(s.cfg.ResetTokenTTL)
	if err := s.storage.CreateResetToken(ctx, user.Email, token, expiresAt); err != nil {
		return fmt.Errorf("failed to persist reset token: %w", err)
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.AppURL, token)
	msg, buildErr := email.NewPasswordResetEmail(user.Email, user.Name, link, "1 hour")
	s.sendMail(ctx, msg, buildErr)

	s.log.InfoContext(ctx, "password reset issued",
		logger.UserID(user.ID.String()),
		logger.Component("auth"),
	)
	return nil
}

// ResetPassword redeems a reset token and sets a new password. Unknown,
// expired, and already-used tokens all fail with the same ErrTokenNotUsable.
// Marking the token used and updating the password happen atomically in the
// store, then every session is revoked.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	record, err := s.storage.UsableResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotUsable) {
			return ErrTokenNotUsable
		}
		return fmt.Errorf("failed to look up reset token: %w", err)
	}

	if err := s.hasher.ValidateStrength(newPassword); err != nil {
		return err
	}

	// The token's email is the only accepted owner linkage; client-supplied
	// identifiers are never trusted here.
	user, err := s.storage.UserByEmail(ctx, record.Email)
	if err != nil {
		return ErrTokenNotUsable
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.storage.RedeemResetToken(ctx, record.ID, record.Email, hash); err != nil {
		if errors.Is(err, ErrTokenNotUsable) {
			return ErrTokenNotUsable
		}
		return fmt.Errorf("failed to redeem reset token: %w", err)
	}

	if err := s.LogoutAll(ctx, user.ID); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "password reset completed",
		logger.UserID(user.ID.String()),
		logger.Component("auth"),
	)

	notice, buildErr := email.NewPasswordChangedEmail(user.Email, user.Name)
	s.sendMail(ctx, notice, buildErr)

	return nil
}
