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
)

// SendVerificationEmail issues (or reissues) the user's email-verification
// token and emails the link. One row exists per email: reissuing overwrites
// the previous token, so only the newest link stays valid.
func (s *Service) SendVerificationEmail(ctx context.Context, userID uuid.UUID) error {
	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Verified {
		return ErrAlreadyVerified
	}

	token, err := password.GenerateToken(s.cfg.OpaqueTokenBytes)
	if err != nil {
		return fmt.Errorf("failed to generate verification token: %w", err)
	}

	expiresAt := time.Now().Add(s.cfg.VerificationTokenTTL)
	if err := s.storage.UpsertVerificationToken(ctx, user.Email, token, expiresAt); err != nil {
		return fmt.Errorf("failed to persist verification token: %w", err)
	}

	link := fmt.Sprintf("%s/verify-email?token=%s", s.cfg.AppURL, token)
	msg, buildErr := email.NewVerificationEmail(user.Email, user.Name, link, "24 hours")
	s.sendMail(ctx, msg, buildErr)

	s.log.InfoContext(ctx, "verification email issued",
		logger.UserID(user.ID.String()),
		logger.Component("auth"),
	)
	return nil
}

// VerifyEmail redeems a verification token, marking the identity verified and
// the token used in one atomic unit. Unknown, expired, and already-used
// tokens fail identically with ErrTokenNotUsable.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	record, err := s.storage.UsableVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotUsable) {
			return ErrTokenNotUsable
		}
		return fmt.Errorf("failed to look up verification token: %w", err)
	}

	if err := s.storage.RedeemVerificationToken(ctx, record.ID, record.Email); err != nil {
		if errors.Is(err, ErrTokenNotUsable) {
			return ErrTokenNotUsable
		}
		return fmt.Errorf("failed to redeem verification token: %w", err)
	}

	s.log.InfoContext(ctx, "email verified",
		logger.Email(record.Email),
		logger.Component("auth"),
	)
	return nil
}
