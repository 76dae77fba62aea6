package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stackblog/authkit/pkg/email"
	"github.com/stackblog/authkit/pkg/logger"
	"github.com/stackblog/authkit/pkg/sanitizer"
	"github.com/stackblog/authkit/pkg/validator"
)

// RegisterParams are the inputs for creating a new identity.
type RegisterParams struct {
	Email    string
	Username string
	Password string
	Name     string
}

// Register creates a new unverified identity and opens its first session.
// Email and username uniqueness are enforced by the datastore, so two
// concurrent registrations with the same email race safely: the second insert
// fails with ErrEmailTaken. Welcome and verification emails are best-effort.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*Session, error) {
	params.Email = sanitizer.NormalizeEmail(params.Email)
	params.Username = sanitizer.NormalizeUsername(params.Username)

	if err := validator.Apply(
		validator.ValidEmail("email", params.Email),
		validator.ValidUsername("username", params.Username),
	); err != nil {
		return nil, err
	}
	if err := s.hasher.ValidateStrength(params.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	name := params.Name
	if name == "" {
		name = params.Username
	}

	user := &User{
		ID:           uuid.New(),
		Email:        params.Email,
		Username:     params.Username,
		PasswordHash: hash,
		Name:         name,
		Role:         RoleUser,
		Verified:     false,
	}

	if err := s.storage.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	session, err := s.mintSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "user registered",
		logger.UserID(user.ID.String()),
		logger.Email(user.Email),
		logger.Component("auth"),
	)

	welcome, buildErr := email.NewWelcomeEmail(user.Email, user.Name)
	s.sendMail(ctx, welcome, buildErr)

	if err := s.SendVerificationEmail(ctx, user.ID); err != nil {
		s.log.ErrorContext(ctx, "failed to issue verification email on registration",
			logger.UserID(user.ID.String()),
			logger.Error(err),
			logger.Component("auth"),
		)
	}

	return session, nil
}
