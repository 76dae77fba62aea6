package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role is the coarse authorization level attached to a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User is the identity record owned by the datastore. The auth service only
// writes the password hash and verified flag; profile fields are managed by
// the rest of the platform.
type User struct {
	ID           uuid.UUID
	Email        string
	Username     string
	PasswordHash string
	Name         string
	Bio          string
	AvatarURL    string
	Role         Role
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RefreshToken is a persisted session record. A user may hold several
// concurrent refresh tokens (one per device); each is independently revocable.
type RefreshToken struct {
	ID        uuid.UUID
	Token     string
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ResetToken is a single-use password-reset secret keyed by email. UsedAt is
// set on redemption and drives the retention window for purging.
type ResetToken struct {
	ID        uuid.UUID
	Email     string
	Token     string
	Used      bool
	UsedAt    *time.Time
	ExpiresAt time.Time
	CreatedAt time.Time
}

// VerificationToken is a single-use email-verification secret. One row exists
// per email; reissuing overwrites the row.
type VerificationToken struct {
	ID        uuid.UUID
	Email     string
	Token     string
	Used      bool
	UsedAt    *time.Time
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Storage is the persistence contract the session service depends on.
// Implementations must return the package's sentinel errors for the
// conditions documented per method, and must treat "usable" as
// used=false AND expires_at>now.
type Storage interface {
	// CreateUser inserts a new identity. Uniqueness of email
	// (case-insensitive) and username is enforced by the datastore;
	// violations surface as ErrEmailTaken or ErrUsernameTaken, including
	// when two registrations race.
	CreateUser(ctx context.Context, user *User) error

	// UserByID returns ErrUserNotFound when the identity does not exist.
	UserByID(ctx context.Context, id uuid.UUID) (*User, error)

	// UserByEmail looks up by normalized (lowercased) email.
	// Returns ErrUserNotFound when absent.
	UserByEmail(ctx context.Context, email string) (*User, error)

	// UpdatePasswordHash replaces the stored hash for the user.
	UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string) error

	// DeleteUser hard-deletes the identity. Dependent token rows are removed
	// by the datastore's cascading rules.
	DeleteUser(ctx context.Context, userID uuid.UUID) error

	// CreateRefreshToken persists a refresh token with its expiry.
	CreateRefreshToken(ctx context.Context, token string, userID uuid.UUID, expiresAt time.Time) error

	// RefreshTokenByValue returns the token record joined with its owning
	// user. Returns ErrSessionNotFound when the token is absent (revoked or
	// never issued).
	RefreshTokenByValue(ctx context.Context, token string) (*RefreshToken, *User, error)

	// DeleteRefreshToken removes a single refresh token. Deleting an absent
	// token is not an error.
	DeleteRefreshToken(ctx context.Context, token string) error

	// DeleteAllRefreshTokens revokes every session the user holds.
	DeleteAllRefreshTokens(ctx context.Context, userID uuid.UUID) error

	// UpsertVerificationToken writes the per-email verification row,
	// overwriting any previous token and resetting its used flag.
	UpsertVerificationToken(ctx context.Context, email, token string, expiresAt time.Time) error

	// UsableVerificationToken returns ErrTokenNotUsable when no row matches
	// the token value with used=false and expires_at>now.
	UsableVerificationToken(ctx context.Context, token string) (*VerificationToken, error)

	// RedeemVerificationToken marks the token used and sets the identity's
	// verified flag in a single atomic unit.
	RedeemVerificationToken(ctx context.Context, tokenID uuid.UUID, email string) error

	// CreateResetToken persists a password-reset token for the email.
	CreateResetToken(ctx context.Context, email, token string, expiresAt time.Time) error

	// UsableResetToken returns ErrTokenNotUsable when no row matches the
	// token value with used=false and expires_at>now.
	UsableResetToken(ctx context.Context, token string) (*ResetToken, error)

	// RedeemResetToken marks the token used and replaces the password hash of
	// the identity owning the email in a single atomic unit. A crash between
	// the two writes must leave neither applied.
	RedeemResetToken(ctx context.Context, tokenID uuid.UUID, email, newHash string) error

	// PurgeExpiredTokens deletes refresh tokens past expiry and
	// reset/verification tokens that are expired or whose UsedAt is longer
	// than usedRetention ago. Returns the number of rows removed.
	PurgeExpiredTokens(ctx context.Context, now time.Time, usedRetention time.Duration) (int64, error)
}
