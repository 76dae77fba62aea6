package auth

import "errors"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password on
	// login, deliberately indistinguishable to prevent account enumeration.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrTokenExpired means a bearer token's signature is valid but its
	// lifetime has passed; clients should attempt a refresh.
	ErrTokenExpired = errors.New("auth: token expired")

	// ErrTokenInvalid means a bearer token is malformed, has a bad signature,
	// or its session was revoked; clients must re-authenticate.
	ErrTokenInvalid = errors.New("auth: invalid token")

	// ErrTokenNotUsable is the single generic error for reset and
	// verification tokens that are unknown, expired, or already used. The
	// three states are deliberately collapsed so a guessed link leaks nothing.
	ErrTokenNotUsable = errors.New("auth: invalid or expired token")

	// ErrEmailTaken is returned when registering with an email already in use
	// (case-insensitive).
	ErrEmailTaken = errors.New("auth: email already taken")

	// ErrUsernameTaken is returned when registering with a username already
	// in use.
	ErrUsernameTaken = errors.New("auth: username already taken")

	// ErrUserNotFound means the identity does not exist.
	ErrUserNotFound = errors.New("auth: user not found")

	// ErrSessionNotFound means no persisted refresh token matches.
	ErrSessionNotFound = errors.New("auth: session not found")

	// ErrWrongPassword is returned by ChangePassword when the supplied
	// current password does not match.
	ErrWrongPassword = errors.New("auth: current password is incorrect")

	// ErrSamePassword is returned when the new password is identical to the
	// current one.
	ErrSamePassword = errors.New("auth: new password must differ from the current one")

	// ErrAlreadyVerified is returned when requesting a verification email for
	// an already-verified identity.
	ErrAlreadyVerified = errors.New("auth: email already verified")
)
