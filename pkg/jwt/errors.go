package jwt

import "errors"

var (
	// ErrInvalidToken covers malformed tokens, bad signatures, and wrong
	// issuer or audience.
	ErrInvalidToken = errors.New("jwt: invalid token")

	// ErrTokenExpired is returned when a token's signature is valid but its
	// expiry has passed.
	ErrTokenExpired = errors.New("jwt: token is expired")

	// ErrMissingSigningKey is returned when a signing secret is empty.
	ErrMissingSigningKey = errors.New("jwt: missing signing key")

	// ErrSharedSigningKey is returned when access and refresh secrets are the
	// same value.
	ErrSharedSigningKey = errors.New("jwt: access and refresh signing keys must differ")
)
