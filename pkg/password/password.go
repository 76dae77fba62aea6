package password

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/stackblog/authkit/pkg/validator"
)

// DefaultCost is the bcrypt work factor used when none is configured.
// Cost 12 keeps hashing around the 250ms mark on current hardware.
const DefaultCost = 12

// Hasher hashes and verifies passwords and enforces the strength policy.
type Hasher struct {
	cost   int
	policy validator.PasswordPolicy
}

// Option configures a Hasher.
type Option func(*Hasher)

// WithCost sets the bcrypt work factor. Values outside bcrypt's supported
// range fall back to DefaultCost.
func WithCost(cost int) Option {
	return func(h *Hasher) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			h.cost = cost
		}
	}
}

// WithPolicy overrides the password strength policy.
func WithPolicy(policy validator.PasswordPolicy) Option {
	return func(h *Hasher) {
		h.policy = policy
	}
}

// New creates a Hasher with the default cost and policy.
func New(opts ...Option) *Hasher {
	h := &Hasher{
		cost:   DefaultCost,
		policy: validator.DefaultPasswordPolicy(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash returns the bcrypt hash of a password.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether a password matches a stored hash. bcrypt's own
// comparison is used so timing behavior is bounded by the primitive.
func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidateStrength checks the password against the policy. All violated rules
// are returned together as validator.ValidationErrors.
func (h *Hasher) ValidateStrength(pw string) error {
	return validator.Apply(validator.PasswordRules("password", pw, h.policy)...)
}

// GenerateToken returns a cryptographically secure random token of byteLen
// bytes, hex-encoded. Used as the literal value for password-reset and
// email-verification tokens.
func GenerateToken(byteLen int) (string, error) {
	if byteLen <= 0 {
		return "", errors.New("token length must be positive")
	}

	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
