package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// signingMethod is fixed to HS256; verification rejects anything else to
// prevent algorithm confusion attacks.
var signingMethod = jwt.SigningMethodHS256

// Config carries the codec's signing material and token lifetimes. Access and
// refresh tokens are signed with distinct secrets so a leaked access secret
// cannot mint refresh tokens, and vice versa.
type Config struct {
	AccessSecret  string        `env:"JWT_ACCESS_SECRET,required"`
	RefreshSecret string        `env:"JWT_REFRESH_SECRET,required"`
	AccessTTL     time.Duration `env:"JWT_ACCESS_TTL" envDefault:"24h"`
	RefreshTTL    time.Duration `env:"JWT_REFRESH_TTL" envDefault:"720h"`
	Issuer        string        `env:"JWT_ISSUER" envDefault:"stackblog-auth"`
	Audience      string        `env:"JWT_AUDIENCE" envDefault:"stackblog-api"`
}

// Claims is the identity claim set carried by both token classes.
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Service signs and verifies access and refresh tokens.
type Service struct {
	cfg           Config
	accessSecret  []byte
	refreshSecret []byte
}

// New creates a token codec from the config. Both secrets are required and
// must differ.
func New(cfg Config) (*Service, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, ErrMissingSigningKey
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, ErrSharedSigningKey
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 24 * time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}

	return &Service{
		cfg:           cfg,
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (s *Service) AccessTTL() time.Duration { return s.cfg.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (s *Service) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }

// SignAccess mints a short-lived access token for the identity.
func (s *Service) SignAccess(userID, email, role string) (string, error) {
	return s.sign(userID, email, role, s.accessSecret, s.cfg.AccessTTL)
}

// SignRefresh mints a long-lived refresh token for the identity. The returned
// string is also persisted by the caller; verification alone never proves the
// token is still live.
func (s *Service) SignRefresh(userID, email, role string) (string, error) {
	return s.sign(userID, email, role, s.refreshSecret, s.cfg.RefreshTTL)
}

func (s *Service) sign(userID, email, role string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(signingMethod, claims).SignedString(secret)
}

// VerifyAccess verifies an access token's signature, issuer, audience, and
// expiry. An otherwise-valid token past its expiry yields ErrTokenExpired;
// any other failure yields ErrInvalidToken.
func (s *Service) VerifyAccess(token string) (*Claims, error) {
	return s.verify(token, s.accessSecret)
}

// VerifyRefresh verifies a refresh token the same way VerifyAccess does.
func (s *Service) VerifyRefresh(token string) (*Claims, error) {
	return s.verify(token, s.refreshSecret)
}

func (s *Service) verify(token string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience),
	)
	if err != nil {
		// Expired is a distinct outcome: the caller may prompt the client to
		// refresh instead of forcing a re-login.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// DecodeUnsafe extracts claims without verifying the signature. Intended only
// for non-trust-sensitive diagnostics, such as checking whether a token looks
// expired before a server round-trip. Never use the result for authorization.
func DecodeUnsafe(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
