package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stackblog/authkit/pkg/jwt"
	"github.com/stackblog/authkit/pkg/password"
	"github.com/stackblog/authkit/pkg/validator"
	"github.com/stackblog/authkit/svc/auth"
)

const testPassword = "Sup3rSecret!pass"

type testEnv struct {
	svc    *auth.Service
	store  *fakeStorage
	mailer *fakeMailer
	codec  *jwt.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	codec, err := jwt.New(jwt.Config{
		AccessSecret:  "test-access-secret-0123456789abcdef",
		RefreshSecret: "test-refresh-secret-0123456789abcdef",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "stackblog-auth",
		Audience:      "stackblog-api",
	})
	require.NoError(t, err)

	store := newFakeStorage()
	mailer := &fakeMailer{}
	svc := auth.New(store, codec, password.New(password.WithCost(bcrypt.MinCost)), mailer, auth.Config{
		AppURL: "https://stackblog.test",
	})

	return &testEnv{svc: svc, store: store, mailer: mailer, codec: codec}
}

func (e *testEnv) register(t *testing.T, emailAddr, username string) *auth.Session {
	t.Helper()

	session, err := e.svc.Register(context.Background(), auth.RegisterParams{
		Email:    emailAddr,
		Username: username,
		Password: testPassword,
	})
	require.NoError(t, err)
	require.NotNil(t, session)
	return session
}

func TestService_Register(t *testing.T) {
	t.Parallel()

	t.Run("creates unverified identity with session", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		session := env.register(t, "alice@example.com", "alice")

		assert.Equal(t, "alice@example.com", session.User.Email)
		assert.Equal(t, auth.RoleUser, session.User.Role)
		assert.False(t, session.User.Verified)
		assert.NotEmpty(t, session.AccessToken)
		assert.NotEmpty(t, session.RefreshToken)
		assert.NotEqual(t, session.AccessToken, session.RefreshToken)
		assert.Equal(t, 1, env.store.refreshTokenCount())

		assert.ElementsMatch(t, []string{"welcome", "email-verification"}, env.mailer.sentTags())
	})

	t.Run("duplicate email is rejected case-insensitively", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.register(t, "alice@example.com", "alice")

		_, err := env.svc.Register(context.Background(), auth.RegisterParams{
			Email:    "ALICE@Example.COM",
			Username: "alice2",
			Password: testPassword,
		})
		require.ErrorIs(t, err, auth.ErrEmailTaken)
	})

	t.Run("duplicate username is rejected", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.register(t, "alice@example.com", "alice")

		_, err := env.svc.Register(context.Background(), auth.RegisterParams{
			Email:    "bob@example.com",
			Username: "alice",
			Password: testPassword,
		})
		require.ErrorIs(t, err, auth.ErrUsernameTaken)
	})

	t.Run("weak password reports every violation", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		_, err := env.svc.Register(context.Background(), auth.RegisterParams{
			Email:    "alice@example.com",
			Username: "alice",
			Password: "short",
		})
		require.Error(t, err)

		verrs := validator.ExtractValidationErrors(err)
		require.NotNil(t, verrs)
		assert.GreaterOrEqual(t, len(verrs), 3) // length, uppercase, digit, special
	})

	t.Run("mail failure does not abort registration", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.mailer.fail = true

		session, err := env.svc.Register(context.Background(), auth.RegisterParams{
			Email:    "alice@example.com",
			Username: "alice",
			Password: testPassword,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, session.AccessToken)
	})
}

func TestService_Login(t *testing.T) {
	t.Parallel()

	t.Run("valid credentials open a new session", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.register(t, "alice@example.com", "alice")

		session, err := env.svc.Login(context.Background(), "Alice@Example.com", testPassword)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", session.User.Email)
		// Registration session plus login session; multi-device stays intact.
		assert.Equal(t, 2, env.store.refreshTokenCount())
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.register(t, "alice@example.com", "alice")

		_, errUnknown := env.svc.Login(context.Background(), "nobody@example.com", testPassword)
		_, errWrongPw := env.svc.Login(context.Background(), "alice@example.com", "Wr0ng!password")

		require.ErrorIs(t, errUnknown, auth.ErrInvalidCredentials)
		require.ErrorIs(t, errWrongPw, auth.ErrInvalidCredentials)
		assert.Equal(t, errUnknown.Error(), errWrongPw.Error())
	})
}

func TestService_Refresh(t *testing.T) {
	t.Parallel()

	t.Run("mints a new access token without rotating the refresh token", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		session := env.register(t, "alice@example.com", "alice")

		accessToken, err := env.svc.Refresh(context.Background(), session.RefreshToken)
		require.NoError(t, err)
		require.NotEmpty(t, accessToken)

		claims, err := env.codec.VerifyAccess(accessToken)
		require.NoError(t, err)
		assert.Equal(t, session.User.ID.String(), claims.UserID)
		assert.Equal(t, 1, env.store.refreshTokenCount())
	})

	t.Run("revoked token fails despite a valid signature", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		session := env.register(t, "alice@example.com", "alice")

		require.NoError(t, env.svc.Logout(context.Background(), session.RefreshToken))

		_, err := env.svc.Refresh(context.Background(), session.RefreshToken)
		require.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("store expiry is authoritative over the signature", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		session := env.register(t, "alice@example.com", "alice")

		env.store.expireRefreshToken(session.RefreshToken)

		_, err := env.svc.Refresh(context.Background(), session.RefreshToken)
		require.ErrorIs(t, err, auth.ErrTokenExpired)
		assert.Equal(t, 0, env.store.refreshTokenCount(), "expired record is removed on the failed attempt")
	})

	t.Run("garbage token is invalid", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		_, err := env.svc.Refresh(context.Background(), "not-a-jwt")
		require.ErrorIs(t, err, auth.ErrTokenInvalid)
	})
}

func TestService_Logout(t *testing.T) {
	t.Parallel()

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		session := env.register(t, "alice@example.com", "alice")

		require.NoError(t, env.svc.Logout(context.Background(), session.RefreshToken))
		require.NoError(t, env.svc.Logout(context.Background(), session.RefreshToken))
		require.NoError(t, env.svc.Logout(context.Background(), ""))
	})

	t.Run("logout all revokes every session", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		session := env.register(t, "alice@example.com", "alice")
		second, err := env.svc.Login(context.Background(), "alice@example.com", testPassword)
		require.NoError(t, err)

		require.NoError(t, env.svc.LogoutAll(context.Background(), session.User.ID))

		_, err = env.svc.Refresh(context.Background(), session.RefreshToken)
		require.ErrorIs(t, err, auth.ErrTokenInvalid)
		_, err = env.svc.Refresh(context.Background(), second.RefreshToken)
		require.ErrorIs(t, err, auth.ErrTokenInvalid)
	})
}

func TestService_ChangePassword(t *testing.T) {
	t.Parallel()

	const newPassword = "An0ther!Passw0rd"

	t.Run("changes password and revokes prior sessions", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		session := env.register(t, "alice@example.com", "alice")

		err := env.svc.ChangePassword(context.Background(), session.User.ID, testPassword, newPassword)
		require.NoError(t, err)

		_, err = env.svc.Refresh(context.Background(), session.RefreshToken)
		require.ErrorIs(t, err, auth.ErrTokenInvalid, "pre-change refresh token must be dead")

		_, err = env.svc.Login(context.Background(), "alice@example.com", testPassword)
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
		_, err = env.svc.Login(context.Background(), "alice@example.com", newPassword)
		require.NoError(t, err)

		assert.Contains(t, env.mailer.sentTags(), "password-changed")
	})

	t.Run("wrong current password", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		session := env.register(t, "alice@example.com", "alice")

		err := env.svc.ChangePassword(context.Background(), session.User.ID, "Wr0ng!password", newPassword)
		require.ErrorIs(t, err, auth.ErrWrongPassword)
	})

	t.Run("same password is rejected", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		session := env.register(t, "alice@example.com", "alice")

		err := env.svc.ChangePassword(context.Background(), session.User.ID, testPassword, testPassword)
		require.ErrorIs(t, err, auth.ErrSamePassword)
	})

	t.Run("weak replacement is rejected before anything changes", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		session := env.register(t, "alice@example.com", "alice")

		err := env.svc.ChangePassword(context.Background(), session.User.ID, testPassword, "weak")
		require.True(t, validator.IsValidationError(err))

		_, err = env.svc.Refresh(context.Background(), session.RefreshToken)
		require.NoError(t, err, "sessions survive a rejected change")
	})
}

func TestService_PasswordReset(t *testing.T) {
	t.Parallel()

	const newPassword = "An0ther!Passw0rd"

	t.Run("forgot password is enumeration safe", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.register(t, "alice@example.com", "alice")
		sentBefore := env.mailer.sentTo("alice@example.com")

		require.NoError(t, env.svc.ForgotPassword(context.Background(), "nobody@example.com"))
		require.NoError(t, env.svc.ForgotPassword(context.Background(), "Alice@Example.com"))

		assert.Equal(t, 0, env.mailer.sentTo("nobody@example.com"))
		assert.Equal(t, sentBefore+1, env.mailer.sentTo("alice@example.com"))
		assert.Nil(t, env.store.resetTokenFor("nobody@example.com"))
		assert.NotNil(t, env.store.resetTokenFor("alice@example.com"))
	})

	t.Run("reset token is single use", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		session := env.register(t, "alice@example.com", "alice")
		require.NoError(t, env.svc.ForgotPassword(context.Background(), "alice@example.com"))

		token := env.store.resetTokenFor("alice@example.com")
		require.NotNil(t, token)

		require.NoError(t, env.svc.ResetPassword(context.Background(), token.Token, newPassword))

		_, err := env.svc.Login(context.Background(), "alice@example.com", newPassword)
		require.NoError(t, err)

		_, err = env.svc.Refresh(context.Background(), session.RefreshToken)
		require.ErrorIs(t, err, auth.ErrTokenInvalid, "reset revokes every session")

		err = env.svc.ResetPassword(context.Background(), token.Token, "Y3tAnother!pass")
		require.ErrorIs(t, err, auth.ErrTokenNotUsable, "second redemption must fail")
	})

	t.Run("unknown and expired tokens fail identically", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		errUnknown := env.svc.ResetPassword(context.Background(), "deadbeef", newPassword)
		require.ErrorIs(t, errUnknown, auth.ErrTokenNotUsable)
	})

	t.Run("weak replacement leaves the token usable", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.register(t, "alice@example.com", "alice")
		require.NoError(t, env.svc.ForgotPassword(context.Background(), "alice@example.com"))

		token := env.store.resetTokenFor("alice@example.com")
		require.NotNil(t, token)

		err := env.svc.ResetPassword(context.Background(), token.Token, "weak")
		require.True(t, validator.IsValidationError(err))

		require.NoError(t, env.svc.ResetPassword(context.Background(), token.Token, newPassword))
	})
}

func TestService_EmailVerification(t *testing.T) {
	t.Parallel()

	t.Run("verification token marks the identity verified once", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		session := env.register(t, "alice@example.com", "alice")

		vt := env.store.verificationTokenFor("alice@example.com")
		require.NotNil(t, vt)

		require.NoError(t, env.svc.VerifyEmail(context.Background(), vt.Token))

		user, err := env.store.UserByID(context.Background(), session.User.ID)
		require.NoError(t, err)
		assert.True(t, user.Verified)

		err = env.svc.VerifyEmail(context.Background(), vt.Token)
		require.ErrorIs(t, err, auth.ErrTokenNotUsable)
	})

	t.Run("reissue invalidates the previous token", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		session := env.register(t, "alice@example.com", "alice")

		first := env.store.verificationTokenFor("alice@example.com")
		require.NotNil(t, first)

		require.NoError(t, env.svc.SendVerificationEmail(context.Background(), session.User.ID))
		second := env.store.verificationTokenFor("alice@example.com")
		require.NotNil(t, second)
		require.NotEqual(t, first.Token, second.Token)

		require.ErrorIs(t, env.svc.VerifyEmail(context.Background(), first.Token), auth.ErrTokenNotUsable)
		require.NoError(t, env.svc.VerifyEmail(context.Background(), second.Token))
	})

	t.Run("already verified accounts cannot request another token", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		session := env.register(t, "alice@example.com", "alice")

		vt := env.store.verificationTokenFor("alice@example.com")
		require.NotNil(t, vt)
		require.NoError(t, env.svc.VerifyEmail(context.Background(), vt.Token))

		err := env.svc.SendVerificationEmail(context.Background(), session.User.ID)
		require.ErrorIs(t, err, auth.ErrAlreadyVerified)
	})
}

func TestService_ResolveUser(t *testing.T) {
	t.Parallel()

	t.Run("returns the fresh identity for a valid token", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		session := env.register(t, "alice@example.com", "alice")

		user, err := env.svc.ResolveUser(context.Background(), session.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, session.User.ID, user.ID)
	})

	t.Run("deleted account no longer authenticates", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		session := env.register(t, "alice@example.com", "alice")

		require.NoError(t, env.svc.DeleteAccount(context.Background(), session.User.ID))

		_, err := env.svc.ResolveUser(context.Background(), session.AccessToken)
		require.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("refresh token is not accepted as an access token", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		session := env.register(t, "alice@example.com", "alice")

		_, err := env.svc.ResolveUser(context.Background(), session.RefreshToken)
		require.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("expired token is reported as expired", func(t *testing.T) {
		t.Parallel()

		codec, err := jwt.New(jwt.Config{
			AccessSecret:  "short-lived-access-secret-000000",
			RefreshSecret: "short-lived-refresh-secret-00000",
			AccessTTL:     time.Second,
			RefreshTTL:    24 * time.Hour,
		})
		require.NoError(t, err)

		store := newFakeStorage()
		svc := auth.New(store, codec, password.New(password.WithCost(bcrypt.MinCost)), &fakeMailer{}, auth.Config{})

		session, err := svc.Register(context.Background(), auth.RegisterParams{
			Email:    "alice@example.com",
			Username: "alice",
			Password: testPassword,
		})
		require.NoError(t, err)

		time.Sleep(2 * time.Second)

		_, err = svc.ResolveUser(context.Background(), session.AccessToken)
		require.ErrorIs(t, err, auth.ErrTokenExpired)
	})
}

func TestService_CleanupExpiredTokens(t *testing.T) {
	t.Parallel()

	t.Run("removes expired refresh tokens", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		session := env.register(t, "alice@example.com", "alice")

		env.store.expireRefreshToken(session.RefreshToken)
		require.NoError(t, env.svc.CleanupExpiredTokens(context.Background()))
		assert.Equal(t, 0, env.store.refreshTokenCount())

		// An unrelated user ID purge is a no-op, not an error.
		require.NoError(t, env.svc.LogoutAll(context.Background(), uuid.New()))
	})

	t.Run("used tokens age out by consumption time", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.register(t, "alice@example.com", "alice")
		require.NoError(t, env.svc.ForgotPassword(context.Background(), "alice@example.com"))

		token := env.store.resetTokenFor("alice@example.com")
		require.NotNil(t, token)
		require.NoError(t, env.svc.ResetPassword(context.Background(), token.Token, "An0ther!Passw0rd"))

		// Freshly consumed: kept inside the retention window.
		require.NoError(t, env.svc.CleanupExpiredTokens(context.Background()))
		assert.Equal(t, 1, env.store.resetTokenCount())

		// Consumed longer ago than the retention window: purged.
		env.store.backdateResetTokenUse("alice@example.com", time.Now().Add(-8*24*time.Hour))
		require.NoError(t, env.svc.CleanupExpiredTokens(context.Background()))
		assert.Equal(t, 0, env.store.resetTokenCount())
	})
}
