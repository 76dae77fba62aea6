package auth_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stackblog/authkit/pkg/email"
	"github.com/stackblog/authkit/svc/auth"
)

// fakeStorage is an in-memory Storage implementation mirroring the contract's
// uniqueness, usability, and atomicity semantics.
type fakeStorage struct {
	mu            sync.Mutex
	users         map[uuid.UUID]*auth.User
	refreshTokens map[string]*auth.RefreshToken
	resetTokens   map[string]*auth.ResetToken
	verifyTokens  map[string]*auth.VerificationToken // keyed by email (one row per email)
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		users:         make(map[uuid.UUID]*auth.User),
		refreshTokens: make(map[string]*auth.RefreshToken),
		resetTokens:   make(map[string]*auth.ResetToken),
		verifyTokens:  make(map[string]*auth.VerificationToken),
	}
}

func (f *fakeStorage) CreateUser(_ context.Context, user *auth.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if strings.EqualFold(u.Email, user.Email) {
			return auth.ErrEmailTaken
		}
		if u.Username == user.Username {
			return auth.ErrUsernameTaken
		}
	}

	clone := *user
	clone.CreatedAt = time.Now()
	clone.UpdatedAt = clone.CreatedAt
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeStorage) UserByID(_ context.Context, id uuid.UUID) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (f *fakeStorage) UserByEmail(_ context.Context, emailAddr string) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if strings.EqualFold(u.Email, emailAddr) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (f *fakeStorage) UpdatePasswordHash(_ context.Context, userID uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[userID]
	if !ok {
		return auth.ErrUserNotFound
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStorage) DeleteUser(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[userID]; !ok {
		return auth.ErrUserNotFound
	}
	delete(f.users, userID)
	// Cascade like the relational schema would.
	for tok, rt := range f.refreshTokens {
		if rt.UserID == userID {
			delete(f.refreshTokens, tok)
		}
	}
	return nil
}

func (f *fakeStorage) CreateRefreshToken(_ context.Context, token string, userID uuid.UUID, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.refreshTokens[token] = &auth.RefreshToken{
		ID:        uuid.New(),
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (f *fakeStorage) RefreshTokenByValue(_ context.Context, token string) (*auth.RefreshToken, *auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, ok := f.refreshTokens[token]
	if !ok {
		return nil, nil, auth.ErrSessionNotFound
	}
	user, ok := f.users[record.UserID]
	if !ok {
		return nil, nil, auth.ErrSessionNotFound
	}
	recClone := *record
	userClone := *user
	return &recClone, &userClone, nil
}

func (f *fakeStorage) DeleteRefreshToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.refreshTokens, token)
	return nil
}

func (f *fakeStorage) DeleteAllRefreshTokens(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for tok, rt := range f.refreshTokens {
		if rt.UserID == userID {
			delete(f.refreshTokens, tok)
		}
	}
	return nil
}

func (f *fakeStorage) UpsertVerificationToken(_ context.Context, emailAddr, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.verifyTokens[emailAddr] = &auth.VerificationToken{
		ID:        uuid.New(),
		Email:     emailAddr,
		Token:     token,
		Used:      false,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (f *fakeStorage) UsableVerificationToken(_ context.Context, token string) (*auth.VerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, vt := range f.verifyTokens {
		if vt.Token == token && !vt.Used && vt.ExpiresAt.After(time.Now()) {
			clone := *vt
			return &clone, nil
		}
	}
	return nil, auth.ErrTokenNotUsable
}

func (f *fakeStorage) RedeemVerificationToken(_ context.Context, tokenID uuid.UUID, emailAddr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	vt, ok := f.verifyTokens[emailAddr]
	if !ok || vt.ID != tokenID || vt.Used || !vt.ExpiresAt.After(time.Now()) {
		return auth.ErrTokenNotUsable
	}

	for _, u := range f.users {
		if strings.EqualFold(u.Email, emailAddr) {
			now := time.Now()
			vt.Used = true
			vt.UsedAt = &now
			u.Verified = true
			return nil
		}
	}
	return auth.ErrTokenNotUsable
}

func (f *fakeStorage) CreateResetToken(_ context.Context, emailAddr, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.resetTokens[token] = &auth.ResetToken{
		ID:        uuid.New(),
		Email:     emailAddr,
		Token:     token,
		Used:      false,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (f *fakeStorage) UsableResetToken(_ context.Context, token string) (*auth.ResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rt, ok := f.resetTokens[token]
	if !ok || rt.Used || !rt.ExpiresAt.After(time.Now()) {
		return nil, auth.ErrTokenNotUsable
	}
	clone := *rt
	return &clone, nil
}

func (f *fakeStorage) RedeemResetToken(_ context.Context, tokenID uuid.UUID, emailAddr, newHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, rt := range f.resetTokens {
		if rt.ID != tokenID {
			continue
		}
		if rt.Used || !rt.ExpiresAt.After(time.Now()) || !strings.EqualFold(rt.Email, emailAddr) {
			return auth.ErrTokenNotUsable
		}
		for _, u := range f.users {
			if strings.EqualFold(u.Email, emailAddr) {
				now := time.Now()
				rt.Used = true
				rt.UsedAt = &now
				u.PasswordHash = newHash
				return nil
			}
		}
		return auth.ErrTokenNotUsable
	}
	return auth.ErrTokenNotUsable
}

func (f *fakeStorage) PurgeExpiredTokens(_ context.Context, now time.Time, usedRetention time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var removed int64
	for tok, rt := range f.refreshTokens {
		if now.After(rt.ExpiresAt) {
			delete(f.refreshTokens, tok)
			removed++
		}
	}
	for tok, rt := range f.resetTokens {
		if now.After(rt.ExpiresAt) || (rt.Used && rt.UsedAt != nil && now.Sub(*rt.UsedAt) > usedRetention) {
			delete(f.resetTokens, tok)
			removed++
		}
	}
	for em, vt := range f.verifyTokens {
		if now.After(vt.ExpiresAt) || (vt.Used && vt.UsedAt != nil && now.Sub(*vt.UsedAt) > usedRetention) {
			delete(f.verifyTokens, em)
			removed++
		}
	}
	return removed, nil
}

// expireRefreshToken backdates a stored refresh token for store-expiry tests.
func (f *fakeStorage) expireRefreshToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if rt, ok := f.refreshTokens[token]; ok {
		rt.ExpiresAt = time.Now().Add(-time.Minute)
	}
}

func (f *fakeStorage) refreshTokenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.refreshTokens)
}

func (f *fakeStorage) resetTokenFor(emailAddr string) *auth.ResetToken {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, rt := range f.resetTokens {
		if strings.EqualFold(rt.Email, emailAddr) && !rt.Used {
			clone := *rt
			return &clone
		}
	}
	return nil
}

// backdateResetTokenUse rewinds a consumed reset token's UsedAt for
// retention-window tests.
func (f *fakeStorage) backdateResetTokenUse(emailAddr string, to time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, rt := range f.resetTokens {
		if strings.EqualFold(rt.Email, emailAddr) && rt.Used {
			usedAt := to
			rt.UsedAt = &usedAt
		}
	}
}

func (f *fakeStorage) resetTokenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.resetTokens)
}

func (f *fakeStorage) verificationTokenFor(emailAddr string) *auth.VerificationToken {
	f.mu.Lock()
	defer f.mu.Unlock()

	if vt, ok := f.verifyTokens[emailAddr]; ok {
		clone := *vt
		return &clone
	}
	return nil
}

// fakeMailer records outbound messages; Fail makes every send error to prove
// mail failures never abort the primary operation.
type fakeMailer struct {
	mu   sync.Mutex
	sent []email.SendEmailParams
	fail bool
}

func (m *fakeMailer) SendEmail(_ context.Context, params email.SendEmailParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return email.ErrFailedToSendEmail
	}
	m.sent = append(m.sent, params)
	return nil
}

func (m *fakeMailer) sentTags() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	tags := make([]string, 0, len(m.sent))
	for _, p := range m.sent {
		tags = append(tags, p.Tag)
	}
	return tags
}

func (m *fakeMailer) sentTo(emailAddr string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, p := range m.sent {
		if p.SendTo == emailAddr {
			count++
		}
	}
	return count
}
