package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stackblog/authkit/pkg/pg"
	"github.com/stackblog/authkit/svc/auth"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrations holds the embedded schema migrations, applied at startup with
// pg.Migrate. The FS is rooted at the migration files themselves, not the
// migrations/ parent, which is what goose's directory scan expects.
var Migrations = func() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		panic(fmt.Sprintf("postgres: invalid migrations embed: %v", err))
	}
	return sub
}()

// Storage is the pgx-backed implementation of auth.Storage.
type Storage struct {
	pool *pgxpool.Pool
}

// New wraps an open connection pool. The pool's lifecycle belongs to the
// caller.
func New(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

const userColumns = "id, email, username, password_hash, name, bio, avatar_url, role, verified, created_at, updated_at"

func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash,
		&u.Name, &u.Bio, &u.AvatarURL, &u.Role, &u.Verified,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Storage) CreateUser(ctx context.Context, user *auth.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, username, password_hash, name, role, verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Email, user.Username, user.PasswordHash, user.Name, user.Role, user.Verified,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && strings.Contains(pgErr.ConstraintName, "username") {
				return auth.ErrUsernameTaken
			}
			return auth.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id,
	))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("select user by id: %w", err)
	}
	return user, nil
}

func (s *Storage) UserByEmail(ctx context.Context, email string) (*auth.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE lower(email) = lower($1)", email,
	))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("select user by email: %w", err)
	}
	return user, nil
}

func (s *Storage) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1",
		userID, hash,
	)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (s *Storage) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	// Token rows follow via ON DELETE CASCADE on refresh_tokens; reset and
	// verification rows are keyed by email and age out through the purge.
	tag, err := s.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (s *Storage) CreateRefreshToken(ctx context.Context, token string, userID uuid.UUID, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (token, user_id, expires_at)
		VALUES ($1, $2, $3)`,
		token, userID, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (s *Storage) RefreshTokenByValue(ctx context.Context, token string) (*auth.RefreshToken, *auth.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT rt.id, rt.token, rt.user_id, rt.expires_at, rt.created_at,
		       u.id, u.email, u.username, u.password_hash, u.name, u.bio,
		       u.avatar_url, u.role, u.verified, u.created_at, u.updated_at
		FROM refresh_tokens rt
		JOIN users u ON u.id = rt.user_id
		WHERE rt.token = $1`,
		token,
	)

	var rt auth.RefreshToken
	var u auth.User
	err := row.Scan(
		&rt.ID, &rt.Token, &rt.UserID, &rt.ExpiresAt, &rt.CreatedAt,
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Name, &u.Bio,
		&u.AvatarURL, &u.Role, &u.Verified, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, nil, auth.ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("select refresh token: %w", err)
	}
	return &rt, &u, nil
}

func (s *Storage) DeleteRefreshToken(ctx context.Context, token string) error {
	// Zero rows affected is fine: logout is idempotent.
	if _, err := s.pool.Exec(ctx, "DELETE FROM refresh_tokens WHERE token = $1", token); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (s *Storage) DeleteAllRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM refresh_tokens WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("delete refresh tokens: %w", err)
	}
	return nil
}

func (s *Storage) UpsertVerificationToken(ctx context.Context, email, token string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO email_verification_tokens (email, token, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (lower(email)) DO UPDATE
		SET token = EXCLUDED.token,
		    used = FALSE,
		    expires_at = EXCLUDED.expires_at,
		    created_at = now()`,
		email, token, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("upsert verification token: %w", err)
	}
	return nil
}

func (s *Storage) UsableVerificationToken(ctx context.Context, token string) (*auth.VerificationToken, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, token, used, used_at, expires_at, created_at
		FROM email_verification_tokens
		WHERE token = $1 AND used = FALSE AND expires_at > now()`,
		token,
	)

	var vt auth.VerificationToken
	if err := row.Scan(&vt.ID, &vt.Email, &vt.Token, &vt.Used, &vt.UsedAt, &vt.ExpiresAt, &vt.CreatedAt); err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrTokenNotUsable
		}
		return nil, fmt.Errorf("select verification token: %w", err)
	}
	return &vt, nil
}

func (s *Storage) RedeemVerificationToken(ctx context.Context, tokenID uuid.UUID, email string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE email_verification_tokens
			SET used = TRUE, used_at = now()
			WHERE id = $1 AND used = FALSE AND expires_at > now()`,
			tokenID,
		)
		if err != nil {
			return fmt.Errorf("mark verification token used: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return auth.ErrTokenNotUsable
		}

		tag, err = tx.Exec(ctx,
			"UPDATE users SET verified = TRUE, updated_at = now() WHERE lower(email) = lower($1)",
			email,
		)
		if err != nil {
			return fmt.Errorf("mark user verified: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return auth.ErrTokenNotUsable
		}
		return nil
	})
}

func (s *Storage) CreateResetToken(ctx context.Context, email, token string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO password_reset_tokens (email, token, expires_at)
		VALUES ($1, $2, $3)`,
		email, token, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert reset token: %w", err)
	}
	return nil
}

func (s *Storage) UsableResetToken(ctx context.Context, token string) (*auth.ResetToken, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, token, used, used_at, expires_at, created_at
		FROM password_reset_tokens
		WHERE token = $1 AND used = FALSE AND expires_at > now()`,
		token,
	)

	var rt auth.ResetToken
	if err := row.Scan(&rt.ID, &rt.Email, &rt.Token, &rt.Used, &rt.UsedAt, &rt.ExpiresAt, &rt.CreatedAt); err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrTokenNotUsable
		}
		return nil, fmt.Errorf("select reset token: %w", err)
	}
	return &rt, nil
}

func (s *Storage) RedeemResetToken(ctx context.Context, tokenID uuid.UUID, email, newHash string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		// The conditional update doubles as the usability check, so two
		// concurrent redemptions of the same token cannot both succeed.
		tag, err := tx.Exec(ctx, `
			UPDATE password_reset_tokens
			SET used = TRUE, used_at = now()
			WHERE id = $1 AND used = FALSE AND expires_at > now()`,
			tokenID,
		)
		if err != nil {
			return fmt.Errorf("mark reset token used: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return auth.ErrTokenNotUsable
		}

		tag, err = tx.Exec(ctx,
			"UPDATE users SET password_hash = $2, updated_at = now() WHERE lower(email) = lower($1)",
			email, newHash,
		)
		if err != nil {
			return fmt.Errorf("update password hash: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return auth.ErrTokenNotUsable
		}
		return nil
	})
}

func (s *Storage) PurgeExpiredTokens(ctx context.Context, now time.Time, usedRetention time.Duration) (int64, error) {
	cutoff := now.Add(-usedRetention)
	var removed int64

	tag, err := s.pool.Exec(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at < $1", now,
	)
	if err != nil {
		return removed, fmt.Errorf("purge refresh tokens: %w", err)
	}
	removed += tag.RowsAffected()

	tag, err = s.pool.Exec(ctx, `
		DELETE FROM password_reset_tokens
		WHERE expires_at < $1 OR (used = TRUE AND used_at < $2)`,
		now, cutoff,
	)
	if err != nil {
		return removed, fmt.Errorf("purge reset tokens: %w", err)
	}
	removed += tag.RowsAffected()

	tag, err = s.pool.Exec(ctx, `
		DELETE FROM email_verification_tokens
		WHERE expires_at < $1 OR (used = TRUE AND used_at < $2)`,
		now, cutoff,
	)
	if err != nil {
		return removed, fmt.Errorf("purge verification tokens: %w", err)
	}
	removed += tag.RowsAffected()

	return removed, nil
}

// withTx runs fn inside a transaction, committing on nil and rolling back on
// error.
func (s *Storage) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
