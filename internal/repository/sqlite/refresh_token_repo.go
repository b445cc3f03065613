package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Gatehouse/internal/domain/auth"
)

var _ auth.RefreshTokenRepo = (*RefreshTokenRepo)(nil)

type RefreshTokenRepo struct{ s *Store }

func (r *RefreshTokenRepo) Create(ctx context.Context, t *auth.RefreshToken) error {
	err := r.s.db.QueryRowContext(ctx, `
INSERT INTO refresh_tokens (user_id, token_hash, issued_at, expires_at, revoked)
VALUES (?1, ?2, ?3, ?4, 0)
RETURNING id`,
		t.UserID, t.TokenHash, toMillis(t.IssuedAt), toMillis(t.ExpiresAt)).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepo) Consume(ctx context.Context, tokenHash string, now time.Time) (*auth.RefreshToken, error) {
	var (
		t               auth.RefreshToken
		issued, expires int64
		revokedAt       sql.NullInt64
	)
	err := r.s.db.QueryRowContext(ctx, `
UPDATE refresh_tokens
SET revoked = 1, revoked_at = ?2
WHERE token_hash = ?1 AND revoked = 0 AND expires_at > ?2
RETURNING id, user_id, token_hash, issued_at, expires_at, revoked, revoked_at`,
		tokenHash, toMillis(now)).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &issued, &expires, &t.Revoked, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}
	t.IssuedAt = fromMillis(issued)
	t.ExpiresAt = fromMillis(expires)
	t.RevokedAt = timePtr(revokedAt)
	return &t, nil
}

func (r *RefreshTokenRepo) DeleteAllByUserID(ctx context.Context, userID int64) (int64, error) {
	res, err := r.s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = ?1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete refresh tokens: %w", err)
	}
	return res.RowsAffected()
}

func (r *RefreshTokenRepo) DeleteExpiredOrRevoked(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.s.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE revoked = 1 OR expires_at <= ?1`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("sweep refresh tokens: %w", err)
	}
	return res.RowsAffected()
}
