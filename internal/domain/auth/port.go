package auth

import (
	"context"
	"errors"
	"time"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

type RefreshTokenRepo interface {
	Create(ctx context.Context, t *RefreshToken) error
	// Consume revokes a usable token and returns it. Tokens that are unknown,
	// expired or already revoked yield ErrRefreshTokenNotFound.
	Consume(ctx context.Context, tokenHash string, now time.Time) (*RefreshToken, error)
	DeleteAllByUserID(ctx context.Context, userID int64) (int64, error)
	DeleteExpiredOrRevoked(ctx context.Context, now time.Time) (int64, error)
}
