package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/Gatehouse/internal/domain/auth"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Pruner is the part of the refresh token store the sweeper needs.
type Pruner interface {
	DeleteExpiredOrRevoked(ctx context.Context, now time.Time) (int64, error)
}

var _ Pruner = (auth.RefreshTokenRepo)(nil)

type Usecase struct {
	Tokens Pruner
	Now    func() time.Time
}

func NewUC(tokens Pruner, now func() time.Time) *Usecase {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Usecase{Tokens: tokens, Now: now}
}

// Tick deletes refresh tokens that can no longer be exchanged.
func (u *Usecase) Tick(ctx context.Context) (int64, error) {
	ctx, span := otel.Tracer("token-sweeper.uc").Start(ctx, "sweeper.tick")
	defer span.End()

	n, err := u.Tokens.DeleteExpiredOrRevoked(ctx, u.Now())
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("delete stale refresh tokens: %w", err)
	}
	span.SetAttributes(attribute.Int64("tokens.deleted", n))
	return n, nil
}
