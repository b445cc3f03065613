package user

import (
	"context"
	"time"
)

type Repo interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	SearchByName(ctx context.Context, name string, limit int) ([]*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id int64) error

	// RecordLoginFailure increments the failure counter of an unlocked account
	// and locks it once the counter reaches threshold, in one atomic statement.
	// ErrNotFound means no unlocked account with that id exists.
	RecordLoginFailure(ctx context.Context, id int64, threshold int) (FailureResult, error)
	// RecordLoginSuccess resets the failure counter of an unlocked account and
	// stamps last_login_at. ErrNotFound means the account is gone or locked.
	RecordLoginSuccess(ctx context.Context, id int64, at time.Time) error
	UpdatePassword(ctx context.Context, id int64, hash string, at time.Time) error
}
