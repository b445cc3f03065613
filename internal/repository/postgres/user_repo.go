package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Gatehouse/internal/domain/user"
	"github.com/jackc/pgx/v5"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, name, email, password_hash, account_enabled, account_locked,
       failed_login_attempts, last_login_at, password_changed_at, created_at, updated_at`

const (
	qUserInsert = `
INSERT INTO users (name, email, password_hash, account_enabled, account_locked,
                   failed_login_attempts, password_changed_at)
VALUES ($1, $2, $3, $4, FALSE, 0, $5)
RETURNING ` + userColumns + `;`

	qUserByID = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1;`

	qUserByEmail = `
SELECT ` + userColumns + `
FROM users
WHERE lower(email) = lower($1);`

	qUserExistsByEmail = `
SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1));`

	qUserSearchByName = `
SELECT ` + userColumns + `
FROM users
WHERE strpos(lower(name), lower($1)) > 0
ORDER BY id
LIMIT $2;`

	qUserUpdate = `
UPDATE users
SET name            = $2,
    email           = $3,
    account_enabled = $4,
    updated_at      = now()
WHERE id = $1
RETURNING ` + userColumns + `;`

	qUserDelete = `DELETE FROM users WHERE id = $1;`

	// Both the increment and the lock decision read the pre-update counter, so
	// concurrent failures serialize on the row lock and exactly one of them
	// observes the threshold crossing.
	qUserLoginFailure = `
UPDATE users
SET failed_login_attempts = failed_login_attempts + 1,
    account_locked        = (failed_login_attempts + 1 >= $2),
    updated_at            = now()
WHERE id = $1 AND account_locked = FALSE
RETURNING failed_login_attempts, account_locked;`

	qUserLoginSuccess = `
UPDATE users
SET failed_login_attempts = 0,
    last_login_at         = $2,
    updated_at            = now()
WHERE id = $1 AND account_locked = FALSE;`

	qUserUpdatePassword = `
UPDATE users
SET password_hash       = $2,
    password_changed_at = $3,
    updated_at          = now()
WHERE id = $1;`
)

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	row := r.db.execQueryer(ctx).QueryRow(ctx, qUserInsert,
		u.Name, u.Email, u.PasswordHash, u.AccountEnabled, u.PasswordChangedAt)
	if err := scanUser(row, u); err != nil {
		if isUniqueViolation(err) {
			return user.ErrConflict
		}
		return fmt.Errorf("user insert: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserByID, id), &u); err != nil {
		return nil, notFound(err, "user by id")
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserByEmail, email), &u); err != nil {
		return nil, notFound(err, "user by email")
	}
	return &u, nil
}

func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var exists bool
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qUserExistsByEmail, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return exists, nil
}

func (r *UserRepo) SearchByName(ctx context.Context, name string, limit int) ([]*user.User, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qUserSearchByName, name, limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	out := make([]*user.User, 0, limit)
	for rows.Next() {
		var u user.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *UserRepo) Update(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	row := r.db.execQueryer(ctx).QueryRow(ctx, qUserUpdate, u.ID, u.Name, u.Email, u.AccountEnabled)
	if err := scanUser(row, u); err != nil {
		if isUniqueViolation(err) {
			return user.ErrConflict
		}
		return notFound(err, "user update")
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qUserDelete, id)
	if err != nil {
		return fmt.Errorf("user delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepo) RecordLoginFailure(ctx context.Context, id int64, threshold int) (user.FailureResult, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var res user.FailureResult
	err := r.db.execQueryer(ctx).QueryRow(ctx, qUserLoginFailure, id, threshold).Scan(&res.Attempts, &res.Locked)
	if err != nil {
		return user.FailureResult{}, notFound(err, "record login failure")
	}
	return res, nil
}

func (r *UserRepo) RecordLoginSuccess(ctx context.Context, id int64, at time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qUserLoginSuccess, id, at)
	if err != nil {
		return fmt.Errorf("record login success: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id int64, hash string, at time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qUserUpdatePassword, id, hash, at)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row, u *user.User) error {
	return row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.AccountEnabled, &u.AccountLocked,
		&u.FailedLoginAttempts, &u.LastLoginAt, &u.PasswordChangedAt, &u.CreatedAt, &u.UpdatedAt,
	)
}

func notFound(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return user.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
