package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Gatehouse/internal/domain/user"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct{ s *Store }

const userColumns = `id, name, email, password_hash, account_enabled, account_locked,
       failed_login_attempts, last_login_at, password_changed_at, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner, u *user.User) error {
	var (
		lastLogin, pwChanged sql.NullInt64
		created, updated     int64
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.AccountEnabled, &u.AccountLocked,
		&u.FailedLoginAttempts, &lastLogin, &pwChanged, &created, &updated); err != nil {
		return err
	}
	u.LastLoginAt = timePtr(lastLogin)
	u.PasswordChangedAt = timePtr(pwChanged)
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return nil
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return user.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	now := toMillis(r.s.now())
	row := r.s.db.QueryRowContext(ctx, `
INSERT INTO users (name, email, password_hash, account_enabled, account_locked,
                   failed_login_attempts, password_changed_at, created_at, updated_at)
VALUES (?1, ?2, ?3, ?4, 0, 0, ?5, ?6, ?6)
RETURNING `+userColumns,
		u.Name, u.Email, u.PasswordHash, u.AccountEnabled, nullMillis(u.PasswordChangedAt), now)
	if err := scanUser(row, u); err != nil {
		if isUniqueViolation(err) {
			return user.ErrConflict
		}
		return fmt.Errorf("user insert: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var u user.User
	row := r.s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?1`, id)
	if err := scanUser(row, &u); err != nil {
		return nil, notFound(err, "user by id")
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	row := r.s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?1`, email)
	if err := scanUser(row, &u); err != nil {
		return nil, notFound(err, "user by email")
	}
	return &u, nil
}

func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = ?1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return exists, nil
}

func (r *UserRepo) SearchByName(ctx context.Context, name string, limit int) ([]*user.User, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.s.db.QueryContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE instr(lower(name), lower(?1)) > 0
ORDER BY id
LIMIT ?2`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var out []*user.User
	for rows.Next() {
		var u user.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (r *UserRepo) Update(ctx context.Context, u *user.User) error {
	row := r.s.db.QueryRowContext(ctx, `
UPDATE users
SET name = ?2, email = ?3, account_enabled = ?4, updated_at = ?5
WHERE id = ?1
RETURNING `+userColumns,
		u.ID, u.Name, u.Email, u.AccountEnabled, toMillis(r.s.now()))
	if err := scanUser(row, u); err != nil {
		if isUniqueViolation(err) {
			return user.ErrConflict
		}
		return notFound(err, "user update")
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?1`, id)
	if err != nil {
		return fmt.Errorf("user delete: %w", err)
	}
	return mustAffect(res)
}

func (r *UserRepo) RecordLoginFailure(ctx context.Context, id int64, threshold int) (user.FailureResult, error) {
	var res user.FailureResult
	err := r.s.db.QueryRowContext(ctx, `
UPDATE users
SET failed_login_attempts = failed_login_attempts + 1,
    account_locked        = (failed_login_attempts + 1 >= ?2),
    updated_at            = ?3
WHERE id = ?1 AND account_locked = 0
RETURNING failed_login_attempts, account_locked`,
		id, threshold, toMillis(r.s.now())).Scan(&res.Attempts, &res.Locked)
	if err != nil {
		return user.FailureResult{}, notFound(err, "record login failure")
	}
	return res, nil
}

func (r *UserRepo) RecordLoginSuccess(ctx context.Context, id int64, at time.Time) error {
	res, err := r.s.db.ExecContext(ctx, `
UPDATE users
SET failed_login_attempts = 0, last_login_at = ?2, updated_at = ?3
WHERE id = ?1 AND account_locked = 0`,
		id, toMillis(at), toMillis(r.s.now()))
	if err != nil {
		return fmt.Errorf("record login success: %w", err)
	}
	return mustAffect(res)
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id int64, hash string, at time.Time) error {
	res, err := r.s.db.ExecContext(ctx, `
UPDATE users
SET password_hash = ?2, password_changed_at = ?3, updated_at = ?4
WHERE id = ?1`,
		id, hash, toMillis(at), toMillis(r.s.now()))
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return mustAffect(res)
}

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}
