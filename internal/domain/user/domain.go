package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("user not found")
	ErrConflict = errors.New("user already exists")
)

// User is the persisted authentication state of one account.
type User struct {
	ID                  int64
	Name                string
	Email               string
	PasswordHash        string
	AccountEnabled      bool
	AccountLocked       bool
	FailedLoginAttempts int
	LastLoginAt         *time.Time
	PasswordChangedAt   *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Profile is the public part of a User.
type Profile struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

// FailureResult is the state of an account right after a failed login was counted.
type FailureResult struct {
	Attempts int
	Locked   bool
}
