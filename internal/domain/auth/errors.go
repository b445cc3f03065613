package auth

import (
	"errors"
	"strings"
)

var (
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrAccountLocked          = errors.New("account is locked")
	ErrAccountJustLocked      = errors.New("account has been locked due to too many failed login attempts")
	ErrAccountDisabled        = errors.New("account is disabled")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrPasswordMismatch       = errors.New("passwords do not match")
	ErrInvalidProfile         = errors.New("name and a valid email are required")
	ErrInvalidRefreshToken    = errors.New("invalid or expired refresh token")
	ErrUnauthenticated        = errors.New("authentication required")
	ErrAccessDenied           = errors.New("access denied")

	ErrPasswordPolicy = errors.New("password does not satisfy policy")
)

// PolicyViolation lists every password rule that failed.
type PolicyViolation struct {
	Rules []string
}

func (e *PolicyViolation) Error() string {
	return "password must " + strings.Join(e.Rules, ", ")
}

func (e *PolicyViolation) Is(target error) bool { return target == ErrPasswordPolicy }
