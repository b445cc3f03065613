package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	authcore "github.com/NordCoder/Gatehouse/internal/auth"
	"github.com/NordCoder/Gatehouse/internal/domain/audit"
	domainauth "github.com/NordCoder/Gatehouse/internal/domain/auth"
	"github.com/NordCoder/Gatehouse/internal/domain/user"
	"github.com/NordCoder/Gatehouse/internal/obs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	TokenType               = "Bearer"
	DefaultLockoutThreshold = 10
	maxNameLen              = 100
)

var tracer = otel.Tracer("gatehouse/auth")

var (
	loginTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatehouse",
		Subsystem: "auth",
		Name:      "login_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})
	registerTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatehouse",
		Subsystem: "auth",
		Name:      "register_total",
		Help:      "Registration attempts by result.",
	}, []string{"result"})
	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatehouse",
		Subsystem: "auth",
		Name:      "refresh_total",
		Help:      "Refresh token exchanges by result.",
	}, []string{"result"})
	accountsLocked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gatehouse",
		Subsystem: "auth",
		Name:      "accounts_locked_total",
		Help:      "Accounts locked by consecutive login failures.",
	})
)

type TokenIssuer interface {
	Issue(subject string, ttl time.Duration) (string, error)
}

type Config struct {
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	LockoutThreshold int
	Policy           authcore.PasswordPolicy
	Now              func() time.Time
}

type Deps struct {
	Users         user.Repo
	RefreshTokens domainauth.RefreshTokenRepo
	Hasher        authcore.Hasher
	Tokens        TokenIssuer
	Audit         audit.Recorder
	Log           *zap.Logger
}

type Usecase struct {
	users   user.Repo
	refresh domainauth.RefreshTokenRepo
	hasher  authcore.Hasher
	tokens  TokenIssuer
	audit   audit.Recorder
	log     *zap.Logger
	cfg     Config

	// compared against when the email is unknown so that path costs one bcrypt too
	dummyHash string
}

func NewUsecase(d Deps, cfg Config) (*Usecase, error) {
	if d.Users == nil || d.RefreshTokens == nil || d.Hasher == nil || d.Tokens == nil {
		return nil, errors.New("auth usecase: users, refresh tokens, hasher and token issuer are required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("auth usecase: token ttls must be positive")
	}
	if cfg.LockoutThreshold <= 0 {
		cfg.LockoutThreshold = DefaultLockoutThreshold
	}
	if cfg.Policy.MinLength == 0 {
		cfg.Policy = authcore.DefaultPasswordPolicy()
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.Audit == nil {
		d.Audit = nopRecorder{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	dummy, err := d.Hasher.Hash("gatehouse-unknown-account")
	if err != nil {
		return nil, fmt.Errorf("auth usecase: %w", err)
	}
	return &Usecase{
		users:     d.Users,
		refresh:   d.RefreshTokens,
		hasher:    d.Hasher,
		tokens:    d.Tokens,
		audit:     d.Audit,
		log:       d.Log.With(zap.String("component", "auth")),
		cfg:       cfg,
		dummyHash: dummy,
	}, nil
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, audit.Event) {}

// ClientInfo is the caller's network identity, copied into audit events.
type ClientInfo struct {
	IP        string
	UserAgent string
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type AuthResult struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	User         user.Profile `json:"user"`
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// validEmail accepts a bare addr-spec only, no display name or angle brackets.
func validEmail(s string) bool {
	if s == "" || len(s) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && addr.Name == ""
}

// Login verifies credentials and issues a token pair. Every outcome except an
// infrastructure error produces exactly one audit event.
func (u *Usecase) Login(ctx context.Context, in LoginInput, client ClientInfo) (res *AuthResult, err error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer func() { endSpan(span, err) }()

	email := normalizeEmail(in.Email)
	acc, err := u.users.GetByEmail(ctx, email)
	if errors.Is(err, user.ErrNotFound) {
		u.hasher.Verify(in.Password, u.dummyHash)
		u.record(ctx, nil, email, audit.EventLoginFailure, audit.OutcomeFailure, "user not found", client)
		loginTotal.WithLabelValues("unknown_user").Inc()
		return nil, domainauth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	span.SetAttributes(attribute.Int64("user.id", acc.ID))

	if acc.AccountLocked {
		u.record(ctx, acc, email, audit.EventLoginFailure, audit.OutcomeFailure, "account is locked", client)
		loginTotal.WithLabelValues("locked").Inc()
		return nil, domainauth.ErrAccountLocked
	}
	if !acc.AccountEnabled {
		u.record(ctx, acc, email, audit.EventLoginFailure, audit.OutcomeFailure, "account is disabled", client)
		loginTotal.WithLabelValues("disabled").Inc()
		return nil, domainauth.ErrAccountDisabled
	}

	if !u.hasher.Verify(in.Password, acc.PasswordHash) {
		return nil, u.loginFailed(ctx, acc, email, audit.EventLoginFailure, "invalid password", client)
	}

	now := u.cfg.Now()
	if err := u.users.RecordLoginSuccess(ctx, acc.ID, now); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// locked by a concurrent failure after we read it
			u.record(ctx, acc, email, audit.EventLoginFailure, audit.OutcomeFailure, "account is locked", client)
			loginTotal.WithLabelValues("locked").Inc()
			return nil, domainauth.ErrAccountLocked
		}
		return nil, fmt.Errorf("record login success: %w", err)
	}
	acc.FailedLoginAttempts = 0
	acc.LastLoginAt = &now

	res, err = u.issueTokens(ctx, acc, now)
	if err != nil {
		return nil, err
	}
	u.record(ctx, acc, email, audit.EventLoginSuccess, audit.OutcomeSuccess, "", client)
	loginTotal.WithLabelValues("success").Inc()
	obs.WithTrace(ctx, u.log).Debug("login succeeded", zap.Int64("user_id", acc.ID))
	return res, nil
}

// loginFailed counts a wrong password against the account. failType and
// reason describe the attempt when it does not lock the account.
func (u *Usecase) loginFailed(ctx context.Context, acc *user.User, email string, failType audit.EventType, reason string, client ClientInfo) error {
	fr, err := u.users.RecordLoginFailure(ctx, acc.ID, u.cfg.LockoutThreshold)
	switch {
	case errors.Is(err, user.ErrNotFound):
		u.record(ctx, acc, email, audit.EventLoginFailure, audit.OutcomeFailure, "account is locked", client)
		loginTotal.WithLabelValues("locked").Inc()
		return domainauth.ErrAccountLocked
	case err != nil:
		return fmt.Errorf("record login failure: %w", err)
	case fr.Locked:
		reason := fmt.Sprintf("account locked after %d failed login attempts", fr.Attempts)
		u.record(ctx, acc, email, audit.EventAccountLocked, audit.OutcomeSuccess, reason, client)
		loginTotal.WithLabelValues("locked_now").Inc()
		accountsLocked.Inc()
		obs.WithTrace(ctx, u.log).Warn("account locked",
			zap.Int64("user_id", acc.ID), zap.Int("attempts", fr.Attempts))
		return domainauth.ErrAccountJustLocked
	default:
		u.record(ctx, acc, email, failType, audit.OutcomeFailure, reason, client)
		loginTotal.WithLabelValues("bad_password").Inc()
		return domainauth.ErrInvalidCredentials
	}
}

// Register creates an enabled, unlocked account and signs it in.
func (u *Usecase) Register(ctx context.Context, in RegisterInput, client ClientInfo) (res *AuthResult, err error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer func() {
		endSpan(span, err)
		registerTotal.WithLabelValues(resultLabel(err)).Inc()
	}()

	if in.Password != in.ConfirmPassword {
		return nil, domainauth.ErrPasswordMismatch
	}
	if err := u.cfg.Policy.Check(in.Password); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || len(name) > maxNameLen || !validEmail(email) {
		return nil, domainauth.ErrInvalidProfile
	}

	exists, err := u.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, domainauth.ErrEmailAlreadyRegistered
	}

	hash, err := u.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	now := u.cfg.Now()
	acc := &user.User{
		Name:              name,
		Email:             email,
		PasswordHash:      hash,
		AccountEnabled:    true,
		PasswordChangedAt: &now,
	}
	if err := u.users.Create(ctx, acc); err != nil {
		if errors.Is(err, user.ErrConflict) {
			return nil, domainauth.ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	res, err = u.issueTokens(ctx, acc, now)
	if err != nil {
		return nil, err
	}
	u.record(ctx, acc, email, audit.EventRegistered, audit.OutcomeSuccess, "", client)
	return res, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// consumed whether or not the exchange succeeds afterwards.
func (u *Usecase) Refresh(ctx context.Context, raw string, client ClientInfo) (res *AuthResult, err error) {
	ctx, span := tracer.Start(ctx, "auth.Refresh")
	defer func() {
		endSpan(span, err)
		refreshTotal.WithLabelValues(resultLabel(err)).Inc()
	}()

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domainauth.ErrInvalidRefreshToken
	}
	now := u.cfg.Now()
	rec, err := u.refresh.Consume(ctx, authcore.HashToken(raw), now)
	if errors.Is(err, domainauth.ErrRefreshTokenNotFound) {
		return nil, domainauth.ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}

	acc, err := u.users.GetByID(ctx, rec.UserID)
	if errors.Is(err, user.ErrNotFound) {
		return nil, domainauth.ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if acc.AccountLocked || !acc.AccountEnabled {
		return nil, domainauth.ErrInvalidRefreshToken
	}

	res, err = u.issueTokens(ctx, acc, now)
	if err != nil {
		return nil, err
	}
	u.record(ctx, acc, acc.Email, audit.EventTokenRefreshed, audit.OutcomeSuccess, "", client)
	return res, nil
}

// Logout revokes every refresh token of the caller. Access tokens stay valid
// until they expire.
func (u *Usecase) Logout(ctx context.Context, id authcore.Identity, client ClientInfo) (err error) {
	ctx, span := tracer.Start(ctx, "auth.Logout")
	defer func() { endSpan(span, err) }()

	acc, err := u.account(ctx, id)
	if err != nil {
		return err
	}
	n, err := u.refresh.DeleteAllByUserID(ctx, acc.ID)
	if err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	u.record(ctx, acc, acc.Email, audit.EventLogout, audit.OutcomeSuccess, "", client)
	obs.WithTrace(ctx, u.log).Debug("logout", zap.Int64("user_id", acc.ID), zap.Int64("revoked", n))
	return nil
}

// ChangePassword replaces the caller's password and revokes their refresh tokens.
func (u *Usecase) ChangePassword(ctx context.Context, id authcore.Identity, in ChangePasswordInput, client ClientInfo) (err error) {
	ctx, span := tracer.Start(ctx, "auth.ChangePassword")
	defer func() { endSpan(span, err) }()

	acc, err := u.account(ctx, id)
	if err != nil {
		return err
	}
	if acc.AccountLocked {
		u.record(ctx, acc, acc.Email, audit.EventPasswordChanged, audit.OutcomeFailure, "account is locked", client)
		return domainauth.ErrAccountLocked
	}
	if !acc.AccountEnabled {
		u.record(ctx, acc, acc.Email, audit.EventPasswordChanged, audit.OutcomeFailure, "account is disabled", client)
		return domainauth.ErrAccountDisabled
	}
	// a wrong current password counts toward lockout like a failed login
	if !u.hasher.Verify(in.CurrentPassword, acc.PasswordHash) {
		return u.loginFailed(ctx, acc, acc.Email, audit.EventPasswordChanged, "invalid current password", client)
	}
	if in.NewPassword != in.ConfirmPassword {
		return domainauth.ErrPasswordMismatch
	}
	if err := u.cfg.Policy.Check(in.NewPassword); err != nil {
		return err
	}
	hash, err := u.hasher.Hash(in.NewPassword)
	if err != nil {
		return err
	}
	if err := u.users.UpdatePassword(ctx, acc.ID, hash, u.cfg.Now()); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if _, err := u.refresh.DeleteAllByUserID(ctx, acc.ID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	u.record(ctx, acc, acc.Email, audit.EventPasswordChanged, audit.OutcomeSuccess, "", client)
	return nil
}

// Me returns the caller's profile.
func (u *Usecase) Me(ctx context.Context, id authcore.Identity) (user.Profile, error) {
	acc, err := u.account(ctx, id)
	if err != nil {
		return user.Profile{}, err
	}
	return acc.Profile(), nil
}

// account resolves an authenticated identity. A valid token whose account has
// since been deleted is treated as unauthenticated.
func (u *Usecase) account(ctx context.Context, id authcore.Identity) (*user.User, error) {
	if !id.Authenticated() {
		return nil, domainauth.ErrUnauthenticated
	}
	acc, err := u.users.GetByEmail(ctx, id.Subject)
	if errors.Is(err, user.ErrNotFound) {
		return nil, domainauth.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	return acc, nil
}

func (u *Usecase) issueTokens(ctx context.Context, acc *user.User, now time.Time) (*AuthResult, error) {
	access, err := u.tokens.Issue(acc.Email, u.cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	raw, err := authcore.GenerateRawToken(authcore.RefreshTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	rec := &domainauth.RefreshToken{
		UserID:    acc.ID,
		TokenHash: authcore.HashToken(raw),
		IssuedAt:  now,
		ExpiresAt: now.Add(u.cfg.RefreshTTL),
	}
	if err := u.refresh.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}
	return &AuthResult{
		AccessToken:  access,
		RefreshToken: raw,
		TokenType:    TokenType,
		ExpiresIn:    int64(u.cfg.AccessTTL / time.Second),
		User:         acc.Profile(),
	}, nil
}

func (u *Usecase) record(ctx context.Context, acc *user.User, username string, typ audit.EventType, outcome audit.Outcome, reason string, client ClientInfo) {
	e := audit.Event{
		Username:      username,
		Type:          typ,
		Outcome:       outcome,
		FailureReason: reason,
		IP:            client.IP,
		UserAgent:     client.UserAgent,
		CreatedAt:     u.cfg.Now(),
	}
	if acc != nil {
		id := acc.ID
		e.UserID = &id
	}
	u.audit.Record(ctx, e)
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	return "failure"
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
