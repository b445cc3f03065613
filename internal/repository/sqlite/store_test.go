package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/NordCoder/Gatehouse/internal/domain/audit"
	"github.com/NordCoder/Gatehouse/internal/domain/auth"
	"github.com/NordCoder/Gatehouse/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "gatehouse.db"), WithClock(func() time.Time { return t0 }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newUser(t *testing.T, s *Store, email string) *user.User {
	t.Helper()
	at := t0
	u := &user.User{Name: "Alice", Email: email, PasswordHash: "hash", AccountEnabled: true, PasswordChangedAt: &at}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "  ")
	require.Error(t, err)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.db")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestUserRepo_CreateGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s, "alice@test.com")

	assert.NotZero(t, u.ID)
	assert.Equal(t, t0, u.CreatedAt)
	assert.True(t, u.AccountEnabled)
	assert.False(t, u.AccountLocked)
	assert.Zero(t, u.FailedLoginAttempts)
	require.NotNil(t, u.PasswordChangedAt)
	assert.Nil(t, u.LastLoginAt)

	got, err := s.Users().GetByEmail(ctx, "ALICE@test.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@test.com", got.Email)

	ok, err := s.Users().ExistsByEmail(ctx, "Alice@Test.COM")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Users().ExistsByEmail(ctx, "bob@test.com")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Users().GetByEmail(ctx, "nobody@test.com")
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestUserRepo_DuplicateEmail(t *testing.T) {
	s := openTestStore(t)
	newUser(t, s, "alice@test.com")

	err := s.Users().Create(context.Background(), &user.User{Name: "x", Email: "ALICE@TEST.COM", PasswordHash: "h", AccountEnabled: true})
	require.ErrorIs(t, err, user.ErrConflict)
}

func TestUserRepo_UpdateDeleteSearch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := newUser(t, s, "alice@test.com")
	b := newUser(t, s, "bob@test.com")
	b.Name = "Bobby Tables"
	require.NoError(t, s.Users().Update(ctx, b))

	found, err := s.Users().SearchByName(ctx, "bob", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, b.ID, found[0].ID)

	found, err = s.Users().SearchByName(ctx, "%", 10)
	require.NoError(t, err)
	assert.Empty(t, found)

	require.NoError(t, s.Users().Delete(ctx, a.ID))
	require.ErrorIs(t, s.Users().Delete(ctx, a.ID), user.ErrNotFound)
	require.ErrorIs(t, s.Users().Update(ctx, a), user.ErrNotFound)
}

func TestUserRepo_LockoutCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s, "alice@test.com")
	repo := s.Users()

	for i := 1; i < 10; i++ {
		res, err := repo.RecordLoginFailure(ctx, u.ID, 10)
		require.NoError(t, err)
		assert.Equal(t, i, res.Attempts)
		assert.False(t, res.Locked)
	}
	res, err := repo.RecordLoginFailure(ctx, u.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, user.FailureResult{Attempts: 10, Locked: true}, res)

	_, err = repo.RecordLoginFailure(ctx, u.ID, 10)
	require.ErrorIs(t, err, user.ErrNotFound)
	require.ErrorIs(t, repo.RecordLoginSuccess(ctx, u.ID, t0), user.ErrNotFound)

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.AccountLocked)
	assert.Equal(t, 10, got.FailedLoginAttempts)
}

func TestUserRepo_SuccessResets(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s, "alice@test.com")

	for range 3 {
		_, err := s.Users().RecordLoginFailure(ctx, u.ID, 10)
		require.NoError(t, err)
	}
	at := t0.Add(time.Minute)
	require.NoError(t, s.Users().RecordLoginSuccess(ctx, u.ID, at))

	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, got.FailedLoginAttempts)
	require.NotNil(t, got.LastLoginAt)
	assert.Equal(t, at, *got.LastLoginAt)
}

func TestUserRepo_ConcurrentFailures(t *testing.T) {
	s := openTestStore(t)
	u := newUser(t, s, "alice@test.com")

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		locks  int
		misses int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Users().RecordLoginFailure(context.Background(), u.ID, 10)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				misses++
			case res.Locked:
				locks++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, locks)
	assert.Equal(t, 10, misses)
}

func TestRefreshTokenRepo(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s, "alice@test.com")
	repo := s.RefreshTokens()

	live := &auth.RefreshToken{UserID: u.ID, TokenHash: "live", IssuedAt: t0, ExpiresAt: t0.Add(time.Hour)}
	old := &auth.RefreshToken{UserID: u.ID, TokenHash: "old", IssuedAt: t0.Add(-2 * time.Hour), ExpiresAt: t0.Add(-time.Hour)}
	require.NoError(t, repo.Create(ctx, live))
	require.NoError(t, repo.Create(ctx, old))

	_, err := repo.Consume(ctx, "old", t0)
	require.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)

	got, err := repo.Consume(ctx, "live", t0)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)
	assert.True(t, got.Revoked)
	require.NotNil(t, got.RevokedAt)
	assert.Equal(t, t0, *got.RevokedAt)

	_, err = repo.Consume(ctx, "live", t0)
	require.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)

	n, err := repo.DeleteExpiredOrRevoked(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRefreshTokenRepo_DeleteAllByUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := newUser(t, s, "alice@test.com")
	b := newUser(t, s, "bob@test.com")
	repo := s.RefreshTokens()

	for i, h := range []string{"a1", "a2"} {
		require.NoError(t, repo.Create(ctx, &auth.RefreshToken{UserID: a.ID, TokenHash: h, IssuedAt: t0, ExpiresAt: t0.Add(time.Duration(i+1) * time.Hour)}))
	}
	require.NoError(t, repo.Create(ctx, &auth.RefreshToken{UserID: b.ID, TokenHash: "b1", IssuedAt: t0, ExpiresAt: t0.Add(time.Hour)}))

	n, err := repo.DeleteAllByUserID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = repo.Consume(ctx, "b1", t0)
	require.NoError(t, err)
}

func TestRefreshTokens_CascadeOnUserDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s, "alice@test.com")
	require.NoError(t, s.RefreshTokens().Create(ctx, &auth.RefreshToken{UserID: u.ID, TokenHash: "x", IssuedAt: t0, ExpiresAt: t0.Add(time.Hour)}))

	require.NoError(t, s.Users().Delete(ctx, u.ID))
	_, err := s.RefreshTokens().Consume(ctx, "x", t0)
	require.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)
}

func TestAuditRepo(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s, "alice@test.com")
	repo := s.Audit()

	uid := u.ID
	require.NoError(t, repo.Write(ctx, audit.Event{ID: "e1", UserID: &uid, Username: u.Email, Type: audit.EventLoginSuccess, Outcome: audit.OutcomeSuccess, CreatedAt: t0}))
	require.NoError(t, repo.Write(ctx, audit.Event{ID: "e2", UserID: &uid, Username: u.Email, Type: audit.EventLoginFailure, Outcome: audit.OutcomeFailure, FailureReason: "invalid password", IP: "1.2.3.4", CreatedAt: t0.Add(time.Second)}))
	// retried writes are idempotent
	require.NoError(t, repo.Write(ctx, audit.Event{ID: "e2", UserID: &uid, Type: audit.EventLoginFailure, Outcome: audit.OutcomeFailure, CreatedAt: t0}))
	require.NoError(t, repo.Write(ctx, audit.Event{ID: "e3", Username: "ghost@test.com", Type: audit.EventLoginFailure, Outcome: audit.OutcomeFailure, FailureReason: "user not found", CreatedAt: t0}))

	evs, err := repo.ListByUser(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, "e2", evs[0].ID)
	assert.Equal(t, "invalid password", evs[0].FailureReason)
	assert.Equal(t, "1.2.3.4", evs[0].IP)
	assert.Equal(t, t0.Add(time.Second), evs[0].CreatedAt)

	ghost, err := repo.ListByUsername(ctx, "ghost@test.com", 10)
	require.NoError(t, err)
	require.Len(t, ghost, 1)
	assert.Nil(t, ghost[0].UserID)
}
