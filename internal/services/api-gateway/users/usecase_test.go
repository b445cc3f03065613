package users

import (
	"context"
	"path/filepath"
	"testing"

	authcore "github.com/NordCoder/Gatehouse/internal/auth"
	domainauth "github.com/NordCoder/Gatehouse/internal/domain/auth"
	"github.com/NordCoder/Gatehouse/internal/domain/user"
	"github.com/NordCoder/Gatehouse/internal/repository/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = authcore.Identity{Subject: "alice@example.com"}
	bob   = authcore.Identity{Subject: "bob@example.com"}
	anon  = authcore.Identity{}
)

func seed(t *testing.T) (*sqlite.Store, map[string]int64) {
	t.Helper()
	s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ids := map[string]int64{}
	for name, email := range map[string]string{"Alice Smith": alice.Subject, "Bob Jones": bob.Subject} {
		u := &user.User{Name: name, Email: email, PasswordHash: "x", AccountEnabled: true}
		require.NoError(t, s.Users().Create(context.Background(), u))
		ids[email] = u.ID
	}
	return s, ids
}

func TestUsecase_Reads(t *testing.T) {
	s, ids := seed(t)
	uc := New(s.Users(), 0)
	ctx := context.Background()

	p, err := uc.Get(ctx, bob, ids[alice.Subject])
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", p.Name)

	_, err = uc.Get(ctx, anon, ids[alice.Subject])
	require.ErrorIs(t, err, domainauth.ErrUnauthenticated)

	_, err = uc.Get(ctx, bob, 9999)
	require.ErrorIs(t, err, user.ErrNotFound)

	found, err := uc.Search(ctx, alice, "jones")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, bob.Subject, found[0].Email)

	_, err = uc.Search(ctx, anon, "jones")
	require.ErrorIs(t, err, domainauth.ErrUnauthenticated)
}

func TestUsecase_OwnerOnlyMutations(t *testing.T) {
	s, ids := seed(t)
	uc := New(s.Users(), 0)
	ctx := context.Background()
	aliceID := ids[alice.Subject]

	_, err := uc.Rename(ctx, bob, aliceID, "Mallory")
	require.ErrorIs(t, err, domainauth.ErrAccessDenied)
	_, err = uc.Rename(ctx, anon, aliceID, "Mallory")
	require.ErrorIs(t, err, domainauth.ErrUnauthenticated)
	_, err = uc.Rename(ctx, alice, aliceID, "   ")
	require.ErrorIs(t, err, domainauth.ErrInvalidProfile)

	p, err := uc.Rename(ctx, alice, aliceID, " Alice Cooper ")
	require.NoError(t, err)
	assert.Equal(t, "Alice Cooper", p.Name)

	require.ErrorIs(t, uc.Delete(ctx, bob, aliceID), domainauth.ErrAccessDenied)
	require.NoError(t, uc.Delete(ctx, alice, aliceID))

	_, err = uc.Get(ctx, bob, aliceID)
	require.ErrorIs(t, err, user.ErrNotFound)
}
