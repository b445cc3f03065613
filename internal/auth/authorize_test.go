package auth

import (
	"context"
	"testing"

	domainauth "github.com/NordCoder/Gatehouse/internal/domain/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeOwner(t *testing.T) {
	alice := Identity{Subject: "alice@test.com"}
	bob := Identity{Subject: "bob@test.com"}

	require.NoError(t, AuthorizeOwner("alice@test.com", alice))
	require.ErrorIs(t, AuthorizeOwner("bob@test.com", alice), domainauth.ErrAccessDenied)
	require.ErrorIs(t, AuthorizeOwner("alice@test.com", bob), domainauth.ErrAccessDenied)
	require.ErrorIs(t, AuthorizeOwner("alice@test.com", Identity{}), domainauth.ErrUnauthenticated)
	require.ErrorIs(t, AuthorizeOwner("", alice), domainauth.ErrAccessDenied)
	// exact match only
	require.ErrorIs(t, AuthorizeOwner("Alice@test.com", alice), domainauth.ErrAccessDenied)
}

func TestAuthorizeRead(t *testing.T) {
	require.NoError(t, AuthorizeRead(Identity{Subject: "bob@test.com"}))
	require.ErrorIs(t, AuthorizeRead(Identity{}), domainauth.ErrUnauthenticated)
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	assert.False(t, IdentityFromContext(ctx).Authenticated())

	ctx = WithIdentity(ctx, Identity{Subject: "alice@test.com"})
	id := IdentityFromContext(ctx)
	assert.True(t, id.Authenticated())
	assert.Equal(t, "alice@test.com", id.Subject)
}
