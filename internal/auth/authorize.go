package auth

import (
	domainauth "github.com/NordCoder/Gatehouse/internal/domain/auth"
)

// AuthorizeRead admits any authenticated identity.
func AuthorizeRead(requester Identity) error {
	if !requester.Authenticated() {
		return domainauth.ErrUnauthenticated
	}
	return nil
}

// AuthorizeOwner admits only the identity that owns the resource. The
// comparison is exact; owner must already be in canonical form.
func AuthorizeOwner(owner string, requester Identity) error {
	if !requester.Authenticated() {
		return domainauth.ErrUnauthenticated
	}
	if owner == "" || requester.Subject != owner {
		return domainauth.ErrAccessDenied
	}
	return nil
}
