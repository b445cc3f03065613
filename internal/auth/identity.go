package auth

import "context"

// Identity is the verified subject of a request. The zero value is anonymous.
type Identity struct {
	Subject string
}

func (i Identity) Authenticated() bool { return i.Subject != "" }

type ctxKey int

const identityKey ctxKey = 1

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey).(Identity)
	return id
}
