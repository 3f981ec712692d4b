package auth

import (
	"context"
)

// Identity captures the authenticated admin principal extracted from a bearer token.
type Identity struct {
	Subject   string
	Email     string
	FullName  string
	Superuser bool
}

type contextKey string

const identityContextKey contextKey = "github.com/NomanAhmed1999/vatika/internal/platform/auth/identity"

// WithIdentity stores the identity within the context for downstream handlers.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the identity previously stored in context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
