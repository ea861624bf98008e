package httpx

import "context"

type identityKey struct{}

// WithIdentity stores the authenticated caller in ctx.
func WithIdentity[T any](ctx context.Context, id T) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller stored by the authentication middleware.
func IdentityFrom[T any](ctx context.Context) (T, bool) {
	id, ok := ctx.Value(identityKey{}).(T)
	return id, ok
}
