// Package authctx carries the authenticated principal through a request
// context.
//
//	// middleware
//	ctx = authctx.WithPrincipal(ctx, principal)
//
//	// handlers
//	p, ok := authctx.Principal(ctx)
package authctx

import (
	"context"
	"errors"

	"github.com/kbukum/asthma-api/auth"
)

// contextKey is an unexported type to prevent collisions with other packages.
type contextKey struct{}

var principalKey = contextKey{}

// ErrNoPrincipal is returned when the context carries no principal.
var ErrNoPrincipal = errors.New("authctx: no principal in context")

// WithPrincipal stores p in the context.
func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// Principal returns the principal stored in ctx.
func Principal(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(auth.Principal)
	return p, ok
}

// MustPrincipal returns the principal stored in ctx and panics when it is
// missing. Use only behind the authentication middleware.
func MustPrincipal(ctx context.Context) auth.Principal {
	p, ok := Principal(ctx)
	if !ok {
		panic("authctx: principal not found in context")
	}
	return p
}

// PrincipalOrError returns ErrNoPrincipal when ctx carries no principal.
func PrincipalOrError(ctx context.Context) (auth.Principal, error) {
	p, ok := Principal(ctx)
	if !ok {
		return auth.Principal{}, ErrNoPrincipal
	}
	return p, nil
}
