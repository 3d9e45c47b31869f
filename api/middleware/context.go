package middleware

import (
	"context"

	pkgauth "github.com/deorejayesh9663/UniTrade/pkg/auth"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

// PrincipalFromContext returns the caller seeded by Auth, or the zero
// Principal for anonymous requests.
func PrincipalFromContext(ctx context.Context) pkgauth.Principal {
	if ctx == nil {
		return pkgauth.Principal{}
	}
	if p, ok := ctx.Value(ctxPrincipal).(pkgauth.Principal); ok {
		return p
	}
	return pkgauth.Principal{}
}

// WithPrincipal injects the caller into the context.
func WithPrincipal(ctx context.Context, principal pkgauth.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, principal)
}
