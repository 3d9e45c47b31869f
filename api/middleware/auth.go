package middleware

import (
	"net/http"
	"strings"

	"github.com/deorejayesh9663/UniTrade/api/responses"
	pkgauth "github.com/deorejayesh9663/UniTrade/pkg/auth"
	"github.com/deorejayesh9663/UniTrade/pkg/config"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
)

// Browsers cannot set headers on websocket handshakes, so upgrades may pass
// the token as a query parameter instead.
const accessTokenQueryParam = "access_token"

// Auth validates a bearer token and seeds the request context with the caller.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			principal := claims.Principal()

			ctx := WithPrincipal(r.Context(), principal)
			if logg != nil {
				ctx = logg.WithUserID(ctx, principal.UserID.String())
				ctx = logg.WithActorRole(ctx, string(principal.Role))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" && isWebsocketUpgrade(r) {
		return strings.TrimSpace(r.URL.Query().Get(accessTokenQueryParam))
	}
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}

func isWebsocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// OptionalAuth seeds the caller when a valid token is present and otherwise
// lets the request through anonymously.
func OptionalAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			principal := claims.Principal()
			ctx := WithPrincipal(r.Context(), principal)
			if logg != nil {
				ctx = logg.WithUserID(ctx, principal.UserID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
