package httpx

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tabtodo/pkg/jwtx"
	"github.com/aussiebroadwan/tabtodo/pkg/slogx"
)

// AuthnMiddleware authenticates every request whose path is not public in
// cfg, using verify to turn the raw token into the caller it identifies.
// The token is taken from an Authorization: Bearer header, falling back to
// the session cookie. On success the identity is stored in the request
// context, see IdentityFrom. Every failure gets the same 401; the reason is
// only logged.
//
// If T implements slog.LogValuer the request logger is enriched with it.
func AuthnMiddleware[T any](cfg SecurityConfig, verify func(raw string) (T, error)) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || cfg.IsPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, source := extractToken(r, cfg.CookieName())
			if raw == "" {
				writeBearerError(w, "")
				log.Info("request rejected", slog.String("reason", "no_credential"))
				return
			}

			id, err := verify(raw)
			if err != nil {
				writeBearerError(w, "invalid_token")
				log.Warn("request rejected",
					slog.String("reason", jwtx.Reason(err)),
					slog.String("token_source", source),
				)
				return
			}

			ctx = WithIdentity(ctx, id)
			if lv, ok := any(id).(slog.LogValuer); ok {
				ctx = slogx.With(ctx, slog.Any("auth", lv))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken prefers the Authorization header. A header with another
// scheme is treated as no credential at all rather than falling through to
// the cookie.
func extractToken(r *http.Request, cookieName string) (string, string) {
	if authz := r.Header.Get("Authorization"); authz != "" {
		scheme, token, ok := strings.Cut(authz, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", ""
		}
		return strings.TrimSpace(token), "header"
	}
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value, "cookie"
	}
	return "", ""
}

// RFC 6750-compliant error response for bearer auth. errCode is empty when
// the request carried no credentials.
func writeBearerError(w http.ResponseWriter, errCode string) {
	challenge := `Bearer realm="tabtodo"`
	if errCode != "" {
		challenge += `, error="` + errCode + `"`
	}
	w.Header().Set("WWW-Authenticate", challenge)
	WriteError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
}
