package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"clinicore.org/internal/auth"
	"clinicore.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "

	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/refresh",
	"/v1/info",
	"/metrics",
	"/healthz",
	"/readyz",
	"/",
}

// withAuth authenticates every non-public request and compiles the request's
// authorization scope. The principal is re-derived from the identity store on
// each request; the scope is computed once here and attached to the context,
// never written back onto the principal.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractAccessToken(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		principal, err := a.auth.Authenticate(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidToken):
				obs.ObserveTokenVerification("access", "invalid")
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, http.StatusUnauthorized, "invalid token")
			case errors.Is(err, auth.ErrUnavailable):
				writeError(w, http.StatusServiceUnavailable, "identity store unavailable")
			default:
				writeError(w, http.StatusInternalServerError, "authentication error")
			}
			return
		}
		obs.ObserveTokenVerification("access", "ok")

		scope, scopeErr := a.auth.CompileScope(r.Context(), principal)
		switch {
		case scopeErr != nil:
			// Fail closed: the request proceeds with an empty scope.
			obs.ObserveScopeCompilation("degraded")
			obs.LogEvent("scope_degraded", map[string]any{
				"principal_id": principal.ID,
				"error":        scopeErr.Error(),
			})
		case scope.Unrestricted:
			obs.ObserveScopeCompilation("unrestricted")
		case scope.Empty():
			obs.ObserveScopeCompilation("empty")
		default:
			obs.ObserveScopeCompilation("scoped")
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithScope(ctx, scope)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles guards a route with a role-membership check on top of
// withAuth.
func RequireRoles(roles ...int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if err := auth.Authorize(principal, auth.Requirements{Roles: roles}); err != nil {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireItemActions guards a route with item-action checks on top of
// withAuth.
func RequireItemActions(reqs ...auth.ItemRequirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if err := auth.Authorize(principal, auth.Requirements{ItemActions: reqs}); err != nil {
				writeError(w, http.StatusForbidden, "insufficient item grants")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractAccessToken prefers the session cookie and falls back to a bearer
// header for non-browser clients.
func extractAccessToken(r *http.Request) (string, error) {
	if c, err := r.Cookie(accessCookie); err == nil && strings.TrimSpace(c.Value) != "" {
		return strings.TrimSpace(c.Value), nil
	}
	return extractBearerToken(r.Header.Get(authHeader))
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", auth.ErrUnauthenticated
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", auth.ErrUnauthenticated
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", auth.ErrUnauthenticated
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
