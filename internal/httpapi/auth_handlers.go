package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"clinicore.org/internal/auth"
	"clinicore.org/internal/obs"
)

// cookieBudget is the soft limit a browser cookie should stay under; the
// login response reports the encoded access-token size against it.
const cookieBudget = 4096

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsClinician bool   `json:"is_clinician"`
	Roles       []int  `json:"roles"`
	Specialties []int  `json:"specialties,omitempty"`
}

func toUserResponse(p auth.Principal) userResponse {
	return userResponse{
		ID:          p.ID,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		IsClinician: p.IsClinician,
		Roles:       p.Roles,
		Specialties: p.Specialties,
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	session, principal, err := a.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			obs.ObserveLogin("invalid")
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, auth.ErrUnavailable):
			obs.ObserveLogin("unavailable")
			writeError(w, http.StatusServiceUnavailable, "identity store unavailable")
		default:
			obs.ObserveLogin("error")
			writeError(w, http.StatusInternalServerError, "login failed")
		}
		return
	}
	obs.ObserveLogin("ok")

	a.setCookie(w, accessCookie, session.AccessToken, a.opts.AccessTTL)
	a.setCookie(w, refreshCookie, session.RefreshToken, auth.RefreshTTL)

	writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserResponse(principal),
		"debug": map[string]any{
			"token_size":      len(session.AccessToken),
			"max_recommended": cookieBudget,
		},
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	c, err := r.Cookie(refreshCookie)
	if err != nil || strings.TrimSpace(c.Value) == "" {
		obs.ObserveTokenVerification("refresh", "invalid")
		writeError(w, http.StatusUnauthorized, "missing refresh token")
		return
	}

	accessToken, expiresAt, err := a.auth.Refresh(r.Context(), c.Value)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			obs.ObserveTokenVerification("refresh", "invalid")
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
		case errors.Is(err, auth.ErrUnavailable):
			writeError(w, http.StatusServiceUnavailable, "identity store unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "refresh failed")
		}
		return
	}
	obs.ObserveTokenVerification("refresh", "ok")

	a.setCookie(w, accessCookie, accessToken, a.opts.AccessTTL)

	writeJSON(w, http.StatusOK, map[string]any{
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	a.auth.Logout(r.Context(), principal.ID)

	a.clearCookie(w, accessCookie)
	a.clearCookie(w, refreshCookie)

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	resp := map[string]any{"user": toUserResponse(principal)}
	if scope, ok := auth.ScopeFromContext(r.Context()); ok {
		resp["scope"] = map[string]any{
			"unrestricted":       scope.Unrestricted,
			"specialty_ids":      scope.SpecialtyIDs,
			"owner_clinician_id": scope.OwnerClinicianID,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   a.opts.Production,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.opts.Production,
		SameSite: http.SameSiteLaxMode,
	})
}
