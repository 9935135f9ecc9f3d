package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func cookieByName(t *testing.T, rr *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginSetsSessionCookies(t *testing.T) {
	api, _ := newTestAPI(t)
	rr := doLogin(t, api.Handler(), `{"username":"doc1","password":"validpass"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	access := cookieByName(t, rr, accessCookie)
	refresh := cookieByName(t, rr, refreshCookie)
	if access == nil || refresh == nil {
		t.Fatal("expected both session cookies")
	}
	for _, c := range []*http.Cookie{access, refresh} {
		if !c.HttpOnly {
			t.Fatalf("cookie %s must be HttpOnly", c.Name)
		}
		if c.SameSite != http.SameSiteLaxMode {
			t.Fatalf("cookie %s must be SameSite=Lax", c.Name)
		}
		if c.Secure {
			t.Fatalf("cookie %s must not be Secure outside production", c.Name)
		}
	}

	var body struct {
		User struct {
			ID          int64 `json:"id"`
			IsClinician bool  `json:"is_clinician"`
			Specialties []int `json:"specialties"`
		} `json:"user"`
		Debug struct {
			TokenSize      int `json:"token_size"`
			MaxRecommended int `json:"max_recommended"`
		} `json:"debug"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.User.ID != 10 || !body.User.IsClinician {
		t.Fatalf("unexpected user payload: %+v", body.User)
	}
	if len(body.User.Specialties) != 2 {
		t.Fatalf("expected specialties in payload: %+v", body.User)
	}
	if body.Debug.TokenSize != len(access.Value) {
		t.Fatalf("token_size %d != cookie size %d", body.Debug.TokenSize, len(access.Value))
	}
	if body.Debug.MaxRecommended != cookieBudget {
		t.Fatalf("unexpected budget %d", body.Debug.MaxRecommended)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()

	rr := doLogin(t, h, `{"username":"doc1","password":"wrongpass"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401, got %d", rr.Code)
	}
	rr = doLogin(t, h, `{"username":"nobody","password":"whatever"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user: expected 401, got %d", rr.Code)
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatal("failed login must not set cookies")
	}
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()

	for _, body := range []string{``, `not-json`, `{"username":"doc1"}`, `{"username":"doc1","password":"x","extra":1}`} {
		rr := doLogin(t, h, body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rr.Code)
		}
	}
}

func TestLoginRequiresPost(t *testing.T) {
	api, _ := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/login", nil)
	rr := httptest.NewRecorder()
	api.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
	if rr.Header().Get("Allow") != http.MethodPost {
		t.Fatalf("expected Allow header, got %q", rr.Header().Get("Allow"))
	}
}

func TestRefreshIssuesNewAccessCookie(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()

	login := doLogin(t, h, `{"username":"doc1","password":"validpass"}`)
	refresh := cookieByName(t, login, refreshCookie)
	if refresh == nil {
		t.Fatal("login did not set a refresh cookie")
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", nil)
	req.AddCookie(refresh)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	access := cookieByName(t, rr, accessCookie)
	if access == nil || access.Value == "" {
		t.Fatal("expected a fresh access cookie")
	}
	var body struct {
		ExpiresAt string `json:"expires_at"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.ExpiresAt == "" {
		t.Fatal("expected expires_at in response")
	}
}

func TestRefreshWithoutCookieIsUnauthorized(t *testing.T) {
	api, _ := newTestAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", nil)
	rr := httptest.NewRecorder()
	api.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRefreshRejectsAccessCookieValue(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()

	login := doLogin(t, h, `{"username":"doc1","password":"validpass"}`)
	access := cookieByName(t, login, accessCookie)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookie, Value: access.Value})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for access token in refresh slot, got %d", rr.Code)
	}
}

func TestLogoutClearsCookies(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()

	login := doLogin(t, h, `{"username":"doc1","password":"validpass"}`)
	access := cookieByName(t, login, accessCookie)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
	req.AddCookie(access)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	for _, name := range []string{accessCookie, refreshCookie} {
		c := cookieByName(t, rr, name)
		if c == nil || c.MaxAge >= 0 || c.Value != "" {
			t.Fatalf("cookie %s not cleared: %+v", name, c)
		}
	}
}

func TestMeReturnsPrincipalAndScope(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()

	login := doLogin(t, h, `{"username":"doc1","password":"validpass"}`)
	access := cookieByName(t, login, accessCookie)

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.AddCookie(access)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body struct {
		User struct {
			ID int64 `json:"id"`
		} `json:"user"`
		Scope struct {
			Unrestricted     bool  `json:"unrestricted"`
			SpecialtyIDs     []int `json:"specialty_ids"`
			OwnerClinicianID int64 `json:"owner_clinician_id"`
		} `json:"scope"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.User.ID != 10 {
		t.Fatalf("unexpected user: %+v", body.User)
	}
	if body.Scope.Unrestricted {
		t.Fatal("plain clinician must not be unrestricted")
	}
	if len(body.Scope.SpecialtyIDs) != 2 || body.Scope.OwnerClinicianID != 0 {
		t.Fatalf("unexpected scope: %+v", body.Scope)
	}
}
