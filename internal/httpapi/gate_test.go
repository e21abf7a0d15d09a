package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"storefront.dev/internal/auth"
)

func TestGateRejectsAnonymous(t *testing.T) {
	env := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rr := httptest.NewRecorder()
	env.api.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestGateAcceptsAuthCookie(t *testing.T) {
	env := newTestAPI(t)
	env.seedUser(t, "admin@example.com", "admin-password", nil) // first user is the administrator
	_, token := env.seedUser(t, "user@example.com", "user-password", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/users/1", nil)
	req.AddCookie(authCookie(token))
	rr := httptest.NewRecorder()
	env.api.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestGateAcceptsBearerHeader(t *testing.T) {
	env := newTestAPI(t)
	env.seedUser(t, "admin@example.com", "admin-password", nil)
	_, token := env.seedUser(t, "user@example.com", "user-password", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/users/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	env.api.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestGateDeniesMissingPermissionWithReason(t *testing.T) {
	env := newTestAPI(t)
	env.seedUser(t, "admin@example.com", "admin-password", nil)
	role, err := env.api.roles.Create(context.Background(), "viewers", []string{auth.PermProductsView})
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	_, token := env.seedUser(t, "viewer@example.com", "viewer-password", []int64{role.ID})

	req := httptest.NewRequest(http.MethodDelete, "/api/roles/1", nil)
	req.AddCookie(authCookie(token))
	rr := httptest.NewRecorder()
	env.api.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	reason, _ := body["error"].(string)
	if reason == "" {
		t.Fatal("expected deny reason in the body")
	}
}

func TestGateAdminBypassesPermissionCheck(t *testing.T) {
	env := newTestAPI(t)
	_, token := env.seedUser(t, "admin@example.com", "admin-password", nil)
	role, err := env.api.roles.Create(context.Background(), "temp", nil)
	if err != nil {
		t.Fatalf("create role: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/roles/"+strconv.FormatInt(role.ID, 10), nil)
	req.AddCookie(authCookie(token))
	rr := httptest.NewRecorder()
	env.api.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for administrator, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestGateSilentRefreshRewritesCookies(t *testing.T) {
	env := newTestAPI(t)
	env.seedUser(t, "admin@example.com", "admin-password", nil)
	user, _ := env.seedUser(t, "user@example.com", "user-password", nil)

	session, err := env.sessions.CreateSession(context.Background(), user)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	// No auth cookie at all: only the refresh token.
	req := httptest.NewRequest(http.MethodGet, "/api/users/1", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: session.RefreshToken})
	rr := httptest.NewRecorder()
	env.api.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 via silent refresh, got %d: %s", rr.Code, rr.Body.String())
	}

	var gotAuth, gotRefresh string
	for _, c := range rr.Result().Cookies() {
		switch c.Name {
		case authCookieName:
			gotAuth = c.Value
		case refreshCookieName:
			gotRefresh = c.Value
		}
	}
	if gotAuth == "" {
		t.Fatal("expected a fresh auth cookie")
	}
	if gotRefresh == "" || gotRefresh == session.RefreshToken {
		t.Fatal("expected a rotated refresh cookie")
	}
	// The old refresh token must be dead now.
	if env.sessions.ValidateRefreshToken(context.Background(), session.RefreshToken, "") {
		t.Fatal("old refresh token must be invalid after rotation")
	}
}

func TestGateSilentRefreshSlidesCookieExpiry(t *testing.T) {
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	current := base
	env := newTestAPIWithClock(t, func() time.Time { return current })
	env.seedUser(t, "admin@example.com", "admin-password", nil)
	user, _ := env.seedUser(t, "user@example.com", "user-password", nil)

	session, err := env.sessions.CreateSession(context.Background(), user)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	// Halfway through the session lifetime the rotation must slide the
	// cookie expiry forward, not re-stamp the pre-rotation one.
	current = base.Add(12 * time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/api/users/1", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: session.RefreshToken})
	rr := httptest.NewRecorder()
	env.api.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 via silent refresh, got %d: %s", rr.Code, rr.Body.String())
	}

	var refreshCookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == refreshCookieName {
			refreshCookie = c
		}
	}
	if refreshCookie == nil || refreshCookie.Value == session.RefreshToken {
		t.Fatal("expected a rotated refresh cookie")
	}
	want := current.Add(24 * time.Hour)
	if !refreshCookie.Expires.Equal(want) {
		t.Fatalf("refresh cookie must carry the post-rotation expiry: got %v, want %v", refreshCookie.Expires, want)
	}
}

func TestGateSilentRefreshFailsWithBadToken(t *testing.T) {
	env := newTestAPI(t)
	env.seedUser(t, "admin@example.com", "admin-password", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/users/0", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: "never-issued"})
	rr := httptest.NewRecorder()
	env.api.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
