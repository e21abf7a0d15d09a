package httpapi

import (
	"net/http"
	"strings"
	"time"

	"storefront.dev/internal/auth"
)

const (
	authCookieName    = "auth"
	refreshCookieName = "refresh"
	refreshCookiePath = "/api/session/refresh"
	bearerPrefix      = "Bearer "
)

// protect wraps next with authentication and, when perm is non-empty, a
// permission check. An expired or missing access token is silently recovered
// through the refresh cookie: the session is re-validated, the refresh token
// rotated and both cookies rewritten before the request proceeds.
func (a *API) protect(perm string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := a.authenticate(w, r)
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "authentication failed")
			return
		}
		principal := auth.PrincipalFromClaims(claims)
		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		r = r.WithContext(ctx)

		if perm != "" {
			decision := a.evaluator.Authorize(ctx, principal.Roles, perm)
			if !decision.Allowed {
				writeError(w, r, http.StatusForbidden, decision.Reason)
				return
			}
		}
		next(w, r)
	}
}

// authenticate resolves claims from the auth cookie or the Authorization
// header, falling back to a silent refresh. It writes nothing on success.
func (a *API) authenticate(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	if token := accessTokenFromRequest(r); token != "" {
		if claims, err := a.sessions.ParseAccessToken(token); err == nil {
			return claims, true
		}
	}
	return a.silentRefresh(w, r)
}

// silentRefresh exchanges a valid refresh cookie for a new token pair and
// rewrites both cookies. Any failure along the way denies the request;
// rotation failure in particular means the token was already used and the
// client must log in again.
func (a *API) silentRefresh(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	ctx := r.Context()
	session, err := a.sessions.SessionForRefreshToken(ctx, cookie.Value)
	if err != nil {
		return nil, false
	}
	newToken, refreshExpiry, err := a.sessions.RotateRefreshToken(ctx, cookie.Value)
	if err != nil {
		clearSessionCookies(w)
		return nil, false
	}
	accessToken, expiresAt, err := a.sessions.IssueAccessToken(ctx, session.ID)
	if err != nil {
		return nil, false
	}
	claims, err := a.sessions.ParseAccessToken(accessToken)
	if err != nil {
		return nil, false
	}
	setSessionCookies(w, accessToken, expiresAt, newToken, refreshExpiry)
	a.audit(ctx, "session.refresh", map[string]any{"session_id": session.ID})
	return claims, true
}

func accessTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(authCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	return ""
}

func setSessionCookies(w http.ResponseWriter, accessToken string, accessExpiry time.Time, refreshToken string, refreshExpiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    accessToken,
		Path:     "/",
		Expires:  accessExpiry,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    refreshToken,
		Path:     refreshCookiePath,
		Expires:  refreshExpiry,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}
