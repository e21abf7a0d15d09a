package httpapi

import (
	"net/http"
	"strconv"

	"storefront.dev/internal/auth"
	"storefront.dev/internal/users"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin verifies credentials, opens a session and sets both cookies.
// Every credential failure answers the same 401 so the endpoint leaks nothing
// about which addresses exist.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()
	if !a.sessions.VerifyPassword(ctx, req.Email, req.Password) {
		writeError(w, r, http.StatusUnauthorized, "authentication failed")
		return
	}
	user, err := a.sessions.UserByEmail(ctx, req.Email)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "authentication failed")
		return
	}
	session, err := a.sessions.CreateSession(ctx, user)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	accessToken, expiresAt, err := a.sessions.IssueAccessToken(ctx, session.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = a.sessions.RecordLogin(ctx, user.ID)
	setSessionCookies(w, accessToken, expiresAt, session.RefreshToken, session.ExpiresAt)
	a.audit(ctx, "session.login", map[string]any{
		"user_id":    strconv.FormatInt(user.ID, 10),
		"session_id": session.ID,
	})
	writeJSON(w, http.StatusOK, user)
}

// handleRefresh is the explicit refresh endpoint for clients that do not rely
// on the silent path. Same exchange, same cookies.
func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	claims, ok := a.silentRefresh(w, r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":    claims.UserID,
		"session_id": claims.SessionID,
		"expires_at": claims.ExpiresAt,
	})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req users.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.users.Register(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	a.audit(r.Context(), "session.register", map[string]any{
		"user_id": strconv.FormatInt(user.ID, 10),
		"email":   user.Email,
	})
	writeJSON(w, http.StatusCreated, user)
}

// handleLogout terminates every session of the authenticated user and clears
// the cookies.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication failed")
		return
	}
	userID, err := strconv.ParseInt(principal.UserID, 10, 64)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "authentication failed")
		return
	}
	if _, err := a.sessions.TerminateUserSessions(ctx, userID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	clearSessionCookies(w)
	a.audit(ctx, "session.logout", map[string]any{"user_id": principal.UserID})
	w.WriteHeader(http.StatusNoContent)
}
