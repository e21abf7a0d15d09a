package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"storefront.dev/internal/ids"
)

// Layout of the timestamp suffixed to refresh tokens. The suffix aids
// debugging and log correlation only; it carries no entropy.
const refreshTimestampLayout = "20060102150405"

// SessionManager issues and rotates refresh tokens, mints access tokens and
// verifies passwords. It holds no per-request state and is safe for
// concurrent use.
type SessionManager struct {
	sessions   SessionStore
	users      UserStore
	codec      *TokenCodec
	refreshTTL time.Duration
	now        func() time.Time
}

// SessionOption configures SessionManager behavior.
type SessionOption func(*SessionManager)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) SessionOption {
	return func(m *SessionManager) {
		if fn != nil {
			m.now = fn
		}
	}
}

// NewSessionManager constructs a manager. refreshTTL is the absolute session
// lifetime measured from the last rotation.
func NewSessionManager(sessions SessionStore, users UserStore, codec *TokenCodec, refreshTTL time.Duration, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		sessions:   sessions,
		users:      users,
		codec:      codec,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *SessionManager) generateRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf) + "." + m.now().UTC().Format(refreshTimestampLayout), nil
}

// CreateSession opens a new session for user with a fresh refresh token and
// expiry now+TTL.
func (m *SessionManager) CreateSession(ctx context.Context, user *User) (*Session, error) {
	token, err := m.generateRefreshToken()
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:           ids.New(),
		UserID:       user.ID,
		RefreshToken: token,
		ExpiresAt:    m.now().UTC().Add(m.refreshTTL),
	}
	if err := m.sessions.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ValidateRefreshToken reports whether token belongs to a live session. A
// non-empty sessionID additionally requires the session to match, which
// blocks replaying a token against another session. Lookup failures fail
// closed.
func (m *SessionManager) ValidateRefreshToken(ctx context.Context, token, sessionID string) bool {
	s, err := m.sessions.FindByToken(ctx, token)
	if err != nil {
		return false
	}
	if sessionID != "" && s.ID != sessionID {
		return false
	}
	return s.ExpiresAt.After(m.now().UTC())
}

// SessionForRefreshToken resolves a live session from its refresh token. An
// expired session is reported as ErrUnauthorized.
func (m *SessionManager) SessionForRefreshToken(ctx context.Context, token string) (*Session, error) {
	s, err := m.sessions.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !s.ExpiresAt.After(m.now().UTC()) {
		return nil, ErrUnauthorized
	}
	return s, nil
}

// RotateRefreshToken exchanges oldToken for a fresh one in a single
// compare-and-set; the old token is invalid the moment this returns. A stale
// or unknown token yields ErrRotationFailed and the caller must force
// re-login. Rotation slides the session expiry to now+TTL, which is also
// returned so transports can stamp it on whatever carries the new token.
func (m *SessionManager) RotateRefreshToken(ctx context.Context, oldToken string) (string, time.Time, error) {
	newToken, err := m.generateRefreshToken()
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := m.now().UTC().Add(m.refreshTTL)
	if err := m.sessions.Rotate(ctx, oldToken, newToken, expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return newToken, expiresAt, nil
}

// IssueAccessToken loads the session and its owner and signs a claims-bearing
// access token. An unresolvable session or user yields ErrNotFound.
func (m *SessionManager) IssueAccessToken(ctx context.Context, sessionID string) (string, time.Time, error) {
	s, err := m.sessions.Find(ctx, sessionID)
	if err != nil {
		return "", time.Time{}, err
	}
	user, err := m.users.Find(ctx, s.UserID)
	if err != nil {
		return "", time.Time{}, err
	}
	return m.codec.Issue(user, s.ID)
}

// ParseAccessToken validates a presented access token.
func (m *SessionManager) ParseAccessToken(token string) (*Claims, error) {
	return m.codec.Parse(token)
}

// VerifyPassword resolves the user by normalized email and checks the
// password. Every failure collapses to false so callers cannot distinguish an
// unknown address from a wrong password.
func (m *SessionManager) VerifyPassword(ctx context.Context, email, password string) bool {
	user, err := m.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(user.PasswordSalt)
	if err != nil {
		return false
	}
	return VerifyPassword(password, salt, user.PasswordHash)
}

// UserByEmail is a convenience lookup with the same normalization as
// VerifyPassword.
func (m *SessionManager) UserByEmail(ctx context.Context, email string) (*User, error) {
	return m.users.FindByEmail(ctx, NormalizeEmail(email))
}

// RecordLogin stamps the user's last-login time.
func (m *SessionManager) RecordLogin(ctx context.Context, userID int64) error {
	return m.users.RecordLogin(ctx, userID, m.now().UTC())
}

// TerminateUserSessions bulk-deletes every session owned by userID.
func (m *SessionManager) TerminateUserSessions(ctx context.Context, userID int64) (int64, error) {
	return m.sessions.DeleteByUser(ctx, userID)
}

// Sweep removes expired sessions. cmd/api runs it periodically; it is the
// store-side TTL mechanism.
func (m *SessionManager) Sweep(ctx context.Context) (int64, error) {
	return m.sessions.DeleteExpired(ctx, m.now().UTC())
}
