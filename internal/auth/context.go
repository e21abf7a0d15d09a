package auth

import "context"

// Principal is the authenticated identity attached to a request context,
// synthesized from validated access-token claims.
type Principal struct {
	UserID    string
	SessionID string
	Email     string
	Roles     []string
}

// PrincipalFromClaims builds a principal from validated claims.
func PrincipalFromClaims(c *Claims) Principal {
	roles := make([]string, len(c.Roles))
	copy(roles, c.Roles)
	return Principal{
		UserID:    c.UserID,
		SessionID: c.SessionID,
		Email:     c.Email,
		Roles:     roles,
	}
}

type ctxKey string

const principalKey ctxKey = "auth_principal"

// ContextWithPrincipal stores the principal in the context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// UserIDFromContext returns the authenticated user id as a decimal string.
func UserIDFromContext(ctx context.Context) (string, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.UserID == "" {
		return "", false
	}
	return p.UserID, true
}
