package auth

import (
	"context"
	"time"
)

// UserStore manages user records. Create allocates the numeric id inside the
// same transaction as the insert, so a failed insert (duplicate email) also
// rolls back the counter increment.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	AssignRoles(ctx context.Context, userID int64, roleIDs []int64) error
	RemoveRoles(ctx context.Context, userID int64, roleIDs []int64) error
	RemoveRoleFromAllUsers(ctx context.Context, roleID int64) (int64, error)
	RecordLogin(ctx context.Context, userID int64, at time.Time) error
}

// RoleStore manages role records and their permission sets.
type RoleStore interface {
	Create(ctx context.Context, role *Role) error
	Find(ctx context.Context, id int64) (*Role, error)
	Update(ctx context.Context, role *Role) (*Role, error)
	Delete(ctx context.Context, id int64) error
}

// SessionStore manages refresh-token sessions. Rotate is a compare-and-set on
// the old token: zero matched rows must surface as ErrRotationFailed so the
// caller can force re-authentication.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	Find(ctx context.Context, id string) (*Session, error)
	FindByToken(ctx context.Context, refreshToken string) (*Session, error)
	Rotate(ctx context.Context, oldToken, newToken string, expiresAt time.Time) error
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
