package auth

import (
	"strings"
	"time"
)

// Reserved identifiers. The first user and the first role ever created in a
// fresh deployment both receive id 0 and together form the administrator
// account. All sentinel checks go through IsAdminRole; nothing else should
// compare against these constants directly.
const (
	AdminUserID int64 = 0
	AdminRoleID int64 = 0
)

// Counter keys used by the id allocator.
const (
	CounterHighestUserID = "highest_user_id"
	CounterHighestRoleID = "highest_role_id"
)

// UserType distinguishes ordinary accounts from the administrator.
type UserType string

const (
	UserTypeUser  UserType = "user"
	UserTypeAdmin UserType = "admin"
)

// Address is a postal address attached to a user profile.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Street    string `json:"street"`
	City      string `json:"city"`
	ZipCode   string `json:"zip_code"`
	State     string `json:"state"`
	Country   string `json:"country"`
}

// User is a registered account. RoleIDs has set semantics; duplicates are
// never stored. The raw password is never persisted, only the PBKDF2 digest
// and its per-user salt (both base64-encoded).
type User struct {
	ID            int64     `json:"id"`
	Type          UserType  `json:"type"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	PasswordHash  string    `json:"-"`
	PasswordSalt  string    `json:"-"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Addresses     []Address `json:"addresses,omitempty"`
	RoleIDs       []int64   `json:"role_ids"`
	RegisteredAt  time.Time `json:"registered_at"`
	LastLogin     time.Time `json:"last_login,omitempty"`
}

// Role groups permission strings. Role id 0 always exists, is named
// "administrator" and carries the is-admin permission; it can never be
// deleted or reassigned.
type Role struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// Session is a refresh-token holder. At most one refresh token is valid per
// session; rotation replaces the token atomically and slides the expiry.
type Session struct {
	ID           string    `json:"id"`
	UserID       int64     `json:"user_id"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// IsAdminRole reports whether id is the administrator sentinel.
func IsAdminRole(id int64) bool {
	return id == AdminRoleID
}

// NormalizeEmail lower-cases and trims an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
