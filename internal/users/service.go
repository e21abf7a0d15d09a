// Package users implements account registration and role assignment on top of
// the user store.
package users

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"storefront.dev/internal/auth"
)

const minPasswordLength = 8

// RegisterRequest is the self-service signup payload. The raw password never
// leaves this package.
type RegisterRequest struct {
	Email           string         `json:"email"`
	Password        string         `json:"password"`
	ConfirmPassword string         `json:"confirm_password"`
	FirstName       string         `json:"first_name"`
	LastName        string         `json:"last_name"`
	Addresses       []auth.Address `json:"addresses"`
}

// CreateRequest is the admin-side user creation payload.
type CreateRequest struct {
	Email     string         `json:"email"`
	Password  string         `json:"password"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Addresses []auth.Address `json:"addresses"`
	RoleIDs   []int64        `json:"role_ids"`
}

// Service validates user operations and enforces the administrator role
// guard before touching the store.
type Service struct {
	users auth.UserStore
}

func New(users auth.UserStore) *Service {
	return &Service{users: users}
}

func validateEmail(email string) (string, error) {
	email = auth.NormalizeEmail(email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", auth.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: invalid email address", auth.ErrInvalidInput)
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", auth.ErrInvalidInput, minPasswordLength)
	}
	return nil
}

func hashNewPassword(password string) (digest, saltB64 string, err error) {
	salt, err := auth.NewSalt()
	if err != nil {
		return "", "", err
	}
	digest, err = auth.HashPassword(password, salt)
	if err != nil {
		return "", "", err
	}
	return digest, base64.StdEncoding.EncodeToString(salt), nil
}

// Register creates an account from a signup request. Passwords must match
// their confirmation and are hashed with a fresh per-user salt.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*auth.User, error) {
	email, err := validateEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	if req.Password != req.ConfirmPassword {
		return nil, fmt.Errorf("%w: passwords do not match", auth.ErrInvalidInput)
	}
	digest, salt, err := hashNewPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := &auth.User{
		Type:         auth.UserTypeUser,
		Email:        email,
		PasswordHash: digest,
		PasswordSalt: salt,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Addresses:    req.Addresses,
		RegisteredAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Create adds a user on behalf of an administrator, optionally with an
// initial role set. Role 0 cannot be granted this way.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*auth.User, error) {
	email, err := validateEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	for _, roleID := range req.RoleIDs {
		if auth.IsAdminRole(roleID) {
			return nil, fmt.Errorf("%w: the administrator role cannot be granted", auth.ErrInvalidInput)
		}
	}
	digest, salt, err := hashNewPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := &auth.User{
		Type:         auth.UserTypeUser,
		Email:        email,
		PasswordHash: digest,
		PasswordSalt: salt,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Addresses:    req.Addresses,
		RoleIDs:      req.RoleIDs,
		RegisteredAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*auth.User, error) {
	return s.users.Find(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.users.FindByEmail(ctx, auth.NormalizeEmail(email))
}

// AssignRoles grants roles to a user with set semantics. The administrator
// role is never assignable through this path.
func (s *Service) AssignRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	if len(roleIDs) == 0 {
		return fmt.Errorf("%w: no roles given", auth.ErrInvalidInput)
	}
	for _, roleID := range roleIDs {
		if auth.IsAdminRole(roleID) {
			return fmt.Errorf("%w: the administrator role cannot be assigned", auth.ErrInvalidInput)
		}
	}
	return s.users.AssignRoles(ctx, userID, roleIDs)
}

// RemoveRoles revokes roles from a user. The administrator role is never
// removable through this path.
func (s *Service) RemoveRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	if len(roleIDs) == 0 {
		return fmt.Errorf("%w: no roles given", auth.ErrInvalidInput)
	}
	for _, roleID := range roleIDs {
		if auth.IsAdminRole(roleID) {
			return fmt.Errorf("%w: the administrator role cannot be removed", auth.ErrInvalidInput)
		}
	}
	return s.users.RemoveRoles(ctx, userID, roleIDs)
}

// RemoveRoleFromAllUsers strips a role from every user that holds it and
// returns the number of removed assignments. The role itself is untouched;
// the administrator role can never be stripped.
func (s *Service) RemoveRoleFromAllUsers(ctx context.Context, roleID int64) (int64, error) {
	if auth.IsAdminRole(roleID) {
		return 0, fmt.Errorf("%w: the administrator role cannot be stripped", auth.ErrInvalidInput)
	}
	return s.users.RemoveRoleFromAllUsers(ctx, roleID)
}
