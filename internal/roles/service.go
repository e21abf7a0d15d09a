// Package roles manages named permission sets.
package roles

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"storefront.dev/internal/auth"
)

const maxNameLength = 64

// Service validates role operations. The administrator role (id 0) is
// immutable and undeletable through this service.
type Service struct {
	roles auth.RoleStore
	users auth.UserStore
}

func New(roles auth.RoleStore, users auth.UserStore) *Service {
	return &Service{roles: roles, users: users}
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: role name is required", auth.ErrInvalidInput)
	}
	if len(name) > maxNameLength {
		return "", fmt.Errorf("%w: role name exceeds %d characters", auth.ErrInvalidInput, maxNameLength)
	}
	return name, nil
}

// dedupe keeps the first occurrence of each permission, trimmed, dropping
// empties.
func dedupe(perms []string) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" || slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Create adds a role with a deduplicated permission set. The store forces the
// first role ever created to the administrator role.
func (s *Service) Create(ctx context.Context, name string, permissions []string) (*auth.Role, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	role := &auth.Role{Name: name, Permissions: dedupe(permissions)}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*auth.Role, error) {
	return s.roles.Find(ctx, id)
}

// Update replaces the role's name and permissions. Role 0 is rejected.
func (s *Service) Update(ctx context.Context, id int64, name string, permissions []string) (*auth.Role, error) {
	if auth.IsAdminRole(id) {
		return nil, fmt.Errorf("%w: the administrator role cannot be modified", auth.ErrInvalidInput)
	}
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	return s.roles.Update(ctx, &auth.Role{ID: id, Name: name, Permissions: dedupe(permissions)})
}

// Delete removes the role after stripping it from every user. Role 0 is
// rejected unconditionally.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if auth.IsAdminRole(id) {
		return fmt.Errorf("%w: the administrator role cannot be deleted", auth.ErrInvalidInput)
	}
	if _, err := s.users.RemoveRoleFromAllUsers(ctx, id); err != nil {
		return err
	}
	return s.roles.Delete(ctx, id)
}
