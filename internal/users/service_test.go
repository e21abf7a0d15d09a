package users

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront.dev/internal/auth"
)

type memUserStore struct {
	created      []*auth.User
	assigns      map[int64][]int64
	removes      map[int64][]int64
	strippedRole int64
}

func newMemUserStore() *memUserStore {
	return &memUserStore{assigns: map[int64][]int64{}, removes: map[int64][]int64{}, strippedRole: -1}
}

func (m *memUserStore) Create(ctx context.Context, u *auth.User) error {
	for _, existing := range m.created {
		if existing.Email == u.Email {
			return auth.ErrAlreadyExists
		}
	}
	u.ID = int64(len(m.created) + 1)
	m.created = append(m.created, u)
	return nil
}

func (m *memUserStore) Find(ctx context.Context, id int64) (*auth.User, error) {
	for _, u := range m.created {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m *memUserStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	for _, u := range m.created {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m *memUserStore) AssignRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	m.assigns[userID] = append(m.assigns[userID], roleIDs...)
	return nil
}

func (m *memUserStore) RemoveRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	m.removes[userID] = append(m.removes[userID], roleIDs...)
	return nil
}

func (m *memUserStore) RemoveRoleFromAllUsers(ctx context.Context, roleID int64) (int64, error) {
	m.strippedRole = roleID
	return 3, nil
}

func (m *memUserStore) RecordLogin(ctx context.Context, userID int64, at time.Time) error {
	return nil
}

func TestRegisterHashesAndNormalizes(t *testing.T) {
	store := newMemUserStore()
	svc := New(store)

	u, err := svc.Register(context.Background(), RegisterRequest{
		Email:           "  New.User@Example.COM ",
		Password:        "long-enough-password",
		ConfirmPassword: "long-enough-password",
		FirstName:       " Ada ",
		LastName:        "Lovelace",
	})
	require.NoError(t, err)
	assert.Equal(t, "new.user@example.com", u.Email)
	assert.Equal(t, auth.UserTypeUser, u.Type)
	assert.Equal(t, "Ada", u.FirstName)
	assert.NotEmpty(t, u.PasswordHash)
	assert.NotEqual(t, "long-enough-password", u.PasswordHash)

	salt, err := base64.StdEncoding.DecodeString(u.PasswordSalt)
	require.NoError(t, err)
	require.Len(t, salt, 16)
	assert.True(t, auth.VerifyPassword("long-enough-password", salt, u.PasswordHash))
}

func TestRegisterValidation(t *testing.T) {
	svc := New(newMemUserStore())
	ctx := context.Background()

	cases := map[string]RegisterRequest{
		"missing email":    {Password: "long-enough-password", ConfirmPassword: "long-enough-password"},
		"bad email":        {Email: "not an email", Password: "long-enough-password", ConfirmPassword: "long-enough-password"},
		"short password":   {Email: "a@b.com", Password: "short", ConfirmPassword: "short"},
		"confirm mismatch": {Email: "a@b.com", Password: "long-enough-password", ConfirmPassword: "different-password"},
	}
	for name, req := range cases {
		_, err := svc.Register(ctx, req)
		assert.ErrorIs(t, err, auth.ErrInvalidInput, name)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := New(newMemUserStore())
	ctx := context.Background()
	req := RegisterRequest{
		Email:           "dup@example.com",
		Password:        "long-enough-password",
		ConfirmPassword: "long-enough-password",
	}
	_, err := svc.Register(ctx, req)
	require.NoError(t, err)
	_, err = svc.Register(ctx, req)
	assert.ErrorIs(t, err, auth.ErrAlreadyExists)
}

func TestCreateRejectsAdminRole(t *testing.T) {
	svc := New(newMemUserStore())
	_, err := svc.Create(context.Background(), CreateRequest{
		Email:    "a@b.com",
		Password: "long-enough-password",
		RoleIDs:  []int64{auth.AdminRoleID},
	})
	assert.ErrorIs(t, err, auth.ErrInvalidInput)
}

func TestAssignRolesGuards(t *testing.T) {
	store := newMemUserStore()
	svc := New(store)
	ctx := context.Background()

	assert.ErrorIs(t, svc.AssignRoles(ctx, 1, nil), auth.ErrInvalidInput)
	assert.ErrorIs(t, svc.AssignRoles(ctx, 1, []int64{2, auth.AdminRoleID}), auth.ErrInvalidInput)
	assert.Empty(t, store.assigns[1], "guarded call must not reach the store")

	require.NoError(t, svc.AssignRoles(ctx, 1, []int64{2, 3}))
	assert.Equal(t, []int64{2, 3}, store.assigns[1])
}

func TestRemoveRolesGuards(t *testing.T) {
	store := newMemUserStore()
	svc := New(store)
	ctx := context.Background()

	assert.ErrorIs(t, svc.RemoveRoles(ctx, 1, []int64{auth.AdminRoleID}), auth.ErrInvalidInput)
	require.NoError(t, svc.RemoveRoles(ctx, 1, []int64{4}))
	assert.Equal(t, []int64{4}, store.removes[1])
}

func TestRemoveRoleFromAllUsersGuards(t *testing.T) {
	store := newMemUserStore()
	svc := New(store)
	ctx := context.Background()

	_, err := svc.RemoveRoleFromAllUsers(ctx, auth.AdminRoleID)
	assert.ErrorIs(t, err, auth.ErrInvalidInput)
	assert.Equal(t, int64(-1), store.strippedRole, "guarded call must not reach the store")

	removed, err := svc.RemoveRoleFromAllUsers(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	assert.Equal(t, int64(5), store.strippedRole)
}
