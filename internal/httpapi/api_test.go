package httpapi

import (
	"context"
	"encoding/base64"
	"net/http"
	"testing"
	"time"

	"storefront.dev/internal/auth"
	"storefront.dev/internal/products"
	"storefront.dev/internal/roles"
	"storefront.dev/internal/users"
)

// In-memory stores backing the full API under httptest.

type memSessions struct {
	byToken map[string]*auth.Session
	byID    map[string]*auth.Session
}

func newMemSessions() *memSessions {
	return &memSessions{byToken: map[string]*auth.Session{}, byID: map[string]*auth.Session{}}
}

func (m *memSessions) Create(ctx context.Context, s *auth.Session) error {
	cp := *s
	m.byToken[s.RefreshToken] = &cp
	m.byID[s.ID] = &cp
	return nil
}

func (m *memSessions) Find(ctx context.Context, id string) (*auth.Session, error) {
	s, ok := m.byID[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) FindByToken(ctx context.Context, token string) (*auth.Session, error) {
	s, ok := m.byToken[token]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) Rotate(ctx context.Context, oldToken, newToken string, expiresAt time.Time) error {
	s, ok := m.byToken[oldToken]
	if !ok {
		return auth.ErrRotationFailed
	}
	delete(m.byToken, oldToken)
	s.RefreshToken = newToken
	s.ExpiresAt = expiresAt
	m.byToken[newToken] = s
	return nil
}

func (m *memSessions) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	for token, s := range m.byToken {
		if s.UserID == userID {
			delete(m.byToken, token)
			delete(m.byID, s.ID)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

type memUsers struct {
	seq   int64
	users map[int64]*auth.User
	roles *memRoles
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[int64]*auth.User{}}
}

func (m *memUsers) Create(ctx context.Context, u *auth.User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return auth.ErrAlreadyExists
		}
	}
	u.ID = m.seq
	if m.seq == 0 {
		u.Type = auth.UserTypeAdmin
		u.RoleIDs = []int64{auth.AdminRoleID}
		if m.roles != nil {
			m.roles.seedAdmin()
		}
	}
	m.seq++
	m.users[u.ID] = u
	return nil
}

func (m *memUsers) Find(ctx context.Context, id int64) (*auth.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m *memUsers) AssignRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	u, ok := m.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	for _, roleID := range roleIDs {
		var held bool
		for _, existing := range u.RoleIDs {
			if existing == roleID {
				held = true
			}
		}
		if !held {
			u.RoleIDs = append(u.RoleIDs, roleID)
		}
	}
	return nil
}

func (m *memUsers) RemoveRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	u, ok := m.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	var kept []int64
	for _, existing := range u.RoleIDs {
		var drop bool
		for _, roleID := range roleIDs {
			if existing == roleID {
				drop = true
			}
		}
		if !drop {
			kept = append(kept, existing)
		}
	}
	u.RoleIDs = kept
	return nil
}

func (m *memUsers) RemoveRoleFromAllUsers(ctx context.Context, roleID int64) (int64, error) {
	var n int64
	for _, u := range m.users {
		var kept []int64
		for _, existing := range u.RoleIDs {
			if existing == roleID {
				n++
				continue
			}
			kept = append(kept, existing)
		}
		u.RoleIDs = kept
	}
	return n, nil
}

func (m *memUsers) RecordLogin(ctx context.Context, userID int64, at time.Time) error {
	return nil
}

type memRoles struct {
	seq   int64
	roles map[int64]*auth.Role
}

func newMemRoles() *memRoles {
	return &memRoles{roles: map[int64]*auth.Role{}}
}

// seedAdmin mirrors the first-user transaction: role 0 lands and the role
// sequence advances past it, so the next Create is not treated as the first.
func (m *memRoles) seedAdmin() {
	if _, ok := m.roles[auth.AdminRoleID]; ok {
		return
	}
	m.roles[auth.AdminRoleID] = auth.AdminRole()
	if m.seq == 0 {
		m.seq = 1
	}
}

func (m *memRoles) Create(ctx context.Context, role *auth.Role) error {
	if m.seq == 0 {
		*role = *auth.AdminRole()
	} else {
		role.ID = m.seq
	}
	m.seq++
	m.roles[role.ID] = role
	return nil
}

func (m *memRoles) Find(ctx context.Context, id int64) (*auth.Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return role, nil
}

func (m *memRoles) Update(ctx context.Context, role *auth.Role) (*auth.Role, error) {
	if _, ok := m.roles[role.ID]; !ok {
		return nil, auth.ErrNotFound
	}
	m.roles[role.ID] = role
	return role, nil
}

func (m *memRoles) Delete(ctx context.Context, id int64) error {
	if _, ok := m.roles[id]; !ok {
		return auth.ErrNotFound
	}
	delete(m.roles, id)
	return nil
}

type memProducts struct {
	items map[string]*products.Product
}

func newMemProducts() *memProducts {
	return &memProducts{items: map[string]*products.Product{}}
}

func (m *memProducts) Create(ctx context.Context, p *products.Product) error {
	m.items[p.ID] = p
	return nil
}

func (m *memProducts) Find(ctx context.Context, id string) (*products.Product, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return p, nil
}

func (m *memProducts) List(ctx context.Context, limit int, afterID string) ([]products.Product, error) {
	var res []products.Product
	for _, p := range m.items {
		res = append(res, *p)
	}
	return res, nil
}

func (m *memProducts) Update(ctx context.Context, p *products.Product) (*products.Product, error) {
	if _, ok := m.items[p.ID]; !ok {
		return nil, auth.ErrNotFound
	}
	m.items[p.ID] = p
	return p, nil
}

func (m *memProducts) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return auth.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

type testEnv struct {
	api      *API
	sessions *auth.SessionManager
	users    *memUsers
	roles    *memRoles
}

func newTestAPI(t *testing.T) *testEnv {
	t.Helper()
	return newTestAPIWithClock(t, nil)
}

func newTestAPIWithClock(t *testing.T, clock func() time.Time) *testEnv {
	t.Helper()
	codec, err := auth.NewTokenCodec([]byte("test-signing-key"), "storefront-api", "storefront-web", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	userStore := newMemUsers()
	roleStore := newMemRoles()
	userStore.roles = roleStore
	sessionStore := newMemSessions()
	var opts []auth.SessionOption
	if clock != nil {
		opts = append(opts, auth.WithClock(clock))
	}
	manager := auth.NewSessionManager(sessionStore, userStore, codec, 24*time.Hour, opts...)
	api := New(Deps{
		Sessions:  manager,
		Evaluator: auth.NewEvaluator(roleStore),
		Users:     users.New(userStore),
		Roles:     roles.New(roleStore, userStore),
		Products:  products.NewService(newMemProducts()),
	}, "test")
	return &testEnv{api: api, sessions: manager, users: userStore, roles: roleStore}
}

// seedUser creates a user with roles and an open session, returning the user
// and a valid access token.
func (env *testEnv) seedUser(t *testing.T, email, password string, roleIDs []int64) (*auth.User, string) {
	t.Helper()
	salt, err := auth.NewSalt()
	if err != nil {
		t.Fatalf("NewSalt: %v", err)
	}
	digest, err := auth.HashPassword(password, salt)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := &auth.User{
		Type:         auth.UserTypeUser,
		Email:        email,
		PasswordHash: digest,
		PasswordSalt: base64.StdEncoding.EncodeToString(salt),
	}
	if err := env.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if len(roleIDs) > 0 {
		u.RoleIDs = roleIDs
	}
	session, err := env.sessions.CreateSession(context.Background(), u)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	token, _, err := env.sessions.IssueAccessToken(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return u, token
}

func authCookie(token string) *http.Cookie {
	return &http.Cookie{Name: authCookieName, Value: token}
}
