package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeRoleStore struct {
	roles  map[int64]*Role
	failOn map[int64]bool
	calls  int
}

func (f *fakeRoleStore) Create(ctx context.Context, role *Role) error { return nil }

func (f *fakeRoleStore) Find(ctx context.Context, id int64) (*Role, error) {
	f.calls++
	if f.failOn[id] {
		return nil, errors.New("store unavailable")
	}
	role, ok := f.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return role, nil
}

func (f *fakeRoleStore) Update(ctx context.Context, role *Role) (*Role, error) { return role, nil }
func (f *fakeRoleStore) Delete(ctx context.Context, id int64) error { return nil }

func TestAuthorizeAdminSentinelSkipsStore(t *testing.T) {
	store := &fakeRoleStore{}
	e := NewEvaluator(store)
	d := e.Authorize(context.Background(), []string{"4", "0"}, PermRolesCreate)
	if !d.Allowed {
		t.Fatalf("expected allow, got deny: %s", d.Reason)
	}
	if store.calls != 0 {
		t.Fatalf("admin sentinel must not hit the store, got %d calls", store.calls)
	}
}

func TestAuthorizeDeniesWithoutRoles(t *testing.T) {
	e := NewEvaluator(&fakeRoleStore{})
	d := e.Authorize(context.Background(), nil, PermRolesCreate)
	if d.Allowed {
		t.Fatal("expected deny")
	}
	if d.Reason != "no roles assigned" {
		t.Fatalf("unexpected reason: %q", d.Reason)
	}
}

func TestAuthorizeGrantsFromAnyRole(t *testing.T) {
	e := NewEvaluator(&fakeRoleStore{roles: map[int64]*Role{
		3: {ID: 3, Name: "catalog", Permissions: []string{PermProductsView}},
		5: {ID: 5, Name: "editors", Permissions: []string{PermProductsEdit}},
	}})
	d := e.Authorize(context.Background(), []string{"3", "5"}, PermProductsEdit)
	if !d.Allowed {
		t.Fatalf("expected allow, got deny: %s", d.Reason)
	}
}

func TestAuthorizeDeniesMissingPermission(t *testing.T) {
	e := NewEvaluator(&fakeRoleStore{roles: map[int64]*Role{
		3: {ID: 3, Name: "catalog", Permissions: []string{PermProductsView}},
	}})
	d := e.Authorize(context.Background(), []string{"3"}, PermRolesDelete)
	if d.Allowed {
		t.Fatal("expected deny")
	}
	if !strings.Contains(d.Reason, PermRolesDelete) {
		t.Fatalf("reason should name the permission, got %q", d.Reason)
	}
}

func TestAuthorizeContinuesPastFailedFetch(t *testing.T) {
	e := NewEvaluator(&fakeRoleStore{
		roles:  map[int64]*Role{5: {ID: 5, Permissions: []string{PermUsersCreate}}},
		failOn: map[int64]bool{3: true},
	})
	d := e.Authorize(context.Background(), []string{"3", "5"}, PermUsersCreate)
	if !d.Allowed {
		t.Fatalf("a failed role fetch must not veto other roles: %s", d.Reason)
	}
}

func TestAuthorizeSkipsUnparseableClaims(t *testing.T) {
	e := NewEvaluator(&fakeRoleStore{
		roles: map[int64]*Role{5: {ID: 5, Permissions: []string{PermUsersCreate}}},
	})
	d := e.Authorize(context.Background(), []string{"not-a-number", "5"}, PermUsersCreate)
	if !d.Allowed {
		t.Fatalf("unparseable claim must only disqualify itself: %s", d.Reason)
	}
	d = e.Authorize(context.Background(), []string{"not-a-number"}, PermUsersCreate)
	if d.Allowed {
		t.Fatal("expected deny when every claim is unparseable")
	}
}
