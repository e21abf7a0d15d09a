package auth

import (
	"context"
	"fmt"
	"slices"
	"strconv"
)

// Decision is the evaluator's verdict. Reason is set only on deny and is safe
// to return to the client.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow returns a positive decision.
func Allow() Decision { return Decision{Allowed: true} }

// Deny returns a negative decision with a client-visible reason.
func Deny(reason string) Decision { return Decision{Reason: reason} }

// Evaluator decides whether a principal's role claims grant a permission.
// Roles are re-fetched from the store on every call so revocations take
// effect immediately; the embedded claims are only used as the set of role
// ids to look up.
type Evaluator struct {
	roles RoleStore
}

// NewEvaluator constructs an evaluator backed by roles.
func NewEvaluator(roles RoleStore) *Evaluator {
	return &Evaluator{roles: roles}
}

// Authorize checks roleClaims against perm.
//
// The administrator sentinel is honored before any store access. A claim that
// does not parse as a numeric id, or whose role cannot be loaded, only
// disqualifies that claim; another role can still grant the permission.
func (e *Evaluator) Authorize(ctx context.Context, roleClaims []string, perm string) Decision {
	adminClaim := strconv.FormatInt(AdminRoleID, 10)
	if slices.Contains(roleClaims, adminClaim) {
		return Allow()
	}
	if len(roleClaims) == 0 {
		return Deny("no roles assigned")
	}
	for _, claim := range roleClaims {
		roleID, err := strconv.ParseInt(claim, 10, 64)
		if err != nil {
			continue
		}
		role, err := e.roles.Find(ctx, roleID)
		if err != nil {
			continue
		}
		if slices.Contains(role.Permissions, perm) {
			return Allow()
		}
	}
	return Deny(fmt.Sprintf("missing permission '%s'", perm))
}
