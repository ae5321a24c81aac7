package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuthUser is the invariant bundle describing an account independent of
// how it authenticates.
//
// Invariants (enforced by the engine, not by this struct alone): a
// non-local user has at least one linked identity; a local user has zero
// linked identities; root cannot be disabled by anyone but root; at most
// one user exists per (provider, provider-local id).
type AuthUser struct {
	UserName        UserName
	Email           EmailAddress
	DisplayName     DisplayName
	Roles           RoleSet
	CustomRoles     map[CustomRole]bool
	PolicyIDs       map[string]bool
	Created         time.Time
	LastLogin       *time.Time
	Disabled        bool
	LinkedIdentities []RemoteIdentityWithLocalID
}

// IsLocal reports whether this user has no linked remote identities, i.e.
// authenticates purely via a local password.
func (u AuthUser) IsLocal() bool {
	return len(u.LinkedIdentities) == 0
}

// HasLinkedIdentity reports whether localID names one of u's linked
// identities.
func (u AuthUser) HasLinkedIdentity(localID uuid.UUID) bool {
	for _, ri := range u.LinkedIdentities {
		if ri.LocalID == localID {
			return true
		}
	}
	return false
}

// IncludedRoles returns the union of Included() across all of u's
// directly-held roles.
func (u AuthUser) IncludedRoles() RoleSet {
	out := make(RoleSet)
	for r := range u.Roles {
		for inc := range r.Included() {
			out[inc] = true
		}
	}
	return out
}

// GrantableRoles returns the union of Grantable() across all of u's
// directly-held roles.
func (u AuthUser) GrantableRoles() RoleSet {
	out := make(RoleSet)
	for r := range u.Roles {
		for g := range r.Grantable() {
			out[g] = true
		}
	}
	return out
}

// LocalUser extends AuthUser with password-authentication state. It must
// have zero LinkedIdentities.
type LocalUser struct {
	AuthUser
	PasswordHash []byte // >= 10 bytes
	Salt         []byte // >= 2 bytes
	ForceReset   bool
	LastReset    *time.Time
}
