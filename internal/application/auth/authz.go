package auth

import (
	"context"
	"sort"
	"strings"

	"github.com/kestrelauth/authn-engine/internal/domain"
)

// GetUser resolves an IncomingToken to the user it belongs to (C10).
// If the user is disabled, all of their tokens are deleted as a side
// effect and domain.ErrDisabledUser is returned. If required is
// non-empty, the union of the user's included() roles must intersect it.
func (e *Engine) GetUser(ctx context.Context, token domain.IncomingToken, required ...domain.Role) (domain.AuthUser, error) {
	tok, err := e.resolveToken(ctx, token)
	if err != nil {
		return domain.AuthUser{}, err
	}

	user, err := e.storage.GetUser(ctx, tok.UserName)
	if err != nil {
		return domain.AuthUser{}, domain.ErrInternal(err)
	}

	if user.Disabled {
		_ = e.storage.DeleteAllTokensForUser(ctx, user.UserName)
		return domain.AuthUser{}, domain.ErrDisabledUser()
	}

	if len(required) > 0 {
		has := user.IncludedRoles()
		req := domain.NewRoleSet(required...)
		if has.Intersect(req).Empty() {
			return domain.AuthUser{}, domain.ErrUnauthorized("insufficient role")
		}
	}

	return user, nil
}

// resolveToken hashes and looks up an incoming token, mapping a
// not-found/expired lookup to domain.ErrInvalidToken and rejecting blank
// input with domain.ErrNoTokenProvided.
func (e *Engine) resolveToken(ctx context.Context, token domain.IncomingToken) (domain.HashedToken, error) {
	trimmed := token.Trimmed()
	if trimmed.Empty() {
		return domain.HashedToken{}, domain.ErrNoTokenProvided()
	}

	hashed := e.crypto.HashToken(string(trimmed))
	tok, err := e.storage.GetTokenByHash(ctx, hashed)
	if err != nil {
		if domain.Is(err, "no_such_token") {
			return domain.HashedToken{}, domain.ErrInvalidToken()
		}
		return domain.HashedToken{}, domain.ErrAuthStorage(err)
	}

	if tok.Expired(e.now()) {
		_ = e.storage.DeleteTokenByID(ctx, tok.ID)
		return domain.HashedToken{}, domain.ErrInvalidToken()
	}

	return tok, nil
}

func describeRoles(roles domain.RoleSet) string {
	names := make([]string, 0, len(roles))
	for r := range roles {
		names = append(names, string(r))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// UpdateRoles mutates a target user's built-in role set (C10). Adding or
// removing ROOT's roles is always refused. A caller may remove any of
// their own roles without grant authority, but granting requires the
// role to be in the caller's grantable() set, and removing from another
// user does too.
func (e *Engine) UpdateRoles(ctx context.Context, adminToken domain.IncomingToken, target domain.UserName, add, remove domain.RoleSet) error {
	actor, err := e.GetUser(ctx, adminToken)
	if err != nil {
		return err
	}

	if overlap := add.Intersect(remove); !overlap.Empty() {
		return domain.ErrIllegalParameter("roles in both add and remove: " + describeRoles(overlap))
	}

	if target.IsRoot() {
		return domain.ErrCannotChangeRootRoles()
	}

	grantable := actor.GrantableRoles()
	if notGrantable := add.Difference(grantable); !notGrantable.Empty() {
		return domain.ErrNotAuthorizedToGrant(describeRoles(notGrantable))
	}

	if target != actor.UserName {
		if notGrantable := remove.Difference(grantable); !notGrantable.Empty() {
			return domain.ErrNotAuthorizedToRemove(describeRoles(notGrantable))
		}
	}

	targetUser, err := e.storage.GetUser(ctx, target)
	if err != nil {
		return domain.ErrNoSuchUser()
	}

	newRoles := targetUser.Roles.Union(add).Difference(remove)
	if err := e.guardLastGrantTerminalHolder(ctx, targetUser.Roles, newRoles); err != nil {
		return err
	}

	if err := e.storage.SetRoles(ctx, target, newRoles); err != nil {
		return domain.ErrAuthStorage(err)
	}

	e.publish(ctx, func(p EventPublisher) error {
		return p.PublishRoleChanged(ctx, RoleChangedEvent{
			UserName: string(target),
			Added:    roleNames(add),
			Removed:  roleNames(remove),
			ActedBy:  string(actor.UserName),
		})
	})
	e.audit("role_changed", map[string]string{
		"user": string(target), "acted_by": string(actor.UserName),
		"added": describeRoles(add), "removed": describeRoles(remove),
	})

	return nil
}

// guardLastGrantTerminalHolder refuses a role change that would remove
// the last holder of a grant-terminal built-in role (CREATE_ADMIN or
// ADMIN) — a supplemental guard beyond spec.md's own ROOT protection,
// generalizing the teacher's last-admin protection.
func (e *Engine) guardLastGrantTerminalHolder(ctx context.Context, oldRoles, newRoles domain.RoleSet) error {
	for _, r := range []domain.Role{domain.RoleCreateAdmin, domain.RoleAdmin} {
		if oldRoles[r] && !newRoles[r] {
			names, err := e.storage.ListUserNamesMatching(ctx, "")
			if err != nil {
				return domain.ErrAuthStorage(err)
			}
			remaining := 0
			for _, n := range names {
				u, err := e.storage.GetUser(ctx, n)
				if err != nil {
					continue
				}
				if u.Roles[r] {
					remaining++
				}
			}
			if remaining <= 1 {
				return domain.ErrUnauthorized("cannot remove the last holder of role " + string(r))
			}
		}
	}
	return nil
}

func roleNames(roles domain.RoleSet) []string {
	out := make([]string, 0, len(roles))
	for r := range roles {
		out = append(out, string(r))
	}
	sort.Strings(out)
	return out
}

// UpdateCustomRoles mirrors UpdateRoles' add/remove intersection rule for
// admin-assigned custom role tags. Requires ADMIN; unlike built-in roles,
// a user may not remove their own custom roles.
func (e *Engine) UpdateCustomRoles(ctx context.Context, adminToken domain.IncomingToken, target domain.UserName, add, remove map[domain.CustomRole]bool) error {
	actor, err := e.GetUser(ctx, adminToken, domain.RoleAdmin)
	if err != nil {
		return err
	}

	for r := range add {
		if remove[r] {
			return domain.ErrIllegalParameter("custom role in both add and remove: " + string(r))
		}
	}

	if target == actor.UserName && len(remove) > 0 {
		return domain.ErrUnauthorized("cannot remove your own custom roles")
	}

	targetUser, err := e.storage.GetUser(ctx, target)
	if err != nil {
		return domain.ErrNoSuchUser()
	}

	merged := map[domain.CustomRole]bool{}
	for r := range targetUser.CustomRoles {
		merged[r] = true
	}
	for r := range add {
		merged[r] = true
	}
	for r := range remove {
		delete(merged, r)
	}

	if err := e.storage.SetCustomRoles(ctx, target, merged); err != nil {
		return domain.ErrAuthStorage(err)
	}
	return nil
}
