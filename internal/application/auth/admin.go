package auth

import (
	"context"
	"strings"

	"github.com/kestrelauth/authn-engine/internal/domain"
)

// MaxDisplayNameLookup caps both admin name-lookup operations.
const MaxDisplayNameLookup = 10000

// DisableAccount enables or disables target's account. Requires
// ROOT|CREATE_ADMIN|ADMIN; disabling ROOT requires the acting user to be
// ROOT, and nobody may enable ROOT. Disable requires a non-blank reason
// and deletes the target's tokens twice (before and after the write) to
// narrow the in-flight-login race.
func (e *Engine) DisableAccount(ctx context.Context, adminToken domain.IncomingToken, target domain.UserName, disable bool, reason string) error {
	actor, err := e.GetUser(ctx, adminToken, domain.RoleRoot, domain.RoleCreateAdmin, domain.RoleAdmin)
	if err != nil {
		return err
	}

	if target.IsRoot() {
		if disable && !actor.UserName.IsRoot() {
			return domain.ErrUnauthorized("only ROOT may disable the ROOT account")
		}
		if !disable {
			return domain.ErrUnauthorized("the ROOT account may never be enabled by anyone")
		}
	}

	if disable {
		if strings.TrimSpace(reason) == "" {
			return domain.ErrMissingParameter("reason")
		}
		_ = e.storage.DeleteAllTokensForUser(ctx, target)
	}

	if err := e.storage.SetDisabled(ctx, target, disable); err != nil {
		return domain.ErrAuthStorage(err)
	}

	if disable {
		_ = e.storage.DeleteAllTokensForUser(ctx, target)
	}

	e.publish(ctx, func(p EventPublisher) error {
		return p.PublishAccountDisabled(ctx, AccountDisabledEvent{
			UserName: string(target), Disabled: disable, Reason: reason, ActedBy: string(actor.UserName),
		})
	})
	e.audit("account_disabled", map[string]string{
		"user": string(target), "disabled": boolStr(disable), "acted_by": string(actor.UserName),
	})

	return nil
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// GetUserDisplayNames looks up the display names for a fixed set of
// usernames, returning only the ones that exist. Capped at
// MaxDisplayNameLookup.
func (e *Engine) GetUserDisplayNames(ctx context.Context, token domain.IncomingToken, names []domain.UserName) (map[domain.UserName]domain.DisplayName, error) {
	if _, err := e.GetUser(ctx, token); err != nil {
		return nil, err
	}
	if len(names) > MaxDisplayNameLookup {
		return nil, domain.ErrIllegalParameter("too many names requested")
	}
	out, err := e.storage.GetDisplayNames(ctx, names)
	if err != nil {
		return nil, domain.ErrAuthStorage(err)
	}
	return out, nil
}

// SearchUserDisplayNames performs a prefix (and, for admins, role-filtered)
// search over display names/usernames. Non-admins may only use the
// prefix-only form; attaching a role filter as a non-admin is
// unauthorized, not silently ignored.
func (e *Engine) SearchUserDisplayNames(ctx context.Context, token domain.IncomingToken, spec NameSearchSpec) (map[domain.UserName]domain.DisplayName, error) {
	actor, err := e.GetUser(ctx, token)
	if err != nil {
		return nil, err
	}

	isAdmin := !actor.IncludedRoles().Intersect(domain.NewRoleSet(domain.RoleAdmin)).Empty()
	if !isAdmin && !spec.PrefixOnly() {
		return nil, domain.ErrUnauthorized("role-filtered search requires ADMIN")
	}

	out, err := e.storage.SearchDisplayNames(ctx, spec, MaxDisplayNameLookup)
	if err != nil {
		return nil, domain.ErrAuthStorage(err)
	}
	return out, nil
}
