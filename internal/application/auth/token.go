package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/kestrelauth/authn-engine/internal/domain"
)

func (e *Engine) lifetimeFor(ctx context.Context, t domain.TokenLifetimeType) (int64, error) {
	cfg, err := e.storage.GetConfig(ctx)
	if err != nil {
		return 0, domain.ErrAuthStorage(err)
	}
	ms, ok := cfg.TokenLifetimesMillis[t]
	if !ok {
		defaults := domain.DefaultAuthConfig()
		ms = defaults.TokenLifetimesMillis[t]
	}
	return ms, nil
}

// issueToken mints a fresh opaque token of the given type/scope, persists
// its hash, and returns the plaintext to be returned to the caller
// exactly once.
func (e *Engine) issueToken(ctx context.Context, userName domain.UserName, tt domain.TokenType, scope domain.ExtendedTokenScope, name string, lifetimeType domain.TokenLifetimeType) (string, error) {
	plain, err := e.crypto.GetToken()
	if err != nil {
		return "", domain.ErrRandomFailed(err)
	}

	ms, err := e.lifetimeFor(ctx, lifetimeType)
	if err != nil {
		return "", err
	}

	now := e.now()
	tok := domain.HashedToken{
		ID:          uuid.New(),
		Type:        tt,
		ExtScope:    scope,
		Name:        name,
		UserName:    userName,
		Created:     now,
		Expires:     now.Add(millisToDuration(ms)),
		HashedValue: e.crypto.HashToken(plain),
	}

	if err := e.storage.InsertToken(ctx, tok); err != nil {
		return "", domain.ErrAuthStorage(err)
	}

	return plain, nil
}

// CreateLoginToken issues a LOGIN token for userName and records the
// login time.
func (e *Engine) CreateLoginToken(ctx context.Context, userName domain.UserName) (string, error) {
	plain, err := e.issueToken(ctx, userName, domain.TokenTypeLogin, "", "", domain.TokenLifetimeLogin)
	if err != nil {
		return "", err
	}
	if err := e.storage.SetLastLogin(ctx, userName, e.now()); err != nil {
		return "", domain.ErrAuthStorage(err)
	}
	return plain, nil
}

// CreateExtendedToken mints a DEV_TOKEN- or SERV_TOKEN-scoped long-lived
// token (C6). It must be created from a LOGIN token only; callerToken's
// type is checked, and the caller must hold the role matching the
// requested scope.
func (e *Engine) CreateExtendedToken(ctx context.Context, callerToken domain.IncomingToken, name string, server bool) (string, error) {
	tok, err := e.resolveToken(ctx, callerToken)
	if err != nil {
		return "", err
	}
	if tok.Type != domain.TokenTypeLogin {
		return "", domain.ErrOnlyLoginTokensMayCreateTokens()
	}

	scope := domain.ExtendedTokenScopeDev
	requiredRole := domain.RoleDevToken
	lifetimeType := domain.TokenLifetimeDev
	if server {
		scope = domain.ExtendedTokenScopeServ
		requiredRole = domain.RoleServToken
		lifetimeType = domain.TokenLifetimeServ
	}

	user, err := e.storage.GetUser(ctx, tok.UserName)
	if err != nil {
		return "", domain.ErrInternal(err)
	}
	if user.Disabled {
		_ = e.storage.DeleteAllTokensForUser(ctx, user.UserName)
		return "", domain.ErrDisabledUser()
	}
	if user.IncludedRoles().Intersect(domain.NewRoleSet(requiredRole)).Empty() {
		return "", domain.ErrUnauthorized("insufficient role for extended token")
	}

	return e.issueToken(ctx, tok.UserName, domain.TokenTypeExtendedLifetime, scope, name, lifetimeType)
}

// GetToken resolves an incoming bearer token to its stored record (C6).
func (e *Engine) GetToken(ctx context.Context, token domain.IncomingToken) (domain.HashedToken, error) {
	return e.resolveToken(ctx, token)
}

// Revoke deletes a token by id. Callers enforce their own authorization
// before calling this (admin revoking another user's token must already
// hold ADMIN, checked by the caller via GetUser).
func (e *Engine) Revoke(ctx context.Context, id uuid.UUID) error {
	if err := e.storage.DeleteTokenByID(ctx, id); err != nil {
		return domain.ErrAuthStorage(err)
	}
	return nil
}

// RevokeCurrent revokes the token presented in this request.
func (e *Engine) RevokeCurrent(ctx context.Context, token domain.IncomingToken) error {
	tok, err := e.resolveToken(ctx, token)
	if err != nil {
		return err
	}
	return e.Revoke(ctx, tok.ID)
}

// RevokeAll revokes every token belonging to userName. actingToken must
// resolve either to userName itself or to an ADMIN.
func (e *Engine) RevokeAll(ctx context.Context, actingToken domain.IncomingToken, userName domain.UserName) error {
	if userName == "" {
		return domain.ErrMissingParameter("userName")
	}

	actor, err := e.GetUser(ctx, actingToken)
	if err != nil {
		return err
	}
	if actor.UserName != userName {
		if actor.IncludedRoles().Intersect(domain.NewRoleSet(domain.RoleAdmin)).Empty() {
			return domain.ErrUnauthorized("must be ADMIN to revoke another user's tokens")
		}
	}

	if err := e.storage.DeleteAllTokensForUser(ctx, userName); err != nil {
		return domain.ErrAuthStorage(err)
	}

	e.publish(ctx, func(p EventPublisher) error {
		return p.PublishTokenRevoked(ctx, TokenRevokedEvent{UserName: string(userName), ActedBy: string(actor.UserName)})
	})
	e.audit("token_revoked_all", map[string]string{"user": string(userName), "acted_by": string(actor.UserName)})

	return nil
}

// RevokeAllTokens revokes every token for every user (global admin
// operation).
func (e *Engine) RevokeAllTokens(ctx context.Context, adminToken domain.IncomingToken) error {
	actor, err := e.GetUser(ctx, adminToken, domain.RoleAdmin)
	if err != nil {
		return err
	}
	if err := e.storage.DeleteAllTokens(ctx); err != nil {
		return domain.ErrAuthStorage(err)
	}
	e.audit("token_revoked_all_global", map[string]string{"acted_by": string(actor.UserName)})
	return nil
}
