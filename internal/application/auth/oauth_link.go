package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/kestrelauth/authn-engine/internal/domain"
)

// LinkResult is the outcome of Link: either the link was committed
// immediately (EmptyToken == true), or a TemporaryToken was minted to let
// the UI choose among remaining candidates.
type LinkResult struct {
	TemporaryToken string
	EmptyToken     bool
}

// Link runs the OAuth2 link state machine (C9) for the user authenticated
// by userToken. Local-only identity state is rejected; candidates already
// linked to some user are filtered out before branching.
func (e *Engine) Link(ctx context.Context, userToken domain.IncomingToken, providerName, authcode string) (LinkResult, error) {
	actor, err := e.GetUser(ctx, userToken)
	if err != nil {
		return LinkResult{}, err
	}
	if actor.IsLocal() {
		return LinkResult{}, domain.ErrUnauthorized("local accounts cannot link a remote identity")
	}

	cfg, err := e.storage.GetConfig(ctx)
	if err != nil {
		return LinkResult{}, domain.ErrAuthStorage(err)
	}
	provider, err := e.registry.Resolve(providerName, cfg)
	if err != nil {
		return LinkResult{}, err
	}

	authcode = strings.TrimSpace(authcode)
	if authcode == "" {
		return LinkResult{}, domain.ErrMissingParameter("authorization code")
	}

	identities, err := provider.GetIdentities(ctx, authcode, true)
	if err != nil {
		return LinkResult{}, err
	}

	var candidates []domain.RemoteIdentityWithLocalID
	for _, ri := range identities {
		if _, err := e.storage.GetUserByRemoteIdentity(ctx, ri.ID); err == nil {
			continue // already linked to some user
		}
		candidates = append(candidates, domain.NewRemoteIdentityWithLocalID(ri))
	}

	providerCfg := cfg.Providers[providerName]
	if len(candidates) == 1 && !providerCfg.ForceLinkChoice {
		if err := e.storage.LinkIdentity(ctx, actor.UserName, candidates[0]); err != nil {
			return LinkResult{}, domain.ErrLinkFailed(err.Error())
		}
		e.audit("identity_linked", map[string]string{"user": string(actor.UserName), "provider": providerName})
		return LinkResult{EmptyToken: true}, nil
	}

	value, err := e.crypto.GetToken()
	if err != nil {
		return LinkResult{}, domain.ErrRandomFailed(err)
	}
	now := e.now()
	if err := e.storage.StoreTemporaryToken(ctx, domain.TemporaryToken{
		Value:      value,
		Provider:   providerName,
		Identities: candidates,
		Created:    now,
		Expires:    now.Add(domain.TemporaryTokenLinkTTL),
	}); err != nil {
		return LinkResult{}, domain.ErrAuthStorage(err)
	}

	return LinkResult{TemporaryToken: value}, nil
}

// GetLinkState loads the candidates stored under a deferred link flow's
// temporary token.
func (e *Engine) GetLinkState(ctx context.Context, userToken domain.IncomingToken, linkToken string) ([]domain.RemoteIdentityWithLocalID, error) {
	actor, err := e.GetUser(ctx, userToken)
	if err != nil {
		return nil, err
	}
	if actor.IsLocal() {
		return nil, domain.ErrUnauthorized("local accounts cannot link a remote identity")
	}

	tt, err := e.loadTempToken(ctx, linkToken)
	if err != nil {
		return nil, err
	}
	if len(tt.Identities) == 0 {
		return nil, domain.ErrLinkFailed("All provided identities are already linked")
	}
	return tt.Identities, nil
}

// LinkIdentity commits the link for a specific candidate chosen from a
// deferred link flow's temporary token.
func (e *Engine) LinkIdentity(ctx context.Context, userToken domain.IncomingToken, linkToken string, identityUUID uuid.UUID) error {
	actor, err := e.GetUser(ctx, userToken)
	if err != nil {
		return err
	}

	tt, err := e.loadTempToken(ctx, linkToken)
	if err != nil {
		return err
	}

	var chosen domain.RemoteIdentityWithLocalID
	found := false
	for _, ri := range tt.Identities {
		if ri.LocalID == identityUUID {
			chosen, found = ri, true
			break
		}
	}
	if !found {
		return domain.ErrUnauthorized("identity not present in temporary token")
	}

	if err := e.storage.LinkIdentity(ctx, actor.UserName, chosen); err != nil {
		return domain.ErrLinkFailed(err.Error())
	}
	_ = e.storage.DeleteTemporaryToken(ctx, linkToken)
	e.audit("identity_linked", map[string]string{"user": string(actor.UserName), "provider": tt.Provider})
	return nil
}

// Unlink removes a linked identity from the caller's account. Storage is
// expected to refuse leaving a non-local user with zero identities.
func (e *Engine) Unlink(ctx context.Context, userToken domain.IncomingToken, identityUUID uuid.UUID) error {
	actor, err := e.GetUser(ctx, userToken)
	if err != nil {
		return err
	}
	if err := e.storage.UnlinkIdentity(ctx, actor.UserName, identityUUID); err != nil {
		if domain.Is(err, "unlink_failed") {
			return err
		}
		return domain.ErrUnlinkFailed(err.Error())
	}
	e.audit("identity_unlinked", map[string]string{"user": string(actor.UserName)})
	return nil
}
