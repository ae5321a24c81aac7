package auth

import (
	"context"
	"testing"

	"github.com/kestrelauth/authn-engine/internal/domain"
)

func ri(provider, remoteID, username string) domain.RemoteIdentity {
	return domain.RemoteIdentity{
		ID:      domain.RemoteIdentityID{Provider: provider, RemoteID: remoteID},
		Details: domain.RemoteIdentityDetails{Username: username},
	}
}

func TestLoginIssuesTokenDirectlyForSingleKnownIdentity(t *testing.T) {
	f := newFixture(t)
	f.registry.providers["globus"] = &fakeIdentityProvider{
		name:       "globus",
		identities: []domain.RemoteIdentity{ri("globus", "r1", "alice")},
	}

	// Seed a user already linked to this identity.
	alice := domain.AuthUser{
		UserName: "alice", Email: "a@example.com", DisplayName: "Alice",
		Roles: domain.NewRoleSet(), Created: f.clock,
		LinkedIdentities: []domain.RemoteIdentityWithLocalID{domain.NewRemoteIdentityWithLocalID(ri("globus", "r1", "alice"))},
	}
	requireNoErr(t, f.storage.CreateUser(context.Background(), alice))

	res, err := f.engine.Login(context.Background(), "globus", "authcode")
	requireNoErr(t, err)
	if res.Deferred || res.Token == "" {
		t.Fatalf("expected an immediate token, got %+v", res)
	}
	if res.UserName != "alice" {
		t.Fatalf("expected alice, got %q", res.UserName)
	}
}

func TestLoginDefersWhenIdentityHasNoLinkedUser(t *testing.T) {
	f := newFixture(t)
	f.registry.providers["globus"] = &fakeIdentityProvider{
		name:       "globus",
		identities: []domain.RemoteIdentity{ri("globus", "r2", "newbie")},
	}

	res, err := f.engine.Login(context.Background(), "globus", "authcode")
	requireNoErr(t, err)
	if !res.Deferred || res.TemporaryToken == "" {
		t.Fatalf("expected a deferred response, got %+v", res)
	}
}

func TestLoginDefersWhenNonAdminLoginGloballyDisabled(t *testing.T) {
	f := newFixture(t)
	f.registry.providers["globus"] = &fakeIdentityProvider{
		name:       "globus",
		identities: []domain.RemoteIdentity{ri("globus", "r1", "alice")},
	}
	alice := domain.AuthUser{
		UserName: "alice", Email: "a@example.com", DisplayName: "Alice",
		Roles: domain.NewRoleSet(), Created: f.clock,
		LinkedIdentities: []domain.RemoteIdentityWithLocalID{domain.NewRemoteIdentityWithLocalID(ri("globus", "r1", "alice"))},
	}
	requireNoErr(t, f.storage.CreateUser(context.Background(), alice))
	requireNoErr(t, f.storage.UpdateConfig(context.Background(), domain.AuthConfig{LoginAllowedGlobally: false, Providers: map[string]domain.ProviderConfig{}}, ConfigOverwrite))

	res, err := f.engine.Login(context.Background(), "globus", "authcode")
	requireNoErr(t, err)
	if !res.Deferred {
		t.Fatalf("expected login to defer when disabled globally for a non-admin user")
	}
}

func TestLoginRejectsUnknownProvider(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Login(context.Background(), "nonexistent", "authcode")
	requireErrCode(t, err, "no_such_identity_provider")
}

func TestGetLoginStateClassifiesIdentities(t *testing.T) {
	f := newFixture(t)
	known := ri("globus", "r1", "alice")
	unknown := ri("globus", "r2", "newbie")
	f.registry.providers["globus"] = &fakeIdentityProvider{name: "globus", identities: []domain.RemoteIdentity{known, unknown}}

	alice := domain.AuthUser{
		UserName: "alice", Email: "a@example.com", DisplayName: "Alice",
		Roles: domain.NewRoleSet(), Created: f.clock,
		LinkedIdentities: []domain.RemoteIdentityWithLocalID{domain.NewRemoteIdentityWithLocalID(known)},
	}
	requireNoErr(t, f.storage.CreateUser(context.Background(), alice))

	res, err := f.engine.Login(context.Background(), "globus", "authcode")
	requireNoErr(t, err)
	if !res.Deferred {
		t.Fatalf("expected a deferred response with two distinct identity outcomes")
	}

	state, err := f.engine.GetLoginState(context.Background(), res.TemporaryToken)
	requireNoErr(t, err)
	if len(state.AlreadyLinked) != 1 || len(state.AvailableToCreate) != 1 {
		t.Fatalf("expected one already-linked and one available-to-create identity, got %+v", state)
	}
}

func TestCreateUserRejectsWhenAccountCreationDisabled(t *testing.T) {
	f := newFixture(t)
	identity := ri("globus", "r2", "newbie")
	f.registry.providers["globus"] = &fakeIdentityProvider{name: "globus", identities: []domain.RemoteIdentity{identity}}
	requireNoErr(t, f.storage.UpdateConfig(context.Background(), domain.AuthConfig{LoginAllowedGlobally: false, Providers: map[string]domain.ProviderConfig{}}, ConfigOverwrite))

	res, err := f.engine.Login(context.Background(), "globus", "authcode")
	requireNoErr(t, err)

	state, err := f.engine.GetLoginState(context.Background(), res.TemporaryToken)
	requireNoErr(t, err)
	localID := state.AvailableToCreate[0].LocalID

	_, err = f.engine.CreateUser(context.Background(), res.TemporaryToken, localID, "newbie", "Newbie", "n@example.com")
	requireErrCode(t, err, "unauthorized")
}

func TestCreateUserThenLoginWithTempTokenRoundTrip(t *testing.T) {
	f := newFixture(t)
	identity := ri("globus", "r2", "newbie")
	f.registry.providers["globus"] = &fakeIdentityProvider{name: "globus", identities: []domain.RemoteIdentity{identity}}

	res, err := f.engine.Login(context.Background(), "globus", "authcode")
	requireNoErr(t, err)
	state, err := f.engine.GetLoginState(context.Background(), res.TemporaryToken)
	requireNoErr(t, err)
	localID := state.AvailableToCreate[0].LocalID

	token, err := f.engine.CreateUser(context.Background(), res.TemporaryToken, localID, "newbie", "Newbie", "n@example.com")
	requireNoErr(t, err)
	if token == "" {
		t.Fatalf("expected a login token after account creation")
	}

	// The temporary token was consumed by CreateUser.
	_, err = f.engine.LoginWithTempToken(context.Background(), res.TemporaryToken, localID)
	requireErrCode(t, err, "invalid_token")
}

func TestSuggestUserNameAppendsSuffixWhenTaken(t *testing.T) {
	f := newFixture(t)
	requireNoErr(t, f.storage.CreateUser(context.Background(), domain.AuthUser{UserName: "alice", Roles: domain.NewRoleSet(), Created: f.clock}))
	requireNoErr(t, f.storage.CreateUser(context.Background(), domain.AuthUser{UserName: "alice1", Roles: domain.NewRoleSet(), Created: f.clock}))

	got, ok := f.engine.SuggestUserName(context.Background(), "alice")
	if !ok {
		t.Fatalf("expected a suggestion")
	}
	if got != "alice2" {
		t.Fatalf("expected alice2, got %q", got)
	}
}

func TestSuggestUserNameStartsAtOneWhenOnlyBareNameTaken(t *testing.T) {
	f := newFixture(t)
	requireNoErr(t, f.storage.CreateUser(context.Background(), domain.AuthUser{UserName: "user", Roles: domain.NewRoleSet(), Created: f.clock}))

	got, ok := f.engine.SuggestUserName(context.Background(), "user")
	if !ok {
		t.Fatalf("expected a suggestion")
	}
	if got != "user1" {
		t.Fatalf("expected user1, got %q", got)
	}
}

func TestSuggestUserNameReturnsSuggestionWhenFree(t *testing.T) {
	f := newFixture(t)
	got, ok := f.engine.SuggestUserName(context.Background(), "dave")
	if !ok || got != "dave" {
		t.Fatalf("expected dave, got %q ok=%v", got, ok)
	}
}
