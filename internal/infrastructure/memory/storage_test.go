package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelauth/authn-engine/internal/application/auth"
	"github.com/kestrelauth/authn-engine/internal/domain"
)

func TestCreateUserRejectsDuplicateUserName(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := domain.AuthUser{UserName: "alice", Roles: domain.NewRoleSet()}

	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := s.CreateUser(ctx, u)
	if !domain.Is(err, "user_exists") {
		t.Fatalf("expected user_exists, got %v", err)
	}
}

func TestCreateUserRejectsDuplicateLinkedIdentity(t *testing.T) {
	s := New()
	ctx := context.Background()
	identity := domain.NewRemoteIdentityWithLocalID(domain.RemoteIdentity{ID: domain.RemoteIdentityID{Provider: "globus", RemoteID: "r1"}})

	alice := domain.AuthUser{UserName: "alice", Roles: domain.NewRoleSet(), LinkedIdentities: []domain.RemoteIdentityWithLocalID{identity}}
	if err := s.CreateUser(ctx, alice); err != nil {
		t.Fatalf("create alice: %v", err)
	}

	bob := domain.AuthUser{UserName: "bob", Roles: domain.NewRoleSet(), LinkedIdentities: []domain.RemoteIdentityWithLocalID{identity}}
	err := s.CreateUser(ctx, bob)
	if !domain.Is(err, "identity_already_linked") {
		t.Fatalf("expected identity_already_linked, got %v", err)
	}
}

func TestGetUserByRemoteIdentity(t *testing.T) {
	s := New()
	ctx := context.Background()
	id := domain.RemoteIdentityID{Provider: "globus", RemoteID: "r1"}
	identity := domain.NewRemoteIdentityWithLocalID(domain.RemoteIdentity{ID: id})

	if err := s.CreateUser(ctx, domain.AuthUser{UserName: "alice", Roles: domain.NewRoleSet(), LinkedIdentities: []domain.RemoteIdentityWithLocalID{identity}}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetUserByRemoteIdentity(ctx, id)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.UserName != "alice" {
		t.Fatalf("expected alice, got %q", got.UserName)
	}

	if _, err := s.GetUserByRemoteIdentity(ctx, domain.RemoteIdentityID{Provider: "globus", RemoteID: "unknown"}); !domain.Is(err, "no_such_user") {
		t.Fatalf("expected no_such_user, got %v", err)
	}
}

func TestUnlinkIdentityRefusesToEmptyNonLocalUser(t *testing.T) {
	s := New()
	ctx := context.Background()
	identity := domain.NewRemoteIdentityWithLocalID(domain.RemoteIdentity{ID: domain.RemoteIdentityID{Provider: "globus", RemoteID: "r1"}})
	if err := s.CreateUser(ctx, domain.AuthUser{UserName: "alice", Roles: domain.NewRoleSet(), LinkedIdentities: []domain.RemoteIdentityWithLocalID{identity}}); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := s.UnlinkIdentity(ctx, "alice", identity.LocalID)
	if !domain.Is(err, "unlink_failed") {
		t.Fatalf("expected unlink_failed, got %v", err)
	}
}

func TestTokenLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	tok := domain.HashedToken{
		ID: uuid.New(), Type: domain.TokenTypeLogin, UserName: "alice",
		Created: time.Now(), Expires: time.Now().Add(time.Hour), HashedValue: []byte("hash-of-token"),
	}
	if err := s.InsertToken(ctx, tok); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.GetTokenByHash(ctx, []byte("hash-of-token"))
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ID != tok.ID {
		t.Fatalf("expected token id %v, got %v", tok.ID, got.ID)
	}

	if err := s.DeleteTokenByID(ctx, tok.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetTokenByHash(ctx, []byte("hash-of-token")); !domain.Is(err, "no_such_token") {
		t.Fatalf("expected no_such_token after delete, got %v", err)
	}
}

func TestGetConfigReturnsDefaultsUntilFirstUpdate(t *testing.T) {
	s := New()
	ctx := context.Background()

	cfg, err := s.GetConfig(ctx)
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if !cfg.LoginAllowedGlobally {
		t.Fatalf("expected default config to allow login globally")
	}

	if err := s.UpdateConfig(ctx, domain.AuthConfig{LoginAllowedGlobally: false, Providers: map[string]domain.ProviderConfig{}}, auth.ConfigOverwrite); err != nil {
		t.Fatalf("update config: %v", err)
	}
	cfg, err = s.GetConfig(ctx)
	if err != nil {
		t.Fatalf("get config after update: %v", err)
	}
	if cfg.LoginAllowedGlobally {
		t.Fatalf("expected overwritten config to stick")
	}
}

func TestUpdateConfigMergeKeepsUntouchedProviders(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.UpdateConfig(ctx, domain.AuthConfig{
		LoginAllowedGlobally: true,
		Providers:            map[string]domain.ProviderConfig{"globus": {Enabled: true}},
	}, auth.ConfigOverwrite); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	if err := s.UpdateConfig(ctx, domain.AuthConfig{
		Providers: map[string]domain.ProviderConfig{"orcid": {Enabled: true}},
	}, auth.ConfigMerge); err != nil {
		t.Fatalf("merge config: %v", err)
	}

	cfg, err := s.GetConfig(ctx)
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if _, ok := cfg.Providers["globus"]; !ok {
		t.Fatalf("expected merge to preserve the existing globus entry")
	}
	if _, ok := cfg.Providers["orcid"]; !ok {
		t.Fatalf("expected merge to add the new orcid entry")
	}
}

func TestSearchDisplayNamesFiltersByPrefixAndRole(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.CreateUser(ctx, domain.AuthUser{UserName: "alice", DisplayName: "Alice A", Roles: domain.NewRoleSet(domain.RoleAdmin)}); err != nil {
		t.Fatalf("create alice: %v", err)
	}
	if err := s.CreateUser(ctx, domain.AuthUser{UserName: "albert", DisplayName: "Albert B", Roles: domain.NewRoleSet()}); err != nil {
		t.Fatalf("create albert: %v", err)
	}

	out, err := s.SearchDisplayNames(ctx, auth.NameSearchSpec{Prefix: "al", RoleFilter: domain.NewRoleSet(domain.RoleAdmin)}, 100)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected exactly one admin matching prefix \"al\", got %d", len(out))
	}
	if _, ok := out["alice"]; !ok {
		t.Fatalf("expected alice in results, got %+v", out)
	}
}
