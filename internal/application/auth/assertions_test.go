package auth

import (
	"context"
	"testing"
	"time"

	"github.com/kestrelauth/authn-engine/internal/domain"
)

func requireErrCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error code=%q, got nil", code)
	}
	if !domain.Is(err, code) {
		t.Fatalf("expected code=%q, got err=%v", code, err)
	}
}

func requireNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// testFixture bundles a freshly constructed Engine with its fakes, so
// each test can both call Engine methods and poke the fakes directly.
type testFixture struct {
	engine    *Engine
	storage   *fakeStorage
	crypto    *fakeCrypto
	registry  *fakeRegistry
	publisher *fakePublisher
	clock     time.Time
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		storage:   newFakeStorage(),
		crypto:    &fakeCrypto{},
		registry:  &fakeRegistry{providers: map[string]IdentityProvider{}},
		publisher: &fakePublisher{},
		clock:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	f.engine = New(f.storage, f.crypto, f.registry, f.publisher).WithClock(func() time.Time { return f.clock })
	return f
}

// createTestAdmin seeds a local ADMIN user directly in storage (bypassing
// CreateRoot/CreateLocalUser) and returns a LOGIN token for them.
func (f *testFixture) createTestAdmin(t *testing.T, name domain.UserName, roles ...domain.Role) domain.IncomingToken {
	t.Helper()
	if len(roles) == 0 {
		roles = []domain.Role{domain.RoleAdmin}
	}
	u := domain.AuthUser{
		UserName:    name,
		Email:       domain.UnknownEmailAddress,
		DisplayName: domain.DisplayName(name),
		Roles:       domain.NewRoleSet(roles...),
		Created:     f.clock,
	}
	if err := f.storage.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	tok, err := f.engine.CreateLoginToken(context.Background(), name)
	if err != nil {
		t.Fatalf("issue token for seeded admin: %v", err)
	}
	return domain.IncomingToken(tok)
}

// createTestUser seeds a plain local user (no roles, no password) and
// returns a LOGIN token for them.
func (f *testFixture) createTestUser(t *testing.T, name domain.UserName) domain.IncomingToken {
	t.Helper()
	u := domain.AuthUser{
		UserName:    name,
		Email:       domain.UnknownEmailAddress,
		DisplayName: domain.DisplayName(name),
		Roles:       domain.NewRoleSet(),
		Created:     f.clock,
	}
	if err := f.storage.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	tok, err := f.engine.CreateLoginToken(context.Background(), name)
	if err != nil {
		t.Fatalf("issue token for seeded user: %v", err)
	}
	return domain.IncomingToken(tok)
}
