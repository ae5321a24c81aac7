package auth

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelauth/authn-engine/internal/domain"
)

// fakeStorage is a minimal, in-process Storage used across engine tests.
// It favors correctness of the contract over performance.
type fakeStorage struct {
	mu sync.Mutex

	users  map[domain.UserName]domain.AuthUser
	locals map[domain.UserName]domain.LocalUser
	byRI   map[domain.RemoteIdentityID]domain.UserName

	tokensByID   map[uuid.UUID]domain.HashedToken
	tokensByHash map[string]uuid.UUID

	tempTokens map[string]domain.TemporaryToken

	cfg       domain.AuthConfig
	cfgExists bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		users:        map[domain.UserName]domain.AuthUser{},
		locals:       map[domain.UserName]domain.LocalUser{},
		byRI:         map[domain.RemoteIdentityID]domain.UserName{},
		tokensByID:   map[uuid.UUID]domain.HashedToken{},
		tokensByHash: map[string]uuid.UUID{},
		tempTokens:   map[string]domain.TemporaryToken{},
	}
}

func (f *fakeStorage) GetUser(ctx context.Context, userName domain.UserName) (domain.AuthUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userName]
	if !ok {
		return domain.AuthUser{}, domain.ErrNoSuchUser()
	}
	return u, nil
}

func (f *fakeStorage) GetUserByRemoteIdentity(ctx context.Context, id domain.RemoteIdentityID) (domain.AuthUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.byRI[id]
	if !ok {
		return domain.AuthUser{}, domain.ErrNoSuchUser()
	}
	return f.users[name], nil
}

func (f *fakeStorage) CreateUser(ctx context.Context, u domain.AuthUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.UserName]; ok {
		return domain.ErrUserExists(string(u.UserName))
	}
	f.users[u.UserName] = u
	for _, ri := range u.LinkedIdentities {
		f.byRI[ri.ID] = u.UserName
	}
	return nil
}

func (f *fakeStorage) ListUserNamesMatching(ctx context.Context, pattern string) ([]domain.UserName, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var re *regexp.Regexp
	if pattern != "" {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
	}
	var out []domain.UserName
	for n := range f.users {
		if re == nil || re.MatchString(string(n)) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeStorage) GetLocalUser(ctx context.Context, userName domain.UserName) (domain.LocalUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lu, ok := f.locals[userName]
	if !ok {
		return domain.LocalUser{}, domain.ErrNoSuchUser()
	}
	return lu, nil
}

func (f *fakeStorage) CreateLocalUser(ctx context.Context, u domain.LocalUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.locals[u.UserName]; ok {
		return domain.ErrUserExists(string(u.UserName))
	}
	f.locals[u.UserName] = u
	f.users[u.UserName] = u.AuthUser
	return nil
}

func (f *fakeStorage) UpdateLocalUserPassword(ctx context.Context, userName domain.UserName, hash, salt []byte, forceReset bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lu, ok := f.locals[userName]
	if !ok {
		return domain.ErrNoSuchUser()
	}
	lu.PasswordHash = append([]byte{}, hash...)
	lu.Salt = append([]byte{}, salt...)
	lu.ForceReset = forceReset
	f.locals[userName] = lu
	return nil
}

func (f *fakeStorage) SetForceReset(ctx context.Context, userName domain.UserName, forceReset bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lu, ok := f.locals[userName]
	if !ok {
		return domain.ErrNoSuchUser()
	}
	lu.ForceReset = forceReset
	f.locals[userName] = lu
	return nil
}

func (f *fakeStorage) SetForceResetAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for n, lu := range f.locals {
		lu.ForceReset = true
		f.locals[n] = lu
	}
	return nil
}

func (f *fakeStorage) SetDisabled(ctx context.Context, userName domain.UserName, disabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userName]
	if !ok {
		return domain.ErrNoSuchUser()
	}
	u.Disabled = disabled
	f.users[userName] = u
	if lu, ok := f.locals[userName]; ok {
		lu.Disabled = disabled
		f.locals[userName] = lu
	}
	return nil
}

func (f *fakeStorage) SetRoles(ctx context.Context, userName domain.UserName, roles domain.RoleSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userName]
	if !ok {
		return domain.ErrNoSuchUser()
	}
	u.Roles = roles
	f.users[userName] = u
	return nil
}

func (f *fakeStorage) SetCustomRoles(ctx context.Context, userName domain.UserName, roles map[domain.CustomRole]bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userName]
	if !ok {
		return domain.ErrNoSuchUser()
	}
	u.CustomRoles = roles
	f.users[userName] = u
	return nil
}

func (f *fakeStorage) LinkIdentity(ctx context.Context, userName domain.UserName, identity domain.RemoteIdentityWithLocalID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userName]
	if !ok {
		return domain.ErrNoSuchUser()
	}
	u.LinkedIdentities = append(u.LinkedIdentities, identity)
	f.users[userName] = u
	f.byRI[identity.ID] = userName
	return nil
}

func (f *fakeStorage) UnlinkIdentity(ctx context.Context, userName domain.UserName, localID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userName]
	if !ok {
		return domain.ErrNoSuchUser()
	}
	if !u.IsLocal() && len(u.LinkedIdentities) <= 1 {
		return domain.ErrUnlinkFailed("cannot leave a non-local user with zero identities")
	}
	out := u.LinkedIdentities[:0]
	for _, ri := range u.LinkedIdentities {
		if ri.LocalID == localID {
			delete(f.byRI, ri.ID)
			continue
		}
		out = append(out, ri)
	}
	u.LinkedIdentities = out
	f.users[userName] = u
	return nil
}

func (f *fakeStorage) GetDisplayNames(ctx context.Context, names []domain.UserName) (map[domain.UserName]domain.DisplayName, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[domain.UserName]domain.DisplayName{}
	for _, n := range names {
		if u, ok := f.users[n]; ok {
			out[n] = u.DisplayName
		}
	}
	return out, nil
}

func (f *fakeStorage) SearchDisplayNames(ctx context.Context, spec NameSearchSpec, limit int) (map[domain.UserName]domain.DisplayName, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[domain.UserName]domain.DisplayName{}
	for n, u := range f.users {
		if len(out) >= limit {
			break
		}
		if spec.Prefix != "" && !hasPrefix(string(n), spec.Prefix) && !hasPrefix(string(u.DisplayName), spec.Prefix) {
			continue
		}
		if !spec.RoleFilter.Empty() && u.Roles.Intersect(spec.RoleFilter).Empty() {
			continue
		}
		out[n] = u.DisplayName
	}
	return out, nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func (f *fakeStorage) InsertToken(ctx context.Context, tok domain.HashedToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokensByID[tok.ID] = tok
	f.tokensByHash[string(tok.HashedValue)] = tok.ID
	return nil
}

func (f *fakeStorage) GetTokenByHash(ctx context.Context, hashed []byte) (domain.HashedToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.tokensByHash[string(hashed)]
	if !ok {
		return domain.HashedToken{}, domain.ErrNoSuchToken()
	}
	return f.tokensByID[id], nil
}

func (f *fakeStorage) DeleteTokenByID(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tok, ok := f.tokensByID[id]; ok {
		delete(f.tokensByHash, string(tok.HashedValue))
		delete(f.tokensByID, id)
	}
	return nil
}

func (f *fakeStorage) DeleteAllTokensForUser(ctx context.Context, userName domain.UserName) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, tok := range f.tokensByID {
		if tok.UserName == userName {
			delete(f.tokensByHash, string(tok.HashedValue))
			delete(f.tokensByID, id)
		}
	}
	return nil
}

func (f *fakeStorage) DeleteAllTokens(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokensByID = map[uuid.UUID]domain.HashedToken{}
	f.tokensByHash = map[string]uuid.UUID{}
	return nil
}

func (f *fakeStorage) SetLastLogin(ctx context.Context, userName domain.UserName, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userName]
	if !ok {
		return domain.ErrNoSuchUser()
	}
	t := at
	u.LastLogin = &t
	f.users[userName] = u
	return nil
}

func (f *fakeStorage) StoreTemporaryToken(ctx context.Context, tok domain.TemporaryToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tempTokens[tok.Value] = tok
	return nil
}

func (f *fakeStorage) GetTemporaryToken(ctx context.Context, value string) (domain.TemporaryToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tt, ok := f.tempTokens[value]
	if !ok {
		return domain.TemporaryToken{}, domain.ErrNoSuchToken()
	}
	return tt, nil
}

func (f *fakeStorage) DeleteTemporaryToken(ctx context.Context, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tempTokens, value)
	return nil
}

func (f *fakeStorage) GetConfig(ctx context.Context) (domain.AuthConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.cfgExists {
		return domain.DefaultAuthConfig(), nil
	}
	return f.cfg, nil
}

func (f *fakeStorage) UpdateConfig(ctx context.Context, cfg domain.AuthConfig, mode ConfigMergeMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = cfg
	f.cfgExists = true
	return nil
}

// fakeCrypto is a deterministic, non-cryptographic stand-in: "hash" is
// just the plaintext prefixed with the salt, equality is ==.
type fakeCrypto struct {
	tokenN int
}

func (f *fakeCrypto) GenerateSalt() ([]byte, error) { return []byte("salt"), nil }

func (f *fakeCrypto) GetEncryptedPassword(plain []byte, salt []byte) ([]byte, error) {
	return append(append([]byte{}, salt...), plain...), nil
}

func (f *fakeCrypto) Authenticate(plain []byte, expectedHash []byte, salt []byte) bool {
	got, _ := f.GetEncryptedPassword(plain, salt)
	if len(got) != len(expectedHash) {
		return false
	}
	for i := range got {
		if got[i] != expectedHash[i] {
			return false
		}
	}
	return true
}

func (f *fakeCrypto) GetTemporaryPassword(length int) (string, error) {
	return fmt.Sprintf("temp-%d", length), nil
}

func (f *fakeCrypto) GetToken() (string, error) {
	f.tokenN++
	return fmt.Sprintf("token-%d", f.tokenN), nil
}

func (f *fakeCrypto) HashToken(plain string) []byte {
	return []byte("h:" + plain)
}

// fakeIdentityProvider implements IdentityProvider with a fixed identity
// set returned from GetIdentities.
type fakeIdentityProvider struct {
	name       string
	identities []domain.RemoteIdentity
	err        error
}

func (p *fakeIdentityProvider) Name() string     { return p.name }
func (p *fakeIdentityProvider) ImageURI() string { return "https://example.com/" + p.name + ".png" }
func (p *fakeIdentityProvider) LoginURL(state string, isLink bool) (string, error) {
	return "https://example.com/authorize?state=" + state, nil
}
func (p *fakeIdentityProvider) GetIdentities(ctx context.Context, authcode string, isLink bool) ([]domain.RemoteIdentity, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.identities, nil
}

// fakeRegistry resolves to a fixed set of providers, honoring the
// disabled-providers-are-unknown rule via cfg.Providers.
type fakeRegistry struct {
	providers map[string]IdentityProvider
}

func (r *fakeRegistry) Resolve(name string, cfg domain.AuthConfig) (IdentityProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, domain.ErrNoSuchIdentityProvider(name)
	}
	if pc, ok := cfg.Providers[name]; ok && !pc.Enabled {
		return nil, domain.ErrNoSuchIdentityProvider(name)
	}
	return p, nil
}

func (r *fakeRegistry) All() []IdentityProvider {
	out := make([]IdentityProvider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	return out
}

// fakePublisher records every published event without delivering it
// anywhere.
type fakePublisher struct {
	userCreated     []UserCreatedEvent
	roleChanged     []RoleChangedEvent
	accountDisabled []AccountDisabledEvent
	tokenRevoked    []TokenRevokedEvent
}

func (p *fakePublisher) PublishUserCreated(ctx context.Context, evt UserCreatedEvent) error {
	p.userCreated = append(p.userCreated, evt)
	return nil
}
func (p *fakePublisher) PublishRoleChanged(ctx context.Context, evt RoleChangedEvent) error {
	p.roleChanged = append(p.roleChanged, evt)
	return nil
}
func (p *fakePublisher) PublishAccountDisabled(ctx context.Context, evt AccountDisabledEvent) error {
	p.accountDisabled = append(p.accountDisabled, evt)
	return nil
}
func (p *fakePublisher) PublishTokenRevoked(ctx context.Context, evt TokenRevokedEvent) error {
	p.tokenRevoked = append(p.tokenRevoked, evt)
	return nil
}

var (
	_ Storage          = (*fakeStorage)(nil)
	_ Crypto           = (*fakeCrypto)(nil)
	_ IdentityProvider = (*fakeIdentityProvider)(nil)
	_ EventPublisher   = (*fakePublisher)(nil)
)
