// Package memory implements the Storage port entirely in process
// memory, for local development and tests where a Postgres instance
// isn't worth standing up.
package memory

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelauth/authn-engine/internal/application/auth"
	"github.com/kestrelauth/authn-engine/internal/domain"
)

// Storage is an in-memory, mutex-guarded implementation of auth.Storage.
type Storage struct {
	mu sync.RWMutex

	users  map[domain.UserName]domain.AuthUser
	locals map[domain.UserName]domain.LocalUser
	byRI   map[domain.RemoteIdentityID]domain.UserName

	tokensByID   map[uuid.UUID]domain.HashedToken
	tokensByHash map[string]uuid.UUID

	tempTokens map[string]domain.TemporaryToken

	cfg       domain.AuthConfig
	cfgExists bool
}

// New constructs an empty in-memory Storage.
func New() *Storage {
	return &Storage{
		users:        make(map[domain.UserName]domain.AuthUser),
		locals:       make(map[domain.UserName]domain.LocalUser),
		byRI:         make(map[domain.RemoteIdentityID]domain.UserName),
		tokensByID:   make(map[uuid.UUID]domain.HashedToken),
		tokensByHash: make(map[string]uuid.UUID),
		tempTokens:   make(map[string]domain.TemporaryToken),
	}
}

func (s *Storage) GetUser(ctx context.Context, userName domain.UserName) (domain.AuthUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userName]
	if !ok {
		return domain.AuthUser{}, domain.ErrNoSuchUser()
	}
	return u, nil
}

func (s *Storage) GetUserByRemoteIdentity(ctx context.Context, id domain.RemoteIdentityID) (domain.AuthUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.byRI[id]
	if !ok {
		return domain.AuthUser{}, domain.ErrNoSuchUser()
	}
	return s.users[name], nil
}

func (s *Storage) CreateUser(ctx context.Context, u domain.AuthUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[u.UserName]; exists {
		return domain.ErrUserExists(string(u.UserName))
	}
	for _, ri := range u.LinkedIdentities {
		if _, exists := s.byRI[ri.ID]; exists {
			return domain.ErrIdentityAlreadyLinked()
		}
	}
	s.users[u.UserName] = u
	for _, ri := range u.LinkedIdentities {
		s.byRI[ri.ID] = u.UserName
	}
	return nil
}

func (s *Storage) ListUserNamesMatching(ctx context.Context, pattern string) ([]domain.UserName, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var re *regexp.Regexp
	if pattern != "" {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return nil, domain.ErrIllegalParameter("bad username pattern: " + err.Error())
		}
		re = compiled
	}

	out := make([]domain.UserName, 0, len(s.users))
	for n := range s.users {
		if re == nil || re.MatchString(string(n)) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Storage) GetLocalUser(ctx context.Context, userName domain.UserName) (domain.LocalUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lu, ok := s.locals[userName]
	if !ok {
		return domain.LocalUser{}, domain.ErrNoSuchUser()
	}
	return lu, nil
}

func (s *Storage) CreateLocalUser(ctx context.Context, u domain.LocalUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.locals[u.UserName]; exists {
		return domain.ErrUserExists(string(u.UserName))
	}
	if _, exists := s.users[u.UserName]; exists {
		return domain.ErrUserExists(string(u.UserName))
	}
	s.locals[u.UserName] = u
	s.users[u.UserName] = u.AuthUser
	return nil
}

func (s *Storage) UpdateLocalUserPassword(ctx context.Context, userName domain.UserName, hash, salt []byte, forceReset bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lu, ok := s.locals[userName]
	if !ok {
		return domain.ErrNoSuchUser()
	}
	lu.PasswordHash = append([]byte{}, hash...)
	lu.Salt = append([]byte{}, salt...)
	lu.ForceReset = forceReset
	now := time.Now()
	lu.LastReset = &now
	s.locals[userName] = lu
	return nil
}

func (s *Storage) SetForceReset(ctx context.Context, userName domain.UserName, forceReset bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lu, ok := s.locals[userName]
	if !ok {
		return domain.ErrNoSuchUser()
	}
	lu.ForceReset = forceReset
	s.locals[userName] = lu
	return nil
}

func (s *Storage) SetForceResetAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, lu := range s.locals {
		lu.ForceReset = true
		s.locals[name] = lu
	}
	return nil
}

func (s *Storage) SetDisabled(ctx context.Context, userName domain.UserName, disabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userName]
	if !ok {
		return domain.ErrNoSuchUser()
	}
	u.Disabled = disabled
	s.users[userName] = u
	if lu, ok := s.locals[userName]; ok {
		lu.Disabled = disabled
		s.locals[userName] = lu
	}
	return nil
}

func (s *Storage) SetRoles(ctx context.Context, userName domain.UserName, roles domain.RoleSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userName]
	if !ok {
		return domain.ErrNoSuchUser()
	}
	u.Roles = roles
	s.users[userName] = u
	if lu, ok := s.locals[userName]; ok {
		lu.Roles = roles
		s.locals[userName] = lu
	}
	return nil
}

func (s *Storage) SetCustomRoles(ctx context.Context, userName domain.UserName, roles map[domain.CustomRole]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userName]
	if !ok {
		return domain.ErrNoSuchUser()
	}
	u.CustomRoles = roles
	s.users[userName] = u
	if lu, ok := s.locals[userName]; ok {
		lu.CustomRoles = roles
		s.locals[userName] = lu
	}
	return nil
}

func (s *Storage) LinkIdentity(ctx context.Context, userName domain.UserName, identity domain.RemoteIdentityWithLocalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userName]
	if !ok {
		return domain.ErrNoSuchUser()
	}
	if _, exists := s.byRI[identity.ID]; exists {
		return domain.ErrIdentityAlreadyLinked()
	}
	u.LinkedIdentities = append(u.LinkedIdentities, identity)
	s.users[userName] = u
	s.byRI[identity.ID] = userName
	return nil
}

func (s *Storage) UnlinkIdentity(ctx context.Context, userName domain.UserName, localID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userName]
	if !ok {
		return domain.ErrNoSuchUser()
	}
	if !u.IsLocal() && len(u.LinkedIdentities) <= 1 {
		return domain.ErrUnlinkFailed("cannot leave a non-local user with zero identities")
	}

	out := u.LinkedIdentities[:0:0]
	for _, ri := range u.LinkedIdentities {
		if ri.LocalID == localID {
			delete(s.byRI, ri.ID)
			continue
		}
		out = append(out, ri)
	}
	u.LinkedIdentities = out
	s.users[userName] = u
	return nil
}

func (s *Storage) GetDisplayNames(ctx context.Context, names []domain.UserName) (map[domain.UserName]domain.DisplayName, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.UserName]domain.DisplayName, len(names))
	for _, n := range names {
		if u, ok := s.users[n]; ok {
			out[n] = u.DisplayName
		}
	}
	return out, nil
}

func (s *Storage) SearchDisplayNames(ctx context.Context, spec auth.NameSearchSpec, limit int) (map[domain.UserName]domain.DisplayName, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[domain.UserName]domain.DisplayName)
	names := make([]domain.UserName, 0, len(s.users))
	for n := range s.users {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	for _, n := range names {
		if len(out) >= limit {
			break
		}
		u := s.users[n]
		if spec.Prefix != "" && !strings.HasPrefix(string(n), spec.Prefix) && !strings.HasPrefix(string(u.DisplayName), spec.Prefix) {
			continue
		}
		if !spec.RoleFilter.Empty() && u.Roles.Intersect(spec.RoleFilter).Empty() {
			continue
		}
		out[n] = u.DisplayName
	}
	return out, nil
}

func (s *Storage) InsertToken(ctx context.Context, tok domain.HashedToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokensByID[tok.ID] = tok
	s.tokensByHash[string(tok.HashedValue)] = tok.ID
	return nil
}

func (s *Storage) GetTokenByHash(ctx context.Context, hashed []byte) (domain.HashedToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tokensByHash[string(hashed)]
	if !ok {
		return domain.HashedToken{}, domain.ErrNoSuchToken()
	}
	return s.tokensByID[id], nil
}

func (s *Storage) DeleteTokenByID(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok, ok := s.tokensByID[id]; ok {
		delete(s.tokensByHash, string(tok.HashedValue))
		delete(s.tokensByID, id)
	}
	return nil
}

func (s *Storage) DeleteAllTokensForUser(ctx context.Context, userName domain.UserName) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, tok := range s.tokensByID {
		if tok.UserName == userName {
			delete(s.tokensByHash, string(tok.HashedValue))
			delete(s.tokensByID, id)
		}
	}
	return nil
}

func (s *Storage) DeleteAllTokens(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokensByID = make(map[uuid.UUID]domain.HashedToken)
	s.tokensByHash = make(map[string]uuid.UUID)
	return nil
}

func (s *Storage) SetLastLogin(ctx context.Context, userName domain.UserName, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userName]
	if !ok {
		return domain.ErrNoSuchUser()
	}
	t := at
	u.LastLogin = &t
	s.users[userName] = u
	return nil
}

func (s *Storage) StoreTemporaryToken(ctx context.Context, tok domain.TemporaryToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tempTokens[tok.Value] = tok
	return nil
}

func (s *Storage) GetTemporaryToken(ctx context.Context, value string) (domain.TemporaryToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tt, ok := s.tempTokens[value]
	if !ok {
		return domain.TemporaryToken{}, domain.ErrNoSuchToken()
	}
	return tt, nil
}

func (s *Storage) DeleteTemporaryToken(ctx context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tempTokens, value)
	return nil
}

func (s *Storage) GetConfig(ctx context.Context) (domain.AuthConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.cfgExists {
		return domain.DefaultAuthConfig(), nil
	}
	return s.cfg, nil
}

func (s *Storage) UpdateConfig(ctx context.Context, cfg domain.AuthConfig, mode auth.ConfigMergeMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode == auth.ConfigOverwrite || !s.cfgExists {
		s.cfg = cfg
		s.cfgExists = true
		return nil
	}
	merged := s.cfg
	merged.LoginAllowedGlobally = cfg.LoginAllowedGlobally
	if merged.Providers == nil {
		merged.Providers = map[string]domain.ProviderConfig{}
	}
	for name, pc := range cfg.Providers {
		merged.Providers[name] = pc
	}
	if merged.TokenLifetimesMillis == nil {
		merged.TokenLifetimesMillis = map[domain.TokenLifetimeType]int64{}
	}
	for t, ms := range cfg.TokenLifetimesMillis {
		merged.TokenLifetimesMillis[t] = ms
	}
	s.cfg = merged
	return nil
}

var _ auth.Storage = (*Storage)(nil)
