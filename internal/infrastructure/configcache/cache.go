// Package configcache decorates an auth.Storage with a periodically
// refreshed in-process cache of AuthConfig, so the hot path of every
// engine operation that consults configuration (login-allowed, provider
// enablement, token lifetimes) does not round-trip to Storage on every
// call.
package configcache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelauth/authn-engine/internal/application/auth"
	"github.com/kestrelauth/authn-engine/internal/domain"
)

// DefaultRefreshInterval is how long a cached config is trusted before
// the next reader forces a re-read from Storage.
const DefaultRefreshInterval = 30 * time.Second

// Cache decorates an auth.Storage, intercepting GetConfig/UpdateConfig
// behind a single mutex guarding (cached, nextUpdate, loaded); every
// GetConfig and UpdateConfig call holds it for its whole duration,
// including a return from a fresh cache.
// Delegates every other Storage method to inner.
type Cache struct {
	inner auth.Storage

	refreshInterval time.Duration

	mu         sync.Mutex
	cached     domain.AuthConfig
	nextUpdate time.Time
	loaded     bool
}

// New wraps inner with a config cache using refreshInterval (or
// DefaultRefreshInterval if <= 0).
func New(inner auth.Storage, refreshInterval time.Duration) *Cache {
	if refreshInterval <= 0 {
		refreshInterval = DefaultRefreshInterval
	}
	return &Cache{inner: inner, refreshInterval: refreshInterval}
}

// GetConfig returns the cached config, refreshing from Storage first if
// stale. Concurrent callers serialize on the mutex; only the first to
// observe staleness performs the Storage read, the rest simply read the
// result it leaves behind.
func (c *Cache) GetConfig(ctx context.Context) (domain.AuthConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded && time.Now().Before(c.nextUpdate) {
		return c.cached, nil
	}

	cfg, err := c.inner.GetConfig(ctx)
	if err != nil {
		return domain.AuthConfig{}, err
	}
	cfg = fillDefaults(cfg)
	if !c.loaded {
		// Persist defaults without overwriting any existing values.
		if err := c.inner.UpdateConfig(ctx, cfg, auth.ConfigMerge); err != nil {
			return domain.AuthConfig{}, err
		}
	}
	c.cached = cfg
	c.nextUpdate = time.Now().Add(c.refreshInterval)
	c.loaded = true
	return c.cached, nil
}

// UpdateConfig writes through to Storage and forces the next GetConfig
// call to re-read, regardless of mode.
func (c *Cache) UpdateConfig(ctx context.Context, cfg domain.AuthConfig, mode auth.ConfigMergeMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.inner.UpdateConfig(ctx, cfg, mode); err != nil {
		return err
	}
	c.loaded = false
	c.nextUpdate = time.Time{}
	return nil
}

func fillDefaults(cfg domain.AuthConfig) domain.AuthConfig {
	defaults := domain.DefaultAuthConfig()
	if cfg.Providers == nil {
		cfg.Providers = map[string]domain.ProviderConfig{}
	}
	if cfg.TokenLifetimesMillis == nil {
		cfg.TokenLifetimesMillis = map[domain.TokenLifetimeType]int64{}
	}
	for k, v := range defaults.TokenLifetimesMillis {
		if _, ok := cfg.TokenLifetimesMillis[k]; !ok {
			cfg.TokenLifetimesMillis[k] = v
		}
	}
	return cfg
}

// ---- delegate everything else to inner ----

func (c *Cache) GetUser(ctx context.Context, userName domain.UserName) (domain.AuthUser, error) {
	return c.inner.GetUser(ctx, userName)
}
func (c *Cache) GetUserByRemoteIdentity(ctx context.Context, id domain.RemoteIdentityID) (domain.AuthUser, error) {
	return c.inner.GetUserByRemoteIdentity(ctx, id)
}
func (c *Cache) CreateUser(ctx context.Context, u domain.AuthUser) error {
	return c.inner.CreateUser(ctx, u)
}
func (c *Cache) ListUserNamesMatching(ctx context.Context, pattern string) ([]domain.UserName, error) {
	return c.inner.ListUserNamesMatching(ctx, pattern)
}
func (c *Cache) GetLocalUser(ctx context.Context, userName domain.UserName) (domain.LocalUser, error) {
	return c.inner.GetLocalUser(ctx, userName)
}
func (c *Cache) CreateLocalUser(ctx context.Context, u domain.LocalUser) error {
	return c.inner.CreateLocalUser(ctx, u)
}
func (c *Cache) UpdateLocalUserPassword(ctx context.Context, userName domain.UserName, hash, salt []byte, forceReset bool) error {
	return c.inner.UpdateLocalUserPassword(ctx, userName, hash, salt, forceReset)
}
func (c *Cache) SetForceReset(ctx context.Context, userName domain.UserName, forceReset bool) error {
	return c.inner.SetForceReset(ctx, userName, forceReset)
}
func (c *Cache) SetForceResetAll(ctx context.Context) error {
	return c.inner.SetForceResetAll(ctx)
}
func (c *Cache) SetDisabled(ctx context.Context, userName domain.UserName, disabled bool) error {
	return c.inner.SetDisabled(ctx, userName, disabled)
}
func (c *Cache) SetRoles(ctx context.Context, userName domain.UserName, roles domain.RoleSet) error {
	return c.inner.SetRoles(ctx, userName, roles)
}
func (c *Cache) SetCustomRoles(ctx context.Context, userName domain.UserName, roles map[domain.CustomRole]bool) error {
	return c.inner.SetCustomRoles(ctx, userName, roles)
}
func (c *Cache) LinkIdentity(ctx context.Context, userName domain.UserName, identity domain.RemoteIdentityWithLocalID) error {
	return c.inner.LinkIdentity(ctx, userName, identity)
}
func (c *Cache) UnlinkIdentity(ctx context.Context, userName domain.UserName, localID uuid.UUID) error {
	return c.inner.UnlinkIdentity(ctx, userName, localID)
}
func (c *Cache) GetDisplayNames(ctx context.Context, names []domain.UserName) (map[domain.UserName]domain.DisplayName, error) {
	return c.inner.GetDisplayNames(ctx, names)
}
func (c *Cache) SearchDisplayNames(ctx context.Context, spec auth.NameSearchSpec, limit int) (map[domain.UserName]domain.DisplayName, error) {
	return c.inner.SearchDisplayNames(ctx, spec, limit)
}
func (c *Cache) InsertToken(ctx context.Context, tok domain.HashedToken) error {
	return c.inner.InsertToken(ctx, tok)
}
func (c *Cache) GetTokenByHash(ctx context.Context, hashed []byte) (domain.HashedToken, error) {
	return c.inner.GetTokenByHash(ctx, hashed)
}
func (c *Cache) DeleteTokenByID(ctx context.Context, id uuid.UUID) error {
	return c.inner.DeleteTokenByID(ctx, id)
}
func (c *Cache) DeleteAllTokensForUser(ctx context.Context, userName domain.UserName) error {
	return c.inner.DeleteAllTokensForUser(ctx, userName)
}
func (c *Cache) DeleteAllTokens(ctx context.Context) error {
	return c.inner.DeleteAllTokens(ctx)
}
func (c *Cache) SetLastLogin(ctx context.Context, userName domain.UserName, at time.Time) error {
	return c.inner.SetLastLogin(ctx, userName, at)
}
func (c *Cache) StoreTemporaryToken(ctx context.Context, tok domain.TemporaryToken) error {
	return c.inner.StoreTemporaryToken(ctx, tok)
}
func (c *Cache) GetTemporaryToken(ctx context.Context, value string) (domain.TemporaryToken, error) {
	return c.inner.GetTemporaryToken(ctx, value)
}
func (c *Cache) DeleteTemporaryToken(ctx context.Context, value string) error {
	return c.inner.DeleteTemporaryToken(ctx, value)
}

var _ auth.Storage = (*Cache)(nil)
