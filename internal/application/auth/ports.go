package auth

/*
Storage
-------
Persistence port the engine consumes. Storage owns all persistent state;
the engine holds no per-user state across requests except the config
cache (C5). Every lookup by IncomingToken happens by its hashed value,
never its plaintext.
*/

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelauth/authn-engine/internal/domain"
)

// NameSearchSpec describes an admin-scoped display-name/username search.
// Non-admin callers are restricted by the engine to PrefixOnly() form.
type NameSearchSpec struct {
	Prefix     string
	RoleFilter domain.RoleSet // empty = no filter
}

// PrefixOnly reports whether this spec carries no role filter, the only
// form a non-admin caller may use.
func (s NameSearchSpec) PrefixOnly() bool {
	return len(s.RoleFilter) == 0
}

// ConfigMergeMode governs whether updateConfig merges into the existing
// persisted config or replaces it wholesale.
type ConfigMergeMode int

const (
	ConfigMerge ConfigMergeMode = iota
	ConfigOverwrite
)

// Storage is the engine's single persistence port, grouping user CRUD,
// local-account credential storage, role/custom-role management, token
// lifecycle, temporary-identity continuation, and config get/update.
type Storage interface {
	// User CRUD & lookup.
	GetUser(ctx context.Context, userName domain.UserName) (domain.AuthUser, error)
	GetUserByRemoteIdentity(ctx context.Context, id domain.RemoteIdentityID) (domain.AuthUser, error)
	CreateUser(ctx context.Context, u domain.AuthUser) error
	ListUserNamesMatching(ctx context.Context, pattern string) ([]domain.UserName, error)

	// Local-user CRUD & credential management.
	GetLocalUser(ctx context.Context, userName domain.UserName) (domain.LocalUser, error)
	CreateLocalUser(ctx context.Context, u domain.LocalUser) error
	UpdateLocalUserPassword(ctx context.Context, userName domain.UserName, hash, salt []byte, forceReset bool) error
	SetForceReset(ctx context.Context, userName domain.UserName, forceReset bool) error
	SetForceResetAll(ctx context.Context) error

	// Disable/enable.
	SetDisabled(ctx context.Context, userName domain.UserName, disabled bool) error

	// Roles & custom roles.
	SetRoles(ctx context.Context, userName domain.UserName, roles domain.RoleSet) error
	SetCustomRoles(ctx context.Context, userName domain.UserName, roles map[domain.CustomRole]bool) error

	// Link/unlink remote identity.
	LinkIdentity(ctx context.Context, userName domain.UserName, identity domain.RemoteIdentityWithLocalID) error
	UnlinkIdentity(ctx context.Context, userName domain.UserName, localID uuid.UUID) error

	// Display-name lookup.
	GetDisplayNames(ctx context.Context, names []domain.UserName) (map[domain.UserName]domain.DisplayName, error)
	SearchDisplayNames(ctx context.Context, spec NameSearchSpec, limit int) (map[domain.UserName]domain.DisplayName, error)

	// Token lifecycle. Lookups are always by hashed value.
	InsertToken(ctx context.Context, tok domain.HashedToken) error
	GetTokenByHash(ctx context.Context, hashed []byte) (domain.HashedToken, error)
	DeleteTokenByID(ctx context.Context, id uuid.UUID) error
	DeleteAllTokensForUser(ctx context.Context, userName domain.UserName) error
	DeleteAllTokens(ctx context.Context) error
	SetLastLogin(ctx context.Context, userName domain.UserName, at time.Time) error

	// Temporary-identity continuation.
	StoreTemporaryToken(ctx context.Context, tok domain.TemporaryToken) error
	GetTemporaryToken(ctx context.Context, value string) (domain.TemporaryToken, error)
	DeleteTemporaryToken(ctx context.Context, value string) error

	// Config.
	GetConfig(ctx context.Context) (domain.AuthConfig, error)
	UpdateConfig(ctx context.Context, cfg domain.AuthConfig, mode ConfigMergeMode) error
}

/*
Crypto
------
Password hashing and opaque-token generation, kept behind an interface
so the engine never touches crypto/rand or crypto/subtle directly.
*/
type Crypto interface {
	GenerateSalt() ([]byte, error)
	GetEncryptedPassword(plain []byte, salt []byte) ([]byte, error)
	Authenticate(plain []byte, expectedHash []byte, salt []byte) bool
	GetTemporaryPassword(length int) (string, error)
	GetToken() (string, error)
	HashToken(plain string) []byte
}

/*
IdentityProvider
----------------
One external OAuth2-shaped identity source. loginURL/getIdentities mirror
spec.md §4.2/§6's Globus-specific wire contract; a provider's own HTTP
client is internal to its implementation.
*/
type IdentityProvider interface {
	Name() string
	ImageURI() string
	LoginURL(state string, isLink bool) (string, error)
	GetIdentities(ctx context.Context, authcode string, isLink bool) ([]domain.RemoteIdentity, error)
}

// IdentityProviderRegistry is a frozen name->provider map. Unknown names
// surface domain.ErrNoSuchIdentityProvider; providers disabled in the
// current AuthConfig are treated as unknown by Resolve.
type IdentityProviderRegistry interface {
	Resolve(name string, cfg domain.AuthConfig) (IdentityProvider, error)
	All() []IdentityProvider
}

// Audit is the engine's security-event sink. The engine stays
// transport/log-library agnostic: it only ever calls this hook.
type Audit func(action string, fields map[string]string)

// EventPublisher publishes administrative/audit domain events to a
// downstream notification consumer (user created, role changed,
// disabled/enabled, token revoked). The engine's Non-goals explicitly
// exclude sending mail itself.
type EventPublisher interface {
	PublishUserCreated(ctx context.Context, evt UserCreatedEvent) error
	PublishRoleChanged(ctx context.Context, evt RoleChangedEvent) error
	PublishAccountDisabled(ctx context.Context, evt AccountDisabledEvent) error
	PublishTokenRevoked(ctx context.Context, evt TokenRevokedEvent) error
}

type UserCreatedEvent struct {
	UserName  string `json:"user_name"`
	CreatedBy string `json:"created_by"`
}

type RoleChangedEvent struct {
	UserName string   `json:"user_name"`
	Added    []string `json:"added"`
	Removed  []string `json:"removed"`
	ActedBy  string   `json:"acted_by"`
}

type AccountDisabledEvent struct {
	UserName string `json:"user_name"`
	Disabled bool   `json:"disabled"`
	Reason   string `json:"reason,omitempty"`
	ActedBy  string `json:"acted_by"`
}

type TokenRevokedEvent struct {
	UserName string `json:"user_name"`
	TokenID  string `json:"token_id,omitempty"`
	ActedBy  string `json:"acted_by"`
}
