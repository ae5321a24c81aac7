// Package identityprovider implements the IdentityProvider port and its
// registry: one concrete adapter per external OAuth2 identity source
// (currently Globus, plus a generic OIDC adapter preconfigured for
// Google), frozen behind a name->provider map at startup.
package identityprovider

import (
	"github.com/kestrelauth/authn-engine/internal/application/auth"
	"github.com/kestrelauth/authn-engine/internal/domain"
)

// Config is the external configuration surface for one identity
// provider (spec.md §6's IdentityProviderConfig).
type Config struct {
	Name             string
	LoginBaseURL     string
	APIBaseURL       string
	ClientID         string
	ClientSecret     string
	ImageURI         string
	LoginRedirectURL string
	LinkRedirectURL  string
	Options          map[string]string
}

// Registry is a frozen name->provider map built once at startup.
type Registry struct {
	providers map[string]auth.IdentityProvider
}

// NewRegistry freezes providers into a lookup map keyed by each
// provider's own Name(). Panics on a duplicate name, which is a wiring
// bug caught at startup, not a runtime condition.
func NewRegistry(providers ...auth.IdentityProvider) *Registry {
	m := make(map[string]auth.IdentityProvider, len(providers))
	for _, p := range providers {
		if _, exists := m[p.Name()]; exists {
			panic("identityprovider: duplicate provider name " + p.Name())
		}
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Resolve looks up name, treating a provider disabled in cfg as unknown
// to external callers.
func (r *Registry) Resolve(name string, cfg domain.AuthConfig) (auth.IdentityProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, domain.ErrNoSuchIdentityProvider(name)
	}
	if pc, ok := cfg.Providers[name]; ok && !pc.Enabled {
		return nil, domain.ErrNoSuchIdentityProvider(name)
	}
	return p, nil
}

// All returns every registered provider, frozen order notwithstanding
// (callers needing a stable order should sort by Name()).
func (r *Registry) All() []auth.IdentityProvider {
	out := make([]auth.IdentityProvider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	return out
}

var _ auth.IdentityProviderRegistry = (*Registry)(nil)
